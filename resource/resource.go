// Package resource loads and caches engine assets by path.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/yuin/gopher-lua/parse"

	lua "github.com/yuin/gopher-lua"
)

// Kind identifies the decoded form of a resource.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindLua
	KindImage
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindLua:
		return "Lua"
	case KindImage:
		return "Image"
	case KindModel:
		return "Model"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	ErrNotFound     = errors.New("resource not found")
	ErrKindMismatch = errors.New("resource already loaded as a different kind")
)

// File is a loaded resource. The same normalized path always yields the same File.
type File interface {
	Kind() Kind
	Path() string
	// Size returns the number of raw bytes the resource was decoded from.
	Size() int
	decode(data []byte) error
}

type header struct {
	path string
	size int
}

func (h *header) Path() string { return h.path }

func (h *header) Size() int { return h.size }

// Text is a plain text resource.
type Text struct {
	header
	text string
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) String() string { return t.text }

func (t *Text) decode(data []byte) error {
	t.text = string(data)
	t.size = len(data)
	return nil
}

// LuaScript is a Lua source file compiled once into a function prototype.
// Interpreters instantiate it with NewFunctionFromProto.
type LuaScript struct {
	Text
	proto *lua.FunctionProto
}

func (s *LuaScript) Kind() Kind { return KindLua }

// Proto returns the compiled chunk.
func (s *LuaScript) Proto() *lua.FunctionProto { return s.proto }

func (s *LuaScript) decode(data []byte) error {
	chunk, err := parse.Parse(bytes.NewReader(data), s.path)
	if err != nil {
		return err
	}
	proto, err := lua.Compile(chunk, s.path)
	if err != nil {
		return err
	}
	s.proto = proto
	return s.Text.decode(data)
}

// Image is a decoded raster image.
type Image struct {
	header
	img    image.Image
	format string
}

func (i *Image) Kind() Kind { return KindImage }

func (i *Image) Image() image.Image { return i.img }

// Format returns the codec name reported by the decoder, e.g. "png".
func (i *Image) Format() string { return i.format }

func (i *Image) Width() int { return i.img.Bounds().Dx() }

func (i *Image) Height() int { return i.img.Bounds().Dy() }

func (i *Image) decode(data []byte) error {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	i.img, i.format, i.size = img, format, len(data)
	return nil
}

// Model is a mesh list read from a Wavefront OBJ file.
type Model struct {
	header
	meshes []Mesh
}

func (m *Model) Kind() Kind { return KindModel }

func (m *Model) Meshes() []Mesh { return m.meshes }

// Bounds returns the box enclosing every mesh.
func (m *Model) Bounds() Bounds {
	var b Bounds
	for i, mesh := range m.meshes {
		if i == 0 {
			b = mesh.Bounds
			continue
		}
		b = b.Union(mesh.Bounds)
	}
	return b
}

func (m *Model) decode(data []byte) error {
	meshes, err := parseOBJ(bytes.NewReader(data))
	if err != nil {
		return err
	}
	m.meshes, m.size = meshes, len(data)
	return nil
}

func newFile(kind Kind, path string) File {
	h := header{path: path}
	switch kind {
	case KindText:
		return &Text{header: h}
	case KindLua:
		return &LuaScript{Text: Text{header: h}}
	case KindImage:
		return &Image{header: h}
	case KindModel:
		return &Model{header: h}
	default:
		panic(fmt.Sprintf("resource: unknown kind %d", kind))
	}
}

package resource

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one deduplicated mesh vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Min, Max mgl32.Vec3
}

func (b Bounds) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

func (b Bounds) Extents() mgl32.Vec3 { return b.Max.Sub(b.Min).Mul(0.5) }

func (b Bounds) Union(o Bounds) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
	return b
}

func (b *Bounds) extend(p mgl32.Vec3, first bool) {
	if first {
		b.Min, b.Max = p, p
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Mesh is a triangle list with its material name.
type Mesh struct {
	Name     string
	Material string
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

type objIndex struct{ v, vt, vn int }

type objBuilder struct {
	positions []mgl32.Vec3
	texcoords []mgl32.Vec2
	normals   []mgl32.Vec3

	meshes   []Mesh
	lookup   map[objIndex]uint32
	material string
}

// current returns the mesh being filled, nil before the first o/g or face.
func (b *objBuilder) current() *Mesh {
	if len(b.meshes) == 0 {
		return nil
	}
	return &b.meshes[len(b.meshes)-1]
}

func (b *objBuilder) mesh() *Mesh {
	if len(b.meshes) == 0 {
		b.startMesh("default")
	}
	return b.current()
}

func (b *objBuilder) startMesh(name string) {
	if m := b.current(); m != nil && len(m.Indices) == 0 {
		m.Name = name
		return
	}
	b.meshes = append(b.meshes, Mesh{Name: name, Material: b.material})
	b.lookup = make(map[objIndex]uint32)
}

func (b *objBuilder) vertex(idx objIndex) uint32 {
	m := b.mesh()
	if i, ok := b.lookup[idx]; ok {
		return i
	}
	v := Vertex{Position: b.positions[idx.v]}
	if idx.vt >= 0 {
		v.TexCoord = b.texcoords[idx.vt]
	}
	if idx.vn >= 0 {
		v.Normal = b.normals[idx.vn]
	}
	m.Bounds.extend(v.Position, len(m.Vertices) == 0)
	m.Vertices = append(m.Vertices, v)
	i := uint32(len(m.Vertices) - 1)
	b.lookup[idx] = i
	return i
}

// parseOBJ reads the subset of Wavefront OBJ used by engine models: v, vt, vn,
// f (triangulated as a fan), o/g (start a new mesh) and usemtl.
func parseOBJ(r io.Reader) ([]Mesh, error) {
	b := &objBuilder{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		var err error
		switch fields[0] {
		case "v":
			var v mgl32.Vec3
			v, err = parseVec3(fields[1:])
			b.positions = append(b.positions, v)
		case "vn":
			var v mgl32.Vec3
			v, err = parseVec3(fields[1:])
			b.normals = append(b.normals, v)
		case "vt":
			var v mgl32.Vec2
			v, err = parseVec2(fields[1:])
			b.texcoords = append(b.texcoords, v)
		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			b.startMesh(name)
		case "usemtl":
			if len(fields) > 1 {
				b.material = fields[1]
				if m := b.current(); m != nil && len(m.Indices) == 0 {
					m.Material = b.material
				}
			}
		case "f":
			err = b.face(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	meshes := b.meshes[:0]
	for _, m := range b.meshes {
		if len(m.Indices) > 0 {
			meshes = append(meshes, m)
		}
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("obj: no faces")
	}
	return meshes, nil
}

func (b *objBuilder) face(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face needs 3 vertices, got %d", len(refs))
	}
	indices := make([]uint32, len(refs))
	for i, ref := range refs {
		idx, err := b.resolve(ref)
		if err != nil {
			return err
		}
		indices[i] = b.vertex(idx)
	}
	m := b.mesh()
	for i := 1; i+1 < len(indices); i++ {
		m.Indices = append(m.Indices, indices[0], indices[i], indices[i+1])
	}
	return nil
}

// resolve parses "v", "v/vt", "v//vn" or "v/vt/vn" into zero based indices, -1 when absent.
func (b *objBuilder) resolve(ref string) (objIndex, error) {
	parts := strings.Split(ref, "/")
	idx := objIndex{v: -1, vt: -1, vn: -1}
	counts := [3]int{len(b.positions), len(b.texcoords), len(b.normals)}
	targets := [3]*int{&idx.v, &idx.vt, &idx.vn}

	for i, part := range parts {
		if i > 2 {
			return idx, fmt.Errorf("bad face reference %q", ref)
		}
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return idx, fmt.Errorf("bad face reference %q: %w", ref, err)
		}
		if n < 0 {
			n = counts[i] + n
		} else {
			n--
		}
		if n < 0 || n >= counts[i] {
			return idx, fmt.Errorf("face reference %q out of range", ref)
		}
		*targets[i] = n
	}
	if idx.v < 0 {
		return idx, fmt.Errorf("face reference %q has no position", ref)
	}
	return idx, nil
}

func parseFloats(fields []string, dst []float32) error {
	if len(fields) < len(dst) {
		return fmt.Errorf("expected %d components, got %d", len(dst), len(fields))
	}
	for i := range dst {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return err
		}
		dst[i] = float32(f)
	}
	return nil
}

func parseVec3(fields []string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	err := parseFloats(fields, v[:])
	return v, err
}

func parseVec2(fields []string) (mgl32.Vec2, error) {
	var v mgl32.Vec2
	err := parseFloats(fields, v[:])
	return v, err
}

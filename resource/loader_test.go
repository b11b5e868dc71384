package resource_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

func loadFixtures(t *testing.T) fstest.MapFS {
	t.Helper()
	archive, err := txtar.ParseFile("testdata/assets.txtar")
	require.NoError(t, err)

	fsys := fstest.MapFS{}
	for _, f := range archive.Files {
		fsys[f.Name] = &fstest.MapFile{Data: f.Data}
	}
	return fsys
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"game/assets/a.txt":        "game/assets/a.txt",
		"game\\assets\\a.txt":      "game/assets/a.txt",
		"./game/assets/../a.txt":   "game/a.txt",
		"/game//assets/a.txt":      "game/assets/a.txt",
		"game/assets/./models/b.x": "game/assets/models/b.x",
	}
	for in, want := range tests {
		assert.Equal(t, want, resource.Normalize(in), in)
	}
	assert.Equal(t, resource.Key("game/a.txt"), resource.Key("./game\\a.txt"))
}

func TestLoadTextIsCached(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	first, err := loader.LoadText("game/assets/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello resources\n", first.String())
	assert.Equal(t, resource.KindText, first.Kind())

	second, err := loader.LoadText("./game\\assets/readme.txt")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.Len())
}

func TestLoadMissing(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	_, err := loader.LoadText("game/nope.txt")
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.False(t, loader.Loaded("game/nope.txt"))
}

func TestLoadKindMismatch(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	_, err := loader.LoadText("game/scripts/spin.lua")
	require.NoError(t, err)

	_, err = loader.LoadLua("game/scripts/spin.lua")
	assert.ErrorIs(t, err, resource.ErrKindMismatch)
}

func TestLoadLua(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	script, err := loader.LoadLua("game/scripts/spin.lua")
	require.NoError(t, err)
	assert.NotNil(t, script.Proto())
	assert.Contains(t, script.String(), "onUpdate")

	_, err = loader.LoadLua("game/scripts/broken.lua")
	assert.Error(t, err)
	assert.False(t, loader.Loaded("game/scripts/broken.lua"))
}

func TestLoadModel(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	model, err := loader.LoadModel("game/assets/models/quad.obj")
	require.NoError(t, err)

	meshes := model.Meshes()
	require.Len(t, meshes, 2)

	front := meshes[0]
	assert.Equal(t, "front", front.Name)
	assert.Equal(t, "paint", front.Material)
	assert.Len(t, front.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, front.Indices)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, front.Vertices[0].Normal)
	assert.Equal(t, mgl32.Vec2{1, 1}, front.Vertices[2].TexCoord)

	back := meshes[1]
	assert.Equal(t, "back", back.Name)
	assert.Equal(t, 1, back.TriangleCount())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, back.Vertices[0].Position)

	bounds := model.Bounds()
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, bounds.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, bounds.Max)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0}, bounds.Center())

	_, err = loader.LoadModel("game/assets/models/empty.obj")
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	fsys := fstest.MapFS{
		"textures/red.png": &fstest.MapFile{Data: buf.Bytes()},
		"textures/bad.png": &fstest.MapFile{Data: []byte("not a png")},
	}
	loader := resource.NewLoader(fsys, nil)

	loaded, err := loader.LoadImage("textures/red.png")
	require.NoError(t, err)
	assert.Equal(t, "png", loaded.Format())
	assert.Equal(t, 3, loaded.Width())
	assert.Equal(t, 2, loaded.Height())
	r, _, _, _ := loaded.Image().At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	_, err = loader.LoadImage("textures/bad.png")
	assert.Error(t, err)
}

func TestReloadInPlace(t *testing.T) {
	fsys := fstest.MapFS{
		"notes.txt": &fstest.MapFile{Data: []byte("v1")},
	}
	loader := resource.NewLoader(fsys, nil)

	text, err := loader.LoadText("notes.txt")
	require.NoError(t, err)

	fsys["notes.txt"] = &fstest.MapFile{Data: []byte("v2")}
	require.NoError(t, loader.Reload("notes.txt"))
	assert.Equal(t, "v2", text.String())

	delete(fsys, "notes.txt")
	assert.Error(t, loader.Reload("notes.txt"))
	assert.Equal(t, "v2", text.String())

	assert.ErrorIs(t, loader.Reload("other.txt"), resource.ErrNotFound)
}

func TestFilesAndEvict(t *testing.T) {
	loader := resource.NewLoader(loadFixtures(t), nil)

	_, err := loader.LoadLua("game/scripts/spin.lua")
	require.NoError(t, err)
	_, err = loader.LoadText("game/assets/readme.txt")
	require.NoError(t, err)

	files := loader.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "game/assets/readme.txt", files[0].Path())
	assert.Equal(t, "game/scripts/spin.lua", files[1].Path())

	assert.True(t, loader.Evict("game/assets/readme.txt"))
	assert.Equal(t, 1, loader.Len())
}

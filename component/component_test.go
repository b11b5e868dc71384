package component_test

import (
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func newStorage(t *testing.T) (*ecs.Storage, *resource.Loader) {
	t.Helper()
	loader := resource.NewLoader(fstest.MapFS{
		"models/tri.obj": &fstest.MapFile{Data: []byte(triangleOBJ)},
	}, nil)
	registry := ecs.NewComponentRegistry()
	component.Register(registry, component.Deps{Loader: loader})
	registry.Freeze()
	return ecs.NewStorage(registry), loader
}

func create[T ecs.Component](t *testing.T, storage *ecs.Storage, name, data string) T {
	t.Helper()
	c, err := storage.Registry().Create(name, []byte(data))
	require.NoError(t, err)
	return c.(T)
}

func vecNear(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v, got %v", want, got)
}

func TestRegisteredTypes(t *testing.T) {
	storage, _ := newStorage(t)

	names := []string{}
	for _, ct := range storage.Registry().Types() {
		names = append(names, ct.Name)
	}
	assert.Equal(t, []string{
		component.TestName,
		component.DebugName,
		component.TransformName,
		component.ModelName,
		component.PointLightName,
		component.CameraName,
	}, names)

	_, err := storage.Registry().Create(component.TransformName, []byte(`{"position": "up"}`))
	assert.ErrorIs(t, err, ecs.ErrMalformedDefinition)
}

func TestTransformDefinition(t *testing.T) {
	storage, _ := newStorage(t)

	tr := create[*component.Transform](t, storage, component.TransformName,
		`{"position": [1, 2, 3], "scale": [2, 2, 2]}`)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, tr.Position())
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, tr.Scale())
	assert.Equal(t, mgl32.QuatIdent(), tr.Rotation())

	data, err := json.Marshal(tr.Serialize())
	require.NoError(t, err)
	again := create[*component.Transform](t, storage, component.TransformName, string(data))
	assert.Equal(t, tr.Position(), again.Position())
	assert.Equal(t, tr.Scale(), again.Scale())

	defaults := create[*component.Transform](t, storage, component.TransformName, "")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, defaults.Scale())
}

func TestTransformSystemComposesParentFirst(t *testing.T) {
	storage, _ := newStorage(t)

	parent := storage.Spawn("parent", nil, false)
	parentT := create[*component.Transform](t, storage, component.TransformName, `{"position": [10, 0, 0]}`)
	require.NoError(t, parent.AddComponent(parentT))

	group := storage.Spawn("group", parent, false)

	child := storage.Spawn("child", group, false)
	childT := create[*component.Transform](t, storage, component.TransformName, `{"position": [0, 5, 0]}`)
	require.NoError(t, child.AddComponent(childT))

	system := &component.TransformSystem{}
	scheduler := ecs.NewScheduler(storage, nil)
	scheduler.Register(system)
	scheduler.Once(16)

	assert.Equal(t, 2, system.Updated)
	vecNear(t, mgl32.Vec3{10, 5, 0}, childT.WorldPosition())

	parentT.Translate(mgl32.Vec3{0, 0, 1})
	assert.True(t, parentT.Dirty())
	scheduler.Once(16)
	assert.False(t, parentT.Dirty())
	vecNear(t, mgl32.Vec3{10, 5, 1}, childT.WorldPosition())
}

func TestTransformRotation(t *testing.T) {
	storage, _ := newStorage(t)
	tr := create[*component.Transform](t, storage, component.TransformName, "")

	e := storage.Spawn("spinner", nil, false)
	require.NoError(t, e.AddComponent(tr))

	tr.Rotate(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	(&component.TransformSystem{}).Execute(&ecs.UpdateFrame{Storage: storage})

	vecNear(t, mgl32.Vec3{-1, 0, 0}, tr.Forward())
}

func TestModelSetupNeedsTransform(t *testing.T) {
	storage, _ := newStorage(t)

	bare := storage.Spawn("bare", nil, false)
	model := create[*component.Model](t, storage, component.ModelName, `{"resFile": "models/tri.obj"}`)
	require.NoError(t, bare.AddComponent(model))
	assert.False(t, model.Setup())

	placed := storage.Spawn("placed", nil, false)
	require.NoError(t, placed.AddComponent(create[*component.Transform](t, storage, component.TransformName, "")))
	model = create[*component.Model](t, storage, component.ModelName, `{"resFile": "models/tri.obj"}`)
	require.NoError(t, placed.AddComponent(model))
	require.True(t, model.Setup())
	require.NotNil(t, model.Resource())
	assert.Equal(t, 1, model.Resource().Meshes()[0].TriangleCount())

	missing := storage.Spawn("missing", nil, false)
	require.NoError(t, missing.AddComponent(create[*component.Transform](t, storage, component.TransformName, "")))
	model = create[*component.Model](t, storage, component.ModelName, `{"resFile": "models/none.obj"}`)
	require.NoError(t, missing.AddComponent(model))
	assert.False(t, model.Setup())
}

func TestPointLight(t *testing.T) {
	storage, _ := newStorage(t)

	light := create[*component.PointLight](t, storage, component.PointLightName,
		`{"constAtt": 1, "linAtt": 0, "quadAtt": 0, "range": 5, "diffuseIntensity": 2}`)
	assert.Equal(t, float32(2), light.Attenuation(1))
	assert.Equal(t, float32(0), light.Attenuation(6))
	assert.Equal(t, component.Color{1, 1, 1, 1}, light.DiffuseColor)

	_, err := storage.Registry().Create(component.PointLightName, []byte(`{"range": -1}`))
	assert.ErrorIs(t, err, ecs.ErrMalformedDefinition)
}

func TestCamera(t *testing.T) {
	storage, _ := newStorage(t)

	_, err := storage.Registry().Create(component.CameraName, []byte(`{"near": 1, "far": 0.5}`))
	assert.ErrorIs(t, err, ecs.ErrMalformedDefinition)

	cam := create[*component.Camera](t, storage, component.CameraName, `{"fov": 90}`)
	e := storage.Spawn("camera", nil, false)
	tr := create[*component.Transform](t, storage, component.TransformName, `{"position": [0, 0, 5]}`)
	require.NoError(t, e.AddComponent(tr))
	require.NoError(t, e.AddComponent(cam))
	(&component.TransformSystem{}).Execute(&ecs.UpdateFrame{Storage: storage})

	origin := cam.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	vecNear(t, mgl32.Vec3{0, 0, -5}, origin)
	assert.NotEqual(t, mgl32.Mat4{}, cam.Projection())
}

func TestUpdateSystem(t *testing.T) {
	storage, _ := newStorage(t)

	live := create[*component.Debug](t, storage, component.DebugName, "")
	require.NoError(t, storage.Spawn("live", nil, false).AddComponent(live))

	off := create[*component.Debug](t, storage, component.DebugName, "")
	require.NoError(t, storage.Spawn("off", nil, false).AddComponent(off))
	ecs.Disable(off)

	editor := create[*component.Debug](t, storage, component.DebugName, "")
	require.NoError(t, storage.Spawn("gizmo", nil, true).AddComponent(editor))

	scheduler := ecs.NewScheduler(storage, nil)
	scheduler.Register(component.NewUpdateSystem(storage.Registry(), component.ScriptID))
	scheduler.Once(16)
	scheduler.Once(16)

	assert.Equal(t, uint64(2), live.Updates())
	assert.Zero(t, off.Updates())
	assert.Zero(t, editor.Updates())
}

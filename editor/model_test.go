package editor_test

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
	"github.com/plus3/rtx/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldCache(t *testing.T) {
	fc := editor.NewFieldCache()
	light, err := component.NewPointLight([]byte(`{"type": "PointLightComponent"}`))
	require.NoError(t, err)

	fields := fc.Fields(reflect.TypeOf(light))
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"ConstAtt", "LinAtt", "QuadAtt", "Range", "DiffuseIntensity", "DiffuseColor", "AmbientColor"}, names)
	assert.Equal(t, fields, fc.Fields(reflect.TypeOf(*light)))

	require.NoError(t, fc.Set(light, "Range", 12.5))
	assert.Equal(t, float32(12.5), light.Range)
	require.NoError(t, fc.Set(light, "LinAtt", 1))
	assert.Equal(t, float32(1), light.LinAtt)
	require.NoError(t, fc.Set(light, "DiffuseColor", [4]float32{1, 0, 0, 1}))
	assert.Equal(t, component.Color{1, 0, 0, 1}, light.DiffuseColor)
	assert.True(t, light.Dirty())

	v, err := fc.Value(light, "Range")
	require.NoError(t, err)
	assert.Equal(t, float32(12.5), float32(v.Float()))

	assert.ErrorIs(t, fc.Set(light, "Range", "far"), editor.ErrFieldType)
	assert.ErrorIs(t, fc.Set(light, "DiffuseColor", mgl32.Vec3{1, 1, 1}), editor.ErrFieldType)
	assert.ErrorIs(t, fc.Set(light, "Brightness", 1.0), editor.ErrUnknownField)
	assert.ErrorIs(t, fc.Set(light, "BaseComponent", ecs.BaseComponent{}), editor.ErrUnknownField)

	// Transform keeps its state private; the inspector edits it through methods.
	tr, err := component.NewTransform(nil)
	require.NoError(t, err)
	assert.Empty(t, fc.Fields(reflect.TypeOf(tr)))
}

func TestEventLog(t *testing.T) {
	log := editor.NewEventLog(3)
	for i := range 5 {
		log.Record(event.New("Tick", "test", event.Number(float64(i))))
	}
	log.Record(event.New("LevelLoaded", "LevelManager", event.String("Sandbox")))

	entries := log.Entries("")
	require.Len(t, entries, 3)
	assert.Equal(t, []uint64{4, 5, 6}, []uint64{entries[0].Seq, entries[1].Seq, entries[2].Seq})
	assert.Equal(t, "4", entries[1].Payload)
	assert.Equal(t, `"Sandbox"`, entries[2].Payload)
	assert.Equal(t, uint64(6), log.Total())

	filtered := log.Entries("levelmanager")
	require.Len(t, filtered, 1)
	assert.Equal(t, "LevelLoaded", filtered[0].Name)

	log.SetPaused(true)
	log.Record(event.New("Tick", "test", event.Nil()))
	assert.Equal(t, uint64(6), log.Total())
	log.SetPaused(false)

	log.Clear()
	assert.Empty(t, log.Entries(""))
	log.Record(event.New("Tick", "test", event.Nil()))
	assert.Len(t, log.Entries(""), 1)
}

func TestEventLogObservesManager(t *testing.T) {
	r := newRig(t)
	r.events.Call("Ping", "test", event.Bool(true))
	r.events.Defer("Pong", "test", event.Nil())
	r.events.DispatchDeferred()

	entries := r.editor.Log.Entries("p")
	require.Len(t, entries, 2)
	assert.Equal(t, "Ping", entries[0].Name)
	assert.Equal(t, "Pong", entries[1].Name)
}

func TestFrameHistory(t *testing.T) {
	h := editor.NewFrameHistory(4)
	assert.Zero(t, h.Average())
	assert.Zero(t, h.FPS())

	h.Push(10)
	h.Push(30)
	assert.Equal(t, float32(20), h.Average())
	assert.Equal(t, float32(50), h.FPS())

	for range 4 {
		h.Push(16)
	}
	assert.Equal(t, float32(16), h.Average())
	assert.Len(t, h.Samples(), 4)

	timer := editor.NewFrameTimer()
	assert.GreaterOrEqual(t, timer.DeltaMs(), float32(0))
}

func TestPicking(t *testing.T) {
	r := newRig(t)
	near := r.storage.Spawn("Near", nil, false)
	far := r.storage.Spawn("Far", nil, false)
	hidden := r.storage.Spawn("Gizmo", nil, true)
	for e, z := range map[*ecs.Entity]float32{near: 0, far: -5, hidden: 5} {
		tr, err := component.NewTransform(nil)
		require.NoError(t, err)
		require.NoError(t, e.AddComponent(tr))
		tr.SetPosition(mgl32.Vec3{0, 0, z})
	}
	r.storage.Spawn("NoTransform", nil, false)
	r.editor.Scheduler.Once(16)

	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(60), 4.0/3.0, 0.1, 100)

	x, y, ok := editor.WorldToScreen(proj.Mul4(view), mgl32.Vec3{}, 800, 600)
	require.True(t, ok)
	assert.InDelta(t, 400, x, 0.01)
	assert.InDelta(t, 300, y, 0.01)
	_, _, ok = editor.WorldToScreen(proj.Mul4(view), mgl32.Vec3{0, 0, 20}, 800, 600)
	assert.False(t, ok)

	ray, ok := editor.ScreenRay(view, proj, 400, 300, 800, 600)
	require.True(t, ok)
	assert.InDelta(t, -1, ray.Dir.Z(), 1e-3)

	picked, ok := editor.Pick(r.storage, ray)
	require.True(t, ok)
	assert.Same(t, near, picked)

	r.storage.Destroy(near.ID())
	picked, ok = editor.Pick(r.storage, ray)
	require.True(t, ok)
	assert.Same(t, far, picked)

	// The top left corner looks past every entity.
	ray, ok = editor.ScreenRay(view, proj, 0, 0, 800, 600)
	require.True(t, ok)
	_, ok = editor.Pick(r.storage, ray)
	assert.False(t, ok)
}

func TestRayIntersect(t *testing.T) {
	_, ok := editor.WorldBounds(nil)
	assert.False(t, ok)

	ray := editor.Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, -1}}
	r := newRig(t)
	e := r.storage.Spawn("Box", nil, false)
	tr, err := component.NewTransform([]byte(`{"position": [0, 0, 2], "scale": [2, 2, 2]}`))
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(tr))

	bounds, ok := editor.WorldBounds(e)
	require.True(t, ok)
	assert.InDelta(t, 1, bounds.Min.Z(), 1e-5)
	assert.InDelta(t, 3, bounds.Max.Z(), 1e-5)

	d, ok := ray.Intersect(bounds)
	require.True(t, ok)
	assert.InDelta(t, 7, d, 1e-5)

	_, ok = editor.Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, 1}}.Intersect(bounds)
	assert.False(t, ok)
}

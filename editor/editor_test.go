package editor_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/level"
	"github.com/plus3/rtx/render"
	"github.com/plus3/rtx/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sandbox = `{
	"name": "Sandbox",
	"camera": "Alice/Eye",
	"entities": [
		{"name": "Alice",
		 "components": [{"type": "TransformComponent"}, {"type": "TestComponent"}],
		 "children": [{"name": "Eye", "components": [
			{"type": "TransformComponent", "position": [0, 1, 5]}, {"type": "CameraComponent"}
		 ]}]},
		{"name": "Bob", "components": [
			{"type": "TransformComponent", "position": [3, 0, 0]},
			{"type": "PointLightComponent", "range": 4}
		]}
	]
}`

type rig struct {
	fsys     fstest.MapFS
	storage  *ecs.Storage
	factory  *factory.Factory
	events   *event.Manager
	renderer *render.System
	levels   *level.Manager
	editor   *editor.Editor
}

func newRig(t *testing.T) *rig {
	t.Helper()
	logger := zaptest.NewLogger(t)

	fsys := fstest.MapFS{
		"levels/sandbox.json": &fstest.MapFile{Data: []byte(sandbox)},
		"classes/crate.json": &fstest.MapFile{Data: []byte(`{"name": "Crate", "components": [
			{"type": "TransformComponent"}, {"type": "TestComponent"}
		]}`)},
	}
	loader := resource.NewLoader(fsys, logger)
	registry := ecs.NewComponentRegistry()
	component.Register(registry, component.Deps{Loader: loader, Logger: logger})
	registry.Freeze()
	storage := ecs.NewStorage(registry)

	f := factory.New(storage, loader, logger)
	events := event.NewManager(logger)
	renderer := render.NewSystem(render.NewRecordingDevice(1), logger)
	scheduler := ecs.NewScheduler(storage, logger)
	scheduler.Register(&component.TransformSystem{})
	scheduler.Register(renderer)
	levels := level.NewManager(f, loader, events, scheduler, renderer, logger)

	ed := editor.New(f, events, scheduler, renderer, levels, logger)
	t.Cleanup(ed.Close)

	return &rig{
		fsys:     fsys,
		storage:  storage,
		factory:  f,
		events:   events,
		renderer: renderer,
		levels:   levels,
		editor:   ed,
	}
}

func TestOpenEntityEvent(t *testing.T) {
	r := newRig(t)
	_, err := r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)

	bob, ok := r.storage.Find("Bob")
	require.True(t, ok)

	_, ok = r.editor.Opened()
	assert.False(t, ok)

	r.events.Call(editor.EventOpenEntity, editor.Origin, event.Entity(bob.ID()))
	opened, ok := r.editor.Opened()
	require.True(t, ok)
	assert.Same(t, bob, opened)

	// Payloads that are not entities are ignored.
	r.events.Call(editor.EventMouseSelectEntity, editor.Origin, event.String("Bob"))
	opened, _ = r.editor.Opened()
	assert.Same(t, bob, opened)

	r.storage.Destroy(bob.ID())
	_, ok = r.editor.Opened()
	assert.False(t, ok)

	// The stale handle was dropped, so a reused slot is not opened by accident.
	r.storage.Spawn("Carol", nil, false)
	_, ok = r.editor.Opened()
	assert.False(t, ok)
}

func TestEditorCameraSurvivesLevelLoad(t *testing.T) {
	r := newRig(t)

	cam, err := r.editor.CreateCamera()
	require.NoError(t, err)
	assert.True(t, cam.EditorOnly())
	assert.Equal(t, cam.ID(), r.renderer.Camera())

	again, err := r.editor.CreateCamera()
	require.NoError(t, err)
	assert.Same(t, cam, again)

	_, err = r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)
	assert.Equal(t, cam.ID(), r.renderer.Camera())

	// Editor-only entities are not gameplay entities.
	_, ok := r.storage.Find("EditorCamera")
	assert.False(t, ok)

	r.levels.Unload()
	assert.True(t, r.storage.Alive(cam.ID()))
}

func TestEditingOperations(t *testing.T) {
	r := newRig(t)
	_, err := r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)
	alice, _ := r.storage.Find("Alice")
	eye, _ := r.storage.Find("Alice/Eye")
	bob, _ := r.storage.Find("Bob")

	dup, err := r.editor.Duplicate(alice.ID())
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID(), dup.ID())
	assert.Equal(t, "Alice", dup.Name())
	require.Len(t, dup.Children(), 1)
	assert.Equal(t, "Eye", dup.Children()[0].Name())
	opened, ok := r.editor.Opened()
	require.True(t, ok)
	assert.Same(t, dup, opened)

	assert.ErrorIs(t, r.editor.Reparent(alice.ID(), eye.ID()), ecs.ErrWouldCreateCycle)
	require.NoError(t, r.editor.Reparent(bob.ID(), eye.ID()))
	assert.Equal(t, "Alice/Eye/Bob", bob.FullName())
	require.NoError(t, r.editor.Reparent(bob.ID(), 0))
	assert.Equal(t, "Bob", bob.FullName())

	assert.True(t, r.editor.Delete(dup.ID()))
	assert.False(t, r.editor.Delete(dup.ID()))
	_, err = r.editor.Duplicate(dup.ID())
	assert.ErrorIs(t, err, ecs.ErrEntityDestroyed)

	crate, err := r.editor.Instantiate("classes/crate.json", alice)
	require.NoError(t, err)
	assert.Equal(t, "Alice/Crate", crate.FullName())
	opened, _ = r.editor.Opened()
	assert.Same(t, crate, opened)
}

func TestSaveLevel(t *testing.T) {
	r := newRig(t)
	_, err := r.editor.CreateCamera()
	require.NoError(t, err)
	_, err = r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)

	bob, _ := r.storage.Find("Bob")
	tr, _ := ecs.GetComponent[*component.Transform](bob)
	tr.SetPosition(mgl32.Vec3{7, 0, 0})

	var buf bytes.Buffer
	require.NoError(t, r.editor.SaveLevel(&buf))

	var file level.File
	require.NoError(t, json.Unmarshal(buf.Bytes(), &file))
	assert.Equal(t, "Sandbox", file.Name)
	assert.Equal(t, "Alice/Eye", file.Camera)
	require.Len(t, file.Entities, 2)
	assert.Equal(t, "Alice", file.Entities[0].Name)
	assert.Equal(t, "Bob", file.Entities[1].Name)

	// The saved file loads back with the edit applied.
	r.fsys["levels/saved.json"] = &fstest.MapFile{Data: buf.Bytes()}
	_, err = r.levels.Load("levels/saved.json")
	require.NoError(t, err)
	bob, ok := r.storage.Find("Bob")
	require.True(t, ok)
	tr, _ = ecs.GetComponent[*component.Transform](bob)
	assert.Equal(t, mgl32.Vec3{7, 0, 0}, tr.Position())
	_, ok = r.storage.Find("Alice/Eye")
	assert.True(t, ok)
}

func TestHierarchy(t *testing.T) {
	r := newRig(t)
	_, err := r.editor.CreateCamera()
	require.NoError(t, err)
	_, err = r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)

	names := func(rows []editor.Row) []string {
		var out []string
		for _, row := range rows {
			out = append(out, row.FullName)
		}
		return out
	}

	rows := editor.Hierarchy(r.storage, editor.HierarchyOptions{})
	assert.Equal(t, []string{"Alice", "Alice/Eye", "Bob"}, names(rows))
	assert.Equal(t, 0, rows[0].Depth)
	assert.Equal(t, 1, rows[1].Depth)
	assert.Equal(t, 1, rows[0].Children)
	assert.Equal(t, []string{"TransformComponent", "TestComponent"}, rows[0].Components)

	rows = editor.Hierarchy(r.storage, editor.HierarchyOptions{ShowEditorOnly: true})
	assert.Equal(t, []string{"EditorCamera", "Alice", "Alice/Eye", "Bob"}, names(rows))
	assert.True(t, rows[0].EditorOnly)

	// A matching child keeps its ancestors.
	rows = editor.Hierarchy(r.storage, editor.HierarchyOptions{Filter: "EYE"})
	assert.Equal(t, []string{"Alice", "Alice/Eye"}, names(rows))

	rows = editor.Hierarchy(r.storage, editor.HierarchyOptions{Filter: "pointlight"})
	assert.Equal(t, []string{"Bob"}, names(rows))

	bob, _ := r.storage.Find("Bob")
	light, _ := ecs.GetComponent[*component.PointLight](bob)
	ecs.Disable(light)
	rows = editor.Hierarchy(r.storage, editor.HierarchyOptions{Filter: "bob"})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Disabled)
}

func TestMatchAndPools(t *testing.T) {
	r := newRig(t)
	_, err := r.editor.CreateCamera()
	require.NoError(t, err)
	_, err = r.levels.Load("levels/sandbox.json")
	require.NoError(t, err)

	var matched []string
	for _, e := range editor.Match(r.storage, []string{"TransformComponent", "CameraComponent"}) {
		matched = append(matched, e.FullName())
	}
	assert.ElementsMatch(t, []string{"EditorCamera", "Alice/Eye"}, matched)
	assert.Empty(t, editor.Match(r.storage, []string{"TransformComponent", "NoSuchComponent"}))
	assert.Empty(t, editor.Match(r.storage, nil))

	pools := r.storage.CollectStats().PoolBreakdown
	editor.SortPools(pools, editor.PoolByCount, false)
	assert.Equal(t, "TransformComponent", pools[0].Name)
	assert.Equal(t, 4, pools[0].ComponentCount)

	editor.SortPools(pools, editor.PoolByName, true)
	assert.Equal(t, "CameraComponent", pools[0].Name)
	assert.Equal(t, "TransformComponent", pools[len(pools)-1].Name)
}

package level_test

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/level"
	"github.com/plus3/rtx/resource"
	"github.com/plus3/rtx/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const greeter = `
function onBegin()
	local other = RTX.Entity.find("Bob")
	RTX.Events.call("Trace", "begin:" .. entity:getName() .. ":" .. tostring(other ~= nil))
	RTX.Factory.createFromClass("classes/crate.json", entity)
end

function onUpdate(dt)
	RTX.Events.defer("Tick", dt)
end

function onEnd()
	RTX.Events.call("Trace", "end:" .. entity:getName())
end
`

const sandbox = `{
	"name": "Sandbox",
	"camera": "Alice/Eye",
	"entities": [
		{"name": "Alice",
		 "components": [{"type": "ScriptComponent", "script": "scripts/greeter.lua"}],
		 "children": [{"name": "Eye", "components": [
			{"type": "TransformComponent"}, {"type": "CameraComponent"}
		 ]}]},
		{"name": "Bob",
		 "components": [{"type": "ScriptComponent", "script": "scripts/greeter.lua"}]}
	]
}`

type cameraSpy struct{ ids []ecs.EntityId }

func (c *cameraSpy) SetCamera(id ecs.EntityId) { c.ids = append(c.ids, id) }

type rig struct {
	fsys    fstest.MapFS
	storage *ecs.Storage
	events  *event.Manager
	manager *level.Manager
	camera  *cameraSpy
	logs    *observer.ObservedLogs
	trace   []string
	ticks   int
}

func newRig(t *testing.T) *rig {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	fsys := fstest.MapFS{
		"levels/sandbox.json": &fstest.MapFile{Data: []byte(sandbox)},
		"levels/broken.json": &fstest.MapFile{Data: []byte(`{"name": "Broken", "entities": [
			{"name": "Fine", "components": [{"type": "TestComponent"}]},
			{"name": "Bad", "components": [{"type": "MissingComponent"}]}
		]}`)},
		"levels/lost.json": &fstest.MapFile{Data: []byte(`{"name": "Lost", "camera": "Nobody", "entities": []}`)},
		"scripts/greeter.lua": &fstest.MapFile{Data: []byte(greeter)},
		"classes/crate.json":  &fstest.MapFile{Data: []byte(`{"name": "Crate", "components": [{"type": "TestComponent"}]}`)},
		"classes/drone.json": &fstest.MapFile{Data: []byte(`{"name": "Drone", "components": [
			{"type": "ScriptComponent", "script": "scripts/drone.lua"}
		]}`)},
		"levels/spawner.json": &fstest.MapFile{Data: []byte(`{"name": "Spawner", "entities": [
			{"name": "Hive", "components": [{"type": "ScriptComponent", "script": "scripts/hive.lua"}]}
		]}`)},
		"scripts/hive.lua": &fstest.MapFile{Data: []byte(`
function onBegin()
	RTX.Factory.createFromClass("classes/crate.json")
	RTX.Factory.createFromClass("classes/drone.json")
end
`)},
		"scripts/drone.lua": &fstest.MapFile{Data: []byte(`
function onEnd()
	RTX.Events.call("Trace", "end:" .. entity:getName())
end
`)},
	}
	loader := resource.NewLoader(fsys, logger)
	events := event.NewManager(logger)

	bindings := &script.Bindings{Events: events, Loader: loader, Logger: logger}
	schema, err := script.NewEngineSchema(bindings)
	require.NoError(t, err)
	interp, err := script.NewInterpreter(schema, logger)
	require.NoError(t, err)
	t.Cleanup(interp.Close)

	registry := ecs.NewComponentRegistry()
	component.Register(registry, component.Deps{Loader: loader, Logger: logger})
	script.Register(registry, &script.Runtime{Interp: interp, Events: events, Loader: loader, Logger: logger})
	registry.Freeze()
	storage := ecs.NewStorage(registry)

	f := factory.New(storage, loader, logger)
	bindings.Storage = storage
	bindings.Factory = f

	scheduler := ecs.NewScheduler(storage, logger)
	scheduler.Register(&component.TransformSystem{})
	scheduler.Register(script.System{})

	r := &rig{fsys: fsys, storage: storage, events: events, camera: &cameraSpy{}, logs: logs}
	r.manager = level.NewManager(f, loader, events, scheduler, r.camera, logger)

	events.Subscribe("Trace", "test", func(e *event.Event) {
		s, _ := e.Payload().AsString()
		r.trace = append(r.trace, s)
	})
	events.Subscribe(level.EventLoaded, "test", func(e *event.Event) {
		r.trace = append(r.trace, fmt.Sprintf("loaded:%v", e.Payload()))
	})
	events.Subscribe(level.EventUnloaded, "test", func(e *event.Event) {
		r.trace = append(r.trace, fmt.Sprintf("unloaded:%v", e.Payload()))
	})
	events.Subscribe("Tick", "test", func(*event.Event) { r.ticks++ })
	return r
}

func TestLoadBeginsAfterEverythingIsBuilt(t *testing.T) {
	r := newRig(t)

	lvl, err := r.manager.Load("./levels/sandbox.json")
	require.NoError(t, err)
	assert.Equal(t, "Sandbox", lvl.Name)
	assert.Equal(t, "levels/sandbox.json", lvl.Path)
	assert.Len(t, lvl.Entities, 2)
	assert.Same(t, lvl, r.manager.Current())

	assert.Equal(t, []string{"begin:Alice:true", "begin:Bob:true", `loaded:"Sandbox"`}, r.trace)

	_, ok := r.storage.Find("Alice/Crate")
	assert.True(t, ok)
	_, ok = r.storage.Find("Bob/Crate")
	assert.True(t, ok)

	eye, ok := r.storage.Find("Alice/Eye")
	require.True(t, ok)
	assert.Equal(t, []ecs.EntityId{eye.ID()}, r.camera.ids)
	assert.Equal(t, eye.ID(), lvl.Camera)
}

func TestUpdateDispatchesDeferredEvents(t *testing.T) {
	r := newRig(t)
	_, err := r.manager.Load("levels/sandbox.json")
	require.NoError(t, err)

	r.manager.Update(16)
	assert.Equal(t, 2, r.ticks)
	assert.Zero(t, r.events.Pending())

	r.manager.Update(16)
	assert.Equal(t, 4, r.ticks)
}

func TestUnloadEndsAndDestroys(t *testing.T) {
	r := newRig(t)
	lvl, err := r.manager.Load("levels/sandbox.json")
	require.NoError(t, err)
	r.trace = nil

	r.manager.Unload()
	assert.Equal(t, []string{"end:Alice", "end:Bob", `unloaded:"Sandbox"`}, r.trace)
	assert.Nil(t, r.manager.Current())
	assert.Zero(t, r.storage.Len())
	for _, id := range lvl.Entities {
		assert.False(t, r.storage.Alive(id))
	}

	r.trace = nil
	r.manager.Unload()
	assert.Empty(t, r.trace)
}

func TestUnloadDestroysRuntimeSpawns(t *testing.T) {
	r := newRig(t)
	gizmo := r.storage.Spawn("Gizmo", nil, true)

	lvl, err := r.manager.Load("levels/spawner.json")
	require.NoError(t, err)
	require.Len(t, lvl.Entities, 1)
	crate, ok := r.storage.Find("Crate")
	require.True(t, ok)
	drone, ok := r.storage.Find("Drone")
	require.True(t, ok)
	r.trace = nil

	r.manager.Unload()
	assert.Equal(t, []string{"end:Drone", `unloaded:"Spawner"`}, r.trace)
	assert.False(t, r.storage.Alive(crate.ID()))
	assert.False(t, r.storage.Alive(drone.ID()))
	assert.True(t, r.storage.Alive(gizmo.ID()), "editor-only entities outlive the level")
	assert.Equal(t, 1, r.storage.Len())
}

func TestLoadReplacesCurrentLevel(t *testing.T) {
	r := newRig(t)
	_, err := r.manager.Load("levels/sandbox.json")
	require.NoError(t, err)
	r.trace = nil

	_, err = r.manager.Load("levels/lost.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"end:Alice", "end:Bob", `unloaded:"Sandbox"`, `loaded:"Lost"`}, r.trace)
	assert.Zero(t, r.storage.Len())
	assert.Equal(t, 1, r.logs.FilterMessage("level camera not found").Len())
}

func TestLoadFailureRollsBack(t *testing.T) {
	r := newRig(t)

	_, err := r.manager.Load("levels/broken.json")
	assert.ErrorIs(t, err, ecs.ErrUnknownComponentType)
	assert.Nil(t, r.manager.Current())
	assert.Zero(t, r.storage.Len())
	assert.Empty(t, r.trace)

	_, err = r.manager.Load("levels/nowhere.json")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	r.fsys["levels/garbage.json"] = &fstest.MapFile{Data: []byte(`{"entities": 3}`)}
	_, err = r.manager.Load("levels/garbage.json")
	assert.ErrorIs(t, err, ecs.ErrMalformedDefinition)
}

func TestReload(t *testing.T) {
	r := newRig(t)

	_, err := r.manager.Reload()
	assert.ErrorIs(t, err, level.ErrNoLevel)

	_, err = r.manager.Load("levels/sandbox.json")
	require.NoError(t, err)

	r.fsys["levels/sandbox.json"] = &fstest.MapFile{
		Data: []byte(`{"name": "Sandbox 2", "entities": [{"name": "Solo", "components": [{"type": "TestComponent"}]}]}`),
	}
	lvl, err := r.manager.Reload()
	require.NoError(t, err)
	assert.Equal(t, "Sandbox 2", lvl.Name)
	assert.Equal(t, 1, r.storage.Len())
	_, ok := r.storage.Find("Solo")
	assert.True(t, ok)
}

// Package editor holds the state behind the level editor: the opened entity, the
// event log, hierarchy rows, component field reflection and viewport picking.
// Package ui draws it with Dear ImGui.
package editor

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/level"
	"github.com/plus3/rtx/render"
	"go.uber.org/zap"
)

// Events the editor listens to. The payload is the entity to open.
const (
	EventOpenEntity        = "OpenEntity"
	EventMouseSelectEntity = "MouseSelectEntity"
	Origin                 = "EditorOpenEntity"
)

const subscriber event.SubscriberID = "editor"

const cameraDefinition = `{
	"name": "EditorCamera",
	"components": [
		{"type": "TransformComponent", "position": [0, 2, 10]},
		{"type": "CameraComponent"}
	]
}`

// Editor is the shared state of every editor panel. It runs on the frame thread.
type Editor struct {
	Storage   *ecs.Storage
	Factory   *factory.Factory
	Events    *event.Manager
	Scheduler *ecs.Scheduler
	Renderer  *render.System
	Levels    *level.Manager
	Logger    *zap.Logger

	Log    *EventLog
	Fields *FieldCache
	Frames *FrameHistory

	opened ecs.EntityId
	camera ecs.EntityId
}

func New(
	f *factory.Factory,
	events *event.Manager,
	scheduler *ecs.Scheduler,
	renderer *render.System,
	levels *level.Manager,
	logger *zap.Logger,
) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ed := &Editor{
		Storage:   f.Storage(),
		Factory:   f,
		Events:    events,
		Scheduler: scheduler,
		Renderer:  renderer,
		Levels:    levels,
		Logger:    logger.Named("editor"),
		Log:       NewEventLog(256),
		Fields:    NewFieldCache(),
		Frames:    NewFrameHistory(120),
	}

	events.Observe(ed.Log.Record)
	open := func(e *event.Event) {
		if id, ok := e.Payload().AsEntity(); ok {
			ed.Open(id)
		}
	}
	events.Subscribe(EventOpenEntity, subscriber, open)
	events.Subscribe(EventMouseSelectEntity, subscriber, open)
	events.Subscribe(level.EventLoaded, subscriber, func(*event.Event) {
		if ed.Storage.Alive(ed.camera) {
			ed.Renderer.SetCamera(ed.camera)
		}
	})
	return ed
}

// Close drops the editor's subscriptions.
func (ed *Editor) Close() {
	ed.Events.UnsubscribeAll(subscriber)
}

// Open makes id the entity shown by the inspector.
func (ed *Editor) Open(id ecs.EntityId) {
	ed.opened = id
}

// Opened resolves the opened entity. A destroyed entity is closed.
func (ed *Editor) Opened() (*ecs.Entity, bool) {
	if ed.opened.IsNil() {
		return nil, false
	}
	e, ok := ed.Storage.Resolve(ed.opened)
	if !ok {
		ed.opened = 0
		return nil, false
	}
	return e, true
}

// CreateCamera spawns the editor-only fly camera and makes it the render camera.
// Levels loaded later keep rendering through it.
func (ed *Editor) CreateCamera() (*ecs.Entity, error) {
	if e, ok := ed.Storage.Resolve(ed.camera); ok {
		return e, nil
	}
	e, err := ed.Factory.CreateEntityFromJSON([]byte(cameraDefinition), nil, true)
	if err != nil {
		return nil, fmt.Errorf("create editor camera: %w", err)
	}
	ed.camera = e.ID()
	ed.Renderer.SetCamera(e.ID())
	return e, nil
}

// Camera returns the editor camera handle, which may be nil or stale.
func (ed *Editor) Camera() ecs.EntityId { return ed.camera }

// Instantiate creates an entity from a class file under parent and opens it.
func (ed *Editor) Instantiate(class string, parent *ecs.Entity) (*ecs.Entity, error) {
	e, err := ed.Factory.CreateEntityFromClass(class, parent, false)
	if err != nil {
		return nil, err
	}
	ed.Logger.Info("entity created", zap.String("class", class), zap.String("entity", e.FullName()))
	ed.Events.Call(EventOpenEntity, Origin, event.Entity(e.ID()))
	return e, nil
}

// Duplicate copies the entity next to itself and opens the copy.
func (ed *Editor) Duplicate(id ecs.EntityId) (*ecs.Entity, error) {
	e, ok := ed.Storage.Resolve(id)
	if !ok {
		return nil, ecs.ErrEntityDestroyed
	}
	dup, err := ed.Factory.Copy(e, e.Parent())
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", e.FullName(), err)
	}
	ed.Open(dup.ID())
	return dup, nil
}

// Delete destroys the entity and its subtree.
func (ed *Editor) Delete(id ecs.EntityId) bool {
	e, ok := ed.Storage.Resolve(id)
	if !ok {
		return false
	}
	name := e.FullName()
	if !ed.Storage.Destroy(id) {
		return false
	}
	ed.Logger.Info("entity deleted", zap.String("entity", name))
	return true
}

// Reparent moves the entity under parent; a nil parent handle means the root.
func (ed *Editor) Reparent(id, parent ecs.EntityId) error {
	e, ok := ed.Storage.Resolve(id)
	if !ok {
		return ecs.ErrEntityDestroyed
	}
	target := ed.Storage.Root()
	if !parent.IsNil() {
		if target, ok = ed.Storage.Resolve(parent); !ok {
			return ecs.ErrEntityDestroyed
		}
	}
	return e.Reparent(target)
}

// SaveLevel writes every top-level entity that is not editor-only as a level file.
func (ed *Editor) SaveLevel(w io.Writer) error {
	var file level.File
	if cur := ed.Levels.Current(); cur != nil {
		file.Name = cur.Name
		if cam, ok := ed.Storage.Resolve(cur.Camera); ok {
			file.Camera = cam.FullName()
		}
	}
	file.Entities = []factory.Definition{}
	for _, e := range ed.Storage.Root().Children() {
		if e.EditorOnly() {
			continue
		}
		def, err := ed.Factory.Definition(e)
		if err != nil {
			return fmt.Errorf("save %s: %w", e.FullName(), err)
		}
		file.Entities = append(file.Entities, *def)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("save level: %w", err)
	}
	ed.Logger.Info("level saved", zap.String("level", file.Name), zap.Int("entities", len(file.Entities)))
	return nil
}

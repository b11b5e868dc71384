// Package level loads level files into a storage and tears them down again.
package level

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/factory"
	"github.com/plus3/rtx/resource"
	"github.com/plus3/rtx/script"
	"go.uber.org/zap"
)

// Events called by the manager, with the level name as payload.
const (
	EventLoaded   = "LevelLoaded"
	EventUnloaded = "LevelUnloaded"
	Origin        = "LevelManager"
)

var ErrNoLevel = errors.New("no level loaded")

// File is the on-disk level:
//
//	{"name": "Sandbox", "camera": "Player/Camera", "entities": [definition...]}
type File struct {
	Name     string               `json:"name"`
	Camera   string               `json:"camera,omitempty"`
	Entities []factory.Definition `json:"entities"`
}

// CameraTarget receives the level's camera entity.
type CameraTarget interface {
	SetCamera(id ecs.EntityId)
}

// Level is a loaded level. Entities holds handles to the top-level entities built
// from its file; entities spawned at runtime are not tracked here.
type Level struct {
	Name     string
	Path     string
	Entities []ecs.EntityId
	Camera   ecs.EntityId
}

// Manager owns the lifetime of the current level.
type Manager struct {
	storage   *ecs.Storage
	factory   *factory.Factory
	loader    *resource.Loader
	events    *event.Manager
	scheduler *ecs.Scheduler
	camera    CameraTarget
	logger    *zap.Logger

	current *Level
}

// NewManager creates a manager and hooks deferred event dispatch into the end of every frame.
func NewManager(
	f *factory.Factory,
	loader *resource.Loader,
	events *event.Manager,
	scheduler *ecs.Scheduler,
	camera CameraTarget,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		storage:   f.Storage(),
		factory:   f,
		loader:    loader,
		events:    events,
		scheduler: scheduler,
		camera:    camera,
		logger:    logger,
	}
	scheduler.AfterFrame(func(*ecs.UpdateFrame) {
		events.DispatchDeferred()
	})
	return m
}

// Current returns the loaded level, nil when none is loaded.
func (m *Manager) Current() *Level { return m.current }

// Load replaces the current level with the one at path. Every entity is built
// before any script's onBegin runs; LevelLoaded is called last. If any entity
// fails to build, the entities already built are destroyed and nothing is begun.
func (m *Manager) Load(path string) (*Level, error) {
	if m.current != nil {
		m.Unload()
	}
	path = resource.Normalize(path)

	text, err := m.loader.LoadText(path)
	if err != nil {
		return nil, fmt.Errorf("level %q: %w", path, err)
	}
	var file File
	if err := json.Unmarshal([]byte(text.String()), &file); err != nil {
		return nil, fmt.Errorf("level %q: %w: %v", path, ecs.ErrMalformedDefinition, err)
	}

	lvl := &Level{Name: file.Name, Path: path}
	for i := range file.Entities {
		e, err := m.factory.CreateEntity(&file.Entities[i], nil, false)
		if err != nil {
			for _, id := range lvl.Entities {
				m.storage.Destroy(id)
			}
			return nil, fmt.Errorf("level %q: entity %d: %w", path, i, err)
		}
		lvl.Entities = append(lvl.Entities, e.ID())
	}

	if file.Camera != "" {
		if e, ok := m.storage.Find(file.Camera); ok {
			lvl.Camera = e.ID()
		} else {
			m.logger.Warn("level camera not found", zap.String("level", path), zap.String("camera", file.Camera))
		}
	}
	if m.camera != nil && !lvl.Camera.IsNil() {
		m.camera.SetCamera(lvl.Camera)
	}

	m.current = lvl
	for _, s := range m.levelScripts() {
		s.OnBegin()
	}
	m.logger.Info("level loaded",
		zap.String("level", lvl.Name),
		zap.String("path", path),
		zap.Int("entities", m.storage.Len()),
	)
	m.events.Call(EventLoaded, Origin, event.String(lvl.Name))
	return lvl, nil
}

// Update advances the level by one frame.
func (m *Manager) Update(deltaMs float32) {
	m.scheduler.Once(deltaMs)
}

// Unload tears down the whole gameplay tree: every script under a non-editor-only
// top-level entity gets onEnd, then those entities are destroyed and LevelUnloaded
// is called. Entities spawned at runtime go with the level; editor-only entities stay.
func (m *Manager) Unload() {
	lvl := m.current
	if lvl == nil {
		return
	}
	for _, s := range script.Scripts(m.storage) {
		s.OnEnd()
	}
	for _, e := range slices.Clone(m.storage.Root().Children()) {
		if !e.EditorOnly() {
			m.storage.Destroy(e.ID())
		}
	}
	m.current = nil
	m.logger.Info("level unloaded", zap.String("level", lvl.Name))
	m.events.Call(EventUnloaded, Origin, event.String(lvl.Name))
}

// Reload unloads the current level, rereads its file and loads it again.
func (m *Manager) Reload() (*Level, error) {
	if m.current == nil {
		return nil, ErrNoLevel
	}
	path := m.current.Path
	m.Unload()
	if m.loader.Loaded(path) {
		if err := m.loader.Reload(path); err != nil {
			return nil, err
		}
	}
	return m.Load(path)
}

// levelScripts returns the script components of the entities built from the current
// level file, in hierarchy order.
func (m *Manager) levelScripts() []*script.ScriptComponent {
	if m.current == nil {
		return nil
	}
	owned := make(map[ecs.EntityId]bool, len(m.current.Entities))
	for _, id := range m.current.Entities {
		owned[id] = true
	}
	var out []*script.ScriptComponent
	for _, s := range script.Scripts(m.storage) {
		e := s.OwnerEntity()
		for e != nil && !owned[e.ID()] {
			e = e.Parent()
		}
		if e != nil {
			out = append(out, s)
		}
	}
	return out
}

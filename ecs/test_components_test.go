package ecs_test

import (
	"encoding/json"

	"github.com/plus3/rtx/ecs"
)

// Common test component types
const (
	PositionID ecs.ComponentID = iota + 1
	VelocityID
	HealthID
	LabelID
	TrackerID
)

type Position struct {
	ecs.BaseComponent
	X, Y float32
}

func (*Position) ComponentID() ecs.ComponentID { return PositionID }
func (*Position) Name() string                 { return "Position" }
func (p *Position) Serialize() any {
	return map[string]any{"type": "Position", "x": p.X, "y": p.Y}
}

type Velocity struct {
	ecs.BaseComponent
	DX, DY float32
}

func (*Velocity) ComponentID() ecs.ComponentID { return VelocityID }
func (*Velocity) Name() string                 { return "Velocity" }
func (v *Velocity) Serialize() any {
	return map[string]any{"type": "Velocity", "dx": v.DX, "dy": v.DY}
}

func (v *Velocity) OnUpdate(deltaMs float32) {
	if p, ok := ecs.GetComponent[*Position](v.OwnerEntity()); ok {
		p.X += v.DX * deltaMs
		p.Y += v.DY * deltaMs
	}
}

type Health struct {
	ecs.BaseComponent
	Current int
	Max     int
}

func (*Health) ComponentID() ecs.ComponentID { return HealthID }
func (*Health) Name() string                 { return "Health" }
func (h *Health) Serialize() any {
	return map[string]any{"type": "Health", "current": h.Current, "max": h.Max}
}

type Label struct {
	ecs.BaseComponent
	Value string
}

func (*Label) ComponentID() ecs.ComponentID { return LabelID }
func (*Label) Name() string                 { return "Label" }
func (l *Label) Serialize() any {
	return map[string]any{"type": "Label", "value": l.Value}
}

// Tracker appends its tag to a shared log when it is torn down.
type Tracker struct {
	ecs.BaseComponent
	Tag string
	Log *[]string
}

func (*Tracker) ComponentID() ecs.ComponentID { return TrackerID }
func (*Tracker) Name() string                 { return "Tracker" }
func (t *Tracker) Serialize() any             { return map[string]any{"type": "Tracker", "tag": t.Tag} }
func (t *Tracker) OnDestroy() {
	if t.Log != nil {
		*t.Log = append(*t.Log, t.Tag)
	}
}

func decodeInto[T any](v *T) func(data []byte) (*T, error) {
	return func(data []byte) (*T, error) {
		out := new(T)
		*out = *v
		if len(data) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent(registry, PositionID, "Position", decodeInto(&Position{}))
	ecs.RegisterComponent(registry, VelocityID, "Velocity", decodeInto(&Velocity{}))
	ecs.RegisterComponent(registry, HealthID, "Health", decodeInto(&Health{Current: 100, Max: 100}))
	ecs.RegisterComponent(registry, LabelID, "Label", decodeInto(&Label{}))
	ecs.RegisterComponent(registry, TrackerID, "Tracker", decodeInto(&Tracker{}))
	return registry
}

// spawn creates an entity under the root with the given components.
func spawn(storage *ecs.Storage, name string, components ...ecs.Component) *ecs.Entity {
	e := storage.Spawn(name, nil, false)
	for _, c := range components {
		if err := e.AddComponent(c); err != nil {
			panic(err)
		}
	}
	return e
}

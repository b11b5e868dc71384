package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
)

// TransformSystem recomputes world matrices parent-first, so a child always sees
// its parent's matrix from the same frame. Entities without a transform pass their
// parent's matrix through to their children.
type TransformSystem struct {
	Updated int
}

func (s *TransformSystem) Execute(frame *ecs.UpdateFrame) {
	s.Updated = 0
	root := frame.Storage.Root()
	for _, child := range root.Children() {
		s.walk(child, mgl32.Ident4())
	}
}

func (s *TransformSystem) walk(e *ecs.Entity, parent mgl32.Mat4) {
	world := parent
	if t, ok := ecs.GetComponent[*Transform](e); ok {
		t.updateWorld(parent)
		world = t.world
		s.Updated++
	}
	for _, child := range e.Children() {
		s.walk(child, world)
	}
}

// UpdateSystem calls OnUpdate on every enabled Updater component of gameplay
// entities, by component ID. Script components are driven by their own system.
type UpdateSystem struct {
	skip map[ecs.ComponentID]bool
	ids  []ecs.ComponentID
}

// NewUpdateSystem creates an update system that ignores the listed component IDs.
func NewUpdateSystem(registry *ecs.ComponentRegistry, skip ...ecs.ComponentID) *UpdateSystem {
	s := &UpdateSystem{skip: make(map[ecs.ComponentID]bool, len(skip))}
	for _, id := range skip {
		s.skip[id] = true
	}
	for _, ct := range registry.Types() {
		if !s.skip[ct.ID] {
			s.ids = append(s.ids, ct.ID)
		}
	}
	return s
}

func (s *UpdateSystem) Execute(frame *ecs.UpdateFrame) {
	for _, id := range s.ids {
		for c := range frame.Storage.ComponentsByID(id) {
			u, ok := c.(ecs.Updater)
			if !ok || !ecs.IsEnabled(c) {
				continue
			}
			e, ok := frame.Storage.Resolve(ecs.OwnerOf(c))
			if !ok || e.EditorOnly() {
				continue
			}
			u.OnUpdate(frame.DeltaMs)
		}
	}
}

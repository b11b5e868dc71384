package ecs

import (
	"iter"
	"reflect"
	"strings"

	"github.com/kamstrup/intmap"
)

// RootName is the name of the entity every storage creates as the top of its hierarchy.
const RootName = "Root"

type entitySlot struct {
	entity     *Entity
	generation uint32
}

// Storage is the arena that owns every entity, its components and the per-type
// component pools. Entities are addressed by generation-checked EntityId handles,
// so a handle to a destroyed entity fails to resolve instead of dangling.
type Storage struct {
	registry   *ComponentRegistry
	slots      []entitySlot
	free       []uint32
	pools      *intmap.Map[ComponentID, *componentPool]
	singletons map[reflect.Type]*singletonEntry
	rootId     EntityId
	live       int
	version    uint64
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	s := &Storage{
		registry:   registry,
		slots:      make([]entitySlot, 1, 64),
		pools:      intmap.New[ComponentID, *componentPool](32),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
	root := s.allocate(RootName, false)
	s.rootId = root.id
	return s
}

// Registry returns the component registry the storage was created with.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// Root returns the hierarchy root.
func (s *Storage) Root() *Entity {
	return s.slots[s.rootId.Index()].entity
}

func (s *Storage) allocate(name string, editorOnly bool) *Entity {
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.slots))
		s.slots = append(s.slots, entitySlot{generation: 1})
	}

	slot := &s.slots[index]
	e := newEntity(s, NewEntityId(index, slot.generation), name, editorOnly)
	slot.entity = e
	s.live++
	s.version++
	return e
}

// Spawn creates an empty entity under parent. A nil parent means the root.
func (s *Storage) Spawn(name string, parent *Entity, editorOnly bool) *Entity {
	if parent == nil || parent.destroyed {
		parent = s.Root()
	}
	e := s.allocate(name, editorOnly)
	e.parent = parent.id
	parent.children = append(parent.children, e)
	return e
}

// Resolve returns the entity addressed by id if it is still alive.
func (s *Storage) Resolve(id EntityId) (*Entity, bool) {
	index := id.Index()
	if index == 0 || int(index) >= len(s.slots) {
		return nil, false
	}
	slot := s.slots[index]
	if slot.entity == nil || slot.generation != id.Generation() {
		return nil, false
	}
	return slot.entity, true
}

// Alive reports whether id still addresses a live entity.
func (s *Storage) Alive(id EntityId) bool {
	_, ok := s.Resolve(id)
	return ok
}

// Destroy destroys the entity addressed by id: children first (post-order), then its
// components in reverse declaration order, then it is detached from its parent.
// Destroying the root destroys every other entity but keeps the root itself.
func (s *Storage) Destroy(id EntityId) bool {
	e, ok := s.Resolve(id)
	if !ok {
		return false
	}
	if id == s.rootId {
		s.Clear()
		return true
	}
	parent := e.Parent()
	s.destroy(e)
	if parent != nil {
		parent.detachChild(e)
	}
	return true
}

func (s *Storage) destroy(e *Entity) {
	for len(e.children) > 0 {
		child := e.children[len(e.children)-1]
		e.children = e.children[:len(e.children)-1]
		s.destroy(child)
	}

	for i := len(e.order) - 1; i >= 0; i-- {
		if c, ok := e.components.Get(e.order[i]); ok {
			e.releaseComponent(c)
		}
	}
	e.components.Clear()
	e.order = nil
	e.destroyed = true

	slot := &s.slots[e.id.Index()]
	slot.entity = nil
	slot.generation++
	if slot.generation == 0 {
		slot.generation = 1
	}
	s.free = append(s.free, e.id.Index())
	s.live--
	s.version++
}

// Clear destroys every entity except the root.
func (s *Storage) Clear() {
	root := s.Root()
	for len(root.children) > 0 {
		child := root.children[len(root.children)-1]
		root.children = root.children[:len(root.children)-1]
		s.destroy(child)
	}
}

// Find returns the gameplay entity with the given full name. Editor-only entities are skipped.
func (s *Storage) Find(fullName string) (*Entity, bool) {
	current := s.Root()
	for _, part := range strings.Split(fullName, "/") {
		var next *Entity
		for _, child := range current.children {
			if child.name == part && !child.editorOnly {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, current != s.Root()
}

// Entities yields every live entity except the root in slot order.
func (s *Storage) Entities() iter.Seq[*Entity] {
	return func(yield func(*Entity) bool) {
		for i := 1; i < len(s.slots); i++ {
			e := s.slots[i].entity
			if e == nil || e.id == s.rootId {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of live entities, excluding the root.
func (s *Storage) Len() int {
	return s.live - 1
}

// Version changes whenever an entity or component is added or removed.
func (s *Storage) Version() uint64 {
	return s.version
}

func (s *Storage) pool(id ComponentID) *componentPool {
	p, ok := s.pools.Get(id)
	if !ok {
		p = newComponentPool(id)
		s.pools.Put(id, p)
	}
	return p
}

// ComponentsByID yields every live component with the given ID.
func (s *Storage) ComponentsByID(id ComponentID) iter.Seq[Component] {
	p, ok := s.pools.Get(id)
	if !ok {
		return func(func(Component) bool) {}
	}
	return p.Iter()
}

// CountComponents returns the number of live components with the given ID.
func (s *Storage) CountComponents(id ComponentID) int {
	p, ok := s.pools.Get(id)
	if !ok {
		return 0
	}
	return p.Len()
}

// Compact reorganizes every component pool to eliminate empty slots.
func (s *Storage) Compact() {
	s.pools.ForEach(func(_ ComponentID, p *componentPool) bool {
		p.Compact()
		return true
	})
}

// ComponentsOfType yields every live component of type T, including those on
// editor-only entities. This is the iteration surface used by render systems.
func ComponentsOfType[T Component](s *Storage) iter.Seq[T] {
	id, ok := s.registry.IDOf(reflect.TypeFor[T]())
	if !ok {
		return func(func(T) bool) {}
	}
	return func(yield func(T) bool) {
		for c := range s.ComponentsByID(id) {
			t, ok := c.(T)
			if !ok {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

type ComponentReader interface {
	Resolve(EntityId) (*Entity, bool)
}

// ReadComponent resolves id and returns its component of type T, or the zero value.
func ReadComponent[T Component](reader ComponentReader, id EntityId) (T, bool) {
	var zero T
	e, ok := reader.Resolve(id)
	if !ok {
		return zero, false
	}
	return GetComponent[T](e)
}

package ecs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kamstrup/intmap"
)

// EntityId encodes both the slot generation (upper 32 bits) and the slot index (lower 32 bits).
// Index 0 is never allocated, so the zero EntityId is the nil handle.
type EntityId uint64

// NewEntityId creates an EntityId from a slot index and generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// IsNil reports whether e is the nil handle.
func (e EntityId) IsNil() bool {
	return e.Index() == 0
}

func (e EntityId) String() string {
	if e.IsNil() {
		return "Entity(nil)"
	}
	return fmt.Sprintf("Entity(%d:%d)", e.Index(), e.Generation())
}

// Entity is a named node in the hierarchy. It owns its components and its children.
type Entity struct {
	id         EntityId
	storage    *Storage
	name       string
	fullName   string
	editorOnly bool
	destroyed  bool

	parent   EntityId
	children []*Entity

	components *intmap.Map[ComponentID, Component]
	order      []ComponentID
}

func newEntity(storage *Storage, id EntityId, name string, editorOnly bool) *Entity {
	return &Entity{
		id:         id,
		storage:    storage,
		name:       name,
		editorOnly: editorOnly,
		components: intmap.New[ComponentID, Component](8),
	}
}

// ID returns the generation-checked handle of the entity.
func (e *Entity) ID() EntityId { return e.id }

func (e *Entity) Name() string { return e.name }

// SetName renames the entity and invalidates the cached full names of its subtree.
func (e *Entity) SetName(name string) {
	if e.destroyed {
		return
	}
	e.name = name
	e.invalidateFullName()
}

// FullName returns the slash-joined names of the entity's ancestors (excluding the
// storage root) and the entity itself. The value is cached until a rename or reparent
// anywhere on the ancestor chain.
func (e *Entity) FullName() string {
	if e.fullName != "" || e.destroyed {
		return e.fullName
	}
	parent := e.Parent()
	if parent == nil || parent.id == e.storage.rootId {
		e.fullName = e.name
	} else {
		e.fullName = parent.FullName() + "/" + e.name
	}
	return e.fullName
}

func (e *Entity) invalidateFullName() {
	e.fullName = ""
	for _, child := range e.children {
		child.invalidateFullName()
	}
}

// EditorOnly reports whether the entity is excluded from gameplay lookups and views.
func (e *Entity) EditorOnly() bool { return e.editorOnly }

// Destroyed reports whether the entity has been destroyed.
func (e *Entity) Destroyed() bool { return e.destroyed }

// Storage returns the storage that owns the entity.
func (e *Entity) Storage() *Storage { return e.storage }

// Parent resolves the parent entity, or nil for the root.
func (e *Entity) Parent() *Entity {
	if e.destroyed || e.parent.IsNil() {
		return nil
	}
	parent, ok := e.storage.Resolve(e.parent)
	if !ok {
		return nil
	}
	return parent
}

// Children returns the children in creation order. The slice must not be modified.
func (e *Entity) Children() []*Entity {
	if e.destroyed {
		return nil
	}
	return e.children
}

// IsAncestorOf reports whether e appears on other's parent chain.
func (e *Entity) IsAncestorOf(other *Entity) bool {
	for p := other.Parent(); p != nil; p = p.Parent() {
		if p == e {
			return true
		}
	}
	return false
}

// Reparent moves the entity under newParent. It fails with ErrWouldCreateCycle when
// newParent is the entity itself or one of its descendants.
func (e *Entity) Reparent(newParent *Entity) error {
	if e.destroyed || newParent == nil || newParent.destroyed {
		return ErrEntityDestroyed
	}
	if e.id == e.storage.rootId {
		return fmt.Errorf("%w: root cannot be reparented", ErrWouldCreateCycle)
	}
	for p := newParent; p != nil; p = p.Parent() {
		if p == e {
			return fmt.Errorf("%w: %s under %s", ErrWouldCreateCycle, e.FullName(), newParent.FullName())
		}
	}

	if old := e.Parent(); old != nil {
		old.detachChild(e)
	}
	e.parent = newParent.id
	newParent.children = append(newParent.children, e)
	e.invalidateFullName()
	e.storage.version++
	return nil
}

func (e *Entity) detachChild(child *Entity) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// AddComponent attaches c to the entity. A second component with the same ID fails
// with ErrDuplicateComponentType and leaves the first one untouched.
func (e *Entity) AddComponent(c Component) error {
	if e.destroyed {
		return ErrEntityDestroyed
	}
	id := c.ComponentID()
	if e.components.Has(id) {
		return fmt.Errorf("%w: %s already has %s", ErrDuplicateComponentType, e.FullName(), c.Name())
	}

	b := c.base()
	b.owner = e.id
	b.storage = e.storage

	e.components.Put(id, c)
	e.order = append(e.order, id)
	e.storage.pool(id).Append(c)
	e.storage.version++
	return nil
}

// GetComponent returns the component registered under id. A destroyed entity has no components.
func (e *Entity) GetComponent(id ComponentID) (Component, bool) {
	if e.destroyed {
		return nil, false
	}
	return e.components.Get(id)
}

// HasComponent checks if an entity has a specific component ID
func (e *Entity) HasComponent(id ComponentID) bool {
	return !e.destroyed && e.components.Has(id)
}

// RemoveComponent detaches and tears down the component registered under id.
func (e *Entity) RemoveComponent(id ComponentID) bool {
	if e.destroyed {
		return false
	}
	c, ok := e.components.Get(id)
	if !ok {
		return false
	}
	e.releaseComponent(c)
	e.components.Del(id)
	for i, cid := range e.order {
		if cid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.storage.version++
	return true
}

func (e *Entity) releaseComponent(c Component) {
	if d, ok := c.(Destroyer); ok {
		d.OnDestroy()
	}
	if p, ok := e.storage.pools.Get(c.ComponentID()); ok {
		p.Delete(c.base().poolSlot)
	}
}

// Components returns the components in the order they were added.
func (e *Entity) Components() []Component {
	if e.destroyed {
		return nil
	}
	out := make([]Component, 0, len(e.order))
	for _, id := range e.order {
		if c, ok := e.components.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// GetComponent returns the component of type T attached to e.
func GetComponent[T Component](e *Entity) (T, bool) {
	var zero T
	if e == nil || e.destroyed {
		return zero, false
	}
	id, ok := e.storage.registry.IDOf(reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	c, ok := e.components.Get(id)
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

// Walk visits e and its descendants depth-first, parents before children.
// Returning false from fn skips the subtree.
func (e *Entity) Walk(fn func(*Entity) bool) {
	if e.destroyed || !fn(e) {
		return
	}
	for _, child := range e.children {
		child.Walk(fn)
	}
}

func (e *Entity) String() string {
	if e.destroyed {
		return e.id.String() + " (destroyed)"
	}
	var b strings.Builder
	b.WriteString(e.FullName())
	b.WriteString(" [")
	for i, c := range e.Components() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString("]")
	return b.String()
}

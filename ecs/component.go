package ecs

// ComponentID is the stable discriminator of a concrete component type.
// It is used as the key of an entity's component table and of the storage pools.
type ComponentID uint32

// Component is the polymorphic unit of entity behavior and data.
// Concrete components embed BaseComponent, which supplies the owner handle
// and the enabled/dirty flags.
type Component interface {
	ComponentID() ComponentID
	Name() string

	// Setup is called once after every sibling declared in the same definition
	// has been added to the entity. Returning false disables the component.
	Setup() bool

	// Serialize returns a JSON-marshalable definition of the component,
	// including its "type" field.
	Serialize() any

	base() *BaseComponent
}

// Updater is implemented by components that want a per-frame update hook.
type Updater interface {
	OnUpdate(deltaMs float32)
}

// Destroyer is implemented by components that release resources when they are
// removed from their entity or the entity is destroyed.
type Destroyer interface {
	OnDestroy()
}

// BaseComponent holds the state shared by every component.
type BaseComponent struct {
	owner    EntityId
	storage  *Storage
	poolSlot int
	disabled bool
	dirty    bool
}

func (b *BaseComponent) base() *BaseComponent { return b }

// Setup is the default no-op setup.
func (b *BaseComponent) Setup() bool { return true }

// Owner returns the handle of the owning entity.
func (b *BaseComponent) Owner() EntityId { return b.owner }

// OwnerEntity resolves the owning entity. It returns nil when the component
// has not been attached yet or the owner has been destroyed.
func (b *BaseComponent) OwnerEntity() *Entity {
	if b.storage == nil {
		return nil
	}
	e, ok := b.storage.Resolve(b.owner)
	if !ok {
		return nil
	}
	return e
}

// Storage returns the storage the component is attached to, or nil.
func (b *BaseComponent) Storage() *Storage { return b.storage }

func (b *BaseComponent) Enabled() bool { return !b.disabled }

func (b *BaseComponent) SetEnabled(enabled bool) { b.disabled = !enabled }

func (b *BaseComponent) Dirty() bool { return b.dirty }

func (b *BaseComponent) MarkDirty() { b.dirty = true }

func (b *BaseComponent) ClearDirty() { b.dirty = false }

// IsEnabled reports whether c is enabled.
func IsEnabled(c Component) bool {
	return c.base().Enabled()
}

// Disable switches a component off. The frame loop skips disabled components.
func Disable(c Component) {
	c.base().SetEnabled(false)
}

// OwnerOf returns the owner handle of any component.
func OwnerOf(c Component) EntityId {
	return c.base().owner
}

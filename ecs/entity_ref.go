package ecs

// ComponentRef is a non-owning reference to the component of type T on an entity.
// It stores only the entity handle, so it must be resolved each time it is used;
// resolution fails once the entity is destroyed or the component removed.
type ComponentRef[T Component] struct {
	Entity EntityId
}

// RefTo creates a ComponentRef pointing at e.
func RefTo[T Component](e *Entity) ComponentRef[T] {
	if e == nil {
		return ComponentRef[T]{}
	}
	return ComponentRef[T]{Entity: e.id}
}

// Get resolves the reference against storage.
func (r ComponentRef[T]) Get(storage *Storage) (T, bool) {
	return ReadComponent[T](storage, r.Entity)
}

// Valid reports whether the reference still resolves.
func (r ComponentRef[T]) Valid(storage *Storage) bool {
	_, ok := r.Get(storage)
	return ok
}

// IsNil reports whether the reference was never set.
func (r ComponentRef[T]) IsNil() bool {
	return r.Entity.IsNil()
}

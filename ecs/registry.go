package ecs

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
)

// CreateFunc builds a component from the JSON bytes of one definition entry.
// A nil or empty slice asks for a default-constructed component.
type CreateFunc func(data []byte) (Component, error)

// ComponentType describes one registered component type.
type ComponentType struct {
	ID     ComponentID
	Name   string
	Type   reflect.Type
	Create CreateFunc
}

// ComponentRegistry manages component type registration for an ECS instance.
// It is written once at startup and frozen before the frame loop starts;
// after Freeze it is read-only and needs no locking.
type ComponentRegistry struct {
	byName map[string]*ComponentType
	byID   *intmap.Map[ComponentID, *ComponentType]
	byType map[reflect.Type]*ComponentType
	frozen bool
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byName: make(map[string]*ComponentType),
		byID:   intmap.New[ComponentID, *ComponentType](32),
		byType: make(map[reflect.Type]*ComponentType),
	}
}

// RegisterComponent registers the concrete component type T under a stable ID
// and a definition type name. T is normally a pointer to a struct embedding
// BaseComponent. Registering a second type with the same ID, name or Go type panics.
func RegisterComponent[T Component](r *ComponentRegistry, id ComponentID, name string, create func(data []byte) (T, error)) {
	t := reflect.TypeFor[T]()
	r.register(&ComponentType{
		ID:   id,
		Name: name,
		Type: t,
		Create: func(data []byte) (Component, error) {
			c, err := create(data)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})
}

func (r *ComponentRegistry) register(ct *ComponentType) {
	if r.frozen {
		panic("ecs: component registry is frozen, cannot register " + ct.Name)
	}
	if existing, ok := r.byID.Get(ct.ID); ok {
		panic(fmt.Sprintf("ecs: component id %d already used by %s", ct.ID, existing.Name))
	}
	if _, ok := r.byName[ct.Name]; ok {
		panic("ecs: component name already registered: " + ct.Name)
	}
	if _, ok := r.byType[ct.Type]; ok {
		panic("ecs: component type already registered: " + ct.Type.String())
	}
	r.byID.Put(ct.ID, ct)
	r.byName[ct.Name] = ct
	r.byType[ct.Type] = ct
}

// Freeze marks the registry read-only.
func (r *ComponentRegistry) Freeze() {
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *ComponentRegistry) Frozen() bool {
	return r.frozen
}

// Lookup returns the component type registered under a definition type name.
func (r *ComponentRegistry) Lookup(name string) (*ComponentType, bool) {
	ct, ok := r.byName[name]
	return ct, ok
}

// ByID returns the component type registered under id.
func (r *ComponentRegistry) ByID(id ComponentID) (*ComponentType, bool) {
	return r.byID.Get(id)
}

// IDOf returns the ID registered for a Go type.
func (r *ComponentRegistry) IDOf(t reflect.Type) (ComponentID, bool) {
	ct, ok := r.byType[t]
	if !ok {
		return 0, false
	}
	return ct.ID, true
}

// Types returns every registered component type ordered by ID.
func (r *ComponentRegistry) Types() []*ComponentType {
	types := make([]*ComponentType, 0, r.byID.Len())
	r.byID.ForEach(func(_ ComponentID, ct *ComponentType) bool {
		types = append(types, ct)
		return true
	})
	slices.SortFunc(types, func(a, b *ComponentType) int {
		return int(a.ID) - int(b.ID)
	})
	return types
}

// Create builds a component of the named type from definition bytes.
func (r *ComponentRegistry) Create(name string, data []byte) (Component, error) {
	ct, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponentType, name)
	}
	return ct.Create(data)
}

// IDFor returns the ID registered for T. It panics if T is not registered.
func IDFor[T Component](r *ComponentRegistry) ComponentID {
	id, ok := r.IDOf(reflect.TypeFor[T]())
	if !ok {
		panic("ecs: component type " + reflect.TypeFor[T]().String() + " not registered")
	}
	return id
}

package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

var entityIdType = reflect.TypeFor[EntityId]()

// View joins the components of each matching entity into a struct T. Every field of T
// is a pointer to a registered component type, except an optional EntityId field that
// receives the entity's handle. Named component fields tagged `ecs:"optional"` are set
// to nil when missing; embedded fields are always required. Editor-only entities are
// skipped unless IncludeEditorOnly is set.
type View[T any] struct {
	storage     *Storage
	ids         []ComponentID
	types       []reflect.Type
	optional    []bool
	fieldOffset []uintptr
	idOffset    uintptr
	hasIdField  bool

	includeEditorOnly bool
}

// NewView creates a view over storage.
func NewView[T any](storage *Storage) *View[T] {
	v := &View[T]{}
	v.Init(storage)
	return v
}

// Init resolves T's fields against the storage registry. The Scheduler calls it on Register.
func (v *View[T]) Init(storage *Storage) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v.storage = storage
	v.ids = v.ids[:0]
	v.types = v.types[:0]
	v.optional = v.optional[:0]
	v.fieldOffset = v.fieldOffset[:0]
	v.hasIdField = false

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType == entityIdType {
			v.idOffset = field.Offset
			v.hasIdField = true
			continue
		}

		if fieldType.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		id, ok := storage.registry.IDOf(fieldType)
		if !ok {
			panic("component type " + fieldType.String() + " not registered")
		}

		isOptional := false
		if !field.Anonymous {
			tag := field.Tag.Get("ecs")
			if tag != "" {
				if tag == "optional" {
					isOptional = true
				} else {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
			}
		}

		v.ids = append(v.ids, id)
		v.types = append(v.types, fieldType)
		v.optional = append(v.optional, isOptional)
		v.fieldOffset = append(v.fieldOffset, field.Offset)
	}

	if v.driver() < 0 {
		panic("View struct must have at least one required component field")
	}
}

// IncludeEditorOnly makes the view match editor-only entities too.
func (v *View[T]) IncludeEditorOnly() *View[T] {
	v.includeEditorOnly = true
	return v
}

// driver returns the field index whose pool is iterated: the smallest required pool.
func (v *View[T]) driver() int {
	best, bestLen := -1, 0
	for i, id := range v.ids {
		if v.optional[i] {
			continue
		}
		n := 0
		if v.storage != nil {
			n = v.storage.CountComponents(id)
		}
		if best < 0 || n < bestLen {
			best, bestLen = i, n
		}
	}
	return best
}

// Fill writes the entity's components into ptr, reporting false for a stale handle
// or a missing required component.
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	e, ok := v.storage.Resolve(id)
	if !ok {
		return false
	}
	return v.fill(e, unsafe.Pointer(ptr))
}

func (v *View[T]) fill(e *Entity, structPtr unsafe.Pointer) bool {
	for i, id := range v.ids {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])

		component, ok := e.components.Get(id)
		if !ok {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		// Registered components are always pointer types.
		*(*unsafe.Pointer)(fieldPtr) = reflect.ValueOf(component).UnsafePointer()
	}

	if v.hasIdField {
		*(*EntityId)(unsafe.Pointer(uintptr(structPtr) + v.idOffset)) = e.id
	}
	return true
}

// Get is Fill into a fresh value; nil when the entity does not match.
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// Iter yields every matching entity, walking the smallest required pool.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		driver := v.driver()
		var result T
		resultPtr := unsafe.Pointer(&result)

		for c := range v.storage.ComponentsByID(v.ids[driver]) {
			e, ok := v.storage.Resolve(c.base().owner)
			if !ok {
				continue
			}
			if e.editorOnly && !v.includeEditorOnly {
				continue
			}
			if !v.fill(e, resultPtr) {
				continue
			}
			if !yield(e.id, result) {
				return
			}
		}
	}
}

// Values is Iter without the handles.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Spawn creates a new entity under parent with the non-nil component fields of data
func (v *View[T]) Spawn(name string, parent *Entity, data T) (*Entity, error) {
	structPtr := unsafe.Pointer(&data)

	e := v.storage.Spawn(name, parent, false)
	for i := range v.ids {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		componentPtr := *(*unsafe.Pointer)(fieldPtr)

		if componentPtr == nil {
			if !v.optional[i] {
				v.storage.Destroy(e.id)
				panic("required component is nil in View.Spawn")
			}
			continue
		}

		component := reflect.NewAt(v.types[i].Elem(), componentPtr).Interface().(Component)
		if err := e.AddComponent(component); err != nil {
			v.storage.Destroy(e.id)
			return nil, err
		}
	}
	return e, nil
}

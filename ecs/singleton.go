package ecs

import (
	"reflect"
)

type singletonEntry struct {
	typ   reflect.Type
	value any
}

// Singleton provides access to a single value that is not associated with any
// entity. Use this for frame clocks, the active camera handle or other
// engine-wide state that systems share.
type Singleton[T any] struct {
	storage *Storage
	ptr     *T
}

// AddSingleton stores value as the singleton of its type, replacing any previous value.
func AddSingleton[T any](storage *Storage, value T) *T {
	ptr := new(T)
	*ptr = value
	storage.singletons[reflect.TypeFor[T]()] = &singletonEntry{typ: reflect.TypeFor[T](), value: ptr}
	storage.version++
	return ptr
}

// NewSingleton creates a new Singleton accessor for the given storage.
// If initializer is provided and the singleton doesn't exist in storage,
// it will be created with the initializer value. Otherwise, a zero value is used.
// This guarantees the singleton exists in storage after the call.
func NewSingleton[T any](storage *Storage, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{storage: storage}
	s.updateCache()
	if s.ptr == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		s.ptr = AddSingleton(storage, value)
	}
	return s
}

// Init initializes the Singleton with a storage reference.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(storage *Storage) {
	s.storage = storage
	s.updateCache()
}

// Get returns a pointer to the singleton value.
// Returns nil if the singleton has not been added to storage.
func (s *Singleton[T]) Get() *T {
	if s.ptr == nil {
		s.updateCache()
	}
	return s.ptr
}

// updateCache refreshes the cached pointer from storage
func (s *Singleton[T]) updateCache() {
	if s.storage == nil {
		return
	}
	entry, ok := s.storage.singletons[reflect.TypeFor[T]()]
	if !ok {
		s.ptr = nil
		return
	}
	s.ptr = entry.value.(*T)
}

// Exists returns true if the singleton has been added to storage
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}

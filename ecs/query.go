package ecs

import (
	"iter"
)

// Query wraps a View with a result cache that is rebuilt only when the storage
// changes structurally (entities or components added or removed).
type Query[T any] struct {
	view        *View[T]
	storage     *Storage
	lastVersion uint64

	cachedEntities   []EntityId
	cachedComponents []T
	cacheValid       bool
}

// NewQuery creates a new Query over storage.
func NewQuery[T any](storage *Storage) *Query[T] {
	q := &Query[T]{}
	q.Init(storage)
	return q
}

// Init initializes or re-initializes the Query with a storage.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(storage *Storage) {
	q.view = NewView[T](storage)
	q.storage = storage
	q.cacheValid = false
}

// IncludeEditorOnly makes the query match editor-only entities too.
func (q *Query[T]) IncludeEditorOnly() *Query[T] {
	q.view.IncludeEditorOnly()
	q.cacheValid = false
	return q
}

// Execute rebuilds the entity and component caches if the storage changed.
func (q *Query[T]) Execute() {
	if q.cacheValid && q.lastVersion == q.storage.Version() {
		return
	}

	q.cachedEntities = q.cachedEntities[:0]
	q.cachedComponents = q.cachedComponents[:0]

	for id, item := range q.view.Iter() {
		q.cachedEntities = append(q.cachedEntities, id)
		q.cachedComponents = append(q.cachedComponents, item)
	}

	q.lastVersion = q.storage.Version()
	q.cacheValid = true
}

// Len returns the number of cached matches.
func (q *Query[T]) Len() int {
	q.Execute()
	return len(q.cachedEntities)
}

// Iter returns an iterator over entity IDs and component data.
// Entities destroyed since the cache was built are skipped.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	q.Execute()

	return func(yield func(EntityId, T) bool) {
		for i := range q.cachedEntities {
			if !q.storage.Alive(q.cachedEntities[i]) {
				continue
			}
			if !yield(q.cachedEntities[i], q.cachedComponents[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over component data only.
func (q *Query[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range q.Iter() {
			if !yield(item) {
				return
			}
		}
	}
}

package ecs

import "errors"

var (
	// ErrMalformedDefinition reports a bad or missing field in a definition document.
	ErrMalformedDefinition = errors.New("malformed definition")

	// ErrUnknownComponentType reports a component type name with no registered creator.
	ErrUnknownComponentType = errors.New("unknown component type")

	// ErrDuplicateComponentType reports a second component with an ID already present on the entity.
	ErrDuplicateComponentType = errors.New("duplicate component type")

	// ErrWouldCreateCycle reports a reparent onto the entity itself or one of its descendants.
	ErrWouldCreateCycle = errors.New("reparent would create cycle")

	// ErrEntityDestroyed reports an operation on a destroyed entity.
	ErrEntityDestroyed = errors.New("entity destroyed")
)

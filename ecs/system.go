package ecs

// System represents a behavior that operates on entities with specific components.
// User-defined systems should implement this interface and can include View, Query
// and Singleton fields, as well as custom state fields that persist between frames.
type System interface {
	Execute(frame *UpdateFrame)
}

// SystemFunc adapts a function to the System interface.
type SystemFunc func(frame *UpdateFrame)

func (f SystemFunc) Execute(frame *UpdateFrame) { f(frame) }

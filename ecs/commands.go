package ecs

// Commands provides a buffer for deferred ECS operations that are executed at the end of a frame.
// Systems use it to avoid structural changes to the storage while they iterate it.
type Commands struct {
	destroys  []EntityId
	adds      []addComponentCommand
	removes   []removeComponentCommand
	reparents []reparentCommand
	defers    []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type addComponentCommand struct {
	entity    EntityId
	component Component
}

type removeComponentCommand struct {
	entity EntityId
	id     ComponentID
}

type reparentCommand struct {
	entity EntityId
	parent EntityId
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Destroy queues an entity destruction.
func (c *Commands) Destroy(entity EntityId) {
	c.destroys = append(c.destroys, entity)
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component Component) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, id ComponentID) {
	c.removes = append(c.removes, removeComponentCommand{
		entity: entity,
		id:     id,
	})
}

// Reparent queues a reparent operation.
func (c *Commands) Reparent(entity, parent EntityId) {
	c.reparents = append(c.reparents, reparentCommand{entity: entity, parent: parent})
}

// Flush flushes all commands to the provided storage, resetting the buffer state.
// Operations addressing entities that no longer resolve are dropped; the errors of
// the remaining operations are returned in queue order.
func (c *Commands) Flush(storage *Storage) []error {
	var errs []error

	for _, cmd := range c.removes {
		if e, ok := storage.Resolve(cmd.entity); ok {
			e.RemoveComponent(cmd.id)
		}
	}

	for _, cmd := range c.adds {
		if e, ok := storage.Resolve(cmd.entity); ok {
			if err := e.AddComponent(cmd.component); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, cmd := range c.reparents {
		e, ok := storage.Resolve(cmd.entity)
		if !ok {
			continue
		}
		parent, ok := storage.Resolve(cmd.parent)
		if !ok {
			continue
		}
		if err := e.Reparent(parent); err != nil {
			errs = append(errs, err)
		}
	}

	for _, id := range c.destroys {
		storage.Destroy(id)
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.destroys = c.destroys[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.reparents = c.reparents[:0]
	c.defers = c.defers[:0]
	return errs
}

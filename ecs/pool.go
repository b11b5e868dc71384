package ecs

import "iter"

const (
	poolBlockSize = 64
)

// componentPool stores every live component of one ComponentID in blocks.
// Slots are stable until Compact; each component remembers its slot.
type componentPool struct {
	id        ComponentID
	blocks    [][poolBlockSize]Component
	freeSlots []int
	nextIndex int
	count     int
}

func newComponentPool(id ComponentID) *componentPool {
	return &componentPool{id: id}
}

// Append adds a component to the pool and returns its slot.
func (p *componentPool) Append(c Component) int {
	var index int
	if len(p.freeSlots) > 0 {
		index = p.freeSlots[len(p.freeSlots)-1]
		p.freeSlots = p.freeSlots[:len(p.freeSlots)-1]
	} else {
		index = p.nextIndex
		p.nextIndex++
		if index/poolBlockSize >= len(p.blocks) {
			p.blocks = append(p.blocks, [poolBlockSize]Component{})
		}
	}

	p.blocks[index/poolBlockSize][index%poolBlockSize] = c
	c.base().poolSlot = index
	p.count++
	return index
}

// Get returns the component at slot, or nil.
func (p *componentPool) Get(index int) Component {
	if index < 0 || index >= p.nextIndex {
		return nil
	}
	return p.blocks[index/poolBlockSize][index%poolBlockSize]
}

// Delete empties a slot.
func (p *componentPool) Delete(index int) {
	if index < 0 || index >= p.nextIndex {
		return
	}
	block := &p.blocks[index/poolBlockSize]
	if block[index%poolBlockSize] == nil {
		return
	}
	block[index%poolBlockSize].base().poolSlot = -1
	block[index%poolBlockSize] = nil
	p.freeSlots = append(p.freeSlots, index)
	p.count--
}

// Len returns the number of live components.
func (p *componentPool) Len() int {
	return p.count
}

// Compact removes empty slots and rewrites each component's slot.
func (p *componentPool) Compact() {
	if p.count == 0 {
		p.blocks = nil
		p.freeSlots = nil
		p.nextIndex = 0
		return
	}

	numBlocks := (p.count + poolBlockSize - 1) / poolBlockSize
	newBlocks := make([][poolBlockSize]Component, numBlocks)

	writePos := 0
	for c := range p.Iter() {
		newBlocks[writePos/poolBlockSize][writePos%poolBlockSize] = c
		c.base().poolSlot = writePos
		writePos++
	}

	p.blocks = newBlocks
	p.freeSlots = nil
	p.nextIndex = writePos
}

// Iter yields live components in slot order.
func (p *componentPool) Iter() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		for i := 0; i < p.nextIndex; i++ {
			c := p.blocks[i/poolBlockSize][i%poolBlockSize]
			if c == nil {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

package ecs_test

import (
	"testing"

	"github.com/plus3/rtx/ecs"
	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	spawn(storage, "1", &Position{X: 1, Y: 2}, &Velocity{DX: 0.5, DY: 0.5})
	spawn(storage, "2", &Position{X: 3, Y: 4}, &Velocity{DX: 1.0, DY: 1.0})
	spawn(storage, "3", &Position{X: 5, Y: 6}, &Velocity{DX: 1.5, DY: 1.5}, &Health{Current: 100, Max: 100})
	spawn(storage, "4", &Position{X: 7, Y: 8})

	query := ecs.NewQuery[struct {
		*Position
		*Velocity
	}](storage)

	t.Run("builds cache on first use", func(t *testing.T) {
		assert.Equal(t, 3, query.Len())
	})

	t.Run("multiple iterations are consistent", func(t *testing.T) {
		results1 := make(map[ecs.EntityId]bool)
		for id := range query.Iter() {
			results1[id] = true
		}

		results2 := make(map[ecs.EntityId]bool)
		for id := range query.Iter() {
			results2[id] = true
		}

		assert.Equal(t, results1, results2)
	})

	t.Run("cache reflects structural changes", func(t *testing.T) {
		e := spawn(storage, "5", &Position{}, &Velocity{})
		assert.Equal(t, 4, query.Len())

		storage.Destroy(e.ID())
		assert.Equal(t, 3, query.Len())
	})

	t.Run("skips entities destroyed during iteration", func(t *testing.T) {
		var ids []ecs.EntityId
		for id := range query.Iter() {
			ids = append(ids, id)
		}

		visited := 0
		for id := range query.Iter() {
			visited++
			if id == ids[0] {
				storage.Destroy(ids[1])
			}
		}
		assert.Equal(t, 2, visited)
	})
}

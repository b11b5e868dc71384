package ecs_test

import (
	"testing"

	"github.com/plus3/rtx/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewGet(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	e := spawn(storage, "E", &Position{X: 1, Y: 2}, &Velocity{DX: 3, DY: 4})

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](storage)

	item := view.Get(e.ID())
	require.NotNil(t, item)
	assert.Equal(t, float32(1), item.Position.X)
	assert.Equal(t, float32(4), item.Velocity.DY)
}

func TestViewGetMissingComponent(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	e := spawn(storage, "E", &Position{X: 1, Y: 2})

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](storage)

	// Should return nil because entity is missing Velocity
	assert.Nil(t, view.Get(e.ID()))
}

func TestViewComponentMutation(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	e := spawn(storage, "E", &Position{X: 1, Y: 1}, &Velocity{DX: 0, DY: 0})

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](storage)

	item := view.Get(e.ID())
	require.NotNil(t, item)

	item.Position.X = 100
	item.Velocity.DY = 10

	pos, _ := ecs.GetComponent[*Position](e)
	assert.Equal(t, float32(100), pos.X)
	vel, _ := ecs.GetComponent[*Velocity](e)
	assert.Equal(t, float32(10), vel.DY)
}

func TestViewOptionalAndIdFields(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	a := spawn(storage, "A", &Position{X: 1})
	b := spawn(storage, "B", &Position{X: 2}, &Health{Current: 5})

	view := ecs.NewView[struct {
		Id ecs.EntityId
		*Position
		Health *Health `ecs:"optional"`
	}](storage)

	seen := map[ecs.EntityId]*Health{}
	for id, item := range view.Iter() {
		assert.Equal(t, id, item.Id)
		seen[id] = item.Health
	}

	require.Len(t, seen, 2)
	assert.Nil(t, seen[a.ID()])
	require.NotNil(t, seen[b.ID()])
	assert.Equal(t, 5, seen[b.ID()].Current)
}

func TestViewSkipsEditorOnlyByDefault(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	spawn(storage, "Game", &Position{})
	gizmo := storage.Spawn("Gizmo", nil, true)
	require.NoError(t, gizmo.AddComponent(&Position{}))

	view := ecs.NewView[struct{ *Position }](storage)
	count := 0
	for range view.Values() {
		count++
	}
	assert.Equal(t, 1, count)

	view.IncludeEditorOnly()
	count = 0
	for range view.Values() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestViewStaleId(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	e := spawn(storage, "E", &Position{})
	storage.Destroy(e.ID())

	view := ecs.NewView[struct{ *Position }](storage)
	assert.Nil(t, view.Get(e.ID()))
	assert.Nil(t, view.Get(ecs.NewEntityId(9999, 9999)))
}

func TestViewSpawn(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	view := ecs.NewView[struct {
		*Position
		Health *Health `ecs:"optional"`
	}](storage)

	e, err := view.Spawn("Spawned", nil, struct {
		*Position
		Health *Health `ecs:"optional"`
	}{Position: &Position{X: 7}})
	require.NoError(t, err)

	pos, ok := ecs.GetComponent[*Position](e)
	require.True(t, ok)
	assert.Equal(t, float32(7), pos.X)
	assert.False(t, e.HasComponent(HealthID))
}

func TestViewPanicsOnUnregisteredType(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())

	assert.Panics(t, func() {
		ecs.NewView[struct{ *Position }](storage)
	})
}

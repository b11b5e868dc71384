package ecs_test

import (
	"testing"

	"github.com/plus3/rtx/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageStats(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	stats := storage.CollectStats()
	assert.Equal(t, 0, stats.TotalEntityCount)
	assert.Equal(t, 0, stats.SingletonCount)
	assert.Empty(t, stats.PoolBreakdown)

	a := spawn(storage, "A", &Position{}, &Label{})
	b := storage.Spawn("B", a, false)
	require.NoError(t, b.AddComponent(&Position{}))
	gizmo := storage.Spawn("Gizmo", b, true)
	vel := &Velocity{}
	require.NoError(t, gizmo.AddComponent(vel))
	ecs.Disable(vel)

	ecs.NewSingleton(storage, Clock{})

	stats = storage.CollectStats()
	assert.Equal(t, 3, stats.TotalEntityCount)
	assert.Equal(t, 1, stats.EditorOnlyCount)
	assert.Equal(t, 3, stats.MaxDepth)
	assert.Equal(t, 1, stats.SingletonCount)
	assert.Equal(t, []string{"ecs_test.Clock"}, stats.SingletonTypes)

	require.Len(t, stats.PoolBreakdown, 3)
	assert.Equal(t, ecs.PoolStats{ID: PositionID, Name: "Position", ComponentCount: 2}, stats.PoolBreakdown[0])
	assert.Equal(t, ecs.PoolStats{ID: VelocityID, Name: "Velocity", ComponentCount: 1, DisabledCount: 1}, stats.PoolBreakdown[1])
	assert.Equal(t, ecs.PoolStats{ID: LabelID, Name: "Label", ComponentCount: 1}, stats.PoolBreakdown[2])
}

package ecs

import (
	"sort"
)

// StorageStats summarizes the contents of a storage.
type StorageStats struct {
	TotalEntityCount int
	EditorOnlyCount  int
	MaxDepth         int
	SingletonCount   int
	SingletonTypes   []string
	PoolBreakdown    []PoolStats
}

// PoolStats describes one component pool.
type PoolStats struct {
	ID             ComponentID
	Name           string
	ComponentCount int
	DisabledCount  int
}

// CollectStats walks the storage and returns a snapshot of its contents.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{
		TotalEntityCount: s.Len(),
		SingletonCount:   len(s.singletons),
	}

	for e := range s.Entities() {
		if e.editorOnly {
			stats.EditorOnlyCount++
		}
	}

	var depth func(e *Entity, d int)
	depth = func(e *Entity, d int) {
		if d > stats.MaxDepth {
			stats.MaxDepth = d
		}
		for _, child := range e.children {
			depth(child, d+1)
		}
	}
	for _, child := range s.Root().children {
		depth(child, 1)
	}

	for t := range s.singletons {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	sort.Strings(stats.SingletonTypes)

	s.pools.ForEach(func(id ComponentID, p *componentPool) bool {
		if p.Len() == 0 {
			return true
		}
		ps := PoolStats{ID: id, ComponentCount: p.Len()}
		if ct, ok := s.registry.ByID(id); ok {
			ps.Name = ct.Name
		}
		for c := range p.Iter() {
			if !c.base().Enabled() {
				ps.DisabledCount++
			}
		}
		stats.PoolBreakdown = append(stats.PoolBreakdown, ps)
		return true
	})
	sort.Slice(stats.PoolBreakdown, func(i, j int) bool {
		return stats.PoolBreakdown[i].ID < stats.PoolBreakdown[j].ID
	})

	return stats
}

package editor

import (
	"slices"
	"strings"

	"github.com/plus3/rtx/ecs"
)

// Row is one entity line of the hierarchy panel.
type Row struct {
	ID         ecs.EntityId
	Name       string
	FullName   string
	Depth      int
	Components []string
	Children   int
	EditorOnly bool
	Disabled   int
}

// HierarchyOptions filter the rows produced by Hierarchy.
type HierarchyOptions struct {
	// Filter keeps entities whose full name or component names contain it,
	// ignoring case, together with their ancestors.
	Filter         string
	ShowEditorOnly bool
}

// Hierarchy flattens the entity tree depth first, parents before children.
func Hierarchy(storage *ecs.Storage, opts HierarchyOptions) []Row {
	filter := strings.ToLower(opts.Filter)
	var rows []Row

	var walk func(e *ecs.Entity, depth int) bool
	walk = func(e *ecs.Entity, depth int) bool {
		if e.EditorOnly() && !opts.ShowEditorOnly {
			return false
		}
		row := rowOf(e, depth)
		at := len(rows)
		rows = append(rows, row)

		matched := filter == "" || matches(row, filter)
		for _, child := range e.Children() {
			if walk(child, depth+1) {
				matched = true
			}
		}
		if !matched {
			rows = rows[:at]
		}
		return matched
	}
	for _, e := range storage.Root().Children() {
		walk(e, 0)
	}
	return rows
}

func rowOf(e *ecs.Entity, depth int) Row {
	row := Row{
		ID:         e.ID(),
		Name:       e.Name(),
		FullName:   e.FullName(),
		Depth:      depth,
		Children:   len(e.Children()),
		EditorOnly: e.EditorOnly(),
	}
	for _, c := range e.Components() {
		row.Components = append(row.Components, c.Name())
		if !ecs.IsEnabled(c) {
			row.Disabled++
		}
	}
	return row
}

func matches(row Row, filter string) bool {
	if strings.Contains(strings.ToLower(row.FullName), filter) {
		return true
	}
	return slices.ContainsFunc(row.Components, func(name string) bool {
		return strings.Contains(strings.ToLower(name), filter)
	})
}

// Match returns the entities that carry every named component type, in storage
// order. Unknown names match nothing.
func Match(storage *ecs.Storage, names []string) []*ecs.Entity {
	if len(names) == 0 {
		return nil
	}
	ids := make([]ecs.ComponentID, 0, len(names))
	for _, name := range names {
		ct, ok := storage.Registry().Lookup(name)
		if !ok {
			return nil
		}
		ids = append(ids, ct.ID)
	}

	var out []*ecs.Entity
	for e := range storage.Entities() {
		all := true
		for _, id := range ids {
			if !e.HasComponent(id) {
				all = false
				break
			}
		}
		if all {
			out = append(out, e)
		}
	}
	return out
}

// Pool sort columns.
const (
	PoolByID = iota
	PoolByName
	PoolByCount
	PoolByDisabled
)

// SortPools orders pool stats by the given column.
func SortPools(pools []ecs.PoolStats, column int, ascending bool) {
	slices.SortStableFunc(pools, func(a, b ecs.PoolStats) int {
		var c int
		switch column {
		case PoolByName:
			c = strings.Compare(a.Name, b.Name)
		case PoolByCount:
			c = a.ComponentCount - b.ComponentCount
		case PoolByDisabled:
			c = a.DisabledCount - b.DisabledCount
		default:
			c = int(a.ID) - int(b.ID)
		}
		if !ascending {
			return -c
		}
		return c
	})
}

package ui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
)

// Pools lists the component pools and finds entities by component set.
type Pools struct {
	sortColumn    int
	sortAscending bool
	selected      map[string]bool
}

func NewPools() *Pools {
	return &Pools{
		sortColumn: editor.PoolByCount,
		selected:   make(map[string]bool),
	}
}

func (p *Pools) Draw(ed *editor.Editor) {
	if !imgui.BeginV("Components", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	stats := ed.Storage.CollectStats()
	imgui.Text(fmt.Sprintf("Entities: %d (%d editor only), depth %d", stats.TotalEntityCount, stats.EditorOnlyCount, stats.MaxDepth))

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable
	if imgui.BeginTableV("PoolTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("ID")
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Count")
		imgui.TableSetupColumn("Disabled")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			p.sortColumn = int(spec.ColumnIndex())
			p.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		editor.SortPools(stats.PoolBreakdown, p.sortColumn, p.sortAscending)

		for _, pool := range stats.PoolBreakdown {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", pool.ID))
			imgui.TableNextColumn()
			imgui.Text(pool.Name)
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", pool.ComponentCount))
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", pool.DisabledCount))
		}
		imgui.EndTable()
	}

	if imgui.TreeNodeStr("Singletons") {
		for _, name := range stats.SingletonTypes {
			imgui.BulletText(name)
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Find by components") {
		p.drawQuery(ed)
		imgui.TreePop()
	}

	imgui.End()
}

func (p *Pools) drawQuery(ed *editor.Editor) {
	if imgui.Button("Clear All") {
		p.selected = make(map[string]bool)
	}
	var names []string
	for _, ct := range ed.Storage.Registry().Types() {
		selected := p.selected[ct.Name]
		if imgui.Checkbox(ct.Name, &selected) {
			if selected {
				p.selected[ct.Name] = true
			} else {
				delete(p.selected, ct.Name)
			}
		}
		if p.selected[ct.Name] {
			names = append(names, ct.Name)
		}
	}
	imgui.Separator()

	if len(names) == 0 {
		imgui.Text("No component types selected")
		return
	}
	matches := editor.Match(ed.Storage, names)
	imgui.Text(fmt.Sprintf("Matching entities: %d (%s)", len(matches), strings.Join(names, " + ")))
	for _, e := range matches {
		if imgui.SelectableBool(labelFor(e)) {
			ed.Open(e.ID())
		}
	}
}

func labelFor(e *ecs.Entity) string {
	return fmt.Sprintf("%s##%d", e.FullName(), e.ID())
}

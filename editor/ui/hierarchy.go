package ui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/rtx/editor"
	"go.uber.org/zap"
)

// Hierarchy lists the entity tree with a filter and per-entity actions.
type Hierarchy struct {
	filter         string
	showEditorOnly bool
	class          string

	rows    []editor.Row
	version uint64
	age     int
	dirty   bool
}

const refreshFrames = 15

func NewHierarchy() *Hierarchy {
	return &Hierarchy{dirty: true, class: "classes/"}
}

func (h *Hierarchy) Draw(ed *editor.Editor) {
	if !imgui.BeginV("Hierarchy", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if imgui.InputTextWithHint("##filter", "Filter...", &h.filter, imgui.InputTextFlagsNone, nil) {
		h.dirty = true
	}
	imgui.SameLine()
	if imgui.Checkbox("Editor only", &h.showEditorOnly) {
		h.dirty = true
	}
	h.refresh(ed)

	opened, _ := ed.Opened()
	var pending []func()
	for _, row := range h.rows {
		label := row.Name
		if row.EditorOnly {
			label += " [editor]"
		}
		if row.Disabled > 0 {
			label += fmt.Sprintf(" (%d off)", row.Disabled)
		}
		label = strings.Repeat("  ", row.Depth) + label + fmt.Sprintf("##%d", row.ID)

		selected := opened != nil && opened.ID() == row.ID
		if imgui.SelectableBoolV(label, selected, imgui.SelectableFlagsNone, imgui.NewVec2(0, 0)) {
			ed.Open(row.ID)
		}
		if imgui.BeginPopupContextItem() {
			id := row.ID
			if imgui.MenuItemBool("Duplicate") {
				pending = append(pending, func() {
					if _, err := ed.Duplicate(id); err != nil {
						ed.Logger.Warn("duplicate failed", zap.Error(err))
					}
				})
			}
			if imgui.MenuItemBool("Delete") {
				pending = append(pending, func() { ed.Delete(id) })
			}
			if imgui.MenuItemBool("Move to root") {
				pending = append(pending, func() {
					if err := ed.Reparent(id, 0); err != nil {
						ed.Logger.Warn("reparent failed", zap.Error(err))
					}
				})
			}
			imgui.EndPopup()
		}
	}
	for _, fn := range pending {
		fn()
	}

	imgui.Separator()
	imgui.SetNextItemWidth(200)
	imgui.InputTextWithHint("##class", "classes/crate.json", &h.class, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Instantiate") {
		parent, _ := ed.Opened()
		if _, err := ed.Instantiate(h.class, parent); err != nil {
			ed.Logger.Warn("instantiate failed", zap.String("class", h.class), zap.Error(err))
		}
	}

	imgui.Text(fmt.Sprintf("Total: %d entities", ed.Storage.Len()))
	imgui.End()
}

// refresh rebuilds the rows when the filter or the storage changed, and every
// refreshFrames draws to pick up renames and reparents.
func (h *Hierarchy) refresh(ed *editor.Editor) {
	if v := ed.Storage.Version(); v != h.version {
		h.version = v
		h.dirty = true
	}
	h.age++
	if !h.dirty && h.age < refreshFrames {
		return
	}
	h.age = 0
	h.rows = editor.Hierarchy(ed.Storage, editor.HierarchyOptions{
		Filter:         h.filter,
		ShowEditorOnly: h.showEditorOnly,
	})
	h.dirty = false
}

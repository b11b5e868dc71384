package ui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
	"go.uber.org/zap"
)

// Inspector shows the opened entity and edits its components.
type Inspector struct {
	name   string
	parent string
	shown  ecs.EntityId
}

func NewInspector() *Inspector {
	return &Inspector{}
}

type toggler interface {
	Enabled() bool
	SetEnabled(bool)
}

func (in *Inspector) Draw(ed *editor.Editor) {
	if !imgui.BeginV("Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	e, ok := ed.Opened()
	if !ok {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}
	if e.ID() != in.shown {
		in.shown = e.ID()
		in.name = e.Name()
		in.parent = ""
	}

	imgui.Text(fmt.Sprintf("Entity: %s", e.FullName()))
	imgui.Text(fmt.Sprintf("Handle: %s", e.ID()))
	if e.EditorOnly() {
		imgui.Text("Editor only")
	}

	imgui.SetNextItemWidth(200)
	if imgui.InputTextWithHint("Name", "", &in.name, imgui.InputTextFlagsEnterReturnsTrue, nil) && in.name != "" {
		e.SetName(in.name)
	}
	imgui.SetNextItemWidth(200)
	imgui.InputTextWithHint("##parent", "Parent full name", &in.parent, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Reparent") {
		in.reparent(ed, e)
	}

	if imgui.Button("Duplicate") {
		if _, err := ed.Duplicate(e.ID()); err != nil {
			ed.Logger.Warn("duplicate failed", zap.Error(err))
		}
	}
	imgui.SameLine()
	if imgui.Button("Copy JSON") {
		if data, err := ed.Factory.Serialize(e); err == nil {
			imgui.SetClipboardText(string(data))
		} else {
			ed.Logger.Warn("serialize failed", zap.Error(err))
		}
	}
	imgui.SameLine()
	if imgui.Button("Delete") {
		ed.Delete(e.ID())
		imgui.End()
		return
	}
	imgui.Separator()

	for _, c := range e.Components() {
		if !imgui.TreeNodeExStrV(fmt.Sprintf("%s##%d", c.Name(), c.ComponentID()), imgui.TreeNodeFlagsDefaultOpen) {
			continue
		}
		if t, ok := c.(toggler); ok {
			enabled := t.Enabled()
			if imgui.Checkbox(fmt.Sprintf("Enabled##%d", c.ComponentID()), &enabled) {
				t.SetEnabled(enabled)
			}
		}
		in.drawComponent(ed, c)
		imgui.TreePop()
	}

	imgui.End()
}

func (in *Inspector) reparent(ed *editor.Editor, e *ecs.Entity) {
	var parent ecs.EntityId
	if in.parent != "" {
		p, ok := ed.Storage.Find(in.parent)
		if !ok {
			ed.Logger.Warn("reparent target not found", zap.String("parent", in.parent))
			return
		}
		parent = p.ID()
	}
	if err := ed.Reparent(e.ID(), parent); err != nil {
		ed.Logger.Warn("reparent failed", zap.String("entity", e.FullName()), zap.Error(err))
	}
}

func (in *Inspector) drawComponent(ed *editor.Editor, c ecs.Component) {
	switch c := c.(type) {
	case *component.Transform:
		pos := [3]float32(c.Position())
		if imgui.DragFloat3("Position", &pos) {
			c.SetPosition(mgl32.Vec3(pos))
		}
		scale := [3]float32(c.Scale())
		if imgui.DragFloat3("Scale", &scale) {
			c.SetScale(mgl32.Vec3(scale))
		}
		world := c.WorldPosition()
		imgui.Text(fmt.Sprintf("World: (%.2f, %.2f, %.2f)", world.X(), world.Y(), world.Z()))
		return
	case *component.Model:
		imgui.Text(fmt.Sprintf("Resource: %s", c.Path()))
		visible := c.Visible()
		if imgui.Checkbox("Visible", &visible) {
			c.SetVisible(visible)
		}
		if res := c.Resource(); res != nil {
			imgui.Text(fmt.Sprintf("Meshes: %d", len(res.Meshes())))
		}
		return
	}

	val := reflect.ValueOf(c)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	for _, field := range ed.Fields.Fields(val.Type()) {
		in.drawField(ed, c, field, val.Field(field.Index))
	}
}

func (in *Inspector) drawField(ed *editor.Editor, c ecs.Component, field editor.FieldInfo, val reflect.Value) {
	label := fmt.Sprintf("%s##%d", field.Name, c.ComponentID())
	set := func(v any) {
		if err := ed.Fields.Set(c, field.Name, v); err != nil {
			ed.Logger.Warn("field edit rejected", zap.String("component", c.Name()), zap.Error(err))
		}
	}

	if field.IsPointer {
		if val.IsNil() {
			imgui.Text(fmt.Sprintf("%s: nil", field.Name))
			return
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(label, &v) {
			set(v)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(label, &v) && v >= 0 {
			set(v)
		}
	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(label, &v) {
			set(v)
		}
	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(label, &v) {
			set(v)
		}
	case reflect.String:
		v := val.String()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(label, "", &v, imgui.InputTextFlagsNone, nil) {
			set(v)
		}
	case reflect.Array:
		switch v := val.Interface().(type) {
		case mgl32.Vec4:
			col := [4]float32(v)
			if imgui.ColorEdit4(label, &col) {
				set(col)
			}
		case mgl32.Vec3:
			vec := [3]float32(v)
			if imgui.DragFloat3(label, &vec) {
				set(vec)
			}
		default:
			imgui.Text(fmt.Sprintf("%s: %v", field.Name, v))
		}
	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", field.Name, val.Len()))
	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", field.Name, val.Len()))
	default:
		imgui.Text(fmt.Sprintf("%s: %v", field.Name, val.Interface()))
	}
}

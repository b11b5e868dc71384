// Package ui draws the editor panels with Dear ImGui from inside the frame loop.
package ui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
)

// Panel is one editor window.
type Panel interface {
	Draw(ed *editor.Editor)
}

// InputState tracks whether Dear ImGui is consuming mouse or keyboard input,
// as a storage singleton. Viewport picking and camera controls check it.
type InputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// System queues every panel's Draw behind the frame's systems, so the panels see
// the state the frame produced. Register it after the render system.
type System struct {
	Input ecs.Singleton[InputState]

	editor *editor.Editor
	panels []Panel
}

// NewSystem creates the system with the given panels, or the default set.
func NewSystem(ed *editor.Editor, panels ...Panel) *System {
	if len(panels) == 0 {
		panels = DefaultPanels()
	}
	ecs.NewSingleton[InputState](ed.Storage)
	return &System{editor: ed, panels: panels}
}

// DefaultPanels returns the hierarchy, inspector, event, pool and performance windows.
func DefaultPanels() []Panel {
	return []Panel{
		NewHierarchy(),
		NewInspector(),
		NewEventTable(),
		NewPools(),
		NewPerformance(),
	}
}

func (s *System) SystemName() string { return "EditorUI" }

func (s *System) Execute(frame *ecs.UpdateFrame) {
	s.editor.Frames.Push(frame.DeltaMs)

	if state := s.Input.Get(); state != nil {
		io := imgui.CurrentIO()
		state.WantCaptureMouse = io.WantCaptureMouse()
		state.WantCaptureKeyboard = io.WantCaptureKeyboard()
	}

	for _, p := range s.panels {
		frame.Commands.Defer(func() { p.Draw(s.editor) })
	}
}

// Package ebiten runs the editor in an Ebiten window: the Dear ImGui backend,
// a wireframe viewport device and the ebiten.Game that ties them to the frame loop.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// NewImguiBackend creates the backend and its window. The imgui.ini file is
// disabled so layouts do not leak between asset roots.
func NewImguiBackend(title string, width, height int) *ImguiBackend {
	b := ebitenbackend.NewEbitenBackend()
	b.CreateWindow(title, width, height)
	imgui.CurrentIO().SetIniFilename("")
	return &ImguiBackend{EbitenBackend: b}
}

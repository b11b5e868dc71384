package ebiten

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/editor"
	"github.com/plus3/rtx/editor/ui"
	"github.com/plus3/rtx/event"
)

// Game implements ebiten.Game for the editor. Each Update runs one engine frame
// between the ImGui frame markers, so the ui.System deferred by the scheduler
// draws into the current ImGui frame.
type Game struct {
	// Done is polled after every frame; returning true ends the game loop.
	Done func() bool
	// CameraSpeed is the fly camera speed in units per second.
	CameraSpeed float32

	editor   *editor.Editor
	backend  *ImguiBackend
	viewport *Viewport
	input    *ecs.Singleton[ui.InputState]
	timer    *editor.FrameTimer
}

func NewGame(ed *editor.Editor, backend *ImguiBackend, viewport *Viewport) *Game {
	return &Game{
		CameraSpeed: 5,
		editor:      ed,
		backend:     backend,
		viewport:    viewport,
		input:       ecs.NewSingleton[ui.InputState](ed.Storage),
		timer:       editor.NewFrameTimer(),
	}
}

func (g *Game) Update() error {
	g.backend.BeginFrame()
	dt := g.timer.DeltaMs()
	g.handleInput(dt)
	g.editor.Levels.Update(dt)
	g.backend.EndFrame()

	if g.Done != nil && g.Done() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) handleInput(dt float32) {
	state := g.input.Get()

	if !state.WantCaptureMouse && inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		w, h := g.viewport.Size()
		info := g.viewport.Info()
		if ray, ok := editor.ScreenRay(info.View, info.Projection, float32(x), float32(y), w, h); ok {
			if e, ok := editor.Pick(g.editor.Storage, ray); ok {
				g.editor.Events.Call(editor.EventMouseSelectEntity, editor.Origin, event.Entity(e.ID()))
			}
		}
	}

	if state.WantCaptureKeyboard {
		return
	}
	cam, ok := g.editor.Storage.Resolve(g.editor.Camera())
	if !ok {
		return
	}
	t, ok := ecs.GetComponent[*component.Transform](cam)
	if !ok {
		return
	}

	forward := t.Forward()
	right := forward.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() > 0 {
		right = right.Normalize()
	}
	var move mgl32.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		move = move.Add(forward)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		move = move.Sub(forward)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		move = move.Add(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		move = move.Sub(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		t.Translate(move.Normalize().Mul(g.CameraSpeed * dt / 1000))
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.viewport.Image(), nil)
	g.backend.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.backend.Layout(outsideWidth, outsideHeight)
	g.viewport.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

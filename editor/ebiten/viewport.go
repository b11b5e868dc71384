package ebiten

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/rtx/editor"
	"github.com/plus3/rtx/render"
)

var (
	background = color.RGBA{0x1e, 0x1f, 0x24, 0xff}
	gridColor  = color.RGBA{0x3a, 0x3c, 0x44, 0xff}
	wireColor  = color.RGBA{0xd8, 0xdc, 0xe6, 0xff}
)

const (
	gridHalfExtent = 10
	lightRadius    = 4
)

// Viewport is a render.Device that draws meshes as wireframes into an offscreen
// image, with a ground grid and a marker per point light.
type Viewport struct {
	target   *ebiten.Image
	width    int
	height   int
	info     render.FrameInfo
	viewProj mgl32.Mat4
}

func NewViewport(width, height int) *Viewport {
	v := &Viewport{}
	v.Resize(width, height)
	return v
}

// Resize recreates the target when the window size changes.
func (v *Viewport) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if v.target != nil && width == v.width && height == v.height {
		return
	}
	if v.target != nil {
		v.target.Deallocate()
	}
	v.target = ebiten.NewImage(width, height)
	v.width, v.height = width, height
}

// Image returns the last completed frame.
func (v *Viewport) Image() *ebiten.Image { return v.target }

// Info returns the camera of the last frame, for picking.
func (v *Viewport) Info() render.FrameInfo { return v.info }

// Size returns the target size in pixels.
func (v *Viewport) Size() (float32, float32) { return float32(v.width), float32(v.height) }

func (v *Viewport) BeginFrame(info render.FrameInfo) {
	v.info = info
	v.viewProj = info.Projection.Mul4(info.View)
	v.target.Fill(background)

	for i := -gridHalfExtent; i <= gridHalfExtent; i++ {
		f := float32(i)
		v.line(v.viewProj, mgl32.Vec3{f, 0, -gridHalfExtent}, mgl32.Vec3{f, 0, gridHalfExtent}, gridColor)
		v.line(v.viewProj, mgl32.Vec3{-gridHalfExtent, 0, f}, mgl32.Vec3{gridHalfExtent, 0, f}, gridColor)
	}
}

func (v *Viewport) SetLights(lights []render.Light) {
	w, h := v.Size()
	for _, l := range lights {
		x, y, ok := editor.WorldToScreen(v.viewProj, l.Position, w, h)
		if !ok {
			continue
		}
		c := color.RGBA{
			R: uint8(mgl32.Clamp(l.Color.X(), 0, 1) * 255),
			G: uint8(mgl32.Clamp(l.Color.Y(), 0, 1) * 255),
			B: uint8(mgl32.Clamp(l.Color.Z(), 0, 1) * 255),
			A: 0xff,
		}
		vector.DrawFilledCircle(v.target, x, y, lightRadius, c, true)
	}
}

func (v *Viewport) Draw(call render.DrawCall) {
	mvp := v.viewProj.Mul4(call.World)
	mesh := call.Mesh
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a := mesh.Vertices[mesh.Indices[i]].Position
		b := mesh.Vertices[mesh.Indices[i+1]].Position
		c := mesh.Vertices[mesh.Indices[i+2]].Position
		v.line(mvp, a, b, wireColor)
		v.line(mvp, b, c, wireColor)
		v.line(mvp, c, a, wireColor)
	}
}

func (v *Viewport) EndFrame() {}

// line draws the segment when both ends are in front of the camera.
func (v *Viewport) line(mvp mgl32.Mat4, a, b mgl32.Vec3, c color.Color) {
	w, h := v.Size()
	x0, y0, ok := editor.WorldToScreen(mvp, a, w, h)
	if !ok {
		return
	}
	x1, y1, ok := editor.WorldToScreen(mvp, b, w, h)
	if !ok {
		return
	}
	vector.StrokeLine(v.target, x0, y0, x1, y1, 1, c, true)
}

var _ render.Device = (*Viewport)(nil)

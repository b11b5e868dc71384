// Package render walks the visual components of a storage each frame and feeds them to a Device.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
)

// FrameInfo is the camera state of one frame.
type FrameInfo struct {
	Index      uint64
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3
}

// Light is a point light in world space.
type Light struct {
	Entity    ecs.EntityId
	Position  mgl32.Vec3
	Color     mgl32.Vec4
	Ambient   mgl32.Vec4
	Intensity float32
	Range     float32
	// Constant, linear and quadratic attenuation factors.
	Attenuation mgl32.Vec3
}

// DrawCall is one mesh drawn with a world matrix.
type DrawCall struct {
	Entity ecs.EntityId
	Mesh   *resource.Mesh
	World  mgl32.Mat4
}

// Device is the GPU side of the renderer. Calls for one frame arrive in the order
// BeginFrame, SetLights, Draw..., EndFrame.
type Device interface {
	BeginFrame(info FrameInfo)
	SetLights(lights []Light)
	Draw(call DrawCall)
	EndFrame()
}

// Frame is everything a RecordingDevice saw between BeginFrame and EndFrame.
type Frame struct {
	Info   FrameInfo
	Lights []Light
	Draws  []DrawCall
}

// Triangles returns the number of triangles submitted in the frame.
func (f *Frame) Triangles() int {
	n := 0
	for _, d := range f.Draws {
		n += d.Mesh.TriangleCount()
	}
	return n
}

// RecordingDevice keeps the most recent frames in memory. It backs headless runs
// and tests.
type RecordingDevice struct {
	// Keep bounds the number of frames retained; zero keeps only the last one.
	Keep    int
	frames  []Frame
	current *Frame
}

func NewRecordingDevice(keep int) *RecordingDevice {
	return &RecordingDevice{Keep: keep}
}

func (d *RecordingDevice) BeginFrame(info FrameInfo) {
	d.current = &Frame{Info: info}
}

func (d *RecordingDevice) SetLights(lights []Light) {
	if d.current == nil {
		return
	}
	d.current.Lights = append(d.current.Lights[:0], lights...)
}

func (d *RecordingDevice) Draw(call DrawCall) {
	if d.current == nil {
		return
	}
	d.current.Draws = append(d.current.Draws, call)
}

func (d *RecordingDevice) EndFrame() {
	if d.current == nil {
		return
	}
	keep := max(d.Keep, 1)
	d.frames = append(d.frames, *d.current)
	if len(d.frames) > keep {
		d.frames = append(d.frames[:0], d.frames[len(d.frames)-keep:]...)
	}
	d.current = nil
}

// Frames returns the retained frames, oldest first.
func (d *RecordingDevice) Frames() []Frame { return d.frames }

// Last returns the most recent complete frame.
func (d *RecordingDevice) Last() (Frame, bool) {
	if len(d.frames) == 0 {
		return Frame{}, false
	}
	return d.frames[len(d.frames)-1], true
}

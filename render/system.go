package render

import (
	"time"

	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"go.uber.org/zap"
)

type drawable struct {
	ID        ecs.EntityId
	Model     *component.Model
	Transform *component.Transform
}

type light struct {
	ID        ecs.EntityId
	Light     *component.PointLight
	Transform *component.Transform
}

// Stats describes the last rendered frame.
type Stats struct {
	Frames        uint64
	DrawCalls     int
	Triangles     int
	Lights        int
	DefaultCamera bool
	Duration      time.Duration
}

// System renders every visible model with the active camera. Register it after the
// transform system so world matrices are current.
type System struct {
	Models ecs.Query[drawable]
	Lights ecs.Query[light]

	device Device
	logger *zap.Logger
	camera ecs.EntityId
	warned bool
	stats  Stats
	lights []Light
}

func NewSystem(device Device, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{device: device, logger: logger}
}

// SetCamera makes the entity's CameraComponent the active camera. The entity is
// held by handle; if it is destroyed the default camera takes over.
func (s *System) SetCamera(id ecs.EntityId) {
	s.camera = id
	s.warned = false
}

// Camera returns the active camera handle, which may be stale.
func (s *System) Camera() ecs.EntityId { return s.camera }

// SetDevice swaps the device, e.g. when the editor viewport is recreated.
func (s *System) SetDevice(device Device) { s.device = device }

func (s *System) Stats() Stats { return s.stats }

// frameInfo resolves the camera for this frame. A camera entity destroyed since
// the previous frame falls back to the default camera with one warning.
func (s *System) frameInfo(frame *ecs.UpdateFrame) (FrameInfo, bool) {
	info := FrameInfo{Index: frame.Index}
	if !s.camera.IsNil() {
		if e, ok := frame.Storage.Resolve(s.camera); ok {
			if cam, ok := ecs.GetComponent[*component.Camera](e); ok && cam.Enabled() {
				info.View = cam.View()
				info.Projection = cam.Projection()
				info.Eye = info.View.Inv().Col(3).Vec3()
				return info, false
			}
		}
		if !s.warned {
			s.warned = true
			s.logger.Warn("camera entity is gone, using default camera", zap.Stringer("camera", s.camera))
		}
	}
	cam, view := component.DefaultCamera()
	info.View = view
	info.Projection = cam.Projection()
	info.Eye = view.Inv().Col(3).Vec3()
	return info, true
}

func (s *System) SystemName() string { return "RenderSystem" }

func (s *System) Execute(frame *ecs.UpdateFrame) {
	if s.device == nil {
		return
	}
	start := time.Now()
	info, fallback := s.frameInfo(frame)

	s.lights = s.lights[:0]
	for _, l := range s.Lights.Iter() {
		if !l.Light.Enabled() {
			continue
		}
		s.lights = append(s.lights, Light{
			Entity:      l.ID,
			Position:    l.Transform.WorldPosition(),
			Color:       l.Light.DiffuseColor,
			Ambient:     l.Light.AmbientColor,
			Intensity:   l.Light.DiffuseIntensity,
			Range:       l.Light.Range,
			Attenuation: [3]float32{l.Light.ConstAtt, l.Light.LinAtt, l.Light.QuadAtt},
		})
	}

	s.device.BeginFrame(info)
	s.device.SetLights(s.lights)

	draws, triangles := 0, 0
	for _, d := range s.Models.Iter() {
		if !d.Model.Enabled() || !d.Model.Visible() || d.Model.Resource() == nil {
			continue
		}
		world := d.Transform.World()
		meshes := d.Model.Resource().Meshes()
		for i := range meshes {
			s.device.Draw(DrawCall{Entity: d.ID, Mesh: &meshes[i], World: world})
			draws++
			triangles += meshes[i].TriangleCount()
		}
	}
	s.device.EndFrame()

	s.stats = Stats{
		Frames:        s.stats.Frames + 1,
		DrawCalls:     draws,
		Triangles:     triangles,
		Lights:        len(s.lights),
		DefaultCamera: fallback,
		Duration:      time.Since(start),
	}
}

package component

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
)

type modelDef struct {
	Path    string `json:"resFile"`
	Visible *bool  `json:"isVisible,omitempty"`
}

// Model draws a mesh resource at its owner's transform. Setup fails when the entity
// has no TransformComponent.
type Model struct {
	ecs.BaseComponent
	loader    *resource.Loader
	path      string
	model     *resource.Model
	transform *Transform
	visible   bool
}

func NewModel(data []byte, loader *resource.Loader) (*Model, error) {
	var def modelDef
	if err := Decode(data, &def); err != nil {
		return nil, err
	}
	m := &Model{loader: loader, path: def.Path, visible: true}
	if def.Visible != nil {
		m.visible = *def.Visible
	}
	return m, nil
}

func (*Model) ComponentID() ecs.ComponentID { return ModelID }
func (*Model) Name() string                 { return ModelName }

func (m *Model) Serialize() any {
	return map[string]any{"type": ModelName, "resFile": m.path, "isVisible": m.visible}
}

// Setup resolves the sibling transform and loads the mesh resource.
func (m *Model) Setup() bool {
	t, ok := ecs.GetComponent[*Transform](m.OwnerEntity())
	if !ok {
		return false
	}
	m.transform = t
	if m.path == "" || m.loader == nil {
		return m.path == ""
	}
	model, err := m.loader.LoadModel(m.path)
	if err != nil {
		return false
	}
	m.model = model
	return true
}

func (m *Model) Path() string { return m.path }

// Resource returns the loaded mesh, nil for an empty model.
func (m *Model) Resource() *resource.Model { return m.model }

// SetResource swaps the mesh resource, e.g. from a script or the editor.
func (m *Model) SetResource(model *resource.Model) {
	m.model = model
	if model != nil {
		m.path = model.Path()
	}
}

func (m *Model) Transform() *Transform { return m.transform }

func (m *Model) Visible() bool { return m.visible }

func (m *Model) SetVisible(v bool) { m.visible = v }

type pointLightDef struct {
	ConstAtt         float32 `json:"constAtt"`
	LinAtt           float32 `json:"linAtt"`
	QuadAtt          float32 `json:"quadAtt"`
	Range            float32 `json:"range"`
	DiffuseIntensity float32 `json:"diffuseIntensity"`
	DiffuseColor     Color   `json:"diffuseColor"`
	AmbientColor     Color   `json:"ambientColor"`
}

// PointLight is an omnidirectional light with distance attenuation.
type PointLight struct {
	ecs.BaseComponent
	ConstAtt         float32
	LinAtt           float32
	QuadAtt          float32
	Range            float32
	DiffuseIntensity float32
	DiffuseColor     Color
	AmbientColor     Color
}

func NewPointLight(data []byte) (*PointLight, error) {
	def := pointLightDef{
		ConstAtt:         1,
		LinAtt:           0.045,
		QuadAtt:          0.0075,
		Range:            10,
		DiffuseIntensity: 1,
		DiffuseColor:     Color{1, 1, 1, 1},
		AmbientColor:     Color{0.05, 0.05, 0.05, 1},
	}
	if err := Decode(data, &def); err != nil {
		return nil, err
	}
	if def.Range < 0 {
		return nil, fmt.Errorf("%w: negative point light range %g", ecs.ErrMalformedDefinition, def.Range)
	}
	return &PointLight{
		ConstAtt:         def.ConstAtt,
		LinAtt:           def.LinAtt,
		QuadAtt:          def.QuadAtt,
		Range:            def.Range,
		DiffuseIntensity: def.DiffuseIntensity,
		DiffuseColor:     def.DiffuseColor,
		AmbientColor:     def.AmbientColor,
	}, nil
}

func (*PointLight) ComponentID() ecs.ComponentID { return PointLightID }
func (*PointLight) Name() string                 { return PointLightName }

func (l *PointLight) Serialize() any {
	return map[string]any{
		"type":             PointLightName,
		"constAtt":         l.ConstAtt,
		"linAtt":           l.LinAtt,
		"quadAtt":          l.QuadAtt,
		"range":            l.Range,
		"diffuseIntensity": l.DiffuseIntensity,
		"diffuseColor":     l.DiffuseColor,
		"ambientColor":     l.AmbientColor,
	}
}

// Attenuation returns the light factor at distance d, 0 beyond Range.
func (l *PointLight) Attenuation(d float32) float32 {
	if d > l.Range {
		return 0
	}
	denom := l.ConstAtt + l.LinAtt*d + l.QuadAtt*d*d
	if denom <= 0 {
		return 0
	}
	return l.DiffuseIntensity / denom
}

type cameraDef struct {
	FOV    float32 `json:"fov"`
	Near   float32 `json:"near"`
	Far    float32 `json:"far"`
	Aspect float32 `json:"aspect"`
}

// Camera is a perspective camera looking down its owner's -Z axis.
type Camera struct {
	ecs.BaseComponent
	FOV    float32
	Near   float32
	Far    float32
	Aspect float32
}

func NewCamera(data []byte) (*Camera, error) {
	def := cameraDef{FOV: 60, Near: 0.1, Far: 1000, Aspect: 16.0 / 9.0}
	if err := Decode(data, &def); err != nil {
		return nil, err
	}
	if def.Near <= 0 || def.Far <= def.Near {
		return nil, fmt.Errorf("%w: camera clip planes near=%g far=%g", ecs.ErrMalformedDefinition, def.Near, def.Far)
	}
	return &Camera{FOV: def.FOV, Near: def.Near, Far: def.Far, Aspect: def.Aspect}, nil
}

func (*Camera) ComponentID() ecs.ComponentID { return CameraID }
func (*Camera) Name() string                 { return CameraName }

func (c *Camera) Serialize() any {
	return map[string]any{"type": CameraName, "fov": c.FOV, "near": c.Near, "far": c.Far, "aspect": c.Aspect}
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// View returns the inverse of the owner's world transform, identity without one.
func (c *Camera) View() mgl32.Mat4 {
	t, ok := ecs.GetComponent[*Transform](c.OwnerEntity())
	if !ok {
		return mgl32.Ident4()
	}
	return t.World().Inv()
}

// DefaultCamera is used by renderers when no camera entity is set or it was destroyed.
func DefaultCamera() (*Camera, mgl32.Mat4) {
	c := &Camera{FOV: 60, Near: 0.1, Far: 1000, Aspect: 16.0 / 9.0}
	view := mgl32.LookAtV(Vec3{0, 0, 10}, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	return c, view
}

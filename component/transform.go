package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
)

type transformDef struct {
	Position Vec3       `json:"position"`
	Rotation mgl32.Vec4 `json:"rotation"`
	Scale    *Vec3      `json:"scale,omitempty"`
}

// Transform places its owner relative to the parent entity's transform.
// World matrices are refreshed by TransformSystem once per frame.
type Transform struct {
	ecs.BaseComponent
	position Vec3
	rotation mgl32.Quat
	scale    Vec3
	world    mgl32.Mat4
}

// NewTransform builds a transform from {"position": [x,y,z], "rotation": [x,y,z,w], "scale": [x,y,z]}.
func NewTransform(data []byte) (*Transform, error) {
	def := transformDef{Rotation: mgl32.Vec4{0, 0, 0, 1}}
	if err := Decode(data, &def); err != nil {
		return nil, err
	}
	t := &Transform{
		position: def.Position,
		rotation: mgl32.Quat{W: def.Rotation[3], V: def.Rotation.Vec3()}.Normalize(),
		scale:    Vec3{1, 1, 1},
		world:    mgl32.Ident4(),
	}
	if def.Scale != nil {
		t.scale = *def.Scale
	}
	t.updateWorld(mgl32.Ident4())
	return t, nil
}

func (*Transform) ComponentID() ecs.ComponentID { return TransformID }
func (*Transform) Name() string                 { return TransformName }

func (t *Transform) Serialize() any {
	return map[string]any{
		"type":     TransformName,
		"position": t.position,
		"rotation": mgl32.Vec4{t.rotation.X(), t.rotation.Y(), t.rotation.Z(), t.rotation.W},
		"scale":    t.scale,
	}
}

func (t *Transform) Position() Vec3 { return t.position }

func (t *Transform) SetPosition(p Vec3) {
	t.position = p
	t.MarkDirty()
}

// Translate moves the transform by delta in parent space.
func (t *Transform) Translate(delta Vec3) {
	t.SetPosition(t.position.Add(delta))
}

func (t *Transform) Rotation() mgl32.Quat { return t.rotation }

func (t *Transform) SetRotation(q mgl32.Quat) {
	t.rotation = q.Normalize()
	t.MarkDirty()
}

// Rotate applies q after the current rotation.
func (t *Transform) Rotate(q mgl32.Quat) {
	t.SetRotation(q.Mul(t.rotation))
}

func (t *Transform) Scale() Vec3 { return t.scale }

func (t *Transform) SetScale(s Vec3) {
	t.scale = s
	t.MarkDirty()
}

// Local returns the transform relative to its parent.
func (t *Transform) Local() mgl32.Mat4 {
	return mgl32.Translate3D(t.position.X(), t.position.Y(), t.position.Z()).
		Mul4(t.rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.scale.X(), t.scale.Y(), t.scale.Z()))
}

// World returns the absolute transform computed by the last TransformSystem pass.
func (t *Transform) World() mgl32.Mat4 { return t.world }

// WorldPosition returns the translation part of World.
func (t *Transform) WorldPosition() Vec3 { return t.world.Col(3).Vec3() }

// Forward returns the world space -Z axis.
func (t *Transform) Forward() Vec3 {
	return t.world.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

func (t *Transform) updateWorld(parent mgl32.Mat4) {
	t.world = parent.Mul4(t.Local())
	t.ClearDirty()
}

// Package component holds the engine's concrete components and the systems that drive them.
package component

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
	"go.uber.org/zap"
)

// Stable component IDs. Saved definitions refer to components by type name, but
// pools, views and the editor key on these values.
const (
	TestID ecs.ComponentID = iota + 1
	DebugID
	TransformID
	ModelID
	PointLightID
	CameraID
	ScriptID
)

// Definition type names.
const (
	TestName       = "TestComponent"
	DebugName      = "DebugComponent"
	TransformName  = "TransformComponent"
	ModelName      = "ModelComponent"
	PointLightName = "PointLightComponent"
	CameraName     = "CameraComponent"
	ScriptName     = "ScriptComponent"
)

// Deps are the collaborators handed to component constructors.
type Deps struct {
	Loader *resource.Loader
	Logger *zap.Logger
}

// Register adds every engine component except ScriptComponent, which the script
// package registers because it needs the interpreter.
func Register(r *ecs.ComponentRegistry, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	ecs.RegisterComponent(r, TestID, TestName, NewTest)
	ecs.RegisterComponent(r, DebugID, DebugName, func(data []byte) (*Debug, error) {
		return NewDebug(data, deps.Logger)
	})
	ecs.RegisterComponent(r, TransformID, TransformName, NewTransform)
	ecs.RegisterComponent(r, ModelID, ModelName, func(data []byte) (*Model, error) {
		return NewModel(data, deps.Loader)
	})
	ecs.RegisterComponent(r, PointLightID, PointLightName, NewPointLight)
	ecs.RegisterComponent(r, CameraID, CameraName, NewCamera)
}

// Decode unmarshals one definition entry into v. Empty data leaves v at its defaults.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ecs.ErrMalformedDefinition, err)
	}
	return nil
}

// Vec3 encodes as a JSON array [x, y, z].
type Vec3 = mgl32.Vec3

// Color is an RGBA color in linear space.
type Color = mgl32.Vec4

// Test is an empty component used by tests and sample levels.
type Test struct {
	ecs.BaseComponent
}

func NewTest([]byte) (*Test, error) { return &Test{}, nil }

func (*Test) ComponentID() ecs.ComponentID { return TestID }
func (*Test) Name() string                 { return TestName }
func (*Test) Serialize() any               { return map[string]any{"type": TestName} }

// Debug logs every update of its owner at debug level.
type Debug struct {
	ecs.BaseComponent
	logger  *zap.Logger
	updates uint64
}

func NewDebug(_ []byte, logger *zap.Logger) (*Debug, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debug{logger: logger}, nil
}

func (*Debug) ComponentID() ecs.ComponentID { return DebugID }
func (*Debug) Name() string                 { return DebugName }
func (*Debug) Serialize() any               { return map[string]any{"type": DebugName} }

// Updates returns how many frames the component has seen.
func (d *Debug) Updates() uint64 { return d.updates }

func (d *Debug) OnUpdate(deltaMs float32) {
	d.updates++
	if ce := d.logger.Check(zap.DebugLevel, "debug component update"); ce != nil {
		name := ""
		if e := d.OwnerEntity(); e != nil {
			name = e.FullName()
		}
		ce.Write(zap.String("entity", name), zap.Float32("delta_ms", deltaMs), zap.Uint64("updates", d.updates))
	}
}

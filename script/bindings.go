package script

import (
	"reflect"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/resource"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// EntityCreator instantiates class files for scripts.
type EntityCreator interface {
	CreateEntityFromClass(path string, parent *ecs.Entity, editorOnly bool) (*ecs.Entity, error)
}

// Bindings are the engine services reachable from scripts. Fields may be filled
// after the schema is built; they are read when a script calls in.
type Bindings struct {
	Events  *event.Manager
	Loader  *resource.Loader
	Storage *ecs.Storage
	Factory EntityCreator
	Logger  *zap.Logger
}

// Entity is the script view of an entity: a generation-checked handle. Calls on
// a handle whose entity was destroyed raise a Lua error.
type Entity struct {
	ID      ecs.EntityId
	Storage *ecs.Storage
}

func (h *Entity) resolve(L *lua.LState) *ecs.Entity {
	if h.Storage == nil {
		L.RaiseError("entity handle is not bound to a storage")
		return nil
	}
	e, ok := h.Storage.Resolve(h.ID)
	if !ok {
		L.RaiseError("entity %s has been destroyed", h.ID)
		return nil
	}
	return e
}

// componentHandle is the script view of one component of an entity.
type componentHandle[T ecs.Component] struct {
	ref     ecs.ComponentRef[T]
	storage *ecs.Storage
}

func (h *componentHandle[T]) get(L *lua.LState) T {
	c, ok := h.ref.Get(h.storage)
	if !ok {
		L.RaiseError("component of %s is gone", h.ref.Entity)
	}
	return c
}

type (
	TransformHandle  = componentHandle[*component.Transform]
	PointLightHandle = componentHandle[*component.PointLight]
	ModelHandle      = componentHandle[*component.Model]
)

// VariantToLua converts an event payload to a Lua value.
func VariantToLua(L *lua.LState, schema *Schema, storage *ecs.Storage, v event.Variant) lua.LValue {
	switch v.Kind() {
	case event.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case event.KindNumber:
		n, _ := v.AsNumber()
		return lua.LNumber(n)
	case event.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case event.KindEntity:
		id, _ := v.AsEntity()
		return Wrap(L, schema, &Entity{ID: id, Storage: storage})
	case event.KindVector3:
		vec, _ := v.AsVector3()
		return Wrap(L, schema, &vec)
	default:
		return lua.LNil
	}
}

// LuaToVariant converts a script value to an event payload. Unsupported values become Nil.
func LuaToVariant(v lua.LValue) event.Variant {
	switch val := v.(type) {
	case lua.LBool:
		return event.Bool(bool(val))
	case lua.LNumber:
		return event.Number(float64(val))
	case lua.LString:
		return event.String(string(val))
	case *lua.LUserData:
		switch data := val.Value.(type) {
		case *Entity:
			return event.Entity(data.ID)
		case *mgl32.Vec3:
			return event.Vector3(*data)
		}
	}
	return event.Nil()
}

// NewEngineSchema builds and freezes the schema exposed under RTX. Extra types are
// installed after the engine's own.
func NewEngineSchema(b *Bindings, extra ...*Type) (*Schema, error) {
	s := NewSchema()
	for _, t := range mathTypes(s) {
		s.Add(t)
	}
	for _, t := range engineTypes(s, b) {
		s.Add(t)
	}
	for _, t := range extra {
		s.Add(t)
	}
	if err := s.Freeze(); err != nil {
		return nil, err
	}
	return s, nil
}

func engineTypes(s *Schema, b *Bindings) []*Type {
	wrap := func(L *lua.LState, v any) lua.LValue { return Wrap(L, s, v) }
	logger := func() *zap.Logger {
		if b.Logger == nil {
			return zap.NewNop()
		}
		return b.Logger
	}
	str := func(name string) Param { return Param{Name: name, Kind: ParamString} }
	vec3 := func(name string) Param { return Param{Name: name, Kind: ParamUserData, Type: "Vector3"} }

	eventType := &Type{
		Name:   "Event",
		GoType: reflect.TypeFor[*event.Event](),
		Fields: []Field{
			{Name: "name", Get: func(_ *lua.LState, self any) lua.LValue { return lua.LString(self.(*event.Event).Name()) }},
			{Name: "origin", Get: func(_ *lua.LState, self any) lua.LValue { return lua.LString(self.(*event.Event).Origin()) }},
			{Name: "payload", Get: func(L *lua.LState, self any) lua.LValue {
				return VariantToLua(L, s, b.Storage, self.(*event.Event).Payload())
			}},
		},
	}

	events := &Type{
		Name: "Events",
		Methods: []Method{
			{Name: "call", Static: true, Params: []Param{str("name"), {Name: "payload", Kind: ParamAny}}, Fn: func(c *Call) []lua.LValue {
				handled := b.Events.Call(c.String(0), "script", LuaToVariant(c.Args[1]))
				return []lua.LValue{lua.LBool(handled)}
			}},
			{Name: "defer", Static: true, Params: []Param{str("name"), {Name: "payload", Kind: ParamAny}}, Fn: func(c *Call) []lua.LValue {
				b.Events.Defer(c.String(0), "script", LuaToVariant(c.Args[1]))
				return nil
			}},
		},
	}

	textResource := &Type{
		Name:   "TextResource",
		GoType: reflect.TypeFor[*resource.Text](),
		Fields: []Field{
			{Name: "path", Get: func(_ *lua.LState, self any) lua.LValue { return lua.LString(self.(*resource.Text).Path()) }},
		},
		Methods: []Method{
			{Name: "text", Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{lua.LString(c.Self.(*resource.Text).String())}
			}},
		},
	}

	resources := &Type{
		Name: "Resources",
		Methods: []Method{
			{Name: "loadText", Static: true, Params: []Param{str("path")}, Fn: func(c *Call) []lua.LValue {
				text, err := b.Loader.LoadText(c.String(0))
				if err != nil {
					c.L.RaiseError("%s", err.Error())
				}
				return []lua.LValue{wrap(c.L, text)}
			}},
		},
	}

	entity := &Type{
		Name:   "Entity",
		GoType: reflect.TypeFor[*Entity](),
		Fields: []Field{
			// Lua numbers are float64, so the packed handle travels as a decimal string.
			{Name: "id", Get: func(_ *lua.LState, self any) lua.LValue {
				return lua.LString(strconv.FormatUint(uint64(self.(*Entity).ID), 10))
			}},
			{Name: "index", Get: func(_ *lua.LState, self any) lua.LValue { return lua.LNumber(self.(*Entity).ID.Index()) }},
			{Name: "generation", Get: func(_ *lua.LState, self any) lua.LValue {
				return lua.LNumber(self.(*Entity).ID.Generation())
			}},
		},
		Methods: []Method{
			{Name: "find", Static: true, Params: []Param{str("fullName")}, Fn: func(c *Call) []lua.LValue {
				e, ok := b.Storage.Find(c.String(0))
				if !ok {
					return []lua.LValue{lua.LNil}
				}
				return []lua.LValue{wrap(c.L, &Entity{ID: e.ID(), Storage: b.Storage})}
			}},
			{Name: "isValid", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				return []lua.LValue{lua.LBool(h.Storage != nil && h.Storage.Alive(h.ID))}
			}},
			{Name: "getName", Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{lua.LString(c.Self.(*Entity).resolve(c.L).Name())}
			}},
			{Name: "getFullName", Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{lua.LString(c.Self.(*Entity).resolve(c.L).FullName())}
			}},
			{Name: "getParent", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				parent := h.resolve(c.L).Parent()
				if parent == nil || parent == h.Storage.Root() {
					return []lua.LValue{lua.LNil}
				}
				return []lua.LValue{wrap(c.L, &Entity{ID: parent.ID(), Storage: h.Storage})}
			}},
			{Name: "getChildren", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				list := c.L.NewTable()
				for _, child := range h.resolve(c.L).Children() {
					list.Append(wrap(c.L, &Entity{ID: child.ID(), Storage: h.Storage}))
				}
				return []lua.LValue{list}
			}},
			{Name: "hasComponent", Params: []Param{str("type")}, Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				ct, ok := h.Storage.Registry().Lookup(c.String(0))
				return []lua.LValue{lua.LBool(ok && h.resolve(c.L).HasComponent(ct.ID))}
			}},
			{Name: "getTransform", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				return []lua.LValue{componentValue[*component.Transform](c.L, s, h)}
			}},
			{Name: "getPointLight", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				return []lua.LValue{componentValue[*component.PointLight](c.L, s, h)}
			}},
			{Name: "getModel", Fn: func(c *Call) []lua.LValue {
				h := c.Self.(*Entity)
				return []lua.LValue{componentValue[*component.Model](c.L, s, h)}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__eq": func(c *Call) []lua.LValue {
				a, b := operands[*Entity](c)
				return []lua.LValue{lua.LBool(a.ID == b.ID && a.Storage == b.Storage)}
			},
		},
	}

	transform := &Type{
		Name:   "Transform",
		GoType: reflect.TypeFor[*TransformHandle](),
		Methods: []Method{
			{Name: "getPosition", Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*TransformHandle).get(c.L).Position()
				return []lua.LValue{wrap(c.L, &v)}
			}},
			{Name: "setPosition", Params: []Param{vec3("position")}, Fn: func(c *Call) []lua.LValue {
				c.Self.(*TransformHandle).get(c.L).SetPosition(*c.UserData(0).(*mgl32.Vec3))
				return nil
			}},
			{Name: "addPosition", Params: []Param{vec3("delta")}, Fn: func(c *Call) []lua.LValue {
				c.Self.(*TransformHandle).get(c.L).Translate(*c.UserData(0).(*mgl32.Vec3))
				return nil
			}},
			{Name: "getRotation", Fn: func(c *Call) []lua.LValue {
				q := c.Self.(*TransformHandle).get(c.L).Rotation()
				return []lua.LValue{wrap(c.L, &q)}
			}},
			{Name: "setRotation", Params: []Param{{Name: "rotation", Kind: ParamUserData, Type: "Quaternion"}}, Fn: func(c *Call) []lua.LValue {
				c.Self.(*TransformHandle).get(c.L).SetRotation(*c.UserData(0).(*mgl32.Quat))
				return nil
			}},
			{Name: "getScale", Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*TransformHandle).get(c.L).Scale()
				return []lua.LValue{wrap(c.L, &v)}
			}},
			{Name: "setScale", Params: []Param{vec3("scale")}, Fn: func(c *Call) []lua.LValue {
				c.Self.(*TransformHandle).get(c.L).SetScale(*c.UserData(0).(*mgl32.Vec3))
				return nil
			}},
			{Name: "getAbsoluteTransform", Fn: func(c *Call) []lua.LValue {
				m := c.Self.(*TransformHandle).get(c.L).World()
				return []lua.LValue{wrap(c.L, &m)}
			}},
		},
	}

	pointLight := &Type{
		Name:   "PointLight",
		GoType: reflect.TypeFor[*PointLightHandle](),
		Fields: []Field{
			lightNumber("range", func(l *component.PointLight) *float32 { return &l.Range }),
			lightNumber("diffuseIntensity", func(l *component.PointLight) *float32 { return &l.DiffuseIntensity }),
			lightNumber("constAtt", func(l *component.PointLight) *float32 { return &l.ConstAtt }),
			lightNumber("linAtt", func(l *component.PointLight) *float32 { return &l.LinAtt }),
			lightNumber("quadAtt", func(l *component.PointLight) *float32 { return &l.QuadAtt }),
			{
				Name: "diffuseColor", Kind: ParamUserData, Type: "Color",
				Get: func(L *lua.LState, self any) lua.LValue {
					col := Color(self.(*PointLightHandle).get(L).DiffuseColor)
					return Wrap(L, s, &col)
				},
				Set: func(L *lua.LState, self any, v lua.LValue) {
					self.(*PointLightHandle).get(L).DiffuseColor = mgl32.Vec4(*v.(*lua.LUserData).Value.(*Color))
				},
			},
		},
	}

	model := &Type{
		Name:   "Model",
		GoType: reflect.TypeFor[*ModelHandle](),
		Fields: []Field{
			{Name: "path", Get: func(L *lua.LState, self any) lua.LValue {
				return lua.LString(self.(*ModelHandle).get(L).Path())
			}},
			{
				Name: "visible", Kind: ParamBool,
				Get: func(L *lua.LState, self any) lua.LValue { return lua.LBool(self.(*ModelHandle).get(L).Visible()) },
				Set: func(L *lua.LState, self any, v lua.LValue) { self.(*ModelHandle).get(L).SetVisible(lua.LVAsBool(v)) },
			},
		},
	}

	factory := &Type{
		Name: "Factory",
		Methods: []Method{
			{Name: "createFromClass", Static: true, Params: []Param{
				str("path"),
				{Name: "parent", Kind: ParamUserData, Type: "Entity", Optional: true},
			}, Fn: func(c *Call) []lua.LValue {
				if b.Factory == nil {
					c.L.RaiseError("entity factory unavailable")
				}
				var parent *ecs.Entity
				if c.Has(1) {
					parent = c.UserData(1).(*Entity).resolve(c.L)
				}
				e, err := b.Factory.CreateEntityFromClass(c.String(0), parent, false)
				if err != nil {
					c.L.RaiseError("%s", err.Error())
				}
				return []lua.LValue{wrap(c.L, &Entity{ID: e.ID(), Storage: e.Storage()})}
			}},
		},
	}

	log := &Type{
		Name: "Log",
		Methods: []Method{
			{Name: "info", Static: true, Params: []Param{str("message")}, Fn: func(c *Call) []lua.LValue {
				logger().Info(c.String(0), zap.String("source", "script"))
				return nil
			}},
			{Name: "warn", Static: true, Params: []Param{str("message")}, Fn: func(c *Call) []lua.LValue {
				logger().Warn(c.String(0), zap.String("source", "script"))
				return nil
			}},
		},
	}

	return []*Type{eventType, events, textResource, resources, entity, transform, pointLight, model, factory, log}
}

func lightNumber(name string, ptr func(l *component.PointLight) *float32) Field {
	return Field{
		Name: name,
		Kind: ParamNumber,
		Get: func(L *lua.LState, self any) lua.LValue {
			return num(*ptr(self.(*PointLightHandle).get(L)))
		},
		Set: func(L *lua.LState, self any, v lua.LValue) {
			*ptr(self.(*PointLightHandle).get(L)) = float32(v.(lua.LNumber))
		},
	}
}

// componentValue returns the handle of h's T component, or nil when it has none.
func componentValue[T ecs.Component](L *lua.LState, s *Schema, h *Entity) lua.LValue {
	e := h.resolve(L)
	if _, ok := ecs.GetComponent[T](e); !ok {
		return lua.LNil
	}
	return Wrap(L, s, &componentHandle[T]{ref: ecs.RefTo[T](e), storage: h.Storage})
}

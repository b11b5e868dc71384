package script

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
)

// Color is the script-side RGBA color. It is distinct from Vector4 so both can be bound.
type Color mgl32.Vec4

func num(f float32) lua.LValue { return lua.LNumber(f) }

func numField(name string, ptr func(self any) *float32) Field {
	return Field{
		Name: name,
		Kind: ParamNumber,
		Get:  func(_ *lua.LState, self any) lua.LValue { return num(*ptr(self)) },
		Set: func(_ *lua.LState, self any, v lua.LValue) {
			*ptr(self) = float32(v.(lua.LNumber))
		},
	}
}

func numbers(n int) []Param {
	names := []string{"x", "y", "z", "w"}
	params := make([]Param, n)
	for i := range params {
		params[i] = Param{Name: names[i], Kind: ParamNumber, Optional: true}
	}
	return params
}

func vecFields(n int, names ...string) []Field {
	fields := make([]Field, n)
	for i := 0; i < n; i++ {
		i := i
		fields[i] = numField(names[i], func(self any) *float32 {
			return (*float32)(reflect.ValueOf(self).Elem().Index(i).Addr().UnsafePointer())
		})
	}
	return fields
}

// mathTypes exposes the mgl32 value types. Values are copied into the userdata,
// so a script never aliases a component's storage.
func mathTypes(s *Schema) []*Type {
	wrap := func(L *lua.LState, v any) lua.LValue { return Wrap(L, s, v) }

	vec2 := &Type{
		Name:   "Vector2",
		GoType: reflect.TypeFor[*mgl32.Vec2](),
		New: &Method{Name: "new", Params: numbers(2), Fn: func(c *Call) []lua.LValue {
			return []lua.LValue{wrap(c.L, &mgl32.Vec2{c.Number(0), c.Number(1)})}
		}},
		Fields: vecFields(2, "x", "y"),
		Methods: []Method{
			{Name: "dot", Params: []Param{{Name: "other", Kind: ParamUserData, Type: "Vector2"}}, Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{num(c.Self.(*mgl32.Vec2).Dot(*c.UserData(0).(*mgl32.Vec2)))}
			}},
			{Name: "length", Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{num(c.Self.(*mgl32.Vec2).Len())}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__add": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec2](c)
				v := a.Add(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
			"__sub": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec2](c)
				v := a.Sub(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
			"__eq": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec2](c)
				return []lua.LValue{lua.LBool(*a == *b)}
			},
			"__tostring": func(c *Call) []lua.LValue {
				v := c.UserData(0).(*mgl32.Vec2)
				return []lua.LValue{lua.LString(fmt.Sprintf("Vector2(%g, %g)", v[0], v[1]))}
			},
		},
	}

	vec3 := &Type{
		Name:   "Vector3",
		GoType: reflect.TypeFor[*mgl32.Vec3](),
		New: &Method{Name: "new", Params: numbers(3), Fn: func(c *Call) []lua.LValue {
			return []lua.LValue{wrap(c.L, &mgl32.Vec3{c.Number(0), c.Number(1), c.Number(2)})}
		}},
		Fields: vecFields(3, "x", "y", "z"),
		Methods: []Method{
			{Name: "dot", Params: []Param{{Name: "other", Kind: ParamUserData, Type: "Vector3"}}, Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{num(c.Self.(*mgl32.Vec3).Dot(*c.UserData(0).(*mgl32.Vec3)))}
			}},
			{Name: "cross", Params: []Param{{Name: "other", Kind: ParamUserData, Type: "Vector3"}}, Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*mgl32.Vec3).Cross(*c.UserData(0).(*mgl32.Vec3))
				return []lua.LValue{wrap(c.L, &v)}
			}},
			{Name: "length", Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{num(c.Self.(*mgl32.Vec3).Len())}
			}},
			{Name: "normalize", Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*mgl32.Vec3).Normalize()
				return []lua.LValue{wrap(c.L, &v)}
			}},
			{Name: "scale", Params: []Param{{Name: "factor", Kind: ParamNumber}}, Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*mgl32.Vec3).Mul(c.Number(0))
				return []lua.LValue{wrap(c.L, &v)}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__add": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec3](c)
				v := a.Add(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
			"__sub": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec3](c)
				v := a.Sub(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
			"__mul": func(c *Call) []lua.LValue {
				v, scalar := vecAndScalar3(c)
				out := v.Mul(scalar)
				return []lua.LValue{wrap(c.L, &out)}
			},
			"__eq": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec3](c)
				return []lua.LValue{lua.LBool(*a == *b)}
			},
			"__tostring": func(c *Call) []lua.LValue {
				v := c.UserData(0).(*mgl32.Vec3)
				return []lua.LValue{lua.LString(fmt.Sprintf("Vector3(%g, %g, %g)", v[0], v[1], v[2]))}
			},
		},
	}

	vec4 := &Type{
		Name:   "Vector4",
		GoType: reflect.TypeFor[*mgl32.Vec4](),
		New: &Method{Name: "new", Params: numbers(4), Fn: func(c *Call) []lua.LValue {
			return []lua.LValue{wrap(c.L, &mgl32.Vec4{c.Number(0), c.Number(1), c.Number(2), c.Number(3)})}
		}},
		Fields: vecFields(4, "x", "y", "z", "w"),
		Methods: []Method{
			{Name: "dot", Params: []Param{{Name: "other", Kind: ParamUserData, Type: "Vector4"}}, Fn: func(c *Call) []lua.LValue {
				return []lua.LValue{num(c.Self.(*mgl32.Vec4).Dot(*c.UserData(0).(*mgl32.Vec4)))}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__add": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec4](c)
				v := a.Add(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
			"__sub": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Vec4](c)
				v := a.Sub(*b)
				return []lua.LValue{wrap(c.L, &v)}
			},
		},
	}

	color := &Type{
		Name:   "Color",
		GoType: reflect.TypeFor[*Color](),
		New: &Method{Name: "new", Params: []Param{
			{Name: "r", Kind: ParamNumber, Optional: true},
			{Name: "g", Kind: ParamNumber, Optional: true},
			{Name: "b", Kind: ParamNumber, Optional: true},
			{Name: "a", Kind: ParamNumber, Optional: true},
		}, Fn: func(c *Call) []lua.LValue {
			a := float32(1)
			if c.Has(3) {
				a = c.Number(3)
			}
			return []lua.LValue{wrap(c.L, &Color{c.Number(0), c.Number(1), c.Number(2), a})}
		}},
		Fields: vecFields(4, "r", "g", "b", "a"),
	}

	quat := &Type{
		Name:   "Quaternion",
		GoType: reflect.TypeFor[*mgl32.Quat](),
		New: &Method{Name: "new", Params: numbers(4), Fn: func(c *Call) []lua.LValue {
			q := mgl32.QuatIdent()
			if c.Has(3) {
				q = mgl32.Quat{W: c.Number(3), V: mgl32.Vec3{c.Number(0), c.Number(1), c.Number(2)}}
			}
			return []lua.LValue{wrap(c.L, &q)}
		}},
		Fields: []Field{
			numField("x", func(self any) *float32 { return &self.(*mgl32.Quat).V[0] }),
			numField("y", func(self any) *float32 { return &self.(*mgl32.Quat).V[1] }),
			numField("z", func(self any) *float32 { return &self.(*mgl32.Quat).V[2] }),
			numField("w", func(self any) *float32 { return &self.(*mgl32.Quat).W }),
		},
		Methods: []Method{
			{Name: "fromAxisAngle", Static: true, Params: []Param{
				{Name: "axis", Kind: ParamUserData, Type: "Vector3"},
				{Name: "degrees", Kind: ParamNumber},
			}, Fn: func(c *Call) []lua.LValue {
				q := mgl32.QuatRotate(mgl32.DegToRad(c.Number(1)), c.UserData(0).(*mgl32.Vec3).Normalize())
				return []lua.LValue{wrap(c.L, &q)}
			}},
			{Name: "rotate", Params: []Param{{Name: "v", Kind: ParamUserData, Type: "Vector3"}}, Fn: func(c *Call) []lua.LValue {
				v := c.Self.(*mgl32.Quat).Rotate(*c.UserData(0).(*mgl32.Vec3))
				return []lua.LValue{wrap(c.L, &v)}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__mul": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Quat](c)
				q := a.Mul(*b)
				return []lua.LValue{wrap(c.L, &q)}
			},
		},
	}

	matrix := &Type{
		Name:   "Matrix",
		GoType: reflect.TypeFor[*mgl32.Mat4](),
		New: &Method{Name: "new", Fn: func(c *Call) []lua.LValue {
			m := mgl32.Ident4()
			return []lua.LValue{wrap(c.L, &m)}
		}},
		Methods: []Method{
			{Name: "translation", Static: true, Params: []Param{{Name: "v", Kind: ParamUserData, Type: "Vector3"}}, Fn: func(c *Call) []lua.LValue {
				v := c.UserData(0).(*mgl32.Vec3)
				m := mgl32.Translate3D(v[0], v[1], v[2])
				return []lua.LValue{wrap(c.L, &m)}
			}},
			{Name: "transformPoint", Params: []Param{{Name: "p", Kind: ParamUserData, Type: "Vector3"}}, Fn: func(c *Call) []lua.LValue {
				v := mgl32.TransformCoordinate(*c.UserData(0).(*mgl32.Vec3), *c.Self.(*mgl32.Mat4))
				return []lua.LValue{wrap(c.L, &v)}
			}},
			{Name: "inverse", Fn: func(c *Call) []lua.LValue {
				m := c.Self.(*mgl32.Mat4).Inv()
				return []lua.LValue{wrap(c.L, &m)}
			}},
		},
		Meta: map[string]func(c *Call) []lua.LValue{
			"__add": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Mat4](c)
				m := a.Add(*b)
				return []lua.LValue{wrap(c.L, &m)}
			},
			"__sub": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Mat4](c)
				m := a.Sub(*b)
				return []lua.LValue{wrap(c.L, &m)}
			},
			"__mul": func(c *Call) []lua.LValue {
				a, b := operands[*mgl32.Mat4](c)
				m := a.Mul4(*b)
				return []lua.LValue{wrap(c.L, &m)}
			},
		},
	}

	return []*Type{vec2, vec3, vec4, color, quat, matrix}
}

// vecAndScalar3 accepts v*s and s*v.
func vecAndScalar3(c *Call) (mgl32.Vec3, float32) {
	if v, ok := c.UserData(0).(*mgl32.Vec3); ok {
		if n, ok := c.Args[1].(lua.LNumber); ok {
			return *v, float32(n)
		}
	}
	if v, ok := c.UserData(1).(*mgl32.Vec3); ok {
		if n, ok := c.Args[0].(lua.LNumber); ok {
			return *v, float32(n)
		}
	}
	c.L.RaiseError("Vector3 can only be multiplied by a number")
	return mgl32.Vec3{}, 0
}

// operands returns both operands of a binary metamethod, raising a Lua error when
// either is not a T.
func operands[T any](c *Call) (T, T) {
	a, okA := c.UserData(0).(T)
	b, okB := c.UserData(1).(T)
	if !okA || !okB {
		c.L.RaiseError("invalid operands %s and %s", c.Args[0].Type(), c.Args[1].Type())
	}
	return a, b
}

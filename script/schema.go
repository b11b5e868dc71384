// Package script embeds the Lua runtime: the binding schema exposed to scripts,
// the interpreter that owns the Lua state, and the ScriptComponent that runs a
// script file for an entity.
package script

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// ParamKind is the declared kind of a method parameter.
type ParamKind uint8

const (
	ParamAny ParamKind = iota
	ParamNumber
	ParamString
	ParamBool
	ParamTable
	ParamFunction
	// ParamUserData requires a value of the exposed type named by Param.Type.
	ParamUserData
)

func (k ParamKind) String() string {
	switch k {
	case ParamAny:
		return "any"
	case ParamNumber:
		return "number"
	case ParamString:
		return "string"
	case ParamBool:
		return "boolean"
	case ParamTable:
		return "table"
	case ParamFunction:
		return "function"
	case ParamUserData:
		return "userdata"
	default:
		return fmt.Sprintf("ParamKind(%d)", uint8(k))
	}
}

// Param declares one method argument.
type Param struct {
	Name     string
	Kind     ParamKind
	Type     string
	Optional bool
}

// Call carries the receiver and checked arguments of a bound method.
type Call struct {
	L    *lua.LState
	Self any
	Args []lua.LValue
}

func (c *Call) Number(i int) float32 {
	n, _ := c.Args[i].(lua.LNumber)
	return float32(n)
}

func (c *Call) String(i int) string {
	return lua.LVAsString(c.Args[i])
}

func (c *Call) Bool(i int) bool {
	return lua.LVAsBool(c.Args[i])
}

// Has reports whether optional argument i was passed.
func (c *Call) Has(i int) bool {
	return i < len(c.Args) && c.Args[i] != lua.LNil
}

// UserData returns the Go value behind argument i.
func (c *Call) UserData(i int) any {
	if ud, ok := c.Args[i].(*lua.LUserData); ok {
		return ud.Value
	}
	return nil
}

// Method is a function exposed on a type. Static methods live on the type table
// (RTX.Type.name) and receive a nil Self; the others are called with ':' on a value.
type Method struct {
	Name   string
	Params []Param
	Static bool
	Fn     func(c *Call) []lua.LValue
}

// Field is a property of an exposed type. A nil Set makes it read-only.
type Field struct {
	Name string
	Get  func(L *lua.LState, self any) lua.LValue
	Set  func(L *lua.LState, self any, v lua.LValue)
	Kind ParamKind
	Type string
}

// Type describes one exposed Go type.
type Type struct {
	Name string
	// GoType is the dynamic type of the values wrapped as this Lua type.
	GoType reflect.Type
	// New builds a value from constructor arguments; nil means scripts cannot construct it.
	New     *Method
	Fields  []Field
	Methods []Method
	// Meta holds operator metamethods keyed by name (__add, __sub, __mul, __eq, __tostring).
	// Both operands are passed as Args; Self is nil.
	Meta map[string]func(c *Call) []lua.LValue

	fields  map[string]*Field
	methods map[string]*Method
}

// Schema is the binding table installed into the interpreter's RTX global.
// It is built once at startup and read-only after Freeze.
type Schema struct {
	types  []*Type
	byName map[string]*Type
	byGo   map[reflect.Type]*Type
	frozen bool
}

func NewSchema() *Schema {
	return &Schema{
		byName: make(map[string]*Type),
		byGo:   make(map[reflect.Type]*Type),
	}
}

// Add appends t. Validation happens in Freeze.
func (s *Schema) Add(t *Type) {
	if s.frozen {
		panic("script: schema is frozen, cannot add " + t.Name)
	}
	s.types = append(s.types, t)
}

var (
	ErrSchemaFrozen  = errors.New("schema not frozen")
	ErrInvalidSchema = errors.New("invalid schema")
)

// Freeze validates the schema and makes it read-only.
func (s *Schema) Freeze() error {
	if s.frozen {
		return nil
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSchema}, args...)...))
	}

	for _, t := range s.types {
		if t.Name == "" {
			fail("type with empty name")
			continue
		}
		if _, dup := s.byName[t.Name]; dup {
			fail("type %s declared twice", t.Name)
			continue
		}
		s.byName[t.Name] = t
		if t.GoType != nil {
			if other, dup := s.byGo[t.GoType]; dup {
				fail("go type %s bound to both %s and %s", t.GoType, other.Name, t.Name)
			} else {
				s.byGo[t.GoType] = t
			}
		}
	}

	for _, t := range s.types {
		t.fields = make(map[string]*Field, len(t.Fields))
		t.methods = make(map[string]*Method, len(t.Methods))
		for i := range t.Fields {
			f := &t.Fields[i]
			if f.Get == nil {
				fail("%s.%s has no getter", t.Name, f.Name)
			}
			if _, dup := t.fields[f.Name]; dup {
				fail("%s.%s declared twice", t.Name, f.Name)
			}
			if f.Kind == ParamUserData {
				if _, ok := s.byName[f.Type]; !ok {
					fail("%s.%s references unknown type %q", t.Name, f.Name, f.Type)
				}
			}
			t.fields[f.Name] = f
		}
		methods := t.Methods
		if t.New != nil {
			methods = append([]Method{*t.New}, methods...)
		}
		for i := range methods {
			m := &methods[i]
			if m.Fn == nil {
				fail("%s.%s has no function", t.Name, m.Name)
			}
			for _, p := range m.Params {
				if p.Kind == ParamUserData {
					if _, ok := s.byName[p.Type]; !ok {
						fail("%s.%s parameter %s references unknown type %q", t.Name, m.Name, p.Name, p.Type)
					}
				}
			}
		}
		for i := range t.Methods {
			m := &t.Methods[i]
			if _, dup := t.methods[m.Name]; dup {
				fail("%s.%s declared twice", t.Name, m.Name)
			}
			if _, clash := t.fields[m.Name]; clash {
				fail("%s.%s is both a field and a method", t.Name, m.Name)
			}
			t.methods[m.Name] = m
		}
	}

	if len(errs) > 0 {
		s.byName = make(map[string]*Type)
		s.byGo = make(map[reflect.Type]*Type)
		return errors.Join(errs...)
	}
	s.frozen = true
	return nil
}

func (s *Schema) Frozen() bool { return s.frozen }

// Lookup returns the exposed type with the given name.
func (s *Schema) Lookup(name string) (*Type, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// TypeOf returns the exposed type bound to v's dynamic Go type.
func (s *Schema) TypeOf(v any) (*Type, bool) {
	t, ok := s.byGo[reflect.TypeOf(v)]
	return t, ok
}

// Names returns the exposed type names in sorted order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.types))
	for _, t := range s.types {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

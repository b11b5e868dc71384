package script

import (
	"fmt"
	"runtime/debug"

	"github.com/plus3/rtx/resource"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// GlobalTable is the name of the global table holding every exposed type.
const GlobalTable = "RTX"

var stdLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
	{lua.OsLibName, lua.OpenOs},
}

// Interpreter owns the single Lua state shared by every script.
// It is not safe for concurrent use; scripts only run on the frame goroutine.
type Interpreter struct {
	L      *lua.LState
	schema *Schema
	logger *zap.Logger
	rtx    *lua.LTable
}

// NewInterpreter opens the standard libraries and installs the frozen schema.
func NewInterpreter(schema *Schema, logger *zap.Logger) (*Interpreter, error) {
	if !schema.Frozen() {
		return nil, ErrSchemaFrozen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true, IncludeGoStackTrace: true})
	for _, lib := range stdLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	in := &Interpreter{L: L, schema: schema, logger: logger}
	in.install()
	return in, nil
}

// Close releases the Lua state.
func (in *Interpreter) Close() {
	in.L.Close()
}

func (in *Interpreter) Schema() *Schema { return in.schema }

func (in *Interpreter) install() {
	L := in.L
	in.rtx = L.NewTable()
	for _, t := range in.schema.types {
		in.installType(t)
	}
	L.SetGlobal(GlobalTable, in.rtx)
}

func (in *Interpreter) installType(t *Type) {
	L := in.L
	typeTable := L.NewTable()
	for i := range t.Methods {
		m := &t.Methods[i]
		if m.Static {
			typeTable.RawSetString(m.Name, L.NewFunction(in.bindStatic(t, m)))
		}
	}
	if t.New != nil {
		ctor := L.NewFunction(in.bindStatic(t, t.New))
		typeTable.RawSetString("new", ctor)
		callMeta := L.NewTable()
		callMeta.RawSetString("__call", L.NewFunction(func(L *lua.LState) int {
			// drop the type table passed as first argument
			L.Remove(1)
			return ctor.GFunction(L)
		}))
		L.SetMetatable(typeTable, callMeta)
	}
	in.rtx.RawSetString(t.Name, typeTable)

	mt := L.NewTypeMetatable(t.Name)
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		self := in.checkSelf(L, t, 1)
		key := L.CheckString(2)
		if f, ok := t.fields[key]; ok {
			L.Push(f.Get(L, self))
			return 1
		}
		if m, ok := t.methods[key]; ok && !m.Static {
			L.Push(L.NewFunction(in.bindMethod(t, m)))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		self := in.checkSelf(L, t, 1)
		key := L.CheckString(2)
		f, ok := t.fields[key]
		if !ok {
			L.RaiseError("%s has no field %q", t.Name, key)
			return 0
		}
		if f.Set == nil {
			L.RaiseError("%s.%s is read-only", t.Name, key)
			return 0
		}
		value := L.Get(3)
		in.checkValue(L, 3, value, Param{Name: key, Kind: f.Kind, Type: f.Type})
		f.Set(L, self, value)
		return 0
	}))
	for name, fn := range t.Meta {
		fn := fn
		mt.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			args := make([]lua.LValue, L.GetTop())
			for i := range args {
				args[i] = L.Get(i + 1)
			}
			return pushAll(L, fn(&Call{L: L, Args: args}))
		}))
	}
	if _, ok := t.Meta["__tostring"]; !ok {
		mt.RawSetString("__tostring", L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LString(fmt.Sprintf("%s(%v)", t.Name, L.CheckUserData(1).Value)))
			return 1
		}))
	}
}

func (in *Interpreter) bindStatic(t *Type, m *Method) lua.LGFunction {
	return func(L *lua.LState) int {
		args := in.checkArgs(L, t, m, 1)
		return pushAll(L, m.Fn(&Call{L: L, Args: args}))
	}
}

func (in *Interpreter) bindMethod(t *Type, m *Method) lua.LGFunction {
	return func(L *lua.LState) int {
		self := in.checkSelf(L, t, 1)
		args := in.checkArgs(L, t, m, 2)
		return pushAll(L, m.Fn(&Call{L: L, Self: self, Args: args}))
	}
}

func (in *Interpreter) checkSelf(L *lua.LState, t *Type, n int) any {
	ud, ok := L.Get(n).(*lua.LUserData)
	if !ok || ud.Metatable != L.GetTypeMetatable(t.Name) {
		L.ArgError(n, t.Name+" expected (did you use '.' instead of ':'?)")
		return nil
	}
	return ud.Value
}

func (in *Interpreter) checkArgs(L *lua.LState, t *Type, m *Method, first int) []lua.LValue {
	args := make([]lua.LValue, len(m.Params))
	for i, p := range m.Params {
		n := first + i
		value := L.Get(n)
		if value == lua.LNil {
			if !p.Optional && p.Kind != ParamAny {
				L.ArgError(n, fmt.Sprintf("%s.%s: %s expected for %s", t.Name, m.Name, p.Kind, p.Name))
			}
			args[i] = lua.LNil
			continue
		}
		in.checkValue(L, n, value, p)
		args[i] = value
	}
	return args
}

func (in *Interpreter) checkValue(L *lua.LState, n int, value lua.LValue, p Param) {
	ok := true
	switch p.Kind {
	case ParamNumber:
		_, ok = value.(lua.LNumber)
	case ParamString:
		_, ok = value.(lua.LString)
	case ParamBool:
		_, ok = value.(lua.LBool)
	case ParamTable:
		_, ok = value.(*lua.LTable)
	case ParamFunction:
		_, ok = value.(*lua.LFunction)
	case ParamUserData:
		ud, isUD := value.(*lua.LUserData)
		ok = isUD && ud.Metatable == L.GetTypeMetatable(p.Type)
	}
	if !ok {
		want := p.Kind.String()
		if p.Kind == ParamUserData {
			want = p.Type
		}
		L.ArgError(n, fmt.Sprintf("%s expected for %s, got %s", want, p.Name, value.Type()))
	}
}

func pushAll(L *lua.LState, values []lua.LValue) int {
	for _, v := range values {
		L.Push(v)
	}
	return len(values)
}

// Wrap exposes a Go value as a userdata of its bound type. Values without a bound
// type become nil.
func (in *Interpreter) Wrap(v any) lua.LValue {
	return Wrap(in.L, in.schema, v)
}

// Wrap exposes v through the metatable of its bound type.
func Wrap(L *lua.LState, schema *Schema, v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	t, ok := schema.TypeOf(v)
	if !ok {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = v
	L.SetMetatable(ud, L.GetTypeMetatable(t.Name))
	return ud
}

// NewEnv creates a private global table for one script. Lookups fall through to _G,
// assignments stay private.
func (in *Interpreter) NewEnv() *lua.LTable {
	env := in.L.NewTable()
	mt := in.L.NewTable()
	mt.RawSetString("__index", in.L.G.Global)
	in.L.SetMetatable(env, mt)
	return env
}

// Run executes a compiled chunk with env as its global table.
func (in *Interpreter) Run(chunk *resource.LuaScript, env *lua.LTable) error {
	fn := in.L.NewFunctionFromProto(chunk.Proto())
	fn.Env = env
	return in.protect(chunk.Path(), "load", func() error {
		in.L.Push(fn)
		return in.L.PCall(0, 0, nil)
	})
}

// DoString runs source in the global environment. Used by tools and tests.
func (in *Interpreter) DoString(name, source string) error {
	return in.protect(name, "load", func() error {
		return in.L.DoString(source)
	})
}

// Call invokes fn with args, discarding results.
func (in *Interpreter) Call(scriptPath, hook string, fn lua.LValue, args ...lua.LValue) error {
	return in.protect(scriptPath, hook, func() error {
		in.L.Push(fn)
		for _, a := range args {
			in.L.Push(a)
		}
		return in.L.PCall(len(args), 0, nil)
	})
}

func (in *Interpreter) protect(scriptPath, hook string, fn func() error) (err error) {
	top := in.L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			in.L.SetTop(top)
			err = &FatalPanic{Script: scriptPath, Hook: hook, Value: r, Stack: string(debug.Stack())}
		}
	}()
	err = convertError(scriptPath, hook, fn())
	in.L.SetTop(top)
	return err
}

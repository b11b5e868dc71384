package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/event"
	"github.com/plus3/rtx/resource"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Script hook names looked up in a script's environment.
const (
	HookBegin  = "onBegin"
	HookUpdate = "onUpdate"
	HookEnd    = "onEnd"
)

// Runtime is what every ScriptComponent shares.
type Runtime struct {
	Interp *Interpreter
	Events *event.Manager
	Loader *resource.Loader
	Logger *zap.Logger
	Policy PanicPolicy
}

// Register adds ScriptComponent to the registry.
func Register(r *ecs.ComponentRegistry, rt *Runtime) {
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}
	if rt.Policy == "" {
		rt.Policy = PanicDisable
	}
	ecs.RegisterComponent(r, component.ScriptID, component.ScriptName, func(data []byte) (*ScriptComponent, error) {
		return NewScriptComponent(data, rt)
	})
}

type scriptDef struct {
	Script      string            `json:"script"`
	Connections map[string]string `json:"connections"`
}

// ScriptComponent runs one Lua file in a private environment for its entity.
// The chunk's globals onBegin, onUpdate and onEnd are the lifecycle hooks; other
// functions can be connected to events by name.
type ScriptComponent struct {
	ecs.BaseComponent
	rt          *Runtime
	path        string
	script      *resource.LuaScript
	env         *lua.LTable
	connections map[string]string
	subscriber  event.SubscriberID
}

// NewScriptComponent builds a component from {"script": path, "connections": {function: event}}.
func NewScriptComponent(data []byte, rt *Runtime) (*ScriptComponent, error) {
	var def scriptDef
	if err := component.Decode(data, &def); err != nil {
		return nil, err
	}
	if def.Script == "" {
		return nil, fmt.Errorf("%w: script component needs a script path", ecs.ErrMalformedDefinition)
	}
	s := &ScriptComponent{
		rt:          rt,
		path:        resource.Normalize(def.Script),
		connections: make(map[string]string, len(def.Connections)),
		subscriber:  event.SubscriberID(uuid.NewString()),
	}
	for fn, ev := range def.Connections {
		s.connections[fn] = ev
	}
	return s, nil
}

func (*ScriptComponent) ComponentID() ecs.ComponentID { return component.ScriptID }
func (*ScriptComponent) Name() string                 { return component.ScriptName }

func (s *ScriptComponent) Serialize() any {
	connections := make(map[string]string, len(s.connections))
	for fn, ev := range s.connections {
		connections[fn] = ev
	}
	return map[string]any{"type": component.ScriptName, "script": s.path, "connections": connections}
}

func (s *ScriptComponent) Path() string { return s.path }

// Subscriber returns the identity the component subscribes to events with.
func (s *ScriptComponent) Subscriber() event.SubscriberID { return s.subscriber }

// Connections returns a copy of the function to event table.
func (s *ScriptComponent) Connections() map[string]string {
	out := make(map[string]string, len(s.connections))
	for fn, ev := range s.connections {
		out[fn] = ev
	}
	return out
}

// Env returns the script's private global table, nil before Setup.
func (s *ScriptComponent) Env() *lua.LTable { return s.env }

// Setup loads the script, runs its chunk and establishes the declared connections.
func (s *ScriptComponent) Setup() bool {
	script, err := s.rt.Loader.LoadLua(s.path)
	if err != nil {
		s.logger().Warn("script load failed", zap.Error(err))
		return false
	}
	s.script = script
	s.env = s.rt.Interp.NewEnv()

	L := s.rt.Interp.L
	s.env.RawSetString("entity", s.rt.Interp.Wrap(&Entity{ID: s.Owner(), Storage: s.Storage()}))
	s.env.RawSetString("connect", L.NewFunction(func(L *lua.LState) int {
		s.Connect(L.CheckString(1), L.CheckString(2))
		return 0
	}))

	if err := s.rt.Interp.Run(script, s.env); err != nil {
		s.handle("load", err)
		return false
	}
	subscribed := make(map[string]bool, len(s.connections))
	for _, ev := range s.connections {
		if !subscribed[ev] {
			subscribed[ev] = true
			s.resubscribe(ev)
		}
	}
	return true
}

// Connect routes event ev to the script function named fn. A function is connected
// to at most one event.
func (s *ScriptComponent) Connect(fn, ev string) {
	old, had := s.connections[fn]
	s.connections[fn] = ev
	if s.env == nil {
		return
	}
	if had && old != ev {
		s.resubscribe(old)
	}
	s.resubscribe(ev)
}

// resubscribe installs one handler for ev that calls every function connected to it
// in name order, or drops the subscription when none is left.
func (s *ScriptComponent) resubscribe(ev string) {
	var functions []string
	for fn, target := range s.connections {
		if target == ev {
			functions = append(functions, fn)
		}
	}
	if len(functions) == 0 {
		s.rt.Events.Unsubscribe(s.subscriber, ev)
		return
	}
	sort.Strings(functions)
	s.rt.Events.Subscribe(ev, s.subscriber, func(e *event.Event) {
		arg := s.rt.Interp.Wrap(e)
		for _, fn := range functions {
			if !s.Enabled() || s.env == nil {
				return
			}
			s.invoke(fn, arg)
		}
	})
}

// Call runs the script function fn with no arguments.
func (s *ScriptComponent) Call(fn string) {
	s.invoke(fn)
}

func (s *ScriptComponent) OnBegin() { s.invoke(HookBegin) }

func (s *ScriptComponent) OnUpdate(deltaMs float32) { s.invoke(HookUpdate, lua.LNumber(deltaMs)) }

func (s *ScriptComponent) OnEnd() { s.invoke(HookEnd) }

// Defines reports whether the script defines a function named fn.
func (s *ScriptComponent) Defines(fn string) bool {
	if s.env == nil {
		return false
	}
	_, ok := s.env.RawGetString(fn).(*lua.LFunction)
	return ok
}

func (s *ScriptComponent) invoke(fn string, args ...lua.LValue) {
	if s.env == nil || !s.Enabled() {
		return
	}
	f, ok := s.env.RawGetString(fn).(*lua.LFunction)
	if !ok {
		return
	}
	if err := s.rt.Interp.Call(s.path, fn, f, args...); err != nil {
		s.handle(fn, err)
	}
}

func (s *ScriptComponent) handle(hook string, err error) {
	logger := s.logger().With(zap.String("hook", hook))

	var fatal *FatalPanic
	if !errors.As(err, &fatal) {
		logger.Error("script error", zap.Error(err))
		return
	}
	if s.rt.Policy == PanicAbort {
		logger.Fatal("script panic", zap.Error(err), zap.String("stack", fatal.Stack))
		return
	}
	logger.Error("script panic, disabling script", zap.Error(err))
	s.SetEnabled(false)
	s.rt.Events.UnsubscribeAll(s.subscriber)
}

func (s *ScriptComponent) logger() *zap.Logger {
	name := ""
	if e := s.OwnerEntity(); e != nil {
		name = e.FullName()
	}
	return s.rt.Logger.With(zap.String("entity", name), zap.String("script", s.path))
}

// OnDestroy drops every event subscription of the script.
func (s *ScriptComponent) OnDestroy() {
	s.rt.Events.UnsubscribeAll(s.subscriber)
	s.env = nil
}

// System calls OnUpdate on every enabled script of a live gameplay entity.
type System struct{}

func (System) SystemName() string { return "ScriptSystem" }

func (System) Execute(frame *ecs.UpdateFrame) {
	for c := range frame.Storage.ComponentsByID(component.ScriptID) {
		s, ok := c.(*ScriptComponent)
		if !ok || !s.Enabled() {
			continue
		}
		e, ok := frame.Storage.Resolve(s.Owner())
		if !ok || e.EditorOnly() {
			continue
		}
		s.OnUpdate(frame.DeltaMs)
	}
}

// Scripts returns every script component of live gameplay entities in hierarchy order.
func Scripts(storage *ecs.Storage) []*ScriptComponent {
	var out []*ScriptComponent
	storage.Root().Walk(func(e *ecs.Entity) bool {
		if e.EditorOnly() {
			return false
		}
		if s, ok := ecs.GetComponent[*ScriptComponent](e); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

package script

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// RuntimeError is a recoverable Lua error raised by a script. The frame continues.
type RuntimeError struct {
	Script    string
	Hook      string
	Message   string
	Traceback string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("lua error in %s (%s): %s", e.Script, e.Hook, e.Message)
}

// FatalPanic is a Go panic recovered while a script was running. The interpreter
// state may be inconsistent for that script.
type FatalPanic struct {
	Script string
	Hook   string
	Value  any
	Stack  string
}

func (e *FatalPanic) Error() string {
	return fmt.Sprintf("panic in %s (%s): %v", e.Script, e.Hook, e.Value)
}

// PanicPolicy decides what happens to a script after a FatalPanic.
type PanicPolicy string

const (
	// PanicDisable disables the failing script component and drops its subscriptions.
	PanicDisable PanicPolicy = "disable"
	// PanicAbort logs at fatal level, which terminates the process.
	PanicAbort PanicPolicy = "abort"
)

// ParsePanicPolicy maps a config value to a policy. Empty means PanicDisable.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch PanicPolicy(s) {
	case "", PanicDisable:
		return PanicDisable, nil
	case PanicAbort:
		return PanicAbort, nil
	default:
		return "", fmt.Errorf("unknown script panic policy %q", s)
	}
}

// convertError maps a gopher-lua error to RuntimeError or FatalPanic.
func convertError(scriptPath, hook string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return &RuntimeError{Script: scriptPath, Hook: hook, Message: err.Error()}
	}
	if apiErr.Type == lua.ApiErrorPanic {
		var value any = apiErr.Object
		if apiErr.Cause != nil {
			value = apiErr.Cause
		}
		return &FatalPanic{Script: scriptPath, Hook: hook, Value: value, Stack: apiErr.StackTrace}
	}
	msg := apiErr.Object.String()
	if apiErr.Object == lua.LNil && apiErr.Cause != nil {
		msg = apiErr.Cause.Error()
	}
	return &RuntimeError{Script: scriptPath, Hook: hook, Message: msg, Traceback: apiErr.StackTrace}
}

// Package script lets event handlers be written in Lua. A LuaHandler
// compiles a chunk that returns a function and invokes it for every
// delivered event, bridging the event payload to a Lua table and the
// returned value back to Go.
//
// gopher-lua's LState is not goroutine-safe; every call into the state is
// serialized, so one LuaHandler processes at most one event at a time.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dispatch"
)

// ErrClosed is returned when a closed handler receives an event.
var ErrClosed = errors.New("lua handler is closed")

// LuaHandler is a dispatch.Handler whose body is a Lua function.
type LuaHandler struct {
	name string

	mu     sync.Mutex
	state  *lua.LState
	fn     *lua.LFunction
	closed bool
}

// Statically assert the dispatch.Handler contract.
var _ dispatch.Handler = (*LuaHandler)(nil)

// New compiles source, which must return a function, and wraps it as a
// handler with the given name. The returned function is called as
//
//	result = fn(event, ...)
//
// where event is a table with id, uuid, name, code, and data fields, and
// the varargs are the extra dispatch arguments.
func New(name, source string) (*LuaHandler, error) {
	L := lua.NewState()

	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("compiling lua handler %q: %w", name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	fn, ok := ret.(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("lua handler %q: chunk must return a function, got %s", name, ret.Type())
	}

	return &LuaHandler{name: name, state: L, fn: fn}, nil
}

// Name implements dispatch.Handler.
func (h *LuaHandler) Name() string { return h.name }

// Handle implements dispatch.Handler. Calls are serialized on the handler's
// Lua state.
func (h *LuaHandler) Handle(ctx context.Context, evt *dispatch.Event, args ...any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	L := h.state
	callArgs := make([]lua.LValue, 0, len(args)+1)
	callArgs = append(callArgs, eventToLua(L, evt))
	for _, a := range args {
		callArgs = append(callArgs, toLua(L, a))
	}

	if err := L.CallByParam(lua.P{Fn: h.fn, NRet: 1, Protect: true}, callArgs...); err != nil {
		return nil, fmt.Errorf("lua handler %q: %w", h.name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return toGo(ret), nil
}

// Close releases the Lua state. The handler rejects events afterwards.
func (h *LuaHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.state.Close()
}

// eventToLua builds the event table passed to the Lua function.
func eventToLua(L *lua.LState, evt *dispatch.Event) lua.LValue {
	if evt == nil {
		return lua.LNil
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(evt.ID()))
	t.RawSetString("uuid", lua.LString(evt.UUID()))
	t.RawSetString("name", lua.LString(evt.Name()))
	t.RawSetString("code", lua.LString(evt.Code()))
	t.RawSetString("data", toLua(L, evt.Data().Map()))
	return t
}

// toLua converts a Go value to a Lua value. Unsupported types map to nil.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// toGo converts a Lua value back to Go. Integral numbers come back as
// int64, tables as maps or slices depending on their keys.
func toGo(lv lua.LValue) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

// tableToGo converts a table to a []any when its keys are the contiguous
// integers 1..n, and to a map[string]any otherwise.
func tableToGo(t *lua.LTable) any {
	maxN := t.MaxN()
	if maxN > 0 {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		if count == maxN {
			out := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				out = append(out, toGo(t.RawGetInt(i)))
			}
			return out
		}
	}

	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = toGo(v)
	})
	return out
}

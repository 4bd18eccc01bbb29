// Package scripting runs class hook scripts in sandboxed GopherLua states.
// It knows nothing about combat types; the match injects everything a script
// may touch through Manager callback fields.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the opcodes a single hook call may execute
// when no limit is configured.
const DefaultInstructionLimit = 100_000

// ErrBudgetExhausted is returned by Sandbox.Run when a script runs past its
// instruction limit.
var ErrBudgetExhausted = errors.New("lua instruction budget exhausted")

// blockedGlobals are base-library functions that reach the filesystem or the
// loader.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// Sandbox is a Lua state restricted to the base, table, string and math
// libraries whose every Run is metered.
//
// It is not safe for concurrent use; the caller must serialise access.
type Sandbox struct {
	L     *lua.LState
	limit int64
}

// NewSandbox creates a Sandbox allowing instLimit opcodes per Run.
//
// Precondition: instLimit >= 0; 0 selects DefaultInstructionLimit.
// Postcondition: the caller owns the Sandbox and must Close it.
func NewSandbox(instLimit int) *Sandbox {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return &Sandbox{L: L, limit: int64(instLimit)}
}

// Run calls fn with a fresh instruction budget installed on the state.
//
// Postcondition: a script stopped by the budget yields an error wrapping
// ErrBudgetExhausted; any other Lua error is returned as is.
func (s *Sandbox) Run(fn func(L *lua.LState) error) error {
	meter := newMeter(s.limit)
	s.L.SetContext(meter)
	defer func() {
		meter.cancel()
		s.L.RemoveContext()
	}()

	err := fn(s.L)
	if err != nil && meter.exhausted.Load() {
		return fmt.Errorf("%w after %d opcodes: %v", ErrBudgetExhausted, s.limit, err)
	}
	return err
}

// DoFile executes the file at path under a fresh budget.
func (s *Sandbox) DoFile(path string) error {
	return s.Run(func(L *lua.LState) error { return L.DoFile(path) })
}

// DoString executes src under a fresh budget.
func (s *Sandbox) DoString(src string) error {
	return s.Run(func(L *lua.LState) error { return L.DoString(src) })
}

// Close releases the Lua state.
func (s *Sandbox) Close() { s.L.Close() }

// meter is a context the Lua VM polls once per opcode through Done; it
// cancels itself when the allowance runs out.
type meter struct {
	context.Context
	cancel    context.CancelFunc
	left      atomic.Int64
	exhausted atomic.Bool
}

func newMeter(limit int64) *meter {
	ctx, cancel := context.WithCancel(context.Background())
	m := &meter{Context: ctx, cancel: cancel}
	m.left.Store(limit)
	return m
}

func (m *meter) Done() <-chan struct{} {
	if m.left.Add(-1) < 0 && !m.exhausted.Swap(true) {
		m.cancel()
	}
	return m.Context.Done()
}

// Package scripting runs planner precondition hooks in sandboxed GopherLua
// states. It has no dependency on the planner; hook arguments are plain Lua
// values supplied by the caller.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget for loading one script file or
// running one hook call when no override is configured. Hooks run once per
// candidate method on every planning iteration, so the budget is small.
const DefaultInstructionLimit = 20_000

// safeLibs are the only standard libraries a hook can see.
var safeLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// strippedGlobals are removed after OpenBase. Hooks log through engine.* rather
// than print, and never load code at runtime.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"}

// opBudget is a context whose Done counts down. GopherLua polls Done once per
// opcode, so the context cancels itself after exactly n opcodes.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// Precondition: n > 0.
func newOpBudget(n int) *opBudget {
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(n))
	return b
}

// normalizeLimit maps a non-positive limit to DefaultInstructionLimit.
func normalizeLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// NewSandboxedState returns an LState with only the safe libraries open, the
// code-loading and printing globals removed, and an instLimit opcode budget.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range safeLibs {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	resetBudget(L, normalizeLimit(instLimit))
	return L
}

// resetBudget gives L a fresh budget of limit opcodes. The returned cancel
// releases the new budget's context.
func resetBudget(L *lua.LState, limit int) context.CancelFunc {
	b := newOpBudget(limit)
	L.SetContext(b)
	return b.cancel
}

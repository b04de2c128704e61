package ai

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// maxDepth bounds decomposition steps within one planning call.
const maxDepth = 32

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given script's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scriptID, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Planner evaluates an HTN domain against a world snapshot and produces the
// actions for one pick/place cycle, or the final walk to the goal.
//
// Invariant: domain must not be nil. caller may be nil, in which case only
// built-in preconditions are available.
type Planner struct {
	domain   *Domain
	caller   ScriptCaller
	scriptID string
}

// NewPlanner constructs a Planner.
//
// Precondition: domain must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scriptID string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scriptID: scriptID}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain {
	return p.domain
}

// Plan decomposes the domain's root task against ws.
//
// Precondition: ws and ws.World must not be nil; ws.World must be a private clone.
// Postcondition: planning failures are reported as StatusFailed with empty Actions
// and a Reason, never as an error; ws.World reflects the plan's effects.
func (p *Planner) Plan(ws *WorldState) (*Plan, error) {
	if ws == nil || ws.World == nil {
		return nil, errors.New("ai.Planner.Plan: state and state.World must not be nil")
	}

	plan := &Plan{}
	if f, ok := ws.Frontier(); ok {
		plan.Frontier = &f
	}
	if ws.AtGoal() {
		plan.Status = StatusAtGoal
		return plan, nil
	}

	r := &resolver{ws: ws}
	taskQueue := []string{p.domain.RootTask()}
	steps := 0

	for len(taskQueue) > 0 {
		if steps >= maxDepth {
			return failed(plan, fmt.Sprintf("decomposition exceeded %d steps", maxDepth)), nil
		}
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		// Primitive operator: resolve against the planning world.
		if op, ok := p.domain.OperatorByID(current); ok {
			action, err := r.resolve(op)
			if err != nil {
				return failed(plan, fmt.Sprintf("%s: %v", op.ID, err)), nil
			}
			if action != nil {
				plan.Actions = append(plan.Actions, *action)
			}
			continue
		}

		method := p.findApplicableMethod(current, ws)
		if method == nil {
			return failed(plan, fmt.Sprintf("no applicable method for task %q", current)), nil
		}
		plan.Methods = append(plan.Methods, method.ID)

		// Prepend subtasks; copy so the domain's slice is never aliased.
		next := make([]string, 0, len(method.Subtasks)+len(taskQueue))
		next = append(next, method.Subtasks...)
		taskQueue = append(next, taskQueue...)
	}

	if len(plan.Actions) == 0 {
		return failed(plan, "decomposition produced no actions"), nil
	}
	plan.Status = StatusPlanned
	return plan, nil
}

func failed(plan *Plan, reason string) *Plan {
	plan.Status = StatusFailed
	plan.Actions = nil
	plan.Reason = reason
	return plan
}

// findApplicableMethod returns the first Method for taskID whose precondition passes,
// or nil if none applies.
//
// Methods are tried in declaration order. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, ws *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if p.holds(m.Precondition, ws) {
			return m
		}
	}
	return nil
}

// holds evaluates a named precondition. Built-ins win over Lua hooks; Lua
// errors and missing hooks count as false.
func (p *Planner) holds(name string, ws *WorldState) bool {
	if name == "" {
		return true
	}
	if c, ok := builtinConditions[name]; ok {
		return c(ws)
	}
	if p.caller == nil {
		return false
	}
	val, err := p.caller.CallHook(p.scriptID, name, HookArgs(ws)...)
	if err != nil {
		return false
	}
	return val == lua.LTrue
}

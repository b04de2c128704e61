package ai

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/stacker/internal/game/world"
)

// Condition is a built-in method precondition.
type Condition func(ws *WorldState) bool

// builtinConditions are evaluated in Go before any Lua hook is consulted.
var builtinConditions = map[string]Condition{
	"at_goal":           (*WorldState).AtGoal,
	"carrying":          (*WorldState).Carrying,
	"not_carrying":      func(ws *WorldState) bool { return !ws.Carrying() },
	"frontier_complete": (*WorldState).FrontierComplete,
	"goal_reachable": func(ws *WorldState) bool {
		return world.CanReachGoal(ws.World, ws.Objective.Goal).Reachable
	},
	"supply_available": func(ws *WorldState) bool { return ws.SupplyRemaining() > 0 },
}

// HookArgs converts ws into the positional arguments passed to Lua precondition hooks:
// carrying, stance height, frontier height, frontier target, goal height, goal target,
// supply remaining. Absent frontier values are -1.
func HookArgs(ws *WorldState) []lua.LValue {
	fh, ft := -1, -1
	if f, ok := ws.Frontier(); ok {
		fh = ws.World.Grid().Height(f.Cell)
		ft = f.Height
	}
	goal := ws.Objective.Goal
	return []lua.LValue{
		lua.LBool(ws.Carrying()),
		lua.LNumber(ws.World.StanceHeight()),
		lua.LNumber(fh),
		lua.LNumber(ft),
		lua.LNumber(ws.World.Grid().Height(goal.Cell)),
		lua.LNumber(goal.Height),
		lua.LNumber(ws.SupplyRemaining()),
	}
}

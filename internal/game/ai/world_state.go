package ai

import (
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// DefaultReach is how many blocks above its stance the agent can place onto.
const DefaultReach = 1

// Objective is what the agent must build and where it must end up.
type Objective struct {
	Stairs   []world.StairStep
	Goal     world.Goal
	Supplies []grid.Cell // tried in order
}

// WorldState is the snapshot passed to the HTN planner.
//
// World is a private clone; the planner advances it while resolving operators.
//
// Invariant: World must not be nil.
type WorldState struct {
	World     *world.State
	Objective Objective
	Reach     int
	Tolerance float64
}

// BuildWorldState snapshots live into a WorldState for one planning call.
//
// Precondition: live must not be nil.
// Postcondition: the returned World shares no mutable data with live.
func BuildWorldState(live *world.State, obj Objective, reach int, tolerance float64) *WorldState {
	if live == nil {
		panic("ai.BuildWorldState: live state must not be nil")
	}
	if tolerance <= 0 {
		tolerance = world.DefaultGoalTolerance
	}
	return &WorldState{
		World:     live.Clone(),
		Objective: obj,
		Reach:     reach,
		Tolerance: tolerance,
	}
}

// Frontier returns the lowest-indexed stair step still below its target height
// on g, else the goal cell while it is below the goal height.
//
// Postcondition: ok is false once every step and the goal are built.
func (o Objective) Frontier(g *grid.Grid) (Frontier, bool) {
	for i, s := range o.Stairs {
		if g.Height(s.Cell) < s.Height {
			return Frontier{StairStep: s, Index: i}, true
		}
	}
	if g.Height(o.Goal.Cell) < o.Goal.Height {
		return Frontier{
			StairStep: world.StairStep{Cell: o.Goal.Cell, Height: o.Goal.Height},
			Goal:      true,
			Index:     len(o.Stairs),
		}, true
	}
	return Frontier{}, false
}

// Complete reports whether every stair step and the goal are built on g.
func (o Objective) Complete(g *grid.Grid) bool {
	_, ok := o.Frontier(g)
	return !ok
}

// Finished reports whether the run is over on s: everything is built and the
// agent stands on the goal.
func (o Objective) Finished(s *world.State, tolerance float64) bool {
	return o.Complete(s.Grid()) && s.AtGoal(o.Goal, tolerance)
}

// Frontier returns the objective's frontier on the planning world.
func (ws *WorldState) Frontier() (Frontier, bool) {
	return ws.Objective.Frontier(ws.World.Grid())
}

// FrontierComplete reports whether every stair step and the goal are built.
func (ws *WorldState) FrontierComplete() bool {
	return ws.Objective.Complete(ws.World.Grid())
}

// AtGoal reports whether the objective is built and the agent stands on the goal.
func (ws *WorldState) AtGoal() bool {
	return ws.Objective.Finished(ws.World, ws.Tolerance)
}

// Carrying reports whether the agent holds a block.
func (ws *WorldState) Carrying() bool {
	return ws.World.Agent().Carrying
}

// SupplyRemaining sums the blocks left on every supply pile.
func (ws *WorldState) SupplyRemaining() int {
	g := ws.World.Grid()
	total := 0
	for _, c := range ws.Objective.Supplies {
		total += g.Height(c)
	}
	return total
}

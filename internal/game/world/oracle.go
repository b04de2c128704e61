package world

import (
	"math"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
)

// DefaultGoalTolerance is the per-axis goal tolerance as a fraction of one block.
const DefaultGoalTolerance = 0.25

// Reachability is the answer to "can the agent stand on the goal from here".
type Reachability struct {
	// Reachable is true when the goal is built and a path to its top exists.
	Reachable bool
	// Path is the route to the goal top when one exists, even if the goal is unbuilt.
	Path []grid.Point
	// NeedsBlocks is true while the goal cell is below its target height.
	NeedsBlocks bool
}

// CanReachGoal queries the state's mesh for a path from the agent to the goal cell top.
//
// An unbuilt goal is never Reachable: standing on it would not satisfy the goal.
// An over-built goal is neither Reachable nor NeedsBlocks.
func CanReachGoal(s *State, goal Goal) Reachability {
	h := s.grid.Height(goal.Cell)
	path, ok := FindPath(s.mesh, s.agent.Position, s.grid.CellTop(goal.Cell))
	r := Reachability{NeedsBlocks: h < goal.Height}
	if ok {
		r.Path = path
	}
	r.Reachable = ok && h == goal.Height
	return r
}

// FindPath returns a polyline from `from` to `to` over mesh, or ok=false.
func FindPath(mesh *navmesh.NavMesh, from, to grid.Point) ([]grid.Point, bool) {
	return mesh.FindPath(from, to)
}

// HasAgentReachedGoal reports whether pos lies within tolerance blocks of the
// goal cell's current top on every axis.
func HasAgentReachedGoal(g *grid.Grid, pos grid.Point, goalCell grid.Cell, tolerance float64) bool {
	top := g.CellTop(goalCell)
	limit := tolerance * g.Dimensions().BlockSize
	return math.Abs(pos.X-top.X) <= limit &&
		math.Abs(pos.Y-top.Y) <= limit &&
		math.Abs(pos.Z-top.Z) <= limit
}

// AtGoal reports whether the goal is built and the agent stands on it.
func (s *State) AtGoal(goal Goal, tolerance float64) bool {
	return goal.Built(s.grid) && HasAgentReachedGoal(s.grid, s.agent.Position, goal.Cell, tolerance)
}

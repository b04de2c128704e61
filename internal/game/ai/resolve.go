package ai

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
)

// pathEpsilon treats path lengths this close as equal.
const pathEpsilon = 1e-9

var (
	errNoFrontier = errors.New("nothing left to build")
	errNoStance   = errors.New("no reachable stance")
	errNoSupply   = errors.New("no supply pile can be reached")
	errNoPath     = errors.New("no path")
)

// stance is a candidate cell to stand on and the route to it.
type stance struct {
	cell   grid.Cell
	path   []grid.Point
	length float64
}

// resolver turns operators into actions, advancing the planning world as it goes.
type resolver struct {
	ws     *WorldState
	supply *grid.Cell // pile chosen by the last supply navigation
}

// resolve applies op to the planning world.
//
// Postcondition: a nil action with a nil error means the step needed no movement.
func (r *resolver) resolve(op *Operator) (*Action, error) {
	switch op.Action {
	case ActionNavigate:
		return r.navigate(op)
	case ActionPick:
		return r.pick(op)
	case ActionPlace:
		return r.place(op)
	default:
		return nil, fmt.Errorf("operator %q: unknown action %q", op.ID, op.Action)
	}
}

func (r *resolver) navigate(op *Operator) (*Action, error) {
	var (
		path []grid.Point
		desc string
	)
	switch op.Target {
	case TargetGoal:
		goal := r.ws.Objective.Goal
		g := r.ws.World.Grid()
		if h := g.Height(goal.Cell); h != goal.Height {
			return nil, fmt.Errorf("goal %s stands at height %d", goal, h)
		}
		p, ok := r.ws.World.Mesh().FindPath(r.ws.World.Agent().Position, g.CellTop(goal.Cell))
		if !ok {
			return nil, fmt.Errorf("goal %s: %w", goal, errNoPath)
		}
		path, desc = p, fmt.Sprintf("Navigate to goal %s", goal.Cell)
	case TargetFrontier, TargetFrontierLevel:
		f, ok := r.ws.Frontier()
		if !ok {
			return nil, errNoFrontier
		}
		s, ok := r.frontierStance(f, op.Target == TargetFrontierLevel)
		if !ok {
			return nil, fmt.Errorf("frontier %s: %w", f, errNoStance)
		}
		path, desc = s.path, fmt.Sprintf("Navigate to %s beside %s", s.cell, f)
	case TargetSupply:
		pile, s, ok := r.supplyStance()
		if !ok {
			return nil, errNoSupply
		}
		r.supply = &pile
		path, desc = s.path, fmt.Sprintf("Navigate to supply %s", pile)
	default:
		return nil, fmt.Errorf("operator %q: unknown navigate target %q", op.ID, op.Target)
	}

	r.ws.World.MoveAgent(path[len(path)-1])
	if len(path) < 2 {
		return nil, nil
	}
	return &Action{Kind: KindNavigate, Path: path, Description: desc, Operator: op.ID}, nil
}

func (r *resolver) pick(op *Operator) (*Action, error) {
	var pile grid.Cell
	if r.supply != nil {
		pile = *r.supply
	} else {
		p, ok := r.adjacentSupply()
		if !ok {
			return nil, errNoSupply
		}
		pile = p
	}
	if !r.canPick(pile, r.ws.World.StanceCell()) {
		return nil, fmt.Errorf("supply %s is out of reach", pile)
	}
	if err := r.ws.World.Pick(pile); err != nil {
		return nil, err
	}
	r.supply = nil
	return &Action{Kind: KindPick, Cell: pile, Description: fmt.Sprintf("Pick block from %s", pile), Operator: op.ID}, nil
}

func (r *resolver) place(op *Operator) (*Action, error) {
	f, ok := r.ws.Frontier()
	if !ok {
		return nil, errNoFrontier
	}
	if !r.canPlace(f.Cell, r.ws.World.StanceCell()) {
		return nil, fmt.Errorf("frontier %s is out of reach", f)
	}
	if err := r.ws.World.Place(f.Cell); err != nil {
		return nil, err
	}
	return &Action{Kind: KindPlace, Cell: f.Cell, Description: fmt.Sprintf("Place block on %s", f), Operator: op.ID}, nil
}

// canPlace reports whether a block can be set on target from stance.
func (r *resolver) canPlace(target, stance grid.Cell) bool {
	g := r.ws.World.Grid()
	if !g.InBounds(stance) || !grid.Adjacent(target, stance) {
		return false
	}
	return g.Height(target) <= g.Height(stance)+r.ws.Reach
}

// canPick reports whether the top block of pile can be taken from stance.
func (r *resolver) canPick(pile, stance grid.Cell) bool {
	g := r.ws.World.Grid()
	if !g.InBounds(stance) || !grid.Adjacent(pile, stance) {
		return false
	}
	h := g.Height(pile)
	return h > 0 && h-1 <= g.Height(stance)+r.ws.Reach
}

// frontierStance picks the stance to place onto f from. With level set,
// stances at the agent's current height win over every other stance.
func (r *resolver) frontierStance(f Frontier, level bool) (stance, bool) {
	g := r.ws.World.Grid()
	current := r.ws.World.StanceHeight()
	var prefer func(grid.Cell) bool
	if level {
		prefer = func(c grid.Cell) bool { return g.Height(c) == current }
	}
	return r.bestStance(f.Cell, func(c grid.Cell) bool { return r.canPlace(f.Cell, c) }, prefer)
}

// supplyStance returns the first pile, in configured order, that has a reachable stance.
func (r *resolver) supplyStance() (grid.Cell, stance, bool) {
	g := r.ws.World.Grid()
	for _, pile := range r.ws.Objective.Supplies {
		if g.Height(pile) == 0 {
			continue
		}
		p := pile
		if s, ok := r.bestStance(p, func(c grid.Cell) bool { return r.canPick(p, c) }, nil); ok {
			return p, s, true
		}
	}
	return grid.Cell{}, stance{}, false
}

// adjacentSupply returns the first pile that can be picked from the current stance.
func (r *resolver) adjacentSupply() (grid.Cell, bool) {
	at := r.ws.World.StanceCell()
	for _, pile := range r.ws.Objective.Supplies {
		if r.canPick(pile, at) {
			return pile, true
		}
	}
	return grid.Cell{}, false
}

// bestStance evaluates the neighbours of target in grid order and returns the
// valid one with the shortest path from the agent. Preferred stances beat
// non-preferred ones regardless of length; equal lengths keep the earlier cell.
func (r *resolver) bestStance(target grid.Cell, valid, prefer func(grid.Cell) bool) (stance, bool) {
	g := r.ws.World.Grid()
	mesh := r.ws.World.Mesh()
	from := r.ws.World.Agent().Position

	var (
		best          stance
		bestPreferred bool
		found         bool
	)
	for _, n := range g.Neighbors(target) {
		if !valid(n) {
			continue
		}
		path, ok := mesh.FindPath(from, g.CellTop(n))
		if !ok {
			continue
		}
		cand := stance{cell: n, path: path, length: navmesh.PathLength(path)}
		preferred := prefer != nil && prefer(n)
		switch {
		case !found:
		case preferred && !bestPreferred:
		case preferred == bestPreferred && cand.length < best.length-pathEpsilon:
		default:
			continue
		}
		best, bestPreferred, found = cand, preferred, true
	}
	return best, found
}

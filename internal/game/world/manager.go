package world

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
)

var (
	// ErrHandsFull is returned when picking while already carrying a block.
	ErrHandsFull = errors.New("world: agent is already carrying a block")
	// ErrNotCarrying is returned when placing without a block in hand.
	ErrNotCarrying = errors.New("world: agent is not carrying a block")
)

// State is one world: a grid, the navigation mesh compiled from it, and the agent.
//
// State is not safe for concurrent use. The planning loop owns the live State;
// the planner only ever receives Clones.
//
// Invariant: Mesh().Matches(Grid()) holds between calls to exported methods.
type State struct {
	grid     *grid.Grid
	mesh     *navmesh.NavMesh
	agent    Agent
	navOpts  navmesh.Options
	rebuilds int
}

// NewState takes ownership of g and compiles the initial navigation mesh.
//
// Precondition: g must not be nil.
// Postcondition: Rebuilds() == 1.
func NewState(g *grid.Grid, agent Agent, opts navmesh.Options) *State {
	if g == nil {
		panic("world.NewState: grid must not be nil")
	}
	s := &State{grid: g, agent: agent, navOpts: opts}
	s.rebuild()
	return s
}

func (s *State) rebuild() {
	s.mesh = navmesh.Build(s.grid, s.navOpts)
	s.rebuilds++
}

// Grid returns the state's grid. Callers must not mutate it; use Pick and Place.
func (s *State) Grid() *grid.Grid {
	return s.grid
}

// Mesh returns the navigation mesh for the current grid.
func (s *State) Mesh() *navmesh.NavMesh {
	return s.mesh
}

// Agent returns a copy of the agent.
func (s *State) Agent() Agent {
	return s.agent
}

// Rebuilds returns how many times this state has compiled its mesh.
func (s *State) Rebuilds() int {
	return s.rebuilds
}

// MoveAgent sets the agent's position. The grid is unchanged.
func (s *State) MoveAgent(p grid.Point) {
	s.agent.Position = p
}

// StanceCell returns the cell the agent stands on.
func (s *State) StanceCell() grid.Cell {
	return s.grid.CellAt(s.agent.Position)
}

// StanceHeight returns the stack height under the agent, or -1 when it is off the grid.
func (s *State) StanceHeight() int {
	c := s.StanceCell()
	if !s.grid.InBounds(c) {
		return -1
	}
	return s.grid.Height(c)
}

// Pick takes the top block of c into the agent's hand and recompiles the mesh.
//
// Postcondition: on error neither the grid, the agent nor the mesh changed.
func (s *State) Pick(c grid.Cell) error {
	if s.agent.Carrying {
		return fmt.Errorf("pick %s: %w", c, ErrHandsFull)
	}
	if err := s.grid.Pick(c); err != nil {
		return err
	}
	s.agent.Carrying = true
	s.rebuild()
	return nil
}

// Place sets the carried block on top of c and recompiles the mesh.
//
// Postcondition: on error neither the grid, the agent nor the mesh changed.
func (s *State) Place(c grid.Cell) error {
	if !s.agent.Carrying {
		return fmt.Errorf("place %s: %w", c, ErrNotCarrying)
	}
	s.grid.Place(c)
	s.agent.Carrying = false
	s.rebuild()
	return nil
}

// Clone returns an independent copy for speculative planning. The mesh is
// shared until the clone mutates, since meshes are immutable.
//
// Postcondition: clone.Rebuilds() == 0.
func (s *State) Clone() *State {
	return &State{
		grid:    s.grid.Clone(),
		mesh:    s.mesh,
		agent:   s.agent,
		navOpts: s.navOpts,
	}
}

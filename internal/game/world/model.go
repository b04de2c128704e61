// Package world holds the live block world (grid, navigation mesh and agent)
// and the reachability oracle the planner and executor consult.
package world

import (
	"fmt"

	"github.com/cory-johannsen/stacker/internal/game/grid"
)

// Agent is the simulated builder.
//
// Invariant: Carrying implies exactly one block is in hand and absent from every grid cell.
type Agent struct {
	Position grid.Point
	Carrying bool
}

// StairStep is one tread of the staircase: a cell and the stack height it must reach.
type StairStep struct {
	Cell   grid.Cell `yaml:"cell" json:"cell"`
	Height int       `yaml:"height" json:"height"`
}

// String returns e.g. "(3,4)@2".
func (s StairStep) String() string {
	return fmt.Sprintf("%s@%d", s.Cell, s.Height)
}

// Goal is the cell the agent must stand on once it reaches Height.
type Goal struct {
	Cell   grid.Cell `yaml:"cell" json:"cell"`
	Height int       `yaml:"height" json:"height"`
}

// String returns e.g. "(6,4)@4".
func (g Goal) String() string {
	return fmt.Sprintf("%s@%d", g.Cell, g.Height)
}

// Built reports whether the goal cell has reached its target height in g.
func (g Goal) Built(gr *grid.Grid) bool {
	return gr.Height(g.Cell) == g.Height
}

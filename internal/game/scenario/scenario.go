// Package scenario builds the initial conditions of a planning run: the grid,
// the agent's start, the staircase to build and the goal to stand on.
package scenario

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// Pile is a supply stack the agent picks blocks from.
type Pile struct {
	Cell   grid.Cell `yaml:"cell" json:"cell"`
	Height int       `yaml:"height" json:"height"`
}

// CellHeight overrides one cell's initial height.
type CellHeight struct {
	Cell   grid.Cell `yaml:"cell" json:"cell"`
	Height int       `yaml:"height" json:"height"`
}

// Config fully determines a run's initial conditions.
//
// Config is treated as immutable once built; InitialGrid never modifies it.
type Config struct {
	Name          string            `yaml:"name" json:"name"`
	Dimensions    grid.Dimensions   `yaml:"dimensions" json:"dimensions"`
	Start         grid.Cell         `yaml:"start" json:"start"`
	StartCarrying bool              `yaml:"start_carrying,omitempty" json:"start_carrying"`
	Stairs        []world.StairStep `yaml:"stairs,omitempty" json:"stairs"`
	Goal          world.Goal        `yaml:"goal" json:"goal"`
	Supplies      []Pile            `yaml:"supplies,omitempty" json:"supplies"`
	Prebuilt      []CellHeight      `yaml:"prebuilt,omitempty" json:"prebuilt"`
}

// Validate checks every cell reference and height.
//
// Postcondition: Returns nil if the scenario is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	if err := c.Dimensions.Validate(); err != nil {
		return fmt.Errorf("scenario %q: %w", c.Name, err)
	}
	inBounds := func(cell grid.Cell) bool {
		return cell.X >= 0 && cell.X < c.Dimensions.Width && cell.Z >= 0 && cell.Z < c.Dimensions.Depth
	}

	if !inBounds(c.Start) {
		errs = append(errs, fmt.Sprintf("start %s is out of bounds", c.Start))
	}
	seen := make(map[grid.Cell]bool, len(c.Stairs))
	for i, s := range c.Stairs {
		if !inBounds(s.Cell) {
			errs = append(errs, fmt.Sprintf("stairs[%d] %s is out of bounds", i, s.Cell))
		}
		if s.Height < 1 {
			errs = append(errs, fmt.Sprintf("stairs[%d] height must be >= 1, got %d", i, s.Height))
		}
		if seen[s.Cell] {
			errs = append(errs, fmt.Sprintf("stairs[%d] %s is listed twice", i, s.Cell))
		}
		if s.Cell == c.Goal.Cell {
			errs = append(errs, fmt.Sprintf("stairs[%d] %s is the goal cell", i, s.Cell))
		}
		seen[s.Cell] = true
	}
	if !inBounds(c.Goal.Cell) {
		errs = append(errs, fmt.Sprintf("goal %s is out of bounds", c.Goal.Cell))
	}
	if c.Goal.Height < 0 {
		errs = append(errs, fmt.Sprintf("goal height must be >= 0, got %d", c.Goal.Height))
	}
	piles := make(map[grid.Cell]bool, len(c.Supplies))
	for i, p := range c.Supplies {
		if piles[p.Cell] {
			errs = append(errs, fmt.Sprintf("supplies[%d] %s is listed twice", i, p.Cell))
		}
		piles[p.Cell] = true
		if !inBounds(p.Cell) {
			errs = append(errs, fmt.Sprintf("supplies[%d] %s is out of bounds", i, p.Cell))
		}
		if p.Height < 0 {
			errs = append(errs, fmt.Sprintf("supplies[%d] height must be >= 0, got %d", i, p.Height))
		}
		if seen[p.Cell] || p.Cell == c.Goal.Cell {
			errs = append(errs, fmt.Sprintf("supplies[%d] %s overlaps a stair or the goal", i, p.Cell))
		}
	}
	for i, p := range c.Prebuilt {
		if !inBounds(p.Cell) {
			errs = append(errs, fmt.Sprintf("prebuilt[%d] %s is out of bounds", i, p.Cell))
		}
		if p.Height < 0 {
			errs = append(errs, fmt.Sprintf("prebuilt[%d] height must be >= 0, got %d", i, p.Height))
		}
		if piles[p.Cell] {
			errs = append(errs, fmt.Sprintf("prebuilt[%d] %s overlaps a supply pile", i, p.Cell))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %s", c.Name, strings.Join(errs, "; "))
	}
	return nil
}

// SupplyCells returns the supply pile cells in configured order.
func (c Config) SupplyCells() []grid.Cell {
	out := make([]grid.Cell, len(c.Supplies))
	for i, p := range c.Supplies {
		out[i] = p.Cell
	}
	return out
}

// Blocks returns the number of blocks on the initial grid.
func (c Config) Blocks() int {
	g := InitialGrid(c)
	total := 0
	for _, col := range g.Heights() {
		for _, h := range col {
			total += h
		}
	}
	return total
}

// InitialGrid builds a zero-filled grid, stacks the supply piles, then applies
// the pre-built overrides in order. Validate keeps the two sets disjoint.
//
// Precondition: c.Validate() returns nil; out-of-range cells panic.
func InitialGrid(c Config) *grid.Grid {
	g := grid.NewGrid(c.Dimensions)
	for _, p := range c.Supplies {
		g.SetHeight(p.Cell, p.Height)
	}
	for _, p := range c.Prebuilt {
		g.SetHeight(p.Cell, p.Height)
	}
	return g
}

// StartPosition returns the cell top the agent starts on in g.
func StartPosition(c Config, g *grid.Grid) grid.Point {
	return g.CellTop(c.Start)
}

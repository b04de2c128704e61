package scenario

import (
	"fmt"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/world"
)

// Scenario names.
const (
	NameDefault                = "default"
	NameAtGoal                 = "atGoal"
	NameSimpleNavigate         = "simpleNavigate"
	NameExistingSingleStepWalk = "existingSingleStepWalk"
	NameExistingTwoStepWalk    = "existingTwoStepWalk"
	NamePickPlaceOne           = "pickPlaceOne"
	NameTwoStepBuild           = "twoStepBuild"
	NameSameHeightAdjacent     = "sameHeightAdjacent"
	NameNoSupply               = "noSupply"
	NameUnreachableGoal        = "unreachableGoal"
	NameOutOfOrderStairs       = "outOfOrderStairs"
)

// DefaultDimensions is the world every built-in scenario is laid out for.
var DefaultDimensions = grid.Dimensions{Width: 10, Depth: 10, BlockSize: 1}

// builder produces a scenario laid out on dims.
type builder func(dims grid.Dimensions) Config

// builders in listing order.
var builders = []struct {
	name  string
	build builder
}{
	{NameDefault, buildDefault},
	{NameAtGoal, buildAtGoal},
	{NameSimpleNavigate, buildSimpleNavigate},
	{NameExistingSingleStepWalk, buildExistingSingleStepWalk},
	{NameExistingTwoStepWalk, buildExistingTwoStepWalk},
	{NamePickPlaceOne, buildPickPlaceOne},
	{NameTwoStepBuild, buildTwoStepBuild},
	{NameSameHeightAdjacent, buildSameHeightAdjacent},
	{NameNoSupply, buildNoSupply},
	{NameUnreachableGoal, buildUnreachableGoal},
	{NameOutOfOrderStairs, buildOutOfOrderStairs},
}

// Names returns every built-in scenario name in listing order.
func Names() []string {
	out := make([]string, len(builders))
	for i, b := range builders {
		out[i] = b.name
	}
	return out
}

// Build returns the named scenario laid out on dims.
//
// Postcondition: returns a validated Config, or an error for an unknown name
// or dimensions too small for the layout.
func Build(name string, dims grid.Dimensions) (Config, error) {
	for _, b := range builders {
		if b.name != name {
			continue
		}
		cfg := b.build(dims)
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Config{}, fmt.Errorf("scenario: unknown scenario %q", name)
}

// MustBuild is Build on DefaultDimensions that panics on error. Intended for tests.
func MustBuild(name string) Config {
	cfg, err := Build(name, DefaultDimensions)
	if err != nil {
		panic(err)
	}
	return cfg
}

func c(x, z int) grid.Cell { return grid.Cell{X: x, Z: z} }

func step(x, z, h int) world.StairStep { return world.StairStep{Cell: c(x, z), Height: h} }

func pile(x, z, h int) Pile { return Pile{Cell: c(x, z), Height: h} }

func built(x, z, h int) CellHeight { return CellHeight{Cell: c(x, z), Height: h} }

// supplyRow lays n piles of two blocks along z=6 starting at x=1.
func supplyRow(n int) []Pile {
	out := make([]Pile, n)
	for i := range out {
		out[i] = pile(1+i, 6, 2)
	}
	return out
}

// buildDefault is the full build: a three-step staircase and a four-high goal,
// ten blocks in all, fetched from five two-block piles.
func buildDefault(dims grid.Dimensions) Config {
	return Config{
		Name:       NameDefault,
		Dimensions: dims,
		Start:      c(1, 1),
		Stairs:     []world.StairStep{step(3, 4, 1), step(4, 4, 2), step(5, 4, 3)},
		Goal:       world.Goal{Cell: c(6, 4), Height: 4},
		Supplies:   supplyRow(5),
	}
}

func buildAtGoal(dims grid.Dimensions) Config {
	return Config{
		Name:       NameAtGoal,
		Dimensions: dims,
		Start:      c(4, 4),
		Goal:       world.Goal{Cell: c(4, 4), Height: 2},
		Prebuilt:   []CellHeight{built(4, 4, 2)},
	}
}

// buildSimpleNavigate needs no lifting: the goal is one block high and already built.
func buildSimpleNavigate(dims grid.Dimensions) Config {
	return Config{
		Name:       NameSimpleNavigate,
		Dimensions: dims,
		Start:      c(1, 1),
		Goal:       world.Goal{Cell: c(3, 3), Height: 1},
		Prebuilt:   []CellHeight{built(3, 3, 1)},
	}
}

func buildExistingSingleStepWalk(dims grid.Dimensions) Config {
	return Config{
		Name:       NameExistingSingleStepWalk,
		Dimensions: dims,
		Start:      c(1, 4),
		Stairs:     []world.StairStep{step(3, 4, 1)},
		Goal:       world.Goal{Cell: c(4, 4), Height: 2},
		Prebuilt:   []CellHeight{built(3, 4, 1), built(4, 4, 2)},
	}
}

func buildExistingTwoStepWalk(dims grid.Dimensions) Config {
	return Config{
		Name:       NameExistingTwoStepWalk,
		Dimensions: dims,
		Start:      c(1, 4),
		Stairs:     []world.StairStep{step(3, 4, 1), step(4, 4, 2)},
		Goal:       world.Goal{Cell: c(5, 4), Height: 3},
		Prebuilt:   []CellHeight{built(3, 4, 1), built(4, 4, 2), built(5, 4, 3)},
	}
}

func buildPickPlaceOne(dims grid.Dimensions) Config {
	return Config{
		Name:       NamePickPlaceOne,
		Dimensions: dims,
		Start:      c(1, 4),
		Stairs:     []world.StairStep{step(3, 4, 1)},
		Goal:       world.Goal{Cell: c(4, 4), Height: 2},
		Supplies:   []Pile{pile(1, 6, 2)},
		Prebuilt:   []CellHeight{built(4, 4, 2)},
	}
}

// buildTwoStepBuild starts with the second step half built.
func buildTwoStepBuild(dims grid.Dimensions) Config {
	return Config{
		Name:       NameTwoStepBuild,
		Dimensions: dims,
		Start:      c(1, 4),
		Stairs:     []world.StairStep{step(3, 4, 1), step(4, 4, 2)},
		Goal:       world.Goal{Cell: c(5, 4), Height: 3},
		Supplies:   []Pile{pile(1, 6, 2)},
		Prebuilt:   []CellHeight{built(4, 4, 1), built(5, 4, 3)},
	}
}

// buildSameHeightAdjacent starts beside the only unbuilt step with a block in hand.
func buildSameHeightAdjacent(dims grid.Dimensions) Config {
	return Config{
		Name:          NameSameHeightAdjacent,
		Dimensions:    dims,
		Start:         c(2, 4),
		StartCarrying: true,
		Stairs:        []world.StairStep{step(3, 4, 1)},
		Goal:          world.Goal{Cell: c(4, 4), Height: 2},
		Prebuilt:      []CellHeight{built(4, 4, 2)},
	}
}

func buildNoSupply(dims grid.Dimensions) Config {
	return Config{
		Name:       NameNoSupply,
		Dimensions: dims,
		Start:      c(1, 4),
		Stairs:     []world.StairStep{step(3, 4, 1)},
		Goal:       world.Goal{Cell: c(4, 4), Height: 2},
		Prebuilt:   []CellHeight{built(4, 4, 2)},
	}
}

// buildUnreachableGoal has a finished goal five blocks high and no stairs.
func buildUnreachableGoal(dims grid.Dimensions) Config {
	return Config{
		Name:       NameUnreachableGoal,
		Dimensions: dims,
		Start:      c(1, 1),
		Goal:       world.Goal{Cell: c(4, 4), Height: 5},
		Prebuilt:   []CellHeight{built(4, 4, 5)},
	}
}

// buildOutOfOrderStairs lists the tallest step first. Building it needs the
// lower steps as stances, which the greedy frontier never builds first.
func buildOutOfOrderStairs(dims grid.Dimensions) Config {
	return Config{
		Name:       NameOutOfOrderStairs,
		Dimensions: dims,
		Start:      c(1, 1),
		Stairs:     []world.StairStep{step(5, 4, 3), step(4, 4, 2), step(3, 4, 1)},
		Goal:       world.Goal{Cell: c(6, 4), Height: 4},
		Supplies:   supplyRow(5),
	}
}

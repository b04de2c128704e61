package grid_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stacker/internal/game/grid"
)

func dims() grid.Dimensions {
	return grid.Dimensions{Width: 4, Depth: 3, BlockSize: 1}
}

func TestNewGrid_ZeroFilled(t *testing.T) {
	g := grid.NewGrid(dims())
	for x := 0; x < 4; x++ {
		for z := 0; z < 3; z++ {
			assert.Equal(t, 0, g.Height(grid.Cell{X: x, Z: z}))
		}
	}
}

func TestNewGrid_PanicsOnInvalidDimensions(t *testing.T) {
	assert.Panics(t, func() { grid.NewGrid(grid.Dimensions{Width: 0, Depth: 3, BlockSize: 1}) })
	assert.Panics(t, func() { grid.NewGrid(grid.Dimensions{Width: 3, Depth: 3}) })
}

func TestPickPlace(t *testing.T) {
	g := grid.NewGrid(dims())
	c := grid.Cell{X: 1, Z: 2}
	g.Place(c)
	g.Place(c)
	assert.Equal(t, 2, g.Height(c))
	require.NoError(t, g.Pick(c))
	assert.Equal(t, 1, g.Height(c))
}

func TestPick_EmptyCellNeverGoesNegative(t *testing.T) {
	g := grid.NewGrid(dims())
	c := grid.Cell{X: 0, Z: 0}
	err := g.Pick(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grid.ErrEmptyCell))
	assert.Equal(t, 0, g.Height(c))
}

func TestClone_IsDeep(t *testing.T) {
	g := grid.NewGrid(dims())
	c := grid.Cell{X: 2, Z: 1}
	g.SetHeight(c, 3)
	clone := g.Clone()
	clone.Place(c)
	assert.Equal(t, 3, g.Height(c))
	assert.Equal(t, 4, clone.Height(c))
	assert.False(t, g.Equal(clone))
	require.NoError(t, clone.Pick(c))
	assert.True(t, g.Equal(clone))
}

func TestCellTop(t *testing.T) {
	g := grid.NewGrid(grid.Dimensions{Width: 4, Depth: 4, BlockSize: 0.5})
	c := grid.Cell{X: 3, Z: 2}
	g.SetHeight(c, 3)
	assert.Equal(t, grid.Point{X: 1.5, Y: 1.5, Z: 1}, g.CellTop(c))
	assert.Equal(t, c, g.CellAt(g.CellTop(c)))
}

func TestCellTop_OutOfRangePanics(t *testing.T) {
	g := grid.NewGrid(dims())
	assert.Panics(t, func() { g.CellTop(grid.Cell{X: 4, Z: 0}) })
	assert.Panics(t, func() { g.CellTop(grid.Cell{X: 0, Z: -1}) })
}

func TestNeighbors_OrderAndBounds(t *testing.T) {
	g := grid.NewGrid(dims())
	assert.Equal(t,
		[]grid.Cell{{X: 2, Z: 1}, {X: 0, Z: 1}, {X: 1, Z: 2}, {X: 1, Z: 0}},
		g.Neighbors(grid.Cell{X: 1, Z: 1}))
	assert.Equal(t,
		[]grid.Cell{{X: 1, Z: 0}, {X: 0, Z: 1}},
		g.Neighbors(grid.Cell{X: 0, Z: 0}))
}

func TestAdjacent(t *testing.T) {
	assert.True(t, grid.Adjacent(grid.Cell{X: 1, Z: 1}, grid.Cell{X: 1, Z: 2}))
	assert.False(t, grid.Adjacent(grid.Cell{X: 1, Z: 1}, grid.Cell{X: 2, Z: 2}))
	assert.False(t, grid.Adjacent(grid.Cell{X: 1, Z: 1}, grid.Cell{X: 1, Z: 1}))
}

func TestString(t *testing.T) {
	g := grid.NewGrid(grid.Dimensions{Width: 3, Depth: 2, BlockSize: 1})
	g.SetHeight(grid.Cell{X: 1, Z: 0}, 2)
	g.SetHeight(grid.Cell{X: 2, Z: 1}, 12)
	assert.Equal(t, ".2.\n..+\n", g.String())
}

func TestProperty_PickPlaceKeepsHeightsNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := grid.NewGrid(dims())
		ops := rapid.SliceOf(rapid.Bool()).Draw(rt, "ops")
		c := grid.Cell{X: rapid.IntRange(0, 3).Draw(rt, "x"), Z: rapid.IntRange(0, 2).Draw(rt, "z")}
		want := 0
		for _, place := range ops {
			if place {
				g.Place(c)
				want++
				continue
			}
			err := g.Pick(c)
			if want == 0 {
				if !errors.Is(err, grid.ErrEmptyCell) {
					rt.Fatalf("expected ErrEmptyCell, got %v", err)
				}
				continue
			}
			want--
		}
		if got := g.Height(c); got != want || got < 0 {
			rt.Fatalf("height = %d, want %d", got, want)
		}
	})
}

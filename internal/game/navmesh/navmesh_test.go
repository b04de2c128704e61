package navmesh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/navmesh"
)

func flat(w, d int) *grid.Grid {
	return grid.NewGrid(grid.Dimensions{Width: w, Depth: d, BlockSize: 1})
}

func TestFindPath_FlatGround(t *testing.T) {
	g := flat(5, 5)
	m := navmesh.Build(g, navmesh.Options{MaxClimb: 1})
	from := g.CellTop(grid.Cell{X: 0, Z: 0})
	to := g.CellTop(grid.Cell{X: 3, Z: 0})

	path, ok := m.FindPath(from, to)
	require.True(t, ok)
	assert.Equal(t, from, path[0])
	assert.Equal(t, to, path[len(path)-1])
	assert.Len(t, path, 4)
	assert.InDelta(t, 3.0, navmesh.PathLength(path), 1e-9)
}

func TestFindPath_SameCell(t *testing.T) {
	g := flat(3, 3)
	m := navmesh.Build(g, navmesh.Options{})
	p := g.CellTop(grid.Cell{X: 1, Z: 1})
	path, ok := m.FindPath(p, p)
	require.True(t, ok)
	assert.Equal(t, []grid.Point{p}, path)
	assert.Zero(t, navmesh.PathLength(path))
}

func TestFindPath_ClimbsOneStepAtATime(t *testing.T) {
	g := flat(4, 1)
	g.SetHeight(grid.Cell{X: 1, Z: 0}, 1)
	g.SetHeight(grid.Cell{X: 2, Z: 0}, 2)
	g.SetHeight(grid.Cell{X: 3, Z: 0}, 3)
	m := navmesh.Build(g, navmesh.Options{MaxClimb: 1})

	path, ok := m.FindPath(g.CellTop(grid.Cell{X: 0, Z: 0}), g.CellTop(grid.Cell{X: 3, Z: 0}))
	require.True(t, ok)
	assert.Equal(t, 3.0, path[len(path)-1].Y)
}

func TestFindPath_WallBlocks(t *testing.T) {
	g := flat(3, 3)
	for z := 0; z < 3; z++ {
		g.SetHeight(grid.Cell{X: 1, Z: z}, 2)
	}
	m := navmesh.Build(g, navmesh.Options{MaxClimb: 1})
	from := g.CellTop(grid.Cell{X: 0, Z: 1})
	to := g.CellTop(grid.Cell{X: 2, Z: 1})

	_, ok := m.FindPath(from, to)
	assert.False(t, ok)
	assert.False(t, m.Reachable(from, to))

	wide := navmesh.Build(g, navmesh.Options{MaxClimb: 2})
	assert.True(t, wide.Reachable(from, to))
}

func TestFindPath_DetoursAroundPillar(t *testing.T) {
	g := flat(3, 3)
	g.SetHeight(grid.Cell{X: 1, Z: 1}, 5)
	m := navmesh.Build(g, navmesh.Options{MaxClimb: 1})
	path, ok := m.FindPath(g.CellTop(grid.Cell{X: 0, Z: 1}), g.CellTop(grid.Cell{X: 2, Z: 1}))
	require.True(t, ok)
	for _, p := range path {
		assert.NotEqual(t, grid.Cell{X: 1, Z: 1}, g.CellAt(p))
	}
	assert.InDelta(t, 4.0, navmesh.PathLength(path), 1e-9)
}

func TestOffGridQueries(t *testing.T) {
	g := flat(2, 2)
	m := navmesh.Build(g, navmesh.Options{})
	off := grid.Point{X: -5, Z: 0}
	on := g.CellTop(grid.Cell{})
	assert.False(t, m.Reachable(off, on))
	_, ok := m.FindPath(on, off)
	assert.False(t, ok)
}

func TestMeshIsSnapshot(t *testing.T) {
	g := flat(3, 3)
	m := navmesh.Build(g, navmesh.Options{})
	assert.True(t, m.Matches(g))
	g.Place(grid.Cell{X: 1, Z: 1})
	assert.False(t, m.Matches(g), "mesh must not follow grid mutations")
	assert.Equal(t, 0, m.Height(grid.Cell{X: 1, Z: 1}))
	assert.True(t, navmesh.Build(g, navmesh.Options{}).Matches(g))
}

func TestProperty_PathStepsRespectClimb(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := flat(5, 5)
		for x := 0; x < 5; x++ {
			for z := 0; z < 5; z++ {
				g.SetHeight(grid.Cell{X: x, Z: z}, rapid.IntRange(0, 3).Draw(rt, "h"))
			}
		}
		m := navmesh.Build(g, navmesh.Options{MaxClimb: 1})
		a := grid.Cell{X: rapid.IntRange(0, 4).Draw(rt, "ax"), Z: rapid.IntRange(0, 4).Draw(rt, "az")}
		b := grid.Cell{X: rapid.IntRange(0, 4).Draw(rt, "bx"), Z: rapid.IntRange(0, 4).Draw(rt, "bz")}

		path, ok := m.FindPath(g.CellTop(a), g.CellTop(b))
		if ok != m.Reachable(g.CellTop(a), g.CellTop(b)) {
			rt.Fatalf("FindPath ok=%v disagrees with Reachable", ok)
		}
		if !ok {
			return
		}
		if path[len(path)-1] != g.CellTop(b) {
			rt.Fatalf("path ends at %v, want %v", path[len(path)-1], g.CellTop(b))
		}
		for i := 1; i < len(path); i++ {
			ca, cb := g.CellAt(path[i-1]), g.CellAt(path[i])
			if !grid.Adjacent(ca, cb) {
				rt.Fatalf("non-adjacent step %v -> %v", ca, cb)
			}
			d := g.Height(cb) - g.Height(ca)
			if d > 1 || d < -1 {
				rt.Fatalf("step %v -> %v climbs %d", ca, cb, d)
			}
		}
	})
}

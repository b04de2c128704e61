// Package navmesh compiles a height grid into a walkable navigation mesh and
// answers path and reachability queries against it.
//
// A mesh is an immutable snapshot: it never observes later grid mutations, so
// owners must Build a new mesh after every change to the grid.
package navmesh

import (
	"container/heap"
	"math"

	"github.com/cory-johannsen/stacker/internal/game/grid"
)

// Options tunes mesh compilation.
type Options struct {
	// MaxClimb is the largest height difference, in blocks, between two
	// neighbouring cell tops that are still connected. Values < 1 mean 1.
	MaxClimb int
}

// NavMesh is the walkable surface of one grid snapshot.
type NavMesh struct {
	heights   *grid.Grid // private snapshot
	maxClimb  int
	component [][]int // connected-component label per cell
}

// Build compiles g into a navigation mesh. Build is a pure function of g's heights.
//
// Precondition: g must not be nil.
// Postcondition: the returned mesh Matches(g) until g is next mutated.
func Build(g *grid.Grid, opts Options) *NavMesh {
	if g == nil {
		panic("navmesh.Build: grid must not be nil")
	}
	climb := opts.MaxClimb
	if climb < 1 {
		climb = 1
	}
	m := &NavMesh{heights: g.Clone(), maxClimb: climb}
	m.label()
	return m
}

// label flood-fills connected components over walkable edges.
func (m *NavMesh) label() {
	dims := m.heights.Dimensions()
	m.component = make([][]int, dims.Width)
	for x := range m.component {
		m.component[x] = make([]int, dims.Depth)
		for z := range m.component[x] {
			m.component[x][z] = -1
		}
	}
	next := 0
	for x := 0; x < dims.Width; x++ {
		for z := 0; z < dims.Depth; z++ {
			if m.component[x][z] >= 0 {
				continue
			}
			stack := []grid.Cell{{X: x, Z: z}}
			m.component[x][z] = next
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, n := range m.links(c) {
					if m.component[n.X][n.Z] < 0 {
						m.component[n.X][n.Z] = next
						stack = append(stack, n)
					}
				}
			}
			next++
		}
	}
}

// links returns the neighbours of c whose tops are within climbing range.
func (m *NavMesh) links(c grid.Cell) []grid.Cell {
	h := m.heights.Height(c)
	var out []grid.Cell
	for _, n := range m.heights.Neighbors(c) {
		d := m.heights.Height(n) - h
		if d <= m.maxClimb && d >= -m.maxClimb {
			out = append(out, n)
		}
	}
	return out
}

// Matches reports whether the mesh was built from heights equal to g's.
func (m *NavMesh) Matches(g *grid.Grid) bool {
	return m.heights.Equal(g)
}

// MaxClimb returns the climb limit the mesh was built with.
func (m *NavMesh) MaxClimb() int {
	return m.maxClimb
}

// Height returns the stack height of c in the mesh's snapshot.
func (m *NavMesh) Height(c grid.Cell) int {
	return m.heights.Height(c)
}

// Top returns the cell top of c in the mesh's snapshot.
func (m *NavMesh) Top(c grid.Cell) grid.Point {
	return m.heights.CellTop(c)
}

// locate snaps p to the cell it stands on. ok is false when p is off the grid.
func (m *NavMesh) locate(p grid.Point) (grid.Cell, bool) {
	c := m.heights.CellAt(p)
	return c, m.heights.InBounds(c)
}

// Reachable reports whether a walkable route joins the cells under from and to.
func (m *NavMesh) Reachable(from, to grid.Point) bool {
	a, ok := m.locate(from)
	if !ok {
		return false
	}
	b, ok := m.locate(to)
	if !ok {
		return false
	}
	return m.component[a.X][a.Z] == m.component[b.X][b.Z]
}

// FindPath returns a polyline from `from` to the top of the cell under `to`.
//
// Postcondition: on success the path starts at from exactly, has at least one
// point, and ends at the destination cell top; ok is false when no route exists.
func (m *NavMesh) FindPath(from, to grid.Point) ([]grid.Point, bool) {
	start, ok := m.locate(from)
	if !ok {
		return nil, false
	}
	goal, ok := m.locate(to)
	if !ok {
		return nil, false
	}
	if m.component[start.X][start.Z] != m.component[goal.X][goal.Z] {
		return nil, false
	}

	cells := m.search(start, goal)
	if cells == nil {
		return nil, false
	}
	path := make([]grid.Point, 0, len(cells))
	path = append(path, from)
	for _, c := range cells[1:] {
		path = append(path, m.heights.CellTop(c))
	}
	if len(cells) == 1 {
		if top := m.heights.CellTop(goal); top != from {
			path = append(path, top)
		}
	}
	return path, true
}

// PathLength returns the summed segment length of path.
func PathLength(path []grid.Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += path[i-1].Dist(path[i])
	}
	return total
}

// search runs A* from start to goal and returns the visited cells in order.
func (m *NavMesh) search(start, goal grid.Cell) []grid.Cell {
	dims := m.heights.Dimensions()
	index := func(c grid.Cell) int { return c.X*dims.Depth + c.Z }

	cost := make([]float64, dims.Width*dims.Depth)
	for i := range cost {
		cost[i] = math.Inf(1)
	}
	prev := make([]int, len(cost))
	for i := range prev {
		prev[i] = -1
	}
	closed := make([]bool, len(cost))

	goalTop := m.heights.CellTop(goal)
	open := &frontier{}
	cost[index(start)] = 0
	heap.Push(open, &entry{cell: start, f: m.heights.CellTop(start).Dist(goalTop)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*entry)
		ci := index(cur.cell)
		if closed[ci] {
			continue
		}
		closed[ci] = true
		if cur.cell == goal {
			break
		}
		curTop := m.heights.CellTop(cur.cell)
		for _, n := range m.links(cur.cell) {
			ni := index(n)
			if closed[ni] {
				continue
			}
			nTop := m.heights.CellTop(n)
			g := cost[ci] + curTop.Dist(nTop)
			if g < cost[ni] {
				cost[ni] = g
				prev[ni] = ci
				heap.Push(open, &entry{cell: n, f: g + nTop.Dist(goalTop), seq: open.pushes})
			}
		}
	}

	if !closed[index(goal)] {
		return nil
	}
	var rev []grid.Cell
	for i := index(goal); i >= 0; i = prev[i] {
		rev = append(rev, grid.Cell{X: i / dims.Depth, Z: i % dims.Depth})
	}
	out := make([]grid.Cell, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}

type entry struct {
	cell grid.Cell
	f    float64
	seq  int
}

// frontier is a min-heap on f; equal f values pop in push order.
type frontier struct {
	items  []*entry
	pushes int
}

func (q *frontier) Len() int { return len(q.items) }

func (q *frontier) Less(i, j int) bool {
	if q.items[i].f != q.items[j].f {
		return q.items[i].f < q.items[j].f
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *frontier) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *frontier) Push(x any) {
	q.pushes++
	q.items = append(q.items, x.(*entry))
}

func (q *frontier) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

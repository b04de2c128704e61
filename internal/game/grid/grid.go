// Package grid models the block world as a 2D array of stack heights.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptyCell is returned when a block is picked from a cell of height zero.
var ErrEmptyCell = errors.New("grid: cell has no blocks")

// Cell identifies one grid column.
type Cell struct {
	X int `yaml:"x" json:"x"`
	Z int `yaml:"z" json:"z"`
}

// String returns "(x,z)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Point is a continuous position in world units. Y is up.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Lerp returns the point a fraction t of the way from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
		Z: p.Z + (q.Z-p.Z)*t,
	}
}

// String returns "(x,y,z)" with two decimals.
func (p Point) String() string {
	return fmt.Sprintf("(%.2f,%.2f,%.2f)", p.X, p.Y, p.Z)
}

// Dimensions sizes a grid and fixes the world size of one block.
type Dimensions struct {
	Width     int     `yaml:"width" json:"width"`
	Depth     int     `yaml:"depth" json:"depth"`
	BlockSize float64 `yaml:"block_size" json:"block_size"`
}

// Validate reports non-positive dimensions.
func (d Dimensions) Validate() error {
	if d.Width < 1 || d.Depth < 1 {
		return fmt.Errorf("grid: dimensions must be at least 1x1, got %dx%d", d.Width, d.Depth)
	}
	if d.BlockSize <= 0 {
		return fmt.Errorf("grid: block size must be positive, got %g", d.BlockSize)
	}
	return nil
}

// Grid is a mutable height field.
//
// Invariant: every height is >= 0.
type Grid struct {
	dims    Dimensions
	heights [][]int // indexed [x][z]
}

// NewGrid returns a zero-filled grid.
//
// Precondition: dims.Validate() == nil.
func NewGrid(dims Dimensions) *Grid {
	if err := dims.Validate(); err != nil {
		panic(fmt.Sprintf("grid.NewGrid: %v", err))
	}
	heights := make([][]int, dims.Width)
	for x := range heights {
		heights[x] = make([]int, dims.Depth)
	}
	return &Grid{dims: dims, heights: heights}
}

// Dimensions returns the grid's dimensions.
func (g *Grid) Dimensions() Dimensions {
	return g.dims
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.dims.Width && c.Z >= 0 && c.Z < g.dims.Depth
}

func (g *Grid) mustBeInBounds(op string, c Cell) {
	if !g.InBounds(c) {
		panic(fmt.Sprintf("grid.%s: cell %s outside %dx%d grid", op, c, g.dims.Width, g.dims.Depth))
	}
}

// Height returns the stack height of c.
//
// Precondition: c is in bounds.
func (g *Grid) Height(c Cell) int {
	g.mustBeInBounds("Height", c)
	return g.heights[c.X][c.Z]
}

// SetHeight sets the stack height of c.
//
// Precondition: c is in bounds and h >= 0.
func (g *Grid) SetHeight(c Cell, h int) {
	g.mustBeInBounds("SetHeight", c)
	if h < 0 {
		panic(fmt.Sprintf("grid.SetHeight: negative height %d for cell %s", h, c))
	}
	g.heights[c.X][c.Z] = h
}

// Pick removes the top block of c.
//
// Postcondition: returns ErrEmptyCell and leaves the grid unchanged when c is empty.
func (g *Grid) Pick(c Cell) error {
	g.mustBeInBounds("Pick", c)
	if g.heights[c.X][c.Z] == 0 {
		return fmt.Errorf("pick %s: %w", c, ErrEmptyCell)
	}
	g.heights[c.X][c.Z]--
	return nil
}

// Place adds one block on top of c.
func (g *Grid) Place(c Cell) {
	g.mustBeInBounds("Place", c)
	g.heights[c.X][c.Z]++
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	heights := make([][]int, len(g.heights))
	for x, col := range g.heights {
		heights[x] = append([]int(nil), col...)
	}
	return &Grid{dims: g.dims, heights: heights}
}

// Heights returns a copy of the height field indexed [x][z].
func (g *Grid) Heights() [][]int {
	return g.Clone().heights
}

// Equal reports whether g and o have the same dimensions and heights.
func (g *Grid) Equal(o *Grid) bool {
	if g.dims != o.dims {
		return false
	}
	for x := range g.heights {
		for z := range g.heights[x] {
			if g.heights[x][z] != o.heights[x][z] {
				return false
			}
		}
	}
	return true
}

// CellTop returns the point standing on top of c's current stack.
//
// Precondition: c is in bounds; an out-of-range cell panics.
func (g *Grid) CellTop(c Cell) Point {
	g.mustBeInBounds("CellTop", c)
	bs := g.dims.BlockSize
	return Point{
		X: float64(c.X) * bs,
		Y: float64(g.heights[c.X][c.Z]) * bs,
		Z: float64(c.Z) * bs,
	}
}

// CellAt returns the cell whose column contains p. The result may be out of bounds.
func (g *Grid) CellAt(p Point) Cell {
	bs := g.dims.BlockSize
	return Cell{
		X: int(math.Round(p.X / bs)),
		Z: int(math.Round(p.Z / bs)),
	}
}

// neighborOffsets fixes the iteration order used for every tie-break.
var neighborOffsets = [...]Cell{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

// Neighbors returns the in-bounds 4-neighbours of c in the order +X, -X, +Z, -Z.
func (g *Grid) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		n := Cell{X: c.X + off.X, Z: c.Z + off.Z}
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Adjacent reports whether a and b share an edge.
func Adjacent(a, b Cell) bool {
	dx, dz := a.X-b.X, a.Z-b.Z
	return dx*dx+dz*dz == 1
}

// String renders heights as rows of Z, columns of X. Heights above 9 print as '+'.
func (g *Grid) String() string {
	var sb strings.Builder
	for z := 0; z < g.dims.Depth; z++ {
		for x := 0; x < g.dims.Width; x++ {
			h := g.heights[x][z]
			switch {
			case h == 0:
				sb.WriteByte('.')
			case h > 9:
				sb.WriteByte('+')
			default:
				sb.WriteByte(byte('0' + h))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

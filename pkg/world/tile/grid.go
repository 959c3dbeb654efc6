package tile

import "fmt"

// ChunkPos identifies a chunk by its X and Y coordinates on the infinite chunk grid.
// Y grows upward: the Up neighbour of (x, y) is (x, y+1).
type ChunkPos struct{ X, Y int }

// Add returns p offset by (dx, dy).
func (p ChunkPos) Add(dx, dy int) ChunkPos {
	return ChunkPos{X: p.X + dx, Y: p.Y + dy}
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is a tile matrix stored row-major (index = y*W + x).
// true is open floor, false is wall. Chunk grids are square; tests and
// tools may use rectangular ones.
type Grid struct {
	W, H  int
	cells []bool
}

// NewGrid allocates an all-wall square grid of the given side length.
// It panics if size is not positive.
func NewGrid(size int) *Grid {
	return NewRect(size, size)
}

// NewRect allocates an all-wall w×h grid. It panics on non-positive dimensions.
func NewRect(w, h int) *Grid {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("tile: invalid grid dimensions %dx%d", w, h))
	}
	return &Grid{W: w, H: h, cells: make([]bool, w*h)}
}

// Size returns the side length of a square grid (its width).
func (g *Grid) Size() int { return g.W }

// Cells exposes the backing slice so callers can scan rows directly.
func (g *Grid) Cells() []bool { return g.cells }

// Index returns the linear slice index for local coordinates (x, y).
func (g *Grid) Index(x, y int) int { return y*g.W + x }

// In reports whether (x, y) lies inside the grid.
func (g *Grid) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the tile at (x, y). The coordinates must be inside the grid.
func (g *Grid) At(x, y int) bool { return g.cells[y*g.W+x] }

// Set stores the tile at (x, y). The coordinates must be inside the grid.
func (g *Grid) Set(x, y int, open bool) { g.cells[y*g.W+x] = open }

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, cells: make([]bool, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

// Equal reports whether both grids have the same dimensions and tiles.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.W != o.W || g.H != o.H {
		return false
	}
	for i, v := range g.cells {
		if o.cells[i] != v {
			return false
		}
	}
	return true
}

// OpenCount returns the number of open tiles.
func (g *Grid) OpenCount() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// MustMatch panics when the grids do not share dimensions.
// Mixing chunk sizes is a programming error, never a recoverable condition.
func MustMatch(grids ...*Grid) {
	if len(grids) == 0 {
		return
	}
	if grids[0] == nil {
		panic("tile: grid 0 is nil")
	}
	w, h := grids[0].W, grids[0].H
	for i, g := range grids[1:] {
		if g == nil {
			panic(fmt.Sprintf("tile: grid %d is nil", i+1))
		}
		if g.W != w || g.H != h {
			panic(fmt.Sprintf("tile: grid %d is %dx%d, want %dx%d", i+1, g.W, g.H, w, h))
		}
	}
}

// Row returns the tiles of row y encoded as '#' for wall and '.' for open.
func (g *Grid) Row(y int) string {
	b := make([]byte, g.W)
	for x := 0; x < g.W; x++ {
		if g.At(x, y) {
			b[x] = '.'
		} else {
			b[x] = '#'
		}
	}
	return string(b)
}

// Rows returns every row as produced by Row, rows[0] being y = 0.
func (g *Grid) Rows() []string {
	rows := make([]string, g.H)
	for y := range rows {
		rows[y] = g.Row(y)
	}
	return rows
}

// Parse builds a grid from rows of '#' (wall) and '.' (open). rows[0] is y = 0.
// All rows must have the same length.
func Parse(rows []string) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("parse grid: empty input")
	}
	g := NewRect(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.W {
			return nil, fmt.Errorf("parse grid: row %d has length %d, want %d", y, len(row), g.W)
		}
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case '.':
				g.Set(x, y, true)
			case '#':
			default:
				return nil, fmt.Errorf("parse grid: row %d: unexpected %q", y, row[x])
			}
		}
	}
	return g, nil
}

// MustParse is Parse for fixtures; it panics on malformed input.
func MustParse(rows ...string) *Grid {
	g, err := Parse(rows)
	if err != nil {
		panic(err)
	}
	return g
}

// String renders the grid top row first, so the output reads like a map.
func (g *Grid) String() string {
	b := make([]byte, 0, (g.W+1)*g.H)
	for y := g.H - 1; y >= 0; y-- {
		b = append(b, g.Row(y)...)
		b = append(b, '\n')
	}
	return string(b)
}

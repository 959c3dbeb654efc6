package gen

import (
	"fmt"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Neighbors summarises the Moore neighbourhood of a tile.
type Neighbors struct {
	Orthogonal int // open tiles among the 4 edge-sharing neighbours
	Diagonal   int // open tiles among the 4 corner-sharing neighbours
}

// Count returns the number of open tiles in the neighbourhood (0..8).
func (n Neighbors) Count() int { return n.Orthogonal + n.Diagonal }

// Rule decides the next state of a tile from its state and neighbourhood.
type Rule interface {
	Next(open bool, n Neighbors) bool
}

// CountRule is the classic integer rule: an open tile closes when fewer than
// Death neighbours are open; a closed tile opens when more than Birth are.
type CountRule struct {
	Birth int
	Death int
}

func (r CountRule) Next(open bool, n Neighbors) bool {
	t := n.Count()
	if open {
		return t >= r.Death
	}
	return t > r.Birth
}

// WeightedRule is the continuous variant: neighbours are weighted by
// adjacency, the sum is normalised to [0,1] and compared to float thresholds
// with the same survive/birth semantics as CountRule.
type WeightedRule struct {
	Orthogonal float64 `json:"orthogonal"`
	Diagonal   float64 `json:"diagonal"`
	Birth      float64 `json:"birth"`
	Death      float64 `json:"death"`
}

func (r WeightedRule) Next(open bool, n Neighbors) bool {
	s := (r.Orthogonal*float64(n.Orthogonal) + r.Diagonal*float64(n.Diagonal)) / (4*r.Orthogonal + 4*r.Diagonal)
	if open {
		return s >= r.Death
	}
	return s > r.Birth
}

func (r WeightedRule) validate() error {
	if r.Orthogonal < 0 || r.Diagonal < 0 || r.Orthogonal+r.Diagonal == 0 {
		return fmt.Errorf("%w: weights (%v, %v) must be non-negative and not both zero", ErrInvalidConfig, r.Orthogonal, r.Diagonal)
	}
	if r.Birth < 0 || r.Birth > 1 || r.Death < 0 || r.Death > 1 {
		return fmt.Errorf("%w: weighted thresholds (%v, %v) outside [0,1]", ErrInvalidConfig, r.Birth, r.Death)
	}
	return nil
}

// Automaton bundles the evolution parameters.
type Automaton struct {
	Rule       Rule
	Iterations int
	// EdgeCell is read for any neighbour that falls outside the tracked chunks,
	// including the diagonal chunks, which are never tracked.
	EdgeCell bool
}

// Neighborhood holds the stage-0 grids of a chunk and its four axis neighbours.
// A nil neighbour is treated as untracked: its tiles read as the edge value.
type Neighborhood struct {
	Main, Up, Down, Left, Right *tile.Grid
}

const (
	slotMain = iota
	slotUp
	slotDown
	slotLeft
	slotRight
	slotCount
)

// slotOffsets are the chunk offsets of each tracked buffer relative to Main.
var slotOffsets = [slotCount][2]int{
	slotMain:  {0, 0},
	slotUp:    {0, 1},
	slotDown:  {0, -1},
	slotLeft:  {-1, 0},
	slotRight: {1, 0},
}

// slotAt maps a chunk offset to its tracked buffer, or -1.
func slotAt(dx, dy int) int {
	switch {
	case dx == 0 && dy == 0:
		return slotMain
	case dx == 0 && dy == 1:
		return slotUp
	case dx == 0 && dy == -1:
		return slotDown
	case dx == -1 && dy == 0:
		return slotLeft
	case dx == 1 && dy == 0:
		return slotRight
	}
	return -1
}

var mooreOffsets = [8][3]int{
	// dx, dy, diagonal
	{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0},
	{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
}

// Evolve runs the automaton over the main chunk and its four neighbours in
// lockstep and returns the main chunk's final grid. The neighbours evolve only
// so that the main chunk's border sees up-to-date values; their buffers are
// discarded. Inputs are not modified. Mismatched grid sizes panic.
func Evolve(n Neighborhood, a Automaton) *tile.Grid {
	if n.Main == nil {
		panic("gen: evolve without a main grid")
	}
	if n.Main.W != n.Main.H {
		panic(fmt.Sprintf("gen: chunk grid must be square, got %dx%d", n.Main.W, n.Main.H))
	}
	size := n.Main.Size()

	var cur, nxt [slotCount]*tile.Grid
	for i, g := range [slotCount]*tile.Grid{n.Main, n.Up, n.Down, n.Left, n.Right} {
		if g == nil {
			continue
		}
		tile.MustMatch(n.Main, g)
		cur[i] = g.Clone()
		nxt[i] = tile.NewGrid(size)
	}
	if a.Iterations <= 0 {
		return cur[slotMain]
	}

	for it := 0; it < a.Iterations; it++ {
		for slot := range cur {
			if cur[slot] == nil {
				continue
			}
			step(&cur, slot, nxt[slot], a)
		}
		cur, nxt = nxt, cur
	}
	return cur[slotMain]
}

// step writes the next generation of buffer slot into dst, reading only from cur.
func step(cur *[slotCount]*tile.Grid, slot int, dst *tile.Grid, a Automaton) {
	src := cur[slot]
	size := src.Size()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var nb Neighbors
			for _, o := range mooreOffsets {
				if !sample(cur, slot, x+o[0], y+o[1], a.EdgeCell) {
					continue
				}
				if o[2] == 1 {
					nb.Diagonal++
				} else {
					nb.Orthogonal++
				}
			}
			dst.Set(x, y, a.Rule.Next(src.At(x, y), nb))
		}
	}
}

// sample reads local coordinate (x, y) of buffer slot, following it into the
// adjacent tracked buffer when it leaves the chunk.
func sample(cur *[slotCount]*tile.Grid, slot, x, y int, edge bool) bool {
	g := cur[slot]
	size := g.Size()
	if x >= 0 && y >= 0 && x < size && y < size {
		return g.At(x, y)
	}
	cx, lx := floorDiv(x, size)
	cy, ly := floorDiv(y, size)
	off := slotOffsets[slot]
	target := slotAt(off[0]+cx, off[1]+cy)
	if target < 0 || cur[target] == nil {
		return edge
	}
	return cur[target].At(lx, ly)
}

// floorDiv returns floor(v/n) and the non-negative remainder.
func floorDiv(v, n int) (q, r int) {
	q = v / n
	r = v % n
	if r < 0 {
		q--
		r += n
	}
	return q, r
}

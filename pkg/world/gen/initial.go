package gen

import "github.com/OCharnyshevich/endless-cavern/pkg/world/tile"

// GenerateInitial produces the stage-0 grid of a chunk.
// The generator is consumed row by row (y outer, x inner), one Float64 per
// tile; a tile is open when its draw falls below liveProbability.
// It panics if size is not positive.
func GenerateInitial(chunkSeed int64, size int, liveProbability float64) *tile.Grid {
	g := tile.NewGrid(size)
	rng := NewRand(chunkSeed)
	cells := g.Cells()
	for i := range cells {
		cells[i] = rng.Float64() < liveProbability
	}
	return g
}

package region

import "github.com/OCharnyshevich/endless-cavern/pkg/world/tile"

// Stats summarises the open space of a grid.
type Stats struct {
	Open       int // open tiles
	Components int // 4-connected components of open tiles
}

// Measure counts the open tiles of grid and its 4-connected components,
// without banding, so it is independent of the partitioner.
func Measure(grid *tile.Grid) Stats {
	b := fillBand(grid, newLabelMap(grid.W, grid.H), 0, grid.H)
	return Stats{Open: grid.OpenCount(), Components: b.count}
}

package region

import (
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// BlockSize is the side of the tile block summarised by one block-map cell.
const BlockSize = 3

// Bands is the number of horizontal bands flood-filled independently.
const Bands = 3

// Point is a tile or block coordinate.
type Point struct{ X, Y int }

func manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LabelMap assigns every tile the label of the region it belongs to, Wall for closed tiles.
type LabelMap struct {
	W, H   int
	labels []int
}

func newLabelMap(w, h int) *LabelMap {
	return &LabelMap{W: w, H: h, labels: make([]int, w*h)}
}

// At returns the raw (unresolved) label of tile (x, y).
func (m *LabelMap) At(x, y int) int { return m.labels[y*m.W+x] }

// Set stores the raw label of tile (x, y).
func (m *LabelMap) Set(x, y, label int) { m.labels[y*m.W+x] = label }

// BlockMap is the coarse label map: one cell per BlockSize×BlockSize tile
// block, holding the label of the region that most recently claimed a tile in it.
type BlockMap struct {
	W, H   int
	labels []int
}

func newBlockMap(tilesW, tilesH int) *BlockMap {
	w := (tilesW + BlockSize - 1) / BlockSize
	h := (tilesH + BlockSize - 1) / BlockSize
	return &BlockMap{W: w, H: h, labels: make([]int, w*h)}
}

// At returns the raw label of block (bx, by).
func (m *BlockMap) At(bx, by int) int { return m.labels[by*m.W+bx] }

// Claim records label as the latest claimer of the block containing tile (x, y).
func (m *BlockMap) Claim(x, y, label int) {
	m.labels[(y/BlockSize)*m.W+x/BlockSize] = label
}

// In reports whether block (bx, by) exists.
func (m *BlockMap) In(bx, by int) bool {
	return bx >= 0 && by >= 0 && bx < m.W && by < m.H
}

// BlockOf returns the block containing tile p.
func BlockOf(p Point) Point {
	return Point{X: p.X / BlockSize, Y: p.Y / BlockSize}
}

// Partition is the labelled region layout of a grid.
type Partition struct {
	Labels *LabelMap
	Blocks *BlockMap
	Table  *Table
	// Anchors[label] is the last tile visited by the flood fill that created label.
	Anchors []Point
}

// Resolved returns the resolved region id of tile (x, y), Wall for closed tiles.
func (p *Partition) Resolved(x, y int) int {
	return p.Table.Resolve(p.Labels.At(x, y))
}

// Regions returns the distinct resolved region ids in discovery order.
func (p *Partition) Regions() []int {
	return p.Table.Regions()
}

// BandBounds returns the row range [start, end) of band k for a grid of height h.
func BandBounds(h, k int) (start, end int) {
	return h * k / Bands, h * (k + 1) / Bands
}

// band is the result of flood filling one horizontal band with local labels 1..count.
type band struct {
	count   int
	blocks  *BlockMap
	anchors []Point
}

// NewPartition labels the open tiles of grid. Each band is flood filled on its
// own goroutine using band-local labels; labels are then renumbered in band
// order, so the outcome is identical to filling the bands one after another.
// Finally the seams between bands are reconciled through the table.
func NewPartition(grid *tile.Grid) *Partition {
	labels := newLabelMap(grid.W, grid.H)
	var bands [Bands]band

	var g errgroup.Group
	for k := range bands {
		g.Go(func() error {
			start, end := BandBounds(grid.H, k)
			bands[k] = fillBand(grid, labels, start, end)
			return nil
		})
	}
	_ = g.Wait()

	p := &Partition{
		Labels:  labels,
		Blocks:  newBlockMap(grid.W, grid.H),
		Table:   NewTable(),
		Anchors: []Point{{}},
	}

	offset := 0
	for k, b := range bands {
		for i := 0; i < b.count; i++ {
			p.Table.Add()
		}
		p.Anchors = append(p.Anchors, b.anchors...)
		if offset > 0 {
			start, end := BandBounds(grid.H, k)
			for i := start * grid.W; i < end*grid.W; i++ {
				if labels.labels[i] != Wall {
					labels.labels[i] += offset
				}
			}
		}
		for i, l := range b.blocks.labels {
			if l != Wall {
				p.Blocks.labels[i] = l + offset
			}
		}
		offset += b.count
	}

	p.reconcileSeams()
	return p
}

// fillBand flood fills rows [start, end) with 4-connected BFS. Fills never
// leave the band, which bounds the queue and keeps bands independent.
func fillBand(grid *tile.Grid, labels *LabelMap, start, end int) band {
	b := band{blocks: newBlockMap(grid.W, grid.H)}
	if start >= end {
		return b
	}
	queue := make([]Point, 0, grid.W*(end-start))

	for y := start; y < end; y++ {
		for x := 0; x < grid.W; x++ {
			if !grid.At(x, y) || labels.At(x, y) != Wall {
				continue
			}
			b.count++
			label := b.count
			labels.Set(x, y, label)
			queue = append(queue[:0], Point{x, y})
			var last Point

			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				last = cur
				b.blocks.Claim(cur.X, cur.Y, label)

				for _, d := range [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := cur.X+d.X, cur.Y+d.Y
					if nx < 0 || nx >= grid.W || ny < start || ny >= end {
						continue
					}
					if !grid.At(nx, ny) || labels.At(nx, ny) != Wall {
						continue
					}
					labels.Set(nx, ny, label)
					queue = append(queue, Point{nx, ny})
				}
			}
			b.anchors = append(b.anchors, last)
		}
	}
	return b
}

// reconcileSeams merges regions that touch across a band boundary. Only the
// table is rewritten; no tile is walked twice.
func (p *Partition) reconcileSeams() {
	for k := 1; k < Bands; k++ {
		y, _ := BandBounds(p.Labels.H, k)
		if y <= 0 || y >= p.Labels.H {
			continue
		}
		for x := 0; x < p.Labels.W; x++ {
			above, below := p.Labels.At(x, y), p.Labels.At(x, y-1)
			if above == Wall || below == Wall {
				continue
			}
			p.Table.Merge(below, above)
		}
	}
}

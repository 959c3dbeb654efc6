package region

import (
	"math"
	"math/rand/v2"

	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/mapset"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// carveStream selects the PCG stream of the carving walk.
const carveStream = 0x2545f4914f6cdd1d

// Result reports what Connect did to a grid.
type Result struct {
	Grid *tile.Grid
	// Base is the resolved id every connected region now resolves to.
	Base int
	// Merged lists the region ids merged into Base, in merge order.
	Merged []int
	// Unmerged lists region ids still separate from Base. Non-empty only when
	// a walk could not reach the base region.
	Unmerged []int
	// Carved counts wall tiles opened.
	Carved int
}

// Connected reports whether every region ended up merged into the base region.
func (r Result) Connected() bool { return len(r.Unmerged) == 0 }

// Connect carves tunnels until all regions of p resolve to one id. It mutates
// grid and p in place and returns grid inside the Result. A partition with
// fewer than two regions is left untouched. The walk is reproducible for a
// given carveSeed.
func Connect(p *Partition, grid *tile.Grid, carveSeed int64) Result {
	if grid.W != p.Labels.W || grid.H != p.Labels.H {
		panic("region: partition and grid dimensions differ")
	}
	res := Result{Grid: grid}
	regions := p.Regions()
	if len(regions) == 0 {
		return res
	}
	res.Base = p.Table.Resolve(1)
	if len(regions) == 1 {
		return res
	}

	c := &connector{
		p:    p,
		grid: grid,
		rng:  rand.New(rand.NewPCG(uint64(carveSeed), carveStream)),
	}

	pending := mapset.New[int]()
	for _, id := range regions {
		if id != res.Base {
			pending.Put(id)
		}
	}

	for _, id := range regions {
		if !pending.Has(id) {
			continue
		}
		base := p.Table.Resolve(1)
		touched, ok := c.bridge(id, base)
		if !ok {
			pending.Remove(id)
			continue
		}
		for _, t := range touched {
			if p.Table.Merge(t, base) {
				res.Merged = append(res.Merged, t)
			}
			pending.Remove(t)
		}
	}

	res.Base = p.Table.Resolve(1)
	for _, id := range p.Regions() {
		if id != res.Base {
			res.Unmerged = append(res.Unmerged, id)
		}
	}
	res.Carved = c.carved
	return res
}

type connector struct {
	p      *Partition
	grid   *tile.Grid
	rng    *rand.Rand
	carved int
}

// bridge links region id to base and returns every region the tunnel
// touched, id first. It reports false if the walk could not reach base.
func (c *connector) bridge(id, base int) ([]int, bool) {
	baseHint := BlockOf(c.p.Anchors[1])
	idHint := BlockOf(c.anchorOf(id))

	baseBlock := c.closestBlock(base, c.startBlock(base, baseHint, idHint), idHint)
	idBlock := c.closestBlock(id, c.startBlock(id, idHint, baseBlock), baseBlock)

	baseTile := c.tileIn(base, baseBlock, idBlock)
	start := c.tileIn(id, idBlock, baseBlock)
	return c.walk(id, base, start, baseTile)
}

// anchorOf returns the anchor of the lowest label resolving to id.
func (c *connector) anchorOf(id int) Point {
	for label := 1; label < c.p.Table.Len(); label++ {
		if c.p.Table.Resolve(label) == id {
			return c.p.Anchors[label]
		}
	}
	return c.p.Anchors[id]
}

// startBlock returns hint if it belongs to id, otherwise the block of id
// closest to target. Falls back to hint when no block belongs to id.
func (c *connector) startBlock(id int, hint, target Point) Point {
	b := c.p.Blocks
	if c.p.Table.Resolve(b.At(hint.X, hint.Y)) == id {
		return hint
	}
	best, bestDist := hint, math.MaxInt
	for by := 0; by < b.H; by++ {
		for bx := 0; bx < b.W; bx++ {
			if c.p.Table.Resolve(b.At(bx, by)) != id {
				continue
			}
			if d := manhattan(Point{bx, by}, target); d < bestDist {
				best, bestDist = Point{bx, by}, d
			}
		}
	}
	return best
}

type searchNode struct {
	pos  Point
	dist int
}

// closestBlock runs a best-first search over the blocks of region id,
// starting at start, for the block closest to target by Manhattan distance.
// Frontier nodes farther than twice the best distance so far are pruned.
func (c *connector) closestBlock(id int, start, target Point) Point {
	b := c.p.Blocks
	if c.p.Table.Resolve(b.At(start.X, start.Y)) != id {
		return start
	}

	marks := make([]bool, b.W*b.H)
	marks[start.Y*b.W+start.X] = true
	open := heap.New[searchNode](func(x, y searchNode) bool { return x.dist < y.dist })
	open.Push(searchNode{pos: start, dist: manhattan(start, target)})

	closest, minDist := start, math.MaxInt
	for open.Size() > 0 {
		n, _ := open.Pop()
		if n.dist < minDist {
			closest, minDist = n.pos, n.dist
		}
		for _, d := range [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			next := Point{n.pos.X + d.X, n.pos.Y + d.Y}
			if !b.In(next.X, next.Y) || marks[next.Y*b.W+next.X] {
				continue
			}
			if c.p.Table.Resolve(b.At(next.X, next.Y)) != id {
				continue
			}
			dist := manhattan(next, target)
			if dist >= 2*minDist {
				continue
			}
			marks[next.Y*b.W+next.X] = true
			open.Push(searchNode{pos: next, dist: dist})
		}
	}
	return closest
}

// tileIn returns the first tile of block (row-major) resolving to id. When
// the block holds none, the tile of id nearest to the centre of toward is used.
func (c *connector) tileIn(id int, block, toward Point) Point {
	x0, y0 := block.X*BlockSize, block.Y*BlockSize
	for y := y0; y < y0+BlockSize && y < c.grid.H; y++ {
		for x := x0; x < x0+BlockSize && x < c.grid.W; x++ {
			if c.p.Resolved(x, y) == id {
				return Point{x, y}
			}
		}
	}

	target := Point{toward.X*BlockSize + BlockSize/2, toward.Y*BlockSize + BlockSize/2}
	best, bestDist := Point{x0, y0}, math.MaxInt
	for y := 0; y < c.grid.H; y++ {
		for x := 0; x < c.grid.W; x++ {
			if c.p.Resolved(x, y) != id {
				continue
			}
			if d := manhattan(Point{x, y}, target); d < bestDist {
				best, bestDist = Point{x, y}, d
			}
		}
	}
	return best
}

// walk moves from start toward goal, stepping through open tiles for free and
// carving walls when boxed in, until it stands on a tile of base. Every region
// crossed on the way is returned for merging.
func (c *connector) walk(id, base int, start, goal Point) ([]int, bool) {
	touched := []int{id}
	seen := mapset.New[int]()
	seen.Put(id)

	cur := start
	limit := 4 * c.grid.W * c.grid.H
	for steps := 0; ; steps++ {
		r := c.p.Resolved(cur.X, cur.Y)
		if r == base {
			return touched, true
		}
		if r != Wall && !seen.Has(r) {
			seen.Put(r)
			touched = append(touched, r)
		}
		dx, dy := goal.X-cur.X, goal.Y-cur.Y
		if (dx == 0 && dy == 0) || steps >= limit {
			return touched, false
		}

		if next, ok := c.freeStep(cur, dx, dy); ok {
			cur = next
			continue
		}
		cur = c.carveStep(id, cur, dx, dy)
	}
}

// freeStep moves into an open neighbour that reduces the distance to the
// goal, trying the dominant axis first.
func (c *connector) freeStep(cur Point, dx, dy int) (Point, bool) {
	xStep := Point{cur.X + sign(dx), cur.Y}
	yStep := Point{cur.X, cur.Y + sign(dy)}
	order := [2]Point{xStep, yStep}
	ok := [2]bool{dx != 0, dy != 0}
	if abs(dy) > abs(dx) {
		order[0], order[1] = yStep, xStep
		ok[0], ok[1] = ok[1], ok[0]
	}
	for i, p := range order {
		if ok[i] && c.grid.In(p.X, p.Y) && c.grid.At(p.X, p.Y) {
			return p, true
		}
	}
	return cur, false
}

// carveStep opens the next tile toward the goal and moves into it. The axis
// is drawn with probability proportional to the remaining displacement on it;
// a second draw may also open a perpendicular neighbour so tunnels zig-zag.
func (c *connector) carveStep(id int, cur Point, dx, dy int) Point {
	pickX := c.rng.Float64()*float64(abs(dx)+abs(dy)) < float64(abs(dx))
	zz := c.rng.Float64()
	zigzag := math.Abs(math.Cos(2 * math.Atan2(float64(dy), float64(dx))))

	if pickX {
		if zz < zigzag {
			if zz < zigzag/2 {
				c.open(id, cur.X, cur.Y+1)
			} else {
				c.open(id, cur.X, cur.Y-1)
			}
		}
		cur.X += sign(dx)
	} else {
		if zz < zigzag {
			if zz < zigzag/2 {
				c.open(id, cur.X+1, cur.Y)
			} else {
				c.open(id, cur.X-1, cur.Y)
			}
		}
		cur.Y += sign(dy)
	}
	c.open(id, cur.X, cur.Y)
	return cur
}

// open turns a wall tile into floor owned by region id.
func (c *connector) open(id, x, y int) {
	if !c.grid.In(x, y) || c.grid.At(x, y) {
		return
	}
	c.grid.Set(x, y, true)
	c.p.Labels.Set(x, y, id)
	c.p.Blocks.Claim(x, y, id)
	c.carved++
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

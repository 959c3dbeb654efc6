package world

import (
	"cmp"
	"context"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Threshold maps a distance from the observer to the stage chunks closer
// than it are prepared to.
type Threshold struct {
	Distance float64   `json:"distance"`
	Stage    gen.Stage `json:"stage"`
}

// DefaultThresholds streams chunks within viewDistance chunks of the
// observer and keeps a ring of automaton grids one chunk further out.
func DefaultThresholds(chunkSize, viewDistance int) []Threshold {
	s, vd := float64(chunkSize), float64(viewDistance)
	return []Threshold{
		{Distance: (vd + 0.5) * s, Stage: gen.StageConnected},
		{Distance: (vd + 1.5) * s, Stage: gen.StageAutomaton},
	}
}

// Target is a chunk the observer needs at a given stage.
type Target struct {
	Pos   tile.ChunkPos
	Stage gen.Stage
}

// ObserverChunk returns the chunk containing a world-space position.
func (w *World) ObserverChunk(x, y float64) tile.ChunkPos {
	s := float64(w.size)
	return tile.ChunkPos{X: int(math.Floor(x / s)), Y: int(math.Floor(y / s))}
}

// Plan lists the chunks around an observer at world position (x, y) within
// maxRange chunks that fall inside a threshold, each with the stage of the
// tightest threshold it satisfies. Distance is measured from the observer to
// the nearest point of the chunk.
func (w *World) Plan(x, y float64, maxRange int, thresholds []Threshold) []Target {
	th := slices.Clone(thresholds)
	slices.SortFunc(th, func(a, b Threshold) int { return cmp.Compare(a.Distance, b.Distance) })

	var out []Target
	for _, pos := range Window(w.ObserverChunk(x, y), maxRange) {
		d := w.sqrDistance(pos, x, y)
		for _, t := range th {
			if d < t.Distance*t.Distance {
				out = append(out, Target{Pos: pos, Stage: t.Stage})
				break
			}
		}
	}
	return out
}

// Prepare advances every target to its stage concurrently.
func (w *World) Prepare(ctx context.Context, targets []Target) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range targets {
		g.Go(func() error {
			_, err := w.pipeline.Advance(gctx, t.Pos, t.Stage)
			return err
		})
	}
	return g.Wait()
}

// sqrDistance is the squared distance from (x, y) to the bounds of chunk pos.
func (w *World) sqrDistance(pos tile.ChunkPos, x, y float64) float64 {
	s := float64(w.size)
	minX, minY := float64(pos.X)*s, float64(pos.Y)*s
	dx := math.Max(0, math.Max(minX-x, x-(minX+s)))
	dy := math.Max(0, math.Max(minY-y, y-(minY+s)))
	return dx*dx + dy*dy
}

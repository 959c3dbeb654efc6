package world

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Direction names an axis neighbour of a chunk.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Offset returns the chunk offset of the neighbour in direction d.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case Up:
		return 0, 1
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// World serves tiles of the infinite cave addressed by world coordinates.
type World struct {
	pipeline *gen.Pipeline
	log      *slog.Logger
	size     int
}

// New creates a World generating chunks through p.
func New(p *gen.Pipeline, log *slog.Logger) *World {
	return &World{
		pipeline: p,
		log:      log,
		size:     p.Config().ChunkSize,
	}
}

// ChunkSize returns the side length of every chunk in tiles.
func (w *World) ChunkSize() int { return w.size }

// Pipeline returns the generation pipeline backing the world.
func (w *World) Pipeline() *gen.Pipeline { return w.pipeline }

// Chunk returns the final grid of chunk pos. The grid is shared and must not be modified.
func (w *World) Chunk(ctx context.Context, pos tile.ChunkPos) (*tile.Grid, error) {
	return w.pipeline.Advance(ctx, pos, gen.StageConnected)
}

// ChunkOf returns the chunk containing world tile (wx, wy) and the tile's
// local coordinates inside it. Negative coordinates round toward minus infinity.
func (w *World) ChunkOf(wx, wy int) (pos tile.ChunkPos, lx, ly int) {
	cx, lx := floorDiv(wx, w.size)
	cy, ly := floorDiv(wy, w.size)
	return tile.ChunkPos{X: cx, Y: cy}, lx, ly
}

// TileAt reports whether world tile (wx, wy) is open.
func (w *World) TileAt(ctx context.Context, wx, wy int) (bool, error) {
	pos, lx, ly := w.ChunkOf(wx, wy)
	g, err := w.Chunk(ctx, pos)
	if err != nil {
		return false, err
	}
	return g.At(lx, ly), nil
}

// PreGenerateRadius generates all chunks within radius of center (a square
// of side 2*radius+1) and returns how many were generated.
func (w *World) PreGenerateRadius(ctx context.Context, center tile.ChunkPos, radius int) (int, error) {
	positions := Window(center, radius)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, pos := range positions {
		g.Go(func() error {
			_, err := w.Chunk(gctx, pos)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("pre-generate around %s: %w", center, err)
	}
	w.log.Info("pre-generated chunks", "center", center, "radius", radius, "count", len(positions))
	return len(positions), nil
}

// Seam returns the tiles of the neighbour in direction d that touch chunk
// pos, ordered by increasing x (Up, Down) or y (Left, Right). Renderers use
// it to stitch boundary geometry.
func (w *World) Seam(ctx context.Context, pos tile.ChunkPos, d Direction) ([]bool, error) {
	dx, dy := d.Offset()
	g, err := w.Chunk(ctx, pos.Add(dx, dy))
	if err != nil {
		return nil, err
	}
	last := w.size - 1
	edge := make([]bool, w.size)
	for i := range edge {
		switch d {
		case Up:
			edge[i] = g.At(i, 0)
		case Down:
			edge[i] = g.At(i, last)
		case Left:
			edge[i] = g.At(last, i)
		case Right:
			edge[i] = g.At(0, i)
		}
	}
	return edge, nil
}

// Window lists the chunks within Chebyshev distance radius of center, row by row.
func Window(center tile.ChunkPos, radius int) []tile.ChunkPos {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]tile.ChunkPos, 0, side*side)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, center.Add(dx, dy))
		}
	}
	return out
}

// InViewDistance checks if two chunk positions are within view distance
// using Chebyshev (chessboard) distance.
func InViewDistance(a, b tile.ChunkPos, viewDist int) bool {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= viewDist && dy <= viewDist
}

func floorDiv(v, n int) (q, r int) {
	q, r = v/n, v%n
	if r < 0 {
		q--
		r += n
	}
	return q, r
}

package gen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/region"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Stage is one of the sequential transformations a chunk grid goes through.
type Stage int

const (
	StageInitial   Stage = iota // raw random fill
	StageAutomaton              // cellular automaton applied
	StageConnected              // connectivity repaired, final
	StageDone                   // every stage computed
)

func (s Stage) String() string {
	switch s {
	case StageInitial:
		return "initial"
	case StageAutomaton:
		return "automaton"
	case StageConnected:
		return "connected"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrUnknownStage is returned when a stage outside [StageInitial, StageConnected] is requested.
var ErrUnknownStage = errors.New("unknown stage")

// Pipeline computes chunk grids stage by stage on demand. Every (chunk, stage)
// result is a pure function of the config and the cached inputs, so Advance
// is safe for concurrent use: identical in-flight requests are collapsed and
// the cache keeps the first grid stored.
type Pipeline struct {
	cfg   Config
	auto  Automaton
	cache TileCache
	log   *slog.Logger

	flight singleflight.Group

	mu       sync.Mutex
	next     map[tile.ChunkPos]Stage
	unmerged map[tile.ChunkPos][]int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache makes the pipeline read and write grids through c.
func WithCache(c TileCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger used for stage and connectivity events.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline validates cfg and returns a pipeline. An invalid config is
// rejected here so that no grid is ever produced from it.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:      cfg,
		auto:     cfg.Automaton(),
		next:     make(map[tile.ChunkPos]Stage),
		unmerged: make(map[tile.ChunkPos][]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = NewMemoryCache()
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	return p, nil
}

// Config returns the validated generation config.
func (p *Pipeline) Config() Config { return p.cfg }

// Cache returns the tile cache backing the pipeline.
func (p *Pipeline) Cache() TileCache { return p.cache }

// Advance returns the grid of chunk pos at stage, computing it and every
// stage it depends on if needed. The returned grid is shared with the cache
// and must not be modified.
func (p *Pipeline) Advance(ctx context.Context, pos tile.ChunkPos, stage Stage) (*tile.Grid, error) {
	if stage < StageInitial || stage > StageConnected {
		return nil, fmt.Errorf("advance chunk %s: %w: %d", pos, ErrUnknownStage, int(stage))
	}
	if g, ok := p.cache.Get(pos, stage); ok {
		p.markDone(pos, stage)
		return g, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Shared work is detached from caller cancellation; each caller stops
	// waiting on its own ctx.
	work := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%d,%d/%d", pos.X, pos.Y, stage)
	ch := p.flight.DoChan(key, func() (any, error) {
		if g, ok := p.cache.Get(pos, stage); ok {
			return g, nil
		}
		g, err := p.compute(work, pos, stage)
		if err != nil {
			return nil, err
		}
		return p.cache.Put(pos, stage, g), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p.markDone(pos, stage)
		return res.Val.(*tile.Grid), nil
	}
}

// Next returns the next stage chunk pos still needs; StageInitial for chunks
// never referenced and StageDone once the final grid exists.
func (p *Pipeline) Next(pos tile.ChunkPos) Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next[pos]
}

// Unmerged returns the region ids the connector could not join for chunk
// pos. The second result is false while no final grid of the chunk exists.
// For a final grid this pipeline did not compute, such as one read back from
// region files, the grid is partitioned again and every region other than the
// first is reported.
func (p *Pipeline) Unmerged(pos tile.ChunkPos) ([]int, bool) {
	p.mu.Lock()
	ids, ok := p.unmerged[pos]
	p.mu.Unlock()
	if ok {
		return ids, true
	}

	g, ok := p.cache.Get(pos, StageConnected)
	if !ok {
		return nil, false
	}
	ids = disconnected(g)
	p.mu.Lock()
	p.unmerged[pos] = ids
	p.mu.Unlock()
	return ids, true
}

// disconnected lists the regions of g that do not resolve to the first one.
func disconnected(g *tile.Grid) []int {
	part := region.NewPartition(g)
	regions := part.Regions()
	if len(regions) < 2 {
		return nil
	}
	base := part.Table.Resolve(1)
	var out []int
	for _, id := range regions {
		if id != base {
			out = append(out, id)
		}
	}
	return out
}

// ChunkSeed returns the derived seed of chunk pos.
func (p *Pipeline) ChunkSeed(pos tile.ChunkPos) int64 {
	return DeriveSeed(p.cfg.GlobalSeed, pos.X, pos.Y)
}

// markDone advances the chunk's stage state; it never moves backwards.
func (p *Pipeline) markDone(pos tile.ChunkPos, stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next[pos] <= stage {
		p.next[pos] = stage + 1
	}
}

func (p *Pipeline) compute(ctx context.Context, pos tile.ChunkPos, stage Stage) (*tile.Grid, error) {
	switch stage {
	case StageInitial:
		return GenerateInitial(p.ChunkSeed(pos), p.cfg.ChunkSize, p.cfg.LiveProbability), nil
	case StageAutomaton:
		return p.computeAutomaton(ctx, pos)
	default:
		return p.computeConnected(ctx, pos)
	}
}

// computeAutomaton waits until the stage-0 grids of the chunk and its four
// axis neighbours exist, then evolves them together.
func (p *Pipeline) computeAutomaton(ctx context.Context, pos tile.ChunkPos) (*tile.Grid, error) {
	offsets := [slotCount]tile.ChunkPos{}
	for i, o := range slotOffsets {
		offsets[i] = pos.Add(o[0], o[1])
	}

	var grids [slotCount]*tile.Grid
	g, gctx := errgroup.WithContext(ctx)
	for i, at := range offsets {
		g.Go(func() error {
			grid, err := p.Advance(gctx, at, StageInitial)
			if err != nil {
				return err
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("chunk %s neighbourhood: %w", pos, err)
	}

	p.log.Debug("evolving chunk", "chunk", pos, "iterations", p.auto.Iterations)
	return Evolve(Neighborhood{
		Main:  grids[slotMain],
		Up:    grids[slotUp],
		Down:  grids[slotDown],
		Left:  grids[slotLeft],
		Right: grids[slotRight],
	}, p.auto), nil
}

// computeConnected partitions the evolved grid and carves it into one region.
func (p *Pipeline) computeConnected(ctx context.Context, pos tile.ChunkPos) (*tile.Grid, error) {
	evolved, err := p.Advance(ctx, pos, StageAutomaton)
	if err != nil {
		return nil, err
	}

	grid := evolved.Clone()
	part := region.NewPartition(grid)
	regions := len(part.Regions())
	res := region.Connect(part, grid, p.ChunkSeed(pos))

	p.mu.Lock()
	p.unmerged[pos] = res.Unmerged
	p.mu.Unlock()

	if !res.Connected() {
		p.log.Warn("chunk left disconnected", "chunk", pos, "unmerged", res.Unmerged)
	}
	p.log.Debug("connected chunk", "chunk", pos, "regions", regions, "carved", res.Carved)
	return grid, nil
}

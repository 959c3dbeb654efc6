package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/regionfile"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

type regionKey struct {
	RX, RY int
	Stage  gen.Stage
}

func regionKeyOf(pos tile.ChunkPos, stage gen.Stage) regionKey {
	rx, ry := regionfile.RegionOf(pos)
	return regionKey{RX: rx, RY: ry, Stage: stage}
}

// RegionCache is a gen.TileCache backed by memory and region files. Grids of
// persisted stages are read from disk a region at a time on first access and
// written back by Flush.
type RegionCache struct {
	dir       string
	log       *slog.Logger
	mem       *gen.MemoryCache
	persisted mapset.Set[gen.Stage]

	mu     sync.Mutex
	loaded mapset.Set[regionKey]
	dirty  mapset.Set[regionKey]
}

// NewRegionCache creates a cache storing region files in dir.
func NewRegionCache(dir string, log *slog.Logger, stages ...gen.Stage) *RegionCache {
	if len(stages) == 0 {
		stages = []gen.Stage{gen.StageConnected}
	}
	c := &RegionCache{
		dir:       dir,
		log:       log,
		mem:       gen.NewMemoryCache(),
		persisted: mapset.New[gen.Stage](),
		loaded:    mapset.New[regionKey](),
		dirty:     mapset.New[regionKey](),
	}
	for _, s := range stages {
		c.persisted.Put(s)
	}
	return c
}

func (c *RegionCache) Get(pos tile.ChunkPos, stage gen.Stage) (*tile.Grid, bool) {
	if g, ok := c.mem.Get(pos, stage); ok {
		return g, true
	}
	if !c.persisted.Has(stage) {
		return nil, false
	}
	c.ensureLoaded(regionKeyOf(pos, stage))
	return c.mem.Get(pos, stage)
}

func (c *RegionCache) Put(pos tile.ChunkPos, stage gen.Stage, g *tile.Grid) *tile.Grid {
	winner := c.mem.Put(pos, stage, g)
	if winner == g && c.persisted.Has(stage) {
		c.mu.Lock()
		c.dirty.Put(regionKeyOf(pos, stage))
		c.mu.Unlock()
	}
	return winner
}

// Len returns the number of grids held in memory.
func (c *RegionCache) Len() int { return c.mem.Len() }

// Dirty returns the number of regions with unsaved chunks.
func (c *RegionCache) Dirty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty.Size()
}

// ensureLoaded merges the region file of k into memory once. Unreadable
// files are logged and skipped; their chunks are regenerated and the file is
// rewritten on the next flush.
func (c *RegionCache) ensureLoaded(k regionKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded.Has(k) {
		return
	}
	c.loaded.Put(k)

	grids, err := regionfile.LoadAll(c.dir, k.RX, k.RY, k.Stage)
	if err != nil {
		c.log.Warn("discarding unreadable region", "rx", k.RX, "ry", k.RY, "stage", k.Stage, "error", err)
		return
	}
	for pos, g := range grids {
		c.mem.Put(pos, k.Stage, g)
	}
	if len(grids) > 0 {
		c.log.Debug("loaded region", "rx", k.RX, "ry", k.RY, "stage", k.Stage, "chunks", len(grids))
	}
}

// Flush writes every region holding chunks added since the last flush.
// Regions that fail to save stay dirty.
func (c *RegionCache) Flush() error {
	c.mu.Lock()
	var keys []regionKey
	c.dirty.Each(func(k regionKey) { keys = append(keys, k) })
	for _, k := range keys {
		c.dirty.Remove(k)
	}
	c.mu.Unlock()
	if len(keys) == 0 {
		return nil
	}

	// Regions never read from disk may still hold chunks from an earlier run.
	wanted := mapset.New[regionKey]()
	for _, k := range keys {
		c.ensureLoaded(k)
		wanted.Put(k)
	}

	byRegion := make(map[regionKey]map[tile.ChunkPos]*tile.Grid, len(keys))
	c.mem.ForEach(func(ck gen.CacheKey, g *tile.Grid) {
		k := regionKeyOf(ck.Pos, ck.Stage)
		if !wanted.Has(k) {
			return
		}
		if byRegion[k] == nil {
			byRegion[k] = make(map[tile.ChunkPos]*tile.Grid)
		}
		byRegion[k][ck.Pos] = g
	})

	var errs []error
	for _, k := range keys {
		if err := regionfile.Save(c.dir, k.RX, k.RY, k.Stage, byRegion[k]); err != nil {
			errs = append(errs, fmt.Errorf("region (%d,%d) stage %s: %w", k.RX, k.RY, k.Stage, err))
			c.mu.Lock()
			c.dirty.Put(k)
			c.mu.Unlock()
		}
	}
	c.log.Info("flushed regions", "count", len(keys)-len(errs))
	return errors.Join(errs...)
}

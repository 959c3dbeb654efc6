package gen

import (
	"sync"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// TileCache stores the grid produced for each (chunk, stage) pair.
// Implementations must be safe for concurrent use. Put is first-writer-wins:
// when a grid is already stored it is kept and returned instead of g.
type TileCache interface {
	Get(pos tile.ChunkPos, stage Stage) (*tile.Grid, bool)
	Put(pos tile.ChunkPos, stage Stage, g *tile.Grid) *tile.Grid
}

// CacheKey addresses one cached grid.
type CacheKey struct {
	Pos   tile.ChunkPos
	Stage Stage
}

// MemoryCache is an unbounded in-memory TileCache.
type MemoryCache struct {
	mu    sync.RWMutex
	grids map[CacheKey]*tile.Grid
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{grids: make(map[CacheKey]*tile.Grid)}
}

func (c *MemoryCache) Get(pos tile.ChunkPos, stage Stage) (*tile.Grid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grids[CacheKey{pos, stage}]
	return g, ok
}

func (c *MemoryCache) Put(pos tile.ChunkPos, stage Stage, g *tile.Grid) *tile.Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := CacheKey{pos, stage}
	if existing, ok := c.grids[k]; ok {
		return existing
	}
	c.grids[k] = g
	return g
}

// Len returns the number of cached grids across all stages.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.grids)
}

// ForEach calls fn for every cached grid under a read lock.
func (c *MemoryCache) ForEach(fn func(k CacheKey, g *tile.Grid)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, g := range c.grids {
		fn(k, g)
	}
}

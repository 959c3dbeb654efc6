package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/endless-cavern/internal/server/config"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/regionfile"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	cfg := config.DefaultConfig()
	if err := s.LoadConfig(cfg); err != nil {
		t.Fatalf("LoadConfig without file: %v", err)
	}

	cfg.Port = 9999
	cfg.Generation.GlobalSeed = 1234
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded := config.DefaultConfig()
	if err := s.LoadConfig(loaded); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Port != 9999 || loaded.Generation.GlobalSeed != 1234 {
		t.Errorf("loaded port=%d seed=%d", loaded.Port, loaded.Generation.GlobalSeed)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	s := newTestStorage(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "config.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadConfig(config.DefaultConfig()); err == nil {
		t.Error("expected parse error")
	}
}

func TestFetchPresetLocalFile(t *testing.T) {
	s := newTestStorage(t)
	preset := filepath.Join(t.TempDir(), "deep.json")
	body := `{"generation": {"chunk_size": 40, "live_probability": 0.5, "iterations": 7, "birth_threshold": 4, "death_threshold": 4}}`
	if err := os.WriteFile(preset, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	if err := s.FetchPreset(context.Background(), preset, cfg); err != nil {
		t.Fatalf("FetchPreset: %v", err)
	}
	if cfg.Generation.ChunkSize != 40 || cfg.Generation.Iterations != 7 {
		t.Errorf("preset not applied: %+v", cfg.Generation)
	}
	if cfg.Port != config.DefaultConfig().Port {
		t.Errorf("preset changed port to %d", cfg.Port)
	}
}

func TestFetchPresetMissing(t *testing.T) {
	s := newTestStorage(t)
	missing := filepath.Join(t.TempDir(), "nope.json")
	if err := s.FetchPreset(context.Background(), missing, config.DefaultConfig()); err == nil {
		t.Error("expected error for a missing preset")
	}
}

func TestCheckWorld(t *testing.T) {
	s := newTestStorage(t)
	cfg := gen.DefaultConfig()

	if err := s.CheckWorld(cfg); err != nil {
		t.Fatalf("first CheckWorld: %v", err)
	}
	meta, ok, err := s.LoadWorldMeta()
	if err != nil || !ok {
		t.Fatalf("LoadWorldMeta = %v, %v", ok, err)
	}
	if meta.Generation.ChunkSize != cfg.ChunkSize {
		t.Errorf("stored chunk size %d", meta.Generation.ChunkSize)
	}

	if err := s.CheckWorld(cfg); err != nil {
		t.Errorf("same config rejected: %v", err)
	}
	cfg.GlobalSeed = 42
	if err := s.CheckWorld(cfg); !errors.Is(err, ErrWorldMismatch) {
		t.Errorf("different seed: error = %v, want ErrWorldMismatch", err)
	}
}

func TestRegionCachePersists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	positions := []tile.ChunkPos{{X: 0, Y: 0}, {X: -1, Y: 3}, {X: 40, Y: -2}}

	first := s.RegionCache()
	p1, err := gen.NewPipeline(gen.DefaultConfig(), gen.WithCache(first))
	if err != nil {
		t.Fatal(err)
	}
	want := make(map[tile.ChunkPos]*tile.Grid)
	for _, pos := range positions {
		g, err := p1.Advance(ctx, pos, gen.StageConnected)
		if err != nil {
			t.Fatal(err)
		}
		want[pos] = g
	}
	if first.Dirty() != 3 {
		t.Errorf("Dirty() = %d, want 3 regions", first.Dirty())
	}
	if err := first.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if first.Dirty() != 0 {
		t.Errorf("Dirty() after flush = %d", first.Dirty())
	}

	second := s.RegionCache()
	for _, pos := range positions {
		g, ok := second.Get(pos, gen.StageConnected)
		if !ok {
			t.Fatalf("chunk %v not persisted", pos)
		}
		if !g.Equal(want[pos]) {
			t.Errorf("chunk %v differs after reload", pos)
		}
	}
	if _, ok := second.Get(positions[0], gen.StageInitial); ok {
		t.Error("stage 0 should not be persisted by default")
	}
}

func TestRegionCacheFlushKeepsOlderChunks(t *testing.T) {
	s := newTestStorage(t)
	a, b := tile.ChunkPos{X: 1, Y: 1}, tile.ChunkPos{X: 2, Y: 1}
	ga, gb := gen.GenerateInitial(1, 8, 0.5), gen.GenerateInitial(2, 8, 0.5)

	first := s.RegionCache()
	first.Put(a, gen.StageConnected, ga)
	if err := first.Flush(); err != nil {
		t.Fatal(err)
	}

	// A fresh cache adds a chunk to the same region without reading a first.
	second := s.RegionCache()
	second.Put(b, gen.StageConnected, gb)
	if err := second.Flush(); err != nil {
		t.Fatal(err)
	}

	all, err := regionfile.LoadAll(filepath.Join(s.Dir(), "regions"), 0, 0, gen.StageConnected)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || !all[a].Equal(ga) || !all[b].Equal(gb) {
		t.Errorf("region holds %d chunks, want both", len(all))
	}
}

func TestRegionCacheCorruptRegionRegenerates(t *testing.T) {
	s := newTestStorage(t)
	dir := filepath.Join(s.Dir(), "regions")
	if err := os.WriteFile(regionfile.Path(dir, 0, 0, gen.StageConnected), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := s.RegionCache()
	if _, ok := c.Get(tile.ChunkPos{}, gen.StageConnected); ok {
		t.Fatal("corrupt region should read as a miss")
	}
	p, err := gen.NewPipeline(gen.DefaultConfig(), gen.WithCache(c))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Advance(context.Background(), tile.ChunkPos{}, gen.StageConnected); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush over corrupt file: %v", err)
	}
	if _, err := regionfile.Load(dir, tile.ChunkPos{}, gen.StageConnected); err != nil {
		t.Errorf("rewritten region unreadable: %v", err)
	}
}

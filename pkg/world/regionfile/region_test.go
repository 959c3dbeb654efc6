package regionfile

import (
	"errors"
	"os"
	"testing"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

func testGrid(seed int64) *tile.Grid {
	return gen.GenerateInitial(seed, 25, 0.45)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	grids := map[tile.ChunkPos]*tile.Grid{
		{X: 0, Y: 0}:   testGrid(1),
		{X: 31, Y: 0}:  testGrid(2),
		{X: 5, Y: 31}:  testGrid(3),
		{X: 17, Y: 12}: testGrid(4),
	}
	if err := Save(dir, 0, 0, gen.StageConnected, grids); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for pos, want := range grids {
		got, err := Load(dir, pos, gen.StageConnected)
		if err != nil {
			t.Fatalf("Load(%v): %v", pos, err)
		}
		if !got.Equal(want) {
			t.Errorf("chunk %v does not round-trip", pos)
		}
	}

	all, err := LoadAll(dir, 0, 0, gen.StageConnected)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != len(grids) {
		t.Fatalf("LoadAll returned %d chunks, want %d", len(all), len(grids))
	}
	for pos, want := range grids {
		if !all[pos].Equal(want) {
			t.Errorf("LoadAll chunk %v differs", pos)
		}
	}
}

func TestNegativeRegions(t *testing.T) {
	dir := t.TempDir()
	pos := tile.ChunkPos{X: -1, Y: -33}
	rx, ry := RegionOf(pos)
	if rx != -1 || ry != -2 {
		t.Fatalf("RegionOf(%v) = (%d,%d), want (-1,-2)", pos, rx, ry)
	}

	want := testGrid(9)
	if err := Save(dir, rx, ry, gen.StageInitial, map[tile.ChunkPos]*tile.Grid{pos: want}); err != nil {
		t.Fatal(err)
	}
	got, err := Load(dir, pos, gen.StageInitial)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Error("negative chunk does not round-trip")
	}
}

func TestSaveRejectsForeignChunk(t *testing.T) {
	err := Save(t.TempDir(), 0, 0, gen.StageInitial, map[tile.ChunkPos]*tile.Grid{{X: 32, Y: 0}: testGrid(1)})
	if err == nil {
		t.Fatal("expected error for a chunk outside the region")
	}
}

func TestSaveRejectsOversizedGrid(t *testing.T) {
	dir := t.TempDir()
	err := Save(dir, 0, 0, gen.StageConnected, map[tile.ChunkPos]*tile.Grid{{}: tile.NewRect(maxSide+1, 1)})
	if err == nil {
		t.Fatal("expected error for a grid wider than the body header allows")
	}
	if _, err := os.Stat(Path(dir, 0, 0, gen.StageConnected)); !os.IsNotExist(err) {
		t.Errorf("region file written despite error: %v", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, tile.ChunkPos{}, gen.StageInitial); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: error = %v, want ErrNotFound", err)
	}

	if err := Save(dir, 0, 0, gen.StageInitial, map[tile.ChunkPos]*tile.Grid{{X: 1, Y: 1}: testGrid(1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, tile.ChunkPos{X: 2, Y: 2}, gen.StageInitial); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing chunk: error = %v, want ErrNotFound", err)
	}
	if _, err := Load(dir, tile.ChunkPos{X: 1, Y: 1}, gen.StageAutomaton); !errors.Is(err, ErrNotFound) {
		t.Errorf("other stage: error = %v, want ErrNotFound", err)
	}

	all, err := LoadAll(dir, 4, 4, gen.StageInitial)
	if err != nil || len(all) != 0 {
		t.Errorf("LoadAll of a missing region = %d chunks, %v", len(all), err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		value  byte
	}{
		{"compression id", headerSectors*sectorSize + 4, 9},
		{"payload", headerSectors*sectorSize + 8, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			pos := tile.ChunkPos{X: 0, Y: 0}
			if err := Save(dir, 0, 0, gen.StageInitial, map[tile.ChunkPos]*tile.Grid{pos: testGrid(1)}); err != nil {
				t.Fatal(err)
			}

			path := Path(dir, 0, 0, gen.StageInitial)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			data[tt.offset] ^= tt.value
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := Load(dir, pos, gen.StageInitial); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestBodyChecksum(t *testing.T) {
	pos := tile.ChunkPos{X: 3, Y: -4}
	g := testGrid(5)
	body, err := encodeBody(pos, gen.StageAutomaton, g)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeBody(body, pos, gen.StageAutomaton)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(g) {
		t.Fatal("body does not round-trip")
	}

	body[bodyHeaderLen] ^= 1
	if _, err := decodeBody(body, pos, gen.StageAutomaton); !errors.Is(err, ErrCorrupt) {
		t.Errorf("flipped tile: error = %v, want ErrCorrupt", err)
	}
	fresh, _ := encodeBody(pos, gen.StageAutomaton, g)
	if _, err := decodeBody(fresh, tile.ChunkPos{}, gen.StageAutomaton); !errors.Is(err, ErrCorrupt) {
		t.Errorf("wrong position: error = %v, want ErrCorrupt", err)
	}
}

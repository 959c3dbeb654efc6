package region

import (
	"math/rand/v2"
	"testing"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

func randomGrid(seed uint64, size int, p float64) *tile.Grid {
	r := rand.New(rand.NewPCG(seed, 1))
	g := tile.NewGrid(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.Set(x, y, r.Float64() < p)
		}
	}
	return g
}

func TestPartitionCoverage(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g := randomGrid(seed, 25, 0.55)
		p := NewPartition(g)
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				id := p.Resolved(x, y)
				if g.At(x, y) && id == Wall {
					t.Fatalf("seed %d: open tile (%d,%d) unlabelled", seed, x, y)
				}
				if !g.At(x, y) && p.Labels.At(x, y) != Wall {
					t.Fatalf("seed %d: wall tile (%d,%d) labelled %d", seed, x, y, id)
				}
			}
		}
	}
}

func TestPartitionMatchesComponents(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g := randomGrid(seed, 25, 0.5)
		p := NewPartition(g)

		// 4-adjacent open tiles must share a resolved id.
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				if !g.At(x, y) {
					continue
				}
				if x+1 < g.W && g.At(x+1, y) && p.Resolved(x, y) != p.Resolved(x+1, y) {
					t.Fatalf("seed %d: (%d,%d) and (%d,%d) split", seed, x, y, x+1, y)
				}
				if y+1 < g.H && g.At(x, y+1) && p.Resolved(x, y) != p.Resolved(x, y+1) {
					t.Fatalf("seed %d: (%d,%d) and (%d,%d) split", seed, x, y, x, y+1)
				}
			}
		}
		if got, want := len(p.Regions()), Measure(g).Components; got != want {
			t.Errorf("seed %d: %d regions, want %d components", seed, got, want)
		}
	}
}

func TestPartitionSeamsMerge(t *testing.T) {
	// One open column crossing both seams.
	g := tile.MustParse(
		"#.#",
		"#.#",
		"#.#",
		"#.#",
		"#.#",
		"#.#",
	)
	p := NewPartition(g)
	if p.Table.Len() != 4 {
		t.Fatalf("Table.Len() = %d, want one label per band plus Wall", p.Table.Len())
	}
	if got := p.Regions(); len(got) != 1 {
		t.Errorf("Regions() = %v, want a single region", got)
	}
}

func TestPartitionEmpty(t *testing.T) {
	p := NewPartition(tile.NewGrid(9))
	if got := p.Regions(); len(got) != 0 {
		t.Errorf("Regions() = %v, want none", got)
	}
}

func TestPartitionDeterministic(t *testing.T) {
	g := randomGrid(3, 25, 0.5)
	a, b := NewPartition(g), NewPartition(g)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if a.Labels.At(x, y) != b.Labels.At(x, y) {
				t.Fatalf("label of (%d,%d) differs between runs", x, y)
			}
		}
	}
	for i := 1; i < len(a.Anchors); i++ {
		if a.Anchors[i] != b.Anchors[i] {
			t.Errorf("anchor %d differs between runs", i)
		}
	}
}

func TestPartitionBlockMapClaims(t *testing.T) {
	g := tile.MustParse(
		".....",
		"#####",
		"#####",
		"#####",
		"....#",
	)
	p := NewPartition(g)
	if p.Blocks.W != 2 || p.Blocks.H != 2 {
		t.Fatalf("block map %dx%d, want 2x2", p.Blocks.W, p.Blocks.H)
	}
	bottom, top := p.Resolved(0, 0), p.Resolved(0, 4)
	if p.Table.Resolve(p.Blocks.At(0, 0)) != bottom || p.Table.Resolve(p.Blocks.At(1, 0)) != bottom {
		t.Error("bottom blocks not claimed by the bottom region")
	}
	if p.Table.Resolve(p.Blocks.At(0, 1)) != top || p.Table.Resolve(p.Blocks.At(1, 1)) != top {
		t.Error("top blocks not claimed by the top region")
	}
}

func TestBandBounds(t *testing.T) {
	var covered int
	prev := 0
	for k := 0; k < Bands; k++ {
		start, end := BandBounds(25, k)
		if start != prev {
			t.Errorf("band %d starts at %d, want %d", k, start, prev)
		}
		covered += end - start
		prev = end
	}
	if covered != 25 {
		t.Errorf("bands cover %d rows, want 25", covered)
	}
}

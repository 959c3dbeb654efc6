package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/region"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

func main() {
	cfg := gen.DefaultConfig()

	var (
		x     = flag.Int("x", 0, "first chunk x")
		y     = flag.Int("y", 0, "first chunk y")
		w     = flag.Int("w", 1, "chunks across")
		h     = flag.Int("h", 1, "chunks down")
		stage = flag.Int("stage", int(gen.StageConnected), "stage to print (0 initial, 1 automaton, 2 connected)")
		stats = flag.Bool("stats", false, "print region statistics per chunk instead of tiles")
	)
	flag.Int64Var(&cfg.GlobalSeed, "seed", cfg.GlobalSeed, "world seed")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk side length in tiles")
	flag.Float64Var(&cfg.LiveProbability, "live", cfg.LiveProbability, "initial open tile probability")
	flag.BoolVar(&cfg.EdgeCellValue, "edge", cfg.EdgeCellValue, "value of untracked neighbour tiles")
	flag.IntVar(&cfg.BirthThreshold, "birth", cfg.BirthThreshold, "automaton birth threshold")
	flag.IntVar(&cfg.DeathThreshold, "death", cfg.DeathThreshold, "automaton death threshold")
	flag.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "automaton iterations")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	p, err := gen.NewPipeline(cfg, gen.WithLogger(log))
	if err != nil {
		log.Error("create pipeline", "error", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	if err := run(context.Background(), out, p, tile.ChunkPos{X: *x, Y: *y}, *w, *h, gen.Stage(*stage), *stats); err != nil {
		out.Flush()
		log.Error("generate", "error", err)
		os.Exit(1)
	}
}

// run prints a w×h block of chunks whose bottom-left chunk is origin, top row first.
func run(ctx context.Context, out *bufio.Writer, p *gen.Pipeline, origin tile.ChunkPos, w, h int, stage gen.Stage, stats bool) error {
	size := p.Config().ChunkSize
	for cy := origin.Y + h - 1; cy >= origin.Y; cy-- {
		grids := make([]*tile.Grid, w)
		for i := range grids {
			pos := tile.ChunkPos{X: origin.X + i, Y: cy}
			g, err := p.Advance(ctx, pos, stage)
			if err != nil {
				return err
			}
			grids[i] = g
			if stats {
				printStats(out, p, pos, g, stage)
			}
		}
		if stats {
			continue
		}
		for ly := size - 1; ly >= 0; ly-- {
			for _, g := range grids {
				out.WriteString(g.Row(ly))
			}
			out.WriteByte('\n')
		}
	}
	return nil
}

func printStats(out *bufio.Writer, p *gen.Pipeline, pos tile.ChunkPos, g *tile.Grid, stage gen.Stage) {
	st := region.Measure(g)
	fmt.Fprintf(out, "chunk %s stage %s: %d open, %d components", pos, stage, st.Open, st.Components)
	if unmerged, ok := p.Unmerged(pos); ok && len(unmerged) > 0 {
		fmt.Fprintf(out, ", unmerged regions %v", unmerged)
	}
	out.WriteByte('\n')
}

//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/OCharnyshevich/endless-cavern/internal/preview"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
)

func main() {
	cfg := gen.DefaultConfig()
	flag.Int64Var(&cfg.GlobalSeed, "seed", cfg.GlobalSeed, "world seed")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk side length in tiles")
	flag.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "automaton iterations")
	radius := flag.Int("radius", 2, "chunks shown around the camera")
	scale := flag.Int("scale", 4, "pixels per tile")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	game, err := preview.New(cfg, *radius, *scale, log)
	if err != nil {
		log.Error("create viewer", "error", err)
		os.Exit(1)
	}

	side := (2**radius + 1) * cfg.ChunkSize * *scale
	ebiten.SetWindowTitle("endless cavern")
	ebiten.SetWindowSize(side, side)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Error("viewer", "error", err)
		os.Exit(1)
	}
}

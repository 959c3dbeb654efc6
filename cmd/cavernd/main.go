package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/endless-cavern/internal/server"
	"github.com/OCharnyshevich/endless-cavern/internal/server/config"
	"github.com/OCharnyshevich/endless-cavern/internal/server/storage"
	"github.com/OCharnyshevich/endless-cavern/internal/server/world"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

func main() {
	cfg := config.DefaultConfig()
	g := &cfg.Generation

	flag.IntVar(&cfg.Port, "port", cfg.Port, "http port")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory")
	flag.IntVar(&cfg.ViewDistance, "view-distance", cfg.ViewDistance, "chunks streamed around an observer")
	flag.IntVar(&cfg.PreloadRadius, "preload", cfg.PreloadRadius, "chunks generated around the origin at startup")
	flag.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "maximum concurrent stream sessions")
	flag.Float64Var(&cfg.RequestsPerSecond, "rate", cfg.RequestsPerSecond, "observe messages per second per session")
	flag.Int64Var(&g.GlobalSeed, "seed", g.GlobalSeed, "world seed")
	flag.IntVar(&g.ChunkSize, "chunk-size", g.ChunkSize, "chunk side length in tiles")
	flag.Float64Var(&g.LiveProbability, "live", g.LiveProbability, "initial open tile probability")
	flag.BoolVar(&g.EdgeCellValue, "edge", g.EdgeCellValue, "value of untracked neighbour tiles")
	flag.IntVar(&g.BirthThreshold, "birth", g.BirthThreshold, "automaton birth threshold")
	flag.IntVar(&g.DeathThreshold, "death", g.DeathThreshold, "automaton death threshold")
	flag.IntVar(&g.Iterations, "iterations", g.Iterations, "automaton iterations")
	preset := flag.String("preset", "", "config preset source (path, URL or go-getter address)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}

	fromFile := config.DefaultConfig()
	if err := store.LoadConfig(fromFile); err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if *preset != "" {
		if err := store.FetchPreset(ctx, *preset, fromFile); err != nil {
			log.Error("fetch preset", "error", err)
			os.Exit(1)
		}
	}
	config.Merge(cfg, fromFile, explicit)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if err := store.SaveConfig(cfg); err != nil {
		log.Error("save config", "error", err)
		os.Exit(1)
	}
	if err := store.CheckWorld(cfg.Generation); err != nil {
		log.Error("open world", "error", err)
		os.Exit(1)
	}

	cache := store.RegionCache()
	pipeline, err := gen.NewPipeline(cfg.Generation,
		gen.WithCache(cache),
		gen.WithLogger(log.With("component", "pipeline")),
	)
	if err != nil {
		log.Error("create pipeline", "error", err)
		os.Exit(1)
	}
	w := world.New(pipeline, log.With("component", "world"))

	if cfg.PreloadRadius > 0 {
		if _, err := w.PreGenerateRadius(ctx, tile.ChunkPos{}, cfg.PreloadRadius); err != nil {
			log.Error("preload", "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(cfg, w, log)
	serveErr := srv.Start(ctx)

	if err := cache.Flush(); err != nil {
		log.Error("flush regions", "error", err)
	}
	if serveErr != nil {
		log.Error("server error", "error", serveErr)
		os.Exit(1)
	}
}

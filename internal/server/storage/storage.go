package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/endless-cavern/internal/server/config"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
)

// ErrWorldMismatch is returned when a data dir was generated with different parameters.
var ErrWorldMismatch = errors.New("world generated with different parameters")

// Storage handles file-based persistence for config, world metadata and chunk regions.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "regions"),
		filepath.Join(dir, "presets"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string { return s.dir }

// LoadConfig reads config.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.json")
	ok, err := readJSON(path, cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if ok {
		s.log.Info("loaded config from file", "path", path)
	}
	return nil
}

// SaveConfig writes cfg to config.json atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	return atomicWriteJSON(filepath.Join(s.dir, "config.json"), cfg)
}

// FetchPreset downloads a config preset from src into the presets directory
// and decodes it over cfg. src is any go-getter source: a local path, an
// http(s) URL or a forced getter such as git::https://host/repo//file.json.
func (s *Storage) FetchPreset(ctx context.Context, src string, cfg *config.Config) error {
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working dir: %w", err)
	}
	dst := filepath.Join(s.dir, "presets", fmt.Sprintf("preset-%d.json", time.Now().UnixNano()))

	client := &get.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: get.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch preset %s: %w", src, err)
	}
	defer os.Remove(dst)

	if _, err := readJSON(dst, cfg); err != nil {
		return fmt.Errorf("preset %s: %w", src, err)
	}
	s.log.Info("applied preset", "source", src)
	return nil
}

// LoadWorldMeta reads world.json. ok is false if the world has never been saved.
func (s *Storage) LoadWorldMeta() (meta WorldMeta, ok bool, err error) {
	ok, err = readJSON(filepath.Join(s.dir, "world.json"), &meta)
	if err != nil {
		return WorldMeta{}, false, fmt.Errorf("world meta: %w", err)
	}
	return meta, ok, nil
}

// SaveWorldMeta writes world.json atomically.
func (s *Storage) SaveWorldMeta(meta WorldMeta) error {
	return atomicWriteJSON(filepath.Join(s.dir, "world.json"), meta)
}

// CheckWorld binds the data dir to cfg: a fresh dir records cfg, an existing
// one must have been generated with identical parameters since its region
// files would otherwise mix incompatible chunks.
func (s *Storage) CheckWorld(cfg gen.Config) error {
	meta, ok, err := s.LoadWorldMeta()
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("creating world", "seed", cfg.GlobalSeed, "chunk_size", cfg.ChunkSize)
		return s.SaveWorldMeta(WorldMeta{Generation: cfg, CreatedAt: time.Now().UTC()})
	}

	stored, err := json.Marshal(meta.Generation)
	if err != nil {
		return fmt.Errorf("marshal stored generation config: %w", err)
	}
	current, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal generation config: %w", err)
	}
	if !bytes.Equal(stored, current) {
		return fmt.Errorf("%w: data dir has seed %d, chunk size %d", ErrWorldMismatch, meta.Generation.GlobalSeed, meta.Generation.ChunkSize)
	}
	return nil
}

// RegionCache returns a tile cache persisting the given stages under the
// regions directory. With no stages only the final stage is persisted.
func (s *Storage) RegionCache(stages ...gen.Stage) *RegionCache {
	return NewRegionCache(filepath.Join(s.dir, "regions"), s.log, stages...)
}

// readJSON decodes path into v. It reports false if the file does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

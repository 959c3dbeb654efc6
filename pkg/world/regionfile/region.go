// Package regionfile stores chunk grids in sector-aligned region files.
//
// A region file holds up to 32×32 chunks of one pipeline stage. It starts
// with two 4 KiB tables (locations, then timestamps) followed by chunk
// payloads padded to whole sectors. Each payload is a 4-byte length, a
// 1-byte compression id and the zstd-compressed chunk body.
package regionfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

const (
	// Shift converts chunk coordinates to region coordinates.
	Shift = 5
	// Width is the number of chunks along each side of a region.
	Width = 1 << Shift

	sectorSize      = 4096
	headerSectors   = 2 // location table + timestamp table
	compressionZstd = 4
)

var (
	// ErrNotFound is returned when a region file or a chunk inside it does not exist.
	ErrNotFound = errors.New("chunk not stored")
	// ErrCorrupt is returned when stored bytes fail to decode or verify.
	ErrCorrupt = errors.New("corrupt region data")
)

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// RegionOf returns the region containing chunk pos.
func RegionOf(pos tile.ChunkPos) (rx, ry int) {
	return pos.X >> Shift, pos.Y >> Shift
}

// Path returns the file name of region (rx, ry) for stage inside dir.
func Path(dir string, rx, ry int, stage gen.Stage) string {
	return filepath.Join(dir, fmt.Sprintf("r.%d.%d.s%d.cav", rx, ry, int(stage)))
}

func slot(pos tile.ChunkPos) int {
	return (pos.X & (Width - 1)) + (pos.Y&(Width-1))*Width
}

// Save writes grids to the region file of (rx, ry), replacing it atomically.
// Every grid must belong to that region.
func Save(dir string, rx, ry int, stage gen.Stage, grids map[tile.ChunkPos]*tile.Grid) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create region dir: %w", err)
	}
	enc, err := encoder()
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	type chunkEntry struct {
		index      int
		compressed []byte
	}
	entries := make([]chunkEntry, 0, len(grids))
	for pos, g := range grids {
		if x, y := RegionOf(pos); x != rx || y != ry {
			return fmt.Errorf("chunk %s is outside region (%d,%d)", pos, rx, ry)
		}
		body, err := encodeBody(pos, stage, g)
		if err != nil {
			return err
		}
		entries = append(entries, chunkEntry{
			index:      slot(pos),
			compressed: enc.EncodeAll(body, nil),
		})
	}

	locations := make([]byte, sectorSize)
	timestamps := make([]byte, sectorSize)
	now := uint32(time.Now().Unix())

	var data bytes.Buffer
	current := uint32(headerSectors)
	for _, e := range entries {
		payloadLen := uint32(len(e.compressed)) + 1
		totalLen := 4 + payloadLen
		sectors := (totalLen + sectorSize - 1) / sectorSize
		if sectors > 0xFF {
			return fmt.Errorf("chunk payload of %d bytes exceeds 255 sectors", totalLen)
		}

		off := e.index * 4
		binary.BigEndian.PutUint32(locations[off:off+4], current<<8|sectors)
		binary.BigEndian.PutUint32(timestamps[off:off+4], now)

		var header [5]byte
		binary.BigEndian.PutUint32(header[0:4], payloadLen)
		header[4] = compressionZstd
		data.Write(header[:])
		data.Write(e.compressed)
		if pad := int(sectors)*sectorSize - int(totalLen); pad > 0 {
			data.Write(make([]byte, pad))
		}
		current += sectors
	}

	path := Path(dir, rx, ry, stage)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp region file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	for _, part := range [][]byte{locations, timestamps, data.Bytes()} {
		if _, err := f.Write(part); err != nil {
			return fmt.Errorf("write region file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close region file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename region file: %w", err)
	}
	return nil
}

// Load reads the grid of chunk pos at stage from dir.
func Load(dir string, pos tile.ChunkPos, stage gen.Stage) (*tile.Grid, error) {
	rx, ry := RegionOf(pos)
	f, err := open(dir, rx, ry, stage)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header [2 * sectorSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	return readChunk(f, header[:], pos, stage)
}

// LoadAll reads every chunk stored in region (rx, ry) for stage. A missing
// region file yields an empty map.
func LoadAll(dir string, rx, ry int, stage gen.Stage) (map[tile.ChunkPos]*tile.Grid, error) {
	out := make(map[tile.ChunkPos]*tile.Grid)
	f, err := open(dir, rx, ry, stage)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header [2 * sectorSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	for i := 0; i < Width*Width; i++ {
		if binary.BigEndian.Uint32(header[i*4:]) == 0 {
			continue
		}
		pos := tile.ChunkPos{X: rx<<Shift + i%Width, Y: ry<<Shift + i/Width}
		g, err := readChunk(f, header[:], pos, stage)
		if err != nil {
			return nil, err
		}
		out[pos] = g
	}
	return out, nil
}

func open(dir string, rx, ry int, stage gen.Stage) (*os.File, error) {
	f, err := os.Open(Path(dir, rx, ry, stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: region (%d,%d) stage %s", ErrNotFound, rx, ry, stage)
	}
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}
	return f, nil
}

func readChunk(f *os.File, header []byte, pos tile.ChunkPos, stage gen.Stage) (*tile.Grid, error) {
	loc := binary.BigEndian.Uint32(header[slot(pos)*4:])
	if loc == 0 {
		return nil, fmt.Errorf("%w: chunk %s stage %s", ErrNotFound, pos, stage)
	}
	offset, sectors := int64(loc>>8)*sectorSize, int(loc&0xFF)

	buf := make([]byte, sectors*sectorSize)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("%w: chunk %s: read payload: %v", ErrCorrupt, pos, err)
	}
	length := binary.BigEndian.Uint32(buf[0:4])
	if length < 1 || int(length)+4 > len(buf) {
		return nil, fmt.Errorf("%w: chunk %s: payload length %d", ErrCorrupt, pos, length)
	}
	if buf[4] != compressionZstd {
		return nil, fmt.Errorf("%w: chunk %s: compression id %d", ErrCorrupt, pos, buf[4])
	}

	dec, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	body, err := dec.DecodeAll(buf[5:4+length], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %v", ErrCorrupt, pos, err)
	}
	return decodeBody(body, pos, stage)
}

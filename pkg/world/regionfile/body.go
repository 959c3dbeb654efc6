package regionfile

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

var magic = [4]byte{'C', 'A', 'V', 'E'}

const (
	bodyVersion = 1
	// magic, version, stage, width, height, x, y
	bodyHeaderLen = 4 + 1 + 1 + 2 + 2 + 4 + 4
	checksumLen   = 8
	maxSide       = 0xFFFF
)

// encodeBody lays out one chunk: header, tiles packed 8 per byte in
// row-major order (LSB first), then the xxhash64 of the packed tiles.
func encodeBody(pos tile.ChunkPos, stage gen.Stage, g *tile.Grid) ([]byte, error) {
	if g.W > maxSide || g.H > maxSide {
		return nil, fmt.Errorf("chunk %s: %dx%d grid exceeds %d tiles per side", pos, g.W, g.H, maxSide)
	}
	packedLen := (g.W*g.H + 7) / 8
	b := make([]byte, bodyHeaderLen+packedLen+checksumLen)

	copy(b[0:4], magic[:])
	b[4] = bodyVersion
	b[5] = byte(stage)
	binary.BigEndian.PutUint16(b[6:8], uint16(g.W))
	binary.BigEndian.PutUint16(b[8:10], uint16(g.H))
	binary.BigEndian.PutUint32(b[10:14], uint32(int32(pos.X)))
	binary.BigEndian.PutUint32(b[14:18], uint32(int32(pos.Y)))

	packed := b[bodyHeaderLen : bodyHeaderLen+packedLen]
	for i, open := range g.Cells() {
		if open {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	binary.BigEndian.PutUint64(b[bodyHeaderLen+packedLen:], xxhash.Sum64(packed))
	return b, nil
}

func decodeBody(b []byte, pos tile.ChunkPos, stage gen.Stage) (*tile.Grid, error) {
	if len(b) < bodyHeaderLen+checksumLen {
		return nil, fmt.Errorf("%w: chunk %s: body of %d bytes", ErrCorrupt, pos, len(b))
	}
	if [4]byte(b[0:4]) != magic {
		return nil, fmt.Errorf("%w: chunk %s: bad magic %q", ErrCorrupt, pos, b[0:4])
	}
	if b[4] != bodyVersion {
		return nil, fmt.Errorf("%w: chunk %s: unsupported version %d", ErrCorrupt, pos, b[4])
	}
	if gen.Stage(b[5]) != stage {
		return nil, fmt.Errorf("%w: chunk %s: stored stage %d, want %s", ErrCorrupt, pos, b[5], stage)
	}
	w, h := int(binary.BigEndian.Uint16(b[6:8])), int(binary.BigEndian.Uint16(b[8:10]))
	x, y := int(int32(binary.BigEndian.Uint32(b[10:14]))), int(int32(binary.BigEndian.Uint32(b[14:18])))
	if x != pos.X || y != pos.Y {
		return nil, fmt.Errorf("%w: chunk %s: stored position (%d,%d)", ErrCorrupt, pos, x, y)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: chunk %s: dimensions %dx%d", ErrCorrupt, pos, w, h)
	}

	packedLen := (w*h + 7) / 8
	if len(b) != bodyHeaderLen+packedLen+checksumLen {
		return nil, fmt.Errorf("%w: chunk %s: body of %d bytes for %dx%d tiles", ErrCorrupt, pos, len(b), w, h)
	}
	packed := b[bodyHeaderLen : bodyHeaderLen+packedLen]
	if sum := binary.BigEndian.Uint64(b[bodyHeaderLen+packedLen:]); sum != xxhash.Sum64(packed) {
		return nil, fmt.Errorf("%w: chunk %s: checksum mismatch", ErrCorrupt, pos)
	}

	g := tile.NewRect(w, h)
	cells := g.Cells()
	for i := range cells {
		cells[i] = packed[i/8]&(1<<(i%8)) != 0
	}
	return g, nil
}

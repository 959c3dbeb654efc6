package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Marshal encodes a server message.
func Marshal(seq uint64, typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(PatchEnvelope{Sequence: seq, Type: typ, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return data, nil
}

// UnmarshalIntent decodes a client envelope, leaving the payload raw.
func UnmarshalIntent(data []byte) (IntentEnvelope, error) {
	var env IntentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return IntentEnvelope{}, fmt.Errorf("unmarshal intent: %w", err)
	}
	if env.Type == "" {
		return IntentEnvelope{}, fmt.Errorf("unmarshal intent: missing type")
	}
	return env, nil
}

// DecodePayload decodes the payload of env into v.
func DecodePayload(env IntentEnvelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("decode %s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return nil
}

// NewChunkLoaded encodes grid g of chunk pos.
func NewChunkLoaded(pos tile.ChunkPos, stage int, g *tile.Grid, unmerged []int) ChunkLoaded {
	return ChunkLoaded{
		X:        pos.X,
		Y:        pos.Y,
		Stage:    stage,
		Rows:     g.Rows(),
		Unmerged: unmerged,
	}
}

// Grid decodes the rows back into a tile grid.
func (c ChunkLoaded) Grid() (*tile.Grid, error) {
	g, err := tile.Parse(c.Rows)
	if err != nil {
		return nil, fmt.Errorf("chunk (%d,%d): %w", c.X, c.Y, err)
	}
	return g, nil
}

// Package protocol defines the JSON messages exchanged over the chunk stream.
package protocol

import "encoding/json"

// Message types.
const (
	TypeHello         = "Hello"
	TypeObserve       = "Observe"
	TypeChunkLoaded   = "ChunkLoaded"
	TypeChunkUnloaded = "ChunkUnloaded"
	TypeError         = "Error"
)

// IntentEnvelope wraps a client message.
type IntentEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PatchEnvelope wraps a server message. Sequence increases by one per message
// within a session.
type PatchEnvelope struct {
	Sequence uint64 `json:"sequence"`
	Type     string `json:"type"`
	Payload  any    `json:"payload"`
}

// Observe moves the session's observer to a world-space position in tiles.
type Observe struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Hello is the first message of every session.
type Hello struct {
	Session      string `json:"session"`
	ChunkSize    int    `json:"chunkSize"`
	Seed         int64  `json:"seed"`
	ViewDistance int    `json:"viewDistance"`
}

// ChunkLoaded carries one chunk grid. Rows[0] is the bottom row (y = 0);
// '.' is open floor and '#' is wall.
type ChunkLoaded struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Stage    int      `json:"stage"`
	Rows     []string `json:"rows"`
	Unmerged []int    `json:"unmerged,omitempty"`
}

// ChunkUnloaded tells the client a chunk left its view.
type ChunkUnloaded struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Error reports a rejected client message.
type Error struct {
	Message string `json:"message"`
}

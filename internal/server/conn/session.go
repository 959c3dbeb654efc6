package conn

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"
	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/endless-cavern/internal/server/config"
	"github.com/OCharnyshevich/endless-cavern/internal/server/world"
	"github.com/OCharnyshevich/endless-cavern/pkg/protocol"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

const writeTimeout = 5 * time.Second

// Session streams chunks around one observer over a websocket.
type Session struct {
	ID uuid.UUID

	conn    *websocket.Conn
	cfg     *config.Config
	log     *slog.Logger
	world   *world.World
	limiter *rate.Limiter

	seq uint64

	// Chunk tracking (only accessed from Handle goroutine, no mutex needed)
	loadedChunks mapset.Set[tile.ChunkPos]
}

// NewSession creates a Session for an accepted websocket.
func NewSession(c *websocket.Conn, cfg *config.Config, log *slog.Logger, w *world.World) *Session {
	id := uuid.New()
	burst := max(1, int(cfg.RequestsPerSecond))
	return &Session{
		ID:           id,
		conn:         c,
		cfg:          cfg,
		log:          log.With("session", id.String()),
		world:        w,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		loadedChunks: mapset.New[tile.ChunkPos](),
	}
}

// Handle runs the session until the client disconnects or ctx is cancelled.
func (s *Session) Handle(ctx context.Context) error {
	s.log.Info("session started")
	defer s.log.Info("session closed", "loaded", s.loadedChunks.Size())

	hello := protocol.Hello{
		Session:      s.ID.String(),
		ChunkSize:    s.world.ChunkSize(),
		Seed:         s.cfg.Generation.GlobalSeed,
		ViewDistance: s.cfg.ViewDistance,
	}
	if err := s.send(ctx, protocol.TypeHello, hello); err != nil {
		return err
	}

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) != -1 {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := s.handleMessage(ctx, data); err != nil {
			return err
		}
	}
}

// handleMessage processes one client message. Malformed messages are
// answered with an Error message; only transport failures end the session.
func (s *Session) handleMessage(ctx context.Context, data []byte) error {
	env, err := protocol.UnmarshalIntent(data)
	if err != nil {
		return s.send(ctx, protocol.TypeError, protocol.Error{Message: err.Error()})
	}

	switch env.Type {
	case protocol.TypeObserve:
		var obs protocol.Observe
		if err := protocol.DecodePayload(env, &obs); err != nil {
			return s.send(ctx, protocol.TypeError, protocol.Error{Message: err.Error()})
		}
		return s.Observe(ctx, obs.X, obs.Y)
	default:
		return s.send(ctx, protocol.TypeError, protocol.Error{Message: "unknown message type " + env.Type})
	}
}

// Observe moves the observer to world position (x, y), sending chunks that
// came into view and unloading those that left it.
func (s *Session) Observe(ctx context.Context, x, y float64) error {
	targets := s.world.Plan(x, y, s.cfg.ViewDistance+1,
		world.DefaultThresholds(s.world.ChunkSize(), s.cfg.ViewDistance))
	if err := s.world.Prepare(ctx, targets); err != nil {
		return fmt.Errorf("prepare chunks: %w", err)
	}

	visible := mapset.New[tile.ChunkPos]()
	for _, t := range targets {
		if t.Stage == gen.StageConnected {
			visible.Put(t.Pos)
		}
	}

	var leaving []tile.ChunkPos
	s.loadedChunks.Each(func(pos tile.ChunkPos) {
		if !visible.Has(pos) {
			leaving = append(leaving, pos)
		}
	})
	slices.SortFunc(leaving, func(a, b tile.ChunkPos) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
	for _, pos := range leaving {
		if err := s.send(ctx, protocol.TypeChunkUnloaded, protocol.ChunkUnloaded{X: pos.X, Y: pos.Y}); err != nil {
			return err
		}
		s.loadedChunks.Remove(pos)
	}

	for _, t := range targets {
		if t.Stage != gen.StageConnected || s.loadedChunks.Has(t.Pos) {
			continue
		}
		g, err := s.world.Chunk(ctx, t.Pos)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", t.Pos, err)
		}
		unmerged, _ := s.world.Pipeline().Unmerged(t.Pos)
		msg := protocol.NewChunkLoaded(t.Pos, int(gen.StageConnected), g, unmerged)
		if err := s.send(ctx, protocol.TypeChunkLoaded, msg); err != nil {
			return err
		}
		s.loadedChunks.Put(t.Pos)
	}

	s.log.Debug("observer moved", "x", x, "y", y, "loaded", s.loadedChunks.Size(), "unloaded", len(leaving))
	return nil
}

// Loaded reports whether chunk pos has been sent and not unloaded since.
func (s *Session) Loaded(pos tile.ChunkPos) bool {
	return s.loadedChunks.Has(pos)
}

func (s *Session) send(ctx context.Context, typ string, payload any) error {
	data, err := protocol.Marshal(s.seq, typ, payload)
	if err != nil {
		return err
	}
	s.seq++

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("write %s: %w", typ, err)
	}
	return nil
}

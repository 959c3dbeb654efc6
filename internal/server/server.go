package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/coder/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/OCharnyshevich/endless-cavern/internal/server/config"
	"github.com/OCharnyshevich/endless-cavern/internal/server/conn"
	"github.com/OCharnyshevich/endless-cavern/internal/server/world"
	"github.com/OCharnyshevich/endless-cavern/pkg/protocol"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
	"github.com/OCharnyshevich/endless-cavern/pkg/world/tile"
)

// Server serves chunks over HTTP and streams them over websockets.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	world    *world.World
	sessions *semaphore.Weighted
}

// New creates a new Server with the given config, world and logger.
func New(cfg *config.Config, w *world.World, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		world:    w,
		sessions: semaphore.NewWeighted(int64(cfg.MaxSessions)),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", templ.Handler(indexPage(pageInfo{
		Seed:         s.cfg.Generation.GlobalSeed,
		ChunkSize:    s.world.ChunkSize(),
		ViewDistance: s.cfg.ViewDistance,
	})))
	mux.HandleFunc("GET /chunk", s.handleChunk)
	mux.HandleFunc("GET /stream", s.handleStream)
	return mux
}

// Start begins listening for connections and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info("server started",
		"port", s.cfg.Port,
		"seed", s.cfg.Generation.GlobalSeed,
		"chunkSize", s.cfg.Generation.ChunkSize,
		"viewDistance", s.cfg.ViewDistance,
	)

	// Shut down when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.log.Info("server shutting down")
	return nil
}

// handleChunk serves GET /chunk?x=&y=[&stage=] as a ChunkLoaded JSON document.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be integers", http.StatusBadRequest)
		return
	}
	stage := gen.StageConnected
	if v := q.Get("stage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "stage must be an integer", http.StatusBadRequest)
			return
		}
		stage = gen.Stage(n)
	}

	pos := tile.ChunkPos{X: x, Y: y}
	g, err := s.world.Pipeline().Advance(r.Context(), pos, stage)
	if errors.Is(err, gen.ErrUnknownStage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("generate chunk", "chunk", pos, "error", err)
		http.Error(w, "generation failed", http.StatusInternalServerError)
		return
	}

	var unmerged []int
	if stage == gen.StageConnected {
		unmerged, _ = s.world.Pipeline().Unmerged(pos)
	}
	writeJSON(w, protocol.NewChunkLoaded(pos, int(stage), g, unmerged))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.TryAcquire(1) {
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}
	defer s.sessions.Release(1)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("websocket accept", "error", err)
		return
	}
	defer c.CloseNow()

	session := conn.NewSession(c, s.cfg, s.log, s.world)
	if err := session.Handle(r.Context()); err != nil {
		s.log.Error("session ended", "session", session.ID.String(), "error", err)
		c.Close(websocket.StatusInternalError, "session error")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

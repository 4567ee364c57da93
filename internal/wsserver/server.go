package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/park285/chess-relay/internal/lobby"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// LobbyLister lists rooms awaiting an opponent.
type LobbyLister interface {
	ListLobby(ctx context.Context) ([]relay.RoomInfo, error)
}

// CounterReader reports lifetime room counters.
type CounterReader interface {
	Counters(ctx context.Context) (lobby.Counters, error)
}

// StatsResponse is the body of GET /stats. Totals is present only when a
// counter store is configured.
type StatsResponse struct {
	Live   relay.Stats     `json:"live"`
	Totals *lobby.Counters `json:"totals,omitempty"`
}

type Options struct {
	Coordinator    *relay.Coordinator
	Texts          relay.Renderer
	StaticDir      string
	OutboundBuffer int
	OriginPatterns []string
	Lobby          LobbyLister   // nil disables GET /lobby
	Counters       CounterReader // nil omits totals from GET /stats
}

// Server exposes the coordinator over WebSocket and serves the bundled
// client.
type Server struct {
	opts Options

	mu       sync.Mutex
	sessions map[*session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

func New(opts Options) *Server {
	return &Server{opts: opts, sessions: make(map[*session]struct{})}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health_check", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /stats", s.handleStats)
	if s.opts.Lobby != nil {
		mux.HandleFunc("GET /lobby", s.handleLobby)
	}
	if dir := strings.TrimSpace(s.opts.StaticDir); dir != "" {
		assets := http.FileServer(http.Dir(filepath.Join(dir, "assets")))
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", assets))
		index := filepath.Join(dir, "index.html")
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			if _, err := os.Stat(index); err != nil {
				http.NotFound(w, r)
				return
			}
			http.ServeFile(w, r, index)
		})
	}
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Info("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	sess := newSession(relay.NewParticipantID(), conn, s.opts.Coordinator, s.opts.Texts, s.opts.OutboundBuffer)
	s.track(sess, true)
	defer s.track(sess, false)
	sess.serve(r.Context())
}

func (s *Server) track(sess *session, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.sessions[sess] = struct{}{}
		return
	}
	delete(s.sessions, sess)
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.opts.Lobby.ListLobby(r.Context())
	if err != nil {
		obslog.L().Warn("lobby_list_error", zap.Error(err))
		http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rooms)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	live, err := s.opts.Coordinator.Stats(r.Context())
	if err != nil {
		http.Error(w, "relay unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := StatsResponse{Live: live}
	if s.opts.Counters != nil {
		totals, err := s.opts.Counters.Counters(r.Context())
		if err != nil {
			obslog.L().Warn("stats_counters_error", zap.Error(err))
		} else {
			resp.Totals = &totals
		}
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Debug("http_write_error", zap.Error(err))
	}
}

// Shutdown refuses new upgrades, closes every live session with a going-away
// status and waits for them to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	live := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.fail(websocket.StatusGoingAway, sess.text("close.shutdown", nil, "server shutting down"))
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		obslog.L().Info("ws_shutdown_complete", zap.Int("sessions", len(live)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

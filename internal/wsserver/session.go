package wsserver

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/protocol"
	"github.com/park285/chess-relay/internal/relay"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	pingInterval      = 30 * time.Second
	pingTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	disconnectTimeout = 5 * time.Second
	maxFrameBytes     = 64 << 10
	maxReasonBytes    = 120
)

// session is one client connection. It reads frames on the goroutine that
// called serve and writes from a dedicated pump fed by Deliver. Closing the
// connection from the pump unblocks the reader.
type session struct {
	id    string
	conn  *websocket.Conn
	coord *relay.Coordinator
	texts relay.Renderer

	send   chan []byte
	closed chan struct{}
	once   sync.Once
	status websocket.StatusCode
	reason string
}

func newSession(id string, conn *websocket.Conn, coord *relay.Coordinator, texts relay.Renderer, buffer int) *session {
	if buffer <= 0 {
		buffer = 64
	}
	return &session{
		id:     id,
		conn:   conn,
		coord:  coord,
		texts:  texts,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

// Deliver queues a frame for the write pump. A full queue marks the client
// as a slow consumer and closes it.
func (s *session) Deliver(payload []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	case <-s.closed:
		return false
	default:
		obslog.L().Warn("ws_slow_consumer", zap.String("player_id", s.id), zap.Int("buffer", cap(s.send)))
		s.fail(websocket.StatusPolicyViolation, s.text("close.slow_consumer", nil, "slow consumer"))
		return false
	}
}

// fail records the close status and stops the session. First caller wins.
func (s *session) fail(code websocket.StatusCode, reason string) {
	s.once.Do(func() {
		s.status = code
		s.reason = truncateReason(reason)
		close(s.closed)
	})
}

func (s *session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.conn.SetReadLimit(maxFrameBytes)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(ctx)
	}()

	if err := s.coord.Connect(ctx, s.id, s); err != nil {
		if errors.Is(err, relay.ErrCapacity) {
			s.fail(websocket.StatusTryAgainLater, s.text("close.capacity", nil, "try again later"))
		} else {
			obslog.L().Error("ws_connect_error", zap.String("player_id", s.id), zap.Error(err))
			s.disconnect()
			s.fail(websocket.StatusInternalError, "connect failed")
		}
		<-pumpDone
		return
	}
	obslog.L().Info("ws_session_start", zap.String("player_id", s.id))

	s.readLoop(ctx)
	s.disconnect()
	s.fail(websocket.StatusNormalClosure, "")
	<-pumpDone
	obslog.L().Info("ws_session_end",
		zap.String("player_id", s.id),
		zap.Int("status", int(s.status)),
		zap.String("reason", s.reason),
	)
}

func (s *session) readLoop(ctx context.Context) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st == -1 {
				obslog.L().Debug("ws_read_error", zap.String("player_id", s.id), zap.Error(err))
			}
			s.fail(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageText {
			s.fail(websocket.StatusPolicyViolation, s.text("close.binary", nil, "binary frames are not supported"))
			return
		}
		req, err := protocol.Parse(data)
		if err != nil {
			obslog.L().Info("ws_parse_error", zap.String("player_id", s.id), zap.Error(err))
			reason := "Unable to parse sent message: " + err.Error()
			s.fail(websocket.StatusUnsupportedData, s.text("close.parse", map[string]any{"Reason": err.Error()}, reason))
			return
		}
		if err := s.coord.Submit(ctx, s.id, req); err != nil {
			obslog.L().Warn("ws_submit_error", zap.String("player_id", s.id), zap.Error(err))
			s.fail(websocket.StatusGoingAway, s.text("close.shutdown", nil, "server shutting down"))
			return
		}
	}
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			s.flush(ctx)
			_ = s.conn.Close(s.status, s.reason)
			return
		case msg := <-s.send:
			if err := s.write(ctx, msg); err != nil {
				obslog.L().Debug("ws_write_error", zap.String("player_id", s.id), zap.Error(err))
				s.fail(websocket.StatusGoingAway, "write failed")
				_ = s.conn.CloseNow()
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				obslog.L().Info("ws_ping_timeout", zap.String("player_id", s.id), zap.Error(err))
				s.fail(websocket.StatusGoingAway, "ping timeout")
				_ = s.conn.CloseNow()
				return
			}
		}
	}
}

// flush writes frames already queued before the close status was set, so
// e.g. an error payload precedes the close frame.
func (s *session) flush(ctx context.Context) {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, msg)
}

func (s *session) disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.coord.Disconnect(ctx, s.id); err != nil && !errors.Is(err, relay.ErrStopped) {
		obslog.L().Warn("ws_disconnect_error", zap.String("player_id", s.id), zap.Error(err))
	}
}

func (s *session) text(key string, data map[string]any, fallback string) string {
	if s.texts == nil {
		return fallback
	}
	out, err := s.texts.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}

// truncateReason keeps close reasons within the control frame limit.
func truncateReason(s string) string {
	if len(s) <= maxReasonBytes {
		return s
	}
	s = s[:maxReasonBytes]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

package relay

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/protocol"
	"go.uber.org/zap"
)

// Renderer produces user-facing text for error payloads.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// Options configure a Coordinator. Zero limits mean unlimited.
type Options struct {
	MaxParticipants int
	MaxRooms        int
	QueueSize       int
	Messages        Renderer
	Observers       []Observer
}

// Coordinator owns every participant and room and applies events one at a
// time on the goroutine running Run. Nothing else touches its registries.
type Coordinator struct {
	opts   Options
	events chan event
	done   chan struct{}

	participants *participants
	rooms        *rooms
	now          func() time.Time
}

type event interface {
	apply(c *Coordinator)
}

func New(opts Options) *Coordinator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	return &Coordinator{
		opts:         opts,
		events:       make(chan event, opts.QueueSize),
		done:         make(chan struct{}),
		participants: newParticipants(),
		rooms:        newRooms(),
		now:          time.Now,
	}
}

// Run processes events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	obslog.L().Info("coordinator_start",
		zap.Int("max_participants", c.opts.MaxParticipants),
		zap.Int("max_rooms", c.opts.MaxRooms),
		zap.Int("queue_size", c.opts.QueueSize),
	)
	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("coordinator_stop",
				zap.Int("participants", c.participants.count()),
				zap.Int("rooms", c.rooms.count()),
			)
			return ctx.Err()
		case ev := <-c.events:
			c.applySafely(ev)
		}
	}
}

// applySafely keeps one faulty handler from taking the coordinator down.
func (c *Coordinator) applySafely(ev event) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("coordinator_handler_panic", zap.Any("panic", r))
		}
	}()
	ev.apply(c)
}

func (c *Coordinator) enqueue(ctx context.Context, ev event) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers a participant and waits for the outcome. ErrCapacity
// means the caller should close the connection.
func (c *Coordinator) Connect(ctx context.Context, id string, d Dispatcher) error {
	reply := make(chan error, 1)
	if err := c.enqueue(ctx, &connectEvent{id: id, dispatch: d, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect tears down a participant. Unknown ids are a no-op.
func (c *Coordinator) Disconnect(ctx context.Context, id string) error {
	return c.enqueue(ctx, &disconnectEvent{id: id})
}

// Submit queues a parsed request from participant id.
func (c *Coordinator) Submit(ctx context.Context, id string, req protocol.Request) error {
	if req == nil {
		return nil
	}
	return c.enqueue(ctx, &requestEvent{id: id, req: req})
}

// Stats returns current counts, read on the coordinator goroutine.
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.inspect(ctx, func(c *Coordinator) {
		st = Stats{
			Participants: c.participants.count(),
			Rooms:        c.rooms.count(),
			OpenRooms:    c.rooms.open(),
		}
	})
	return st, err
}

// roomSnapshot returns a snapshot of a live room.
func (c *Coordinator) roomSnapshot(ctx context.Context, id string) (RoomInfo, bool, error) {
	var (
		info  RoomInfo
		found bool
	)
	err := c.inspect(ctx, func(c *Coordinator) {
		if r, ok := c.rooms.get(id); ok {
			info, found = c.rooms.info(c.participants, r), true
		}
	})
	return info, found, err
}

// Participant returns a copy of a live participant record.
func (c *Coordinator) Participant(ctx context.Context, id string) (Participant, bool, error) {
	var (
		out   Participant
		found bool
	)
	err := c.inspect(ctx, func(c *Coordinator) {
		if p, ok := c.participants.lookup(id); ok {
			out, found = *p, true
			out.dispatch = nil
		}
	})
	return out, found, err
}

func (c *Coordinator) inspect(ctx context.Context, fn func(c *Coordinator)) error {
	done := make(chan struct{})
	if err := c.enqueue(ctx, &inspectEvent{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

type connectEvent struct {
	id       string
	dispatch Dispatcher
	reply    chan error
}

func (e *connectEvent) apply(c *Coordinator) { e.reply <- c.handleConnect(e.id, e.dispatch) }

type disconnectEvent struct{ id string }

func (e *disconnectEvent) apply(c *Coordinator) { c.handleDisconnect(e.id) }

type requestEvent struct {
	id  string
	req protocol.Request
}

func (e *requestEvent) apply(c *Coordinator) {
	switch req := e.req.(type) {
	case *protocol.CreateGame:
		color, _ := protocol.ParseColor(req.Color)
		c.handleCreateRoom(e.id, req.Name, color)
	case *protocol.JoinGame:
		c.handleJoinRoom(req.GameID, e.id, req.Name)
	case *protocol.MakeMove:
		c.handleMakeMove(e.id, req)
	case *protocol.UpdateName:
		c.handleUpdateName(e.id, req.Name)
	case *protocol.UpdateGameState:
		status, _ := protocol.ParseGameStatus(req.NewStatus)
		c.handleUpdateGameStatus(e.id, status)
	default:
		obslog.L().Warn("relay_unknown_request", zap.String("player_id", e.id))
	}
}

type inspectEvent struct {
	fn   func(c *Coordinator)
	done chan struct{}
}

func (e *inspectEvent) apply(c *Coordinator) {
	defer close(e.done)
	e.fn(c)
}

// publish fans a room event out to observers.
func (c *Coordinator) publish(kind EventKind, info RoomInfo) {
	ev := RoomEvent{Kind: kind, Room: info, At: c.now()}
	for _, o := range c.opts.Observers {
		o.OnRoomEvent(ev)
	}
}

// send encodes and delivers a frame to one participant. A dead connection
// is not an error for the coordinator.
func (c *Coordinator) send(id string, t protocol.Type, payload any) {
	p, ok := c.participants.lookup(id)
	if !ok || p.dispatch == nil {
		obslog.L().Debug("relay_send_unknown", zap.String("player_id", id), zap.String("type", string(t)))
		return
	}
	raw, err := protocol.Encode(t, payload)
	if err != nil {
		obslog.L().Error("relay_encode_error", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if !p.dispatch.Deliver(raw) {
		obslog.L().Debug("relay_deliver_dropped", zap.String("player_id", id), zap.String("type", string(t)))
	}
}

func (c *Coordinator) sendError(id string, err error) {
	code := errorCode(err)
	msg := err.Error()
	if c.opts.Messages != nil {
		if text, rerr := c.opts.Messages.Render("errors."+code, map[string]any{"MaxNameLength": MaxNameLength}); rerr == nil {
			msg = text
		}
	}
	c.send(id, protocol.TypeError, protocol.ErrorPayload{Code: code, Message: msg})
}

// isInternal reports errors that indicate a stale or missing participant
// rather than a client mistake.
func isInternal(err error) bool {
	return errors.Is(err, ErrParticipantNotFound)
}

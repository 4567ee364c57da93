package relay

import (
	"sync"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"go.uber.org/zap"
)

// EventKind is a room lifecycle transition.
type EventKind string

const (
	RoomOpened  EventKind = "opened"  // created, awaiting opponent
	RoomFilled  EventKind = "filled"  // second seat taken
	RoomVacated EventKind = "vacated" // guest left, awaiting opponent again
	RoomClosed  EventKind = "closed"  // retired: finished or abandoned
)

// RoomEvent is published by the coordinator after a room transition.
type RoomEvent struct {
	Kind EventKind
	Room RoomInfo
	At   time.Time
}

// Observer receives room events on the coordinator goroutine and must not
// block. Wrap slow observers with NewAsync.
type Observer interface {
	OnRoomEvent(ev RoomEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev RoomEvent)

func (f ObserverFunc) OnRoomEvent(ev RoomEvent) { f(ev) }

// Async runs an observer on its own goroutine behind a bounded queue.
// Events arriving while the queue is full are dropped.
type Async struct {
	name string
	next Observer

	mu     sync.Mutex
	ch     chan RoomEvent
	closed bool
	wg     sync.WaitGroup
}

func NewAsync(name string, next Observer, buffer int) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{name: name, next: next, ch: make(chan RoomEvent, buffer)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for ev := range a.ch {
		a.next.OnRoomEvent(ev)
	}
}

func (a *Async) OnRoomEvent(ev RoomEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- ev:
	default:
		obslog.L().Warn("observer_queue_full",
			zap.String("observer", a.name),
			zap.String("room_id", ev.Room.ID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

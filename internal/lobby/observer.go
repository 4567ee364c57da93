package lobby

import (
	"context"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"go.uber.org/zap"
)

const applyTimeout = 2 * time.Second

// Observer mirrors room events into the Store. It performs network I/O and
// must be wrapped with relay.NewAsync before being handed to a Coordinator.
type Observer struct{ store *Store }

func NewObserver(store *Store) *Observer { return &Observer{store: store} }

func (o *Observer) OnRoomEvent(ev relay.RoomEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	if err := o.store.Apply(ctx, ev); err != nil {
		obslog.L().Warn("lobby_sync_error",
			zap.String("room_id", ev.Room.ID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}

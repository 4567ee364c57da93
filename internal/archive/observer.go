package archive

import (
	"context"
	"time"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// Observer archives rooms that close with a decided game. Abandoned rooms
// are ignored. Wrap with relay.NewAsync.
type Observer struct{ repo Repository }

func NewObserver(repo Repository) *Observer { return &Observer{repo: repo} }

func (o *Observer) OnRoomEvent(ev relay.RoomEvent) {
	if ev.Kind != relay.RoomClosed || !ev.Room.Finished {
		return
	}
	res, err := FromRoom(ev.Room, ev.At)
	if err != nil {
		obslog.L().Warn("archive_build_error", zap.String("room_id", ev.Room.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := o.repo.SaveResult(ctx, res); err != nil {
		obslog.L().Error("archive_save_error", zap.String("room_id", res.RoomID), zap.Error(err))
		return
	}
	obslog.L().Info("archive_saved",
		zap.String("room_id", res.RoomID),
		zap.String("result", res.Outcome),
		zap.String("method", res.Method),
		zap.Int("moves", len(res.MovesUCI)),
		zap.String("eco", res.ECOCode),
	)
}

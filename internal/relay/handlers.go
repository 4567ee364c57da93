package relay

import (
	"strings"

	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/protocol"
	"go.uber.org/zap"
)

func (c *Coordinator) handleConnect(id string, d Dispatcher) error {
	if strings.TrimSpace(id) == "" || d == nil {
		return ErrInvalidArgs
	}
	if limit := c.opts.MaxParticipants; limit > 0 && c.participants.count() >= limit {
		obslog.L().Warn("relay_connect_rejected",
			zap.String("player_id", id),
			zap.Int("participants", c.participants.count()),
			zap.String("reason", "capacity"),
		)
		return ErrCapacity
	}
	p := &Participant{ID: id, ConnectedAt: c.now(), dispatch: d}
	if err := c.participants.register(p); err != nil {
		obslog.L().Error("relay_connect_error", zap.String("player_id", id), zap.Error(err))
		return err
	}
	obslog.L().Info("relay_connect", zap.String("player_id", id), zap.Int("participants", c.participants.count()))
	c.send(id, protocol.TypeConnect, protocol.ConnectAck{ID: id})
	return nil
}

func (c *Coordinator) handleDisconnect(id string) {
	p, ok := c.participants.lookup(id)
	if !ok {
		obslog.L().Debug("relay_disconnect_unknown", zap.String("player_id", id))
		return
	}
	if p.seated() {
		roomID := p.RoomID
		r, live := c.rooms.get(roomID)
		var guest, owner string
		if live {
			owner, guest = r.SlotA, r.SlotB
		}
		closed, vacated := c.rooms.leave(c.participants, roomID, id)
		switch {
		case closed != nil:
			if guest != "" && guest != id {
				c.send(guest, protocol.TypeDisconnect, protocol.OpponentLeft{ID: id})
			}
			obslog.L().Info("room_abandoned", zap.String("room_id", roomID), zap.String("owner_id", id))
			c.publish(RoomClosed, *closed)
		case vacated:
			c.send(owner, protocol.TypeDisconnect, protocol.OpponentLeft{ID: id})
			obslog.L().Info("room_vacated", zap.String("room_id", roomID), zap.String("player_id", id))
			if r, ok := c.rooms.get(roomID); ok {
				c.publish(RoomVacated, c.rooms.info(c.participants, r))
			}
		default:
			obslog.L().Warn("relay_stale_room_ref", zap.String("player_id", id), zap.String("room_id", roomID))
		}
	}
	c.participants.remove(id)
	obslog.L().Info("relay_disconnect", zap.String("player_id", id), zap.Int("participants", c.participants.count()))
}

func (c *Coordinator) handleCreateRoom(id, name string, color protocol.Color) {
	if _, ok := c.participants.lookup(id); !ok {
		obslog.L().Debug("room_create_unknown_player", zap.String("player_id", id))
		return
	}
	if limit := c.opts.MaxRooms; limit > 0 && c.rooms.count() >= limit {
		obslog.L().Warn("room_create_rejected", zap.String("player_id", id), zap.String("reason", "capacity"))
		c.sendError(id, ErrCapacity)
		return
	}
	roomID, err := c.rooms.create(c.participants, id, name, color)
	if err != nil {
		obslog.L().Info("room_create_error", zap.String("player_id", id), zap.Error(err))
		c.sendError(id, err)
		return
	}
	obslog.L().Info("room_create",
		zap.String("room_id", roomID),
		zap.String("owner_id", id),
		zap.String("color", string(color)),
	)
	c.send(id, protocol.TypeCreateGame, protocol.GameCreated{ID: roomID})
	if r, ok := c.rooms.get(roomID); ok {
		c.publish(RoomOpened, c.rooms.info(c.participants, r))
	}
}

func (c *Coordinator) handleJoinRoom(roomID, id, name string) {
	p, ok := c.participants.lookup(id)
	if !ok {
		obslog.L().Debug("room_join_unknown_player", zap.String("player_id", id))
		return
	}
	if p.seated() {
		c.sendError(id, ErrAlreadySeated)
		return
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		c.sendError(id, err)
		return
	}
	if err := c.rooms.join(c.participants, roomID, id); err != nil {
		obslog.L().Info("room_join_error", zap.String("room_id", roomID), zap.String("player_id", id), zap.Error(err))
		if isInternal(err) {
			return
		}
		c.sendError(id, err)
		return
	}
	if name != "" {
		p.Name = name
	}
	r, _ := c.rooms.get(roomID)
	owner, ok := c.participants.lookup(r.SlotA)
	if !ok {
		obslog.L().Error("room_owner_missing", zap.String("room_id", roomID), zap.String("owner_id", r.SlotA))
		return
	}

	c.send(id, protocol.TypeOpponentJoined, protocol.Opponent{ID: owner.ID, Name: owner.Name, Color: string(owner.Color)})
	c.send(owner.ID, protocol.TypeOpponentJoined, protocol.Opponent{ID: p.ID, Name: p.Name, Color: string(p.Color)})
	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("owner_id", owner.ID),
		zap.String("guest_id", id),
		zap.String("guest_color", string(p.Color)),
	)
	c.publish(RoomFilled, c.rooms.info(c.participants, r))
}

func (c *Coordinator) handleMakeMove(id string, mv *protocol.MakeMove) {
	p, ok := c.participants.lookup(id)
	if !ok {
		obslog.L().Debug("move_unknown_player", zap.String("player_id", id))
		return
	}
	if !p.seated() {
		c.sendError(id, ErrNotInRoom)
		return
	}
	r, ok := c.rooms.get(p.RoomID)
	if !ok {
		obslog.L().Warn("relay_stale_room_ref", zap.String("player_id", id), zap.String("room_id", p.RoomID))
		p.unseat()
		c.sendError(id, ErrNotInRoom)
		return
	}

	opponent := r.Opponent(id)
	if opponent == "" {
		obslog.L().Debug("move_dropped_no_opponent", zap.String("room_id", r.ID), zap.String("player_id", id))
		return
	}
	c.send(opponent, protocol.TypeMakeMove, protocol.MakeMove{From: mv.From, To: mv.To, PromotionPiece: mv.PromotionPiece})

	rec, ok := recordable(mv, p.Color)
	switch {
	case !ok:
		obslog.L().Debug("move_not_recorded", zap.String("room_id", r.ID), zap.String("player_id", id))
	case len(r.Moves) >= MaxRecordedMoves:
		obslog.L().Debug("move_log_full", zap.String("room_id", r.ID), zap.Int("moves", len(r.Moves)))
	default:
		r.Moves = append(r.Moves, rec)
	}
	obslog.L().Debug("move_relay",
		zap.String("room_id", r.ID),
		zap.String("from_id", id),
		zap.String("to_id", opponent),
	)
}

// recordable converts a relayed move into a log entry. Moves whose fields
// do not look like squares and a promotion piece are relayed but not kept.
func recordable(mv *protocol.MakeMove, color protocol.Color) (Move, bool) {
	rec := Move{From: strings.TrimSpace(mv.From), To: strings.TrimSpace(mv.To), Color: color}
	if mv.PromotionPiece != nil {
		rec.Promotion = strings.ToLower(strings.TrimSpace(*mv.PromotionPiece))
	}
	if !isSquare(rec.From) || !isSquare(rec.To) || len(rec.Promotion) > 1 {
		return Move{}, false
	}
	return rec, true
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

func (c *Coordinator) handleUpdateName(id, name string) {
	if err := c.participants.rename(id, name); err != nil {
		if isInternal(err) {
			obslog.L().Debug("rename_unknown_player", zap.String("player_id", id))
			return
		}
		c.sendError(id, err)
		return
	}
	obslog.L().Debug("rename", zap.String("player_id", id))
}

// handleUpdateGameStatus records a seat status. A terminal status tells the
// opponent why the game ended and retires the room.
func (c *Coordinator) handleUpdateGameStatus(id string, status protocol.GameStatus) {
	p, ok := c.participants.lookup(id)
	if !ok {
		obslog.L().Debug("status_unknown_player", zap.String("player_id", id))
		return
	}
	var opponent string
	if r, ok := c.rooms.get(p.RoomID); ok {
		opponent = r.Opponent(id)
	}
	info, err := c.rooms.setStatus(c.participants, id, status)
	if err != nil {
		c.sendError(id, err)
		return
	}
	if !status.Terminal() {
		return
	}
	if opponent != "" {
		c.send(opponent, protocol.TypeUpdateGameState, protocol.GameStateChanged{PlayerID: id, NewStatus: string(status)})
	}
	obslog.L().Info("room_finish",
		zap.String("room_id", info.ID),
		zap.String("player_id", id),
		zap.String("status", string(status)),
		zap.Int("moves", len(info.Moves)),
	)
	c.publish(RoomClosed, info)
}

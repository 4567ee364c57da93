package relay

import (
	"time"

	"github.com/park285/chess-relay/internal/protocol"
)

// MaxNameLength bounds participant and room display names, in characters.
const MaxNameLength = 50

// Dispatcher delivers an encoded frame to one participant's connection.
// Delivery to a closed connection must return false without blocking.
type Dispatcher interface {
	Deliver(payload []byte) bool
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(payload []byte) bool

func (f DispatcherFunc) Deliver(payload []byte) bool { return f(payload) }

// Participant is one connected player.
type Participant struct {
	ID          string
	Name        string
	Color       protocol.Color
	RoomID      string
	ConnectedAt time.Time

	dispatch Dispatcher
}

func (p *Participant) seated() bool { return p.RoomID != "" }

func (p *Participant) unseat() {
	p.RoomID = ""
	p.Color = protocol.ColorUnassigned
}

// MaxRecordedMoves bounds the per-room move log. Moves past it are still
// relayed.
const MaxRecordedMoves = 600

// Move is one relayed move, kept for the result archive.
type Move struct {
	From      string
	To        string
	Promotion string
	Color     protocol.Color
}

// UCI renders the move as from+to+promotion ("e7e8q").
func (m Move) UCI() string { return m.From + m.To + m.Promotion }

// Room is a two-seat game. SlotA is the creator and is always filled.
type Room struct {
	ID        string
	Name      string
	SlotA     string
	SlotB     string
	ColorA    protocol.Color
	StatusA   protocol.GameStatus
	StatusB   protocol.GameStatus
	Finished  bool
	CreatedAt time.Time
	Moves     []Move
}

// Opponent returns the id of the other occupant, or "" when the seat is
// empty or id is not seated here.
func (r *Room) Opponent(id string) string {
	switch id {
	case r.SlotA:
		return r.SlotB
	case r.SlotB:
		if r.SlotB == "" {
			return ""
		}
		return r.SlotA
	default:
		return ""
	}
}

func (r *Room) full() bool { return r.SlotB != "" }

// Seat is the public view of an occupied slot.
type Seat struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Color  protocol.Color      `json:"color"`
	Status protocol.GameStatus `json:"status"`
}

// RoomInfo is an immutable snapshot of a room handed to observers.
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     Seat      `json:"owner"`
	Guest     *Seat     `json:"guest,omitempty"`
	Finished  bool      `json:"finished"`
	CreatedAt time.Time `json:"created_at"`
	Moves     []Move    `json:"-"`
}

// Stats is a point-in-time count of coordinator state.
type Stats struct {
	Participants int `json:"participants"`
	Rooms        int `json:"rooms"`
	OpenRooms    int `json:"open_rooms"`
}

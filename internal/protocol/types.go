package protocol

import (
	"encoding/json"
	"strings"
)

// Type is the envelope tag. Tags travel lowercase on the wire.
type Type string

const (
	TypeError           Type = "error"
	TypeConnect         Type = "connect"
	TypeDisconnect      Type = "disconnect"
	TypeCreateGame      Type = "creategame"
	TypeJoinGame        Type = "joingame"
	TypeUpdateName      Type = "updatename"
	TypeOpponentJoined  Type = "opponentjoined"
	TypeMakeMove        Type = "makemove"
	TypeUpdateGameState Type = "updategamestate"
)

// ParseType normalizes a client supplied tag ("createGame" → creategame).
func ParseType(s string) Type {
	return Type(strings.ToLower(strings.TrimSpace(s)))
}

// Envelope is the JSON frame exchanged with clients.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Requests (client → server)

type CreateGame struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type JoinGame struct {
	GameID string `json:"game_id"`
	Name   string `json:"name,omitempty"`
}

type MakeMove struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	PromotionPiece *string `json:"promotion_piece"`
}

type UpdateName struct {
	Name string `json:"name"`
}

type UpdateGameState struct {
	NewStatus string `json:"new_status"`
}

// Responses (server → client)

type ConnectAck struct {
	ID string `json:"id"`
}

type GameCreated struct {
	ID string `json:"id"`
}

// Opponent describes the other occupant of a room.
type Opponent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type GameStateChanged struct {
	PlayerID  string `json:"player_id"`
	NewStatus string `json:"new_status"`
}

type OpponentLeft struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

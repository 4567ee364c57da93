package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one of *CreateGame, *JoinGame, *MakeMove, *UpdateName or
// *UpdateGameState.
type Request interface {
	RequestType() Type
}

func (*CreateGame) RequestType() Type      { return TypeCreateGame }
func (*JoinGame) RequestType() Type        { return TypeJoinGame }
func (*MakeMove) RequestType() Type        { return TypeMakeMove }
func (*UpdateName) RequestType() Type      { return TypeUpdateName }
func (*UpdateGameState) RequestType() Type { return TypeUpdateGameState }

// ParseError is a malformed or unrecognized inbound frame.
type ParseError struct {
	Type   Type
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Type != "" {
		b.WriteString("incorrect data format for ")
		b.WriteString(string(e.Type))
	} else {
		b.WriteString("unable to parse message")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a text frame into a request. Server-only tags that clients
// may echo back (connect, disconnect, opponentjoined, error) decode to a nil
// request and nil error; callers ignore them.
func Parse(raw []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	t := ParseType(string(env.Type))
	switch t {
	case TypeCreateGame:
		var req CreateGame
		if err := decodePayload(t, env.Payload, &req); err != nil {
			return nil, err
		}
		c, ok := ParseColor(req.Color)
		if !ok {
			return nil, &ParseError{Type: t, Reason: fmt.Sprintf("unknown color %q", req.Color)}
		}
		req.Color = string(c)
		return &req, nil
	case TypeJoinGame:
		var req JoinGame
		if err := decodePayload(t, env.Payload, &req); err != nil {
			return nil, err
		}
		req.GameID = strings.TrimSpace(req.GameID)
		if req.GameID == "" {
			return nil, &ParseError{Type: t, Reason: "missing game_id"}
		}
		return &req, nil
	case TypeMakeMove:
		var req MakeMove
		if err := decodePayload(t, env.Payload, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
			return nil, &ParseError{Type: t, Reason: "missing from/to"}
		}
		return &req, nil
	case TypeUpdateName:
		var req UpdateName
		if err := decodePayload(t, env.Payload, &req); err != nil {
			return nil, err
		}
		return &req, nil
	case TypeUpdateGameState:
		var req UpdateGameState
		if err := decodePayload(t, env.Payload, &req); err != nil {
			return nil, err
		}
		st, ok := ParseGameStatus(req.NewStatus)
		if !ok {
			return nil, &ParseError{Type: t, Reason: fmt.Sprintf("unknown status %q", req.NewStatus)}
		}
		req.NewStatus = string(st)
		return &req, nil
	case TypeConnect, TypeDisconnect, TypeOpponentJoined, TypeError:
		return nil, nil
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}

func decodePayload(t Type, raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || raw[0] != '{' {
		return &ParseError{Type: t, Reason: "payload must be an object"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ParseError{Type: t, Err: err}
	}
	return nil
}

// Encode builds an outbound frame.
func Encode(t Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

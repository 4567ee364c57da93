package protocol

import "strings"

// Color is a seat color. The zero value is unassigned.
type Color string

const (
	ColorUnassigned Color = ""
	ColorWhite      Color = "w"
	ColorBlack      Color = "b"
)

// ParseColor accepts "w"/"b" and the long forms used by older clients.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return ColorWhite, true
	case "b", "black":
		return ColorBlack, true
	default:
		return ColorUnassigned, false
	}
}

// Opposite returns the complementary color. Unassigned has no complement.
func (c Color) Opposite() Color {
	switch c {
	case ColorWhite:
		return ColorBlack
	case ColorBlack:
		return ColorWhite
	default:
		return ColorUnassigned
	}
}

func (c Color) Assigned() bool { return c == ColorWhite || c == ColorBlack }

// GameStatus is a per-seat game status reported by clients.
type GameStatus string

const (
	StatusPlaying GameStatus = "Playing"

	StatusWonByCheckmate GameStatus = "WonByCheckmate"
	StatusWonByOvertime  GameStatus = "WonByOvertime"
	StatusWonByResign    GameStatus = "WonByResign"

	StatusLostByCheckmate GameStatus = "LostByCheckmate"
	StatusLostByOvertime  GameStatus = "LostByOvertime"
	StatusLostByResign    GameStatus = "LostByResign"

	StatusDrawByRepetition           GameStatus = "DrawByRepetition"
	StatusDrawByInsufficientMaterial GameStatus = "DrawByInsufficientMaterial"
	StatusDrawByAgreement            GameStatus = "DrawByAgreement"
	StatusDrawByStalemate            GameStatus = "DrawByStalemate"
	StatusDrawBy50Moves              GameStatus = "DrawBy50Moves"
)

var knownStatuses = map[GameStatus]struct{}{
	StatusPlaying:                    {},
	StatusWonByCheckmate:             {},
	StatusWonByOvertime:              {},
	StatusWonByResign:                {},
	StatusLostByCheckmate:            {},
	StatusLostByOvertime:             {},
	StatusLostByResign:               {},
	StatusDrawByRepetition:           {},
	StatusDrawByInsufficientMaterial: {},
	StatusDrawByAgreement:            {},
	StatusDrawByStalemate:            {},
	StatusDrawBy50Moves:              {},
}

// ParseGameStatus matches the exact identifier.
func ParseGameStatus(s string) (GameStatus, bool) {
	st := GameStatus(strings.TrimSpace(s))
	_, ok := knownStatuses[st]
	return st, ok
}

// Terminal reports whether the status ends the game.
func (s GameStatus) Terminal() bool { return s != StatusPlaying && s != "" }

// Counterpart is the status the opponent ends with: a win maps to the
// matching loss and back, draws map to themselves.
func (s GameStatus) Counterpart() GameStatus {
	switch {
	case s.Won():
		return GameStatus("Lost" + strings.TrimPrefix(string(s), "Won"))
	case s.Lost():
		return GameStatus("Won" + strings.TrimPrefix(string(s), "Lost"))
	default:
		return s
	}
}

func (s GameStatus) Won() bool  { return strings.HasPrefix(string(s), "Won") }
func (s GameStatus) Lost() bool { return strings.HasPrefix(string(s), "Lost") }
func (s GameStatus) Draw() bool { return strings.HasPrefix(string(s), "Draw") }

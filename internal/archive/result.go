package archive

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/chess-relay/internal/protocol"
	"github.com/park285/chess-relay/internal/relay"
)

// Result is the archived record of one finished room.
type Result struct {
	RoomID      string
	RoomName    string
	WhiteID     string
	WhiteName   string
	BlackID     string
	BlackName   string
	Outcome     string // white | black | draw
	Method      string // checkmate, resign, repetition, ...
	MovesUCI    []string
	MovesSAN    []string
	Replayed    bool // every relayed move was legal from the start position
	ECOCode     string
	OpeningName string
	PGN         string
	StartedAt   time.Time
	EndedAt     time.Time
}

// FromRoom builds a Result from the final snapshot of a finished room.
func FromRoom(info relay.RoomInfo, endedAt time.Time) (Result, error) {
	if !info.Finished {
		return Result{}, fmt.Errorf("room %s is not finished", info.ID)
	}
	if info.Guest == nil {
		return Result{}, fmt.Errorf("room %s finished without a guest", info.ID)
	}
	res := Result{RoomID: info.ID, RoomName: info.Name, StartedAt: info.CreatedAt, EndedAt: endedAt}

	seats := []relay.Seat{info.Owner, *info.Guest}
	for _, s := range seats {
		switch s.Color {
		case protocol.ColorWhite:
			res.WhiteID, res.WhiteName = s.ID, s.Name
		case protocol.ColorBlack:
			res.BlackID, res.BlackName = s.ID, s.Name
		}
	}
	res.Outcome, res.Method = outcomeOf(seats)

	res.MovesUCI = make([]string, 0, len(info.Moves))
	for _, mv := range info.Moves {
		res.MovesUCI = append(res.MovesUCI, strings.ToLower(mv.UCI()))
	}
	game, san, complete := replay(res.MovesUCI)
	res.MovesSAN = san
	res.Replayed = complete
	if eco := opening.NewBookECO().Find(game.Moves()); eco != nil {
		res.ECOCode, res.OpeningName = eco.Code(), eco.Title()
	}
	res.PGN = buildPGN(res)
	return res, nil
}

// outcomeOf reads the winner off whichever seat reported a decisive status.
func outcomeOf(seats []relay.Seat) (outcome, method string) {
	for _, s := range seats {
		st := s.Status
		switch {
		case st.Won():
			return colorOutcome(s.Color), methodOf(st)
		case st.Lost():
			return colorOutcome(s.Color.Opposite()), methodOf(st)
		case st.Draw():
			return "draw", methodOf(st)
		}
	}
	return "", ""
}

func colorOutcome(c protocol.Color) string {
	switch c {
	case protocol.ColorWhite:
		return "white"
	case protocol.ColorBlack:
		return "black"
	default:
		return ""
	}
}

func methodOf(st protocol.GameStatus) string {
	s := string(st)
	for _, p := range []string{"Won", "Lost", "Draw"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.TrimPrefix(s, "By")
	return strings.ToLower(s)
}

// replay applies UCI moves from the start position and encodes each as SAN.
// It stops at the first move the rules reject.
func replay(moves []string) (*nchess.Game, []string, bool) {
	game := nchess.NewGame()
	san := make([]string, 0, len(moves))
	notationUCI := nchess.UCINotation{}
	for _, uci := range moves {
		pos := game.Position()
		mv, err := notationUCI.Decode(pos, uci)
		if err != nil {
			return game, san, false
		}
		text := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return game, san, false
		}
		san = append(san, text)
	}
	return game, san, true
}

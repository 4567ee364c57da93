package archive

import (
	"fmt"
	"strings"
	"time"
)

func mapResultToPGN(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(r Result) string {
	var b strings.Builder
	date := r.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	pgnResult := mapResultToPGN(r.Outcome)

	b.WriteString("[Event \"Casual game\"]\n")
	b.WriteString("[Site \"chess-relay\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	if name := sanitizePGN(r.RoomName); name != "" {
		fmt.Fprintf(&b, "[Round \"%s\"]\n", name)
	}
	fmt.Fprintf(&b, "[White \"%s\"]\n", playerLabel(r.WhiteName))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", playerLabel(r.BlackName))
	fmt.Fprintf(&b, "[Result \"%s\"]\n", pgnResult)
	if r.ECOCode != "" {
		fmt.Fprintf(&b, "[ECO \"%s\"]\n", sanitizePGN(r.ECOCode))
		fmt.Fprintf(&b, "[Opening \"%s\"]\n", sanitizePGN(r.OpeningName))
	}
	if r.Method != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(r.Method))
	}
	b.WriteString("\n")

	for i := 0; i < len(r.MovesSAN); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(r.MovesSAN[i]))
		if i+1 < len(r.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(r.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	if !r.Replayed && len(r.MovesUCI) > len(r.MovesSAN) {
		fmt.Fprintf(&b, "{%d unreplayable moves omitted} ", len(r.MovesUCI)-len(r.MovesSAN))
	}
	b.WriteString(pgnResult)
	return b.String()
}

func playerLabel(name string) string {
	if s := sanitizePGN(name); s != "" {
		return s
	}
	return "?"
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/chess-relay/internal/protocol"
	"github.com/park285/chess-relay/internal/relayclient"
)

func main() {
	baseURL := flag.String("url", envOr("RELAY_BASE_URL", "http://127.0.0.1:8080"), "relay base URL")
	play := flag.Bool("play", false, "also create a room with two clients and relay one move")
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")
	client := relayclient.NewHTTPClient(base, relayclient.WithTimeout(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/health_check error: %v", err)
	}
	log.Println("/health_check ok")

	rooms, err := client.Lobby(ctx)
	switch {
	case errors.Is(err, relayclient.ErrLobbyDisabled):
		log.Println("/lobby disabled (no redis)")
	case err != nil:
		log.Printf("/lobby error: %v", err)
	default:
		log.Printf("/lobby ok: %d open rooms", len(rooms))
	}

	st, err := client.Stats(ctx)
	if err != nil {
		log.Printf("/stats error: %v", err)
	} else {
		log.Printf("/stats ok: participants=%d rooms=%d open=%d", st.Live.Participants, st.Live.Rooms, st.Live.OpenRooms)
		if st.Totals != nil {
			log.Printf("/stats totals: opened=%d filled=%d finished=%d abandoned=%d",
				st.Totals.Opened, st.Totals.Filled, st.Totals.Finished, st.Totals.Abandoned)
		}
	}

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	owner, err := relayclient.Dial(ctx, wsURL)
	if err != nil {
		log.Fatalf("ws connect error: %v", err)
	}
	defer owner.Close()
	log.Printf("ws ok: id=%s", owner.ID())

	if !*play {
		return
	}
	if err := smokeGame(ctx, wsURL, owner); err != nil {
		log.Fatalf("game check failed: %v", err)
	}
	log.Println("game check ok")
}

func smokeGame(ctx context.Context, wsURL string, owner *relayclient.Conn) error {
	guest, err := relayclient.Dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer guest.Close()

	if err := owner.Send(ctx, protocol.TypeCreateGame, protocol.CreateGame{Name: "relaycheck", Color: "w"}); err != nil {
		return err
	}
	var created protocol.GameCreated
	if err := owner.Expect(ctx, protocol.TypeCreateGame, &created); err != nil {
		return err
	}
	log.Printf("room created: %s", created.ID)

	if err := guest.Send(ctx, protocol.TypeJoinGame, protocol.JoinGame{GameID: created.ID, Name: "relaycheck"}); err != nil {
		return err
	}
	var opp protocol.Opponent
	if err := guest.Expect(ctx, protocol.TypeOpponentJoined, &opp); err != nil {
		return err
	}
	if err := owner.Send(ctx, protocol.TypeMakeMove, protocol.MakeMove{From: "e2", To: "e4"}); err != nil {
		return err
	}
	var mv protocol.MakeMove
	if err := guest.Expect(ctx, protocol.TypeMakeMove, &mv); err != nil {
		return err
	}
	log.Printf("move relayed: %s%s", mv.From, mv.To)
	return owner.Send(ctx, protocol.TypeUpdateGameState, protocol.UpdateGameState{NewStatus: string(protocol.StatusDrawByAgreement)})
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

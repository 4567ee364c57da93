package lobby

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/chess-relay/internal/protocol"
	"github.com/park285/chess-relay/internal/relay"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func openRoom(id string, created time.Time) relay.RoomInfo {
	return relay.RoomInfo{
		ID:        id,
		Name:      "room " + id,
		Owner:     relay.Seat{ID: "owner-" + id, Name: "Alice", Color: protocol.ColorWhite, Status: protocol.StatusPlaying},
		CreatedAt: created,
	}
}

func TestLobbyLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomOpened, Room: openRoom("B", base.Add(time.Minute))}); err != nil {
		t.Fatalf("apply opened B: %v", err)
	}
	if err := s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomOpened, Room: openRoom("A", base)}); err != nil {
		t.Fatalf("apply opened A: %v", err)
	}

	list, err := s.ListLobby(ctx)
	if err != nil {
		t.Fatalf("ListLobby: %v", err)
	}
	if len(list) != 2 || list[0].ID != "A" || list[1].ID != "B" {
		t.Fatalf("expected [A B] oldest first, got %+v", list)
	}
	if list[0].Owner.Color != protocol.ColorWhite || list[0].Owner.Name != "Alice" {
		t.Fatalf("snapshot lost fields: %+v", list[0])
	}

	filled := openRoom("A", base)
	filled.Guest = &relay.Seat{ID: "g", Color: protocol.ColorBlack, Status: protocol.StatusPlaying}
	if err := s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomFilled, Room: filled}); err != nil {
		t.Fatalf("apply filled: %v", err)
	}
	list, _ = s.ListLobby(ctx)
	if len(list) != 1 || list[0].ID != "B" {
		t.Fatalf("filled room must leave the lobby: %+v", list)
	}

	if err := s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomVacated, Room: openRoom("A", base)}); err != nil {
		t.Fatalf("apply vacated: %v", err)
	}
	list, _ = s.ListLobby(ctx)
	if len(list) != 2 {
		t.Fatalf("vacated room must return: %+v", list)
	}

	finished := filled
	finished.Finished = true
	_ = s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomClosed, Room: finished})
	_ = s.Apply(ctx, relay.RoomEvent{Kind: relay.RoomClosed, Room: openRoom("B", base)})
	list, _ = s.ListLobby(ctx)
	if len(list) != 0 {
		t.Fatalf("closed rooms must be removed: %+v", list)
	}
	if info, err := s.LoadRoom(ctx, "A"); err != nil || info != nil {
		t.Fatalf("snapshot should be deleted: %+v %v", info, err)
	}

	c, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters: %v", err)
	}
	if c.Opened != 2 || c.Filled != 1 || c.Finished != 1 || c.Abandoned != 1 {
		t.Fatalf("counters = %+v", c)
	}
}

func TestListLobbyPrunesExpired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	if err := s.AddLobby(ctx, openRoom("X", time.Now())); err != nil {
		t.Fatalf("AddLobby: %v", err)
	}
	mr.Del(s.keyRoom("X"))

	list, err := s.ListLobby(ctx)
	if err != nil {
		t.Fatalf("ListLobby: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty lobby, got %+v", list)
	}
	if n, _ := s.rdb.ZCard(ctx, keyOpenSet).Result(); n != 0 {
		t.Fatalf("stale index entry kept: %d", n)
	}
}

func TestRoomSnapshotHasTTL(t *testing.T) {
	s, mr := newTestStore(t)
	if err := s.AddLobby(context.Background(), openRoom("T", time.Now())); err != nil {
		t.Fatalf("AddLobby: %v", err)
	}
	if ttl := mr.TTL(s.keyRoom("T")); ttl <= 0 || ttl > ttlRoom {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(ttlRoom + time.Second)
	if mr.Exists(s.keyRoom("T")) {
		t.Fatalf("snapshot should expire")
	}
}

func TestDial(t *testing.T) {
	_, mr := newTestStore(t)
	rdb, err := Dial(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = rdb.Close()
	if _, err := Dial(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := Dial(context.Background(), "http://nope"); err == nil {
		t.Fatalf("expected error for bad scheme")
	}
}

func TestObserverThroughAsync(t *testing.T) {
	s, _ := newTestStore(t)
	a := relay.NewAsync("lobby", NewObserver(s), 8)
	a.OnRoomEvent(relay.RoomEvent{Kind: relay.RoomOpened, Room: openRoom("Q", time.Now())})
	a.Close()
	list, err := s.ListLobby(context.Background())
	if err != nil || len(list) != 1 || list[0].ID != "Q" {
		t.Fatalf("observer did not mirror: %+v %v", list, err)
	}
}

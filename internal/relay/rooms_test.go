package relay

import (
	"errors"
	"testing"

	"github.com/park285/chess-relay/internal/protocol"
)

func seedParticipants(t *testing.T, ids ...string) *participants {
	t.Helper()
	ps := newParticipants()
	for _, id := range ids {
		if err := ps.register(&Participant{ID: id, dispatch: DispatcherFunc(func([]byte) bool { return true })}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	return ps
}

func TestRoomIDShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := newRoomID()
		if err != nil {
			t.Fatalf("newRoomID: %v", err)
		}
		if len(id) != roomIDLength {
			t.Fatalf("unexpected length %d for %q", len(id), id)
		}
		for _, ch := range id {
			if !containsRune(roomIDAlphabet, ch) {
				t.Fatalf("id %q has non url-safe char %q", id, ch)
			}
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestCreateRetriesOnCollision(t *testing.T) {
	ps := seedParticipants(t, "p1", "p2")
	rs := newRooms()
	ids := []string{"SAME", "SAME", "OTHER"}
	rs.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
	first, err := rs.create(ps, "p1", "", protocol.ColorWhite)
	if err != nil || first != "SAME" {
		t.Fatalf("first create: %q %v", first, err)
	}
	second, err := rs.create(ps, "p2", "", protocol.ColorBlack)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second != "OTHER" {
		t.Fatalf("expected collision retry to yield OTHER, got %q", second)
	}
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	ps := seedParticipants(t, "p1", "p2")
	rs := newRooms()
	rs.newID = func() (string, error) { return "SAME", nil }
	if _, err := rs.create(ps, "p1", "", protocol.ColorWhite); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rs.create(ps, "p2", "", protocol.ColorWhite); err == nil {
		t.Fatalf("expected allocation failure")
	}
	p2, _ := ps.lookup("p2")
	if p2.seated() {
		t.Fatalf("failed create must not seat the requester")
	}
}

func TestCreateValidation(t *testing.T) {
	ps := seedParticipants(t, "p1")
	rs := newRooms()
	if _, err := rs.create(ps, "ghost", "", protocol.ColorWhite); !errors.Is(err, ErrCreatorMissing) {
		t.Fatalf("expected ErrCreatorMissing, got %v", err)
	}
	if _, err := rs.create(ps, "p1", "", protocol.ColorUnassigned); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'é'
	}
	if _, err := rs.create(ps, "p1", string(long), protocol.ColorWhite); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if rs.count() != 0 {
		t.Fatalf("failed creates must not register rooms")
	}
	if _, err := rs.create(ps, "p1", string(long[:MaxNameLength]), protocol.ColorWhite); err != nil {
		t.Fatalf("name of exactly %d chars must pass: %v", MaxNameLength, err)
	}
	if _, err := rs.create(ps, "p1", "", protocol.ColorBlack); !errors.Is(err, ErrAlreadySeated) {
		t.Fatalf("expected ErrAlreadySeated, got %v", err)
	}
}

func TestJoinAssignsComplementColor(t *testing.T) {
	for _, owner := range []protocol.Color{protocol.ColorWhite, protocol.ColorBlack} {
		ps := seedParticipants(t, "a", "b")
		rs := newRooms()
		id, err := rs.create(ps, "a", "", owner)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := rs.join(ps, id, "b"); err != nil {
			t.Fatalf("join: %v", err)
		}
		a, _ := ps.lookup("a")
		b, _ := ps.lookup("b")
		if a.Color != owner || b.Color != owner.Opposite() {
			t.Fatalf("colors a=%q b=%q for owner %q", a.Color, b.Color, owner)
		}
		if a.RoomID != id || b.RoomID != id {
			t.Fatalf("both must reference room %q: %q %q", id, a.RoomID, b.RoomID)
		}
	}
}

func TestJoinFullRoomLeavesStateUntouched(t *testing.T) {
	ps := seedParticipants(t, "a", "b", "c")
	rs := newRooms()
	id, _ := rs.create(ps, "a", "", protocol.ColorWhite)
	if err := rs.join(ps, id, "b"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := rs.join(ps, id, "c"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	r, _ := rs.get(id)
	if r.SlotA != "a" || r.SlotB != "b" {
		t.Fatalf("room mutated: %+v", r)
	}
	c, _ := ps.lookup("c")
	if c.seated() || c.Color.Assigned() {
		t.Fatalf("rejected joiner mutated: %+v", c)
	}
	if err := rs.join(ps, "missing", "c"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestLeaveOwnerRetiresRoom(t *testing.T) {
	ps := seedParticipants(t, "a", "b")
	rs := newRooms()
	id, _ := rs.create(ps, "a", "lobby", protocol.ColorBlack)
	_ = rs.join(ps, id, "b")

	closed, vacated := rs.leave(ps, id, "a")
	if closed == nil || vacated {
		t.Fatalf("owner leave must close the room: closed=%v vacated=%v", closed, vacated)
	}
	if closed.Owner.Color != protocol.ColorBlack || closed.Guest == nil || closed.Guest.Color != protocol.ColorWhite {
		t.Fatalf("snapshot lost colors: %+v", closed)
	}
	if _, ok := rs.get(id); ok {
		t.Fatalf("room must be gone")
	}
	b, _ := ps.lookup("b")
	if b.seated() || b.Color.Assigned() {
		t.Fatalf("guest must be unseated: %+v", b)
	}
}

func TestLeaveGuestVacatesSlot(t *testing.T) {
	ps := seedParticipants(t, "a", "b", "c")
	rs := newRooms()
	id, _ := rs.create(ps, "a", "", protocol.ColorWhite)
	_ = rs.join(ps, id, "b")

	closed, vacated := rs.leave(ps, id, "b")
	if closed != nil || !vacated {
		t.Fatalf("guest leave must vacate: closed=%v vacated=%v", closed, vacated)
	}
	if rs.open() != 1 {
		t.Fatalf("room should be open again")
	}
	if err := rs.join(ps, id, "c"); err != nil {
		t.Fatalf("rejoin vacated room: %v", err)
	}
}

func TestSetStatusTerminalAssignsCounterpart(t *testing.T) {
	ps := seedParticipants(t, "a", "b")
	rs := newRooms()
	id, _ := rs.create(ps, "a", "", protocol.ColorWhite)
	_ = rs.join(ps, id, "b")

	info, err := rs.setStatus(ps, "b", protocol.StatusWonByCheckmate)
	if err != nil {
		t.Fatalf("setStatus: %v", err)
	}
	if !info.Finished {
		t.Fatalf("terminal status must finish the room")
	}
	if info.Guest.Status != protocol.StatusWonByCheckmate || info.Owner.Status != protocol.StatusLostByCheckmate {
		t.Fatalf("unexpected seat statuses: owner=%q guest=%q", info.Owner.Status, info.Guest.Status)
	}
	if rs.count() != 0 {
		t.Fatalf("finished room must be retired")
	}
	if _, err := rs.setStatus(ps, "a", protocol.StatusPlaying); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom after retirement, got %v", err)
	}
}

func TestSetStatusPlayingKeepsRoom(t *testing.T) {
	ps := seedParticipants(t, "a")
	rs := newRooms()
	id, _ := rs.create(ps, "a", "", protocol.ColorWhite)
	info, err := rs.setStatus(ps, "a", protocol.StatusPlaying)
	if err != nil {
		t.Fatalf("setStatus: %v", err)
	}
	if info.Finished || info.ID != id || rs.count() != 1 {
		t.Fatalf("playing must not finish the room: %+v", info)
	}
}

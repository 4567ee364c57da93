package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-relay/internal/protocol"
)

// rooms is the registry of live rooms. Accessed only from the coordinator
// goroutine; every operation keeps participant and room references in step.
type rooms struct {
	byID  map[string]*Room
	newID func() (string, error)
	now   func() time.Time
}

func newRooms() *rooms {
	return &rooms{byID: make(map[string]*Room), newID: newRoomID, now: time.Now}
}

func (rs *rooms) get(id string) (*Room, bool) {
	r, ok := rs.byID[id]
	return r, ok
}

func (rs *rooms) count() int { return len(rs.byID) }

func (rs *rooms) open() int {
	n := 0
	for _, r := range rs.byID {
		if !r.full() {
			n++
		}
	}
	return n
}

// create seats ownerID in slot A of a fresh room with the requested color.
func (rs *rooms) create(ps *participants, ownerID, name string, color protocol.Color) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", ErrCreatorMissing
	}
	owner, ok := ps.lookup(ownerID)
	if !ok {
		return "", ErrCreatorMissing
	}
	if owner.seated() {
		return "", ErrAlreadySeated
	}
	if !color.Assigned() {
		return "", ErrInvalidArgs
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return "", err
	}

	var id string
	for i := 0; i < roomIDAttempts; i++ {
		c, err := rs.newID()
		if err != nil {
			return "", err
		}
		if _, taken := rs.byID[c]; !taken {
			id = c
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("failed to allocate room id")
	}

	rs.byID[id] = &Room{
		ID:        id,
		Name:      name,
		SlotA:     ownerID,
		ColorA:    color,
		StatusA:   protocol.StatusPlaying,
		StatusB:   protocol.StatusPlaying,
		CreatedAt: rs.now(),
	}
	owner.RoomID = id
	owner.Color = color
	return id, nil
}

// join fills slot B. A failed join leaves both the room and the requester
// untouched.
func (rs *rooms) join(ps *participants, roomID, participantID string) error {
	p, ok := ps.lookup(participantID)
	if !ok {
		return ErrParticipantNotFound
	}
	if p.seated() {
		return ErrAlreadySeated
	}
	r, ok := rs.byID[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.full() {
		return ErrRoomFull
	}
	if _, ok := ps.lookup(r.SlotA); !ok || !r.ColorA.Assigned() {
		// owner vanished without tearing the room down
		rs.retire(ps, r)
		return ErrRoomNotFound
	}
	r.SlotB = participantID
	r.StatusB = protocol.StatusPlaying
	p.RoomID = r.ID
	p.Color = r.ColorA.Opposite()
	return nil
}

// leave removes participantID from roomID. The owner leaving deletes the
// room and returns its final snapshot; the guest leaving only frees slot B.
func (rs *rooms) leave(ps *participants, roomID, participantID string) (closed *RoomInfo, vacated bool) {
	r, ok := rs.byID[roomID]
	if !ok {
		return nil, false
	}
	switch participantID {
	case r.SlotA:
		info := rs.retire(ps, r)
		return &info, false
	case r.SlotB:
		r.SlotB = ""
		r.StatusB = protocol.StatusPlaying
		r.Moves = nil
		if p, ok := ps.lookup(participantID); ok {
			p.unseat()
		}
		return nil, true
	default:
		return nil, false
	}
}

// setStatus records status for the participant's seat. A terminal status
// finishes and retires the room; the opponent's seat gets the counterpart
// status if it was still playing.
func (rs *rooms) setStatus(ps *participants, participantID string, status protocol.GameStatus) (RoomInfo, error) {
	p, ok := ps.lookup(participantID)
	if !ok {
		return RoomInfo{}, ErrParticipantNotFound
	}
	if !p.seated() {
		return RoomInfo{}, ErrNotInRoom
	}
	r, ok := rs.byID[p.RoomID]
	if !ok {
		p.unseat()
		return RoomInfo{}, ErrNotInRoom
	}
	switch participantID {
	case r.SlotA:
		r.StatusA = status
		if status.Terminal() && r.full() && !r.StatusB.Terminal() {
			r.StatusB = status.Counterpart()
		}
	case r.SlotB:
		r.StatusB = status
		if status.Terminal() && !r.StatusA.Terminal() {
			r.StatusA = status.Counterpart()
		}
	default:
		p.unseat()
		return RoomInfo{}, ErrNotInRoom
	}
	if !status.Terminal() {
		return rs.info(ps, r), nil
	}
	r.Finished = true
	return rs.retire(ps, r), nil
}

// retire removes r, resets every participant still pointing at it and
// returns the snapshot taken just before removal.
func (rs *rooms) retire(ps *participants, r *Room) RoomInfo {
	info := rs.info(ps, r)
	delete(rs.byID, r.ID)
	for _, id := range []string{r.SlotA, r.SlotB} {
		if id == "" {
			continue
		}
		if p, ok := ps.lookup(id); ok && p.RoomID == r.ID {
			p.unseat()
		}
	}
	return info
}

func (rs *rooms) info(ps *participants, r *Room) RoomInfo {
	info := RoomInfo{
		ID:        r.ID,
		Name:      r.Name,
		Owner:     seatOf(ps, r.SlotA, r.ColorA, r.StatusA),
		Finished:  r.Finished,
		CreatedAt: r.CreatedAt,
		Moves:     append([]Move(nil), r.Moves...),
	}
	if r.SlotB != "" {
		guest := seatOf(ps, r.SlotB, r.ColorA.Opposite(), r.StatusB)
		info.Guest = &guest
	}
	return info
}

func seatOf(ps *participants, id string, color protocol.Color, status protocol.GameStatus) Seat {
	s := Seat{ID: id, Color: color, Status: status}
	if p, ok := ps.lookup(id); ok {
		s.Name = p.Name
	}
	return s
}

package relay

import (
	"strings"
	"unicode/utf8"
)

// participants is the registry of connected players. Accessed only from
// the coordinator goroutine.
type participants struct {
	byID map[string]*Participant
}

func newParticipants() *participants {
	return &participants{byID: make(map[string]*Participant)}
}

func (ps *participants) register(p *Participant) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return ErrInvalidArgs
	}
	if _, exists := ps.byID[p.ID]; exists {
		return ErrDuplicateID
	}
	ps.byID[p.ID] = p
	return nil
}

func (ps *participants) lookup(id string) (*Participant, bool) {
	p, ok := ps.byID[id]
	return p, ok
}

func (ps *participants) remove(id string) (*Participant, bool) {
	p, ok := ps.byID[id]
	if ok {
		delete(ps.byID, id)
	}
	return p, ok
}

func (ps *participants) rename(id, name string) error {
	p, ok := ps.byID[id]
	if !ok {
		return ErrParticipantNotFound
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = name
	return nil
}

func (ps *participants) count() int { return len(ps.byID) }

func validateName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

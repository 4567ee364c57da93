package relay

import "errors"

// Validation
var (
	ErrInvalidArgs    = errors.New("invalid arguments")
	ErrNameTooLong    = errors.New("name exceeds 50 characters")
	ErrCreatorMissing = errors.New("room creator is not a registered participant")
)

// Conflict
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room already has two participants")
	ErrNotInRoom     = errors.New("participant is not seated in a room")
	ErrAlreadySeated = errors.New("participant is already seated in a room")
)

// Capacity and lifecycle
var (
	ErrCapacity            = errors.New("capacity limit reached")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrDuplicateID         = errors.New("participant id already registered")
	ErrStopped             = errors.New("coordinator stopped")
)

// errorCode maps a handler error to the code sent in error payloads.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNameTooLong):
		return "name_too_long"
	case errors.Is(err, ErrCreatorMissing):
		return "creator_missing"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrInvalidArgs):
		return "invalid_arguments"
	default:
		return "internal"
	}
}

package relay

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const (
	roomIDLength   = 10
	roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	roomIDAttempts = 5
)

// NewParticipantID returns a random 128-bit identity.
func NewParticipantID() string { return uuid.NewString() }

// newRoomID returns a URL-safe token. The alphabet has 64 symbols so the
// low six bits of each random byte map without bias.
func newRoomID() (string, error) {
	b := make([]byte, roomIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = roomIDAlphabet[b[i]&63]
	}
	return string(b), nil
}

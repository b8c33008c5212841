// Package idgen mints the opaque handles muster gives to announcements,
// threads and messages.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind selects the prefix of a handle so a ref says what it points at.
type Kind string

const (
	Announcement Kind = "an-"
	Thread       Kind = "th-"
	Message      Kind = "msg-"
)

// Alphabet is the character set of the random part.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters after the prefix.
const Length = 10

// New returns a fresh handle of the given kind, e.g. "an-x3Kd9QpL0a".
func New(kind Kind) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return string(kind) + id, nil
}

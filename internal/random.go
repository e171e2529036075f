package internal

import (
	"crypto/rand"
	"errors"
)

const linkIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// DefaultLinkIDLength matches the 9-character base36 identifiers embedded in
// shared-link URLs.
const DefaultLinkIDLength = 9

// NewLinkID returns a random base36 identifier of the given length.
// Uniqueness is enforced by the store's create-if-absent write, not by the
// generator.
func NewLinkID(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid link id length")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	// 256 is not a multiple of 36, so the mapping carries a slight bias.
	// Acceptable for a non-secret shareable identifier.
	for i, b := range buf {
		buf[i] = linkIDAlphabet[int(b)%len(linkIDAlphabet)]
	}
	return string(buf), nil
}

package ingest

import (
	"crypto/rand"
	"fmt"
)

// mediaIDPrefix is the constant prefix of every generated media id.
const mediaIDPrefix = "FM"

// NewMediaID generates a media id: the constant prefix followed by 16
// uppercase hex characters from 8 cryptographically random bytes (64 bits).
// Collisions are treated as practically impossible and are not checked.
func NewMediaID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; if it does, the
		// process has bigger problems than media ids.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return mediaIDPrefix + fmt.Sprintf("%X", b)
}

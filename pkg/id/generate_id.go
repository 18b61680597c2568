package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Size is the length of every public identifier.
const Size = 32

// NewID32 returns a random identifier of Size lowercase hex characters.
// It panics if the system random source fails.
func NewID32() string {
	var b [Size / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("id: read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// Valid reports whether s has the shape produced by NewID32.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

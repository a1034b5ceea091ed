// Package sha256 provides SHA-256 hashing for change detection.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements sentry.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest. The digest is a pure
// function of the input bytes.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

package pqcrypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// NewSalt returns a fresh password salt.
func NewSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// NewGroupKey returns a fresh symmetric group key.
func NewGroupKey() ([]byte, error) {
	return RandomBytes(GroupKeySize)
}

package qseal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Group is a named symmetric key shared by everyone who may read the
// group's messages. The key bytes are the group identity: fingerprints
// are always recomputed from them, never trusted from transport.
type Group struct {
	ID    string
	Name  string
	Emoji string
	// Key is the raw 32-byte AES-256-GCM key. Never log or transmit it
	// outside an invitation.
	Key []byte
	// Fingerprint is the 47-character rendering of the key fingerprint.
	Fingerprint string
	// ShortFingerprint is the 8-character hex form carried in message
	// headers for dispatch.
	ShortFingerprint string
	CreatedAt        time.Time
	// CreatorFingerprint is the full fingerprint of the identity that
	// created the group, empty when unknown.
	CreatorFingerprint string
	Notes              string
}

// NewGroup creates a group with a fresh random key.
func NewGroup(name string) (*Group, error) {
	key, err := pqcrypto.NewGroupKey()
	if err != nil {
		return nil, fmt.Errorf("generate group key: %w", err)
	}
	return NewGroupFromKey(name, key)
}

// NewGroupFromKey creates a group around existing key bytes, recomputing
// both fingerprints from the material. The bytes are copied.
func NewGroupFromKey(name string, key []byte) (*Group, error) {
	if len(key) != pqcrypto.GroupKeySize {
		return nil, fmt.Errorf("%w: group key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, pqcrypto.GroupKeySize, len(key))
	}

	k := make([]byte, len(key))
	copy(k, key)

	fp := pqcrypto.Fingerprint(k)
	return &Group{
		ID:               uuid.NewString(),
		Name:             name,
		Key:              k,
		Fingerprint:      pqcrypto.FormatFingerprint(fp),
		ShortFingerprint: pqcrypto.FormatGroupFingerprint(fp),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

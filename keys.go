package qseal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Key is the closed sum of key kinds a keyring stores: a *PersonalKey
// carrying secret material, or a *ContactKey holding only a public key.
// Consumers dispatch with a type switch:
//
//	switch k := k.(type) {
//	case *qseal.PersonalKey:
//	    // identity with secret key
//	case *qseal.ContactKey:
//	    // public key only
//	}
type Key interface {
	isKey()
}

// PersonalKey is an identity: an ML-KEM-768 keypair owned by the user.
// PersonalKey is a pure data struct; operations that need one take it as
// an argument.
type PersonalKey struct {
	ID        string
	Name      string
	PublicKey []byte
	// SecretKey is the raw ML-KEM-768 secret key. Never log or transmit it.
	SecretKey []byte
	// Fingerprint is the 47-character rendering of the public key
	// fingerprint, e.g. "4f:a3:...".
	Fingerprint string
	// ShortFingerprint is the 11-character abbreviated form shown next to
	// the key name.
	ShortFingerprint string
	CreatedAt        time.Time
}

func (*PersonalKey) isKey() {}

// ContactKey is another person's public key.
type ContactKey struct {
	ID               string
	Name             string
	PublicKey        []byte
	Fingerprint      string
	ShortFingerprint string
	CreatedAt        time.Time
	Notes            string
	// VerifiedAt is set once the user confirmed the fingerprint out of
	// band. Nil until then.
	VerifiedAt *time.Time
}

func (*ContactKey) isKey() {}

// GeneratePersonalKey creates a new identity with a fresh ML-KEM-768 keypair.
func GeneratePersonalKey(name string) (*PersonalKey, error) {
	kp, err := pqcrypto.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	fp := pqcrypto.Fingerprint(kp.PublicKey)
	return &PersonalKey{
		ID:               uuid.NewString(),
		Name:             name,
		PublicKey:        kp.PublicKey,
		SecretKey:        kp.SecretKey,
		Fingerprint:      pqcrypto.FormatFingerprint(fp),
		ShortFingerprint: pqcrypto.FormatShortFingerprint(fp),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// NewContactKey creates a contact from raw public key bytes. The bytes
// are copied and both fingerprints are computed from them.
func NewContactKey(name string, publicKey []byte) (*ContactKey, error) {
	if err := pqcrypto.ValidatePublicKey(publicKey); err != nil {
		return nil, wrapKeyMaterialError(err)
	}

	pk := make([]byte, len(publicKey))
	copy(pk, publicKey)

	fp := pqcrypto.Fingerprint(pk)
	return &ContactKey{
		ID:               uuid.NewString(),
		Name:             name,
		PublicKey:        pk,
		Fingerprint:      pqcrypto.FormatFingerprint(fp),
		ShortFingerprint: pqcrypto.FormatShortFingerprint(fp),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// keyID returns the record id for any key kind.
func keyID(k Key) string {
	switch k := k.(type) {
	case *PersonalKey:
		return k.ID
	case *ContactKey:
		return k.ID
	}
	return ""
}

// keyFingerprint returns the full fingerprint for any key kind.
func keyFingerprint(k Key) string {
	switch k := k.(type) {
	case *PersonalKey:
		return k.Fingerprint
	case *ContactKey:
		return k.Fingerprint
	}
	return ""
}

// validateKeyMaterial checks the raw key sizes for any key kind.
func validateKeyMaterial(k Key) error {
	switch k := k.(type) {
	case *PersonalKey:
		if err := pqcrypto.ValidatePublicKey(k.PublicKey); err != nil {
			return wrapKeyMaterialError(err)
		}
		if err := pqcrypto.ValidateSecretKey(k.SecretKey); err != nil {
			return wrapKeyMaterialError(err)
		}
		return nil
	case *ContactKey:
		if err := pqcrypto.ValidatePublicKey(k.PublicKey); err != nil {
			return wrapKeyMaterialError(err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown key kind %T", ErrInvalidKeyMaterial, k)
}

package pqcrypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-512.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// InvitationWrapKey derives the AEAD key that seals an invitation payload.
// The KEM shared secret is expanded through HKDF-SHA-512 with the SHA-256
// hash of the encapsulation ciphertext as salt and InvitationContext as info.
func InvitationWrapKey(sharedSecret, kemCiphertext []byte) ([]byte, error) {
	if len(sharedSecret) != KEMSharedSecretSize {
		return nil, fmt.Errorf("%w: shared secret", ErrInvalidSize)
	}
	if len(kemCiphertext) != KEMCiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	salt := sha256.Sum256(kemCiphertext)
	return DeriveKey(sharedSecret, salt[:], []byte(InvitationContext), AESKeySize)
}

package pqcrypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DeriveVaultKey derives the vault encryption key from the master password
// using PBKDF2-HMAC-SHA-256. The call is deliberately slow; iterations at
// or above DefaultKDFIterations is the intended operating range.
func DeriveVaultKey(password, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSaltSize, len(salt), SaltSize)
	}
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}

	return pbkdf2.Key(password, salt, iterations, AESKeySize, sha256.New), nil
}

// VerificationHash derives the stored password verifier. It runs over a
// domain-separated salt and a different hash family than DeriveVaultKey,
// so the verifier and the encryption key never share a derivation path.
func VerificationHash(password, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSaltSize, len(salt), SaltSize)
	}
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}

	domainSalt := make([]byte, 0, len(salt)+len(verifyDomain))
	domainSalt = append(domainSalt, salt...)
	domainSalt = append(domainSalt, verifyDomain...)

	return pbkdf2.Key(password, domainSalt, iterations, VerifierSize, sha512.New), nil
}

// VerifyPassword reports whether password matches the stored verifier.
// The comparison is constant time.
func VerifyPassword(password, salt, verifier []byte, iterations int) (bool, error) {
	candidate, err := VerificationHash(password, salt, iterations)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(candidate, verifier) == 1, nil
}

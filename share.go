package qseal

import (
	"fmt"
	"strings"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// shareFieldCount is the field count of a key share wire string: marker
// and public key.
const shareFieldCount = 2

// ShareString renders the key's public half as a pasteable wire string:
//
//	QS1KEY:<base64 public key>
//
// The string carries no secret material and may be published anywhere.
func (k *PersonalKey) ShareString() string {
	return SharePrefix + wireDelimiter + pqcrypto.ToBase64(k.PublicKey)
}

// ShareString renders the contact's public key in the same wire form a
// PersonalKey shares, for passing a contact along to someone else.
func (k *ContactKey) ShareString() string {
	return SharePrefix + wireDelimiter + pqcrypto.ToBase64(k.PublicKey)
}

// ParseShare extracts the public key bytes from a key share wire string.
// Surrounding whitespace is ignored. A structurally valid share whose
// key is not exactly the ML-KEM-768 public key size is rejected as
// invalid key material.
func ParseShare(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)

	parts := strings.Split(encoded, wireDelimiter)
	if len(parts) != shareFieldCount || parts[0] != SharePrefix {
		return nil, fmt.Errorf("%w: want %d %q-prefixed fields", ErrMalformedShare, shareFieldCount, SharePrefix)
	}

	publicKey, err := pqcrypto.FromBase64(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrMalformedShare, err)
	}
	if err := pqcrypto.ValidatePublicKey(publicKey); err != nil {
		return nil, wrapKeyMaterialError(err)
	}
	return publicKey, nil
}

// NewContactKeyFromShare parses a key share wire string and builds a
// contact key from it.
func NewContactKeyFromShare(name, encoded string) (*ContactKey, error) {
	publicKey, err := ParseShare(encoded)
	if err != nil {
		return nil, err
	}
	return NewContactKey(name, publicKey)
}

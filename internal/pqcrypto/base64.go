package pqcrypto

import (
	"encoding/base64"
)

// ToBase64 encodes bytes as standard base64 with padding. Wire strings use
// the standard alphabet throughout; it never contains the ':' delimiter.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

package vaultcodec

import (
	"encoding/json"
	"fmt"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Seal encodes payload as JSON and encrypts it under key with a fresh IV.
func Seal(p *Payload, key []byte) (iv, ciphertext []byte, err error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("encode payload: %w", err)
	}
	return pqcrypto.Encrypt(key, data)
}

// OpenResult carries a decoded payload plus migration bookkeeping.
type OpenResult struct {
	Payload *Payload
	// DiscardedKeys counts key records dropped by a destructive decoder.
	DiscardedKeys int
}

// Open decrypts a data record and decodes it with the decoder for the
// given schema version.
func Open(iv, ciphertext, key []byte, version int) (*OpenResult, error) {
	plaintext, err := pqcrypto.Decrypt(key, iv, ciphertext)
	if err != nil {
		return nil, err
	}
	return Decode(plaintext, version)
}

// Decode decodes decrypted payload bytes for the given schema version.
func Decode(plaintext []byte, version int) (*OpenResult, error) {
	decode, err := decoderFor(version)
	if err != nil {
		return nil, err
	}
	return decode(plaintext)
}

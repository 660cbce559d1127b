// Package vaultcodec encodes and decodes the encrypted vault payload
// across schema versions. The current schema is version 3; older
// payloads are decoded through a closed chain of per-version decoders
// and structurally repaired into the current shape.
package vaultcodec

import "time"

const (
	// VersionCurrent is the schema version written by this library.
	VersionCurrent = 3
	// VersionOldest is the oldest schema version the decoder chain accepts.
	VersionOldest = 1
)

// Key kinds as persisted in payload records. The in-memory model uses a
// typed sum; the string discriminator exists only on the wire.
const (
	KindPersonal = "personal"
	KindContact  = "contact"
)

// Payload is the decrypted content of a vault data record.
type Payload struct {
	Keys   []KeyRecord   `json:"keys"`
	Groups []GroupRecord `json:"groups"`
}

// KeyRecord is the persisted form of a personal or contact key.
type KeyRecord struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Name             string     `json:"name"`
	PublicKey        []byte     `json:"publicKey"`
	SecretKey        []byte     `json:"secretKey,omitempty"`
	Fingerprint      string     `json:"fingerprint"`
	ShortFingerprint string     `json:"shortFingerprint"`
	CreatedAt        time.Time  `json:"createdAt"`
	Notes            string     `json:"notes,omitempty"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty"`
}

// GroupRecord is the persisted form of a group key.
type GroupRecord struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Emoji              string    `json:"emoji,omitempty"`
	Key                []byte    `json:"key"`
	Fingerprint        string    `json:"fingerprint"`
	ShortFingerprint   string    `json:"shortFingerprint"`
	CreatedAt          time.Time `json:"createdAt"`
	CreatorFingerprint string    `json:"creatorFingerprint,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

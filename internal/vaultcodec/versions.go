package vaultcodec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// A decoder turns decrypted payload bytes for one schema version into the
// current Payload shape.
type decoder func([]byte) (*OpenResult, error)

// decoderFor returns the decoder for a schema version. The set is closed:
// supporting a new version means adding a decoder here.
func decoderFor(version int) (decoder, error) {
	switch version {
	case 3:
		return decodeV3, nil
	case 2:
		return decodeV2, nil
	case 1:
		return decodeV1, nil
	default:
		return nil, fmt.Errorf("unsupported vault schema version %d", version)
	}
}

// decodeV3 parses the current payload shape.
func decodeV3(data []byte) (*OpenResult, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode v3 payload: %w", err)
	}
	repair(&p)
	return &OpenResult{Payload: &p}, nil
}

// decodeV2 parses the v2 shape. v2 wrote the same field names as v3;
// collections and display fields added since may be absent and are
// repaired to their defaults.
func decodeV2(data []byte) (*OpenResult, error) {
	return decodeV3(data)
}

// v1Payload is the schema written before real KEM support landed. Key
// records of that era hold placeholder material under different field
// names.
type v1Payload struct {
	Keys []struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		Type       string    `json:"type"`
		PublicKey  []byte    `json:"publicKey"`
		PrivateKey []byte    `json:"privateKey"`
		Created    time.Time `json:"created"`
	} `json:"keys"`
	Groups []struct {
		ID      string    `json:"id"`
		Name    string    `json:"name"`
		Key     []byte    `json:"key"`
		Created time.Time `json:"created"`
	} `json:"groups"`
}

// decodeV1 converts a v1 payload. Key records are discarded and counted:
// their material was not produced by a real KEM and cannot be carried
// forward. Groups survive with fingerprints recomputed from the key bytes.
func decodeV1(data []byte) (*OpenResult, error) {
	var old v1Payload
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("decode v1 payload: %w", err)
	}

	p := &Payload{
		Keys:   []KeyRecord{},
		Groups: make([]GroupRecord, 0, len(old.Groups)),
	}
	for _, g := range old.Groups {
		fp := pqcrypto.Fingerprint(g.Key)
		p.Groups = append(p.Groups, GroupRecord{
			ID:               g.ID,
			Name:             g.Name,
			Key:              g.Key,
			Fingerprint:      pqcrypto.FormatFingerprint(fp),
			ShortFingerprint: pqcrypto.FormatGroupFingerprint(fp),
			CreatedAt:        g.Created,
		})
	}

	return &OpenResult{Payload: p, DiscardedKeys: len(old.Keys)}, nil
}

// repair fills fields structurally absent from older writers: nil
// collections become empty, and missing fingerprint strings are
// recomputed from the stored key material.
func repair(p *Payload) {
	if p.Keys == nil {
		p.Keys = []KeyRecord{}
	}
	if p.Groups == nil {
		p.Groups = []GroupRecord{}
	}

	for i := range p.Keys {
		k := &p.Keys[i]
		if k.Fingerprint != "" && k.ShortFingerprint != "" {
			continue
		}
		if len(k.PublicKey) == 0 {
			continue
		}
		fp := pqcrypto.Fingerprint(k.PublicKey)
		if k.Fingerprint == "" {
			k.Fingerprint = pqcrypto.FormatFingerprint(fp)
		}
		if k.ShortFingerprint == "" {
			k.ShortFingerprint = pqcrypto.FormatShortFingerprint(fp)
		}
	}

	for i := range p.Groups {
		g := &p.Groups[i]
		if g.Fingerprint != "" && g.ShortFingerprint != "" {
			continue
		}
		if len(g.Key) == 0 {
			continue
		}
		fp := pqcrypto.Fingerprint(g.Key)
		if g.Fingerprint == "" {
			g.Fingerprint = pqcrypto.FormatFingerprint(fp)
		}
		if g.ShortFingerprint == "" {
			g.ShortFingerprint = pqcrypto.FormatGroupFingerprint(fp)
		}
	}
}

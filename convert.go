package qseal

import (
	"fmt"

	"github.com/qseal/qseal-go/internal/pqcrypto"
	"github.com/qseal/qseal-go/internal/vaultcodec"
)

// keyringToPayload converts the domain keyring into the storable payload
// form.
func keyringToPayload(r *Keyring) *vaultcodec.Payload {
	p := &vaultcodec.Payload{
		Keys:   make([]vaultcodec.KeyRecord, 0, len(r.keys)),
		Groups: make([]vaultcodec.GroupRecord, 0, len(r.groups)),
	}
	for _, k := range r.keys {
		switch k := k.(type) {
		case *PersonalKey:
			p.Keys = append(p.Keys, vaultcodec.KeyRecord{
				ID:               k.ID,
				Kind:             vaultcodec.KindPersonal,
				Name:             k.Name,
				PublicKey:        k.PublicKey,
				SecretKey:        k.SecretKey,
				Fingerprint:      k.Fingerprint,
				ShortFingerprint: k.ShortFingerprint,
				CreatedAt:        k.CreatedAt,
			})
		case *ContactKey:
			p.Keys = append(p.Keys, vaultcodec.KeyRecord{
				ID:               k.ID,
				Kind:             vaultcodec.KindContact,
				Name:             k.Name,
				PublicKey:        k.PublicKey,
				Fingerprint:      k.Fingerprint,
				ShortFingerprint: k.ShortFingerprint,
				CreatedAt:        k.CreatedAt,
				Notes:            k.Notes,
				VerifiedAt:       k.VerifiedAt,
			})
		}
	}
	for _, g := range r.groups {
		p.Groups = append(p.Groups, vaultcodec.GroupRecord{
			ID:                 g.ID,
			Name:               g.Name,
			Emoji:              g.Emoji,
			Key:                g.Key,
			Fingerprint:        g.Fingerprint,
			ShortFingerprint:   g.ShortFingerprint,
			CreatedAt:          g.CreatedAt,
			CreatorFingerprint: g.CreatorFingerprint,
			Notes:              g.Notes,
		})
	}
	return p
}

// keyringFromPayload converts a decrypted payload back into the domain
// keyring. Key sizes are validated; a personal key record missing its
// public key has it rederived from the secret key.
func keyringFromPayload(p *vaultcodec.Payload) (*Keyring, error) {
	r := NewKeyring()
	for _, rec := range p.Keys {
		switch rec.Kind {
		case vaultcodec.KindPersonal:
			publicKey := rec.PublicKey
			if len(publicKey) == 0 {
				derived, err := pqcrypto.DerivePublicKeyFromSecret(rec.SecretKey)
				if err != nil {
					return nil, fmt.Errorf("key %s: derive public key: %w", rec.ID, err)
				}
				publicKey = derived
			}
			k := &PersonalKey{
				ID:               rec.ID,
				Name:             rec.Name,
				PublicKey:        publicKey,
				SecretKey:        rec.SecretKey,
				Fingerprint:      rec.Fingerprint,
				ShortFingerprint: rec.ShortFingerprint,
				CreatedAt:        rec.CreatedAt,
			}
			if err := r.AddKey(k); err != nil {
				return nil, fmt.Errorf("key %s: %w", rec.ID, err)
			}
		case vaultcodec.KindContact:
			k := &ContactKey{
				ID:               rec.ID,
				Name:             rec.Name,
				PublicKey:        rec.PublicKey,
				Fingerprint:      rec.Fingerprint,
				ShortFingerprint: rec.ShortFingerprint,
				CreatedAt:        rec.CreatedAt,
				Notes:            rec.Notes,
				VerifiedAt:       rec.VerifiedAt,
			}
			if err := r.AddKey(k); err != nil {
				return nil, fmt.Errorf("key %s: %w", rec.ID, err)
			}
		default:
			return nil, fmt.Errorf("key %s: unknown kind %q", rec.ID, rec.Kind)
		}
	}
	for _, rec := range p.Groups {
		g := &Group{
			ID:                 rec.ID,
			Name:               rec.Name,
			Emoji:              rec.Emoji,
			Key:                rec.Key,
			Fingerprint:        rec.Fingerprint,
			ShortFingerprint:   rec.ShortFingerprint,
			CreatedAt:          rec.CreatedAt,
			CreatorFingerprint: rec.CreatorFingerprint,
			Notes:              rec.Notes,
		}
		if err := r.AddGroup(g); err != nil {
			return nil, fmt.Errorf("group %s: %w", rec.ID, err)
		}
	}
	return r, nil
}

package qseal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// invitationFieldCount is the field count of an invitation wire string:
// marker, recipient fingerprint, KEM ciphertext, sealed payload, IV.
const invitationFieldCount = 5

// invitationPayload is the JSON sealed inside an invitation.
type invitationPayload struct {
	Name    string `json:"name"`
	Emoji   string `json:"emoji,omitempty"`
	Key     []byte `json:"key"`
	Inviter string `json:"inviter"`
	Message string `json:"message,omitempty"`
}

// Invitation is the parsed envelope of a group invitation. Only Accept
// reveals the content; parsing checks structure alone.
type Invitation struct {
	// RecipientFingerprint is the short fingerprint of the key the
	// invitation claims to be addressed to. It is routing metadata for
	// picking the right identity; possession of the matching secret key
	// is what actually opens the invitation.
	RecipientFingerprint string
	KEMCiphertext        []byte
	SealedPayload        []byte
	IV                   []byte
}

// AcceptedInvitation is the outcome of accepting an invitation. The
// group's fingerprints are recomputed from the recovered key bytes, so
// inviter and acceptor always render the same values for the same key.
type AcceptedInvitation struct {
	Group *Group
	// InviterFingerprint is the short fingerprint the inviter declared
	// inside the sealed payload.
	InviterFingerprint string
	// Message is the optional personal note carried with the invitation.
	Message string
}

// NewInvitation seals group for recipient and renders the wire form:
//
//	QS1INV:<b64 fingerprint>:<b64 kem ct>:<b64 payload>:<b64 iv>
//
// A fresh ML-KEM-768 encapsulation against the recipient's public key
// produces a shared secret; the group key, name, emoji, the inviter's
// short fingerprint and the optional message travel AES-256-GCM sealed
// under a key derived from that secret. Each call encapsulates anew, so
// inviting the same recipient twice yields different wire strings.
func NewInvitation(recipient *ContactKey, group *Group, inviter *PersonalKey, message string) (string, error) {
	if recipient == nil {
		return "", fmt.Errorf("%w: nil recipient", ErrInvalidKeyMaterial)
	}
	if group == nil || len(group.Key) != pqcrypto.GroupKeySize {
		return "", fmt.Errorf("%w: group key must be %d bytes", ErrInvalidKeyMaterial, pqcrypto.GroupKeySize)
	}
	if inviter == nil {
		return "", fmt.Errorf("%w: nil inviter", ErrInvalidKeyMaterial)
	}

	kemCiphertext, sharedSecret, err := pqcrypto.Encapsulate(recipient.PublicKey)
	if err != nil {
		return "", wrapKeyMaterialError(err)
	}

	wrapKey, err := pqcrypto.InvitationWrapKey(sharedSecret, kemCiphertext)
	if err != nil {
		return "", wrapKeyMaterialError(err)
	}

	payload, err := json.Marshal(invitationPayload{
		Name:    group.Name,
		Emoji:   group.Emoji,
		Key:     group.Key,
		Inviter: inviter.ShortFingerprint,
		Message: message,
	})
	if err != nil {
		return "", fmt.Errorf("encode invitation payload: %w", err)
	}

	iv, sealed, err := pqcrypto.Encrypt(wrapKey, payload)
	if err != nil {
		return "", wrapKeyMaterialError(err)
	}

	return strings.Join([]string{
		InvitationPrefix,
		pqcrypto.ToBase64([]byte(recipient.ShortFingerprint)),
		pqcrypto.ToBase64(kemCiphertext),
		pqcrypto.ToBase64(sealed),
		pqcrypto.ToBase64(iv),
	}, wireDelimiter), nil
}

// ParseInvitation parses an invitation wire string into its envelope
// fields without decrypting anything. Surrounding whitespace is ignored.
func ParseInvitation(encoded string) (*Invitation, error) {
	encoded = strings.TrimSpace(encoded)

	parts := strings.Split(encoded, wireDelimiter)
	if len(parts) != invitationFieldCount || parts[0] != InvitationPrefix {
		return nil, fmt.Errorf("%w: want %d %q-prefixed fields", ErrMalformedInvitation, invitationFieldCount, InvitationPrefix)
	}

	recipient, err := pqcrypto.FromBase64(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: recipient fingerprint: %v", ErrMalformedInvitation, err)
	}
	if !pqcrypto.ValidShortFingerprint(string(recipient)) {
		return nil, fmt.Errorf("%w: invalid recipient fingerprint", ErrMalformedInvitation)
	}

	kemCiphertext, err := pqcrypto.FromBase64(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: kem ciphertext: %v", ErrMalformedInvitation, err)
	}
	if len(kemCiphertext) != pqcrypto.KEMCiphertextSize {
		return nil, fmt.Errorf("%w: kem ciphertext must be %d bytes, got %d",
			ErrMalformedInvitation, pqcrypto.KEMCiphertextSize, len(kemCiphertext))
	}

	sealed, err := pqcrypto.FromBase64(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedInvitation, err)
	}
	if len(sealed) < pqcrypto.AESTagSize {
		return nil, fmt.Errorf("%w: payload shorter than auth tag", ErrMalformedInvitation)
	}

	iv, err := pqcrypto.FromBase64(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedInvitation, err)
	}
	if len(iv) != pqcrypto.AESIVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedInvitation, pqcrypto.AESIVSize, len(iv))
	}

	return &Invitation{
		RecipientFingerprint: string(recipient),
		KEMCiphertext:        kemCiphertext,
		SealedPayload:        sealed,
		IV:                   iv,
	}, nil
}

// Accept opens the invitation with the given identity and returns the
// group it carries. Decapsulation with any identity other than the one
// the inviter encapsulated to yields a wrong shared secret, so the
// payload fails authentication and ErrInvitationDecryptFailed is
// returned. A successfully opened invitation whose declared recipient
// fingerprint does not match the accepting identity is rejected with a
// RecipientMismatchError.
func (inv *Invitation) Accept(identity *PersonalKey) (*AcceptedInvitation, error) {
	if identity == nil {
		return nil, fmt.Errorf("%w: nil identity", ErrInvalidKeyMaterial)
	}

	sharedSecret, err := pqcrypto.Decapsulate(identity.SecretKey, inv.KEMCiphertext)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}

	wrapKey, err := pqcrypto.InvitationWrapKey(sharedSecret, inv.KEMCiphertext)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}

	opened, err := pqcrypto.Decrypt(wrapKey, inv.IV, inv.SealedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: for key %s", ErrInvitationDecryptFailed, identity.ShortFingerprint)
	}

	if inv.RecipientFingerprint != identity.ShortFingerprint {
		return nil, &RecipientMismatchError{
			Declared:  inv.RecipientFingerprint,
			Accepting: identity.ShortFingerprint,
		}
	}

	var payload invitationPayload
	if err := json.Unmarshal(opened, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload structure: %v", ErrMalformedInvitation, err)
	}

	group, err := NewGroupFromKey(payload.Name, payload.Key)
	if err != nil {
		return nil, err
	}
	group.Emoji = payload.Emoji

	return &AcceptedInvitation{
		Group:              group,
		InviterFingerprint: payload.Inviter,
		Message:            payload.Message,
	}, nil
}

// AcceptInvitation parses and accepts an invitation in one step.
func AcceptInvitation(encoded string, identity *PersonalKey) (*AcceptedInvitation, error) {
	inv, err := ParseInvitation(encoded)
	if err != nil {
		return nil, err
	}
	return inv.Accept(identity)
}

package qseal

import (
	"fmt"
	"strings"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Wire prefixes. Every QSeal string starts with the scheme prefix;
// invitations and key shares extend it with their own marker so the
// three forms never parse as one another.
const (
	// SchemePrefix introduces an encrypted group message.
	SchemePrefix = "QS1"
	// InvitationPrefix introduces a group invitation.
	InvitationPrefix = "QS1INV"
	// SharePrefix introduces a public key share.
	SharePrefix = "QS1KEY"

	wireDelimiter = ":"
)

// messageFieldCount is the field count of a message wire string after the
// scheme prefix: fingerprint, IV, ciphertext.
const messageFieldCount = 3

// GroupMessage is the parsed envelope of an encrypted message. Parsing
// does not decrypt; pair it with a group key via DecryptMessage.
type GroupMessage struct {
	// GroupFingerprint is the 8-character hex short fingerprint of the
	// group key the message was sealed under.
	GroupFingerprint string
	IV               []byte
	Ciphertext       []byte
}

// DecryptedMessage pairs recovered plaintext with the group that sealed it.
type DecryptedMessage struct {
	Plaintext string
	Group     *Group
}

// EncryptMessage seals plaintext under the group key and renders the
// compact wire form:
//
//	QS1<group fingerprint>:<base64 iv>:<base64 ciphertext>
//
// A fresh random IV is used on every call, so encrypting the same
// plaintext twice yields different wire strings. The result contains no
// newlines and is safe to paste into any text field.
func EncryptMessage(group *Group, plaintext string) (string, error) {
	if group == nil {
		return "", fmt.Errorf("%w: nil group", ErrInvalidKeyMaterial)
	}
	if len(group.Key) != pqcrypto.GroupKeySize {
		return "", fmt.Errorf("%w: group key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, pqcrypto.GroupKeySize, len(group.Key))
	}

	iv, ciphertext, err := pqcrypto.Encrypt(group.Key, []byte(plaintext))
	if err != nil {
		return "", wrapKeyMaterialError(err)
	}

	// The embedded fingerprint is always derived from the key bytes, not
	// read off the struct, so a stale field cannot misroute the message.
	fingerprint := pqcrypto.FormatGroupFingerprint(pqcrypto.Fingerprint(group.Key))

	return SchemePrefix + fingerprint +
		wireDelimiter + pqcrypto.ToBase64(iv) +
		wireDelimiter + pqcrypto.ToBase64(ciphertext), nil
}

// ParseMessage parses a message wire string into its envelope fields
// without decrypting anything. Surrounding whitespace is ignored.
// Invitation and key share strings are rejected here; use
// ParseInvitation and ParseShare for those.
func ParseMessage(encoded string) (*GroupMessage, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(encoded, SchemePrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedMessage, SchemePrefix)
	}

	parts := strings.Split(encoded[len(SchemePrefix):], wireDelimiter)
	if len(parts) != messageFieldCount {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedMessage, len(parts), messageFieldCount)
	}

	fingerprint := parts[0]
	if !pqcrypto.ValidGroupFingerprint(fingerprint) {
		return nil, fmt.Errorf("%w: invalid group fingerprint %q", ErrMalformedMessage, fingerprint)
	}

	iv, err := pqcrypto.FromBase64(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedMessage, err)
	}
	if len(iv) != pqcrypto.AESIVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedMessage, pqcrypto.AESIVSize, len(iv))
	}

	ciphertext, err := pqcrypto.FromBase64(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedMessage, err)
	}
	if len(ciphertext) < pqcrypto.AESTagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than auth tag", ErrMalformedMessage)
	}

	return &GroupMessage{
		GroupFingerprint: fingerprint,
		IV:               iv,
		Ciphertext:       ciphertext,
	}, nil
}

// DecryptMessage parses a message wire string and decrypts it with the
// matching group. Dispatch is strictly by the embedded group
// fingerprint: groups whose fingerprint does not match are never tried.
// Every group carrying the fingerprint is a candidate, since the
// 8-character form can collide; failure across all candidates is
// reported as a decryption failure, not a missing group.
func DecryptMessage(encoded string, groups []*Group) (*DecryptedMessage, error) {
	msg, err := ParseMessage(encoded)
	if err != nil {
		return nil, err
	}

	matched := false
	for _, g := range groups {
		if g == nil || g.ShortFingerprint != msg.GroupFingerprint {
			continue
		}
		matched = true
		plaintext, err := pqcrypto.Decrypt(g.Key, msg.IV, msg.Ciphertext)
		if err != nil {
			continue
		}
		return &DecryptedMessage{Plaintext: string(plaintext), Group: g}, nil
	}

	if matched {
		return nil, fmt.Errorf("%w: group %s", ErrMessageDecryptFailed, msg.GroupFingerprint)
	}
	return nil, fmt.Errorf("%w: no group with fingerprint %s", ErrMessageDecryptFailed, msg.GroupFingerprint)
}

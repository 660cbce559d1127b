package qseal

import (
	"bytes"
	"fmt"
	"time"

	"github.com/awnumar/memguard"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Keyring is the decrypted content of a vault: personal keys, contact
// keys and groups in insertion order. A Keyring is not safe for
// concurrent mutation; the vault store and session serialize writers.
type Keyring struct {
	keys   []Key
	groups []*Group
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// AddKey adds a personal or contact key. Keys are unique by full
// fingerprint across both kinds; adding a key whose fingerprint is
// already present returns a DuplicateKeyError.
func (r *Keyring) AddKey(k Key) error {
	if k == nil {
		return fmt.Errorf("%w: nil key", ErrInvalidKeyMaterial)
	}
	if err := validateKeyMaterial(k); err != nil {
		return err
	}
	fp := keyFingerprint(k)
	if fp == "" {
		return fmt.Errorf("%w: key has no fingerprint", ErrInvalidKeyMaterial)
	}
	if _, ok := r.KeyByFingerprint(fp); ok {
		return &DuplicateKeyError{Fingerprint: fp}
	}
	r.keys = append(r.keys, k)
	return nil
}

// RemoveKey removes the key with the given id, reporting whether it was
// present.
func (r *Keyring) RemoveKey(id string) bool {
	for i, k := range r.keys {
		if keyID(k) == id {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order. The slice is a copy; the
// elements are the live keys.
func (r *Keyring) Keys() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// PersonalKeys returns the personal keys in insertion order.
func (r *Keyring) PersonalKeys() []*PersonalKey {
	var out []*PersonalKey
	for _, k := range r.keys {
		if pk, ok := k.(*PersonalKey); ok {
			out = append(out, pk)
		}
	}
	return out
}

// ContactKeys returns the contact keys in insertion order.
func (r *Keyring) ContactKeys() []*ContactKey {
	var out []*ContactKey
	for _, k := range r.keys {
		if ck, ok := k.(*ContactKey); ok {
			out = append(out, ck)
		}
	}
	return out
}

// KeyByID returns the key with the given id.
func (r *Keyring) KeyByID(id string) (Key, bool) {
	for _, k := range r.keys {
		if keyID(k) == id {
			return k, true
		}
	}
	return nil, false
}

// KeyByFingerprint returns the key with the given full fingerprint.
func (r *Keyring) KeyByFingerprint(fingerprint string) (Key, bool) {
	for _, k := range r.keys {
		if keyFingerprint(k) == fingerprint {
			return k, true
		}
	}
	return nil, false
}

// RenameKey sets the display name of the key with the given id,
// reporting whether it was present.
func (r *Keyring) RenameKey(id, name string) bool {
	k, ok := r.KeyByID(id)
	if !ok {
		return false
	}
	switch k := k.(type) {
	case *PersonalKey:
		k.Name = name
	case *ContactKey:
		k.Name = name
	}
	return true
}

// MarkContactVerified records that the contact's fingerprint was
// confirmed out of band at the given time.
func (r *Keyring) MarkContactVerified(id string, at time.Time) bool {
	k, ok := r.KeyByID(id)
	if !ok {
		return false
	}
	ck, ok := k.(*ContactKey)
	if !ok {
		return false
	}
	t := at.UTC()
	ck.VerifiedAt = &t
	return true
}

// AddGroup adds a group. Groups are unique by key bytes: adding a group
// whose key is already present returns a DuplicateGroupError naming the
// existing group.
func (r *Keyring) AddGroup(g *Group) error {
	if g == nil {
		return fmt.Errorf("%w: nil group", ErrInvalidKeyMaterial)
	}
	if len(g.Key) != pqcrypto.GroupKeySize {
		return fmt.Errorf("%w: group key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, pqcrypto.GroupKeySize, len(g.Key))
	}
	for _, existing := range r.groups {
		if bytes.Equal(existing.Key, g.Key) {
			return &DuplicateGroupError{Name: existing.Name}
		}
	}
	r.groups = append(r.groups, g)
	return nil
}

// RemoveGroup removes the group with the given id, reporting whether it
// was present.
func (r *Keyring) RemoveGroup(id string) bool {
	for i, g := range r.groups {
		if g.ID == id {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return true
		}
	}
	return false
}

// Groups returns the groups in insertion order. The slice is a copy; the
// elements are the live groups.
func (r *Keyring) Groups() []*Group {
	out := make([]*Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// GroupByID returns the group with the given id.
func (r *Keyring) GroupByID(id string) (*Group, bool) {
	for _, g := range r.groups {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// GroupByShortFingerprint returns the first group whose short
// fingerprint matches. Message dispatch uses this form.
func (r *Keyring) GroupByShortFingerprint(fingerprint string) (*Group, bool) {
	for _, g := range r.groups {
		if g.ShortFingerprint == fingerprint {
			return g, true
		}
	}
	return nil, false
}

// RenameGroup sets the display name of the group with the given id,
// reporting whether it was present.
func (r *Keyring) RenameGroup(id, name string) bool {
	g, ok := r.GroupByID(id)
	if !ok {
		return false
	}
	g.Name = name
	return true
}

// CountKeys returns the number of keys of both kinds.
func (r *Keyring) CountKeys() int {
	return len(r.keys)
}

// CountGroups returns the number of groups.
func (r *Keyring) CountGroups() int {
	return len(r.groups)
}

// DecryptMessage decrypts a message wire string against the keyring's
// groups.
func (r *Keyring) DecryptMessage(encoded string) (*DecryptedMessage, error) {
	return DecryptMessage(encoded, r.groups)
}

// Wipe zeroes all secret material in place. The keyring and any keys or
// groups previously returned from it are unusable afterwards.
func (r *Keyring) Wipe() {
	for _, k := range r.keys {
		if pk, ok := k.(*PersonalKey); ok {
			memguard.WipeBytes(pk.SecretKey)
		}
	}
	for _, g := range r.groups {
		memguard.WipeBytes(g.Key)
	}
	r.keys = nil
	r.groups = nil
}

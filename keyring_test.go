package qseal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

func TestGeneratePersonalKey(t *testing.T) {
	key, err := GeneratePersonalKey("work laptop")
	if err != nil {
		t.Fatalf("GeneratePersonalKey() error = %v", err)
	}

	if key.ID == "" {
		t.Error("ID is empty")
	}
	if key.Name != "work laptop" {
		t.Errorf("Name = %q, want %q", key.Name, "work laptop")
	}
	if len(key.PublicKey) != pqcrypto.KEMPublicKeySize {
		t.Errorf("PublicKey length = %d, want %d", len(key.PublicKey), pqcrypto.KEMPublicKeySize)
	}
	if len(key.SecretKey) != pqcrypto.KEMSecretKeySize {
		t.Errorf("SecretKey length = %d, want %d", len(key.SecretKey), pqcrypto.KEMSecretKeySize)
	}
	if len(key.Fingerprint) != 47 {
		t.Errorf("Fingerprint length = %d, want 47", len(key.Fingerprint))
	}
	if len(key.ShortFingerprint) != 11 {
		t.Errorf("ShortFingerprint length = %d, want 11", len(key.ShortFingerprint))
	}
	if !strings.HasPrefix(key.Fingerprint, key.ShortFingerprint) {
		t.Errorf("Fingerprint %q does not start with ShortFingerprint %q", key.Fingerprint, key.ShortFingerprint)
	}
	if key.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestGeneratePersonalKey_Unique(t *testing.T) {
	a, err := GeneratePersonalKey("a")
	if err != nil {
		t.Fatalf("GeneratePersonalKey() error = %v", err)
	}
	b, err := GeneratePersonalKey("b")
	if err != nil {
		t.Fatalf("GeneratePersonalKey() error = %v", err)
	}

	if bytes.Equal(a.PublicKey, b.PublicKey) {
		t.Error("two generated keys share a public key")
	}
	if a.Fingerprint == b.Fingerprint {
		t.Error("two generated keys share a fingerprint")
	}
	if a.ID == b.ID {
		t.Error("two generated keys share an id")
	}
}

func TestNewContactKey(t *testing.T) {
	personal, err := GeneratePersonalKey("origin")
	if err != nil {
		t.Fatalf("GeneratePersonalKey() error = %v", err)
	}

	contact, err := NewContactKey("alice", personal.PublicKey)
	if err != nil {
		t.Fatalf("NewContactKey() error = %v", err)
	}

	// Same public key bytes must render the same fingerprints on both
	// sides of an exchange.
	if contact.Fingerprint != personal.Fingerprint {
		t.Errorf("contact Fingerprint = %q, want %q", contact.Fingerprint, personal.Fingerprint)
	}
	if contact.ShortFingerprint != personal.ShortFingerprint {
		t.Errorf("contact ShortFingerprint = %q, want %q", contact.ShortFingerprint, personal.ShortFingerprint)
	}
	if contact.VerifiedAt != nil {
		t.Error("VerifiedAt set on a fresh contact")
	}

	// The contact owns a copy of the bytes.
	personal.PublicKey[0] ^= 0xFF
	if contact.PublicKey[0] == personal.PublicKey[0] {
		t.Error("contact shares backing array with source key")
	}
}

func TestNewContactKey_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 1, pqcrypto.KEMPublicKeySize - 1, pqcrypto.KEMPublicKeySize + 1} {
		_, err := NewContactKey("bad", make([]byte, size))
		if !errors.Is(err, ErrInvalidKeyMaterial) {
			t.Errorf("NewContactKey(%d bytes) error = %v, want ErrInvalidKeyMaterial", size, err)
		}
	}
}

func TestNewGroup(t *testing.T) {
	group, err := NewGroup("family")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}

	if len(group.Key) != pqcrypto.GroupKeySize {
		t.Errorf("Key length = %d, want %d", len(group.Key), pqcrypto.GroupKeySize)
	}
	if len(group.Fingerprint) != 47 {
		t.Errorf("Fingerprint length = %d, want 47", len(group.Fingerprint))
	}
	if len(group.ShortFingerprint) != 8 {
		t.Errorf("ShortFingerprint length = %d, want 8", len(group.ShortFingerprint))
	}
	if strings.Contains(group.ShortFingerprint, ":") {
		t.Errorf("ShortFingerprint %q contains a colon", group.ShortFingerprint)
	}
}

func TestNewGroupFromKey_RecomputesFingerprints(t *testing.T) {
	original, err := NewGroup("original")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}

	rebuilt, err := NewGroupFromKey("rebuilt", original.Key)
	if err != nil {
		t.Fatalf("NewGroupFromKey() error = %v", err)
	}

	if rebuilt.Fingerprint != original.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", rebuilt.Fingerprint, original.Fingerprint)
	}
	if rebuilt.ShortFingerprint != original.ShortFingerprint {
		t.Errorf("ShortFingerprint = %q, want %q", rebuilt.ShortFingerprint, original.ShortFingerprint)
	}
	if rebuilt.ID == original.ID {
		t.Error("rebuilt group reused the original id")
	}
}

func TestNewGroupFromKey_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		_, err := NewGroupFromKey("bad", make([]byte, size))
		if !errors.Is(err, ErrInvalidKeyMaterial) {
			t.Errorf("NewGroupFromKey(%d bytes) error = %v, want ErrInvalidKeyMaterial", size, err)
		}
	}
}

func TestKeyring_AddKeyRejectsDuplicates(t *testing.T) {
	r := NewKeyring()

	personal, err := GeneratePersonalKey("me")
	if err != nil {
		t.Fatalf("GeneratePersonalKey() error = %v", err)
	}
	if err := r.AddKey(personal); err != nil {
		t.Fatalf("AddKey(personal) error = %v", err)
	}

	// Same material again, as a contact this time. Uniqueness is by
	// fingerprint across both kinds.
	contact, err := NewContactKey("me again", personal.PublicKey)
	if err != nil {
		t.Fatalf("NewContactKey() error = %v", err)
	}
	err = r.AddKey(contact)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("AddKey(duplicate) error = %v, want ErrDuplicateKey", err)
	}
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("AddKey(duplicate) error type = %T, want *DuplicateKeyError", err)
	}
	if dup.Fingerprint != personal.Fingerprint {
		t.Errorf("duplicate Fingerprint = %q, want %q", dup.Fingerprint, personal.Fingerprint)
	}

	if got := r.CountKeys(); got != 1 {
		t.Errorf("CountKeys() = %d, want 1", got)
	}
}

func TestKeyring_AddGroupRejectsDuplicateKeyBytes(t *testing.T) {
	r := NewKeyring()

	group, err := NewGroup("family")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}
	if err := r.AddGroup(group); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}

	// A different name around the same key bytes is still the same group.
	same, err := NewGroupFromKey("family (renamed)", group.Key)
	if err != nil {
		t.Fatalf("NewGroupFromKey() error = %v", err)
	}
	err = r.AddGroup(same)
	if !errors.Is(err, ErrDuplicateGroup) {
		t.Fatalf("AddGroup(duplicate) error = %v, want ErrDuplicateGroup", err)
	}
	var dup *DuplicateGroupError
	if !errors.As(err, &dup) {
		t.Fatalf("AddGroup(duplicate) error type = %T, want *DuplicateGroupError", err)
	}
	if dup.Name != "family" {
		t.Errorf("duplicate Name = %q, want %q (the existing group)", dup.Name, "family")
	}

	other, err := NewGroup("other")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}
	if err := r.AddGroup(other); err != nil {
		t.Errorf("AddGroup(distinct) error = %v", err)
	}
	if got := r.CountGroups(); got != 2 {
		t.Errorf("CountGroups() = %d, want 2", got)
	}
}

func TestKeyring_Lookups(t *testing.T) {
	r := NewKeyring()

	personal, _ := GeneratePersonalKey("me")
	other, _ := GeneratePersonalKey("contact source")
	contact, _ := NewContactKey("alice", other.PublicKey)
	group, _ := NewGroup("family")

	for _, k := range []Key{personal, contact} {
		if err := r.AddKey(k); err != nil {
			t.Fatalf("AddKey() error = %v", err)
		}
	}
	if err := r.AddGroup(group); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}

	if got, ok := r.KeyByID(contact.ID); !ok || got != Key(contact) {
		t.Errorf("KeyByID(%q) = %v, %v", contact.ID, got, ok)
	}
	if got, ok := r.KeyByFingerprint(personal.Fingerprint); !ok || got != Key(personal) {
		t.Errorf("KeyByFingerprint() = %v, %v", got, ok)
	}
	if _, ok := r.KeyByID("no-such-id"); ok {
		t.Error("KeyByID(unknown) reported present")
	}
	if got, ok := r.GroupByShortFingerprint(group.ShortFingerprint); !ok || got != group {
		t.Errorf("GroupByShortFingerprint() = %v, %v", got, ok)
	}
	if got := len(r.PersonalKeys()); got != 1 {
		t.Errorf("PersonalKeys() length = %d, want 1", got)
	}
	if got := len(r.ContactKeys()); got != 1 {
		t.Errorf("ContactKeys() length = %d, want 1", got)
	}
}

func TestKeyring_RemoveAndRename(t *testing.T) {
	r := NewKeyring()

	personal, _ := GeneratePersonalKey("me")
	group, _ := NewGroup("old name")
	if err := r.AddKey(personal); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}
	if err := r.AddGroup(group); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}

	if !r.RenameKey(personal.ID, "renamed") {
		t.Error("RenameKey() = false")
	}
	if personal.Name != "renamed" {
		t.Errorf("Name = %q after rename", personal.Name)
	}
	if !r.RenameGroup(group.ID, "new name") {
		t.Error("RenameGroup() = false")
	}
	if group.Name != "new name" {
		t.Errorf("group Name = %q after rename", group.Name)
	}

	if !r.RemoveKey(personal.ID) {
		t.Error("RemoveKey() = false")
	}
	if r.RemoveKey(personal.ID) {
		t.Error("second RemoveKey() = true")
	}
	if !r.RemoveGroup(group.ID) {
		t.Error("RemoveGroup() = false")
	}
	if got := r.CountKeys(); got != 0 {
		t.Errorf("CountKeys() = %d, want 0", got)
	}
	if got := r.CountGroups(); got != 0 {
		t.Errorf("CountGroups() = %d, want 0", got)
	}
}

func TestKeyring_MarkContactVerified(t *testing.T) {
	r := NewKeyring()

	source, _ := GeneratePersonalKey("source")
	contact, _ := NewContactKey("alice", source.PublicKey)
	if err := r.AddKey(contact); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if !r.MarkContactVerified(contact.ID, at) {
		t.Fatal("MarkContactVerified() = false")
	}
	if contact.VerifiedAt == nil || !contact.VerifiedAt.Equal(at) {
		t.Errorf("VerifiedAt = %v, want %v", contact.VerifiedAt, at)
	}

	// Personal keys cannot be marked verified.
	personal, _ := GeneratePersonalKey("me")
	if err := r.AddKey(personal); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}
	if r.MarkContactVerified(personal.ID, at) {
		t.Error("MarkContactVerified(personal key) = true")
	}
}

func TestKeyring_Wipe(t *testing.T) {
	r := NewKeyring()

	personal, _ := GeneratePersonalKey("me")
	group, _ := NewGroup("family")
	if err := r.AddKey(personal); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}
	if err := r.AddGroup(group); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}

	secret := personal.SecretKey
	groupKey := group.Key
	r.Wipe()

	if !bytes.Equal(secret, make([]byte, len(secret))) {
		t.Error("secret key not zeroed by Wipe")
	}
	if !bytes.Equal(groupKey, make([]byte, len(groupKey))) {
		t.Error("group key not zeroed by Wipe")
	}
	if r.CountKeys() != 0 || r.CountGroups() != 0 {
		t.Error("keyring not emptied by Wipe")
	}
}

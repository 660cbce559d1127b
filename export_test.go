package qseal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const testExportPassword = "GoodExportPassword123456"

func TestValidateExportPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "abcdefghij1234567890", true},
		{"valid long", testExportPassword, true},
		{"too short", "abc123", false},
		{"nineteen chars", "abcdefghij123456789", false},
		{"space", "abcdefghij 123456789", false},
		{"punctuation", "abcdefghij1234567890!", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExportPassword(tt.password)
			if tt.ok && err != nil {
				t.Errorf("ValidateExportPassword(%q) error = %v", tt.password, err)
			}
			if !tt.ok && !errors.Is(err, ErrExportPasswordPolicy) {
				t.Errorf("ValidateExportPassword(%q) error = %v, want ErrExportPasswordPolicy", tt.password, err)
			}
		})
	}
}

func TestGenerateExportPassword(t *testing.T) {
	first, err := GenerateExportPassword()
	if err != nil {
		t.Fatalf("GenerateExportPassword() error = %v", err)
	}
	if len(first) != 24 {
		t.Errorf("password length = %d, want 24", len(first))
	}
	if err := ValidateExportPassword(first); err != nil {
		t.Errorf("generated password fails policy: %v", err)
	}

	second, err := GenerateExportPassword()
	if err != nil {
		t.Fatalf("GenerateExportPassword() error = %v", err)
	}
	if first == second {
		t.Error("two generated export passwords are identical")
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStore())

	if _, err := store.Create(ctx, testPassword); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	seeded := seedKeyring(t)
	if err := store.Save(ctx, seeded, testPassword); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := store.Export(ctx, testPassword, testExportPassword)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// The file is a plaintext envelope around an encrypted payload.
	var envelope ExportedVault
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if err := envelope.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if envelope.App != "qseal" {
		t.Errorf("App = %q", envelope.App)
	}
	if !envelope.Encrypted {
		t.Error("Encrypted = false")
	}
	if strings.Contains(string(data), "secretKey") {
		t.Error("export leaks plaintext payload fields")
	}

	restored, err := ImportKeyring(data, testExportPassword)
	if err != nil {
		t.Fatalf("ImportKeyring() error = %v", err)
	}
	assertSameContent(t, restored, seeded)
}

func TestExport_FreshSaltPerExport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStore())

	if _, err := store.Create(ctx, testPassword); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := store.Export(ctx, testPassword, testExportPassword)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := store.Export(ctx, testPassword, testExportPassword)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var a, b ExportedVault
	if err := json.Unmarshal(first, &a); err != nil {
		t.Fatalf("decode first export: %v", err)
	}
	if err := json.Unmarshal(second, &b); err != nil {
		t.Fatalf("decode second export: %v", err)
	}
	if string(a.Salt) == string(b.Salt) {
		t.Error("two exports share a salt")
	}
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStore())

	if _, err := store.Export(ctx, testPassword, "short"); !errors.Is(err, ErrExportPasswordPolicy) {
		t.Errorf("Export(weak export password) error = %v, want ErrExportPasswordPolicy", err)
	}
	if _, err := store.Export(ctx, testPassword, testExportPassword); !errors.Is(err, ErrNoVault) {
		t.Errorf("Export(no vault) error = %v, want ErrNoVault", err)
	}

	if _, err := store.Create(ctx, testPassword); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Export(ctx, "not the password", testExportPassword); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Export(wrong master password) error = %v, want ErrWrongPassword", err)
	}
}

func TestImportKeyring_Errors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryStore())

	if _, err := store.Create(ctx, testPassword); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	seeded := seedKeyring(t)
	if err := store.Save(ctx, seeded, testPassword); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := store.Export(ctx, testPassword, testExportPassword)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	t.Run("wrong export password", func(t *testing.T) {
		if _, err := ImportKeyring(data, "WrongExportPassword12345"); !errors.Is(err, ErrWrongPassword) {
			t.Errorf("error = %v, want ErrWrongPassword", err)
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		var envelope ExportedVault
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("decode export: %v", err)
		}
		envelope.Ciphertext[len(envelope.Ciphertext)/2] ^= 0xFF
		tampered, err := json.Marshal(&envelope)
		if err != nil {
			t.Fatalf("encode tampered export: %v", err)
		}
		if _, err := ImportKeyring(tampered, testExportPassword); err == nil {
			t.Error("tampered export imported without error")
		}
	})

	t.Run("not json", func(t *testing.T) {
		if _, err := ImportKeyring([]byte("not an export"), testExportPassword); !errors.Is(err, ErrMalformedExport) {
			t.Errorf("error = %v, want ErrMalformedExport", err)
		}
	})

	t.Run("wrong app", func(t *testing.T) {
		var envelope ExportedVault
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("decode export: %v", err)
		}
		envelope.App = "other"
		other, err := json.Marshal(&envelope)
		if err != nil {
			t.Fatalf("encode export: %v", err)
		}
		if _, err := ImportKeyring(other, testExportPassword); !errors.Is(err, ErrMalformedExport) {
			t.Errorf("error = %v, want ErrMalformedExport", err)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		var envelope ExportedVault
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("decode export: %v", err)
		}
		envelope.Version = 99
		other, err := json.Marshal(&envelope)
		if err != nil {
			t.Fatalf("encode export: %v", err)
		}
		if _, err := ImportKeyring(other, testExportPassword); !errors.Is(err, ErrMalformedExport) {
			t.Errorf("error = %v, want ErrMalformedExport", err)
		}
	})
}

func TestImportReplace(t *testing.T) {
	ctx := context.Background()

	// Source vault with content.
	source := newTestStore(NewMemoryStore())
	if _, err := source.Create(ctx, testPassword); err != nil {
		t.Fatalf("Create(source) error = %v", err)
	}
	seeded := seedKeyring(t)
	if err := source.Save(ctx, seeded, testPassword); err != nil {
		t.Fatalf("Save(source) error = %v", err)
	}
	data, err := source.Export(ctx, testPassword, testExportPassword)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Destination vault with its own password and different content.
	const destPassword = "destination vault password"
	dest := newTestStore(NewMemoryStore())
	if _, err := dest.Create(ctx, destPassword); err != nil {
		t.Fatalf("Create(dest) error = %v", err)
	}
	destRing := NewKeyring()
	lonely, err := NewGroup("to be replaced")
	if err != nil {
		t.Fatalf("NewGroup() error = %v", err)
	}
	if err := destRing.AddGroup(lonely); err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}
	if err := dest.Save(ctx, destRing, destPassword); err != nil {
		t.Fatalf("Save(dest) error = %v", err)
	}

	restored, err := dest.ImportReplace(ctx, destPassword, testExportPassword, data)
	if err != nil {
		t.Fatalf("ImportReplace() error = %v", err)
	}
	assertSameContent(t, restored, seeded)

	// The destination now opens, under its own password, onto the
	// imported content.
	result, err := dest.Unlock(ctx, destPassword)
	if err != nil {
		t.Fatalf("Unlock(dest) error = %v", err)
	}
	assertSameContent(t, result.Keyring, seeded)
	if _, ok := result.Keyring.GroupByShortFingerprint(lonely.ShortFingerprint); ok {
		t.Error("pre-import group survived ImportReplace")
	}

	// Wrong master password never writes.
	if _, err := dest.ImportReplace(ctx, "nope", testExportPassword, data); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("ImportReplace(wrong master) error = %v, want ErrWrongPassword", err)
	}
}

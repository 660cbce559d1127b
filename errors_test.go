package qseal

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrNoVault", ErrNoVault},
		{"ErrVaultExists", ErrVaultExists},
		{"ErrWrongPassword", ErrWrongPassword},
		{"ErrCorruptedData", ErrCorruptedData},
		{"ErrSessionLocked", ErrSessionLocked},
		{"ErrSessionClosed", ErrSessionClosed},
		{"ErrInvalidKeyMaterial", ErrInvalidKeyMaterial},
		{"ErrDuplicateKey", ErrDuplicateKey},
		{"ErrDuplicateGroup", ErrDuplicateGroup},
		{"ErrRecipientMismatch", ErrRecipientMismatch},
		{"ErrInvitationDecryptFailed", ErrInvitationDecryptFailed},
		{"ErrMessageDecryptFailed", ErrMessageDecryptFailed},
		{"ErrMalformedMessage", ErrMalformedMessage},
		{"ErrMalformedInvitation", ErrMalformedInvitation},
		{"ErrMalformedShare", ErrMalformedShare},
		{"ErrMalformedExport", ErrMalformedExport},
		{"ErrExportPasswordPolicy", ErrExportPasswordPolicy},
		{"ErrStorage", ErrStorage},
	}

	for _, s := range sentinels {
		t.Run(s.name, func(t *testing.T) {
			if s.err == nil {
				t.Error("sentinel error is nil")
			}
			if s.err.Error() == "" {
				t.Error("sentinel error has empty message")
			}
		})
	}
}

func TestCorruptedDataError(t *testing.T) {
	cause := errors.New("auth tag mismatch")
	err := &CorruptedDataError{RecoveredFromBackup: true, Err: cause}

	if !errors.Is(err, ErrCorruptedData) {
		t.Error("CorruptedDataError does not match ErrCorruptedData")
	}
	if !errors.Is(err, cause) {
		t.Error("CorruptedDataError does not unwrap to its cause")
	}
	if errors.Is(err, ErrWrongPassword) {
		t.Error("CorruptedDataError matches ErrWrongPassword")
	}

	var target *CorruptedDataError
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed for *CorruptedDataError")
	}
	if !target.RecoveredFromBackup {
		t.Error("RecoveredFromBackup lost through errors.As")
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := wrapStorageError("set", "vault_data", cause)

	if !errors.Is(err, ErrStorage) {
		t.Error("wrapped storage error does not match ErrStorage")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped storage error does not unwrap to its cause")
	}

	var target *StorageError
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed for *StorageError")
	}
	if target.Op != "set" || target.Key != "vault_data" {
		t.Errorf("StorageError fields = %q/%q, want set/vault_data", target.Op, target.Key)
	}
}

func TestTypedErrors_MarkerInterface(t *testing.T) {
	typed := []struct {
		name string
		err  error
	}{
		{"CorruptedDataError", &CorruptedDataError{Err: errors.New("x")}},
		{"DuplicateKeyError", &DuplicateKeyError{Fingerprint: "aa:bb"}},
		{"DuplicateGroupError", &DuplicateGroupError{Name: "family"}},
		{"RecipientMismatchError", &RecipientMismatchError{Declared: "aa", Accepting: "bb"}},
		{"StorageError", &StorageError{Op: "get", Key: "k", Err: errors.New("x")}},
	}
	for _, tt := range typed {
		t.Run(tt.name, func(t *testing.T) {
			var marker QSealError
			if !errors.As(tt.err, &marker) {
				t.Error("typed error does not satisfy QSealError")
			}
			if tt.err.Error() == "" {
				t.Error("typed error has empty message")
			}
		})
	}
}

func TestErrorWrappingThroughFmt(t *testing.T) {
	err := fmt.Errorf("unlocking: %w", &CorruptedDataError{Err: errors.New("bad record")})

	if !errors.Is(err, ErrCorruptedData) {
		t.Error("wrapped CorruptedDataError lost its sentinel match")
	}
	var target *CorruptedDataError
	if !errors.As(err, &target) {
		t.Error("wrapped CorruptedDataError lost its type")
	}
}

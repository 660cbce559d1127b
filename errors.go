package qseal

import (
	"errors"
	"fmt"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrNoVault is returned when no vault exists in the record store.
	ErrNoVault = errors.New("no vault exists")

	// ErrVaultExists is returned when creating a vault over an existing one.
	ErrVaultExists = errors.New("vault already exists")

	// ErrWrongPassword is returned when the master password does not verify.
	// It is reported before any ciphertext is touched, so a wrong password
	// is never confused with corrupted data.
	ErrWrongPassword = errors.New("wrong password")

	// ErrCorruptedData is matched by CorruptedDataError via errors.Is.
	ErrCorruptedData = errors.New("vault data corrupted")

	// ErrSessionLocked is returned when key material is requested from a
	// locked session.
	ErrSessionLocked = errors.New("session is locked")

	// ErrSessionClosed is returned when operations are attempted on a
	// closed session.
	ErrSessionClosed = errors.New("session has been closed")

	// ErrInvalidKeyMaterial is returned when key bytes fail size or
	// structure validation.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrDuplicateKey is matched by DuplicateKeyError via errors.Is.
	ErrDuplicateKey = errors.New("key already in keyring")

	// ErrDuplicateGroup is matched by DuplicateGroupError via errors.Is.
	ErrDuplicateGroup = errors.New("group already in keyring")

	// ErrRecipientMismatch is matched by RecipientMismatchError via errors.Is.
	ErrRecipientMismatch = errors.New("invitation recipient mismatch")

	// ErrInvitationDecryptFailed is returned when an invitation payload
	// does not authenticate under the accepting identity.
	ErrInvitationDecryptFailed = errors.New("invitation is not addressed to this identity or is corrupted")

	// ErrMessageDecryptFailed is returned when no group key in the keyring
	// authenticates a message.
	ErrMessageDecryptFailed = errors.New("no group key decrypts this message")

	// ErrMalformedMessage is returned when a wire string fails message
	// parsing. Parse failures are never reported as decrypt failures.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrMalformedInvitation is returned when a wire string fails
	// invitation parsing.
	ErrMalformedInvitation = errors.New("malformed invitation")

	// ErrMalformedShare is returned when a key share string fails parsing.
	ErrMalformedShare = errors.New("malformed key share")

	// ErrMalformedExport is returned when exported vault data fails
	// validation.
	ErrMalformedExport = errors.New("invalid export data")

	// ErrExportPasswordPolicy is returned when an export password does not
	// meet the policy: at least 20 characters, letters and digits only.
	ErrExportPasswordPolicy = errors.New("export password must be at least 20 alphanumeric characters")

	// ErrStorage is matched by StorageError via errors.Is.
	ErrStorage = errors.New("record store failure")
)

// QSealError is implemented by all library errors.
type QSealError interface {
	error
	QSealError() // marker method
}

// CorruptedDataError reports vault ciphertext that failed to open under a
// verified password.
type CorruptedDataError struct {
	// RecoveredFromBackup is true when the previous vault state was
	// restored from the backup record, false when no usable copy remained.
	RecoveredFromBackup bool
	Err                 error
}

func (e *CorruptedDataError) Error() string {
	if e.RecoveredFromBackup {
		return fmt.Sprintf("vault data corrupted, previous state restored from backup: %v", e.Err)
	}
	return fmt.Sprintf("vault data corrupted and backup unusable: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CorruptedDataError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *CorruptedDataError) Is(target error) bool {
	return target == ErrCorruptedData
}

// QSealError implements the QSealError interface.
func (e *CorruptedDataError) QSealError() {}

// DuplicateKeyError reports an attempt to add a key whose fingerprint is
// already present in the keyring.
type DuplicateKeyError struct {
	Fingerprint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("key with fingerprint %s already in keyring", e.Fingerprint)
}

// Is implements errors.Is for sentinel error matching.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// QSealError implements the QSealError interface.
func (e *DuplicateKeyError) QSealError() {}

// DuplicateGroupError reports an attempt to add a group whose key bytes
// are already present in the keyring.
type DuplicateGroupError struct {
	Name string
}

func (e *DuplicateGroupError) Error() string {
	return fmt.Sprintf("group %q already in keyring", e.Name)
}

// Is implements errors.Is for sentinel error matching.
func (e *DuplicateGroupError) Is(target error) bool {
	return target == ErrDuplicateGroup
}

// QSealError implements the QSealError interface.
func (e *DuplicateGroupError) QSealError() {}

// RecipientMismatchError reports an invitation whose payload opened under
// an identity other than its declared recipient.
type RecipientMismatchError struct {
	// Declared is the recipient short fingerprint carried in the invitation.
	Declared string
	// Accepting is the short fingerprint of the identity that opened it.
	Accepting string
}

func (e *RecipientMismatchError) Error() string {
	return fmt.Sprintf("invitation addressed to %s, opened by %s", e.Declared, e.Accepting)
}

// Is implements errors.Is for sentinel error matching.
func (e *RecipientMismatchError) Is(target error) bool {
	return target == ErrRecipientMismatch
}

// QSealError implements the QSealError interface.
func (e *RecipientMismatchError) QSealError() {}

// StorageError wraps a record store failure with the operation and key.
type StorageError struct {
	Op  string // "get", "set" or "remove"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// QSealError implements the QSealError interface.
func (e *StorageError) QSealError() {}

// wrapStorageError converts record store failures to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapStorageError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

// wrapKeyMaterialError converts internal size and structure errors to the
// public ErrInvalidKeyMaterial sentinel.
func wrapKeyMaterialError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pqcrypto.ErrInvalidPublicKeySize),
		errors.Is(err, pqcrypto.ErrInvalidSecretKeySize),
		errors.Is(err, pqcrypto.ErrInvalidKeySize),
		errors.Is(err, pqcrypto.ErrInvalidSize):
		return fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return err
}

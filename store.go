package qseal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
	"github.com/qseal/qseal-go/internal/storage"
	"github.com/qseal/qseal-go/internal/vaultcodec"
)

// VaultStatus describes what exists in the record store before any
// password is presented.
type VaultStatus struct {
	// Exists is true when any vault, current or legacy layout, is
	// present.
	Exists bool
	// Version is the schema version found.
	Version int
	// Legacy is true when only the single-record v1/v2 layout exists;
	// the next successful unlock migrates it.
	Legacy bool
}

// UnlockResult carries the decrypted keyring plus recovery and
// migration bookkeeping for the unlock that produced it.
type UnlockResult struct {
	Keyring *Keyring
	// RecoveredFromBackup is true when the active data record was
	// unreadable and the backup slot supplied the content.
	RecoveredFromBackup bool
	// ResetAfterCorruption is true when WithEmptyVaultReset replaced an
	// unreadable vault with an empty keyring.
	ResetAfterCorruption bool
	// MigratedFromVersion is the legacy schema version this unlock
	// migrated from, zero when none.
	MigratedFromVersion int
	// DiscardedLegacyKeys counts the key records a version 1 migration
	// had to drop. Groups survive; pre-version-2 key records do not.
	DiscardedLegacyKeys int
}

// VaultStore persists an encrypted keyring in a record store, guarded
// by a master password. Mutating operations serialize behind one mutex:
// the vault is single-writer. Every operation that reveals or rewrites
// content takes the password and verifies it first; nothing is cached
// between calls. Use a Session to hold an unlocked vault open.
type VaultStore struct {
	kv         storage.Store
	observer   Observer
	iterations int

	mu sync.Mutex
}

// NewVaultStore wraps kv as a vault store.
func NewVaultStore(kv storage.Store, opts ...StoreOption) *VaultStore {
	cfg := storeConfig{
		observer:   NopObserver{},
		iterations: pqcrypto.DefaultKDFIterations,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &VaultStore{
		kv:         kv,
		observer:   cfg.observer,
		iterations: cfg.iterations,
	}
}

// getRecord reads and decodes one record. It reports false with a nil
// error when the record does not exist.
func (s *VaultStore) getRecord(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapStorageError("get", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s record: %w", key, err)
	}
	return true, nil
}

// setRecord encodes and writes one record.
func (s *VaultStore) setRecord(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return wrapStorageError("set", key, err)
	}
	return nil
}

// removeRecord deletes one record. Missing records are not an error.
func (s *VaultStore) removeRecord(ctx context.Context, key string) error {
	if err := s.kv.Remove(ctx, key); err != nil {
		return wrapStorageError("remove", key, err)
	}
	return nil
}

// recordExists reports whether a record is present without decoding it.
func (s *VaultStore) recordExists(ctx context.Context, key string) (bool, error) {
	_, err := s.kv.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, wrapStorageError("get", key, err)
}

// Status reports whether a vault exists and in which layout, without
// requiring a password.
func (s *VaultStore) Status(ctx context.Context) (*VaultStatus, error) {
	var meta vaultMeta
	ok, err := s.getRecord(ctx, recordMeta, &meta)
	if err != nil {
		return nil, err
	}
	if ok {
		return &VaultStatus{Exists: true, Version: meta.Version}, nil
	}

	var legacy legacyVault
	ok, err = s.getRecord(ctx, recordLegacy, &legacy)
	if err != nil {
		return nil, err
	}
	if ok {
		return &VaultStatus{Exists: true, Version: legacy.Version, Legacy: true}, nil
	}
	return &VaultStatus{}, nil
}

// Create initializes a brand new vault sealed under password and
// returns its empty keyring. Creating over an existing vault, current
// or legacy, is refused; Destroy it first.
func (s *VaultStore) Create(ctx context.Context, password string) (*Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{recordMeta, recordLegacy} {
		exists, err := s.recordExists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrVaultExists
		}
	}

	salt, err := pqcrypto.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	pw := []byte(password)
	verifier, err := pqcrypto.VerificationHash(pw, salt, s.iterations)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}
	key, err := pqcrypto.DeriveVaultKey(pw, salt, s.iterations)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}

	keyring := NewKeyring()
	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(keyring), key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := &vaultMeta{
		Version:       vaultcodec.VersionCurrent,
		Salt:          salt,
		PasswordHash:  verifier,
		KDFIterations: s.iterations,
		CreatedAt:     now,
	}
	if err := s.setRecord(ctx, recordMeta, meta); err != nil {
		return nil, err
	}
	if err := s.setRecord(ctx, recordData, &vaultData{IV: iv, Ciphertext: ciphertext, SavedAt: now}); err != nil {
		// Never leave metadata without a data record.
		s.removeRecord(ctx, recordMeta)
		return nil, err
	}

	s.observer.Checkpoint(CheckpointCreate, map[string]any{"version": vaultcodec.VersionCurrent})
	return keyring, nil
}

// Unlock verifies password and returns the decrypted keyring. An
// unreadable active record falls back to the backup slot, which is
// promoted on success; a wrong password is always reported as
// ErrWrongPassword, never as corruption. Unlocking a legacy vault
// migrates it to the current layout in the same call.
func (s *VaultStore) Unlock(ctx context.Context, password string, opts ...UnlockOption) (*UnlockResult, error) {
	cfg := unlockConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockLocked(ctx, password, cfg)
}

func (s *VaultStore) unlockLocked(ctx context.Context, password string, cfg unlockConfig) (*UnlockResult, error) {
	s.observer.Checkpoint(CheckpointUnlockAttempt, nil)

	var meta vaultMeta
	ok, err := s.getRecord(ctx, recordMeta, &meta)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, &CorruptedDataError{Err: err}
	}
	if !ok {
		return s.migrateLegacy(ctx, password)
	}

	pw := []byte(password)
	iterations := meta.iterations()

	okPw, err := pqcrypto.VerifyPassword(pw, meta.Salt, meta.PasswordHash, iterations)
	if err != nil {
		return nil, &CorruptedDataError{Err: err}
	}
	if !okPw {
		return nil, ErrWrongPassword
	}
	s.observer.Checkpoint(CheckpointPasswordVerified, nil)

	key, err := pqcrypto.DeriveVaultKey(pw, meta.Salt, iterations)
	if err != nil {
		return nil, &CorruptedDataError{Err: err}
	}

	result := &UnlockResult{}
	keyring, _, openErr := s.openData(ctx, recordData, key)
	if openErr != nil {
		if errors.Is(openErr, ErrStorage) {
			return nil, openErr
		}

		backupKeyring, backupRecord, backupErr := s.openData(ctx, recordBackup, key)
		if backupErr != nil {
			if errors.Is(backupErr, ErrStorage) {
				return nil, backupErr
			}
			if cfg.resetOnCorruption {
				keyring, err := s.resetLocked(ctx, key)
				if err != nil {
					return nil, err
				}
				s.observer.Checkpoint(CheckpointVaultReset, nil)
				return &UnlockResult{Keyring: keyring, ResetAfterCorruption: true}, nil
			}
			return nil, &CorruptedDataError{Err: openErr}
		}

		// Promote the backup into the active slot before handing it out.
		if err := s.setRecord(ctx, recordData, backupRecord); err != nil {
			return nil, err
		}
		keyring = backupKeyring
		result.RecoveredFromBackup = true
		s.observer.Checkpoint(CheckpointBackupRestore, nil)
	}

	result.Keyring = keyring
	s.observer.Checkpoint(CheckpointUnlockSuccess, map[string]any{
		"keys":   keyring.CountKeys(),
		"groups": keyring.CountGroups(),
	})
	return result, nil
}

// openData reads one encrypted payload record and opens it into a
// keyring. Storage failures come back satisfying ErrStorage; any other
// error means the record is missing or unreadable.
func (s *VaultStore) openData(ctx context.Context, recordKey string, key []byte) (*Keyring, *vaultData, error) {
	var record vaultData
	ok, err := s.getRecord(ctx, recordKey, &record)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("missing %s record", recordKey)
	}

	opened, err := vaultcodec.Open(record.IV, record.Ciphertext, key, vaultcodec.VersionCurrent)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s record: %w", recordKey, err)
	}
	keyring, err := keyringFromPayload(opened.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s record: %w", recordKey, err)
	}
	return keyring, &record, nil
}

// resetLocked reseals an empty keyring into the active slot and clears
// the stale backup.
func (s *VaultStore) resetLocked(ctx context.Context, key []byte) (*Keyring, error) {
	keyring := NewKeyring()
	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(keyring), key)
	if err != nil {
		return nil, err
	}
	if err := s.setRecord(ctx, recordData, &vaultData{IV: iv, Ciphertext: ciphertext, SavedAt: time.Now().UTC()}); err != nil {
		return nil, err
	}
	if err := s.removeRecord(ctx, recordBackup); err != nil {
		return nil, err
	}
	return keyring, nil
}

// Save re-encrypts keyring under password and writes it as the active
// data record. The previous record is copied into the backup slot
// first, and the write is verified by reading it back and comparing
// record counts; on verification failure the previous record is
// restored and the error reports that the vault was rolled back. The
// salt never rotates on save; a fresh IV makes every saved ciphertext
// unique.
func (s *VaultStore) Save(ctx context.Context, keyring *Keyring, password string) error {
	if keyring == nil {
		return fmt.Errorf("%w: nil keyring", ErrInvalidKeyMaterial)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.observer.Checkpoint(CheckpointSaveAttempt, map[string]any{
		"keys":   keyring.CountKeys(),
		"groups": keyring.CountGroups(),
	})

	var meta vaultMeta
	ok, err := s.getRecord(ctx, recordMeta, &meta)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return err
		}
		return &CorruptedDataError{Err: err}
	}
	if !ok {
		return ErrNoVault
	}

	pw := []byte(password)
	iterations := meta.iterations()

	okPw, err := pqcrypto.VerifyPassword(pw, meta.Salt, meta.PasswordHash, iterations)
	if err != nil {
		return &CorruptedDataError{Err: err}
	}
	if !okPw {
		return ErrWrongPassword
	}

	// Preserve the current record in the backup slot before anything
	// overwrites it.
	current, err := s.kv.Get(ctx, recordData)
	switch {
	case err == nil:
		if err := s.kv.Set(ctx, recordBackup, current); err != nil {
			return wrapStorageError("set", recordBackup, err)
		}
	case errors.Is(err, storage.ErrNotFound):
		current = nil
	default:
		return wrapStorageError("get", recordData, err)
	}

	key, err := pqcrypto.DeriveVaultKey(pw, meta.Salt, iterations)
	if err != nil {
		return wrapKeyMaterialError(err)
	}

	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(keyring), key)
	if err != nil {
		return err
	}
	if err := s.setRecord(ctx, recordData, &vaultData{IV: iv, Ciphertext: ciphertext, SavedAt: time.Now().UTC()}); err != nil {
		s.restoreData(ctx, current)
		return err
	}

	// Read back what actually landed and compare record counts.
	verified, _, verifyErr := s.openData(ctx, recordData, key)
	if verifyErr == nil {
		if verified.CountKeys() != keyring.CountKeys() || verified.CountGroups() != keyring.CountGroups() {
			verifyErr = fmt.Errorf("read-back mismatch: got %d keys and %d groups, want %d and %d",
				verified.CountKeys(), verified.CountGroups(), keyring.CountKeys(), keyring.CountGroups())
		}
	}
	if verifyErr != nil {
		s.observer.Checkpoint(CheckpointSaveRollback, map[string]any{"error": verifyErr.Error()})
		s.restoreData(ctx, current)
		return &CorruptedDataError{RecoveredFromBackup: true, Err: verifyErr}
	}

	s.observer.Checkpoint(CheckpointSaveSuccess, nil)
	return nil
}

// restoreData puts the previous raw data record back, or removes the
// slot when there was none.
func (s *VaultStore) restoreData(ctx context.Context, previous []byte) {
	if previous == nil {
		s.kv.Remove(ctx, recordData)
		return
	}
	s.kv.Set(ctx, recordData, previous)
}

// ChangePassword re-encrypts the vault under a new password with a
// fresh salt. The old password must verify first, and the active data
// record must be readable; recover a damaged vault with Unlock before
// changing its password. On any failure the previous records are
// restored and the old password keeps working.
func (s *VaultStore) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta vaultMeta
	ok, err := s.getRecord(ctx, recordMeta, &meta)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return err
		}
		return &CorruptedDataError{Err: err}
	}
	if !ok {
		return ErrNoVault
	}

	oldPw := []byte(oldPassword)
	iterations := meta.iterations()

	okPw, err := pqcrypto.VerifyPassword(oldPw, meta.Salt, meta.PasswordHash, iterations)
	if err != nil {
		return &CorruptedDataError{Err: err}
	}
	if !okPw {
		return ErrWrongPassword
	}

	oldKey, err := pqcrypto.DeriveVaultKey(oldPw, meta.Salt, iterations)
	if err != nil {
		return wrapKeyMaterialError(err)
	}
	keyring, _, err := s.openData(ctx, recordData, oldKey)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return err
		}
		return &CorruptedDataError{Err: err}
	}

	// Raw copies of everything the rewrite touches, for rollback.
	oldMetaRaw, err := s.kv.Get(ctx, recordMeta)
	if err != nil {
		return wrapStorageError("get", recordMeta, err)
	}
	oldDataRaw, err := s.kv.Get(ctx, recordData)
	if err != nil {
		return wrapStorageError("get", recordData, err)
	}
	oldBackupRaw, _ := s.kv.Get(ctx, recordBackup)

	salt, err := pqcrypto.NewSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	newPw := []byte(newPassword)
	verifier, err := pqcrypto.VerificationHash(newPw, salt, s.iterations)
	if err != nil {
		return wrapKeyMaterialError(err)
	}
	newKey, err := pqcrypto.DeriveVaultKey(newPw, salt, s.iterations)
	if err != nil {
		return wrapKeyMaterialError(err)
	}
	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(keyring), newKey)
	if err != nil {
		return err
	}

	rollback := func() {
		s.kv.Set(ctx, recordMeta, oldMetaRaw)
		s.kv.Set(ctx, recordData, oldDataRaw)
		if oldBackupRaw != nil {
			s.kv.Set(ctx, recordBackup, oldBackupRaw)
		} else {
			s.kv.Remove(ctx, recordBackup)
		}
	}

	now := time.Now().UTC()
	record := &vaultData{IV: iv, Ciphertext: ciphertext, SavedAt: now}
	// Data first, then metadata: until the metadata flips, the old
	// backup slot still opens under the old password.
	if err := s.setRecord(ctx, recordData, record); err != nil {
		rollback()
		return err
	}
	newMeta := &vaultMeta{
		Version:       vaultcodec.VersionCurrent,
		Salt:          salt,
		PasswordHash:  verifier,
		KDFIterations: s.iterations,
		CreatedAt:     meta.CreatedAt,
	}
	if err := s.setRecord(ctx, recordMeta, newMeta); err != nil {
		rollback()
		return err
	}
	if err := s.setRecord(ctx, recordBackup, record); err != nil {
		rollback()
		return err
	}

	s.observer.Checkpoint(CheckpointPasswordChanged, nil)
	return nil
}

// Destroy removes every vault record, current and legacy. It does not
// require the password and is idempotent; the content is unrecoverable
// afterwards unless an export exists.
func (s *VaultStore) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{recordMeta, recordData, recordBackup, recordLegacy} {
		if err := s.removeRecord(ctx, key); err != nil {
			return err
		}
	}
	s.observer.Checkpoint(CheckpointDestroy, nil)
	return nil
}

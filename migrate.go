package qseal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
	"github.com/qseal/qseal-go/internal/vaultcodec"
)

// migrateLegacy unlocks a v1/v2 single-record vault and rewrites it in
// the current layout under the same password. Called with the store
// mutex held, after the current layout was found absent.
//
// Legacy records carry no separate password verifier, so a failed
// decryption of an intact record is reported as a wrong password. Both
// legacy versions derived their key with the default PBKDF2 cost.
func (s *VaultStore) migrateLegacy(ctx context.Context, password string) (*UnlockResult, error) {
	var legacy legacyVault
	ok, err := s.getRecord(ctx, recordLegacy, &legacy)
	if err != nil {
		if errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, &CorruptedDataError{Err: err}
	}
	if !ok {
		return nil, ErrNoVault
	}

	if legacy.Version < vaultcodec.VersionOldest || legacy.Version >= vaultcodec.VersionCurrent {
		return nil, &CorruptedDataError{Err: fmt.Errorf("unsupported legacy vault version %d", legacy.Version)}
	}

	pw := []byte(password)
	key, err := pqcrypto.DeriveVaultKey(pw, legacy.Salt, pqcrypto.DefaultKDFIterations)
	if err != nil {
		return nil, &CorruptedDataError{Err: err}
	}

	opened, err := vaultcodec.Open(legacy.IV, legacy.Ciphertext, key, legacy.Version)
	if err != nil {
		if errors.Is(err, pqcrypto.ErrDecryptionFailed) {
			return nil, ErrWrongPassword
		}
		return nil, &CorruptedDataError{Err: err}
	}
	s.observer.Checkpoint(CheckpointPasswordVerified, nil)

	keyring, err := keyringFromPayload(opened.Payload)
	if err != nil {
		return nil, &CorruptedDataError{Err: err}
	}

	// Version 2 content survives intact, so its salt and key are
	// reused. Version 1 drops every key record, and the rewrite takes a
	// fresh salt with the store's configured cost.
	salt := legacy.Salt
	iterations := pqcrypto.DefaultKDFIterations
	vaultKey := key
	if legacy.Version == 1 {
		salt, err = pqcrypto.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		iterations = s.iterations
		vaultKey, err = pqcrypto.DeriveVaultKey(pw, salt, iterations)
		if err != nil {
			return nil, wrapKeyMaterialError(err)
		}
	}

	verifier, err := pqcrypto.VerificationHash(pw, salt, iterations)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}
	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(keyring), vaultKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := &vaultMeta{
		Version:       vaultcodec.VersionCurrent,
		Salt:          salt,
		PasswordHash:  verifier,
		KDFIterations: iterations,
		CreatedAt:     now,
	}
	if err := s.setRecord(ctx, recordMeta, meta); err != nil {
		return nil, err
	}
	if err := s.setRecord(ctx, recordData, &vaultData{IV: iv, Ciphertext: ciphertext, SavedAt: now}); err != nil {
		// Leave the legacy record untouched; clear the half-written
		// layout so the next unlock retries the migration.
		s.removeRecord(ctx, recordMeta)
		s.removeRecord(ctx, recordData)
		return nil, err
	}
	// The legacy record is only dropped once the new layout is fully in
	// place. Removal failure is not fatal: the metadata record now
	// shadows it.
	if err := s.removeRecord(ctx, recordLegacy); err != nil {
		s.observer.Checkpoint(CheckpointMigrate, map[string]any{"legacy_remove_error": err.Error()})
	}

	s.observer.Checkpoint(CheckpointMigrate, map[string]any{
		"from":           legacy.Version,
		"discarded_keys": opened.DiscardedKeys,
	})
	s.observer.Checkpoint(CheckpointUnlockSuccess, map[string]any{
		"keys":   keyring.CountKeys(),
		"groups": keyring.CountGroups(),
	})

	return &UnlockResult{
		Keyring:             keyring,
		MigratedFromVersion: legacy.Version,
		DiscardedLegacyKeys: opened.DiscardedKeys,
	}, nil
}

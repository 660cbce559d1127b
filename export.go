package qseal

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
	"github.com/qseal/qseal-go/internal/vaultcodec"
)

// Version is the library version embedded in export files.
const Version = "1.0.0"

// ExportVersion is the current export file format version.
const ExportVersion = 1

const exportApp = "qseal"

// Export password policy: long enough to carry the vault's security on
// its own, and alphanumeric so it survives being written on paper.
const (
	exportPasswordMinLen = 20
	exportPasswordGenLen = 24
)

const exportPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ExportedVault is the encrypted backup file content. The envelope is
// plaintext JSON; the keyring travels inside Ciphertext, sealed under a
// key derived from the export password with the recorded salt and cost.
type ExportedVault struct {
	App        string    `json:"app"`
	Version    int       `json:"version"`
	AppVersion string    `json:"appVersion"`
	Algs       string    `json:"algs"`
	ExportedAt time.Time `json:"exportedAt"`
	Encrypted  bool      `json:"encrypted"`
	Salt       []byte    `json:"salt"`
	IV         []byte    `json:"iv"`
	Ciphertext []byte    `json:"ciphertext"`
	// KDFIterations is the PBKDF2 cost the export was sealed with.
	// Zero means the default cost.
	KDFIterations int `json:"kdfIterations,omitempty"`
}

// Validate checks the envelope structure before any decryption is
// attempted.
func (e *ExportedVault) Validate() error {
	if e.App != exportApp {
		return fmt.Errorf("%w: not a %s export", ErrMalformedExport, exportApp)
	}
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported export version %d, expected %d", ErrMalformedExport, e.Version, ExportVersion)
	}
	if !e.Encrypted {
		return fmt.Errorf("%w: unencrypted exports are not supported", ErrMalformedExport)
	}
	if len(e.Salt) != pqcrypto.SaltSize {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrMalformedExport, pqcrypto.SaltSize, len(e.Salt))
	}
	if len(e.IV) != pqcrypto.AESIVSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedExport, pqcrypto.AESIVSize, len(e.IV))
	}
	if len(e.Ciphertext) < pqcrypto.AESTagSize {
		return fmt.Errorf("%w: ciphertext shorter than auth tag", ErrMalformedExport)
	}
	if e.ExportedAt.IsZero() {
		return fmt.Errorf("%w: missing export timestamp", ErrMalformedExport)
	}
	return nil
}

func (e *ExportedVault) iterations() int {
	if e.KDFIterations > 0 {
		return e.KDFIterations
	}
	return pqcrypto.DefaultKDFIterations
}

// ValidateExportPassword enforces the export password policy: at least
// 20 characters, ASCII letters and digits only.
func ValidateExportPassword(password string) error {
	if len(password) < exportPasswordMinLen {
		return fmt.Errorf("%w: need at least %d characters", ErrExportPasswordPolicy, exportPasswordMinLen)
	}
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return fmt.Errorf("%w: letters and digits only", ErrExportPasswordPolicy)
		}
	}
	return nil
}

// GenerateExportPassword returns a fresh 24-character random
// alphanumeric password satisfying the export policy.
func GenerateExportPassword() (string, error) {
	alphabetLen := big.NewInt(int64(len(exportPasswordAlphabet)))
	out := make([]byte, exportPasswordGenLen)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate export password: %w", err)
		}
		out[i] = exportPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// Export unlocks the vault with the master password, re-encrypts its
// content under a dedicated export password and returns the backup file
// bytes. The export password must satisfy ValidateExportPassword; a
// fresh salt makes every export file unique, and the file reveals
// nothing about the master password.
func (s *VaultStore) Export(ctx context.Context, password, exportPassword string) ([]byte, error) {
	if err := ValidateExportPassword(exportPassword); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.unlockLocked(ctx, password, unlockConfig{})
	if err != nil {
		return nil, err
	}

	salt, err := pqcrypto.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key, err := pqcrypto.DeriveVaultKey([]byte(exportPassword), salt, s.iterations)
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}
	iv, ciphertext, err := vaultcodec.Seal(keyringToPayload(result.Keyring), key)
	if err != nil {
		return nil, err
	}

	export := &ExportedVault{
		App:           exportApp,
		Version:       ExportVersion,
		AppVersion:    Version,
		Algs:          pqcrypto.AlgsCiphersuite,
		ExportedAt:    time.Now().UTC(),
		Encrypted:     true,
		Salt:          salt,
		IV:            iv,
		Ciphertext:    ciphertext,
		KDFIterations: s.iterations,
	}
	return json.MarshalIndent(export, "", "  ")
}

// ImportKeyring decrypts an export file and returns the keyring it
// contains, without touching any vault records. A wrong export password
// and a tampered file are indistinguishable to the cipher; both come
// back as ErrWrongPassword.
func ImportKeyring(data []byte, exportPassword string) (*Keyring, error) {
	var export ExportedVault
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	if err := export.Validate(); err != nil {
		return nil, err
	}

	key, err := pqcrypto.DeriveVaultKey([]byte(exportPassword), export.Salt, export.iterations())
	if err != nil {
		return nil, wrapKeyMaterialError(err)
	}
	opened, err := vaultcodec.Open(export.IV, export.Ciphertext, key, vaultcodec.VersionCurrent)
	if err != nil {
		if errors.Is(err, pqcrypto.ErrDecryptionFailed) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	keyring, err := keyringFromPayload(opened.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	return keyring, nil
}

// ImportReplace replaces the vault content with the keyring from an
// export file. The master password must verify before anything is
// written; the previous content moves into the backup slot like any
// other save.
func (s *VaultStore) ImportReplace(ctx context.Context, password, exportPassword string, data []byte) (*Keyring, error) {
	keyring, err := ImportKeyring(data, exportPassword)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, keyring, password); err != nil {
		return nil, err
	}
	return keyring, nil
}

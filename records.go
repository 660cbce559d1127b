package qseal

import (
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// Record keys in the backing store. The current layout splits the vault
// across three records so the encrypted payload can be rewritten without
// touching the metadata, plus one backup slot for crash recovery.
const (
	recordMeta   = "vault_meta"
	recordData   = "vault_data"
	recordBackup = "vault_backup"
	// recordLegacy is the single-record layout written by schema
	// versions 1 and 2.
	recordLegacy = "vault"
)

// vaultMeta is the plaintext metadata record of a current-layout vault.
// Everything here is safe to read without the password.
type vaultMeta struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	// PasswordHash is the password verifier, derived with a different
	// domain and hash than the encryption key so it reveals nothing
	// about that key.
	PasswordHash []byte `json:"passwordHash"`
	// KDFIterations is the PBKDF2 cost this vault was sealed with.
	// Zero means the default cost of the era before it was recorded.
	KDFIterations int       `json:"kdfIterations,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// iterations returns the PBKDF2 cost to use for this vault.
func (m *vaultMeta) iterations() int {
	if m.KDFIterations > 0 {
		return m.KDFIterations
	}
	return pqcrypto.DefaultKDFIterations
}

// vaultData is an encrypted payload record. The same shape backs the
// active data record and the backup slot.
type vaultData struct {
	IV         []byte    `json:"iv"`
	Ciphertext []byte    `json:"ciphertext"`
	SavedAt    time.Time `json:"savedAt"`
}

// legacyVault is the single-record layout of schema versions 1 and 2:
// salt, IV and ciphertext in one blob, no password verifier and no
// backup slot.
type legacyVault struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

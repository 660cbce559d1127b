package qseal

import (
	"time"

	"github.com/qseal/qseal-go/internal/pqcrypto"
)

// DefaultIdleTimeout is how long a session may sit idle before locking
// itself when no explicit timeout is configured.
const DefaultIdleTimeout = 5 * time.Minute

// DefaultKDFIterations is the PBKDF2 iteration count used for new vaults
// and exports unless overridden with WithKDFIterations.
const DefaultKDFIterations = pqcrypto.DefaultKDFIterations

// storeConfig holds configuration for a VaultStore.
type storeConfig struct {
	observer   Observer
	iterations int
}

// StoreOption configures a VaultStore.
type StoreOption func(*storeConfig)

// WithObserver sets the observer receiving store and session
// checkpoints. The default discards them.
func WithObserver(o Observer) StoreOption {
	return func(c *storeConfig) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithKDFIterations overrides the PBKDF2 iteration count used when
// creating vaults and exports. Unlocking always honors the count
// recorded in the vault metadata, so existing vaults are unaffected.
// Counts below the default weaken the vault; lower them only in tests.
func WithKDFIterations(n int) StoreOption {
	return func(c *storeConfig) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// sessionConfig holds configuration for a Session.
type sessionConfig struct {
	idleTimeout time.Duration
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithIdleTimeout sets how long a session may sit idle before locking
// itself. Zero or negative disables auto-lock.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.idleTimeout = d
	}
}

// unlockConfig holds per-unlock configuration.
type unlockConfig struct {
	resetOnCorruption bool
}

// UnlockOption configures a single unlock operation.
type UnlockOption func(*unlockConfig)

// WithEmptyVaultReset lets unlock recover from a vault whose data and
// backup records are both unreadable by resetting the content to an
// empty keyring under the verified password. Off by default; when the
// reset happens the unlock result reports it.
func WithEmptyVaultReset() UnlockOption {
	return func(c *unlockConfig) {
		c.resetOnCorruption = true
	}
}

package qseal

import "github.com/rs/zerolog"

// Checkpoint identifies a step in a vault store or session lifecycle.
type Checkpoint string

// Checkpoints emitted by the vault store and session.
const (
	CheckpointCreate           Checkpoint = "vault.create"
	CheckpointUnlockAttempt    Checkpoint = "unlock.attempt"
	CheckpointPasswordVerified Checkpoint = "unlock.password_verified"
	CheckpointUnlockSuccess    Checkpoint = "unlock.success"
	CheckpointBackupRestore    Checkpoint = "unlock.backup_restore"
	CheckpointVaultReset       Checkpoint = "unlock.vault_reset"
	CheckpointMigrate          Checkpoint = "unlock.migrate"
	CheckpointSaveAttempt      Checkpoint = "save.attempt"
	CheckpointSaveRollback     Checkpoint = "save.rollback"
	CheckpointSaveSuccess      Checkpoint = "save.success"
	CheckpointPasswordChanged  Checkpoint = "vault.password_changed"
	CheckpointDestroy          Checkpoint = "vault.destroy"
	CheckpointSessionUnlock    Checkpoint = "session.unlock"
	CheckpointSessionLock      Checkpoint = "session.lock"
)

// Observer receives checkpoint notifications from the vault store and
// session. Implementations must be safe for concurrent use and must not
// block; fields never contain passwords or key material.
type Observer interface {
	Checkpoint(cp Checkpoint, fields map[string]any)
}

// NopObserver discards all checkpoints. It is the default.
type NopObserver struct{}

// Checkpoint implements Observer.
func (NopObserver) Checkpoint(Checkpoint, map[string]any) {}

// ZerologObserver forwards checkpoints to a zerolog logger at debug
// level.
type ZerologObserver struct {
	Logger zerolog.Logger
}

// Checkpoint implements Observer.
func (o ZerologObserver) Checkpoint(cp Checkpoint, fields map[string]any) {
	o.Logger.Debug().Fields(fields).Str("checkpoint", string(cp)).Msg("vault checkpoint")
}

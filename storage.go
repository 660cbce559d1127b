package qseal

import "github.com/qseal/qseal-go/internal/storage"

// Store is the record store a vault persists into: a flat namespace of
// byte values under string keys. Implementations must be safe for
// concurrent use and must return ErrRecordNotFound for missing keys.
// The vault encrypts everything sensitive before it reaches the store,
// so a Store needs no confidentiality of its own.
type Store = storage.Store

// ErrRecordNotFound is returned by a Store when no record exists under
// the requested key.
var ErrRecordNotFound = storage.ErrNotFound

// MemoryStore keeps records in process memory. Good for tests and
// ephemeral vaults.
type MemoryStore = storage.MemoryStore

// NewMemoryStore returns an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return storage.NewMemoryStore()
}

// FileStore keeps each record in its own file under a directory,
// written atomically via a temp file and rename.
type FileStore = storage.FileStore

// NewFileStore returns a file-backed record store rooted at dir,
// creating the directory when needed.
func NewFileStore(dir string) (*FileStore, error) {
	return storage.NewFileStore(dir)
}

// SQLiteStore keeps records in a single-table SQLite database. Close it
// when done.
type SQLiteStore = storage.SQLiteStore

// OpenSQLiteStore opens or creates the SQLite database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	return storage.OpenSQLiteStore(path)
}

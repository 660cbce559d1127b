package qseal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

// Session holds a vault open: the decrypted keyring plus the master
// password cached for re-sealing, so callers unlock once and then work
// without re-entering the password. Nothing in the package is global;
// every session is an explicit object over an explicit store.
//
// The cached password lives in a memguard enclave, encrypted in memory
// and opened only for the duration of a store call. Lock wipes the
// enclave reference and the keyring's secret material; an idle monitor
// does the same automatically after the configured timeout. A locked
// session stays usable: Unlock it again to continue.
type Session struct {
	store *VaultStore

	mu       sync.Mutex
	keyring  *Keyring
	password *memguard.Enclave
	lastUsed time.Time
	closed   bool

	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once

	subs *lockSubscriptions
}

// NewSession creates a session over store. The idle monitor starts
// immediately when auto-lock is enabled; Close stops it.
func NewSession(store *VaultStore, opts ...SessionOption) *Session {
	cfg := sessionConfig{idleTimeout: DefaultIdleTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		store:       store,
		idleTimeout: cfg.idleTimeout,
		stop:        make(chan struct{}),
		subs:        newLockSubscriptions(),
	}
	if s.idleTimeout > 0 {
		go s.idleLoop()
	}
	return s
}

// idleLoop locks the session once it has been idle for the full
// timeout. The check interval scales with the timeout so short test
// timeouts still trip promptly.
func (s *Session) idleLoop() {
	interval := s.idleTimeout / 4
	if interval > 30*time.Second {
		interval = 30 * time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			expired := s.keyring != nil && time.Since(s.lastUsed) >= s.idleTimeout
			s.mu.Unlock()
			if expired {
				s.Lock()
			}
		}
	}
}

// Create initializes a fresh vault through the underlying store and
// leaves the session unlocked on it.
func (s *Session) Create(ctx context.Context, password string) (*Keyring, error) {
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	keyring, err := s.store.Create(ctx, password)
	if err != nil {
		return nil, err
	}
	s.adopt(keyring, password)
	return keyring, nil
}

// Unlock opens the vault and caches the keyring and password for
// subsequent calls.
func (s *Session) Unlock(ctx context.Context, password string, opts ...UnlockOption) (*UnlockResult, error) {
	if err := s.errClosed(); err != nil {
		return nil, err
	}

	result, err := s.store.Unlock(ctx, password, opts...)
	if err != nil {
		return nil, err
	}
	s.adopt(result.Keyring, password)
	return result, nil
}

// adopt installs an unlocked keyring and seals the password away.
func (s *Session) adopt(keyring *Keyring, password string) {
	s.mu.Lock()
	s.keyring = keyring
	s.password = memguard.NewEnclave([]byte(password))
	s.lastUsed = time.Now()
	s.mu.Unlock()

	s.store.observer.Checkpoint(CheckpointSessionUnlock, nil)
	s.subs.notify(eventUnlock)
}

// Keyring returns the unlocked keyring and refreshes the idle clock.
func (s *Session) Keyring() (*Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.keyring == nil {
		return nil, ErrSessionLocked
	}
	s.lastUsed = time.Now()
	return s.keyring, nil
}

// Touch refreshes the idle clock without touching key material.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.keyring != nil {
		s.lastUsed = time.Now()
	}
}

// Save persists the session's keyring, opening the password enclave
// just long enough for the store to verify and re-seal. The session
// mutex is held for the duration so an idle lock cannot wipe the
// keyring mid-save.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.keyring == nil || s.password == nil {
		return ErrSessionLocked
	}

	view, err := s.password.Open()
	if err != nil {
		return fmt.Errorf("open password enclave: %w", err)
	}
	defer view.Destroy()

	s.lastUsed = time.Now()
	return s.store.Save(ctx, s.keyring, string(view.Bytes()))
}

// Export writes an encrypted backup of the session's vault, using the
// cached master password and the given export password.
func (s *Session) Export(ctx context.Context, exportPassword string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.password == nil {
		return nil, ErrSessionLocked
	}

	view, err := s.password.Open()
	if err != nil {
		return nil, fmt.Errorf("open password enclave: %w", err)
	}
	defer view.Destroy()

	s.lastUsed = time.Now()
	return s.store.Export(ctx, string(view.Bytes()), exportPassword)
}

// Locked reports whether the session currently holds no key material.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyring == nil
}

// Lock wipes the cached password and the keyring's secret material.
// Any Keyring previously returned from the session must be discarded;
// unlock again to continue working.
func (s *Session) Lock() {
	s.mu.Lock()
	wasUnlocked := s.lockLocked()
	s.mu.Unlock()

	if wasUnlocked {
		s.store.observer.Checkpoint(CheckpointSessionLock, nil)
		s.subs.notify(eventLock)
	}
}

// lockLocked wipes key material with the mutex held, reporting whether
// the session was unlocked.
func (s *Session) lockLocked() bool {
	if s.keyring == nil {
		s.password = nil
		return false
	}
	s.keyring.Wipe()
	s.keyring = nil
	s.password = nil
	return true
}

// OnLock registers fn to run after the session locks, explicitly or by
// idle timeout. The returned func unsubscribes; calling it twice is
// harmless.
func (s *Session) OnLock(fn func()) func() {
	return s.subs.subscribe(eventLock, fn)
}

// OnUnlock registers fn to run after each successful Create or Unlock.
// The returned func unsubscribes.
func (s *Session) OnUnlock(fn func()) func() {
	return s.subs.subscribe(eventUnlock, fn)
}

// Close locks the session, stops the idle monitor and drops all
// subscriptions. A closed session rejects every operation; safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasUnlocked := s.lockLocked()
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	if wasUnlocked {
		s.store.observer.Checkpoint(CheckpointSessionLock, nil)
		s.subs.notify(eventLock)
	}
	s.subs.clear()
	return nil
}

func (s *Session) errClosed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

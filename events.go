package qseal

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// lockEvent distinguishes the two session transitions callbacks can
// watch.
type lockEvent int

const (
	eventLock lockEvent = iota
	eventUnlock
)

// lockSubscription is one registered callback. The active flag lets an
// unsubscribe race a concurrent notify without the callback firing
// afterwards.
type lockSubscription struct {
	id     string
	event  lockEvent
	fn     func()
	active atomic.Bool
}

// lockSubscriptions tracks the lock/unlock callbacks of one session.
type lockSubscriptions struct {
	mu   sync.RWMutex
	subs map[string]*lockSubscription
}

func newLockSubscriptions() *lockSubscriptions {
	return &lockSubscriptions{subs: make(map[string]*lockSubscription)}
}

// subscribe registers fn for event and returns its unsubscribe func.
// Unsubscribing twice is harmless.
func (m *lockSubscriptions) subscribe(event lockEvent, fn func()) func() {
	sub := &lockSubscription{
		id:    uuid.NewString(),
		event: event,
		fn:    fn,
	}
	sub.active.Store(true)

	m.mu.Lock()
	m.subs[sub.id] = sub
	m.mu.Unlock()

	return func() {
		sub.active.Store(false)
		m.mu.Lock()
		delete(m.subs, sub.id)
		m.mu.Unlock()
	}
}

// notify invokes every active callback registered for event,
// synchronously and in unspecified order.
func (m *lockSubscriptions) notify(event lockEvent) {
	m.mu.RLock()
	targets := make([]*lockSubscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.event == event {
			targets = append(targets, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range targets {
		if sub.active.Load() {
			sub.fn()
		}
	}
}

// clear drops every subscription.
func (m *lockSubscriptions) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subs {
		sub.active.Store(false)
		delete(m.subs, id)
	}
}

package locks

import (
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the bounded
// wait. Callers should surface this as a retryable "account busy" condition.
var ErrTimeout = errors.New("lock acquisition timed out")

// WalletKey names the lock serializing all mutations of one user's wallet.
func WalletKey(userID string) string { return "wallet:" + userID }

// HoldingKey names the lock serializing mutations of one (user, symbol)
// position. Always acquired after the user's wallet lock.
func HoldingKey(userID, symbol string) string { return "holding:" + userID + ":" + symbol }

type entry struct {
	ch   chan struct{} // holds one token while locked
	refs int
}

// Manager provides exclusive named locks with a bounded wait. The trading
// engine keys them by wallet and by (user, symbol) holding so that all
// mutations of one account serialize, wallet lock first, holding lock second.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Acquire blocks until the named lock is held or the timeout elapses. On
// success it returns a release function which must be called exactly once.
func (m *Manager) Acquire(key string, timeout time.Duration) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			m.put(key, e)
		}, nil
	case <-timer.C:
		m.put(key, e)
		return nil, ErrTimeout
	}
}

func (m *Manager) put(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

package locks

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	m := NewManager()

	release, err := m.Acquire("wallet:alice", time.Second)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	release()

	// Lock is free again.
	release, err = m.Acquire("wallet:alice", time.Second)
	if err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}
	release()
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	m := NewManager()

	release, err := m.Acquire("wallet:alice", time.Second)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	_, err = m.Acquire("wallet:alice", 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}

	release()

	release, err = m.Acquire("wallet:alice", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	release()
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	m := NewManager()

	releaseWallet, err := m.Acquire(WalletKey("alice"), time.Second)
	if err != nil {
		t.Fatalf("Acquire wallet failed: %v", err)
	}
	defer releaseWallet()

	releaseHolding, err := m.Acquire(HoldingKey("alice", "AAPL"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("holding lock blocked by wallet lock: %v", err)
	}
	releaseHolding()

	releaseOther, err := m.Acquire(WalletKey("bob"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("bob's wallet blocked by alice's: %v", err)
	}
	releaseOther()
}

func TestMutualExclusion(t *testing.T) {
	m := NewManager()

	const goroutines = 20
	const iterations = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				release, err := m.Acquire("counter", 5*time.Second)
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				counter++
				release()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Errorf("counter = %d, want %d", counter, goroutines*iterations)
	}
}

func TestEntriesAreReclaimed(t *testing.T) {
	m := NewManager()

	release, err := m.Acquire("wallet:alice", time.Second)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	release()

	m.mu.Lock()
	remaining := len(m.entries)
	m.mu.Unlock()
	if remaining != 0 {
		t.Errorf("entries not reclaimed after release: %d remaining", remaining)
	}
}

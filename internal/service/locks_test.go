package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSessionLocksSerializeSameID(t *testing.T) {
	locks := newSessionLocks()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100 (lost update under lock)", counter)
	}
}

func TestSessionLocksIndependentIDs(t *testing.T) {
	locks := newSessionLocks()
	a, b := uuid.New(), uuid.New()

	unlockA := locks.Lock(a)
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(b)
		unlockB()
		close(done)
	}()

	// Holding a must not block b.
	<-done
	unlockA()
}

func TestSessionLocksEntriesAreReclaimed(t *testing.T) {
	locks := newSessionLocks()
	id := uuid.New()

	unlock := locks.Lock(id)
	unlock()

	locks.mu.Lock()
	n := len(locks.entries)
	locks.mu.Unlock()
	if n != 0 {
		t.Errorf("entries = %d after release, want 0", n)
	}
}

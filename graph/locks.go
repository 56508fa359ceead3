package graph

import (
	"context"
	"sync"
)

// lockEntry is a one-slot semaphore plus the number of callers holding or
// waiting for it.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// threadLocks serializes runs per thread identifier. Entries are reference
// counted and dropped when no caller holds or waits for them, so the map
// only grows with the number of threads that are active right now.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the thread's lock is held or ctx is done. The
// returned function releases the lock and must be called exactly once.
func (t *threadLocks) acquire(ctx context.Context, threadID string) (func(), error) {
	t.mu.Lock()
	entry, ok := t.locks[threadID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		t.locks[threadID] = entry
	}
	entry.refs++
	t.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			t.release(threadID, entry)
		}, nil
	case <-ctx.Done():
		t.release(threadID, entry)
		return nil, ctx.Err()
	}
}

func (t *threadLocks) release(threadID string, entry *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(t.locks, threadID)
	}
}

// active returns the number of threads with a holder or waiter.
func (t *threadLocks) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

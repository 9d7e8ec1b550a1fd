package ledger

import (
	"context"
	"sync"
)

// accountLocks serializes balance updates per account. Each lock is a
// one-slot channel so that waiting for it honours context cancellation.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]chan struct{})}
}

func (l *accountLocks) slot(accountID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[accountID] = ch
	}
	return ch
}

// lock blocks until accountID is free or ctx is done. The returned function
// releases the lock.
func (l *accountLocks) lock(ctx context.Context, accountID string) (func(), error) {
	ch := l.slot(accountID)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

package checkout

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

// MemoryLock is a process-local Lock.
type MemoryLock struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{active: map[string]struct{}{}}
}

func (l *MemoryLock) Acquire(ctx context.Context, shopperID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "checkout cancelled")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[shopperID]; busy {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "a checkout is already in progress")
	}
	l.active[shopperID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, shopperID)
			l.mu.Unlock()
		})
	}, nil
}

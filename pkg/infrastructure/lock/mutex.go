// Package lock provides Locker implementations serializing document writers.
package lock

import (
	"context"
	"sync"

	"github.com/vsinha/labledger/pkg/domain/repositories"
)

// MutexLocker serializes writers within one process, one channel-backed mutex per key
type MutexLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{slots: make(map[string]chan struct{})}
}

var _ repositories.Locker = (*MutexLocker)(nil)

func (l *MutexLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

// Lock blocks until key is free or ctx is done
func (l *MutexLocker) Lock(ctx context.Context, key string) (repositories.Unlock, error) {
	s := l.slot(key)
	select {
	case s <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-s })
		return nil
	}, nil
}

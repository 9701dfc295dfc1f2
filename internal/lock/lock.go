// Package lock serializes work per key, typically one hero. The store's row
// locks stay authoritative; these locks keep competing requests from piling
// up on the same database row.
package lock

import (
	"context"
	"sync"
)

// Locker acquires a lock on key and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyed struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once nobody holds
// or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyed
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*keyed{}}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	k, ok := m.locks[key]
	if !ok {
		k = &keyed{ch: make(chan struct{}, 1)}
		m.locks[key] = k
	}
	k.refs++
	m.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, k)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.ch
			m.release(key, k)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, k *keyed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(m.locks, key)
	}
}

// Len is the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

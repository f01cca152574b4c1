// Package keylock serializes work per string key.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// Locker hands out one exclusive lock per key. Entries are dropped once no
// goroutine holds or waits for them.
type Locker struct {
	mu   sync.Mutex
	keys map[string]*entry
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{keys: make(map[string]*entry)}
}

// Lock acquires the lock for key, or returns ctx.Err() if ctx ends first.
// The returned func releases the lock.
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

// TryLock acquires the lock for key only if it is free.
func (l *Locker) TryLock(key string) (unlock func(), ok bool) {
	l.mu.Lock()
	e, exists := l.keys[key]
	if !exists {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	select {
	case e.sem <- struct{}{}:
		e.refs++
		l.mu.Unlock()
	default:
		if !exists {
			delete(l.keys, key)
		}
		l.mu.Unlock()
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, true
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

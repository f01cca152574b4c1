package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"
)

func TestLock_SerializesSameKey(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := New()
		var active, peak atomic.Int32
		var wg sync.WaitGroup

		for range 5 {
			wg.Go(func() {
				unlock, err := l.Lock(context.Background(), "k")
				if err != nil {
					t.Errorf("Lock() = %v", err)
					return
				}
				defer unlock()
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
			})
		}
		wg.Wait()

		if peak.Load() != 1 {
			t.Errorf("peak concurrency = %d, want 1", peak.Load())
		}
		if l.size() != 0 {
			t.Error("key should be dropped after all holders released")
		}
	})
}

func TestLock_DifferentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock(a) = %v", err)
	}
	defer unlockA()

	unlockB, ok := l.TryLock("b")
	if !ok {
		t.Fatal("TryLock(b) should succeed while a is held")
	}
	unlockB()
}

func TestLock_ContextCancelled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		l := New()
		unlock, _ := l.Lock(context.Background(), "k")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := l.Lock(ctx, "k")

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Lock() = %v, want DeadlineExceeded", err)
		}
		unlock()
		if l.size() != 0 {
			t.Error("key should be dropped once the waiter gave up and holder released")
		}
	})
}

func TestTryLock_Busy(t *testing.T) {
	l := New()
	unlock, _ := l.TryLock("k")

	if _, ok := l.TryLock("k"); ok {
		t.Error("TryLock should fail while held")
	}

	unlock()
	unlock() // idempotent
	if _, ok := l.TryLock("k"); !ok {
		t.Error("TryLock should succeed after release")
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

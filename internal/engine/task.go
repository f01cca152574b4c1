package engine

import (
	"context"
	"sync"
)

// Progress is a snapshot of one cache operation.
type Progress struct {
	Key         string
	BytesCached int64
	BytesTotal  int64 // -1 if unknown
}

// Task is a cancellable background cache operation. Progress is a
// latest-value stream: a slow reader only ever sees the newest snapshot.
// The progress channel is closed when the task finishes.
type Task struct {
	progress chan Progress
	done     chan struct{}
	cancel   context.CancelFunc

	mu   sync.Mutex
	last Progress
	err  error
}

// Reporter publishes progress from inside a task.
type Reporter func(Progress)

// Go runs fn in its own goroutine under a child of ctx.
func Go(ctx context.Context, fn func(ctx context.Context, report Reporter) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		progress: make(chan Progress, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go func() {
		err := fn(ctx, t.report)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		cancel()
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.progress)
		close(t.done)
	}()
	return t
}

// Failed returns an already finished task carrying err.
func Failed(err error) *Task {
	t := &Task{
		progress: make(chan Progress),
		done:     make(chan struct{}),
		cancel:   func() {},
		err:      err,
	}
	close(t.progress)
	close(t.done)
	return t
}

// report replaces any unread snapshot. Only the task goroutine writes, so the
// drain-then-send never blocks.
func (t *Task) report(p Progress) {
	t.mu.Lock()
	t.last = p
	t.mu.Unlock()
	select {
	case <-t.progress:
	default:
	}
	t.progress <- p
}

// Progress returns the latest-value progress stream.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel stops the task. No progress is reported after it returns from Wait.
func (t *Task) Cancel() { t.cancel() }

// Last returns the most recent progress snapshot.
func (t *Task) Last() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Err returns the task error once it is done, nil before.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

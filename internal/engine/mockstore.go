package engine

import (
	"context"
	"sync"
)

// Store operation names recorded by MockStore.
const (
	OpPrefetch   = "prefetch"
	OpFull       = "full"
	OpSegmented  = "segmented"
	OpRemove     = "remove"
	mockFullSize = 1 << 20
)

// StoreCall is one recorded MockStore operation.
type StoreCall struct {
	Op      string
	Request Request
}

// MockStore is a test double for Store.
type MockStore struct {
	mu        sync.Mutex
	calls     []StoreCall
	entries   map[string]Entry
	errs      map[string]error
	gates     map[string]chan struct{}
	active    map[string]int
	maxActive map[string]int
}

// NewMockStore creates an empty mock cache store.
func NewMockStore() *MockStore {
	return &MockStore{
		entries:   make(map[string]Entry),
		errs:      make(map[string]error),
		gates:     make(map[string]chan struct{}),
		active:    make(map[string]int),
		maxActive: make(map[string]int),
	}
}

func (s *MockStore) PrefetchByteRange(ctx context.Context, req Request) *Task {
	return s.run(ctx, OpPrefetch, req, req.Length, false)
}

func (s *MockStore) DownloadFull(ctx context.Context, req Request) *Task {
	return s.run(ctx, OpFull, req, mockFullSize, true)
}

func (s *MockStore) DownloadSegmented(ctx context.Context, req Request) *Task {
	return s.run(ctx, OpSegmented, req, mockFullSize, true)
}

func (s *MockStore) run(ctx context.Context, op string, req Request, size int64, complete bool) *Task {
	s.mu.Lock()
	s.calls = append(s.calls, StoreCall{Op: op, Request: req})
	s.active[req.Key]++
	s.maxActive[req.Key] = max(s.maxActive[req.Key], s.active[req.Key])
	gate := s.gates[req.Key]
	err := s.errs[req.Key]
	s.mu.Unlock()

	return Go(ctx, func(ctx context.Context, report Reporter) error {
		defer func() {
			s.mu.Lock()
			s.active[req.Key]--
			s.mu.Unlock()
		}()
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
		report(Progress{Key: req.Key, BytesCached: size, BytesTotal: size})
		s.mu.Lock()
		e := s.entries[req.Key]
		e.Key = req.Key
		e.Bytes = max(e.Bytes, size)
		e.Total = -1
		if complete {
			e.Total = size
			e.Complete = true
			e.Location = "mock://" + req.Key
		}
		s.entries[req.Key] = e
		s.mu.Unlock()
		return nil
	})
}

func (s *MockStore) RemoveByKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StoreCall{Op: OpRemove, Request: Request{Key: key}})
	delete(s.entries, key)
	return nil
}

func (s *MockStore) Lookup(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

// Test helpers

// SetError makes every operation on key fail with err.
func (s *MockStore) SetError(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[key] = err
}

// Gate makes operations on key block until the returned func is called.
func (s *MockStore) Gate(key string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[key] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Put seeds an entry.
func (s *MockStore) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = e
}

// Calls returns recorded operations, optionally filtered by op.
func (s *MockStore) Calls(op string) []StoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoreCall
	for _, c := range s.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// MaxConcurrent returns the highest number of simultaneous operations seen on key.
func (s *MockStore) MaxConcurrent(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive[key]
}

// Verify MockStore implements Store at compile time.
var _ Store = (*MockStore)(nil)

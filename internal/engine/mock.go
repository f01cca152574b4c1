package engine

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Interface.
type Mock struct {
	mu sync.Mutex

	position time.Duration
	duration time.Duration
	buffered time.Duration
	speed    float64
	volume   float64
	released bool

	prepareErr   error
	prepareGates map[string]chan struct{}

	prepareCalls []string
	playCalls    int
	pauseCalls   int
	stopCalls    []bool
	seekCalls    []time.Duration

	events chan Event
}

// NewMock creates a new mock engine for testing.
func NewMock() *Mock {
	return &Mock{
		speed:        1,
		volume:       1,
		prepareGates: make(map[string]chan struct{}),
		events:       make(chan Event, 16),
	}
}

func (m *Mock) Prepare(_ context.Context, uri string, _ Directives) error {
	m.mu.Lock()
	m.prepareCalls = append(m.prepareCalls, uri)
	m.released = false
	gate := m.prepareGates[uri]
	err := m.prepareErr
	m.mu.Unlock()

	// A gated prepare ignores cancellation, like an engine that finishes
	// loading even when nobody wants the result anymore.
	if gate != nil {
		<-gate
	}
	return err
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.playCalls++
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.pauseCalls++
	return nil
}

func (m *Mock) Stop(release bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls = append(m.stopCalls, release)
	if release {
		m.released = true
	}
	return nil
}

func (m *Mock) SeekTo(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
	return nil
}

func (m *Mock) SetSpeed(speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = speed
	return nil
}

func (m *Mock) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Buffered() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffered
}

func (m *Mock) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *Mock) Events() <-chan Event { return m.events }

// Test helpers

// Emit delivers an engine event to the consumer.
func (m *Mock) Emit(e Event) { m.events <- e }

// GatePrepare makes Prepare for uri block until the returned func is called.
func (m *Mock) GatePrepare(uri string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.prepareGates[uri] = gate
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *Mock) SetPrepareError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareErr = err
}

func (m *Mock) SetProgress(position, duration, buffered time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position, m.duration, m.buffered = position, duration, buffered
}

func (m *Mock) PrepareCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prepareCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) StopCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.stopCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

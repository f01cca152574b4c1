// Package engine defines the boundary to the platform media engine: the
// decode/render handle and the shared cache store it downloads into.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/riptide/internal/cachepolicy"
)

// ErrReleased is returned by engine calls made after Stop(true) and before
// the next Prepare.
var ErrReleased = errors.New("engine handle released")

// State is the raw state reported by the engine.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StateReady
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuffering:
		return "Buffering"
	case StateReady:
		return "Ready"
	case StateEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Event is a state transition reported by the engine. A non-nil Err is a
// playback failure (decode, render or fatal network error).
type Event struct {
	State         State
	PlayWhenReady bool
	Err           error
}

// Directives travel with every prepare and cache request.
type Directives struct {
	Mode                 cachepolicy.Mode
	MaxBytes             int64
	ReservedOfflineBytes int64
	EvictOldestFirst     bool
	CacheKey             string
}

// DirectivesFor builds the directives for one item under a cache policy.
func DirectivesFor(p cachepolicy.CachePolicy, key string) Directives {
	return Directives{
		Mode:                 p.Mode,
		MaxBytes:             p.DiskMaxBytes,
		ReservedOfflineBytes: p.ReservedOfflineBytes,
		EvictOldestFirst:     p.EvictOldestFirst,
		CacheKey:             key,
	}
}

// Interface is the exclusively owned playback handle. Implementations acquire
// their underlying resource lazily in Prepare and free it on Stop(true).
type Interface interface {
	Prepare(ctx context.Context, uri string, d Directives) error
	Play() error
	Pause() error
	Stop(release bool) error
	SeekTo(pos time.Duration) error
	SetSpeed(speed float64) error
	SetVolume(volume float64) error

	Position() time.Duration
	Duration() time.Duration
	Buffered() time.Duration
	Speed() float64

	// Events delivers state transitions. The channel lives as long as the
	// engine value, across releases.
	Events() <-chan Event
}

// Request addresses one cache operation.
type Request struct {
	URI        string
	Key        string
	Length     int64 // byte range length, prefetch only
	Directives Directives
}

// Entry is what the store knows about a cached key.
type Entry struct {
	Key      string
	Bytes    int64
	Total    int64 // -1 if unknown
	Complete bool
	Location string
}

// Store is the process-wide cache store shared by every queue item. Callers
// must not issue overlapping operations for the same key.
type Store interface {
	PrefetchByteRange(ctx context.Context, req Request) *Task
	DownloadFull(ctx context.Context, req Request) *Task
	DownloadSegmented(ctx context.Context, req Request) *Task
	// RemoveByKey succeeds when nothing is cached under key.
	RemoveByKey(ctx context.Context, key string) error
	Lookup(ctx context.Context, key string) (Entry, bool, error)
}

// Streamer exposes a partially cached entry as a URI the engine can load.
// The cached prefix is read locally and the rest is fetched from origin.
type Streamer interface {
	// StreamURL returns false when origin cannot be streamed this way.
	StreamURL(key, origin string) (string, bool)
}

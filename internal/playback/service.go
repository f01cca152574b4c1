package playback

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/media"
)

var (
	ErrClosed        = errors.New("playback service closed")
	ErrNoCurrentItem = errors.New("no current item")
	ErrSuperseded    = errors.New("prepare superseded by a newer request")
	ErrInvalidSpeed  = errors.New("speed must be positive")
)

// Service defines the playback service contract.
type Service interface {
	// Queue control. Navigation prepares and plays the new current item
	// asynchronously; results arrive through Subscribe.
	SetQueue(items []media.Item, startIndex int) error
	Next() bool
	Previous() bool
	JumpTo(index int) error
	Current() (media.Item, bool)
	QueueItems() []media.Item
	QueueIndex() int

	// Queue history
	Undo() bool
	Redo() bool

	// Playback control
	Prepare(ctx context.Context, item media.Item) error
	Play() error
	Pause() error
	Toggle() error
	Stop(release bool) error
	SeekTo(position time.Duration) error
	Seek(delta time.Duration) error
	SetSpeed(speed float64) error
	SetVolume(volume float64) error
	SetLoop(enabled bool)
	Loop() bool

	// State
	Snapshot() Event
	Subscribe() *Subscription

	// Cache
	Preload(ctx context.Context) []string
	DownloadOffline(ctx context.Context, item media.Item) (*engine.Task, error)
	RemoveOffline(ctx context.Context, identifier string) error
	CacheInfo(ctx context.Context, item media.Item) (cachepolicy.CacheInfo, error)
	SetCachePolicy(p cachepolicy.CachePolicy)
	CachePolicy() cachepolicy.CachePolicy
	SetPreloadPolicy(p cachepolicy.PreloadPolicy)

	// Lifecycle
	Close() error
}

package playback

import (
	"time"

	"github.com/samber/mo"

	"github.com/llehouerou/riptide/internal/media"
)

// Event is an immutable snapshot of the player. Every engine callback and
// every cache progress report produces a new one; later snapshots supersede
// earlier ones.
type Event struct {
	Item  media.Item
	Index int // queue index of Item, -1 when prepared outside the queue
	State State

	Position time.Duration
	Duration time.Duration
	Buffered time.Duration
	Speed    float64

	// Err is set in StateError.
	Err error

	// Cache progress for Item. Updated by downloads, independently of
	// playback progress.
	CacheBytesCached mo.Option[int64]
	CacheBytesTotal  mo.Option[int64]
}

// HasItem reports whether an item is loaded or loading.
func (e Event) HasItem() bool {
	return e.Item.URL != ""
}

// CacheFraction returns cached/total when both are known.
func (e Event) CacheFraction() mo.Option[float64] {
	cached, ok := e.CacheBytesCached.Get()
	if !ok {
		return mo.None[float64]()
	}
	total, ok := e.CacheBytesTotal.Get()
	if !ok || total <= 0 {
		return mo.None[float64]()
	}
	return mo.Some(min(float64(cached)/float64(total), 1))
}

func idleEvent() Event {
	return Event{Index: -1, State: StateIdle, Speed: 1}
}

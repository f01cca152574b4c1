package playlist

import (
	"errors"
	"fmt"

	"github.com/llehouerou/riptide/internal/media"
)

var ErrIndexOutOfRange = errors.New("queue index out of range")

// Queue wraps a Playlist with a current position.
// Invariant: currentIndex is in [0, Len()-1] when non-empty, -1 when empty.
// Queue is not safe for concurrent use; the playback controller owns it.
type Queue struct {
	playlist     *Playlist
	currentIndex int
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{
		playlist:     NewPlaylist(),
		currentIndex: -1,
	}
}

// Set replaces the queue. startIndex is clamped into range; an empty item
// list leaves the queue without a current item.
func (q *Queue) Set(items []media.Item, startIndex int) (media.Item, bool) {
	q.playlist.Clear()
	q.currentIndex = -1
	if len(items) == 0 {
		return media.Item{}, false
	}
	q.playlist.Add(items...)
	q.currentIndex = min(max(startIndex, 0), q.playlist.Len()-1)
	return q.Current()
}

// Current returns the current item.
func (q *Queue) Current() (media.Item, bool) {
	return q.playlist.Item(q.currentIndex)
}

// CurrentIndex returns the current index (-1 if empty).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// Next moves forward one item. At the end it does nothing and returns false.
func (q *Queue) Next() (media.Item, bool) {
	if !q.HasNext() {
		return media.Item{}, false
	}
	q.currentIndex++
	return q.Current()
}

// Previous moves back one item. At the start it does nothing and returns false.
func (q *Queue) Previous() (media.Item, bool) {
	if !q.HasPrevious() {
		return media.Item{}, false
	}
	q.currentIndex--
	return q.Current()
}

// HasNext returns true if there's an item after the current one.
func (q *Queue) HasNext() bool {
	return q.currentIndex >= 0 && q.currentIndex < q.playlist.Len()-1
}

// HasPrevious returns true if there's an item before the current one.
func (q *Queue) HasPrevious() bool {
	return q.currentIndex > 0
}

// JumpTo sets the current index. Out-of-range indices are rejected without
// changing anything.
func (q *Queue) JumpTo(index int) (media.Item, error) {
	if index < 0 || index >= q.playlist.Len() {
		return media.Item{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, q.playlist.Len())
	}
	q.currentIndex = index
	item, _ := q.Current()
	return item, nil
}

// Upcoming returns up to n items after the current one, in playback order,
// along with the index of the first returned item.
func (q *Queue) Upcoming(n int) (first int, items []media.Item) {
	if q.currentIndex < 0 || n <= 0 {
		return -1, nil
	}
	first = q.currentIndex + 1
	return first, q.playlist.Slice(first, first+n)
}

// Items returns all items in the queue.
func (q *Queue) Items() []media.Item {
	return q.playlist.Items()
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	return q.playlist.Len()
}

// IsEmpty returns true if the queue has no items.
func (q *Queue) IsEmpty() bool {
	return q.playlist.Len() == 0
}

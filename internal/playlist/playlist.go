package playlist

import "github.com/llehouerou/riptide/internal/media"

// Playlist holds an ordered collection of media items.
type Playlist struct {
	items []media.Item
}

// NewPlaylist creates a new empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{
		items: make([]media.Item, 0),
	}
}

// Add appends items to the playlist.
func (p *Playlist) Add(items ...media.Item) {
	p.items = append(p.items, items...)
}

// Clear removes all items from the playlist.
func (p *Playlist) Clear() {
	p.items = p.items[:0]
}

// Items returns a copy of all items.
func (p *Playlist) Items() []media.Item {
	result := make([]media.Item, len(p.items))
	copy(result, p.items)
	return result
}

// Item returns the item at the given index.
func (p *Playlist) Item(index int) (media.Item, bool) {
	if index < 0 || index >= len(p.items) {
		return media.Item{}, false
	}
	return p.items[index], true
}

// Slice returns a copy of items in [from, to), clamped to the playlist bounds.
func (p *Playlist) Slice(from, to int) []media.Item {
	from = max(from, 0)
	to = min(to, len(p.items))
	if from >= to {
		return nil
	}
	result := make([]media.Item, to-from)
	copy(result, p.items[from:to])
	return result
}

// Len returns the number of items.
func (p *Playlist) Len() int {
	return len(p.items)
}

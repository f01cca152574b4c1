// Package media defines the items the orchestration layer queues, plays and caches.
package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingURL = errors.New("media item has no url")
	ErrInvalidURL = errors.New("media item url is not absolute")
)

// Item is a single playable entry. It is treated as immutable once queued.
type Item struct {
	// Identifier is assigned by the caller and must be stable across sessions,
	// since cache keys are derived from it.
	Identifier string
	URL        string

	Title      string
	Artist     string
	ArtworkURL string

	MimeType string // optional hint, e.g. "application/x-mpegURL"
	IsLive   bool
}

// Validate checks that the item can be handed to a media engine.
// Local paths are accepted and treated as file URIs.
func (it Item) Validate() error {
	if strings.TrimSpace(it.URL) == "" {
		return ErrMissingURL
	}
	if strings.HasPrefix(it.URL, "/") {
		return nil
	}
	u, err := url.Parse(it.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("%w: %q", ErrInvalidURL, it.URL)
	}
	return nil
}

// ValidateAll validates every item and reports the first failing index.
func ValidateAll(items []Item) error {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// IsSegmented reports whether the item is manifest based (HLS or DASH).
// Segmented items are never prefetched by byte range.
func (it Item) IsSegmented() bool {
	mime := strings.ToLower(it.MimeType)
	if strings.Contains(mime, "mpegurl") || strings.Contains(mime, "dash") {
		return true
	}
	p := strings.ToLower(it.URL)
	if u, err := url.Parse(it.URL); err == nil && u.Path != "" {
		p = strings.ToLower(u.Path)
	}
	return strings.HasSuffix(p, ".m3u8") || strings.HasSuffix(p, ".mpd")
}

// IsLocal reports whether the item points at a local file.
func (it Item) IsLocal() bool {
	return strings.HasPrefix(it.URL, "/") || strings.HasPrefix(strings.ToLower(it.URL), "file:")
}

// DisplayTitle returns the title, falling back to the identifier and url.
func (it Item) DisplayTitle() string {
	switch {
	case it.Title != "":
		return it.Title
	case it.Identifier != "":
		return it.Identifier
	default:
		return it.URL
	}
}

package cachepolicy

import (
	"math"
	"time"

	"github.com/llehouerou/riptide/internal/media"
)

const (
	keyPrefix = "mp_key_"

	// DefaultAssumedKbps is the bitrate assumed when converting a time budget to bytes.
	DefaultAssumedKbps = 256

	// MinByteBudget is the smallest prefetch window ever requested.
	MinByteBudget int64 = 256 * 1024

	minSegmentedHead = time.Second
	maxSegmentedHead = 20 * time.Second
)

// KeyFor returns the cache key for an item. Items sharing a non-empty
// identifier share a key regardless of their URL.
func KeyFor(item media.Item) string {
	if item.Identifier != "" {
		return keyPrefix + item.Identifier
	}
	return keyPrefix + item.URL
}

// KeyForID returns the cache key for an identifier without needing the URL.
func KeyForID(id string) string {
	return keyPrefix + id
}

// EstimateByteBudget converts a time budget into bytes at DefaultAssumedKbps.
func EstimateByteBudget(head time.Duration) int64 {
	return EstimateByteBudgetAt(head, DefaultAssumedKbps)
}

// EstimateByteBudgetAt converts a time budget into bytes at the given bitrate.
// Negative durations count as zero and the result never drops below MinByteBudget.
func EstimateByteBudgetAt(head time.Duration, assumedKbps int) int64 {
	ms := max(head.Milliseconds(), 0)
	kbps := max(assumedKbps, 0)
	bytes := int64(math.Floor(float64(kbps) * float64(ms) / 1000 / 8 * 1024))
	return max(MinByteBudget, bytes)
}

// SegmentedHeadTimeout bounds how long a segmented preload may run, since
// segment downloaders cannot be limited by length.
func SegmentedHeadTimeout(head time.Duration) time.Duration {
	return min(max(head, minSegmentedHead), maxSegmentedHead)
}

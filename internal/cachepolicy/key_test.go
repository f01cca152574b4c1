package cachepolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/llehouerou/riptide/internal/media"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name string
		item media.Item
		want string
	}{
		{"identifier wins", media.Item{Identifier: "track-1", URL: "https://a/1.mp3"}, "mp_key_track-1"},
		{"url fallback", media.Item{URL: "https://a/1.mp3"}, "mp_key_https://a/1.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyFor(tt.item))
			assert.Equal(t, KeyFor(tt.item), KeyFor(tt.item), "key must be deterministic")
		})
	}
}

func TestKeyFor_SharedIdentifierCollides(t *testing.T) {
	a := media.Item{Identifier: "same", URL: "https://cdn1/a.mp3"}
	b := media.Item{Identifier: "same", URL: "https://cdn2/b.mp3"}

	assert.Equal(t, KeyFor(a), KeyFor(b))
	assert.Equal(t, KeyForID("same"), KeyFor(a))
}

func TestEstimateByteBudget(t *testing.T) {
	tests := []struct {
		name string
		head time.Duration
		want int64
	}{
		{"zero", 0, 256 * 1024},
		{"negative treated as zero", -5 * time.Second, 256 * 1024},
		{"short head clamps to minimum", time.Second, 256 * 1024},
		// 256 kbps * 30 s / 8 * 1024
		{"thirty seconds", 30 * time.Second, 983040},
		{"two minutes", 2 * time.Minute, 3932160},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateByteBudget(tt.head))
		})
	}
}

func TestEstimateByteBudget_Monotonic(t *testing.T) {
	prev := EstimateByteBudget(0)
	for ms := int64(0); ms <= 600_000; ms += 250 {
		got := EstimateByteBudget(time.Duration(ms) * time.Millisecond)
		if got < prev {
			t.Fatalf("EstimateByteBudget(%dms) = %d < previous %d", ms, got, prev)
		}
		prev = got
	}
}

func TestEstimateByteBudgetAt_CustomBitrate(t *testing.T) {
	// 1024 kbps * 10 s / 8 * 1024
	assert.Equal(t, int64(1310720), EstimateByteBudgetAt(10*time.Second, 1024))
	assert.Equal(t, MinByteBudget, EstimateByteBudgetAt(10*time.Second, -1))
}

func TestSegmentedHeadTimeout(t *testing.T) {
	assert.Equal(t, time.Second, SegmentedHeadTimeout(0))
	assert.Equal(t, 5*time.Second, SegmentedHeadTimeout(5*time.Second))
	assert.Equal(t, 20*time.Second, SegmentedHeadTimeout(time.Hour))
}

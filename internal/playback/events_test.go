package playback

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"

	"github.com/llehouerou/riptide/internal/media"
)

func TestEvent_HasItem(t *testing.T) {
	assert.False(t, idleEvent().HasItem())
	assert.True(t, Event{Item: media.Item{URL: "https://cdn.test/a.mp3"}}.HasItem())
}

func TestEvent_CacheFraction(t *testing.T) {
	tests := []struct {
		name   string
		cached mo.Option[int64]
		total  mo.Option[int64]
		want   mo.Option[float64]
	}{
		{"unknown", mo.None[int64](), mo.None[int64](), mo.None[float64]()},
		{"total unknown", mo.Some[int64](10), mo.None[int64](), mo.None[float64]()},
		{"zero total", mo.Some[int64](10), mo.Some[int64](0), mo.None[float64]()},
		{"half", mo.Some[int64](50), mo.Some[int64](100), mo.Some(0.5)},
		{"clamped", mo.Some[int64](150), mo.Some[int64](100), mo.Some(1.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{CacheBytesCached: tt.cached, CacheBytesTotal: tt.total}
			assert.Equal(t, tt.want, e.CacheFraction())
		})
	}
}

func TestIdleEvent(t *testing.T) {
	e := idleEvent()

	if e.State != StateIdle {
		t.Errorf("State = %v, want Idle", e.State)
	}
	if e.Index != -1 {
		t.Errorf("Index = %d, want -1", e.Index)
	}
	if e.Speed != 1 {
		t.Errorf("Speed = %v, want 1", e.Speed)
	}
}

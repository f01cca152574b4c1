package playerbar

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"

	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/playback"
)

func playing() State {
	return State{
		Status:   playback.StatePlaying,
		Title:    "Night Drive",
		Artist:   "Kavinsky",
		Index:    1,
		Total:    5,
		Position: 83 * time.Second,
		Duration: 238 * time.Second,
		Speed:    1,
		Volume:   0.8,
	}
}

func TestRender_Idle(t *testing.T) {
	if got := Render(State{Status: playback.StateIdle}, 120); got != "" {
		t.Errorf("Render(idle) = %q, want empty", got)
	}
}

func TestRender_Playing(t *testing.T) {
	got := Render(playing(), 160)

	for _, want := range []string{"Night Drive", "Kavinsky", "2/5", "1:23 / 3:58", playSymbol, " 80%"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q in %q", want, got)
		}
	}
}

func TestRender_Extras(t *testing.T) {
	s := playing()
	s.Status = playback.StatePaused
	s.Speed = 1.25
	s.Loop = true
	s.Cached = mo.Some[int64](4_200_000)
	s.Fraction = mo.Some(0.35)

	got := Render(s, 200)

	for _, want := range []string{pauseSymbol, "1.25x", loopSymbol, "cached 4.2 MB (35%)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q in %q", want, got)
		}
	}
}

func TestRender_Error(t *testing.T) {
	s := playing()
	s.Status = playback.StateError
	s.Err = errors.New("decoder failed")

	got := Render(s, 160)

	if !strings.Contains(got, "decoder failed") {
		t.Errorf("Render() missing error text in %q", got)
	}
	if !strings.Contains(got, errorSymbol) {
		t.Errorf("Render() missing error symbol in %q", got)
	}
}

func TestRender_Narrow(t *testing.T) {
	s := playing()
	s.Title = strings.Repeat("Very Long Title ", 10)

	for _, width := range []int{0, 10, 40} {
		_ = Render(s, width)
	}
}

func TestNewState(t *testing.T) {
	ev := playback.Event{
		Item:             media.Item{Identifier: "ep-12", URL: "https://cdn.test/ep12.mp3"},
		Index:            0,
		State:            playback.StateBuffering,
		Position:         time.Second,
		Duration:         time.Minute,
		Speed:            1,
		CacheBytesCached: mo.Some[int64](50),
		CacheBytesTotal:  mo.Some[int64](100),
	}

	s := NewState(ev, 3, 0.5, true)

	if s.Title != "ep-12" {
		t.Errorf("Title = %q, want %q", s.Title, "ep-12")
	}
	if f, ok := s.Fraction.Get(); !ok || f != 0.5 {
		t.Errorf("Fraction = %v, want 0.5", s.Fraction)
	}
	if s.Total != 3 || !s.Loop || s.Volume != 0.5 {
		t.Errorf("NewState() = %+v", s)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{83 * time.Second, "1:23"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNewState_SanitizesMetadata(t *testing.T) {
	ev := playback.Event{
		State: playback.StatePlaying,
		Item:  media.Item{Identifier: "a", Title: "Song\nTitle", Artist: "Band\x1b[0m"},
		Index: 0,
	}

	s := NewState(ev, 1, 1, false)

	if s.Title != "SongTitle" {
		t.Errorf("Title = %q, want %q", s.Title, "SongTitle")
	}
	if s.Artist != "Band[0m" {
		t.Errorf("Artist = %q, want %q", s.Artist, "Band[0m")
	}
}

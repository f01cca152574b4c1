package playerbar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/samber/mo"

	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/ui/render"
)

// State holds everything needed to render the player bar.
type State struct {
	Status   playback.State
	Title    string
	Artist   string
	Index    int // 0-based, -1 when outside the queue
	Total    int
	Position time.Duration
	Duration time.Duration
	Buffered time.Duration
	Speed    float64
	Volume   float64
	Loop     bool
	Cached   mo.Option[int64]
	Fraction mo.Option[float64]
	Err      error
}

// Height returns the total height of the player bar.
func Height() int {
	return 3 // top border + content + bottom border
}

// NewState builds a State from a playback snapshot.
func NewState(ev playback.Event, total int, volume float64, loop bool) State {
	return State{
		Status:   ev.State,
		Title:    render.Sanitize(ev.Item.DisplayTitle()),
		Artist:   render.Sanitize(ev.Item.Artist),
		Index:    ev.Index,
		Total:    total,
		Position: ev.Position,
		Duration: ev.Duration,
		Buffered: ev.Buffered,
		Speed:    ev.Speed,
		Volume:   volume,
		Loop:     loop,
		Cached:   ev.CacheBytesCached,
		Fraction: ev.CacheFraction(),
		Err:      ev.Err,
	}
}

func statusSymbol(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return playSymbol
	case playback.StatePaused:
		return pauseSymbol
	case playback.StateBuffering:
		return bufferingSymbol
	case playback.StateEnded:
		return endedSymbol
	case playback.StateError:
		return errorSymbol
	default:
		return ""
	}
}

// Render returns the player bar string for the given width.
// Returns empty string when idle.
func Render(s State, width int) string {
	if s.Status == playback.StateIdle {
		return ""
	}
	innerWidth := max(width-6, 0)
	separator := "   "

	title := s.Title
	if title == "" {
		title = "Unknown"
	}
	plain := title
	if s.Artist != "" {
		plain += " · " + s.Artist
	}

	var right []string
	if s.Index >= 0 && s.Total > 0 {
		right = append(right, fmt.Sprintf("%d/%d", s.Index+1, s.Total))
	}
	right = append(right, formatDuration(s.Position)+" / "+formatDuration(s.Duration))
	if c := cacheLabel(s); c != "" {
		right = append(right, c)
	}
	if s.Speed > 0 && s.Speed != 1 {
		right = append(right, strconv.FormatFloat(s.Speed, 'f', -1, 64)+"x")
	}
	right = append(right, fmt.Sprintf("%3d%%", int(s.Volume*100+0.5)))
	if s.Loop {
		right = append(right, loopSymbol)
	}
	tail := progressTimeStyle().Render(strings.Join(right, "  "))

	status := statusSymbol(s.Status) + "  "
	fixed := lipgloss.Width(status) + lipgloss.Width(tail) + 2*lipgloss.Width(separator)
	headingWidth := min(runewidth.StringWidth(plain), max(innerWidth-fixed-10, 10))
	var heading string
	switch {
	case runewidth.StringWidth(plain) > headingWidth:
		heading = titleStyle().Render(render.Truncate(plain, headingWidth))
	case s.Artist != "":
		heading = titleStyle().Render(title) + artistStyle().Render(" · "+s.Artist)
	default:
		heading = titleStyle().Render(title)
	}

	var middle string
	if s.Status == playback.StateError && s.Err != nil {
		middle = errorStyle().Render(render.Truncate(s.Err.Error(), max(innerWidth-fixed-headingWidth-2, 5)))
	} else {
		middle = progressBar(s, max(innerWidth-fixed-headingWidth-2, 5))
	}

	var content strings.Builder
	content.WriteString(heading)
	content.WriteString(separator)
	content.WriteString(status)
	content.WriteString(middle)
	content.WriteString(separator)
	content.WriteString(tail)

	return barStyle().Padding(0, 2).Width(max(width-2, 0)).Render(content.String())
}

// progressBar draws played, buffered and remaining segments.
func progressBar(s State, width int) string {
	var played, buffered int
	if s.Duration > 0 {
		played = min(int(float64(width)*float64(s.Position)/float64(s.Duration)), width)
		buffered = min(int(float64(width)*float64(s.Buffered)/float64(s.Duration)), width)
	}
	buffered = max(buffered-played, 0)
	rest := width - played - buffered
	return progressBarFilled().Render(strings.Repeat("━", played)) +
		progressBarBuffered().Render(strings.Repeat("─", buffered)) +
		progressBarEmpty().Render(strings.Repeat("─", rest))
}

func cacheLabel(s State) string {
	cached, ok := s.Cached.Get()
	if !ok || cached <= 0 {
		return ""
	}
	label := "cached " + humanize.Bytes(uint64(cached))
	if f, ok := s.Fraction.Get(); ok {
		label += fmt.Sprintf(" (%d%%)", int(f*100))
	}
	return label
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d >= time.Hour {
		return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

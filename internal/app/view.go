package app

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/keymap"
	"github.com/llehouerou/riptide/internal/ui/playerbar"
	"github.com/llehouerou/riptide/internal/ui/render"
	"github.com/llehouerou/riptide/internal/ui/styles"
)

var helpKeyStyle = lipgloss.NewStyle().Foreground(styles.T().Primary).Width(14)

const (
	currentMarker = "▶ "
	liveLabel     = "LIVE"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.Width == 0 {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}

	bar := playerbar.Render(playerbar.NewState(m.snap, len(m.items), m.volume, m.Playback.Loop()), m.Width)
	reserved := 2 // header + status line
	if bar != "" {
		reserved += playerbar.Height()
	}

	var b strings.Builder
	b.WriteString(styles.T().Heading(fmt.Sprintf("Queue (%d)", len(m.items))))
	b.WriteString("\n")
	b.WriteString(m.renderQueue(max(m.Height-reserved, 1)))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	if bar != "" {
		b.WriteString("\n")
		b.WriteString(bar)
	}
	return b.String()
}

// visibleRange returns the window of rows that keeps the cursor on screen.
func visibleRange(cursor, total, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	start := max(cursor-rows/2, 0)
	start = min(start, total-rows)
	return start, start + rows
}

func (m Model) renderQueue(rows int) string {
	if len(m.items) == 0 {
		return styles.T().S().Muted.Render("  Queue is empty")
	}
	start, end := visibleRange(m.cursor, len(m.items), rows)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(i))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i int) string {
	item := m.items[i]
	prefix := "  "
	if i == m.snap.Index {
		prefix = currentMarker
	}

	var tags []string
	if item.IsLive {
		tags = append(tags, liveLabel)
	}
	if d, ok := m.downloads[cachepolicy.KeyFor(item)]; ok {
		tags = append(tags, downloadLabel(d))
	}
	tail := ""
	if len(tags) > 0 {
		tail = "  " + strings.Join(tags, " ")
	}

	label := item.DisplayTitle()
	if item.Artist != "" {
		label += " · " + item.Artist
	}
	width := max(m.Width-runewidth.StringWidth(prefix)-runewidth.StringWidth(tail), 1)
	line := prefix + render.Fit(label, width) + tail

	s := styles.T().S()
	switch {
	case i == m.cursor:
		return s.Cursor.Render(line)
	case i == m.snap.Index:
		return s.Current.Render(line)
	default:
		return line
	}
}

func downloadLabel(d *download) string {
	if d.last.BytesTotal > 0 {
		pct := int(float64(d.last.BytesCached) / float64(d.last.BytesTotal) * 100)
		return fmt.Sprintf("↓ %d%%", min(pct, 100))
	}
	return "↓ " + humanize.IBytes(uint64(max(d.last.BytesCached, 0)))
}

func (m Model) renderStatus() string {
	if m.status != "" {
		return styles.T().S().Status.Render(render.Truncate(m.status, m.Width))
	}
	if n := len(m.downloads); n > 0 {
		return styles.T().S().Muted.Render(fmt.Sprintf("%d download(s) in progress", n))
	}
	return styles.T().S().Subtle.Render("? for help")
}

var helpContexts = []struct {
	name  string
	title string
}{
	{"global", "General"},
	{"playback", "Playback"},
	{"queue", "Queue"},
	{"cache", "Cache"},
}

func (m Model) renderHelp() string {
	var b strings.Builder
	for i, ctx := range helpContexts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.T().S().Title.Render(ctx.title))
		b.WriteString("\n")
		for _, binding := range keymap.ByContext(ctx.name) {
			keys := lo.Map(m.Keys.KeysFor(binding.Action), func(k string, _ int) string {
				if k == " " {
					return "space"
				}
				return k
			})
			slices.Sort(keys)
			b.WriteString("  ")
			b.WriteString(helpKeyStyle.Render(strings.Join(keys, "/")))
			b.WriteString(binding.Description)
			b.WriteString("\n")
		}
	}
	return b.String()
}

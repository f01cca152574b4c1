package playerbar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/riptide/internal/ui/styles"
)

const (
	playSymbol      = "▶"
	pauseSymbol     = "⏸"
	bufferingSymbol = "…"
	endedSymbol     = "■"
	errorSymbol     = "✗"
	loopSymbol      = "⟲"
)

func barStyle() lipgloss.Style {
	return styles.T().S().Panel
}

func titleStyle() lipgloss.Style {
	return styles.T().S().Title
}

func artistStyle() lipgloss.Style {
	return styles.T().S().Muted
}

func metaStyle() lipgloss.Style {
	return styles.T().S().Subtle
}

func progressBarFilled() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.T().Primary)
}

// Cached-but-unplayed span of the bar.
func progressBarBuffered() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.T().FgMuted)
}

func progressBarEmpty() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.T().BgCursor)
}

func progressTimeStyle() lipgloss.Style {
	return styles.T().S().Base
}

func errorStyle() lipgloss.Style {
	return styles.T().S().Error
}

// Package styles holds the riptide color palette and shared lipgloss styles.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette.
type Theme struct {
	Primary   lipgloss.Color // current item, progress
	Secondary lipgloss.Color // gradient end, cache progress

	FgBase   lipgloss.Color
	FgMuted  lipgloss.Color
	FgSubtle lipgloss.Color

	BgCursor lipgloss.Color
	Border   lipgloss.Color

	Warning lipgloss.Color // status messages
	Error   lipgloss.Color

	styles *Styles
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	Base    lipgloss.Style
	Muted   lipgloss.Style
	Subtle  lipgloss.Style
	Title   lipgloss.Style
	Current lipgloss.Style // the queue item being played
	Cursor  lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Panel   lipgloss.Style // rounded border around the player bar
}

var defaultTheme = Theme{
	Primary:   lipgloss.Color("#38bdf8"),
	Secondary: lipgloss.Color("#2dd4bf"),

	FgBase:   lipgloss.Color("#c8d0d8"),
	FgMuted:  lipgloss.Color("#8090a0"),
	FgSubtle: lipgloss.Color("#4a5560"),

	BgCursor: lipgloss.Color("#243040"),
	Border:   lipgloss.Color("#4a5560"),

	Warning: lipgloss.Color("#f1a208"),
	Error:   lipgloss.Color("#ff5555"),
}

// T returns the default theme.
func T() *Theme {
	return &defaultTheme
}

// S returns the styles for this theme, building them on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		t.styles = t.build()
	}
	return t.styles
}

func (t *Theme) build() *Styles {
	base := lipgloss.NewStyle().Foreground(t.FgBase)
	return &Styles{
		Base:    base,
		Muted:   lipgloss.NewStyle().Foreground(t.FgMuted),
		Subtle:  lipgloss.NewStyle().Foreground(t.FgSubtle),
		Title:   base.Bold(true),
		Current: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Cursor:  lipgloss.NewStyle().Background(t.BgCursor).Foreground(t.FgBase),
		Status:  lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),
	}
}

package styles

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Heading renders text bold with the theme's primary to secondary gradient.
func (t *Theme) Heading(text string) string {
	return Gradient(text, t.Primary, t.Secondary, true)
}

// Gradient colors each grapheme of text along a blend from one color to
// another. Colors that are not #rrggbb hex fall back to gray.
func Gradient(text string, from, to lipgloss.Color, bold bool) string {
	var clusters []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	if len(clusters) == 0 {
		return ""
	}

	base := lipgloss.NewStyle().Bold(bold)
	colors := Blend(len(clusters), from, to)
	var b strings.Builder
	for i, cluster := range clusters {
		b.WriteString(base.Foreground(lipgloss.Color(colors[i].Hex())).Render(cluster))
	}
	return b.String()
}

// Blend returns n colors evenly spaced in HCL space between from and to.
func Blend(n int, from, to lipgloss.Color) []colorful.Color {
	c1, c2 := toColorful(from), toColorful(to)
	if n < 2 {
		return []colorful.Color{c1}
	}
	out := make([]colorful.Color, n)
	for i := range n {
		out[i] = c1.BlendHcl(c2, float64(i)/float64(n-1)).Clamped()
	}
	return out
}

var gray = color.RGBA{R: 128, G: 128, B: 128, A: 255}

func toColorful(c lipgloss.Color) colorful.Color {
	if col, err := colorful.Hex(string(c)); err == nil {
		return col
	}
	col, _ := colorful.MakeColor(gray)
	return col
}

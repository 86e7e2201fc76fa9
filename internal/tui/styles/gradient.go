package styles

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// ApplyGradient renders text with a horizontal gradient, one color per
// grapheme cluster.
func ApplyGradient(text string, from, to color.Color, bold bool) string {
	if text == "" {
		return ""
	}

	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	var out strings.Builder
	for i, c := range blendColors(len(clusters), from, to) {
		out.WriteString(lipgloss.NewStyle().Foreground(c).Bold(bold).Render(clusters[i]))
	}
	return out.String()
}

// RenderThemeGradient renders text with the current theme's brand gradient.
func RenderThemeGradient(text string) string {
	t := CurrentTheme()
	return ApplyGradient(text, t.Primary, t.Secondary, true)
}

// ScoreBar renders a bar of width cells filled in proportion to p, which is
// clamped to [0, 1].
func ScoreBar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	p = min(max(p, 0), 1)
	filled := int(p*float64(width) + 0.5)

	t := CurrentTheme()
	var bar strings.Builder
	if filled > 0 {
		for _, c := range blendColors(filled, t.Primary, t.Secondary) {
			bar.WriteString(lipgloss.NewStyle().Foreground(c).Render("█"))
		}
	}
	bar.WriteString(lipgloss.NewStyle().Foreground(t.FgSubtle).Render(strings.Repeat("░", width-filled)))
	return bar.String()
}

// blendColors interpolates in HCL space, which looks even to the eye.
func blendColors(steps int, from, to color.Color) []color.Color {
	if steps <= 0 {
		return nil
	}
	if steps == 1 {
		return []color.Color{from}
	}

	c1, _ := colorful.MakeColor(from)
	c2, _ := colorful.MakeColor(to)
	colors := make([]color.Color, steps)
	for i := range steps {
		colors[i] = c1.BlendHcl(c2, float64(i)/float64(steps-1)).Clamped()
	}
	return colors
}

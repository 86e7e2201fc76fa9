package styles

import (
	"github.com/charmbracelet/glamour/v2"
)

// RenderMarkdown renders md for a terminal of the given width using the
// current theme.
func RenderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(CurrentTheme().S().Markdown),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

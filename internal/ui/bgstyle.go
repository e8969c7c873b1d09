package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints a fixed background behind every cell it renders. Lipgloss
// resets the background after each styled run, so spaces between segments
// are rendered as styled spaces too.
type BgStyle struct {
	bg    lipgloss.Color
	fill  lipgloss.Style
	space string
}

// NewBgStyle returns a BgStyle for a hex color.
func NewBgStyle(color string) BgStyle {
	bg := lipgloss.Color(color)
	fill := lipgloss.NewStyle().Background(bg)
	return BgStyle{bg: bg, fill: fill, space: fill.Render(" ")}
}

// Render applies style on the background, word by word.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	style = style.Background(b.bg)
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Space returns one background-colored space.
func (b BgStyle) Space() string { return b.space }

// Spaces returns n background-colored spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return b.fill.Render(strings.Repeat(" ", n))
}

// Sep renders a separator on the background.
func (b BgStyle) Sep(sep string) string { return b.fill.Render(sep) }

// Join joins already rendered parts with sep.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

func (b BgStyle) Color() lipgloss.Color { return b.bg }

// FillLine pads content to width with the background.
func (b BgStyle) FillLine(content string, width int) string {
	return b.fill.Width(width).Render(content)
}

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette. All colors are hex strings.
type Theme struct {
	Name string

	Background string // outermost background
	Surface    string // header, command bar, panels
	SurfaceAlt string // box bodies
	FocusBg    string // content areas

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StatusColors is keyed by row state (saving, loading, active, preview)
	// and connection state (ok, error).
	StatusColors map[string]string
}

// Styles contains pre-built Lipgloss styles for a theme.
type Styles struct {
	Background lipgloss.Style
	Surface    lipgloss.Style
	SurfaceAlt lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	surface := fg(t.Text).Background(lipgloss.Color(t.Surface))
	return Styles{
		Background: lipgloss.NewStyle().Background(lipgloss.Color(t.Background)),
		Surface:    surface,
		SurfaceAlt: fg(t.Text).Background(lipgloss.Color(t.SurfaceAlt)),

		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Header: surface.Padding(0, 1),
		Footer: fg(t.Muted).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:   fg(t.Warning).Bold(true),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for a row or connection state. Unknown
// states use the muted color.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns a copy of s where every style paints bgColor, so
// text inside a panel never falls back to the terminal background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.Background, &out.Surface, &out.SurfaceAlt,
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.WarningText, &out.DangerText, &out.InfoText,
		&out.Header, &out.Footer, &out.Logo,
	} {
		*st = st.Background(bg)
	}
	return out
}

// themes is in cycle order; the first entry is the fallback.
var themes = []Theme{nightfox, kanagawa, dawnfox}

// GetTheme returns a theme by name, or the first theme when name is unknown.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, t := range themes {
		if t.Name == current {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}

// ThemeNames returns available theme names in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// https://github.com/EdenEast/nightfox.nvim
var nightfox = Theme{
	Name:          "Nightfox",
	Background:    "#131a24",
	Surface:       "#192330",
	SurfaceAlt:    "#212e3f",
	FocusBg:       "#29394f",
	SelectionBg:   "#2b3b51",
	SelectionText: "#cdcecf",
	Border:        "#39506d",
	BorderFocus:   "#719cd6",
	Text:          "#cdcecf",
	Muted:         "#738091",
	Faint:         "#71839b",
	Accent:        "#719cd6",
	Success:       "#81b29a",
	Warning:       "#dbc074",
	Danger:        "#c94f6d",
	Info:          "#63cdcf",
	StatusColors: map[string]string{
		rowSaving:  "#dbc074",
		rowLoading: "#63cdcf",
		rowActive:  "#9d79d6",
		rowPreview: "#738091",
		"ok":       "#81b29a",
		"error":    "#c94f6d",
	},
}

// https://github.com/rebelot/kanagawa.nvim
var kanagawa = Theme{
	Name:          "Kanagawa",
	Background:    "#16161D",
	Surface:       "#1F1F28",
	SurfaceAlt:    "#2A2A37",
	FocusBg:       "#2A2A37",
	SelectionBg:   "#2D4F67",
	SelectionText: "#DCD7BA",
	Border:        "#54546D",
	BorderFocus:   "#7E9CD8",
	Text:          "#DCD7BA",
	Muted:         "#C8C093",
	Faint:         "#727169",
	Accent:        "#7E9CD8",
	Success:       "#98BB6C",
	Warning:       "#E6C384",
	Danger:        "#E46876",
	Info:          "#7FB4CA",
	StatusColors: map[string]string{
		rowSaving:  "#E6C384",
		rowLoading: "#7FB4CA",
		rowActive:  "#957FB8",
		rowPreview: "#727169",
		"ok":       "#98BB6C",
		"error":    "#E46876",
	},
}

// Light variant of nightfox.
var dawnfox = Theme{
	Name:          "Dawnfox",
	Background:    "#ebe5df",
	Surface:       "#faf4ed",
	SurfaceAlt:    "#ebe0df",
	FocusBg:       "#f2e9e1",
	SelectionBg:   "#d0d8d8",
	SelectionText: "#575279",
	Border:        "#bdbfc9",
	BorderFocus:   "#286983",
	Text:          "#575279",
	Muted:         "#9893a5",
	Faint:         "#a8a3b3",
	Accent:        "#286983",
	Success:       "#618774",
	Warning:       "#ea9d34",
	Danger:        "#b4637a",
	Info:          "#56949f",
	StatusColors: map[string]string{
		rowSaving:  "#ea9d34",
		rowLoading: "#56949f",
		rowActive:  "#907aa9",
		rowPreview: "#9893a5",
		"ok":       "#618774",
		"error":    "#b4637a",
	},
}

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// scopeSelectedMsg is emitted when the user picks a flow node instance.
type scopeSelectedMsg struct {
	scope string
}

// scopePrompt asks for a flow node instance key. Up and down walk the
// recently used ones.
type scopePrompt struct {
	input   textinput.Model
	recent  []string
	cursor  int // index into recent, -1 while typing
	current string
}

func newScopePrompt(current string, recent []string) (*scopePrompt, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = "flow node instance key"
	ti.CharLimit = 128
	ti.Width = 40
	cmd := ti.Focus()
	return &scopePrompt{input: ti, recent: recent, cursor: -1, current: current}, cmd
}

// Update implements Modal.
func (p *scopePrompt) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Escape):
			return p, nil, true

		case key.Matches(k, keys.Confirm):
			scope := strings.TrimSpace(p.input.Value())
			if scope == "" {
				return p, nil, false
			}
			return p, func() tea.Msg { return scopeSelectedMsg{scope: scope} }, true

		case k.Type == tea.KeyUp:
			if len(p.recent) > 0 {
				p.cursor = max(p.cursor-1, 0)
				p.input.SetValue(p.recent[p.cursor])
				p.input.CursorEnd()
			}
			return p, nil, false

		case k.Type == tea.KeyDown:
			if len(p.recent) > 0 {
				p.cursor = min(p.cursor+1, len(p.recent)-1)
				p.input.SetValue(p.recent[p.cursor])
				p.input.CursorEnd()
			}
			return p, nil, false
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if _, ok := msg.(tea.KeyMsg); ok {
		p.cursor = -1
		for i, s := range p.recent {
			if s == p.input.Value() {
				p.cursor = i
			}
		}
	}
	return p, cmd, false
}

// View implements Modal.
func (p *scopePrompt) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Flow node instance"))
	b.WriteString("\n")
	if p.current != "" {
		b.WriteString(styles.MutedText.Render("current: " + p.current))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n")

	if len(p.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Recent"))
		b.WriteString("\n")
		for i, s := range p.recent {
			line := "  " + s
			style := styles.MutedText
			if i == p.cursor {
				line = "› " + s
				style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning))
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter load · ↑/↓ recent · esc cancel"))

	return placeModal(theme, b.String(), width, height, min(modalWidth(width), 56))
}

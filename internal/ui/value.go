package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tern/internal/state"
)

// openValue shows the selected variable in full, fetching the complete
// value first when the list only carried a preview.
func (m Model) openValue() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRowData()
	if !ok {
		return m, nil
	}
	m.valueName = row.Variable.Name
	m.currentView = ViewValue
	m.updateValueViewport()
	m.valueViewport.GotoTop()
	if row.Pending {
		return m, nil
	}
	return m, m.fullValueCmd(row.Variable)
}

// valueRow returns the row shown in the value view.
func (m Model) valueRow() (state.Row, bool) {
	if m.valueName == "" {
		return state.Row{}, false
	}
	for _, row := range m.snapshot.Rows() {
		if row.Variable.Name == m.valueName {
			return row, true
		}
	}
	return state.Row{}, false
}

// handleValueKey processes keyboard input for the value view.
func (m Model) handleValueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.valueViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.valueViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.valueViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.valueViewport.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		m.valueViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.valueViewport.GotoBottom()
	case key.Matches(msg, m.keys.LoadValue):
		if row, ok := m.valueRow(); ok && !row.Pending {
			return m, m.fullValueCmd(row.Variable)
		}
	case key.Matches(msg, m.keys.Edit):
		return m.openEditForm()
	}
	return m, nil
}

// updateValueViewport sizes the value viewport and refreshes its content.
func (m *Model) updateValueViewport() {
	width := max(m.width-4, 1)
	height := max(m.height-chromeHeight-2, 1)
	if m.valueViewport.Width == 0 {
		m.valueViewport = viewport.New(width, height)
	}
	m.valueViewport.Width = width
	m.valueViewport.Height = height
	m.valueViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.valueViewport.SetContent(m.renderValueContent())
}

func (m Model) renderValueContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	row, ok := m.valueRow()
	if !ok {
		if m.valueName == "" {
			return ""
		}
		return styles.MutedText.Render("Variable no longer listed")
	}

	var b strings.Builder
	switch rowState(row) {
	case rowSaving:
		b.WriteString(styles.WarningText.Render("Saving..."))
		b.WriteString("\n\n")
	case rowLoading:
		b.WriteString(styles.InfoText.Render("Loading full value..."))
		b.WriteString("\n\n")
	case rowPreview:
		b.WriteString(styles.MutedText.Render("Preview only (f to fetch the full value)"))
		b.WriteString("\n\n")
	}

	lines := strings.Split(prettyValue(row.Variable.Value), "\n")
	for i, line := range lines {
		lines[i] = styles.Text.Render(line)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// renderValue renders the value view.
func (m Model) renderValue() string {
	contentHeight := m.height - chromeHeight
	title := "Value · " + m.valueName
	if row, ok := m.valueRow(); ok {
		if rs := rowState(row); rs != "" {
			title += " (" + rs + ")"
		}
	}
	return m.renderTitledBox(title, m.valueViewport.View(), m.width, contentHeight, true)
}

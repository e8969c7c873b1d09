package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/tern/internal/state"
)

// Row states, also the keys of Theme.StatusColors.
const (
	rowSaving  = "saving"
	rowLoading = "loading"
	rowActive  = "active"
	rowPreview = "preview"
)

// rowState classifies a row for the state column.
func rowState(row state.Row) string {
	switch {
	case row.Pending:
		return rowSaving
	case row.Loading:
		return rowLoading
	case row.Variable.HasActiveOperation:
		return rowActive
	case row.Variable.IsPreview:
		return rowPreview
	default:
		return ""
	}
}

// selectedRowData returns the currently selected composed row.
func (m Model) selectedRowData() (state.Row, bool) {
	rows := m.snapshot.Rows()
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return state.Row{}, false
	}
	return rows[m.selectedRow], true
}

// handleVariablesKey processes keyboard input for the variables view.
func (m Model) handleVariablesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rowCount := len(m.snapshot.Rows())
	half := max(m.tableRows()/2, 1)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < rowCount-1 {
			m.selectedRow++
		} else {
			// Moving past the end loads the next page.
			return m, m.nextPageCmd()
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(rowCount-1, 0)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow = min(m.selectedRow+half, max(rowCount-1, 0))
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow = max(m.selectedRow-half, 0)

	case key.Matches(msg, m.keys.Add):
		return m.openAddForm()
	case key.Matches(msg, m.keys.Edit):
		return m.openEditForm()
	case key.Matches(msg, m.keys.ViewValue):
		return m.openValue()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.NextPage):
		return m, m.nextPageCmd()
	case key.Matches(msg, m.keys.Scope):
		return m.openScopePrompt()
	}

	return m, nil
}

func (m Model) refreshCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, ctx := m.store, m.ctx
	return storeCmd("refresh", "", func() error { return store.Refresh(ctx) })
}

func (m Model) nextPageCmd() tea.Cmd {
	if m.store == nil || !m.snapshot.HasMore {
		return nil
	}
	store, ctx := m.store, m.ctx
	return storeCmd("next page", "", func() error { return store.FetchNextPage(ctx) })
}

// tableRows returns how many variable rows fit in the table body.
func (m Model) tableRows() int {
	body := m.height - chromeHeight - 2 // box borders
	body-- // column header
	if m.snapshot.HasMore {
		body-- // load more footer
	}
	return max(body, 1)
}

// renderVariables renders the variables view.
func (m Model) renderVariables() string {
	contentHeight := m.height - chromeHeight
	innerWidth := m.width - 2
	bgColor := m.theme.FocusBg

	var content string
	rows := m.snapshot.Rows()
	if len(rows) == 0 {
		styles := m.theme.Styles().WithBackground(bgColor)
		content = lipgloss.Place(innerWidth, max(contentHeight-2, 1),
			lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(m.emptyMessage()),
			lipgloss.WithWhitespaceBackground(lipgloss.Color(bgColor)))
	} else {
		content = m.renderVariableTable(rows, innerWidth, bgColor)
	}

	return m.renderTitledBox(m.variablesTitle(), content, m.width, contentHeight, true)
}

func (m Model) emptyMessage() string {
	snap := m.snapshot
	switch {
	case snap.Scope == "":
		return "Press s to choose a flow node instance"
	case snap.Status.Loading():
		return "Loading variables..."
	case snap.Status == state.StatusError:
		return "Variables could not be fetched (r to retry)"
	default:
		return "No variables (a to add one)"
	}
}

// variablesTitle returns the plain text title of the variables box.
func (m Model) variablesTitle() string {
	snap := m.snapshot
	if snap.Scope == "" {
		return "Variables"
	}
	title := "Variables · " + snap.Scope
	if snap.HasMore && snap.TotalCount > len(snap.Items) {
		title += fmt.Sprintf(" (%s of %s)", humanize.Comma(int64(len(snap.Items))), humanize.Comma(int64(snap.TotalCount)))
	}
	return title
}

// renderVariableTable renders the column header, the visible rows and the
// load more footer.
func (m Model) renderVariableTable(rows []state.Row, width int, bgColor string) string {
	nameW, valueW, stateW := variableColumns(width)
	visible := m.tableRows()

	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(rows))

	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	header := bg.Render(padRight("NAME", nameW), styles.FaintText.Bold(true)) + bg.Spaces(2) +
		bg.Render(padRight("VALUE", valueW), styles.FaintText.Bold(true))
	if stateW > 0 {
		header += bg.Spaces(2) + bg.Render("STATE", styles.FaintText.Bold(true))
	}

	lines := []string{bg.FillLine(header, width)}
	for i := start; i < end; i++ {
		selected := i == m.selectedRow
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatVariableRow(rows[i], nameW, valueW, stateW, rowBg, selected)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			MaxWidth(width).
			Render(content))
	}

	if m.snapshot.HasMore {
		footer := bg.Render("n", styles.AccentText) + bg.Sep(":") +
			bg.Render(fmt.Sprintf("Load more (%d of %d)", len(m.snapshot.Items), m.snapshot.TotalCount), styles.MutedText)
		lines = append(lines, bg.FillLine(footer, width))
	}

	return strings.Join(lines, "\n")
}

// variableColumns splits width into name, value and state columns.
func variableColumns(width int) (nameW, valueW, stateW int) {
	if width >= LayoutStateWidth {
		stateW = stateColumnSize
	}
	nameW = min(max(width/3, nameColumnMin), nameColumnMax)
	gaps := 2
	if stateW > 0 {
		gaps += 2
	}
	valueW = max(width-nameW-stateW-gaps, 1)
	return nameW, valueW, stateW
}

// formatVariableRow formats one variable row with inline colors.
// When selected is true, uses SelectionText color for all text to ensure contrast.
func (m Model) formatVariableRow(row state.Row, nameW, valueW, stateW int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	rs := rowState(row)

	var nameStyle, valueStyle, stateStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		nameStyle, valueStyle, stateStyle = selText.Bold(true), selText, selText
	} else {
		styles := m.theme.Styles()
		nameStyle = styles.Text.Bold(true)
		valueStyle = styles.MutedText
		if row.Pending {
			valueStyle = styles.WarningText
		}
		stateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.colorForState(rs)))
	}

	name := padRight(truncate(row.Variable.Name, nameW), nameW)
	value := padRight(truncate(singleLine(row.Variable.Value), valueW), valueW)

	line := bg.Render(name, nameStyle) + bg.Spaces(2) + bg.Render(value, valueStyle)
	if stateW > 0 && rs != "" {
		line += bg.Spaces(2)
		if rs == rowSaving || rs == rowLoading {
			line += m.spinner.View() + bg.Space()
		}
		line += bg.Render(rs, stateStyle)
	}
	return line
}

// colorForState returns the theme color for a row state.
func (m Model) colorForState(rs string) string {
	if color, ok := m.theme.StatusColors[rs]; ok {
		return color
	}
	return m.theme.Text
}

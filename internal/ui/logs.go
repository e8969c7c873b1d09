package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/five82/tern/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	entries  []logtail.Entry
	follow   bool
	minLevel zapcore.Level
	err      error
	loaded   bool
	dirty    bool
}

func newLogState() logState {
	return logState{follow: true, minLevel: zapcore.InfoLevel}
}

type logEntriesMsg struct {
	entries []logtail.Entry
	err     error
}

// refreshLogs reads the tail of the log file off the UI loop.
func (m Model) refreshLogs() tea.Cmd {
	path, level := m.logFile, m.logState.minLevel
	if path == "" || path == "-" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, LogTailLines, level)
		return logEntriesMsg{entries: entries, err: err}
	}
}

func (m *Model) handleLogEntries(msg logEntriesMsg) {
	m.logState.loaded = true
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.entries = msg.entries
	}
	m.logState.dirty = true
	m.updateLogViewport()
}

// updateLogViewport sizes the log viewport and re-renders it when the
// entries or theme changed.
func (m *Model) updateLogViewport() {
	width := max(m.width-4, 1)
	height := max(m.height-chromeHeight-2, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
		m.logState.dirty = true
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.dirty {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.dirty = false
	}

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		next := m.logState.minLevel + 1
		if next > zapcore.ErrorLevel {
			next = zapcore.DebugLevel
		}
		m.logState.minLevel = next
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Up):
		m.logState.follow = false
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logState.follow = false
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	}
	return m, nil
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	contentHeight := m.height - chromeHeight
	return m.renderTitledBox(m.logTitle(), m.logViewport.View(), m.width, contentHeight, true)
}

// logTitle returns the plain text title for the log view.
func (m Model) logTitle() string {
	title := fmt.Sprintf("Log ≥ %s", m.logState.minLevel.String())
	if m.logState.follow {
		title += " · following"
	}
	if m.logFile != "" {
		title += " · " + truncateMiddle(m.logFile, 48)
	}
	return title
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)

	switch {
	case m.logFile == "" || m.logFile == "-":
		return styles.MutedText.Render("Logging to stderr; no log file to show")
	case m.logState.err != nil:
		return styles.DangerText.Render("Log unavailable: " + m.logState.err.Error())
	case !m.logState.loaded:
		return styles.MutedText.Render("Loading log...")
	case len(m.logState.entries) == 0:
		return styles.MutedText.Render("No log entries")
	}

	lines := make([]string, 0, len(m.logState.entries))
	for _, entry := range m.logState.entries {
		lines = append(lines, m.formatLogEntry(entry, styles, bg))
	}
	return strings.Join(lines, "\n")
}

// formatLogEntry renders one entry as "time LEVEL logger message fields".
func (m Model) formatLogEntry(entry logtail.Entry, styles Styles, bg BgStyle) string {
	if !entry.Structured() {
		return bg.Render(entry.Raw, styles.Text)
	}

	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(bg.Render(entry.Time.Local().Format("15:04:05"), styles.FaintText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(padRight(entry.Level.CapitalString(), 5), m.levelStyle(entry.Level, styles).Bold(true)))
	if entry.Logger != "" {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(entry.Logger, styles.AccentText))
	}
	b.WriteString(bg.Space())
	b.WriteString(bg.Render("–", styles.FaintText))
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(entry.Message, styles.Text))
	if fields := entry.FieldString(); fields != "" {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(fields, styles.MutedText))
	}
	return b.String()
}

// levelStyle returns the style for a log level.
func (m Model) levelStyle(level zapcore.Level, styles Styles) lipgloss.Style {
	switch {
	case level >= zapcore.ErrorLevel:
		return styles.DangerText
	case level == zapcore.WarnLevel:
		return styles.WarningText
	case level == zapcore.InfoLevel:
		return styles.SuccessText
	case level == zapcore.DebugLevel:
		return styles.InfoText
	default:
		return styles.Text
	}
}

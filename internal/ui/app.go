package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/five82/tern/internal/prefs"
	"github.com/five82/tern/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewVariables View = iota
	ViewValue
	ViewLogs
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	cancel    context.CancelFunc
	store     *state.Store
	notices   *NoticeQueue
	logger    *zap.Logger
	prefs     prefs.Prefs
	prefsPath string
	logFile   string
	apiURL    string
	pollTick  time.Duration
	keys      keyMap

	feed        *snapshotFeed
	unsubscribe func()

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	now         time.Time

	// Data state
	snapshot state.Snapshot

	// Variables state
	selectedRow  int
	spinner      spinner.Model
	editWhenFull string // variable to open in the edit form once its full value arrives

	// Value state
	valueName     string
	valueViewport viewport.Model

	// Log state
	logViewport viewport.Model
	logState    logState

	// Notice banner
	notice      *Notice
	noticeUntil time.Time

	// Overlays
	modal    Modal
	showHelp bool
}

// New creates a new Bubble Tea model and subscribes it to the store.
// Call Close when the program exits.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	feed := newSnapshotFeed()
	unsubscribe := func() {}
	var snap state.Snapshot
	if opts.Store != nil {
		unsubscribe = opts.Store.Subscribe(feed.push)
		snap = opts.Store.Snapshot()
	}

	theme := GetTheme(opts.Prefs.Theme)
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning))

	return Model{
		ctx:         ctx,
		cancel:      cancel,
		store:       opts.Store,
		notices:     opts.Notices,
		logger:      logger,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		logFile:     opts.LogFile,
		apiURL:      opts.APIURL,
		pollTick:    DefaultUIInterval,
		keys:        DefaultKeyMap(),
		feed:        feed,
		unsubscribe: unsubscribe,
		theme:       theme,
		currentView: ViewVariables,
		now:         time.Now(),
		snapshot:    snap,
		spinner:     sp,
		logState:    newLogState(),
	}
}

// Close drops the store subscription and releases blocked commands.
func (m Model) Close() {
	m.unsubscribe()
	m.cancel()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
		waitForSnapshot(m.ctx, m.feed),
		waitForNotice(m.ctx, m.notices),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateValueViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		return m.applySnapshot(state.Snapshot(msg))

	case feedSnapshotMsg:
		next, cmd := m.applySnapshot(state.Snapshot(msg))
		return next, tea.Batch(cmd, waitForSnapshot(m.ctx, m.feed))

	case noticeMsg:
		m.setNotice(Notice(msg))
		return m, waitForNotice(m.ctx, m.notices)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionResultMsg:
		if msg.action == actionFullValue && msg.name != "" && msg.name == m.editWhenFull {
			if msg.err != nil {
				m.editWhenFull = ""
			} else if v, ok := m.snapshot.Find(msg.name); ok && !v.IsPreview && m.modal == nil {
				m.editWhenFull = ""
				return m.openEditFormFor(v)
			}
		}
		m.handleActionResult(msg)
		return m, nil

	case formSubmitMsg:
		return m.submitForm(msg)

	case scopeSelectedMsg:
		return m.switchScope(msg.scope)

	case logEntriesMsg:
		m.handleLogEntries(msg)
		return m, nil
	}

	// Cursor blink and similar messages belong to the open modal.
	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil

	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.ViewVariables):
		m.currentView = ViewVariables
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs() // Fetch immediately
	}

	switch m.currentView {
	case ViewVariables:
		return m.handleVariablesKey(msg)
	case ViewValue:
		return m.handleValueKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// handleTick expires the notice banner and keeps followed logs fresh.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	if m.notice != nil && !now.Before(m.noticeUntil) {
		m.notice = nil
	}

	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.currentView == ViewLogs && m.logState.follow {
		cmds = append(cmds, m.refreshLogs())
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot installs a newer snapshot, keeping the selection on the
// same variable where possible.
func (m Model) applySnapshot(snap state.Snapshot) (tea.Model, tea.Cmd) {
	if snap.Version < m.snapshot.Version {
		return m, nil
	}

	selected, hadSelection := m.selectedRowData()
	m.snapshot = snap

	rows := snap.Rows()
	if hadSelection {
		for i, row := range rows {
			if row.Variable.Name == selected.Variable.Name {
				m.selectedRow = i
				break
			}
		}
	}
	m.selectedRow = min(m.selectedRow, max(len(rows)-1, 0))

	m.updateValueViewport()

	if m.editWhenFull != "" && m.modal == nil {
		if v, ok := snap.Find(m.editWhenFull); ok && !v.IsPreview {
			m.editWhenFull = ""
			return m.openEditFormFor(v)
		}
	}
	return m, nil
}

// handleActionResult surfaces store errors that no notification covers.
func (m *Model) handleActionResult(msg actionResultMsg) {
	err := msg.err
	switch {
	case err == nil,
		errors.Is(err, state.ErrSuperseded),
		errors.Is(err, state.ErrDisposed),
		errors.Is(err, context.Canceled):
		return
	}

	var verrs state.ValidationErrors
	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		m.setLocalNotice(state.NotifyError, verrs[0].Message())
	case errors.Is(err, state.ErrOperationPending):
		m.setLocalNotice(state.NotifyError, "Another change is still being saved")
	case errors.Is(err, state.ErrNoScope):
		m.setLocalNotice(state.NotifyError, "Choose a flow node instance first (s)")
	case errors.Is(err, state.ErrUnknownVariable):
		m.setLocalNotice(state.NotifyError, "Variable no longer exists")
	default:
		// Fetch and save failures already produced a notification.
		m.logger.Debug("store action failed",
			zap.String("action", msg.action),
			zap.String("name", msg.name),
			zap.Error(err))
	}
}

func (m *Model) setNotice(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	m.notice = &n
	m.noticeUntil = n.At.Add(NoticeLifetime)
}

func (m *Model) setLocalNotice(kind state.NotificationKind, message string) {
	m.setNotice(Notice{Kind: kind, Message: message, At: m.now})
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning))
	m.prefs.Theme = m.theme.Name
	m.savePrefs()
	m.logState.dirty = true
	m.updateLogViewport()
	m.updateValueViewport()
}

func (m *Model) savePrefs() {
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", zap.String("path", m.prefsPath), zap.Error(err))
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var content string
	switch m.currentView {
	case ViewValue:
		content = m.renderValue()
	case ViewLogs:
		content = m.renderLogs()
	default:
		content = m.renderVariables()
	}

	return m.renderHeader() + "\n" +
		m.renderCommandBar() + "\n" +
		content + "\n" +
		m.renderNoticeLine()
}

// feedSnapshotMsg is a snapshot delivered through the subscription feed.
// Handling it re-arms the feed wait.
type feedSnapshotMsg state.Snapshot

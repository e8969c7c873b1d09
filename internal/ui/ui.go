package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/tern/internal/prefs"
	"github.com/five82/tern/internal/state"
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Notices   *NoticeQueue
	Logger    *zap.Logger
	Prefs     prefs.Prefs
	PrefsPath string
	LogFile   string
	APIURL    string
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Notice is a store notification waiting to be shown in the banner.
type Notice struct {
	Kind    state.NotificationKind
	Message string
	At      time.Time
}

// NoticeQueue is a state.Notifier that hands notifications to the UI.
// Notify never blocks; when the UI falls behind the oldest notice is
// dropped.
type NoticeQueue struct {
	ch chan Notice
}

// NewNoticeQueue returns an empty queue.
func NewNoticeQueue() *NoticeQueue {
	return &NoticeQueue{ch: make(chan Notice, 32)}
}

// Notify implements state.Notifier.
func (q *NoticeQueue) Notify(kind state.NotificationKind, message string) {
	n := Notice{Kind: kind, Message: message, At: time.Now()}
	for {
		select {
		case q.ch <- n:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// snapshotFeed carries store snapshots into the Bubble Tea loop. It holds
// at most one snapshot and a newer one replaces an unread older one, so the
// store's publisher never waits on the UI.
type snapshotFeed struct {
	ch chan state.Snapshot
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{ch: make(chan state.Snapshot, 1)}
}

func (f *snapshotFeed) push(snap state.Snapshot) {
	for {
		select {
		case f.ch <- snap:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type noticeMsg Notice

// actionResultMsg reports the return value of a store call made from the UI.
type actionResultMsg struct {
	action string
	name   string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForSnapshot blocks until the feed delivers a snapshot or ctx ends.
func waitForSnapshot(ctx context.Context, feed *snapshotFeed) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-feed.ch:
			return feedSnapshotMsg(snap)
		case <-ctx.Done():
			return nil
		}
	}
}

// waitForNotice blocks until the queue delivers a notice or ctx ends.
func waitForNotice(ctx context.Context, q *NoticeQueue) tea.Cmd {
	if q == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case n := <-q.ch:
			return noticeMsg(n)
		case <-ctx.Done():
			return nil
		}
	}
}

// storeCmd runs a store call off the UI loop and reports its error.
func storeCmd(action, name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: action, name: name, err: fn()}
	}
}

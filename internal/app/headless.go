package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

// Outcome is a notification captured for a headless command.
type Outcome struct {
	Kind    state.NotificationKind
	Message string
}

// Err converts an error outcome into an error.
func (o Outcome) Err() error {
	if o.Kind == state.NotifyError {
		return errors.New(o.Message)
	}
	return nil
}

// Outcomes is a state.Notifier that buffers notifications for headless
// commands. Notify never blocks; when the buffer is full the oldest
// notification is dropped.
type Outcomes struct {
	ch chan Outcome
}

// NewOutcomes returns an Outcomes buffer.
func NewOutcomes() *Outcomes {
	return &Outcomes{ch: make(chan Outcome, 16)}
}

// Notify implements state.Notifier.
func (o *Outcomes) Notify(kind state.NotificationKind, message string) {
	out := Outcome{Kind: kind, Message: message}
	for {
		select {
		case o.ch <- out:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

func (o *Outcomes) drain() {
	for {
		select {
		case <-o.ch:
		default:
			return
		}
	}
}

// List loads every variable of scope, following pages until the server has
// no more or the configured window is full.
func (s *Session) List(ctx context.Context, scope string) (state.Snapshot, error) {
	if err := s.Store.Fetch(ctx, scope); err != nil {
		return state.Snapshot{}, err
	}
	for {
		snap := s.Store.Snapshot()
		if len(snap.Items) >= s.Config.MaxItems {
			return snap, nil
		}
		more, err := s.nextPage(ctx, snap)
		if err != nil {
			return state.Snapshot{}, err
		}
		if !more {
			return s.Store.Snapshot(), nil
		}
	}
}

// Show returns one variable of scope with its full value.
func (s *Session) Show(ctx context.Context, scope, name string) (operate.Variable, error) {
	if err := s.Store.Fetch(ctx, scope); err != nil {
		return operate.Variable{}, err
	}
	for {
		snap := s.Store.Snapshot()
		if v, ok := snap.Find(name); ok {
			if !v.IsPreview {
				return v, nil
			}
			if err := s.Store.FetchFullValue(ctx, v.ID); err != nil {
				return operate.Variable{}, err
			}
			v, _ = s.Store.Snapshot().Find(name)
			return v, nil
		}
		more, err := s.nextPage(ctx, snap)
		if err != nil {
			return operate.Variable{}, err
		}
		if !more {
			return operate.Variable{}, fmt.Errorf("%w: %s", state.ErrUnknownVariable, name)
		}
	}
}

// nextPage loads the page after snap. It reports false when there is none:
// the server has no more, sent no cursor, or returned a page that moved
// neither the cursor nor the window.
func (s *Session) nextPage(ctx context.Context, snap state.Snapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !snap.HasMore || snap.NextCursor == "" {
		return false, nil
	}
	if err := s.Store.FetchNextPage(ctx); err != nil {
		return false, err
	}
	next := s.Store.Snapshot()
	if next.NextCursor == snap.NextCursor && len(next.Items) == len(snap.Items) {
		s.Logger.Warn("server reported more variables but the next page made no progress",
			zap.String("scope", snap.Scope),
			zap.String("cursor", snap.NextCursor))
		return false, nil
	}
	return true, nil
}

// Add creates a variable and waits until its operation settles.
func (s *Session) Add(ctx context.Context, outcomes *Outcomes, scope, name, value string) error {
	return s.mutate(ctx, outcomes, scope, func(ctx context.Context) error {
		return s.Store.Add(ctx, name, value)
	})
}

// Edit changes a variable and waits until its operation settles.
func (s *Session) Edit(ctx context.Context, outcomes *Outcomes, scope, name, value string) error {
	return s.mutate(ctx, outcomes, scope, func(ctx context.Context) error {
		return s.Store.Edit(ctx, name, value)
	})
}

// mutate submits a change and blocks until the store reports its outcome.
// Notifications that arrive while the change is still pending (a failed
// refetch, for example) are logged and skipped.
func (s *Session) mutate(ctx context.Context, outcomes *Outcomes, scope string, submit func(context.Context) error) error {
	if err := s.Store.Fetch(ctx, scope); err != nil {
		return err
	}
	outcomes.drain()

	if err := submit(ctx); err != nil {
		return err
	}
	if s.Store.Snapshot().Pending == nil {
		// Unchanged edit, or already settled.
		select {
		case out := <-outcomes.ch:
			return out.Err()
		default:
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-outcomes.ch:
			if s.Store.Snapshot().Pending != nil {
				s.Logger.Debug("notification while change pending", zap.String("message", out.Message))
				continue
			}
			return out.Err()
		}
	}
}

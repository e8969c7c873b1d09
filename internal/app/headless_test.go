package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/tern/internal/clock"
	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

func openTestSession(t *testing.T, backend *fakeService, clk clock.Clock, notifier state.Notifier) *Session {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TERN_API_URL", "")
	t.Setenv("TERN_TOKEN", "")
	dir := t.TempDir()
	sess, err := Open(Options{
		ConfigPath: filepath.Join(dir, "config.toml"),
		LogFile:    filepath.Join(dir, "tern.log"),
		Backend:    backend,
		Clock:      clk,
	}, notifier)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func TestSession_AddWaitsForOutcome(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: "1"})
	backend.ops = []operate.OperationState{operate.OperationCompleted}
	clk := clock.Fake(time.Unix(0, 0))
	outcomes := NewOutcomes()
	sess := openTestSession(t, backend, clk, outcomes)

	errc := make(chan error, 1)
	go func() { errc <- sess.Add(context.Background(), outcomes, "node-1", "b", "2") }()

	clk.WaitForTimers(1)
	backend.set("node-1",
		operate.Variable{ID: "1", Name: "a", Value: "1"},
		operate.Variable{ID: "2", Name: "b", Value: "2"})
	clk.Advance(sess.Config.OperationPollInterval)

	if err := <-errc; err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, ok := sess.Store.Snapshot().Find("b"); !ok {
		t.Fatal("b missing after completed add")
	}
}

func TestSession_AddReportsTimeout(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: "1"})
	clk := clock.Fake(time.Unix(0, 0))
	outcomes := NewOutcomes()
	sess := openTestSession(t, backend, clk, outcomes)

	errc := make(chan error, 1)
	go func() { errc <- sess.Add(context.Background(), outcomes, "node-1", "b", "2") }()

	for i := 0; i < sess.Config.OperationPollAttempts; i++ {
		clk.WaitForTimers(1)
		clk.Advance(sess.Config.OperationPollInterval)
	}

	err := <-errc
	if err == nil || !strings.Contains(err.Error(), `"b" could not be saved`) {
		t.Fatalf("Add err = %v, want save failure", err)
	}
}

func TestSession_AddValidationFailsFast(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: "1"})
	outcomes := NewOutcomes()
	sess := openTestSession(t, backend, clock.Fake(time.Unix(0, 0)), outcomes)

	err := sess.Add(context.Background(), outcomes, "node-1", "a", "not json")
	var verrs state.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Add err = %v, want ValidationErrors", err)
	}
	if !verrs.Has(state.CodeDuplicateName) || !verrs.Has(state.CodeInvalidValue) {
		t.Fatalf("codes = %v", verrs)
	}
}

func TestSession_EditUnchangedReturnsImmediately(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: `{"k":1}`})
	outcomes := NewOutcomes()
	sess := openTestSession(t, backend, clock.Fake(time.Unix(0, 0)), outcomes)

	if err := sess.Edit(context.Background(), outcomes, "node-1", "a", `{ "k": 1 }`); err != nil {
		t.Fatalf("Edit: %v", err)
	}
}

func TestSession_ShowFetchesFullValue(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "big", Value: `"ab`, IsPreview: true})
	backend.full["1"] = operate.Variable{ID: "1", Name: "big", Value: `"abcdef"`}
	sess := openTestSession(t, backend, clock.Fake(time.Unix(0, 0)), NewOutcomes())

	v, err := sess.Show(context.Background(), "node-1", "big")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if v.Value != `"abcdef"` || v.IsPreview {
		t.Fatalf("Show = %+v, want full value", v)
	}

	if _, err := sess.Show(context.Background(), "node-1", "missing"); !errors.Is(err, state.ErrUnknownVariable) {
		t.Fatalf("Show missing err = %v, want ErrUnknownVariable", err)
	}
}

func TestSession_PagingStopsWithoutProgress(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"more without cursor", ""},
		{"cursor never advances", "c1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeService()
			backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: "1"})
			backend.hasMore = true
			backend.cursor = tc.cursor
			sess := openTestSession(t, backend, clock.Fake(time.Unix(0, 0)), NewOutcomes())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if _, err := sess.Show(ctx, "node-1", "missing"); !errors.Is(err, state.ErrUnknownVariable) {
				t.Fatalf("Show missing err = %v, want ErrUnknownVariable", err)
			}
			snap, err := sess.List(ctx, "node-1")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(snap.Items) != 1 {
				t.Fatalf("List items = %d, want 1", len(snap.Items))
			}
			if n := backend.lists(); n > 4 {
				t.Fatalf("list requests = %d, want at most 4", n)
			}
		})
	}
}

func TestSession_ShowStopsWhenCancelled(t *testing.T) {
	backend := newFakeService()
	backend.set("node-1", operate.Variable{ID: "1", Name: "a", Value: "1"})
	backend.hasMore = true
	backend.cursor = "c1"
	sess := openTestSession(t, backend, clock.Fake(time.Unix(0, 0)), NewOutcomes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sess.Show(ctx, "node-1", "missing"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Show err = %v, want context.Canceled", err)
	}
}

func TestOutcomes_DropsOldestWhenFull(t *testing.T) {
	o := NewOutcomes()
	for i := 0; i < cap(o.ch)+3; i++ {
		o.Notify(state.NotifySuccess, "ok")
	}
	o.Notify(state.NotifyError, "last")
	if len(o.ch) != cap(o.ch) {
		t.Fatalf("buffer len = %d, want %d", len(o.ch), cap(o.ch))
	}
	var last Outcome
	for len(o.ch) > 0 {
		last = <-o.ch
	}
	if last.Err() == nil || last.Message != "last" {
		t.Fatalf("last outcome = %+v", last)
	}
}

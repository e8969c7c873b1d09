package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/five82/tern/internal/clock"
	"github.com/five82/tern/internal/operate"
)

// fakeBackend is an in-memory VariableService. List responses are keyed by
// scope and cursor; operation states are consumed in order and default to
// PENDING once exhausted.
type fakeBackend struct {
	mu sync.Mutex

	pages   map[string]operate.VariablePage
	listErr error
	gates   map[string]chan struct{}
	started chan string

	createErr error
	updateErr error
	ops       []operate.Operation
	opErr     error
	full      map[string]operate.Variable
	fullErr   error
	fullErrs  map[string]error

	listCalls   int
	createCalls int
	updateCalls int
	opCalls     int
	fullCalls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages:    make(map[string]operate.VariablePage),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 16),
		full:     make(map[string]operate.Variable),
		fullErrs: make(map[string]error),
	}
}

func (f *fakeBackend) setItems(scope string, items ...operate.Variable) {
	f.setPage(scope, "", operate.VariablePage{Items: items, TotalCount: len(items)})
}

func (f *fakeBackend) setPage(scope, cursor string, page operate.VariablePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[scope+"|"+cursor] = page
}

func (f *fakeBackend) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeBackend) setOps(states ...operate.OperationState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
	for _, st := range states {
		f.ops = append(f.ops, operate.Operation{ID: "op-1", State: st})
	}
}

// gate makes requests for key (a scope, or a variable id for full values)
// block until release is called or the returned channel is closed. Gating a
// key again leaves earlier requests on the previous channel.
func (f *fakeBackend) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeBackend) release(scope string) {
	f.mu.Lock()
	ch := f.gates[scope]
	delete(f.gates, scope)
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (f *fakeBackend) counts() (list, create, update, op, full int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, f.updateCalls, f.opCalls, f.fullCalls
}

func (f *fakeBackend) FetchVariables(_ context.Context, q operate.VariableQuery) (operate.VariablePage, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.gates[q.ScopeID]
	f.mu.Unlock()

	if gate != nil {
		f.started <- q.ScopeID
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return operate.VariablePage{}, f.listErr
	}
	page := f.pages[q.ScopeID+"|"+q.Cursor]
	page.Items = append([]operate.Variable(nil), page.Items...)
	return page, nil
}

func (f *fakeBackend) FetchVariable(_ context.Context, id string) (operate.Variable, error) {
	f.mu.Lock()
	f.fullCalls++
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		f.started <- id
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fullErrs[id]; err != nil {
		return operate.Variable{}, err
	}
	if f.fullErr != nil {
		return operate.Variable{}, f.fullErr
	}
	v, ok := f.full[id]
	if !ok {
		return operate.Variable{}, &operate.APIError{Path: "/api/variables/" + id, StatusCode: 404}
	}
	return v, nil
}

func (f *fakeBackend) CreateVariable(_ context.Context, _, _, _ string) (operate.OperationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return operate.OperationHandle{}, f.createErr
	}
	return operate.OperationHandle{OperationID: fmt.Sprintf("op-%d", f.createCalls+f.updateCalls)}, nil
}

func (f *fakeBackend) UpdateVariable(_ context.Context, _, _ string) (operate.OperationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return operate.OperationHandle{}, f.updateErr
	}
	return operate.OperationHandle{OperationID: fmt.Sprintf("op-%d", f.createCalls+f.updateCalls)}, nil
}

func (f *fakeBackend) FetchOperation(_ context.Context, id string) (operate.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opCalls++
	if f.opErr != nil {
		return operate.Operation{}, f.opErr
	}
	if len(f.ops) == 0 {
		return operate.Operation{ID: id, State: operate.OperationPending}, nil
	}
	op := f.ops[0]
	f.ops = f.ops[1:]
	op.ID = id
	return op, nil
}

type recordedNote struct {
	Kind    NotificationKind
	Message string
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []recordedNote
}

func (r *noteRecorder) Notify(kind NotificationKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, recordedNote{kind, message})
}

func (r *noteRecorder) all() []recordedNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedNote(nil), r.notes...)
}

func (r *noteRecorder) count(kind NotificationKind) int {
	n := 0
	for _, note := range r.all() {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

const testPollInterval = time.Second

type harness struct {
	store   *Store
	backend *fakeBackend
	clock   *clock.FakeClock
	notes   *noteRecorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		clock:   clock.Fake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
		notes:   &noteRecorder{},
	}
	base := []Option{
		WithClock(h.clock),
		WithNotifier(h.notes),
		WithOperationPolling(testPollInterval, 3),
	}
	h.store = New(h.backend, append(base, opts...)...)
	t.Cleanup(h.store.Dispose)
	return h
}

func variable(name, value string) operate.Variable {
	return operate.Variable{ID: "id-" + name, Name: name, Value: value}
}

package app

import (
	"context"
	"errors"
	"sync"

	"github.com/five82/tern/internal/operate"
)

// fakeService is a minimal in-memory VariableService.
type fakeService struct {
	mu        sync.Mutex
	items     map[string][]operate.Variable
	full      map[string]operate.Variable
	listErr   error
	ops       []operate.OperationState
	listCalls int

	// hasMore and cursor are reported on every list page.
	hasMore bool
	cursor  string
}

func newFakeService() *fakeService {
	return &fakeService{items: make(map[string][]operate.Variable), full: make(map[string]operate.Variable)}
}

func (f *fakeService) set(scope string, items ...operate.Variable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[scope] = items
}

func (f *fakeService) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeService) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeService) FetchVariables(_ context.Context, q operate.VariableQuery) (operate.VariablePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return operate.VariablePage{}, f.listErr
	}
	items := append([]operate.Variable(nil), f.items[q.ScopeID]...)
	return operate.VariablePage{Items: items, TotalCount: len(items), HasMore: f.hasMore, NextCursor: f.cursor}, nil
}

func (f *fakeService) FetchVariable(_ context.Context, id string) (operate.Variable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.full[id]
	if !ok {
		return operate.Variable{}, errors.New("not found")
	}
	return v, nil
}

func (f *fakeService) CreateVariable(context.Context, string, string, string) (operate.OperationHandle, error) {
	return operate.OperationHandle{OperationID: "op-1"}, nil
}

func (f *fakeService) UpdateVariable(context.Context, string, string) (operate.OperationHandle, error) {
	return operate.OperationHandle{OperationID: "op-2"}, nil
}

func (f *fakeService) FetchOperation(_ context.Context, id string) (operate.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ops) == 0 {
		return operate.Operation{ID: id, State: operate.OperationPending}, nil
	}
	st := f.ops[0]
	f.ops = f.ops[1:]
	return operate.Operation{ID: id, State: st}, nil
}

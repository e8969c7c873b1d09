package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/five82/tern/internal/clock"
	"github.com/five82/tern/internal/operate"
)

var (
	ErrOperationPending = errors.New("a variable change is already in progress")
	ErrUnknownVariable  = errors.New("variable not found in current scope")
	ErrNoScope          = errors.New("no scope selected")
	ErrDisposed         = errors.New("store disposed")
	ErrSuperseded       = errors.New("result superseded by a newer request")
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 3
	DefaultPageSize     = 50
	DefaultMaxItems     = 200
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the real clock, typically with clock.Fake in tests.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotifier sets the collaborator that receives success and error outcomes.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOperationPolling bounds how a pending change is polled: every interval,
// at most attempts times. Non-positive values keep the defaults.
func WithOperationPolling(interval time.Duration, attempts int) Option {
	return func(s *Store) {
		if interval > 0 {
			s.pollInterval = interval
		}
		if attempts > 0 {
			s.pollAttempts = attempts
		}
	}
}

// WithPageSize sets how many variables each list request asks for.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxItems caps the window of variables kept while paging forward.
func WithMaxItems(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// Store mirrors the variables of one scope and drives optimistic changes to
// them. All methods are safe for concurrent use; the lock is never held
// across a request.
type Store struct {
	backend  operate.VariableService
	clock    clock.Clock
	notifier Notifier
	logger   *zap.Logger

	pollInterval time.Duration
	pollAttempts int
	pageSize     int
	maxItems     int

	mu        sync.Mutex
	state     Snapshot
	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
	fetchSeq  uint64
	opToken   uint64
	settled   uint64 // opToken whose operation completed, awaiting a refetch
	pollTimer clock.Timer
	disposed  bool
	subs      map[int]func(Snapshot)
	nextSub   int

	publishMu sync.Mutex
	published uint64

	fullValues singleflight.Group
}

// New builds a Store over backend.
func New(backend operate.VariableService, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		clock:        clock.Real(),
		notifier:     discardNotifier{},
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		pageSize:     DefaultPageSize,
		maxItems:     DefaultMaxItems,
		subs:         make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Status = StatusInitial
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new snapshot. Snapshots are
// delivered in order; fn must not block or call back into the store's
// mutating methods. The returned func unregisters fn.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || fn == nil {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Fetch loads the first page of variables for scope. Selecting a scope other
// than the current one abandons everything tied to the previous scope: its
// poll loop, in-flight requests, pending placeholder and loading marker.
func (s *Store) Fetch(ctx context.Context, scope string) error {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return ErrNoScope
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if scope != s.state.Scope {
		s.switchScopeLocked(scope)
	}
	return s.fetchLocked(ctx, "")
}

// Refresh reloads the first page of the current scope.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	return s.fetchLocked(ctx, "")
}

// FetchNextPage appends the next page of the current scope. It is a no-op
// when the server reported no further pages or a list request is running.
func (s *Store) FetchNextPage(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.state.HasMore || s.state.NextCursor == "" || s.state.Status.Loading() {
		s.mu.Unlock()
		return nil
	}
	return s.fetchLocked(ctx, s.state.NextCursor)
}

// fetchLocked must be called with s.mu held; it returns with s.mu released.
func (s *Store) fetchLocked(ctx context.Context, cursor string) error {
	s.fetchSeq++
	seq, gen, scope, genCtx := s.fetchSeq, s.gen, s.state.Scope, s.genCtx

	switch {
	case cursor != "":
		s.state.Status = StatusFetching
	case s.state.Status == StatusInitial || s.state.Status == StatusFirstFetch:
		s.state.Status = StatusFirstFetch
	default:
		s.state.Status = StatusRefetching
	}
	snap := s.commitLocked()
	s.mu.Unlock()
	s.emit(snap)

	reqCtx, cancel := requestContext(ctx, genCtx)
	page, err := s.backend.FetchVariables(reqCtx, operate.VariableQuery{
		ScopeID:  scope,
		Cursor:   cursor,
		PageSize: s.pageSize,
	})
	cancel()

	s.mu.Lock()
	if s.disposed || gen != s.gen || seq != s.fetchSeq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale variable page", zap.String("scope", scope), zap.Uint64("seq", seq))
		return ErrSuperseded
	}

	s.state.LastUpdated = s.clock.Now()
	if err != nil {
		var notes []notification
		if s.state.FetchError == nil {
			notes = append(notes, notification{NotifyError, "Variables could not be fetched"})
		}
		s.state.FetchError = err
		s.state.Status = StatusError
		s.state.ConsecutiveFailures++
		if note, ok := s.settlePendingLocked(); ok {
			notes = append(notes, note)
		}
		snap := s.commitLocked()
		s.mu.Unlock()
		s.logger.Warn("variable fetch failed", zap.String("scope", scope), zap.Error(err))
		s.emit(snap, notes...)
		return fmt.Errorf("fetch variables: %w", err)
	}

	items := normalizeItems(scope, page.Items)
	if cursor == "" {
		s.state.Items = items
	} else {
		s.state.Items = s.mergeItems(s.state.Items, items)
	}
	s.state.HasMore = page.HasMore
	s.state.TotalCount = page.TotalCount
	s.state.NextCursor = page.NextCursor
	s.state.FetchError = nil
	s.state.Status = StatusFetched
	s.state.ConsecutiveFailures = 0
	if s.state.LoadingItemID != "" {
		if _, ok := s.findByIDLocked(s.state.LoadingItemID); !ok {
			s.state.LoadingItemID = ""
		}
	}

	var notes []notification
	if note, ok := s.reconcilePendingLocked(); ok {
		notes = append(notes, note)
	} else if note, ok := s.settlePendingLocked(); ok {
		notes = append(notes, note)
	}
	snap = s.commitLocked()
	s.mu.Unlock()
	s.logger.Debug("variables fetched",
		zap.String("scope", scope),
		zap.Int("items", len(snap.Items)),
		zap.Bool("has_more", snap.HasMore))
	s.emit(snap, notes...)
	return nil
}

// reconcilePendingLocked resolves the pending change early when the server
// already reports it applied and idle.
func (s *Store) reconcilePendingLocked() (notification, bool) {
	p := s.state.Pending
	if p == nil {
		return notification{}, false
	}
	item, ok := s.state.Find(p.Name)
	if !ok || item.HasActiveOperation {
		return notification{}, false
	}
	if p.Kind == PendingEdit && (item.IsPreview || !sameJSON(item.Value, p.Value)) {
		return notification{}, false
	}
	s.clearPendingLocked()
	s.logger.Info("variable change observed before operation settled",
		zap.String("name", p.Name), zap.String("operation", p.OperationID))
	return successNote(p), true
}

// settlePendingLocked clears a pending change whose operation already
// completed once a current fetch has landed.
func (s *Store) settlePendingLocked() (notification, bool) {
	p := s.state.Pending
	if p == nil || s.settled != s.opToken {
		return notification{}, false
	}
	s.clearPendingLocked()
	return successNote(p), true
}

// Add optimistically inserts a variable into the current scope and submits it.
// Validation failures are returned as ValidationErrors without any request.
// Submission failures roll the placeholder back, emit an error notification
// and are returned wrapped.
func (s *Store) Add(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state.Pending != nil {
		s.mu.Unlock()
		return ErrOperationPending
	}
	if errs := Validate(name, value, s.state.Items); len(errs) > 0 {
		s.mu.Unlock()
		s.logger.Debug("variable add rejected locally", zap.String("name", name), zap.Error(errs))
		return errs
	}
	p := &Pending{Kind: PendingAdd, Name: name, Value: value, HasActiveOperation: true}
	return s.submitLocked(ctx, p, func(ctx context.Context, scope string) (operate.OperationHandle, error) {
		return s.backend.CreateVariable(ctx, scope, name, value)
	})
}

// Edit optimistically changes the value of an existing variable. An
// unchanged value is a no-op.
func (s *Store) Edit(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state.Pending != nil {
		s.mu.Unlock()
		return ErrOperationPending
	}
	item, ok := s.state.Find(name)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	if errs := ValidateValue(value); len(errs) > 0 {
		s.mu.Unlock()
		s.logger.Debug("variable edit rejected locally", zap.String("name", name), zap.Error(errs))
		return errs
	}
	if !item.IsPreview && sameJSON(item.Value, value) {
		s.mu.Unlock()
		return nil
	}
	p := &Pending{Kind: PendingEdit, Name: name, Value: value, VariableID: item.ID, HasActiveOperation: true}
	return s.submitLocked(ctx, p, func(ctx context.Context, _ string) (operate.OperationHandle, error) {
		return s.backend.UpdateVariable(ctx, item.ID, value)
	})
}

type submitFunc func(ctx context.Context, scope string) (operate.OperationHandle, error)

// submitLocked must be called with s.mu held; it returns with s.mu released.
func (s *Store) submitLocked(ctx context.Context, p *Pending, send submitFunc) error {
	s.opToken++
	token, gen, scope, genCtx := s.opToken, s.gen, s.state.Scope, s.genCtx
	s.state.Pending = p
	snap := s.commitLocked()
	s.mu.Unlock()
	s.emit(snap)

	s.logger.Info("submitting variable change",
		zap.String("kind", p.Kind.String()),
		zap.String("scope", scope),
		zap.String("name", p.Name))

	reqCtx, cancel := requestContext(ctx, genCtx)
	handle, err := send(reqCtx, scope)
	cancel()

	s.mu.Lock()
	if !s.ownsPendingLocked(token, gen) {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		s.clearPendingLocked()
		msg := saveFailedMessage(p.Name)
		if apiErr, ok := operate.AsAPIError(err); ok && apiErr.Rejected() {
			msg = rejectedMessage(p.Name, apiErr)
		}
		snap := s.commitLocked()
		s.mu.Unlock()
		s.logger.Warn("variable change rejected", zap.String("name", p.Name), zap.Error(err))
		s.emit(snap, notification{NotifyError, msg})
		return fmt.Errorf("%s variable %q: %w", p.Kind, p.Name, err)
	}

	s.state.Pending.OperationID = handle.OperationID
	s.schedulePollLocked(token, gen)
	snap = s.commitLocked()
	s.mu.Unlock()
	s.logger.Info("variable change accepted", zap.String("name", p.Name), zap.String("operation", handle.OperationID))
	s.emit(snap)
	return nil
}

func (s *Store) schedulePollLocked(token, gen uint64) {
	opID := s.state.Pending.OperationID
	s.pollTimer = s.clock.AfterFunc(s.pollInterval, func() {
		s.pollOperation(token, gen, opID)
	})
}

func (s *Store) pollOperation(token, gen uint64, opID string) {
	s.mu.Lock()
	if !s.ownsPendingLocked(token, gen) {
		s.mu.Unlock()
		return
	}
	s.pollTimer = nil
	genCtx := s.genCtx
	s.mu.Unlock()

	op, err := s.backend.FetchOperation(genCtx, opID)

	s.mu.Lock()
	if !s.ownsPendingLocked(token, gen) {
		s.mu.Unlock()
		return
	}
	p := s.state.Pending
	p.Attempts++

	switch {
	case err == nil && op.State == operate.OperationCompleted:
		s.settled = token
		snap := s.commitLocked()
		s.mu.Unlock()
		s.emit(snap)
		s.completePending(token, gen)

	case err == nil && op.State == operate.OperationFailed:
		s.clearPendingLocked()
		msg := saveFailedMessage(p.Name)
		if op.ErrorMessage != "" {
			msg = msg + ": " + op.ErrorMessage
		}
		snap := s.commitLocked()
		s.mu.Unlock()
		s.logger.Warn("variable operation failed", zap.String("operation", opID), zap.String("reason", op.ErrorMessage))
		s.emit(snap, notification{NotifyError, msg})

	case p.Attempts >= s.pollAttempts:
		s.clearPendingLocked()
		snap := s.commitLocked()
		s.mu.Unlock()
		s.logger.Warn("variable operation did not settle",
			zap.String("operation", opID),
			zap.Int("attempts", p.Attempts),
			zap.Error(err))
		s.emit(snap, notification{NotifyError, saveFailedMessage(p.Name)})

	default:
		if err != nil {
			s.logger.Warn("operation poll failed", zap.String("operation", opID), zap.Error(err))
		}
		s.schedulePollLocked(token, gen)
		snap := s.commitLocked()
		s.mu.Unlock()
		s.emit(snap)
	}
}

// completePending refetches the scope. The fetch that lands clears the
// pending change; when this refetch is superseded, the newer one does.
func (s *Store) completePending(token, gen uint64) {
	err := s.Refresh(context.Background())
	if errors.Is(err, ErrSuperseded) {
		return
	}
	if err != nil {
		s.logger.Warn("refetch after completed operation failed", zap.Error(err))
	}

	s.mu.Lock()
	if !s.ownsPendingLocked(token, gen) {
		s.mu.Unlock()
		return
	}
	p := *s.state.Pending
	s.clearPendingLocked()
	snap := s.commitLocked()
	s.mu.Unlock()
	s.emit(snap, successNote(&p))
}

// FetchFullValue replaces a preview value with the complete one. Failures
// keep the preview and emit a non-fatal notification.
func (s *Store) FetchFullValue(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	item, ok := s.findByIDLocked(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: id %s", ErrUnknownVariable, id)
	}
	if !item.IsPreview {
		s.mu.Unlock()
		return nil
	}
	gen, genCtx := s.gen, s.genCtx
	s.state.LoadingItemID = id
	snap := s.commitLocked()
	s.mu.Unlock()
	s.emit(snap)

	key := strconv.FormatUint(gen, 10) + "/" + id
	// Coalesced callers share one result; only the caller that issued the
	// request reports its failure.
	leader := false
	v, err, _ := s.fullValues.Do(key, func() (any, error) {
		leader = true
		reqCtx, cancel := requestContext(ctx, genCtx)
		defer cancel()
		return s.backend.FetchVariable(reqCtx, id)
	})

	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if s.state.LoadingItemID == id {
		s.state.LoadingItemID = ""
	}
	if err != nil {
		var notes []notification
		if leader {
			notes = append(notes, notification{NotifyError, fmt.Sprintf("Full value of %q could not be fetched", item.Name)})
		}
		snap := s.commitLocked()
		s.mu.Unlock()
		s.logger.Warn("full value fetch failed", zap.String("id", id), zap.Error(err))
		s.emit(snap, notes...)
		return fmt.Errorf("fetch full value of %q: %w", item.Name, err)
	}
	full := v.(operate.Variable)
	for i := range s.state.Items {
		if s.state.Items[i].ID == id {
			s.state.Items[i].Value = full.Value
			s.state.Items[i].IsPreview = false
		}
	}
	snap = s.commitLocked()
	s.mu.Unlock()
	s.emit(snap)
	return nil
}

// Reset cancels all outstanding work and returns the store to its initial
// state. Subscribers stay registered.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.endGenerationLocked()
	s.startGenerationLocked()
	s.state = Snapshot{Status: StatusInitial, Version: s.state.Version}
	snap := s.commitLocked()
	s.mu.Unlock()
	s.emit(snap)
}

// Dispose resets the store and drops all subscribers. Further calls return
// ErrDisposed.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.endGenerationLocked()
	s.disposed = true
	s.state = Snapshot{Status: StatusInitial, Version: s.state.Version + 1}
	s.subs = nil
}

func (s *Store) readyLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.state.Scope == "" {
		return ErrNoScope
	}
	return nil
}

func (s *Store) switchScopeLocked(scope string) {
	prev := s.state.Scope
	s.endGenerationLocked()
	s.startGenerationLocked()
	s.state.Scope = scope
	s.state.Items = nil
	s.state.Pending = nil
	s.state.LoadingItemID = ""
	s.state.HasMore = false
	s.state.TotalCount = 0
	s.state.NextCursor = ""
	s.state.FetchError = nil
	if prev != "" {
		s.logger.Debug("scope changed", zap.String("from", prev), zap.String("to", scope))
	}
}

func (s *Store) endGenerationLocked() {
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}
	s.genCancel()
	s.gen++
	s.opToken++
	s.fetchSeq++
}

func (s *Store) startGenerationLocked() {
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
}

func (s *Store) ownsPendingLocked(token, gen uint64) bool {
	return !s.disposed && gen == s.gen && token == s.opToken && s.state.Pending != nil
}

func (s *Store) clearPendingLocked() {
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}
	s.state.Pending = nil
	s.opToken++
	s.settled = 0
}

func (s *Store) findByIDLocked(id string) (operate.Variable, bool) {
	for _, item := range s.state.Items {
		if item.ID == id {
			return item, true
		}
	}
	return operate.Variable{}, false
}

// mergeItems folds a later page into the window, replacing rows by name and
// trimming the oldest rows beyond maxItems.
func (s *Store) mergeItems(current, page []operate.Variable) []operate.Variable {
	merged := cloneItems(current)
	index := make(map[string]int, len(merged))
	for i, item := range merged {
		index[item.Name] = i
	}
	for _, item := range page {
		if i, ok := index[item.Name]; ok {
			merged[i] = item
			continue
		}
		index[item.Name] = len(merged)
		merged = append(merged, item)
	}
	if over := len(merged) - s.maxItems; over > 0 {
		merged = merged[over:]
	}
	return merged
}

func (s *Store) commitLocked() Snapshot {
	s.state.Version++
	return s.state.clone()
}

// emit delivers snap to subscribers unless a newer snapshot already went out,
// then hands notifications to the notifier.
func (s *Store) emit(snap Snapshot, notes ...notification) {
	s.publishMu.Lock()
	if snap.Version > s.published {
		s.published = snap.Version
		s.mu.Lock()
		subs := make([]func(Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()
		for _, fn := range subs {
			fn(snap)
		}
	}
	s.publishMu.Unlock()

	for _, n := range notes {
		s.notifier.Notify(n.kind, n.message)
	}
}

// normalizeItems drops repeated names and fills in a missing scope id.
func normalizeItems(scope string, items []operate.Variable) []operate.Variable {
	if len(items) == 0 {
		return nil
	}
	out := make([]operate.Variable, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Name]; dup {
			continue
		}
		seen[item.Name] = struct{}{}
		if item.ScopeID == "" {
			item.ScopeID = scope
		}
		out = append(out, item)
	}
	return out
}

// requestContext derives a request context cancelled by either the caller or
// the end of the generation that issued it.
func requestContext(parent, generation context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(generation, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func successNote(p *Pending) notification {
	verb := "added"
	if p.Kind == PendingEdit {
		verb = "updated"
	}
	return notification{NotifySuccess, fmt.Sprintf("Variable %q %s", p.Name, verb)}
}

func saveFailedMessage(name string) string {
	return fmt.Sprintf("Variable %q could not be saved", name)
}

func rejectedMessage(name string, apiErr *operate.APIError) string {
	if apiErr.Message != "" {
		return fmt.Sprintf("Variable %q was rejected by the server: %s", name, apiErr.Message)
	}
	return fmt.Sprintf("Variable %q was rejected by the server (status %d)", name, apiErr.StatusCode)
}

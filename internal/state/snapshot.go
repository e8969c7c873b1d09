package state

import (
	"fmt"
	"time"

	"github.com/five82/tern/internal/operate"
)

// Status is the fetch lifecycle of a Store.
type Status string

const (
	StatusInitial    Status = "initial"
	StatusFirstFetch Status = "first-fetch"
	StatusFetching   Status = "fetching"
	StatusFetched    Status = "fetched"
	StatusRefetching Status = "refetching"
	StatusError      Status = "error"
)

// Loading reports whether a list request is outstanding.
func (s Status) Loading() bool {
	return s == StatusFirstFetch || s == StatusFetching || s == StatusRefetching
}

// PendingKind distinguishes an optimistic add from an optimistic edit.
type PendingKind int

const (
	PendingAdd PendingKind = iota
	PendingEdit
)

func (k PendingKind) String() string {
	if k == PendingEdit {
		return "edit"
	}
	return "add"
}

// Pending is the local placeholder for a mutation whose server operation has
// not settled yet.
type Pending struct {
	Kind               PendingKind
	Name               string
	Value              string
	VariableID         string // set for edits
	OperationID        string // empty until the server accepted the request
	Attempts           int    // operation status polls made so far
	HasActiveOperation bool
}

// Snapshot is an immutable view of a Store at one point in time.
type Snapshot struct {
	Scope         string
	Items         []operate.Variable
	Pending       *Pending
	LoadingItemID string
	Status        Status
	FetchError    error
	HasMore       bool
	TotalCount    int
	NextCursor    string
	LastUpdated   time.Time

	ConsecutiveFailures int
	Version             uint64
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Row is one line of the composed variable list.
type Row struct {
	Variable operate.Variable
	Pending  bool
	Loading  bool
}

// Rows composes confirmed items with the pending placeholder. A pending edit
// overlays the row it edits; a pending add is appended unless the server
// already lists the name, in which case it overlays that row.
func (s Snapshot) Rows() []Row {
	rows := make([]Row, 0, len(s.Items)+1)
	overlaid := false
	for _, item := range s.Items {
		row := Row{Variable: item, Loading: s.LoadingItemID != "" && item.ID == s.LoadingItemID}
		if p := s.Pending; p != nil && item.Name == p.Name {
			row.Variable.Value = p.Value
			row.Variable.IsPreview = false
			row.Variable.HasActiveOperation = true
			row.Pending = true
			overlaid = true
		}
		rows = append(rows, row)
	}
	if p := s.Pending; p != nil && !overlaid && p.Kind == PendingAdd {
		rows = append(rows, Row{
			Variable: operate.Variable{
				Name:               p.Name,
				Value:              p.Value,
				ScopeID:            s.Scope,
				HasActiveOperation: true,
			},
			Pending: true,
		})
	}
	return rows
}

// Find returns the confirmed item with the given name.
func (s Snapshot) Find(name string) (operate.Variable, bool) {
	for _, item := range s.Items {
		if item.Name == name {
			return item, true
		}
	}
	return operate.Variable{}, false
}

func (s Snapshot) clone() Snapshot {
	dup := s
	dup.Items = cloneItems(s.Items)
	if s.Pending != nil {
		p := *s.Pending
		dup.Pending = &p
	}
	if s.FetchError != nil {
		dup.FetchError = fmt.Errorf("%w", s.FetchError)
	}
	return dup
}

func cloneItems(items []operate.Variable) []operate.Variable {
	if len(items) == 0 {
		return nil
	}
	dup := make([]operate.Variable, len(items))
	copy(dup, items)
	return dup
}

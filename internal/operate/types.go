package operate

import (
	"encoding/json"
	"strings"
	"time"
)

// Variable mirrors a variable as returned by /api/variables.
type Variable struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Value              string `json:"value"`
	ScopeID            string `json:"scopeId"`
	HasActiveOperation bool   `json:"hasActiveOperation"`
	IsPreview          bool   `json:"isPreview"`
}

// VariablePage is one page of the variable list endpoint.
type VariablePage struct {
	Items      []Variable `json:"items"`
	TotalCount int        `json:"totalCount"`
	HasMore    bool       `json:"hasMore"`
	NextCursor string     `json:"nextCursor"`
}

// VariableQuery configures a list request.
type VariableQuery struct {
	ScopeID  string
	Cursor   string
	PageSize int
}

// OperationState is the lifecycle state of an asynchronous server operation.
type OperationState string

const (
	OperationPending   OperationState = "PENDING"
	OperationCompleted OperationState = "COMPLETED"
	OperationFailed    OperationState = "FAILED"
)

// Terminal reports whether the state is final.
func (s OperationState) Terminal() bool {
	return s == OperationCompleted || s == OperationFailed
}

// UnmarshalJSON accepts any casing and treats unknown states as pending so a
// newer server vocabulary keeps the poll loop going instead of failing it.
func (s *OperationState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch state := OperationState(strings.ToUpper(strings.TrimSpace(raw))); state {
	case OperationCompleted, OperationFailed:
		*s = state
	default:
		*s = OperationPending
	}
	return nil
}

// Operation mirrors /api/operations/{id}.
type Operation struct {
	ID           string         `json:"id"`
	State        OperationState `json:"state"`
	ErrorMessage string         `json:"errorMessage"`
	CompletedAt  string         `json:"completedDate"`
}

// ParsedCompletedAt returns CompletedAt as time.Time, zero when absent or malformed.
func (o Operation) ParsedCompletedAt() time.Time {
	if o.CompletedAt == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, o.CompletedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// OperationHandle is returned by mutating endpoints.
type OperationHandle struct {
	OperationID string `json:"operationId"`
}

type createVariableRequest struct {
	ScopeID string `json:"scopeId"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

type updateVariableRequest struct {
	Value string `json:"value"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

package operate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != defaultAPIURL {
		t.Fatalf("url = %q, want http://%s", u.String(), defaultAPIURL)
	}

	u, err = parseBaseURL("https://operate.example.com:8443/v1?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_VariableEndpoints(t *testing.T) {
	t.Parallel()

	var (
		gotListQuery url.Values
		gotCreate    createVariableRequest
		gotUpdate    updateVariableRequest
		gotUpdateID  string
		gotAuth      string
		gotAgent     string
		gotRequestID string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/variables":
			gotListQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(VariablePage{
				Items:      []Variable{{ID: "v1", Name: "a", Value: "1", ScopeID: "scope-1"}},
				TotalCount: 2,
				HasMore:    true,
				NextCursor: "c2",
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/variables":
			_ = json.NewDecoder(r.Body).Decode(&gotCreate)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(OperationHandle{OperationID: "op-1"})
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/variables/"):
			gotUpdateID = strings.TrimPrefix(r.URL.Path, "/api/variables/")
			_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(OperationHandle{OperationID: "op-2"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/variables/"):
			_ = json.NewEncoder(w).Encode(Variable{ID: "v1", Name: "a", Value: `"full"`})
		case r.Method == http.MethodGet && r.URL.Path == "/api/operations/op-1":
			_, _ = w.Write([]byte(`{"id":"op-1","state":"completed","completedDate":"2026-01-02T03:04:05Z"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithToken(" secret "))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	page, err := c.FetchVariables(ctx, VariableQuery{ScopeID: "scope-1", Cursor: "c1", PageSize: 50})
	if err != nil {
		t.Fatalf("FetchVariables returned error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "a" || !page.HasMore || page.NextCursor != "c2" {
		t.Fatalf("FetchVariables page = %#v", page)
	}
	if gotListQuery.Get("scopeId") != "scope-1" || gotListQuery.Get("cursor") != "c1" || gotListQuery.Get("pageSize") != "50" {
		t.Fatalf("FetchVariables query = %v, want params encoded", gotListQuery)
	}

	handle, err := c.CreateVariable(ctx, "scope-1", "b", `{"x":1}`)
	if err != nil {
		t.Fatalf("CreateVariable returned error: %v", err)
	}
	if handle.OperationID != "op-1" {
		t.Fatalf("CreateVariable operation = %q, want op-1", handle.OperationID)
	}
	if gotCreate != (createVariableRequest{ScopeID: "scope-1", Name: "b", Value: `{"x":1}`}) {
		t.Fatalf("CreateVariable body = %#v", gotCreate)
	}

	handle, err = c.UpdateVariable(ctx, "v1", `"new"`)
	if err != nil {
		t.Fatalf("UpdateVariable returned error: %v", err)
	}
	if handle.OperationID != "op-2" || gotUpdateID != "v1" || gotUpdate.Value != `"new"` {
		t.Fatalf("UpdateVariable = %#v id=%q body=%#v", handle, gotUpdateID, gotUpdate)
	}

	full, err := c.FetchVariable(ctx, "v1")
	if err != nil {
		t.Fatalf("FetchVariable returned error: %v", err)
	}
	if full.Value != `"full"` {
		t.Fatalf("FetchVariable value = %q, want \"full\"", full.Value)
	}

	op, err := c.FetchOperation(ctx, "op-1")
	if err != nil {
		t.Fatalf("FetchOperation returned error: %v", err)
	}
	if op.State != OperationCompleted || !op.State.Terminal() {
		t.Fatalf("FetchOperation state = %q, want COMPLETED", op.State)
	}
	if op.ParsedCompletedAt().Year() != 2026 {
		t.Fatalf("ParsedCompletedAt = %v, want 2026", op.ParsedCompletedAt())
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if !strings.HasPrefix(gotAgent, "tern/") {
		t.Fatalf("User-Agent = %q, want tern/*", gotAgent)
	}
	if gotRequestID == "" {
		t.Fatal("X-Request-ID header missing")
	}
}

func TestClient_RejectionCarriesServerMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/variables":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Variable with name b already exists"}`))
		case "/api/operations/op-1":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.CreateVariable(context.Background(), "scope-1", "b", "1")
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("CreateVariable error = %v, want *APIError", err)
	}
	if !apiErr.Rejected() || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("APIError = %#v, want 409 rejection", apiErr)
	}
	if apiErr.Message != "Variable with name b already exists" {
		t.Fatalf("APIError message = %q", apiErr.Message)
	}

	_, err = c.FetchOperation(context.Background(), "op-1")
	apiErr, ok = AsAPIError(err)
	if !ok || apiErr.Rejected() || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchOperation error = %v, want non-rejection 500", err)
	}
}

func TestClient_DecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.FetchVariables(context.Background(), VariableQuery{ScopeID: "s"})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchVariables error = %v, want decode response error", err)
	}
}

func TestClient_RequiresIdentifiers(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()
	if _, err := c.FetchVariables(ctx, VariableQuery{}); err == nil {
		t.Fatal("FetchVariables without scope returned nil error")
	}
	if _, err := c.FetchVariable(ctx, " "); err == nil {
		t.Fatal("FetchVariable without id returned nil error")
	}
	if _, err := c.UpdateVariable(ctx, "", "1"); err == nil {
		t.Fatal("UpdateVariable without id returned nil error")
	}
	if _, err := c.FetchOperation(ctx, ""); err == nil {
		t.Fatal("FetchOperation without id returned nil error")
	}
}

func TestOperationState_UnmarshalUnknownIsPending(t *testing.T) {
	var op Operation
	if err := json.Unmarshal([]byte(`{"state":"SCHEDULED"}`), &op); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if op.State != OperationPending || op.State.Terminal() {
		t.Fatalf("state = %q, want PENDING", op.State)
	}
	if err := json.Unmarshal([]byte(`{"state":" failed "}`), &op); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if op.State != OperationFailed {
		t.Fatalf("state = %q, want FAILED", op.State)
	}
}

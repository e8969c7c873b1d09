package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/tern/internal/app"
	"github.com/five82/tern/internal/operate"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/variables":
			if got := r.URL.Query().Get("scopeId"); got != "node-1" {
				http.Error(w, `{"message":"unknown scope"}`, http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(operate.VariablePage{
				Items: []operate.Variable{
					{ID: "1", Name: "count", Value: "42", ScopeID: "node-1"},
					{ID: "2", Name: "payload", Value: `{"a":`, ScopeID: "node-1", IsPreview: true},
				},
				TotalCount: 2,
			})
		case "/api/variables/2":
			_ = json.NewEncoder(w).Encode(operate.Variable{ID: "2", Name: "payload", Value: `{"a":1}`, ScopeID: "node-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TERN_API_URL", "")
	t.Setenv("TERN_TOKEN", "")
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--prefs", filepath.Join(dir, "prefs.toml"),
		"--log-file", filepath.Join(dir, "tern.log"),
	}

	var out bytes.Buffer
	cmd := newRootCmd(app.Options{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVarsList_PrintsTable(t *testing.T) {
	server := newAPIServer(t)

	out, err := execute(t, "--api-url", server.URL, "--scope", "node-1", "vars", "list")
	if err != nil {
		t.Fatalf("vars list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "NAME") || !strings.Contains(lines[0], "STATE") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "payload") || !strings.HasSuffix(lines[2], "preview") {
		t.Fatalf("row = %q, want preview payload", lines[2])
	}
}

func TestVarsList_JSON(t *testing.T) {
	server := newAPIServer(t)

	out, err := execute(t, "--api-url", server.URL, "-s", "node-1", "vars", "list", "--json")
	if err != nil {
		t.Fatalf("vars list --json: %v", err)
	}
	var items []operate.Variable
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(items) != 2 || items[0].Name != "count" {
		t.Fatalf("items = %+v", items)
	}
}

func TestVarsShow_LoadsFullValue(t *testing.T) {
	server := newAPIServer(t)

	out, err := execute(t, "--api-url", server.URL, "-s", "node-1", "vars", "show", "payload")
	if err != nil {
		t.Fatalf("vars show: %v", err)
	}
	if got, want := strings.TrimSpace(out), "{\n  \"a\": 1\n}"; got != want {
		t.Fatalf("show = %q, want %q", got, want)
	}
}

func TestVars_RequireScope(t *testing.T) {
	server := newAPIServer(t)

	_, err := execute(t, "--api-url", server.URL, "vars", "list")
	if !errors.Is(err, errNoScope) {
		t.Fatalf("err = %v, want errNoScope", err)
	}
}

func TestReadValue(t *testing.T) {
	got, err := readValue(strings.NewReader("{\"k\":true}\n"), "-")
	if err != nil || got != `{"k":true}` {
		t.Fatalf("readValue(stdin) = %q, %v", got, err)
	}
	got, err = readValue(strings.NewReader("ignored"), "42")
	if err != nil || got != "42" {
		t.Fatalf("readValue(arg) = %q, %v", got, err)
	}
}

func TestVariableState(t *testing.T) {
	cases := map[string]operate.Variable{
		"active":  {HasActiveOperation: true, IsPreview: true},
		"preview": {IsPreview: true},
		"-":       {},
	}
	for want, v := range cases {
		if got := variableState(v); got != want {
			t.Errorf("variableState(%+v) = %q, want %q", v, got, want)
		}
	}
}

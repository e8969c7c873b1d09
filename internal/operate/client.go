package operate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VariableService is the surface tern needs from the monitoring API.
// *Client implements it; the state package consumes it.
type VariableService interface {
	FetchVariables(ctx context.Context, query VariableQuery) (VariablePage, error)
	FetchVariable(ctx context.Context, id string) (Variable, error)
	CreateVariable(ctx context.Context, scopeID, name, value string) (OperationHandle, error)
	UpdateVariable(ctx context.Context, id, value string) (OperationHandle, error)
	FetchOperation(ctx context.Context, id string) (Operation, error)
}

var _ VariableService = (*Client)(nil)

// APIError is returned for responses with status >= 400.
type APIError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// Rejected reports whether the server refused the request itself (4xx), as
// opposed to failing to process it.
func (e *APIError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client talks to the monitoring HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
}

const (
	defaultAPIURL    = "127.0.0.1:8080"
	defaultUserAgent = "tern/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10
)

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithToken sends the token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the given host:port or URL.
func NewClient(apiURL string, opts ...ClientOption) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchVariables retrieves one page of variables for a scope.
func (c *Client) FetchVariables(ctx context.Context, query VariableQuery) (VariablePage, error) {
	if c == nil {
		return VariablePage{}, fmt.Errorf("client is nil")
	}
	scope := strings.TrimSpace(query.ScopeID)
	if scope == "" {
		return VariablePage{}, fmt.Errorf("scope id required")
	}
	values := url.Values{}
	values.Set("scopeId", scope)
	if cursor := strings.TrimSpace(query.Cursor); cursor != "" {
		values.Set("cursor", cursor)
	}
	if query.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(query.PageSize))
	}
	rel := &url.URL{Path: "/api/variables", RawQuery: values.Encode()}
	var payload VariablePage
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return VariablePage{}, err
	}
	return payload, nil
}

// FetchVariable retrieves a single variable with its full, non-preview value.
func (c *Client) FetchVariable(ctx context.Context, id string) (Variable, error) {
	if c == nil {
		return Variable{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Variable{}, fmt.Errorf("variable id required")
	}
	var payload Variable
	if err := c.do(ctx, http.MethodGet, "/api/variables/"+url.PathEscape(id), nil, &payload); err != nil {
		return Variable{}, err
	}
	return payload, nil
}

// CreateVariable asks the server to add a variable to a scope. The change is
// applied asynchronously; poll the returned operation.
func (c *Client) CreateVariable(ctx context.Context, scopeID, name, value string) (OperationHandle, error) {
	if c == nil {
		return OperationHandle{}, fmt.Errorf("client is nil")
	}
	body := createVariableRequest{ScopeID: scopeID, Name: name, Value: value}
	var payload OperationHandle
	if err := c.do(ctx, http.MethodPost, "/api/variables", body, &payload); err != nil {
		return OperationHandle{}, err
	}
	if payload.OperationID == "" {
		return OperationHandle{}, fmt.Errorf("create variable: response missing operation id")
	}
	return payload, nil
}

// UpdateVariable asks the server to change a variable's value.
func (c *Client) UpdateVariable(ctx context.Context, id, value string) (OperationHandle, error) {
	if c == nil {
		return OperationHandle{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return OperationHandle{}, fmt.Errorf("variable id required")
	}
	var payload OperationHandle
	if err := c.do(ctx, http.MethodPatch, "/api/variables/"+url.PathEscape(id), updateVariableRequest{Value: value}, &payload); err != nil {
		return OperationHandle{}, err
	}
	if payload.OperationID == "" {
		return OperationHandle{}, fmt.Errorf("update variable: response missing operation id")
	}
	return payload, nil
}

// FetchOperation retrieves the state of an asynchronous operation.
func (c *Client) FetchOperation(ctx context.Context, id string) (Operation, error) {
	if c == nil {
		return Operation{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Operation{}, fmt.Errorf("operation id required")
	}
	var payload Operation
	if err := c.do(ctx, http.MethodGet, "/api/operations/"+url.PathEscape(id), nil, &payload); err != nil {
		return Operation{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{
			Path:       rel.Path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Package operate provides an HTTP client for the process monitoring API.
//
// # Endpoints
//
//   - GET   /api/variables?scopeId=&cursor=&pageSize=  one page of a scope's variables
//   - GET   /api/variables/{id}                        a single variable, full value
//   - POST  /api/variables                             add a variable (async, returns operationId)
//   - PATCH /api/variables/{id}                        change a value (async, returns operationId)
//   - GET   /api/operations/{id}                       operation state: PENDING, COMPLETED, FAILED
//
// List responses may deliver a size-limited preview of large values
// (Variable.IsPreview); FetchVariable returns the full value.
//
// # Errors
//
// Responses with status >= 400 become *APIError carrying the server's message.
// APIError.Rejected distinguishes a request the server refused (4xx, for
// example a duplicate name detected server-side) from a server failure.
// Network failures are wrapped as "execute request: ..." and malformed bodies
// as "decode response: ...".
//
// Every request carries a fresh X-Request-ID so client and server logs can be
// correlated. The client performs no retries and no caching; the state
// package owns refresh cadence and polling.
package operate

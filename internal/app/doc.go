// Package app provides the orchestration layer for tern.
//
// # Overview
//
// This package wires together configuration, logging, the monitoring API
// client, the variable store and the UI. Session is the composition root
// shared by the TUI (Run) and the headless commands (List, Show, Add, Edit).
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> Open()             config.Load, logging.New,
//	       │                          operate.NewClient, state.New
//	       ├─────> prefs.Load()       Theme and last scope
//	       ├─────> StartPoller()      Periodic store.Refresh
//	       ├─────> store.Fetch()      Initial load of the scope
//	       └─────> ui.Run()           Start TUI (blocks)
//
//	Background Poller Loop:
//	┌─────────────────────────────────────────┐
//	│ StartPoller() goroutine                 │
//	│  ├─> clock.After(interval or backoff)   │
//	│  └─> store.Refresh()                    │
//	│      └─> subscribers get a Snapshot     │
//	└─────────────────────────────────────────┘
//
// # Polling Behavior
//
// The poller refreshes the current scope at the configured interval
// (default: 5 seconds). Without a scope it idles. Failed refreshes back off
// exponentially up to 30 seconds; superseded or cancelled refreshes do not
// count as failures. Operation status polling after an add or edit is the
// store's own concern and runs independently.
//
// # Headless Commands
//
// List and Show page through the scope. Add and Edit submit through the
// store like the TUI does and block until the store reports the outcome
// through Outcomes, so a timed out or failed operation becomes a non-zero
// exit.
//
// # Error Handling
//
// Fatal errors (returned from Open and Run):
//   - Invalid configuration file or values
//   - Unusable log file
//   - Invalid API URL
//
// Recoverable errors (logged, the UI keeps running):
//   - Failed initial fetch
//   - Periodic refresh failures
//   - Failed preference writes
package app

// Package ui provides the terminal user interface for tern.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program built around a single Model. It renders the
// variables of one flow node instance held by a state.Store and drives the
// store's operations: fetch, refresh, paging, optimistic add and edit, and
// full value loading. The store never renders anything; the UI only reads
// snapshots and shows notifications.
//
// # Package Structure
//
//   - app.go: Model, Init/Update/View and global key handling
//   - ui.go: Options, Run, the notice queue and the snapshot feed
//   - variables.go: Variable table rendering and navigation
//   - actions.go: Store calls started from key presses and dialogs
//   - form.go: Add/edit dialog with live validation
//   - scope.go: Flow node instance picker with recent scopes
//   - value.go: Full value view
//   - logs.go: Tail of tern's own JSON log
//   - header.go: Status bar, command bar and notification banner
//   - theme.go, style_helpers.go, box.go: Colors and rendering helpers
//
// # Event Flow
//
//  1. New subscribes to the store. The subscriber pushes into a one-slot
//     feed where a newer snapshot replaces an unread one, so the store
//     never waits on the UI.
//  2. waitForSnapshot and waitForNotice turn the feed and the NoticeQueue
//     into Bubble Tea messages and are re-armed after each delivery.
//  3. Store calls run as tea.Cmds. Their outcome reaches the UI twice: as
//     a snapshot through the feed and, for failures that need it, as an
//     actionResultMsg.
//  4. Close, called by Run on exit, drops the subscription and releases
//     blocked waits.
//
// # Views
//
//   - Variables: name, single-line value and row state (saving, loading,
//     active, preview). The pending change is overlaid on its row or
//     appended for an add.
//   - Value: the selected variable pretty-printed, with the full value
//     fetched when the list only had a preview.
//   - Logs: the tail of the log file with a minimum level and follow mode.
//
// # Key Bindings
//
//   - a: Add variable
//   - e: Edit variable (loads the full value first for previews)
//   - enter/v: Show value
//   - r: Refresh
//   - n: Load next page (also when moving past the last row)
//   - s: Change flow node instance
//   - l: Logs, Space: follow, L: minimum level
//   - T: Cycle theme
//   - esc: Back / cancel
//   - q or Ctrl+C: Exit
package ui

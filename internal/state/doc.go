// Package state keeps the variables of one scope in sync with the monitoring
// API and drives optimistic changes to them.
//
// # Overview
//
// A Store holds the confirmed variables of the selected scope (a flow-node
// instance), at most one pending change, and the fetch lifecycle. Callers
// read immutable Snapshots and compose the visible list with Snapshot.Rows,
// which overlays the pending placeholder on the confirmed items.
//
// # Lifecycle
//
//	initial → first-fetch → fetched → refetching → fetched | error
//	                              ↘ fetching (next page) ↗
//
// Reset returns to initial from any state. Dispose does the same and makes
// the Store unusable.
//
// # Optimistic changes
//
// Add and Edit validate locally first. Invalid input is returned as
// ValidationErrors and nothing is sent. Valid input becomes the pending
// placeholder immediately, then the request is submitted:
//
//	Add/Edit ──► pending ──► submit ──┬─► rejected ──► rollback + error notification
//	                                  └─► accepted ──► poll operation every interval
//	                                                     ├─ COMPLETED ─► refetch ─► success notification
//	                                                     ├─ FAILED ────► rollback + error notification
//	                                                     └─ attempts exhausted ─► rollback + error notification
//
// A refetch that already lists the change as applied and idle resolves the
// pending change early. Each outcome produces exactly one notification.
//
// # Cancellation
//
// Every request and timer is tagged with the scope generation that started
// it, and every poll with the pending change it belongs to. Selecting a new
// scope, Reset and Dispose bump the generation, cancel in-flight requests and
// stop the poll timer. Results that arrive for an older generation are
// dropped and reported to the caller as ErrSuperseded.
//
// # Concurrency
//
// All methods are safe for concurrent use. The mutex guards copying and
// bookkeeping only; it is never held across a request, a subscriber call or
// a notification. Subscribers receive snapshots in Version order.
//
// # Testing
//
// Time is injected through clock.Clock. With clock.Fake, timers fire only on
// Advance, so poll sequences can be stepped deterministically:
//
//	clk := clock.Fake(time.Unix(0, 0))
//	store := state.New(backend, state.WithClock(clk), state.WithOperationPolling(time.Second, 3))
//	_ = store.Fetch(ctx, "node-1")
//	_ = store.Add(ctx, "orderId", "42")
//	clk.Advance(time.Second) // first status poll
package state

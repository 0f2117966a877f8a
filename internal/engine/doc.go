// Package engine implements the client's single-writer event loop and the
// request sequencing built on top of it.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every state transition of the client (user input, timer firing, network
// completion, URL change) runs as a Task on one goroutine. Tasks run to
// completion without preemption, so page state needs no locking. This
// mirrors the cooperative scheduling of a UI thread.
//
// Suspension Points:
// Network calls are the only suspension points. They run on their own
// goroutines and post their completion back to the loop as a new Task.
// Ordering races between completions are resolved by Sequencer.
//
// Sequencer:
// Each logical slot (a page's dependent-data fetch, a search session, the
// overlay search) owns a Sequencer. Run starts an action and supersedes the
// previous one: its context is cancelled and, whatever it eventually
// returns, its commit is dropped. Correctness never depends on the action
// honouring cancellation.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Epochs are stamped from a monotonic Clock. A completion commits only if
// its epoch is still the slot's current epoch.
//
// Loop Guard:
// URL write-back effects are bounded per flow by CycleDetector (same target
// twice) and QuotaEnforcer (too many steps), so hydrate-from-URL can never
// ping-pong with navigate-to-URL.
package engine

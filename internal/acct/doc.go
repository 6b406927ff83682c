// Package acct implements the account manager core: a deterministic state
// machine over a persistent, resumable user session.
//
// ARCHITECTURE:
//
// Serialization gate:
// A single FIFO lane (see internal/dispatch) owns every mutation of the
// account handle and every state-machine step. Public Manager methods are
// safe from any goroutine; each one submits to the gate and waits. This
// guarantees linear ordering of events and prevents concurrent use of the
// handle.
//
// Driver loop:
// process(event) advances the machine via the pure transition table,
// executes the entered state's side effects, and re-enters with any
// follow-up event until none is produced. Follow-up events always run
// before the next externally-submitted operation is dequeued.
//
// Execution lanes:
//   - gate: serial; handle calls and state transitions
//   - UI: serial; observer notifications, never on the gate
//   - persist: fire-and-forget background writes to the secret store
//
// ERROR HANDLING: Errors from side-effect operations inside the state
// machine (complete-OAuth, fetch-devices, disconnect, persist) are logged
// and swallowed; they do not abort the transition. Profile-fetch failure
// is the exception: it re-enters the machine as failedToFetchProfile.
package acct

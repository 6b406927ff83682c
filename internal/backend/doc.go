// Package backend defines the contract between the orbit account manager
// and the lower-level account library that performs the actual cryptographic
// and network work (OAuth, device commands, push registration, profile fetch).
//
// The manager never talks to the network itself. Everything it does flows
// through an AccountHandle, an opaque per-account object owned exclusively
// by the manager. Exactly one handle is live per manager at a time; replacing
// the handle releases the previous one's external resources.
//
// OWNERSHIP:
//
// The handle is constructed (or restored from a serialized blob) by the
// manager and mutated only on the manager's serialization gate. Implementations
// may assume calls are never concurrent. Every call is potentially blocking
// network I/O and must return in bounded time - the manager imposes no
// deadline of its own beyond the caller's context.
package backend

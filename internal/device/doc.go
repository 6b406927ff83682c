// Package device implements the device constellation: the set of devices
// (local + remote) associated with an account, together with the
// operations against them.
//
// A Constellation is bound to exactly one account handle. It caches the
// last-fetched device list; the source of truth is always the server
// reached through the handle. When the manager replaces its handle it
// replaces the constellation with it - a constellation operation never
// reaches a handle that has been superseded.
//
// All handle calls go through the manager's serialization gate. Observer
// notifications are delivered on the UI lane, never on the gate.
package device

// Package secrets holds the serialized account state between runs.
//
// The account manager owns exactly one entry: the opaque blob produced by
// the handle's ToJSON. Store is the collaborator contract; the package
// ships three implementations:
//
//   - Memory: volatile, for tests and the scenario harness
//   - SQLite: a single-row table (WAL journal, NORMAL synchronous,
//     5-second busy timeout)
//   - Sealed: an encrypted file, HKDF-derived key + XChaCha20-Poly1305,
//     for hosts without an OS keychain
//
// Store implementations must tolerate concurrent Write calls: persistence
// runs on a fire-and-forget background goroutine.
package secrets

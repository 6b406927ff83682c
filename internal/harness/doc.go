// Package harness runs conformance scenarios against a full account
// manager wired to a scripted backend.
//
// A scenario is a YAML file describing the scripted world (stored
// account, profile, devices, push payloads) and an ordered list of
// operations to drive through the manager. Execution records an ordered
// trace of operations and observer notifications; traces are compared
// against golden files so lifecycle regressions show up as diffs.
//
// Determinism: the harness uses an inline notifier, so notifications
// land in the trace at the exact point in the lifecycle that produced
// them, and the same scenario always yields a byte-identical trace.
package harness

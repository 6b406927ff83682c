// Package sim provides a scripted, in-process implementation of the
// account backend for tests, the scenario harness, and the CLI's demo
// mode.
//
// A sim.Handle behaves like a real account handle without any network:
// flows succeed or fail as scripted, device command queues are plain
// slices, and ToJSON round-trips through sim.Factory.Restore exactly.
// Every call is recorded so tests can assert on call order and counts.
package sim

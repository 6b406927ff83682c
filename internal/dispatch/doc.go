// Package dispatch provides the execution lanes the account manager runs on.
//
// A Lane is a single FIFO worker goroutine: tasks submitted to it execute
// one at a time, in submission order. The manager owns two lanes - the
// serialization gate guarding the account handle, and the UI lane that
// delivers observer notifications - rather than any process-wide queue.
//
// Lanes are reentrant through the context: a task running on a lane can
// call Run on the same lane and the nested task executes inline instead of
// deadlocking on its own worker.
package dispatch

package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceEvent is one entry in a scenario's ordered trace.
//
// Kinds:
//   - "op": a scenario step; Result is "ok" or the error text, State is
//     the manager state after the step
//   - "notification": an AccountObserver callback
//   - "deviceEvents": an incoming device event batch member
type TraceEvent struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	Result string `json:"result,omitempty"`
	State  string `json:"state,omitempty"`
}

// TraceSnapshot is the serialized form compared against golden files.
type TraceSnapshot struct {
	Scenario   string       `json:"scenario"`
	FinalState string       `json:"final_state"`
	Trace      []TraceEvent `json:"trace"`
}

// MarshalTrace serializes a snapshot deterministically, newline-terminated
// so golden files are well-formed text files.
func MarshalTrace(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalTrace parses a snapshot previously produced by MarshalTrace
// (a recorded trace file or a golden fixture).
func UnmarshalTrace(data []byte) (*TraceSnapshot, error) {
	var snapshot TraceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse trace snapshot: %w", err)
	}
	if snapshot.Scenario == "" {
		return nil, fmt.Errorf("trace snapshot missing scenario name")
	}
	return &snapshot, nil
}

// RunWithGolden executes a scenario and compares the trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalTrace(TraceSnapshot{
		Scenario:   scenario.Name,
		FinalState: result.FinalState,
		Trace:      result.Trace,
	})
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

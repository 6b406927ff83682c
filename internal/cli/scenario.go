package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbitlabs/orbit/internal/harness"
)

// NewScenarioCommand creates the `orbit scenario` command: run a
// lifecycle scenario file through a full manager wired to the scripted
// backend and print the resulting trace.
func NewScenarioCommand(opts *RootOptions) *cobra.Command {
	var expectState string

	cmd := &cobra.Command{
		Use:   "scenario <scenario.yaml>",
		Short: "Run a lifecycle scenario and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return err
			}

			result, err := harness.Run(scenario)
			if err != nil {
				return err
			}

			snapshot := harness.TraceSnapshot{
				Scenario:   scenario.Name,
				FinalState: result.FinalState,
				Trace:      result.Trace,
			}
			if opts.Format == "json" {
				data, err := harness.MarshalTrace(snapshot)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			} else {
				printSnapshot(cmd, snapshot)
			}

			if expectState != "" && result.FinalState != expectState {
				return fmt.Errorf("final state %s, expected %s", result.FinalState, expectState)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&expectState, "expect-state", "", "fail unless the scenario ends in this state")

	return cmd
}

// printSnapshot renders a trace snapshot as text. Shared by the scenario
// and trace commands.
func printSnapshot(cmd *cobra.Command, s harness.TraceSnapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario %s\n", s.Scenario)
	for _, ev := range s.Trace {
		switch ev.Kind {
		case "op":
			if ev.Result == "ok" {
				fmt.Fprintf(out, "  op  %-22s -> %s\n", ev.Name, ev.State)
			} else {
				fmt.Fprintf(out, "  op  %-22s !! %s (state %s)\n", ev.Name, ev.Result, ev.State)
			}
		case "notification":
			if ev.Detail != "" {
				fmt.Fprintf(out, "      notify %s(%s)\n", ev.Name, ev.Detail)
			} else {
				fmt.Fprintf(out, "      notify %s\n", ev.Name)
			}
		case "deviceEvents":
			fmt.Fprintf(out, "      device %s [%s]\n", ev.Name, ev.Detail)
		}
	}
	fmt.Fprintf(out, "final state: %s\n", s.FinalState)
}

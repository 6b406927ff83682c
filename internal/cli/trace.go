package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbitlabs/orbit/internal/harness"
)

// NewTraceCommand creates the `orbit trace` command: print a previously
// recorded trace snapshot (a `scenario --format json` capture or a golden
// fixture) without re-running anything.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	var finalState string

	cmd := &cobra.Command{
		Use:   "trace <trace.json>",
		Short: "Print a recorded scenario trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read trace file: %w", err)
			}

			snapshot, err := harness.UnmarshalTrace(data)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				out, err := harness.MarshalTrace(*snapshot)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
			} else {
				printSnapshot(cmd, *snapshot)
			}

			if finalState != "" && snapshot.FinalState != finalState {
				return fmt.Errorf("final state %s, expected %s", snapshot.FinalState, finalState)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&finalState, "expect-state", "", "fail unless the recorded trace ends in this state")

	return cmd
}

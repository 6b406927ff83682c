package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbitlabs/orbit/internal/config"
)

// NewValidateCommand creates the `orbit validate` command: load a client
// configuration file and report whether it passes schema validation.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a client configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0], envFile)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				out, err := json.MarshalIndent(map[string]any{
					"valid":     true,
					"client_id": cfg.Account.ClientID,
					"device":    cfg.Device.Name,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "config valid: client %s, device %q (%s)\n",
				cfg.Account.ClientID, cfg.Device.Name, cfg.Device.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env", "", "load environment overrides from this file")

	return cmd
}

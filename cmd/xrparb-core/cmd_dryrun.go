package main

import (
	"context"

	"github.com/spf13/cobra"
)

// dryrunCmd builds the `dryrun` subcommand: the same pipeline as `run`,
// but every order and withdrawal is simulated rather than submitted to a
// venue — useful for validating configuration and connectivity against
// live market data without risking capital.
func dryrunCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dryrun",
		Short: "Run the full pipeline with order placement and withdrawals simulated",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return runCore(ctx, path, true)
		},
	}
	cmd.Flags().String("config", "config.yaml", "path to the configuration document")
	return cmd
}

package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "xrparb-core"

// Execute builds the root command and dispatches to whichever
// subcommand the operator invoked, honoring ctx's cancellation on
// SIGINT/SIGTERM for a graceful shutdown (spec.md §6 "Signals").
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:     appName,
		Short:   "Cross-venue XRP arbitrage market-data and execution core",
		Version: "0.1.0",
	}

	root.AddCommand(runCmd(ctx))
	root.AddCommand(dryrunCmd(ctx))
	root.AddCommand(healthCmd(ctx))
	root.AddCommand(selftestCmd())

	log.Info().Str("app", appName).Msg("starting")
	return root.ExecuteContext(ctx)
}

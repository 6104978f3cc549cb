package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrparb/core/internal/config"
	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/premium"
)

// selftestCmd builds the `selftest` subcommand: an offline check of
// configuration validity and the premium matrix's arithmetic, with no
// network access (spec.md-derived analogue of the teacher's
// no-network resilience self-test).
func selftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Validate configuration and core invariants with no network access",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return runSelfTest(path)
		},
	}
	cmd.Flags().String("config", "config.yaml", "path to the configuration document")
	return cmd
}

// runSelfTest loads and validates the configuration, then exercises the
// premium matrix against a synthetic price set to confirm the
// conversion and opportunity-ranking arithmetic holds.
func runSelfTest(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config: OK (%d venues enabled)\n", len(cfg.EnabledVenues()))

	calc := premium.NewCalculator(1.0, nil)
	calc.UpdateFX(1350.0)
	calc.UpdatePrice(domain.Upbit, 900.0)
	calc.UpdatePrice(domain.Binance, 0.62)

	opp, ok := calc.GetBestOpportunity()
	if !ok {
		return domain.NewError(domain.ErrInvalidState, "premium matrix produced no opportunity from synthetic prices")
	}
	fmt.Printf("premium matrix: OK (best %s->%s %.2f%%)\n", opp.Buy, opp.Sell, opp.Premium)

	fmt.Println("selftest passed")
	return nil
}

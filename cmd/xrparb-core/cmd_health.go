package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xrparb/core/internal/domain"
)

// venueHealth is one venue's connectivity result from a health check.
type venueHealth struct {
	Venue     string  `json:"venue"`
	Healthy   bool    `json:"healthy"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// healthReport is the health command's full JSON output.
type healthReport struct {
	Overall string        `json:"overall"`
	Venues  []venueHealth `json:"venues"`
}

// healthCmd builds the `health` subcommand: a quick connectivity check
// against every enabled venue's balance endpoint, with no order or
// withdrawal side effects.
func healthCmd(ctx context.Context) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check venue REST connectivity and configuration validity",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			report, err := runHealth(ctx, path)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Printf("Overall: %s\n", report.Overall)
			for _, v := range report.Venues {
				status := "OK"
				if !v.Healthy {
					status = "FAIL: " + v.Error
				}
				fmt.Printf("  %-10s %-6.1fms  %s\n", v.Venue, v.LatencyMS, status)
			}
			return nil
		},
	}
	cmd.Flags().String("config", "config.yaml", "path to the configuration document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the report as JSON")
	return cmd
}

// runHealth loads the configuration, builds each enabled venue's REST
// client, and probes GetBalance against the unified symbol's base coin
// to confirm credentials and connectivity without placing any order.
func runHealth(ctx context.Context, cfgPath string) (*healthReport, error) {
	a, err := buildApp(cfgPath, true, log.Logger)
	if err != nil {
		return nil, err
	}
	defer a.close()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	report := &healthReport{Overall: "HEALTHY"}
	for _, v := range domain.AllVenues() {
		client, ok := a.orderClients[v]
		if !ok {
			continue
		}
		start := time.Now()
		_, err := client.GetBalance(checkCtx, "XRP")
		latency := time.Since(start)

		vh := venueHealth{Venue: v.String(), Healthy: err == nil, LatencyMS: float64(latency.Microseconds()) / 1000}
		if err != nil {
			vh.Error = err.Error()
			report.Overall = "UNHEALTHY"
		}
		report.Venues = append(report.Venues, vh)
	}
	return report, nil
}

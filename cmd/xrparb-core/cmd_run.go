package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/feed"
)

// strategyIdleBackoff is how long the strategy loop sleeps after a full
// round-robin pass across every venue queue yields nothing, so an idle
// market doesn't spin the single strategy goroutine at 100% CPU.
const strategyIdleBackoff = 2 * time.Millisecond

// runCmd builds the `run` subcommand: the live pipeline, with orders and
// withdrawals actually submitted to the configured venues.
func runCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live market-data, premium, and execution pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return runCore(ctx, path, false)
		},
	}
	cmd.Flags().String("config", "config.yaml", "path to the configuration document")
	return cmd
}

// runCore assembles the full application and blocks until ctx is
// cancelled (SIGINT/SIGTERM), then drains in-flight work and shuts down
// cleanly. dryRun, when true, routes every order and withdrawal through
// the simulated path instead of a live venue call.
func runCore(ctx context.Context, cfgPath string, dryRun bool) error {
	a, err := buildApp(cfgPath, dryRun, log.Logger)
	if err != nil {
		return err
	}
	defer a.close()

	if a.store != nil {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	for venue, f := range a.feeds {
		if err := f.Start(); err != nil {
			a.log.Error().Err(err).Str("venue", venue.String()).Msg("feed failed to start")
		}
	}
	a.healthSrv.Start()

	fxTicker := time.NewTicker(5 * time.Second)
	defer fxTicker.Stop()
	go a.runFXLoop(ctx, fxTicker)
	go a.strategyLoop(ctx)

	a.log.Info().Bool("dry_run", dryRun).Msg("core running")
	<-ctx.Done()

	a.log.Info().Msg("shutdown signal received, draining")
	a.shutdown()
	return nil
}

// runFXLoop periodically refreshes the FX rate feeding the premium
// calculator's USDT-denominated cells, until ctx is cancelled.
func (a *app) runFXLoop(ctx context.Context, ticker *time.Ticker) {
	if a.fxLoader == nil {
		return
	}
	refresh := func() {
		rate, err := a.fxLoader.Load(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("fx rate load failed")
			return
		}
		a.calculator.UpdateFX(rate.Rate)
	}
	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// strategyLoop is the sole consumer of every venue's feed queue and the
// sole caller of calculator.UpdatePrice: a single-threaded decision
// engine reading the production fan-in path (spec.md §2, §9 "the queue
// path is the production path"). It round-robins the four venue queues,
// and after each price update checks the recomputed matrix for a
// qualifying opportunity to trade.
func (a *app) strategyLoop(ctx context.Context) {
	venues := domain.AllVenues()
	var lastTrade time.Time

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		dequeued := false
		for _, v := range venues {
			q, ok := a.feedQueues[v]
			if !ok {
				continue
			}
			for {
				ev, ok := q.Pop()
				if !ok {
					break
				}
				dequeued = true
				a.handleFeedEvent(v, ev)
			}
		}

		if !dequeued {
			select {
			case <-ctx.Done():
				return
			case <-time.After(strategyIdleBackoff):
			}
			continue
		}

		if time.Since(lastTrade) < a.orderTimeout {
			continue
		}
		opp, ok := a.calculator.GetBestOpportunity()
		if !ok || opp.Premium < a.minEntryPremiumPercent {
			continue
		}
		a.executeOpportunity(ctx, opp)
		lastTrade = time.Now()
	}
}

// handleFeedEvent folds one dequeued feed.Event into the calculator.
// Only ticker events move the premium matrix; orderbook/trade/session
// events are observability-only at this layer.
func (a *app) handleFeedEvent(venue domain.Venue, ev feed.Event) {
	if ev.Kind == feed.EventTicker {
		a.calculator.UpdatePrice(venue, ev.Ticker.Last)
	}
}

// executeOpportunity builds the dual-leg order implied by opp and drives
// it through the executor, then rebalances the sold-out venue via a
// withdrawal from the venue that now holds the surplus (spec.md §2's
// premium -> executor -> transfer pipeline stage).
func (a *app) executeOpportunity(ctx context.Context, opp domain.Opportunity) {
	buySymbol, ok := a.symbols.Native(a.primarySymbol, opp.Buy)
	if !ok {
		return
	}
	sellSymbol, ok := a.symbols.Native(a.primarySymbol, opp.Sell)
	if !ok {
		return
	}
	buyPrice, ok := a.calculator.GetPrice(opp.Buy)
	if !ok {
		return
	}
	sellPrice, ok := a.calculator.GetPrice(opp.Sell)
	if !ok {
		return
	}

	correlationID := uuid.NewString()
	req := domain.DualOrderRequest{
		CorrelationID: correlationID,
		Buy: domain.OrderRequest{
			Venue:    opp.Buy,
			Symbol:   buySymbol,
			Side:     domain.Buy,
			Type:     domain.Market,
			Quantity: a.orderQuantity,
			Price:    buyPrice,
			ClientID: correlationID + "-buy",
		},
		Sell: domain.OrderRequest{
			Venue:    opp.Sell,
			Symbol:   sellSymbol,
			Side:     domain.Sell,
			Type:     domain.Market,
			Quantity: a.orderQuantity,
			Price:    sellPrice,
			ClientID: correlationID + "-sell",
		},
		ExpectedPremium: opp.Premium,
	}

	result := a.executor.Execute(ctx, req)
	if a.store != nil {
		if err := a.store.SaveDualOrderResult(ctx, opp.Buy, opp.Sell, result); err != nil {
			a.log.Error().Err(err).Msg("persist dual order result failed")
		}
	}
	if !result.BothSuccess() {
		return
	}

	addr, ok := a.addressBook.Lookup(opp.Sell)
	if !ok {
		a.log.Warn().Str("venue", opp.Sell.String()).Msg("no rebalance address configured, skipping transfer")
		return
	}
	transferReq := domain.TransferRequest{
		From:           opp.Buy,
		To:             opp.Sell,
		Coin:           "XRP",
		Amount:         result.BuyResult.FilledQty,
		DestAddress:    addr.Address,
		DestinationTag: addr.DestinationTag,
	}
	a.transfers.Submit(ctx, transferReq)
}

// shutdown stops every feed session, a drain window for in-flight
// recovery/transfer work, and releases network resources (spec.md §6
// "disconnect feeds, drain in-flight orders, flush logs").
func (a *app) shutdown() {
	for _, f := range a.feeds {
		f.Stop()
	}
	drain, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	<-drain.Done()
}

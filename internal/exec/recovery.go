package exec

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/order"
)

// RecoveryCallback is invoked once per Handle call with the terminal
// RecoveryResult — a loud event when Success is false and the plan's
// action has been escalated to ManualIntervention.
type RecoveryCallback func(domain.RecoveryResult)

// RecoveryManager builds and executes the single remedial order a
// partial-fill DualOrderResult requires (spec.md §4.4 "Recovery
// planning").
type RecoveryManager struct {
	clients    map[domain.Venue]order.Client
	maxRetries int
	retryDelay time.Duration
	dryRun     bool
	onResult   RecoveryCallback
	log        zerolog.Logger

	stats *Stats // shared with the owning Executor so recovery counters land in the same Stats block
}

// NewRecoveryManager builds a RecoveryManager. stats may be nil; passing
// the manager to NewExecutor then attaches that Executor's Stats, and a
// manager used on its own with nil stats records no counters.
func NewRecoveryManager(clients map[domain.Venue]order.Client, maxRetries int, retryDelay time.Duration, dryRun bool, onResult RecoveryCallback, stats *Stats, log zerolog.Logger) *RecoveryManager {
	return &RecoveryManager{
		clients:    clients,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		dryRun:     dryRun,
		onResult:   onResult,
		stats:      stats,
		log:        log,
	}
}

// plan constructs the remedial order for a partial-fill result, per
// spec.md §4.4's SellBought/BuySold table. req supplies the venue and
// symbol each leg was submitted against, since OrderResult itself
// carries neither.
func plan(req domain.DualOrderRequest, result domain.DualOrderResult, maxRetries int, retryDelay time.Duration) domain.RecoveryPlan {
	buyOK := result.BuyErr == nil && result.BuyResult.Success()
	if buyOK {
		// buy succeeded, sell failed: sell what we bought on the buy venue
		return domain.RecoveryPlan{
			Action: domain.SellBought,
			Order: domain.OrderRequest{
				Venue:    req.Buy.Venue,
				Symbol:   req.Buy.Symbol,
				Side:     domain.Sell,
				Type:     domain.Market,
				Quantity: result.BuyResult.FilledQty,
			},
			Reason:     "sell leg failed after buy leg filled",
			MaxRetries: maxRetries,
			RetryDelay: retryDelay,
		}
	}
	// sell succeeded, buy failed: buy back what we sold on the sell venue
	return domain.RecoveryPlan{
		Action: domain.BuySold,
		Order: domain.OrderRequest{
			Venue:    req.Sell.Venue,
			Symbol:   req.Sell.Symbol,
			Side:     domain.Buy,
			Type:     domain.Market,
			Quantity: result.SellResult.FilledQty,
		},
		Reason:     "buy leg failed after sell leg filled",
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	}
}

// Handle builds a RecoveryPlan for a partial-fill result and executes
// it, retrying up to maxRetries with retryDelay between attempts.
func (m *RecoveryManager) Handle(ctx context.Context, req domain.DualOrderRequest, result domain.DualOrderResult) domain.RecoveryResult {
	p := plan(req, result, m.maxRetries, m.retryDelay)
	rr := domain.RecoveryResult{Plan: p}

	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if m.stats != nil {
			m.stats.RecoveryAttempts.Add(1)
		}
		outcome, err := m.submit(ctx, p.Order)
		rr.Outcome = outcome
		if err == nil && outcome.Success() {
			rr.Success = true
			rr.RetryCount = attempt
			if m.stats != nil {
				m.stats.RecoverySuccesses.Add(1)
			}
			m.report(rr)
			return rr
		}
		m.log.Warn().Err(err).Int("attempt", attempt).Str("action", p.Action.String()).Msg("recovery attempt failed")
		if attempt < m.maxRetries {
			time.Sleep(p.RetryDelay)
		}
	}

	// exhausted all retries: escalate to a human operator
	rr.Success = false
	rr.RetryCount = m.maxRetries
	rr.Plan.Action = domain.ManualIntervention
	m.report(rr)
	return rr
}

func (m *RecoveryManager) submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if m.dryRun {
		return domain.OrderResult{Status: domain.Filled, FilledQty: req.Quantity, Timestamp: time.Now()}, nil
	}
	client, ok := m.clients[req.Venue]
	if !ok {
		return domain.OrderResult{Status: domain.Failed}, domain.NewError(domain.ErrInvalidRequest, "unknown recovery venue: "+req.Venue.String())
	}
	return client.PlaceOrder(ctx, req)
}

func (m *RecoveryManager) report(rr domain.RecoveryResult) {
	if m.onResult != nil {
		m.onResult(rr)
	}
}

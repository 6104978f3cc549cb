// Package transfer implements the cross-venue XRP transfer manager from
// spec.md §4.6: validate a TransferRequest against the static address
// book, submit the source venue's withdraw call, then track the
// transfer through Pending → Processing → (Completed | Failed |
// Timeout): a watcher goroutine polls the source venue and writes each
// transition to a Redis-backed status store, which Await polls.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
)

// Withdrawer is the source-venue capability the manager drives; each
// order-submission REST client additionally exposes this for its coin
// withdraw endpoint.
type Withdrawer interface {
	Withdraw(ctx context.Context, coin, address, tag string, amount float64) (venueWithdrawID string, err error)
	WithdrawStatus(ctx context.Context, venueWithdrawID string) (domain.TransferStatus, string, error) // status, txhash, err
}

// StatusCallback fires on every state transition; CompletionCallback
// fires exactly once, when the transfer reaches a terminal state.
type StatusCallback func(domain.TransferResult)
type CompletionCallback func(domain.TransferResult)

// Stats are the manager's lock-free counters.
type Stats struct {
	Submitted atomic.Int64
	Completed atomic.Int64
	Failed    atomic.Int64
	Timeout   atomic.Int64
}

// Manager validates, submits, and tracks cross-venue transfers.
type Manager struct {
	withdrawers  map[domain.Venue]Withdrawer
	addresses    *AddressBook
	redis        *redis.Client
	pollInterval time.Duration
	dryRun       bool
	log          zerolog.Logger

	onStatus     StatusCallback
	onCompletion CompletionCallback

	Stats Stats
}

// NewManager builds a Manager. redisClient may be nil, in which case no
// status is stored: status writes are skipped, and Await never observes
// a terminal state and returns its timeout error. The production wiring
// passes nil when no redis_addr is configured.
func NewManager(withdrawers map[domain.Venue]Withdrawer, addresses *AddressBook, redisClient *redis.Client, pollInterval time.Duration, dryRun bool, onStatus StatusCallback, onCompletion CompletionCallback, log zerolog.Logger) *Manager {
	return &Manager{
		withdrawers:  withdrawers,
		addresses:    addresses,
		redis:        redisClient,
		pollInterval: pollInterval,
		dryRun:       dryRun,
		onStatus:     onStatus,
		onCompletion: onCompletion,
		log:          log,
	}
}

// redisKey namespaces a transfer's status record.
func redisKey(transferID string) string {
	return "xrparb:transfer:" + transferID
}

// Validate applies the synchronous pre-flight checks from spec.md §4.6
// ("Validation"): no network call is made for any of these rejections.
func (m *Manager) Validate(req domain.TransferRequest) error {
	if req.From == req.To {
		return domain.NewError(domain.ErrInvalidRequest, "source and destination venue are identical")
	}
	if req.Amount <= 0 {
		return domain.NewError(domain.ErrInvalidRequest, "amount must be positive")
	}
	if req.Coin == "XRP" && req.DestinationTag == "" {
		return domain.NewError(domain.ErrInvalidRequest, "destination tag is required for XRP")
	}
	if req.Coin == "XRP" && req.Amount < MinWithdraw(req.From) {
		return domain.NewError(domain.ErrInvalidRequest, fmt.Sprintf("amount below %s's minimum withdrawal", req.From))
	}
	if m.addresses != nil && !m.addresses.IsWhitelisted(req.From, req.To) {
		return domain.NewError(domain.ErrInvalidRequest, "destination address is not whitelisted for "+req.To.String())
	}
	return nil
}

// Submit validates req, invokes the source venue's withdraw call, and
// spawns a watcher goroutine that polls the transfer to a terminal
// state. It returns immediately with the transfer's initial result
// (Processing once the withdraw call is accepted, Failed on rejection,
// Completed in dry-run mode); callers needing the terminal outcome use Await or the
// completion callback.
func (m *Manager) Submit(ctx context.Context, req domain.TransferRequest) domain.TransferResult {
	if err := m.Validate(req); err != nil {
		m.Stats.Failed.Add(1)
		return domain.TransferResult{Status: domain.TransferFailed, Error: err.Error()}
	}

	transferID := uuid.NewString()
	fee := XRPWithdrawFee(req.From)
	result := domain.TransferResult{TransferID: transferID, Status: domain.TransferPending, Fee: fee}

	if m.dryRun {
		result.Status = domain.TransferCompleted
		result.VenueWithdrawID = "dryrun-" + transferID
		result.TxHash = "dryrun-tx-" + transferID
		m.Stats.Submitted.Add(1)
		m.Stats.Completed.Add(1)
		m.saveStatus(ctx, result)
		m.report(result)
		m.reportCompletion(result)
		return result
	}

	w, ok := m.withdrawers[req.From]
	if !ok {
		m.Stats.Failed.Add(1)
		result.Status = domain.TransferFailed
		result.Error = "no withdraw client configured for " + req.From.String()
		return result
	}

	start := time.Now()
	venueID, err := w.Withdraw(ctx, req.Coin, req.DestAddress, req.DestinationTag, req.Amount)
	if err != nil {
		m.Stats.Failed.Add(1)
		result.Status = domain.TransferFailed
		result.Error = err.Error()
		m.saveStatus(ctx, result)
		m.report(result)
		m.reportCompletion(result)
		return result
	}

	result.VenueWithdrawID = venueID
	result.Status = domain.TransferProcessing
	m.Stats.Submitted.Add(1)
	m.saveStatus(ctx, result)
	m.report(result)

	go m.watch(ctx, req.From, result, start)
	return result
}

// watch polls the source venue's withdraw status until a terminal state
// or its context is cancelled, persisting and broadcasting each
// transition (spec.md §5: "One transfer watcher thread per in-flight
// transfer (polling)").
func (m *Manager) watch(ctx context.Context, venue domain.Venue, result domain.TransferResult, start time.Time) {
	w := m.withdrawers[venue]
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			result.Status = domain.TransferTimeout
			result.Elapsed = time.Since(start)
			m.Stats.Timeout.Add(1)
			m.saveStatus(context.Background(), result)
			m.report(result)
			m.reportCompletion(result)
			return
		case <-ticker.C:
			status, txHash, err := w.WithdrawStatus(ctx, result.VenueWithdrawID)
			if err != nil {
				m.log.Warn().Err(err).Str("transfer_id", result.TransferID).Msg("transfer status poll failed")
				continue
			}
			result.Status = status
			result.TxHash = txHash
			result.Elapsed = time.Since(start)
			m.saveStatus(ctx, result)
			m.report(result)
			if status.Terminal() {
				switch status {
				case domain.TransferCompleted:
					m.Stats.Completed.Add(1)
				case domain.TransferFailed:
					m.Stats.Failed.Add(1)
				case domain.TransferTimeout:
					m.Stats.Timeout.Add(1)
				}
				m.reportCompletion(result)
				return
			}
		}
	}
}

// Await blocks until the transfer identified by transferID reaches a
// terminal state or timeout elapses, polling the shared status store
// rather than the venue directly (spec.md §4.6 "a completion-wait call
// polls until Completed, Failed, Cancelled, or the overall timeout
// expires").
func (m *Manager) Await(ctx context.Context, transferID string, timeout time.Duration) (domain.TransferResult, error) {
	deadline := time.Now().Add(timeout)
	for {
		res, ok := m.loadStatus(ctx, transferID)
		if ok && res.Status.Terminal() {
			return res, nil
		}
		if time.Now().After(deadline) {
			return res, domain.NewError(domain.ErrConnectionTimeout, "transfer await timed out")
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *Manager) saveStatus(ctx context.Context, result domain.TransferResult) {
	if m.redis == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := m.redis.Set(ctx, redisKey(result.TransferID), data, 24*time.Hour).Err(); err != nil {
		m.log.Warn().Err(err).Str("transfer_id", result.TransferID).Msg("failed to persist transfer status")
	}
}

func (m *Manager) loadStatus(ctx context.Context, transferID string) (domain.TransferResult, bool) {
	if m.redis == nil {
		return domain.TransferResult{}, false
	}
	raw, err := m.redis.Get(ctx, redisKey(transferID)).Result()
	if err != nil {
		return domain.TransferResult{}, false
	}
	var res domain.TransferResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return domain.TransferResult{}, false
	}
	return res, true
}

func (m *Manager) report(result domain.TransferResult) {
	if m.onStatus != nil {
		m.onStatus(result)
	}
}

func (m *Manager) reportCompletion(result domain.TransferResult) {
	if m.onCompletion != nil {
		m.onCompletion(result)
	}
}

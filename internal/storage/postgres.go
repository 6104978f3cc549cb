// Package storage implements the durable audit log: every dual-leg
// execution, recovery action, and cross-venue transfer is persisted for
// post-incident reconciliation, independent of the in-memory stats
// counters each component also keeps.
package storage

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/xrparb/core/internal/domain"
)

// Store is the Postgres-backed audit log.
type Store struct {
	db *sql.DB
}

// Connect opens a connection pool against dsn (a standard Postgres
// connection string) using the pgx stdlib driver.
func Connect(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfigError, "open postgres connection", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the audit tables if they do not already exist. It is
// intentionally idempotent so it can run on every process start.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dual_order_results (
			id SERIAL PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			buy_venue TEXT NOT NULL,
			sell_venue TEXT NOT NULL,
			buy_status TEXT NOT NULL,
			sell_status TEXT NOT NULL,
			buy_filled_qty DOUBLE PRECISION NOT NULL,
			sell_filled_qty DOUBLE PRECISION NOT NULL,
			total_latency_ms DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS recovery_results (
			id SERIAL PRIMARY KEY,
			action TEXT NOT NULL,
			venue TEXT NOT NULL,
			symbol TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			success BOOLEAN NOT NULL,
			retry_count INTEGER NOT NULL,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transfer_results (
			id SERIAL PRIMARY KEY,
			transfer_id TEXT NOT NULL,
			venue_withdraw_id TEXT,
			tx_hash TEXT,
			status TEXT NOT NULL,
			elapsed_ms DOUBLE PRECISION NOT NULL,
			fee DOUBLE PRECISION NOT NULL,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.WrapError(domain.ErrConfigError, "run audit log migration", err)
		}
	}
	return nil
}

// SaveDualOrderResult records one dual-leg execution outcome.
func (s *Store) SaveDualOrderResult(ctx context.Context, buyVenue, sellVenue domain.Venue, result domain.DualOrderResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dual_order_results
			(correlation_id, buy_venue, sell_venue, buy_status, sell_status, buy_filled_qty, sell_filled_qty, total_latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.CorrelationID, buyVenue.String(), sellVenue.String(),
		result.BuyResult.Status.String(), result.SellResult.Status.String(),
		result.BuyResult.FilledQty, result.SellResult.FilledQty,
		float64(result.TotalLatency().Microseconds())/1000.0,
	)
	if err != nil {
		return domain.WrapError(domain.ErrConfigError, "save dual order result", err)
	}
	return nil
}

// SaveRecoveryResult records one recovery-plan execution outcome.
func (s *Store) SaveRecoveryResult(ctx context.Context, rr domain.RecoveryResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recovery_results
			(action, venue, symbol, quantity, success, retry_count, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rr.Plan.Action.String(), rr.Plan.Order.Venue.String(), rr.Plan.Order.Symbol,
		rr.Plan.Order.Quantity, rr.Success, rr.RetryCount, rr.Plan.Reason,
	)
	if err != nil {
		return domain.WrapError(domain.ErrConfigError, "save recovery result", err)
	}
	return nil
}

// SaveTransferResult records one cross-venue transfer outcome.
func (s *Store) SaveTransferResult(ctx context.Context, result domain.TransferResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_results
			(transfer_id, venue_withdraw_id, tx_hash, status, elapsed_ms, fee, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.TransferID, result.VenueWithdrawID, result.TxHash, result.Status.String(),
		float64(result.Elapsed.Microseconds())/1000.0, result.Fee, result.Error,
	)
	if err != nil {
		return domain.WrapError(domain.ErrConfigError, "save transfer result", err)
	}
	return nil
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestSaveDualOrderResult(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO dual_order_results").
		WithArgs("corr-1", "binance", "upbit", "filled", "filled", 100.0, 100.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := domain.DualOrderResult{
		CorrelationID: "corr-1",
		BuyResult:     domain.OrderResult{Status: domain.Filled, FilledQty: 100},
		SellResult:    domain.OrderResult{Status: domain.Filled, FilledQty: 100},
		StartedAt:     time.Now(),
		EndedAt:       time.Now().Add(10 * time.Millisecond),
	}
	err := s.SaveDualOrderResult(context.Background(), domain.Binance, domain.Upbit, result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRecoveryResult(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO recovery_results").
		WithArgs("sell_bought", "binance", "XRP", 42.0, true, 1, "sell leg failed after buy leg filled").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := domain.RecoveryResult{
		Plan: domain.RecoveryPlan{
			Action: domain.SellBought,
			Order:  domain.OrderRequest{Venue: domain.Binance, Symbol: "XRP", Quantity: 42},
			Reason: "sell leg failed after buy leg filled",
		},
		Success:    true,
		RetryCount: 1,
	}
	err := s.SaveRecoveryResult(context.Background(), rr)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTransferResult(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO transfer_results").
		WithArgs("t-1", "wd-1", "0xabc", "completed", sqlmock.AnyArg(), 0.25, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := domain.TransferResult{
		TransferID:      "t-1",
		VenueWithdrawID: "wd-1",
		TxHash:          "0xabc",
		Status:          domain.TransferCompleted,
		Elapsed:         200 * time.Millisecond,
		Fee:             0.25,
	}
	err := s.SaveTransferResult(context.Background(), result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRunsAllStatements(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dual_order_results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recovery_results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS transfer_results").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

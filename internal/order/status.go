package order

import "github.com/xrparb/core/internal/domain"

// statusTable maps a venue's raw status string onto domain.OrderStatus
// per the table in spec.md §4.5. Every venue funnels through this one
// table rather than each maintaining its own switch, so adding a venue
// never requires touching the others.
var statusTable = map[string]domain.OrderStatus{
	"NEW":              domain.Open,
	"Pending":          domain.Open,
	"wait":             domain.Open,
	"FILLED":           domain.Filled,
	"done":             domain.Filled,
	"PARTIALLY_FILLED": domain.PartiallyFilled,
	"trade":            domain.PartiallyFilled,
	"CANCELED":         domain.Canceled,
	"CANCELLED":        domain.Canceled,
	"cancel":           domain.Canceled,
	"REJECTED":         domain.Failed,
	"FAILED":           domain.Failed,
}

// normalizeStatus maps raw to a domain.OrderStatus, defaulting to
// Failed for anything unrecognized — an unknown raw status is treated
// as a failure rather than silently passed through as Pending.
func normalizeStatus(raw string) domain.OrderStatus {
	if s, ok := statusTable[raw]; ok {
		return s
	}
	return domain.Failed
}

// withdrawStatusTable maps each venue's raw withdrawal-state string onto
// domain.TransferStatus, mirroring normalizeStatus for order states.
var withdrawStatusTable = map[string]domain.TransferStatus{
	"SUBMITTING":       domain.TransferPending,
	"submitting":       domain.TransferPending,
	"WAIT":             domain.TransferProcessing,
	"PROCESSING":       domain.TransferProcessing,
	"processing":       domain.TransferProcessing,
	"ACCEPTED":         domain.TransferProcessing,
	"SUCCESS":          domain.TransferCompleted,
	"DONE":             domain.TransferCompleted,
	"done":             domain.TransferCompleted,
	"COMPLETE":         domain.TransferCompleted,
	"FAILED":           domain.TransferFailed,
	"REJECTED":         domain.TransferFailed,
	"failed":           domain.TransferFailed,
	"CANCELED":         domain.TransferCancelled,
	"CANCELLED":        domain.TransferCancelled,
}

// normalizeWithdrawStatus maps raw to a domain.TransferStatus, defaulting
// to TransferProcessing for anything unrecognized — an in-flight
// withdrawal whose state string this core doesn't know yet should keep
// being polled, not be mistaken for a terminal failure.
func normalizeWithdrawStatus(raw string) domain.TransferStatus {
	if s, ok := withdrawStatusTable[raw]; ok {
		return s
	}
	return domain.TransferProcessing
}

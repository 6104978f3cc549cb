package domain

import "time"

// RecoveryAction names the remedial action a RecoveryPlan prescribes.
type RecoveryAction int

const (
	RecoveryNone RecoveryAction = iota
	SellBought
	BuySold
	CancelBoth
	ManualIntervention
)

func (a RecoveryAction) String() string {
	switch a {
	case RecoveryNone:
		return "none"
	case SellBought:
		return "sell_bought"
	case BuySold:
		return "buy_sold"
	case CancelBoth:
		return "cancel_both"
	case ManualIntervention:
		return "manual_intervention"
	default:
		return "unknown"
	}
}

// RecoveryPlan is the remedial order the recovery manager constructs
// for a partial-fill DualOrderResult.
type RecoveryPlan struct {
	Action     RecoveryAction
	Order      OrderRequest
	Reason     string
	MaxRetries int
	RetryDelay time.Duration
}

// RecoveryResult is the outcome of executing a RecoveryPlan.
type RecoveryResult struct {
	Plan       RecoveryPlan
	Outcome    OrderResult
	Success    bool
	RetryCount int
}

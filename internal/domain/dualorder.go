package domain

import "time"

// DualOrderRequest correlates one buy leg and one sell leg to be
// submitted with minimum wall-clock skew. SendDelay lets the caller
// stagger submission to compensate for differential venue RTT.
type DualOrderRequest struct {
	CorrelationID    string
	Buy              OrderRequest
	Sell             OrderRequest
	ExpectedPremium  float64
	BuySendDelay     time.Duration
	SellSendDelay    time.Duration
}

// DualOrderResult bundles both leg outcomes with timing.
type DualOrderResult struct {
	CorrelationID string
	BuyResult     OrderResult
	BuyErr        error
	SellResult    OrderResult
	SellErr       error
	StartedAt     time.Time
	EndedAt       time.Time
}

// BothSuccess reports whether both legs filled.
func (r *DualOrderResult) BothSuccess() bool {
	return r.BuyErr == nil && r.BuyResult.Success() && r.SellErr == nil && r.SellResult.Success()
}

// BothFailed reports whether both legs failed.
func (r *DualOrderResult) BothFailed() bool {
	return !(r.BuyErr == nil && r.BuyResult.Success()) && !(r.SellErr == nil && r.SellResult.Success())
}

// PartialFill reports whether exactly one leg succeeded.
func (r *DualOrderResult) PartialFill() bool {
	buyOK := r.BuyErr == nil && r.BuyResult.Success()
	sellOK := r.SellErr == nil && r.SellResult.Success()
	return buyOK != sellOK
}

// TotalLatency is the observed wall-clock span of the dual submission.
func (r *DualOrderResult) TotalLatency() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

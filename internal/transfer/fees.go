package transfer

import "github.com/xrparb/core/internal/domain"

// xrpWithdrawFee is the per-venue compile-time XRP withdraw fee used for
// profitability math (spec.md §4.6 "Fees"). The manager reports these,
// it never enforces them against a submission.
var xrpWithdrawFee = [domain.NumVenues]float64{
	domain.Upbit:   0,
	domain.Bithumb: 0,
	domain.Binance: 0.25,
	domain.MEXC:    0.25,
}

// XRPWithdrawFee returns the published XRP withdraw fee for venue.
func XRPWithdrawFee(venue domain.Venue) float64 {
	if !venue.Valid() {
		return 0
	}
	return xrpWithdrawFee[venue]
}

// xrpMinWithdraw is the smallest XRP amount a venue's withdraw API will
// accept; a request under this floor is rejected before any network call.
var xrpMinWithdraw = [domain.NumVenues]float64{
	domain.Upbit:   1,
	domain.Bithumb: 1,
	domain.Binance: 10,
	domain.MEXC:    10,
}

// MinWithdraw returns the minimum withdrawable XRP amount for venue.
func MinWithdraw(venue domain.Venue) float64 {
	if !venue.Valid() {
		return 0
	}
	return xrpMinWithdraw[venue]
}

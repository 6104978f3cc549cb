package domain

import "math"

// PremiumMatrix is a dense NumVenues x NumVenues grid of percentage
// premiums. Matrix[buy][sell] is the premium achievable buying on buy
// and selling on sell. Diagonal entries are zero by definition; any
// undefined cell holds math.NaN().
type PremiumMatrix [NumVenues][NumVenues]float64

// Opportunity names one off-diagonal cell and its value.
type Opportunity struct {
	Buy     Venue
	Sell    Venue
	Premium float64
}

// NewPremiumMatrix returns a matrix with every off-diagonal cell set to
// NaN and the diagonal zeroed, the "nothing computed yet" state.
func NewPremiumMatrix() PremiumMatrix {
	var m PremiumMatrix
	for i := 0; i < NumVenues; i++ {
		for j := 0; j < NumVenues; j++ {
			if i == j {
				m[i][j] = 0
			} else {
				m[i][j] = math.NaN()
			}
		}
	}
	return m
}

// BestOpportunity returns the maximum finite off-diagonal cell. ok is
// false if every off-diagonal cell is NaN. Ties break on lowest buy
// index, then lowest sell index, to stay deterministic.
func (m PremiumMatrix) BestOpportunity() (Opportunity, bool) {
	best := Opportunity{Premium: math.Inf(-1)}
	found := false
	for buy := 0; buy < NumVenues; buy++ {
		for sell := 0; sell < NumVenues; sell++ {
			if buy == sell {
				continue
			}
			v := m[buy][sell]
			if math.IsNaN(v) {
				continue
			}
			if !found || v > best.Premium {
				best = Opportunity{Buy: Venue(buy), Sell: Venue(sell), Premium: v}
				found = true
			}
		}
	}
	return best, found
}

// Opportunities returns every off-diagonal cell whose premium is >= minPct,
// sorted descending by premium.
func (m PremiumMatrix) Opportunities(minPct float64) []Opportunity {
	var out []Opportunity
	for buy := 0; buy < NumVenues; buy++ {
		for sell := 0; sell < NumVenues; sell++ {
			if buy == sell {
				continue
			}
			v := m[buy][sell]
			if math.IsNaN(v) || v < minPct {
				continue
			}
			out = append(out, Opportunity{Buy: Venue(buy), Sell: Venue(sell), Premium: v})
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Premium > out[j-1].Premium; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

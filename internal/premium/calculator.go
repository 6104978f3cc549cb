// Package premium implements the 4x4 cross-venue premium matrix from
// spec.md §4.3: a writer-locked recomputation over four latest prices
// and one FX rate, read by the decision engine under a shared lock.
package premium

import (
	"math"
	"sync"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/spin"
)

// AlertFunc is invoked for every cell at or above the configured
// threshold after a recomputation, with the writer lock already
// released (spec.md §4.3 "Alerting").
type AlertFunc func(domain.Opportunity)

// Calculator holds the four latest venue prices, the latest FX rate,
// and the derived premium matrix. update_price/update_fx recompute the
// whole matrix under a spin lock — cheap enough to hold across all 16
// cells since each cell is one division and a comparison.
type Calculator struct {
	lock spin.TTASLock
	mu   sync.RWMutex // guards matrix + readers; lock guards the prices/fx + recompute

	prices [domain.NumVenues]float64
	fx     float64
	fxOK   bool
	matrix domain.PremiumMatrix

	alertThreshold float64
	onAlert        AlertFunc
}

// NewCalculator builds a Calculator with an empty (all-NaN) matrix and
// no FX rate yet set. alertThreshold is the minimum premium percentage
// that triggers onAlert; onAlert may be nil to disable alerting.
func NewCalculator(alertThreshold float64, onAlert AlertFunc) *Calculator {
	return &Calculator{
		matrix:         domain.NewPremiumMatrix(),
		alertThreshold: alertThreshold,
		onAlert:        onAlert,
	}
}

// UpdatePrice stores venue's latest last-trade price and recomputes the
// matrix.
func (c *Calculator) UpdatePrice(venue domain.Venue, price float64) {
	c.lock.Lock()
	c.prices[venue] = price
	m := c.recomputeLocked()
	c.lock.Unlock()

	c.publish(m)
}

// UpdateFX stores the latest USD/KRW rate and recomputes the matrix. A
// non-positive rate marks FX as invalid, forcing every USDT-denominated
// cell to NaN until a valid rate arrives.
func (c *Calculator) UpdateFX(rate float64) {
	c.lock.Lock()
	c.fx = rate
	c.fxOK = rate > 0
	m := c.recomputeLocked()
	c.lock.Unlock()

	c.publish(m)
}

// toKRW converts a venue's last price to KRW, per spec.md §4.3 step 1.
func (c *Calculator) toKRW(v domain.Venue) (float64, bool) {
	p := c.prices[v]
	if p <= 0 {
		return 0, false
	}
	if v.IsKRWQuoted() {
		return p, true
	}
	if !c.fxOK {
		return 0, false
	}
	return p * c.fx, true
}

// recomputeLocked rebuilds the full matrix. Caller must hold c.lock.
func (c *Calculator) recomputeLocked() domain.PremiumMatrix {
	var m domain.PremiumMatrix
	for buy := 0; buy < domain.NumVenues; buy++ {
		for sell := 0; sell < domain.NumVenues; sell++ {
			if buy == sell {
				m[buy][sell] = 0
				continue
			}
			buyKRW, buyOK := c.toKRW(domain.Venue(buy))
			sellKRW, sellOK := c.toKRW(domain.Venue(sell))
			if !buyOK || !sellOK {
				m[buy][sell] = math.NaN()
				continue
			}
			m[buy][sell] = (sellKRW - buyKRW) / buyKRW * 100
		}
	}

	c.mu.Lock()
	c.matrix = m
	c.mu.Unlock()
	return m
}

// publish fires onAlert for every cell at or above threshold, with no
// lock held — spec.md §4.3's "callback runs with the writer lock
// released".
func (c *Calculator) publish(m domain.PremiumMatrix) {
	if c.onAlert == nil {
		return
	}
	for _, opp := range m.Opportunities(c.alertThreshold) {
		c.onAlert(opp)
	}
}

// GetPremium returns one cell of the matrix.
func (c *Calculator) GetPremium(buy, sell domain.Venue) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matrix[buy][sell]
}

// GetPrice returns venue's latest native-quote last-trade price. ok is
// false if no price has arrived yet.
func (c *Calculator) GetPrice(venue domain.Venue) (float64, bool) {
	c.lock.Lock()
	p := c.prices[venue]
	c.lock.Unlock()
	return p, p > 0
}

// GetMatrix returns a full copy of the current matrix.
func (c *Calculator) GetMatrix() domain.PremiumMatrix {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matrix
}

// GetBestOpportunity returns the highest finite off-diagonal premium.
func (c *Calculator) GetBestOpportunity() (domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matrix.BestOpportunity()
}

// GetOpportunities returns every cell at or above minPct, descending.
func (c *Calculator) GetOpportunities(minPct float64) []domain.Opportunity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matrix.Opportunities(minPct)
}

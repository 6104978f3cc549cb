package premium

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrparb/core/internal/domain"
)

func TestScenarioAPremiumDetection(t *testing.T) {
	c := NewCalculator(0, nil)
	c.UpdatePrice(domain.Upbit, 3100)
	c.UpdatePrice(domain.Bithumb, 3098)
	c.UpdatePrice(domain.Binance, 2.15)
	c.UpdatePrice(domain.MEXC, 2.152)
	c.UpdateFX(1400)

	assert.InDelta(t, 2.99, c.GetPremium(domain.Binance, domain.Upbit), 0.05)
	assert.InDelta(t, 2.89, c.GetPremium(domain.MEXC, domain.Upbit), 0.05)
	assert.InDelta(t, -0.065, c.GetPremium(domain.Upbit, domain.Bithumb), 0.01)

	best, ok := c.GetBestOpportunity()
	require.True(t, ok)
	assert.Equal(t, domain.Binance, best.Buy)
	assert.Equal(t, domain.Upbit, best.Sell)
	assert.InDelta(t, 2.99, best.Premium, 0.05)
}

func TestPremiumMonotonicUnderSellPrice(t *testing.T) {
	c := NewCalculator(0, nil)
	c.UpdatePrice(domain.Upbit, 3000)
	c.UpdatePrice(domain.Bithumb, 3000)

	before := c.GetPremium(domain.Upbit, domain.Bithumb)
	c.UpdatePrice(domain.Bithumb, 3100)
	after := c.GetPremium(domain.Upbit, domain.Bithumb)

	assert.Greater(t, after, before, "raising sell_krw must strictly increase the cell")
}

func TestPremiumMonotonicUnderFX(t *testing.T) {
	c := NewCalculator(0, nil)
	c.UpdatePrice(domain.Upbit, 3000)
	c.UpdatePrice(domain.Binance, 2.0)
	c.UpdateFX(1300)

	// buy_krw (Upbit, KRW-native) is held constant; raising FX raises
	// sell_krw (Binance converted), which must strictly raise the cell.
	before := c.GetPremium(domain.Upbit, domain.Binance)
	c.UpdateFX(1400)
	after := c.GetPremium(domain.Upbit, domain.Binance)

	assert.Greater(t, after, before, "raising FX must strictly increase the Upbit->Binance cell")
}

func TestDiagonalIsZeroAndUndefinedCellsAreNaN(t *testing.T) {
	c := NewCalculator(0, nil)
	m := c.GetMatrix()
	for _, v := range domain.AllVenues() {
		assert.Equal(t, 0.0, m[v][v])
	}
	assert.True(t, math.IsNaN(c.GetPremium(domain.Binance, domain.Upbit)), "no prices yet: cell must be NaN")
}

func TestNonPositiveFXInvalidatesCrossCurrencyCells(t *testing.T) {
	c := NewCalculator(0, nil)
	c.UpdatePrice(domain.Upbit, 3000)
	c.UpdatePrice(domain.Binance, 2.0)
	c.UpdateFX(1400)
	require.False(t, math.IsNaN(c.GetPremium(domain.Binance, domain.Upbit)))

	c.UpdateFX(0)
	assert.True(t, math.IsNaN(c.GetPremium(domain.Binance, domain.Upbit)))
	// a KRW-KRW pair must stay well-defined regardless of FX validity
	c.UpdatePrice(domain.Bithumb, 2990)
	assert.False(t, math.IsNaN(c.GetPremium(domain.Upbit, domain.Bithumb)))
}

func TestAlertFiresAboveThresholdWithLockReleased(t *testing.T) {
	var mu sync.Mutex
	var fired []domain.Opportunity

	c := NewCalculator(1.0, func(o domain.Opportunity) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, o)
	})
	c.UpdatePrice(domain.Upbit, 3000)
	c.UpdatePrice(domain.Binance, 2.0)
	c.UpdateFX(1400) // Binance->Upbit premium now well above 1%

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, fired)
	for _, o := range fired {
		assert.GreaterOrEqual(t, o.Premium, 1.0)
	}
}

func TestConsistentPrefixNoTornReads(t *testing.T) {
	c := NewCalculator(0, nil)
	c.UpdatePrice(domain.Upbit, 3000)
	c.UpdatePrice(domain.Binance, 2.0)
	c.UpdateFX(1400)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	var readErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				m := c.GetMatrix()
				for i := 0; i < domain.NumVenues; i++ {
					if !math.IsNaN(m[i][i]) && m[i][i] != 0 {
						readErr = assertErr("diagonal cell was not zero mid-read")
						return
					}
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		c.UpdatePrice(domain.Upbit, 3000+float64(i))
		c.UpdateFX(1400 + float64(i))
	}
	close(stop)
	wg.Wait()
	require.NoError(t, readErr)
}

func assertErr(msg string) error { return &simpleErr{msg} }

type simpleErr struct{ msg string }

func (e *simpleErr) Error() string { return e.msg }

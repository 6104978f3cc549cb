package domain

import "time"

// FXRate is the USD→KRW mid rate used to normalize offshore venue prices
// into KRW for premium computation.
type FXRate struct {
	Rate      float64
	Source    string
	Timestamp time.Time
	Fresh     bool
}

// Valid reports whether the rate is usable: strictly positive, and
// marked fresh by whoever produced it (the fx loader applies the
// staleness bound from spec.md §6 before setting Fresh).
func (f FXRate) Valid() bool {
	return f.Rate > 0 && f.Fresh
}

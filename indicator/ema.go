// Package indicator implements the technical indicators derived from a rolling
// tick price history. All functions are pure and recompute from the provided
// series on every call, a deliberate tradeoff valid at the 10 ticks/second
// cadence with a capped history.
package indicator

// EMA returns the exponential moving average of the provided price series,
// iteratively smoothed with k = 2/(period+1) and seeded at the first sample.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period < 1 {
		return 0
	}

	k := 2 / float64(period+1)
	ema := prices[0]
	for idx := 1; idx < len(prices); idx++ {
		ema = prices[idx]*k + ema*(1-k)
	}

	return ema
}

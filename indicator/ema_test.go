package indicator

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

// ramp generates a linear price series for tests.
func ramp(size int, start float64, step float64) []float64 {
	prices := make([]float64, size)
	for idx := range prices {
		prices[idx] = start + float64(idx)*step
	}

	return prices
}

// flat generates a constant price series for tests.
func flat(size int, price float64) []float64 {
	prices := make([]float64, size)
	for idx := range prices {
		prices[idx] = price
	}

	return prices
}

func TestEMA(t *testing.T) {
	// Ensure degenerate inputs return zero.
	assert.Equal(t, 0.0, EMA(nil, 10))
	assert.Equal(t, 0.0, EMA([]float64{100}, 0))

	// Ensure a single sample seeds the average.
	assert.Equal(t, 100.0, EMA([]float64{100}, 10))

	// Ensure a constant series averages to the constant.
	ema := EMA(flat(50, 42), 10)
	assert.True(t, math.Abs(ema-42) < 1e-9)

	// Ensure a rising series lands between the first and last sample, closer
	// to the recent end.
	prices := ramp(100, 100, 1)
	ema = EMA(prices, 10)
	assert.True(t, ema > prices[0])
	assert.True(t, ema < prices[len(prices)-1])
	assert.True(t, ema > prices[len(prices)/2])
}

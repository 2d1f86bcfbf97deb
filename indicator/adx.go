package indicator

import (
	"math"

	"github.com/dnldd/pulse/shared"
)

const (
	// lowTrendADX is returned while the history is too short to seed the averages.
	lowTrendADX = 20

	// Empirical normalization band mapping atr/price to [0, 1].
	minNormalizedATRBand = 0.00005
	maxNormalizedATRBand = 0.005
)

// wilderSmooth applies the wilder recursion to the provided series, seeding
// with a simple mean of the first period values and returning the smoothed
// value at every subsequent step.
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	var seed float64
	for idx := 0; idx < period; idx++ {
		seed += values[idx]
	}
	seed /= float64(period)

	smoothed := make([]float64, 0, len(values)-period+1)
	smoothed = append(smoothed, seed)

	avg := seed
	for idx := period; idx < len(values); idx++ {
		avg = (avg*float64(period-1) + values[idx]) / float64(period)
		smoothed = append(smoothed, avg)
	}

	return smoothed
}

// ADX returns the average directional index of the provided price series.
// Consecutive price deltas stand in for true directional movement and range
// since no intrabar high/low/close exists at tick granularity; downstream
// consumers are tuned to the numeric ranges of this proxy.
func ADX(prices []float64, period int) float64 {
	if period < 1 || len(prices) < period+1 {
		return lowTrendADX
	}

	steps := len(prices) - 1
	plusDM := make([]float64, steps)
	minusDM := make([]float64, steps)
	trueRange := make([]float64, steps)
	for idx := 1; idx < len(prices); idx++ {
		delta := prices[idx] - prices[idx-1]
		switch {
		case delta > 0:
			plusDM[idx-1] = delta
		case delta < 0:
			minusDM[idx-1] = -delta
		}
		trueRange[idx-1] = math.Abs(delta)
	}

	smoothPlus := wilderSmooth(plusDM, period)
	smoothMinus := wilderSmooth(minusDM, period)
	smoothTR := wilderSmooth(trueRange, period)

	dx := make([]float64, 0, len(smoothTR))
	for idx := range smoothTR {
		if smoothTR[idx] == 0 {
			dx = append(dx, 0)
			continue
		}

		plusDI := 100 * smoothPlus[idx] / smoothTR[idx]
		minusDI := 100 * smoothMinus[idx] / smoothTR[idx]
		sum := plusDI + minusDI
		if sum == 0 {
			dx = append(dx, 0)
			continue
		}

		dx = append(dx, 100*math.Abs(plusDI-minusDI)/sum)
	}

	adx := dx[0]
	for idx := 1; idx < len(dx); idx++ {
		adx = (adx*float64(period-1) + dx[idx]) / float64(period)
	}

	return adx
}

// ATR returns the wilder-smoothed mean absolute consecutive price change of the
// provided series, raw and unnormalized. Zero is returned while the history is
// too short to seed the average.
func ATR(prices []float64, period int) float64 {
	if period < 1 || len(prices) < period+1 {
		return 0
	}

	var atr float64
	for idx := 1; idx <= period; idx++ {
		atr += math.Abs(prices[idx] - prices[idx-1])
	}
	atr /= float64(period)

	for idx := period + 1; idx < len(prices); idx++ {
		atr = (atr*float64(period-1) + math.Abs(prices[idx]-prices[idx-1])) / float64(period)
	}

	return atr
}

// NormalizeATR maps the provided raw ATR to [0, 1] relative to the current
// price through the empirical band.
func NormalizeATR(atr float64, price float64) float64 {
	if price <= 0 {
		return 0
	}

	return shared.MapRange(atr/price, minNormalizedATRBand, maxNormalizedATRBand, 0, 1)
}

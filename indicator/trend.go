package indicator

import (
	"math"

	"github.com/dnldd/pulse/shared"
)

const (
	// minMacroTrendSamples is the minimum history required for the macro trend.
	minMacroTrendSamples = 20
	// volatilityWindow is the return window of the volatility signal.
	volatilityWindow = 20
	// momentumWindow is the maximum lookback of the momentum signal.
	momentumWindow = 20
	// momentumScale converts the fractional price change to the [-1, 1] band.
	momentumScale = 50
	// trendWindow is the sample window of the coarse trend classification.
	trendWindow = 30
	// trendThreshold is the relative half-mean difference required for a trend.
	trendThreshold = 0.002

	// Empirical normalization band mapping return deviation to [0, 1].
	minVolatilityBand = 0.0005
	maxVolatilityBand = 0.008
)

// MacroTrend returns the EMA crossover trend score, (short − long)/price·100
// clamped to [-1, 1]. Both EMAs are computed over whatever window is available
// so the signal is defined for any history of at least twenty samples.
func MacroTrend(prices []float64, shortPeriod int, longPeriod int) float64 {
	if len(prices) < minMacroTrendSamples {
		return 0
	}

	price := prices[len(prices)-1]
	if price == 0 {
		return 0
	}

	shortEMA := EMA(prices, shortPeriod)
	longEMA := EMA(prices, longPeriod)

	return shared.Clamp((shortEMA-longEMA)/price*100, -1, 1)
}

// Volatility returns the standard deviation of percentage returns over the
// last twenty samples, mapped to [0, 1] through the empirical band.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	window := prices
	if len(window) > volatilityWindow+1 {
		window = window[len(window)-volatilityWindow-1:]
	}

	returns := make([]float64, 0, len(window)-1)
	for idx := 1; idx < len(window); idx++ {
		if window[idx-1] == 0 {
			continue
		}
		returns = append(returns, (window[idx]-window[idx-1])/window[idx-1])
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for idx := range returns {
		mean += returns[idx]
	}
	mean /= float64(len(returns))

	var variance float64
	for idx := range returns {
		diff := returns[idx] - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	return shared.MapRange(math.Sqrt(variance), minVolatilityBand, maxVolatilityBand, 0, 1)
}

// Momentum returns the percentage price change over the last twenty or fewer
// samples, scaled and clamped to [-1, 1].
func Momentum(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	window := prices
	if len(window) > momentumWindow {
		window = window[len(window)-momentumWindow:]
	}

	first := window[0]
	if first == 0 {
		return 0
	}

	change := (window[len(window)-1] - first) / first
	return shared.Clamp(change*momentumScale, -1, 1)
}

// ClassifyTrend compares the mean of the first half against the second half of
// the last thirty samples and classifies the difference against a ±0.2%
// relative threshold.
func ClassifyTrend(prices []float64) shared.Sentiment {
	if len(prices) < trendWindow {
		return shared.Neutral
	}

	window := prices[len(prices)-trendWindow:]
	half := trendWindow / 2

	var firstMean, secondMean float64
	for idx := 0; idx < half; idx++ {
		firstMean += window[idx]
		secondMean += window[half+idx]
	}
	firstMean /= float64(half)
	secondMean /= float64(half)

	if firstMean == 0 {
		return shared.Neutral
	}

	diff := (secondMean - firstMean) / firstMean
	switch {
	case diff > trendThreshold:
		return shared.Bullish
	case diff < -trendThreshold:
		return shared.Bearish
	default:
		return shared.Neutral
	}
}

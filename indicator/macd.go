package indicator

import "github.com/dnldd/pulse/shared"

// MACD returns the moving average convergence divergence triple of the provided
// price series. The fast and slow EMAs are tracked point-by-point to build the
// MACD line series, and the signal line is the EMA of that series. An all-zero
// value is returned while the history is shorter than the slow period.
func MACD(prices []float64, fastPeriod int, slowPeriod int, signalPeriod int) shared.MACDValue {
	if len(prices) < slowPeriod || fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 {
		return shared.MACDValue{}
	}

	fastK := 2 / float64(fastPeriod+1)
	slowK := 2 / float64(slowPeriod+1)

	fastEMA := prices[0]
	slowEMA := prices[0]
	macdLine := make([]float64, len(prices))
	for idx := 1; idx < len(prices); idx++ {
		fastEMA = prices[idx]*fastK + fastEMA*(1-fastK)
		slowEMA = prices[idx]*slowK + slowEMA*(1-slowK)
		macdLine[idx] = fastEMA - slowEMA
	}

	macd := macdLine[len(macdLine)-1]
	signal := EMA(macdLine, signalPeriod)

	return shared.MACDValue{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

package indicator

const (
	// neutralRSI is returned while the history is too short to seed the averages.
	neutralRSI = 50
)

// RSI returns the relative strength index of the provided price series using
// wilder smoothing. The average gain/loss is seeded as a simple mean of the
// first period steps, then recursively smoothed through the remainder of the
// series.
func RSI(prices []float64, period int) float64 {
	if period < 1 || len(prices) < period+1 {
		return neutralRSI
	}

	var avgGain, avgLoss float64
	for idx := 1; idx <= period; idx++ {
		delta := prices[idx] - prices[idx-1]
		switch {
		case delta > 0:
			avgGain += delta
		case delta < 0:
			avgLoss -= delta
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for idx := period + 1; idx < len(prices); idx++ {
		delta := prices[idx] - prices[idx-1]

		var gain, loss float64
		switch {
		case delta > 0:
			gain = delta
		case delta < 0:
			loss = -delta
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	return 100 - 100/(1+avgGain/avgLoss)
}

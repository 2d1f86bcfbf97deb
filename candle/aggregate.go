// Package candle folds a tick price history into fixed-size synthetic OHLC
// candles and scans the most recent candles for reversal and continuation
// formations.
package candle

import "github.com/dnldd/pulse/shared"

// Aggregate partitions the provided price history into complete, non-overlapping
// windows of ticksPerCandle ticks and emits one candle per window. A partial
// trailing window is dropped, a candle only exists once its window completes.
func Aggregate(prices []float64, ticksPerCandle int) []shared.Candlestick {
	if ticksPerCandle < 1 {
		return nil
	}

	count := len(prices) / ticksPerCandle
	candles := make([]shared.Candlestick, 0, count)
	for window := 0; window < count; window++ {
		start := window * ticksPerCandle
		end := start + ticksPerCandle

		stick := shared.Candlestick{
			Open:       prices[start],
			High:       prices[start],
			Low:        prices[start],
			Close:      prices[end-1],
			TickCount:  ticksPerCandle,
			StartIndex: start,
		}
		for idx := start + 1; idx < end; idx++ {
			if prices[idx] > stick.High {
				stick.High = prices[idx]
			}
			if prices[idx] < stick.Low {
				stick.Low = prices[idx]
			}
		}

		candles = append(candles, stick)
	}

	return candles
}

package shared

// MACDValue represents the moving average convergence divergence triple.
type MACDValue struct {
	// MACD is the fast EMA minus the slow EMA.
	MACD float64
	// Signal is the EMA of the MACD line.
	Signal float64
	// Histogram is the MACD line minus the signal line.
	Histogram float64
}

// SignalSnapshot represents the derived signal state published to consumers on
// every processed tick. Consumers must treat it as read-only.
type SignalSnapshot struct {
	// Market is the symbol the snapshot was derived for.
	Market string
	// Price is the latest tick price.
	Price float64
	// Open is the first price observed for the session.
	Open float64
	// High is the highest price observed for the session.
	High float64
	// Low is the lowest price observed for the session.
	Low float64
	// Change is the price change relative to the session open.
	Change float64
	// ChangePercent is the percentage change relative to the session open.
	ChangePercent float64
	// Volume is the latest tick volume.
	Volume float64

	// RSI is the relative strength index, in [0, 100].
	RSI float64
	// MACD is the moving average convergence divergence triple.
	MACD MACDValue
	// ADX is the average directional index, in [0, 100].
	ADX float64
	// ATR is the raw wilder-smoothed average true range.
	ATR float64
	// ATRNormalized is the ATR mapped to [0, 1] relative to the current price.
	ATRNormalized float64
	// MacroTrend is the EMA crossover trend score, in [-1, 1].
	MacroTrend float64
	// Volatility is the normalized return deviation, in [0, 1].
	Volatility float64
	// Momentum is the normalized short-window price change, in [-1, 1].
	Momentum float64
	// Trend is the coarse trend classification.
	Trend Sentiment

	// Candles is the completed synthetic candle series.
	Candles []Candlestick
	// Pattern is the most recent accepted pattern detection, nil when none.
	Pattern *Pattern
	// TotalTicks is the monotonic tick count for the symbol.
	TotalTicks uint64
	// Timestamp is the tick time the snapshot was derived at, unix milliseconds.
	Timestamp int64
}

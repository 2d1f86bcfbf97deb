package shared

// Tick represents a single traded price update for a market.
type Tick struct {
	// Market is the symbol the tick was observed for.
	Market string
	// Price is the traded price.
	Price float64
	// Volume is the traded size, zero when the source does not report it.
	Volume float64
	// Timestamp is the tick time in unix milliseconds.
	Timestamp int64
}

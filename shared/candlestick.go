package shared

import "math"

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown sentiment"
	}
}

// Candlestick represents a fixed-size run of ticks folded into an OHLC candle.
type Candlestick struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	// TickCount is the number of ticks folded into the candle.
	TickCount int
	// StartIndex is the index of the first tick of the window in the source history.
	StartIndex int
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// Body returns the absolute size of the candle body.
func (c *Candlestick) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns the full extent of the candle.
func (c *Candlestick) Range() float64 {
	return c.High - c.Low
}

// UpperWick returns the extent of the candle above its body.
func (c *Candlestick) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the extent of the candle below its body.
func (c *Candlestick) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// Midpoint returns the midpoint of the candle body.
func (c *Candlestick) Midpoint() float64 {
	return (c.Open + c.Close) / 2
}

package shared

// PatternKind represents a named candlestick formation.
type PatternKind int

const (
	Doji PatternKind = iota
	Hammer
	ShootingStar
	BullishEngulfing
	BearishEngulfing
	MorningStar
	EveningStar
)

// String stringifies the provided pattern kind.
func (k PatternKind) String() string {
	switch k {
	case Doji:
		return "doji"
	case Hammer:
		return "hammer"
	case ShootingStar:
		return "shooting star"
	case BullishEngulfing:
		return "bullish engulfing"
	case BearishEngulfing:
		return "bearish engulfing"
	case MorningStar:
		return "morning star"
	case EveningStar:
		return "evening star"
	default:
		return "unknown pattern"
	}
}

// Sentiment returns the fixed sentiment of the pattern kind.
func (k PatternKind) Sentiment() Sentiment {
	switch k {
	case Hammer, BullishEngulfing, MorningStar:
		return Bullish
	case ShootingStar, BearishEngulfing, EveningStar:
		return Bearish
	default:
		return Neutral
	}
}

// Span returns the number of candles the pattern kind is formed from. It doubles
// as the detection priority, multi-candle formations outrank single-candle ones.
func (k PatternKind) Span() int {
	switch k {
	case MorningStar, EveningStar:
		return 3
	case BullishEngulfing, BearishEngulfing:
		return 2
	default:
		return 1
	}
}

// Pattern represents a discrete, timestamped detection of a candlestick formation.
type Pattern struct {
	// ID uniquely identifies the detection.
	ID string
	// Market is the symbol the pattern was detected on.
	Market string
	// Kind is the detected formation.
	Kind PatternKind
	// Sentiment is the fixed sentiment of the formation.
	Sentiment Sentiment
	// Strength is the detection confidence, in the (0, 1] range.
	Strength float64
	// Timestamp is the detection time in unix milliseconds.
	Timestamp int64
	// CandleIndex is the index of the completed candle that triggered the detection.
	CandleIndex int
}

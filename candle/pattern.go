package candle

import (
	"math"

	"github.com/dnldd/pulse/shared"
)

const (
	// Doji body to range thresholds.
	strongDojiRatio = 0.10
	weakDojiRatio   = 0.15
	weakDojiScore   = 0.7

	// Wick thresholds shared by the hammer and shooting star.
	minWickToBodyRatio = 2.0
	maxOppositeWick    = 0.3
	wickStrengthScale  = 4.0

	// Star thresholds.
	minStrongBodyRatio = 0.6
	maxStarBodyRatio   = 0.4

	// patternCooldownCandles is the number of completed candles that must
	// elapse before another pattern is accepted.
	patternCooldownCandles = 2
)

// DojiStrength returns the doji confidence of the provided candle.
func DojiStrength(current *shared.Candlestick) float64 {
	candleRange := current.Range()
	if candleRange <= 0 {
		return 0
	}

	switch ratio := current.Body() / candleRange; {
	case ratio < strongDojiRatio:
		return 1
	case ratio < weakDojiRatio:
		return weakDojiScore
	default:
		return 0
	}
}

// HammerStrength returns the hammer confidence of the provided candle, a long
// lower wick with little above the body.
func HammerStrength(current *shared.Candlestick) float64 {
	candleRange := current.Range()
	if candleRange <= 0 || current.UpperWick() >= maxOppositeWick*candleRange {
		return 0
	}

	body := current.Body()
	lowerWick := current.LowerWick()
	if body == 0 {
		if lowerWick > 0 {
			return 1
		}
		return 0
	}

	ratio := lowerWick / body
	if ratio < minWickToBodyRatio {
		return 0
	}

	return math.Min(ratio/wickStrengthScale, 1)
}

// ShootingStarStrength returns the shooting star confidence of the provided
// candle, the hammer mirrored to a long upper wick.
func ShootingStarStrength(current *shared.Candlestick) float64 {
	candleRange := current.Range()
	if candleRange <= 0 || current.LowerWick() >= maxOppositeWick*candleRange {
		return 0
	}

	body := current.Body()
	upperWick := current.UpperWick()
	if body == 0 {
		if upperWick > 0 {
			return 1
		}
		return 0
	}

	ratio := upperWick / body
	if ratio < minWickToBodyRatio {
		return 0
	}

	return math.Min(ratio/wickStrengthScale, 1)
}

// BullishEngulfingStrength returns the bullish engulfing confidence of the
// provided candle pair, a bullish body fully containing the prior bearish body.
func BullishEngulfingStrength(previous *shared.Candlestick, current *shared.Candlestick) float64 {
	if previous.FetchSentiment() != shared.Bearish || current.FetchSentiment() != shared.Bullish {
		return 0
	}
	if current.Open > previous.Close || current.Close < previous.Open {
		return 0
	}

	previousBody := previous.Body()
	if previousBody == 0 {
		return 0
	}

	return math.Min(current.Body()/previousBody, 1)
}

// BearishEngulfingStrength returns the bearish engulfing confidence of the
// provided candle pair, a bearish body fully containing the prior bullish body.
func BearishEngulfingStrength(previous *shared.Candlestick, current *shared.Candlestick) float64 {
	if previous.FetchSentiment() != shared.Bullish || current.FetchSentiment() != shared.Bearish {
		return 0
	}
	if current.Open < previous.Close || current.Close > previous.Open {
		return 0
	}

	previousBody := previous.Body()
	if previousBody == 0 {
		return 0
	}

	return math.Min(current.Body()/previousBody, 1)
}

// strongBody reports whether the candle body dominates its range.
func strongBody(stick *shared.Candlestick) bool {
	candleRange := stick.Range()
	return candleRange > 0 && stick.Body() >= minStrongBodyRatio*candleRange
}

// MorningStarStrength returns the morning star confidence of the provided
// candle triple, a strong bearish candle, a small-bodied star and a strong
// bullish candle closing beyond the first candle's midpoint.
func MorningStarStrength(first *shared.Candlestick, star *shared.Candlestick, last *shared.Candlestick) float64 {
	if first.FetchSentiment() != shared.Bearish || !strongBody(first) {
		return 0
	}
	if star.Body() > maxStarBodyRatio*first.Body() {
		return 0
	}
	if last.FetchSentiment() != shared.Bullish || !strongBody(last) {
		return 0
	}
	if last.Close <= first.Midpoint() {
		return 0
	}

	penetration := (last.Close - first.Midpoint()) / (first.Body() / 2)
	return math.Min(penetration, 1)
}

// EveningStarStrength returns the evening star confidence of the provided
// candle triple, the morning star mirrored to a bearish reversal.
func EveningStarStrength(first *shared.Candlestick, star *shared.Candlestick, last *shared.Candlestick) float64 {
	if first.FetchSentiment() != shared.Bullish || !strongBody(first) {
		return 0
	}
	if star.Body() > maxStarBodyRatio*first.Body() {
		return 0
	}
	if last.FetchSentiment() != shared.Bearish || !strongBody(last) {
		return 0
	}
	if last.Close >= first.Midpoint() {
		return 0
	}

	penetration := (first.Midpoint() - last.Close) / (first.Body() / 2)
	return math.Min(penetration, 1)
}

// Detect scans the tail of the provided completed candle series and returns the
// single highest-priority match at the latest candle, three-candle formations
// outranking two-candle ones, which outrank single-candle ones.
func Detect(candles []shared.Candlestick) (shared.Pattern, bool) {
	if len(candles) == 0 {
		return shared.Pattern{}, false
	}

	current := &candles[len(candles)-1]

	var previous, first *shared.Candlestick
	if len(candles) >= 2 {
		previous = &candles[len(candles)-2]
	}
	if len(candles) >= 3 {
		first = &candles[len(candles)-3]
	}

	type match struct {
		kind     shared.PatternKind
		strength float64
	}

	candidates := []match{}
	if first != nil {
		candidates = append(candidates,
			match{shared.MorningStar, MorningStarStrength(first, previous, current)},
			match{shared.EveningStar, EveningStarStrength(first, previous, current)},
		)
	}
	if previous != nil {
		candidates = append(candidates,
			match{shared.BullishEngulfing, BullishEngulfingStrength(previous, current)},
			match{shared.BearishEngulfing, BearishEngulfingStrength(previous, current)},
		)
	}
	candidates = append(candidates,
		match{shared.Hammer, HammerStrength(current)},
		match{shared.ShootingStar, ShootingStarStrength(current)},
		match{shared.Doji, DojiStrength(current)},
	)

	// Candidates are ordered by descending span, the first hit wins.
	for idx := range candidates {
		if candidates[idx].strength == 0 {
			continue
		}

		return shared.Pattern{
			Kind:        candidates[idx].kind,
			Sentiment:   candidates[idx].kind.Sentiment(),
			Strength:    candidates[idx].strength,
			CandleIndex: len(candles) - 1,
		}, true
	}

	return shared.Pattern{}, false
}

// Tracker applies the pattern cooldown, a detection is only accepted once at
// least two completed candles have elapsed since the previously accepted one.
// The very first detection for a symbol is exempt.
type Tracker struct {
	accepted  bool
	lastIndex int
}

// Accept reports whether a detection at the provided completed-candle index
// clears the cooldown, recording it when it does.
func (t *Tracker) Accept(candleIndex int) bool {
	if t.accepted && candleIndex-t.lastIndex < patternCooldownCandles {
		return false
	}

	t.accepted = true
	t.lastIndex = candleIndex

	return true
}

package shared

import "testing"

func TestPatternKindString(t *testing.T) {
	tests := []struct {
		name string
		kind PatternKind
		want string
	}{
		{
			"doji",
			Doji,
			"doji",
		},
		{
			"hammer",
			Hammer,
			"hammer",
		},
		{
			"shooting star",
			ShootingStar,
			"shooting star",
		},
		{
			"bullish engulfing",
			BullishEngulfing,
			"bullish engulfing",
		},
		{
			"bearish engulfing",
			BearishEngulfing,
			"bearish engulfing",
		},
		{
			"morning star",
			MorningStar,
			"morning star",
		},
		{
			"evening star",
			EveningStar,
			"evening star",
		},
		{
			"unknown pattern",
			PatternKind(999),
			"unknown pattern",
		},
	}

	for _, test := range tests {
		str := test.kind.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestPatternKindSentiment(t *testing.T) {
	tests := []struct {
		name string
		kind PatternKind
		want Sentiment
	}{
		{
			"doji is neutral",
			Doji,
			Neutral,
		},
		{
			"hammer is bullish",
			Hammer,
			Bullish,
		},
		{
			"shooting star is bearish",
			ShootingStar,
			Bearish,
		},
		{
			"bullish engulfing is bullish",
			BullishEngulfing,
			Bullish,
		},
		{
			"bearish engulfing is bearish",
			BearishEngulfing,
			Bearish,
		},
		{
			"morning star is bullish",
			MorningStar,
			Bullish,
		},
		{
			"evening star is bearish",
			EveningStar,
			Bearish,
		},
	}

	for _, test := range tests {
		sentiment := test.kind.Sentiment()
		if sentiment != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, sentiment)
		}
	}
}

func TestPatternKindSpan(t *testing.T) {
	tests := []struct {
		name string
		kind PatternKind
		want int
	}{
		{
			"doji spans one candle",
			Doji,
			1,
		},
		{
			"hammer spans one candle",
			Hammer,
			1,
		},
		{
			"shooting star spans one candle",
			ShootingStar,
			1,
		},
		{
			"bullish engulfing spans two candles",
			BullishEngulfing,
			2,
		},
		{
			"bearish engulfing spans two candles",
			BearishEngulfing,
			2,
		},
		{
			"morning star spans three candles",
			MorningStar,
			3,
		},
		{
			"evening star spans three candles",
			EveningStar,
			3,
		},
	}

	for _, test := range tests {
		span := test.kind.Span()
		if span != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, span)
		}
	}
}

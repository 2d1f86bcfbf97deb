package shared

// Clamp bounds the provided value to the [low, high] range.
func Clamp(value float64, low float64, high float64) float64 {
	switch {
	case value < low:
		return low
	case value > high:
		return high
	default:
		return value
	}
}

// MapRange maps the provided value from the [inLow, inHigh] band to the
// [outLow, outHigh] band, clamped to the output band.
func MapRange(value float64, inLow float64, inHigh float64, outLow float64, outHigh float64) float64 {
	if inHigh == inLow {
		return outLow
	}

	scaled := outLow + (value-inLow)*(outHigh-outLow)/(inHigh-inLow)
	return Clamp(scaled, outLow, outHigh)
}

package indicator

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestMACD(t *testing.T) {
	fast, slow, signal := 5, 20, 5

	// Ensure a short history returns the zero value.
	value := MACD(ramp(slow-1, 100, 1), fast, slow, signal)
	assert.Equal(t, 0.0, value.MACD)
	assert.Equal(t, 0.0, value.Signal)
	assert.Equal(t, 0.0, value.Histogram)

	// Ensure a constant series produces no divergence.
	value = MACD(flat(100, 42), fast, slow, signal)
	assert.True(t, math.Abs(value.MACD) < 1e-9)
	assert.True(t, math.Abs(value.Histogram) < 1e-9)

	// Ensure a rising series keeps the fast average above the slow one and the
	// line above its own signal.
	value = MACD(ramp(100, 100, 1), fast, slow, signal)
	assert.True(t, value.MACD > 0)
	assert.True(t, value.Histogram > 0)

	// Ensure a falling series inverts the divergence.
	value = MACD(ramp(100, 200, -1), fast, slow, signal)
	assert.True(t, value.MACD < 0)
	assert.True(t, value.Histogram < 0)
}

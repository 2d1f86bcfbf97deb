package engine

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestHistory(t *testing.T) {
	history := NewHistory(DefaultHistoryCapacity)

	// Ensure an empty history has sane zero values.
	assert.Equal(t, 0, history.Len())
	assert.Equal(t, 0.0, history.Last())
	assert.Equal(t, uint64(0), history.TotalTicks())

	// Ensure the buffer caps at capacity while the counter keeps running.
	total := DefaultHistoryCapacity + 500
	for idx := 0; idx < total; idx++ {
		history.Append(float64(idx))
	}

	assert.Equal(t, DefaultHistoryCapacity, history.Len())
	assert.Equal(t, uint64(total), history.TotalTicks())

	// Ensure eviction is oldest-first, the buffer holds the most recent
	// capacity prices in arrival order.
	prices := history.Prices()
	assert.Equal(t, float64(total-DefaultHistoryCapacity), prices[0])
	assert.Equal(t, float64(total-1), prices[len(prices)-1])
	assert.Equal(t, float64(total-1), history.Last())
}

func TestHistoryDefaultsCapacity(t *testing.T) {
	// Ensure a degenerate capacity falls back to the default.
	history := NewHistory(0)
	for idx := 0; idx < DefaultHistoryCapacity*2; idx++ {
		history.Append(float64(idx))
	}

	assert.Equal(t, DefaultHistoryCapacity, history.Len())
	assert.Equal(t, uint64(DefaultHistoryCapacity*2), history.TotalTicks())
}

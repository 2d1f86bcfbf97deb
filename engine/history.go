// Package engine maintains the per-symbol rolling price history and derives the
// published signal snapshot on every processed tick.
package engine

import (
	"slices"

	"go.uber.org/atomic"
)

const (
	// DefaultHistoryCapacity is the default rolling history capacity.
	DefaultHistoryCapacity = 1000
)

// History is the bounded rolling price history of a symbol. The buffer holds
// the most recent prices in arrival order while the tick counter increments
// unconditionally on every append. The counter is the clock for candle
// boundary arithmetic and must never be capped alongside the buffer.
type History struct {
	prices   []float64
	capacity int
	total    atomic.Uint64
}

// NewHistory initializes a rolling history with the provided capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}

	return &History{
		prices:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append records the provided price, evicting the oldest entries once the
// buffer is at capacity.
func (h *History) Append(price float64) {
	h.prices = append(h.prices, price)
	if excess := len(h.prices) - h.capacity; excess > 0 {
		h.prices = slices.Delete(h.prices, 0, excess)
	}

	h.total.Add(1)
}

// Prices returns the buffered prices in arrival order. Callers must treat the
// returned slice as read-only.
func (h *History) Prices() []float64 {
	return h.prices
}

// Last returns the most recent price, zero when the history is empty.
func (h *History) Last() float64 {
	if len(h.prices) == 0 {
		return 0
	}

	return h.prices[len(h.prices)-1]
}

// Len returns the buffered price count.
func (h *History) Len() int {
	return len(h.prices)
}

// TotalTicks returns the monotonic tick count, unaffected by eviction. It is
// safe to read concurrently with Append.
func (h *History) TotalTicks() uint64 {
	return h.total.Load()
}

package loudness

import (
	"math"

	"github.com/farcloser/tympanum/internal/types"
)

const (
	// HistoryLen is the default number of short-term values kept for the chart.
	HistoryLen = 300
	// Floor is the display value for silence and missing measurements, in dB.
	Floor = -50.0
)

// Display maps a measurement to the chart: non-finite values read as Floor.
func Display(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Floor
	}

	return value
}

// History is a fixed-length series of short-term loudness values, oldest first.
type History struct {
	values []float64
}

// NewHistory returns a history of size entries (HistoryLen when size <= 0), all at Floor.
func NewHistory(size int) *History {
	if size <= 0 {
		size = HistoryLen
	}

	history := &History{values: make([]float64, size)}
	history.Reset()

	return history
}

// Push shifts every value left by one and writes value at the tail.
func (h *History) Push(value float64) {
	copy(h.values, h.values[1:])
	h.values[len(h.values)-1] = Display(value)
}

// Reset refills the history with Floor.
func (h *History) Reset() {
	for i := range h.values {
		h.values[i] = Floor
	}
}

func (h *History) Len() int { return len(h.values) }

// Last is the newest value.
func (h *History) Last() float64 { return h.values[len(h.values)-1] }

// Values returns a copy, oldest first.
func (h *History) Values() []float64 {
	return append([]float64(nil), h.values...)
}

// Points returns the chart series, x being the entry index.
func (h *History) Points() []types.Point {
	points := make([]types.Point, len(h.values))
	for i, value := range h.values {
		points[i] = types.Point{X: float64(i), Y: value}
	}

	return points
}

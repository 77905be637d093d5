package volume

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Histogram is the value distribution of a volume over equal-width bins
// spanning [Min, Max].
type Histogram struct {
	Min, Max float64

	// Edges has one more entry than Counts; bin i covers [Edges[i], Edges[i+1]).
	// The last bin also includes Max.
	Edges  []float64
	Counts []float64
}

// NewHistogram creates an empty histogram.
func NewHistogram(min, max float64, bins int) *Histogram {
	if bins < 1 {
		bins = 1
	}
	return &Histogram{
		Min:    min,
		Max:    max,
		Edges:  floats.Span(make([]float64, bins+1), min, max),
		Counts: make([]float64, bins),
	}
}

// Bin returns the bin v falls into, clamped to the histogram range, or -1
// for NaN.
func (h *Histogram) Bin(v float64) int {
	n := len(h.Counts)
	switch {
	case math.IsNaN(v):
		return -1
	case h.Max <= h.Min || v < h.Min:
		return 0
	case v >= h.Max:
		return n - 1
	}
	if i := floats.Within(h.Edges, v); i >= 0 {
		return i
	}
	return n - 1
}

// Clone returns a deep copy of h.
func (h *Histogram) Clone() *Histogram {
	return &Histogram{
		Min:    h.Min,
		Max:    h.Max,
		Edges:  append([]float64(nil), h.Edges...),
		Counts: append([]float64(nil), h.Counts...),
	}
}

// Add counts one value. NaN is ignored.
func (h *Histogram) Add(v float64) {
	if i := h.Bin(v); i >= 0 {
		h.Counts[i]++
	}
}

// Total returns the number of counted values.
func (h *Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// Mode returns the centre of the most populated bin.
func (h *Histogram) Mode() float64 {
	i := floats.MaxIdx(h.Counts)
	return 0.5 * (h.Edges[i] + h.Edges[i+1])
}

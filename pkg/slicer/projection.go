package slicer

import (
	"fmt"
	"math"
	"strings"
)

// Projection selects how contributing samples combine into one pixel.
type Projection int

const (
	// Average is the weighted mean over frames, gates and slab depth.
	Average Projection = iota
	// MaximumIntensity keeps the largest present sample.
	MaximumIntensity
	// MinimumIntensity keeps the smallest present sample.
	MinimumIntensity
)

func (p Projection) String() string {
	switch p {
	case Average:
		return "average"
	case MaximumIntensity:
		return "mip"
	case MinimumIntensity:
		return "minip"
	}
	return fmt.Sprintf("Projection(%d)", int(p))
}

// ParseProjection accepts "average" (or "mpr"), "mip" and "minip".
func ParseProjection(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "average", "avg", "mpr":
		return Average, nil
	case "mip", "max", "maximum":
		return MaximumIntensity, nil
	case "minip", "min", "minimum":
		return MinimumIntensity, nil
	}
	return 0, fmt.Errorf("unknown projection %q", name)
}

// combine folds sample into the running value cur. NaN in cur means no
// sample has been seen yet.
func (p Projection) combine(cur, sample float64) float64 {
	if math.IsNaN(cur) {
		return sample
	}
	if p == MinimumIntensity {
		return math.Min(cur, sample)
	}
	return math.Max(cur, sample)
}

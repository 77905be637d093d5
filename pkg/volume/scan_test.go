package volume

import (
	"errors"
	"math"
	"testing"

	"volslice/pkg/progress"
)

// TestComputeGlobalMinMax verifies global and per-frame extremes
func TestComputeGlobalMinMax(t *testing.T) {
	dim := Dim5{X: 3, Y: 2, Z: 2, Gate: 2, Time: 3}
	v := createRamp(t, dim)

	lo, hi, err := v.ComputeGlobalMinMax(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if lo != 0 || hi != float64(dim.Voxels()-1) {
		t.Errorf("Expected [0,%d], got [%g,%g]", dim.Voxels()-1, lo, hi)
	}

	perFrame := dim.Voxels() / dim.Time
	for f := 0; f < dim.Time; f++ {
		flo, fhi, err := v.FrameMinMax(f)
		if err != nil {
			t.Fatalf("Frame %d: %v", f, err)
		}
		if flo != float64(f*perFrame) || fhi != float64((f+1)*perFrame-1) {
			t.Errorf("Frame %d: expected [%d,%d], got [%g,%g]", f, f*perFrame, (f+1)*perFrame-1, flo, fhi)
		}
	}
	if _, _, err := v.FrameMinMax(dim.Time); err == nil {
		t.Error("Expected an error for a frame outside the volume")
	}
}

// TestMinMaxIgnoresNaN verifies that NaN voxels do not poison the extremes
func TestMinMaxIgnoresNaN(t *testing.T) {
	dim := Dim5{X: 4, Y: 1, Z: 1, Gate: 1, Time: 1}
	v, err := FromData(dim, []float64{math.NaN(), -2, 7, math.NaN()})
	if err != nil {
		t.Fatal(err)
	}

	lo, hi := v.MinMax()
	if lo != -2 || hi != 7 {
		t.Errorf("Expected [-2,7], got [%g,%g]", lo, hi)
	}

	allNaN, _ := FromData(Dim5{X: 1, Y: 1, Z: 1, Gate: 1, Time: 1}, []float32{float32(math.NaN())})
	if lo, hi := allNaN.MinMax(); lo != 0 || hi != 0 {
		t.Errorf("Expected [0,0] for an all-NaN volume, got [%g,%g]", lo, hi)
	}
}

// TestCacheInvalidation verifies that writes drop the cached extremes
func TestCacheInvalidation(t *testing.T) {
	v := createRamp(t, Dim5{X: 2, Y: 2, Z: 1, Gate: 1, Time: 1})

	if _, hi := v.MinMax(); hi != 3 {
		t.Fatalf("Expected max 3, got %g", hi)
	}
	if err := v.SetRaw(Index5{X: 1, Y: 1}, 42); err != nil {
		t.Fatal(err)
	}
	if _, hi := v.MinMax(); hi != 42 {
		t.Errorf("Expected max 42 after write, got %g", hi)
	}
	if err := v.SetRaw(Index5{X: 5}, 1); err == nil {
		t.Error("Expected an error for an out-of-bounds write")
	}
}

// TestCancelledScanLeavesNoCache verifies the cancellation contract of full scans
func TestCancelledScanLeavesNoCache(t *testing.T) {
	dim := Dim5{X: 4, Y: 4, Z: 4, Gate: 2, Time: 2}
	v := createRamp(t, dim, WithProgressEvery(1))

	calls := 0
	stopAfterTwo := func(message string, fraction float64) bool {
		calls++
		return calls < 3
	}

	if _, _, err := v.ComputeGlobalMinMax(stopAfterTwo); !errors.Is(err, progress.ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if _, ok := v.cache.loadMinMax(); ok {
		t.Error("Cancelled scan must not cache min/max")
	}

	calls = 0
	if _, err := v.ComputeDistribution(16, stopAfterTwo); !errors.Is(err, progress.ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if h := v.cache.loadDistribution(16); h != nil {
		t.Error("Cancelled scan must not cache a distribution")
	}
}

// TestProgressReporting verifies fractions stay in [0,1] and finish above 1
func TestProgressReporting(t *testing.T) {
	v := createRamp(t, Dim5{X: 2, Y: 2, Z: 3, Gate: 1, Time: 2}, WithProgressEvery(2))

	var fractions []float64
	_, _, err := v.ComputeGlobalMinMax(func(message string, fraction float64) bool {
		if message == "" {
			t.Error("Expected a status message")
		}
		fractions = append(fractions, fraction)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(fractions) < 2 {
		t.Fatalf("Expected several progress reports, got %v", fractions)
	}
	for _, f := range fractions[:len(fractions)-1] {
		if f < 0 || f > 1 {
			t.Errorf("Progress fraction %g outside [0,1]", f)
		}
	}
	if last := fractions[len(fractions)-1]; last <= 1 {
		t.Errorf("Expected a final fraction above 1, got %g", last)
	}
}

// TestComputeDistribution verifies bin counts and caching
func TestComputeDistribution(t *testing.T) {
	dim := Dim5{X: 4, Y: 4, Z: 2, Gate: 1, Time: 1}
	v := createRamp(t, dim)

	h, err := v.ComputeDistribution(4, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h.Min != 0 || h.Max != 31 {
		t.Errorf("Expected range [0,31], got [%g,%g]", h.Min, h.Max)
	}
	if h.Total() != 32 {
		t.Errorf("Expected 32 counted voxels, got %g", h.Total())
	}
	for i, c := range h.Counts {
		if c != 8 {
			t.Errorf("Bin %d: expected 8, got %g", i, c)
		}
	}
	if len(h.Edges) != 5 || h.Edges[0] != 0 || h.Edges[4] != 31 {
		t.Errorf("Unexpected bin edges %v", h.Edges)
	}

	if v.cache.loadDistribution(4) == nil {
		t.Fatal("Expected the distribution to be cached")
	}
	h.Add(0)
	h.Counts[3] = 100
	again, _ := v.ComputeDistribution(4, nil)
	if again == h {
		t.Error("Expected each call to return its own copy")
	}
	for i, c := range again.Counts {
		if c != 8 {
			t.Errorf("Bin %d: expected the cached count 8 after editing a copy, got %g", i, c)
		}
	}
	if _, err := v.ComputeDistribution(0, nil); err == nil {
		t.Error("Expected an error for zero bins")
	}
}

// TestHistogramBins covers clamping, NaN and degenerate ranges
func TestHistogramBins(t *testing.T) {
	h := NewHistogram(0, 10, 5)
	testCases := []struct {
		v   float64
		bin int
	}{
		{0, 0}, {1.99, 0}, {2, 1}, {5, 2}, {9.99, 4}, {10, 4}, {-3, 0}, {50, 4}, {math.NaN(), -1},
	}
	for _, tc := range testCases {
		if got := h.Bin(tc.v); got != tc.bin {
			t.Errorf("Bin(%g): expected %d, got %d", tc.v, tc.bin, got)
		}
	}

	flat := NewHistogram(3, 3, 8)
	flat.Add(3)
	flat.Add(3)
	if flat.Counts[0] != 2 || flat.Mode() != 3 {
		t.Errorf("Expected both values in bin 0 with mode 3, got %v", flat.Counts)
	}
}

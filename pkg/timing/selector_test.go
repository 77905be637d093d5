package timing

import (
	"errors"
	"math"
	"testing"
)

func sumWeights(sel Selection) float64 {
	total := 0.0
	for _, f := range sel.Frames {
		total += f.Weight * float64(len(sel.Gates))
	}
	return total
}

// TestValidateSpans covers the frame timing invariants
func TestValidateSpans(t *testing.T) {
	testCases := []struct {
		name  string
		spans []Span
		valid bool
	}{
		{"default", DefaultSpans(4), true},
		{"gap", []Span{{0, 1}, {2, 1}}, true},
		{"zero duration", []Span{{0, 0}, {0, 1}}, true},
		{"negative", []Span{{0, -1}}, false},
		{"overlap", []Span{{0, 2}, {1, 1}}, false},
		{"decreasing", []Span{{5, 1}, {1, 1}}, false},
	}

	for _, tc := range testCases {
		err := ValidateSpans(tc.spans)
		if tc.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.valid && !errors.Is(err, ErrInvalidFrames) {
			t.Errorf("%s: expected ErrInvalidFrames, got %v", tc.name, err)
		}
	}
}

// TestZeroDurationWindow verifies that an instant selects exactly one frame
func TestZeroDurationWindow(t *testing.T) {
	s := NewSelector(0)
	sel := s.Select([]Span{{0, 1}}, Gates{Count: 1}, Window{Start: 0, Duration: 0}, AllVisibleGates())

	if sel.Empty() {
		t.Fatal("Expected a non-empty selection")
	}
	if len(sel.Frames) != 1 || sel.Frames[0].Frame != 0 {
		t.Fatalf("Expected frame 0, got %+v", sel.Frames)
	}
	if sel.Frames[0].Weight != 1 {
		t.Errorf("Expected time weight 1.0, got %f", sel.Frames[0].Weight)
	}
}

// TestZeroDurationOnBoundary verifies that an instant on a boundary picks the later frame
func TestZeroDurationOnBoundary(t *testing.T) {
	s := NewSelector(DefaultEpsilon)
	sel := s.Select(DefaultSpans(3), Gates{Count: 1}, Window{Start: 1}, AllVisibleGates())

	if sel.StartFrame != 1 || sel.EndFrame != 1 {
		t.Errorf("Expected frame 1, got %d..%d", sel.StartFrame, sel.EndFrame)
	}
}

// TestExactFrameSpan verifies that weights over whole frames sum to one
func TestExactFrameSpan(t *testing.T) {
	s := NewSelector(0)
	spans := []Span{{0, 1}, {1, 2}, {3, 0.5}, {3.5, 4}}
	gates := Gates{Count: 3, ViewStart: 0, ViewEnd: 2}

	sel := s.Select(spans, gates, Window{Start: 1, Duration: 2.5}, AllVisibleGates())

	if sel.StartFrame != 1 || sel.EndFrame != 2 {
		t.Fatalf("Expected frames 1..2, got %d..%d", sel.StartFrame, sel.EndFrame)
	}
	if len(sel.Gates) != 3 {
		t.Fatalf("Expected 3 gates, got %d", len(sel.Gates))
	}
	if got := sumWeights(sel); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected weights to sum to 1, got %f", got)
	}
	for _, f := range sel.Frames {
		if f.Fraction != 1 {
			t.Errorf("Frame %d: expected full fraction, got %f", f.Frame, f.Fraction)
		}
	}
}

// TestPartialOverlap verifies the boundary frame fractions
func TestPartialOverlap(t *testing.T) {
	s := NewSelector(0)
	sel := s.Select(DefaultSpans(4), Gates{Count: 1}, Window{Start: 0.5, Duration: 2}, AllVisibleGates())

	if sel.StartFrame != 0 || sel.EndFrame != 2 {
		t.Fatalf("Expected frames 0..2, got %d..%d", sel.StartFrame, sel.EndFrame)
	}
	expected := []struct{ fraction, weight float64 }{
		{0.5, 0.25},
		{1, 0.5},
		{0.5, 0.25},
	}
	for i, f := range sel.Frames {
		if math.Abs(f.Fraction-expected[i].fraction) > 1e-12 {
			t.Errorf("Frame %d: expected fraction %f, got %f", f.Frame, expected[i].fraction, f.Fraction)
		}
		if math.Abs(f.Weight-expected[i].weight) > 1e-12 {
			t.Errorf("Frame %d: expected weight %f, got %f", f.Frame, expected[i].weight, f.Weight)
		}
	}
}

// TestClampToAvailableFrames verifies that windows beyond the data are clamped
func TestClampToAvailableFrames(t *testing.T) {
	s := NewSelector(0)
	spans := DefaultSpans(2)

	sel := s.Select(spans, Gates{Count: 1}, Window{Start: -5, Duration: 20}, AllVisibleGates())
	if sel.StartFrame != 0 || sel.EndFrame != 1 {
		t.Fatalf("Expected frames 0..1, got %d..%d", sel.StartFrame, sel.EndFrame)
	}
	if sel.ScanStart != 0 || sel.Duration != 2 {
		t.Errorf("Expected clamped window [0,2), got start %f duration %f", sel.ScanStart, sel.Duration)
	}
	if got := sumWeights(sel); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected weights to sum to 1, got %f", got)
	}

	after := s.Select(spans, Gates{Count: 1}, Window{Start: 50, Duration: 1}, AllVisibleGates())
	if after.Empty() || after.StartFrame != 1 {
		t.Errorf("Expected the last frame for a window after the data, got %+v", after)
	}
}

// TestWindowEndingInGap verifies that a frame after a gap is not selected
func TestWindowEndingInGap(t *testing.T) {
	s := NewSelector(0)
	spans := []Span{{0, 1}, {1, 1}, {5, 1}}

	sel := s.Select(spans, Gates{Count: 1}, Window{Start: 0, Duration: 3}, AllVisibleGates())
	if sel.EndFrame != 1 {
		t.Errorf("Expected end frame 1, got %d", sel.EndFrame)
	}
	if got := sumWeights(sel); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected weights to sum to 1, got %f", got)
	}
}

// TestGateSelection covers single gates, out-of-range gates and wrapping ranges
func TestGateSelection(t *testing.T) {
	s := NewSelector(0)
	spans := DefaultSpans(1)

	single := s.Select(spans, Gates{Count: 4, ViewEnd: 3}, Window{Duration: 1}, SingleGate(2))
	if len(single.Gates) != 1 || single.Gates[0] != 2 {
		t.Errorf("Expected gate 2, got %v", single.Gates)
	}
	if single.Frames[0].Weight != 1 {
		t.Errorf("Expected weight 1 for a single gate, got %f", single.Frames[0].Weight)
	}

	missing := s.Select(spans, Gates{Count: 4, ViewEnd: 3}, Window{Duration: 1}, SingleGate(7))
	if !missing.Empty() {
		t.Errorf("Expected an empty selection for gate 7, got %+v", missing)
	}

	wrapped := Gates{Count: 4, ViewStart: 3, ViewEnd: 1}.Visible()
	expected := []int{3, 0, 1}
	if len(wrapped) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, wrapped)
	}
	for i := range expected {
		if wrapped[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, wrapped)
			break
		}
	}

	all := s.Select(spans, Gates{Count: 4, ViewEnd: 3}, Window{Duration: 1}, AllVisibleGates())
	if len(all.Gates) != 4 || all.Frames[0].Weight != 0.25 {
		t.Errorf("Expected 4 gates with weight 0.25, got %v and %+v", all.Gates, all.Frames)
	}
}

// TestEpsilonConfigurable verifies that a larger epsilon shifts boundary decisions
func TestEpsilonConfigurable(t *testing.T) {
	spans := DefaultSpans(3)
	w := Window{Start: 0.99, Duration: 0}

	if f := NewSelector(1e-7).Select(spans, Gates{Count: 1}, w, AllVisibleGates()).StartFrame; f != 0 {
		t.Errorf("Expected frame 0 with a small epsilon, got %d", f)
	}
	if f := NewSelector(0.05).Select(spans, Gates{Count: 1}, w, AllVisibleGates()).StartFrame; f != 1 {
		t.Errorf("Expected frame 1 with a large epsilon, got %d", f)
	}
}

// Package timing decides which stored time frames and gates contribute to a
// requested time window, and with what weight.
package timing

import (
	"errors"
	"fmt"
)

// DefaultEpsilon guards floating-point comparisons against frame boundaries.
// Times are in the same unit as frame starts and durations (seconds for
// most scanners), so 1e-7 is well below any frame length seen in practice.
const DefaultEpsilon = 1e-7

// ErrInvalidFrames is returned for frame spans that are negative, overlapping
// or out of order.
var ErrInvalidFrames = errors.New("invalid frame timing")

// Span is a half-open time interval [Start, Start+Duration).
type Span struct {
	Start    float64
	Duration float64
}

// End returns the exclusive end of the span.
func (s Span) End() float64 {
	return s.Start + s.Duration
}

// Window is the time interval a caller wants integrated into one slice.
type Window = Span

// DefaultSpans returns n back-to-back frames of unit duration starting at 0.
func DefaultSpans(n int) []Span {
	spans := make([]Span, n)
	for i := range spans {
		spans[i] = Span{Start: float64(i), Duration: 1}
	}
	return spans
}

// ValidateSpans checks that frames have non-negative durations and that
// they are ordered and non-overlapping.
func ValidateSpans(spans []Span) error {
	for i, s := range spans {
		if s.Duration < 0 {
			return fmt.Errorf("%w: frame %d has negative duration %g", ErrInvalidFrames, i, s.Duration)
		}
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		if s.Start < prev.Start {
			return fmt.Errorf("%w: frame %d starts at %g before frame %d at %g", ErrInvalidFrames, i, s.Start, i-1, prev.Start)
		}
		if s.Start < prev.End() {
			return fmt.Errorf("%w: frame %d overlaps frame %d", ErrInvalidFrames, i, i-1)
		}
	}
	return nil
}

// GateSelector chooses either every visible gate or a single gate.
type GateSelector struct {
	single bool
	index  int
}

// AllVisibleGates selects every gate in the volume's visible range.
func AllVisibleGates() GateSelector {
	return GateSelector{}
}

// SingleGate selects exactly one gate.
func SingleGate(index int) GateSelector {
	return GateSelector{single: true, index: index}
}

// Single reports whether a single gate was requested, and which.
func (g GateSelector) Single() (int, bool) {
	return g.index, g.single
}

func (g GateSelector) String() string {
	if g.single {
		return fmt.Sprintf("gate %d", g.index)
	}
	return "all visible gates"
}

// Gates describes the gate dimension of a volume.
type Gates struct {
	// Count is the number of stored gates.
	Count int

	// ViewStart and ViewEnd bound the visible gates, inclusive. When
	// ViewStart > ViewEnd the range wraps around Count.
	ViewStart, ViewEnd int
}

// Visible lists the visible gate indices in iteration order.
func (g Gates) Visible() []int {
	if g.Count <= 0 {
		return nil
	}
	start := clampIndex(g.ViewStart, g.Count)
	end := clampIndex(g.ViewEnd, g.Count)
	var out []int
	for i := start; ; i = (i + 1) % g.Count {
		out = append(out, i)
		if i == end || len(out) == g.Count {
			break
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// FrameWeight is one contributing frame.
type FrameWeight struct {
	Frame int

	// Fraction is the share of the frame covered by the window, in (0,1].
	Fraction float64

	// Weight is the overlap normalized by 1/(duration × gates). Summed over
	// all frames and gates of a selection it is 1 when frames are contiguous.
	Weight float64
}

// Selection is the resolved set of frames and gates for one window.
type Selection struct {
	StartFrame int
	EndFrame   int
	Frames     []FrameWeight
	Gates      []int

	// ScanStart and Duration describe the window actually integrated.
	ScanStart float64
	Duration  float64
}

// Empty reports whether nothing contributes.
func (s Selection) Empty() bool {
	return len(s.Frames) == 0 || len(s.Gates) == 0
}

// Selector resolves windows against frame timing.
type Selector struct {
	Epsilon float64
}

// NewSelector returns a selector with the given boundary epsilon; values
// <= 0 fall back to DefaultEpsilon.
func NewSelector(epsilon float64) Selector {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return Selector{Epsilon: epsilon}
}

func (s Selector) eps() float64 {
	if s.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return s.Epsilon
}

// FrameAt returns the first frame that has not ended by time t. Times before
// the first frame map to frame 0, times after the last frame to the last
// frame, and times inside a gap to the frame following the gap.
func (s Selector) FrameAt(spans []Span, t float64) int {
	for i, sp := range spans {
		if t < sp.End() {
			return i
		}
	}
	return len(spans) - 1
}

// Select resolves the contributing frames and gates for a window.
func (s Selector) Select(spans []Span, gates Gates, w Window, sel GateSelector) Selection {
	out := Selection{ScanStart: w.Start, Duration: w.Duration}
	if len(spans) == 0 {
		return out
	}

	if idx, single := sel.Single(); single {
		if idx >= 0 && idx < gates.Count {
			out.Gates = []int{idx}
		}
	} else {
		out.Gates = gates.Visible()
	}
	if len(out.Gates) == 0 {
		return out
	}
	numGates := float64(len(out.Gates))
	eps := s.eps()

	if w.Duration <= eps {
		f := s.FrameAt(spans, w.Start+eps)
		out.StartFrame, out.EndFrame = f, f
		out.Frames = []FrameWeight{{Frame: f, Fraction: 1, Weight: 1 / numGates}}
		out.Duration = 0
		return out
	}

	end := w.End()
	first := s.FrameAt(spans, w.Start+eps)
	last := s.FrameAt(spans, end-eps)
	if last < first {
		last = first
	}
	// A window ending inside a gap picks the frame after the gap; drop it
	// when it does not overlap the window at all.
	for last > first && overlap(spans[last], w.Start, end) <= 0 {
		last--
	}

	out.StartFrame, out.EndFrame = first, last
	if first == last {
		out.Frames = []FrameWeight{{Frame: first, Fraction: 1, Weight: 1 / numGates}}
		out.ScanStart, out.Duration = clampWindow(spans[first], spans[first], w.Start, end)
		return out
	}

	out.ScanStart, out.Duration = clampWindow(spans[first], spans[last], w.Start, end)
	norm := 1 / (out.Duration * numGates)
	for i := first; i <= last; i++ {
		o := overlap(spans[i], w.Start, end)
		if o <= 0 {
			continue
		}
		fraction := 1.0
		if spans[i].Duration > 0 {
			fraction = o / spans[i].Duration
			if fraction > 1 {
				fraction = 1
			}
		}
		out.Frames = append(out.Frames, FrameWeight{Frame: i, Fraction: fraction, Weight: o * norm})
	}
	return out
}

func overlap(sp Span, start, end float64) float64 {
	lo := max(sp.Start, start)
	hi := min(sp.End(), end)
	return hi - lo
}

func clampWindow(first, last Span, start, end float64) (float64, float64) {
	lo := max(start, first.Start)
	hi := min(end, last.End())
	if hi < lo {
		return lo, 0
	}
	return lo, hi - lo
}

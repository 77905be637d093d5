// Package progress carries progress reports and cooperative cancellation for
// long-running full-volume scans.
package progress

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrCancelled is returned when a progress callback declined to continue.
var ErrCancelled = errors.New("operation cancelled")

// Finished is the fraction reported once an operation has completed. Any
// fraction above 1 tells the receiver to hide its progress indicator.
const Finished = 2.0

// Func receives a status message (empty when there is none) and the completed
// fraction in [0,1]. It returns false to request cancellation.
type Func func(message string, fraction float64) bool

// Tracker wraps a Func with a reporting cadence and remembers whether the
// receiver asked to stop. The owner of the loop decides where Cancelled is
// checked; the tracker never interrupts anything on its own.
type Tracker struct {
	fn        Func
	message   string
	every     int
	calls     int
	cancelled bool
}

// NewTracker creates a tracker that forwards every n-th step to fn. A nil fn
// yields a tracker that never reports and never cancels.
func NewTracker(fn Func, message string, every int) *Tracker {
	if every < 1 {
		every = 1
	}
	return &Tracker{fn: fn, message: message, every: every}
}

// Start announces the operation with fraction 0.
func (t *Tracker) Start() bool {
	return t.report(0)
}

// Step records one unit of work out of total. Only every n-th call reaches
// the callback. The return value is false once cancellation was requested.
func (t *Tracker) Step(done, total int) bool {
	if t == nil {
		return true
	}
	if t.cancelled {
		return false
	}
	t.calls++
	if t.calls%t.every != 0 || total <= 0 {
		return true
	}
	return t.report(float64(done) / float64(total))
}

// Done reports completion. The callback's answer is ignored at this point.
func (t *Tracker) Done() {
	if t == nil || t.fn == nil {
		return
	}
	t.fn(t.message, Finished)
}

// Cancelled reports whether the callback has declined to continue.
func (t *Tracker) Cancelled() bool {
	return t != nil && t.cancelled
}

func (t *Tracker) report(fraction float64) bool {
	if t == nil || t.fn == nil {
		return true
	}
	if !t.fn(t.message, fraction) {
		t.cancelled = true
	}
	return !t.cancelled
}

// Console returns a Func that draws a progress bar on w, overwriting the
// current line until the operation finishes. It never cancels.
func Console(w io.Writer) Func {
	var start time.Time
	return func(message string, fraction float64) bool {
		if fraction > 1 {
			fmt.Fprintln(w)
			start = time.Time{}
			return true
		}
		if start.IsZero() {
			start = time.Now()
		}
		fmt.Fprintf(w, "\r%s %5.1f%%", bar(fraction, 40), fraction*100)
		if fraction > 0 {
			elapsed := time.Since(start)
			remaining := time.Duration(float64(elapsed) * (1 - fraction) / fraction)
			fmt.Fprintf(w, " [%.1fs elapsed | %.1fs remaining]", elapsed.Seconds(), remaining.Seconds())
		}
		if message != "" {
			fmt.Fprintf(w, " | %s", message)
		}
		return true
	}
}

func bar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == filled:
			b.WriteString("▓")
		default:
			b.WriteString("░")
		}
	}
	b.WriteString("]")
	return b.String()
}

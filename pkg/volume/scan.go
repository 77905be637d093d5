package volume

import (
	"fmt"
	"math"

	"volslice/pkg/progress"
)

// forEachPlane calls visit for every xy plane in (time, gate, z) order and
// reports progress per plane. Cancellation is honoured at gate boundaries;
// a cancelled scan returns progress.ErrCancelled.
func (v *Volume) forEachPlane(tr *progress.Tracker, visit func(frame int, values []float64)) error {
	dim := v.Dim()
	planes := dim.Z * dim.Gate * dim.Time
	plane := make([]float64, dim.PlaneSize())
	done := 0

	if !tr.Start() {
		return progress.ErrCancelled
	}
	for t := 0; t < dim.Time; t++ {
		for g := 0; g < dim.Gate; g++ {
			for z := 0; z < dim.Z; z++ {
				v.readPlane(plane, z, g, t)
				visit(t, plane)
				done++
				tr.Step(done, planes)
			}
			if tr.Cancelled() {
				return progress.ErrCancelled
			}
		}
	}
	tr.Done()
	return nil
}

// readPlane fills dst with the scaled values of one xy plane.
func (v *Volume) readPlane(dst []float64, z, gate, frame int) {
	dim := v.Dim()
	base := dim.Linear(Index5{Z: z, Gate: gate, Time: frame})
	identity := v.scaling.isIdentity()
	i := 0
	for y := 0; y < dim.Y; y++ {
		for x := 0; x < dim.X; x++ {
			raw := v.store.Raw(base + i)
			if identity {
				dst[i] = raw
			} else {
				dst[i] = v.scaling.apply(raw, Index5{X: x, Y: y, Z: z, Gate: gate, Time: frame})
			}
			i++
		}
	}
}

// ComputeGlobalMinMax scans every voxel for the smallest and largest value,
// ignoring NaN, and caches the result together with per-frame extremes.
// fn may be nil. When fn declines to continue, nothing is cached and
// progress.ErrCancelled is returned.
func (v *Volume) ComputeGlobalMinMax(fn progress.Func) (float64, float64, error) {
	m, err := v.scanMinMax(fn)
	if err != nil {
		return 0, 0, err
	}
	return m.min, m.max, nil
}

func (v *Volume) scanMinMax(fn progress.Func) (minMax, error) {
	gen := v.cache.generation()
	frames := v.Dim().Time
	m := minMax{
		min:      math.Inf(1),
		max:      math.Inf(-1),
		frameMin: make([]float64, frames),
		frameMax: make([]float64, frames),
	}
	for i := range m.frameMin {
		m.frameMin[i] = math.Inf(1)
		m.frameMax[i] = math.Inf(-1)
	}

	tr := progress.NewTracker(fn, "Calculating min/max values", v.progressEvery)
	err := v.forEachPlane(tr, func(frame int, values []float64) {
		lo, hi := m.frameMin[frame], m.frameMax[frame]
		for _, x := range values {
			if math.IsNaN(x) {
				continue
			}
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		m.frameMin[frame], m.frameMax[frame] = lo, hi
	})
	if err != nil {
		return minMax{}, err
	}

	for i := range m.frameMin {
		if m.frameMin[i] > m.frameMax[i] {
			// no valid voxel in this frame
			m.frameMin[i], m.frameMax[i] = 0, 0
			continue
		}
		m.min = math.Min(m.min, m.frameMin[i])
		m.max = math.Max(m.max, m.frameMax[i])
	}
	if m.min > m.max {
		m.min, m.max = 0, 0
	}

	v.cache.storeMinMax(m, gen)
	return m, nil
}

// MinMax returns the cached global extremes, computing them first if needed.
func (v *Volume) MinMax() (float64, float64) {
	if m, ok := v.cache.loadMinMax(); ok {
		return m.min, m.max
	}
	// without a callback the scan cannot be cancelled
	m, _ := v.scanMinMax(nil)
	return m.min, m.max
}

// FrameMinMax returns the extremes of one time frame.
func (v *Volume) FrameMinMax(frame int) (float64, float64, error) {
	if frame < 0 || frame >= v.Dim().Time {
		return 0, 0, fmt.Errorf("frame %d outside 0..%d", frame, v.Dim().Time-1)
	}
	m, ok := v.cache.loadMinMax()
	if !ok {
		m, _ = v.scanMinMax(nil)
	}
	return m.frameMin[frame], m.frameMax[frame], nil
}

// ComputeDistribution counts every voxel into bins equal-width bins between
// the global min and max. Results are cached per bin count and every call
// returns its own copy. fn may be nil; when it declines to continue,
// nothing is cached and progress.ErrCancelled is returned.
func (v *Volume) ComputeDistribution(bins int, fn progress.Func) (*Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("bin count must be positive, got %d", bins)
	}
	if h := v.cache.loadDistribution(bins); h != nil {
		return h.Clone(), nil
	}
	gen := v.cache.generation()

	m, ok := v.cache.loadMinMax()
	if !ok {
		var err error
		if m, err = v.scanMinMax(fn); err != nil {
			return nil, err
		}
	}

	h := NewHistogram(m.min, m.max, bins)
	tr := progress.NewTracker(fn, "Calculating value distribution", v.progressEvery)
	err := v.forEachPlane(tr, func(_ int, values []float64) {
		for _, x := range values {
			h.Add(x)
		}
	})
	if err != nil {
		return nil, err
	}

	v.cache.storeDistribution(bins, h.Clone(), gen)
	return h, nil
}

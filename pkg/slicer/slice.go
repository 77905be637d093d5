package slicer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"volslice/pkg/interpolation"
	"volslice/pkg/volume"
)

// Slice is a single-plane, single-frame, single-gate volume resampled from a
// source volume. Pixel (col, row) is voxel (col, row, 0, 0, 0); pixels
// without contributing data hold NaN.
type Slice struct {
	*volume.Volume

	// Source refers back to the volume the slice was taken from. It does
	// not keep the source alive.
	Source volume.Ref

	Interpolation interpolation.Mode
	Projection    Projection

	// StartFrame and EndFrame bound the source frames that contributed;
	// SourceGates lists the contributing gates.
	StartFrame  int
	EndFrame    int
	SourceGates []int

	pixels []float32
}

// Cols returns the number of pixels along the slice x axis.
func (s *Slice) Cols() int { return s.Dim().X }

// Rows returns the number of pixels along the slice y axis.
func (s *Slice) Rows() int { return s.Dim().Y }

// Pixels returns the row-major pixel buffer. It is shared with the slice.
func (s *Slice) Pixels() []float32 { return s.pixels }

// At returns the pixel at (col, row), or NaN outside the slice.
func (s *Slice) At(col, row int) float64 {
	if col < 0 || col >= s.Cols() || row < 0 || row >= s.Rows() {
		return math.NaN()
	}
	return float64(s.pixels[row*s.Cols()+col])
}

// ScanStart returns the start of the time window actually integrated.
func (s *Slice) ScanStart() float64 { return s.FrameSpan(0).Start }

// Duration returns the length of the time window actually integrated.
func (s *Slice) Duration() float64 { return s.FrameSpan(0).Duration }

// Stats summarizes the pixels that hold data.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
}

// Stats computes the count, mean and standard deviation of non-NaN pixels.
func (s *Slice) Stats() Stats {
	valid := make([]float64, 0, len(s.pixels))
	for _, p := range s.pixels {
		if !math.IsNaN(float64(p)) {
			valid = append(valid, float64(p))
		}
	}
	st := Stats{Count: len(valid)}
	switch len(valid) {
	case 0:
	case 1:
		st.Mean = valid[0]
	default:
		st.Mean, st.StdDev = stat.MeanStdDev(valid, nil)
	}
	return st
}

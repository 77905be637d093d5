package volume

import (
	"errors"
	"fmt"
)

// ErrInvalidDim is returned when a dimension is smaller than one.
var ErrInvalidDim = errors.New("invalid volume dimensions")

// Dim5 is the extent of a volume along x, y, z, gate and time.
type Dim5 struct {
	X, Y, Z, Gate, Time int
}

// Index5 addresses one voxel.
type Index5 struct {
	X, Y, Z, Gate, Time int
}

// Validate checks that every component is at least one.
func (d Dim5) Validate() error {
	if d.X < 1 || d.Y < 1 || d.Z < 1 || d.Gate < 1 || d.Time < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidDim, d)
	}
	return nil
}

// Voxels returns the total number of elements.
func (d Dim5) Voxels() int {
	return d.X * d.Y * d.Z * d.Gate * d.Time
}

// PlaneSize returns the number of elements in one xy plane.
func (d Dim5) PlaneSize() int {
	return d.X * d.Y
}

// Contains reports whether idx lies inside d.
func (d Dim5) Contains(idx Index5) bool {
	return idx.X >= 0 && idx.X < d.X &&
		idx.Y >= 0 && idx.Y < d.Y &&
		idx.Z >= 0 && idx.Z < d.Z &&
		idx.Gate >= 0 && idx.Gate < d.Gate &&
		idx.Time >= 0 && idx.Time < d.Time
}

// Linear returns the row-major offset of idx: x varies fastest, then y, z,
// gate and time. The index is not checked.
func (d Dim5) Linear(idx Index5) int {
	return (((idx.Time*d.Gate+idx.Gate)*d.Z+idx.Z)*d.Y+idx.Y)*d.X + idx.X
}

func (d Dim5) String() string {
	return fmt.Sprintf("%dx%dx%d g%d t%d", d.X, d.Y, d.Z, d.Gate, d.Time)
}

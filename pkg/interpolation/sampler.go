// Package interpolation samples a volume at real-valued positions in its
// local space.
//
// Voxel i along an axis covers [i·size, (i+1)·size) and its centre sits at
// (i+0.5)·size. Positions outside [0, dim·size) on any axis are missing for
// both modes; the sampler never reads outside the stored array and never
// modifies the volume.
package interpolation

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/coord"
	"volslice/pkg/volume"
)

// Mode selects how values between voxel centres are computed.
type Mode int

const (
	NearestNeighbor Mode = iota
	Trilinear
)

func (m Mode) String() string {
	switch m {
	case NearestNeighbor:
		return "nearest"
	case Trilinear:
		return "trilinear"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "nearest" (or "nn") and "trilinear" (or "linear").
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest", "nn", "nearestneighbor", "nearest-neighbor":
		return NearestNeighbor, nil
	case "trilinear", "linear":
		return Trilinear, nil
	}
	return 0, fmt.Errorf("unknown interpolation mode %q", name)
}

// Source is what the sampler reads from. *volume.Volume implements it.
type Source interface {
	Dim() volume.Dim5
	VoxelSize() r3.Vec

	// Value returns the scaled value at an in-bounds index.
	Value(x, y, z, gate, frame int) float64
}

// Sampler reads interpolated values from one source.
type Sampler struct {
	src   Source
	mode  Mode
	dim   volume.Dim5
	voxel r3.Vec
}

// New creates a sampler for src.
func New(src Source, mode Mode) *Sampler {
	return &Sampler{
		src:   src,
		mode:  mode,
		dim:   src.Dim(),
		voxel: src.VoxelSize(),
	}
}

// Mode returns the sampler's interpolation mode.
func (s *Sampler) Mode() Mode {
	return s.mode
}

// Sample returns the value at local point p of one frame and gate. The
// boolean is false when the value is missing.
func (s *Sampler) Sample(p r3.Vec, frame, gate int) (float64, bool) {
	if frame < 0 || frame >= s.dim.Time || gate < 0 || gate >= s.dim.Gate {
		return 0, false
	}
	// voxel coordinates; centres are at i+0.5
	c := [3]float64{p.X / s.voxel.X, p.Y / s.voxel.Y, p.Z / s.voxel.Z}
	n := [3]int{s.dim.X, s.dim.Y, s.dim.Z}
	for a := range c {
		if !(c[a] >= 0 && c[a] < float64(n[a])) {
			return 0, false
		}
	}
	if s.mode == Trilinear {
		return s.trilinear(c, frame, gate)
	}
	return s.src.Value(int(c[0]), int(c[1]), int(c[2]), gate, frame), true
}

// Sample is a convenience wrapper for a single lookup.
func Sample(src Source, mode Mode, p r3.Vec, frame, gate int) (float64, bool) {
	return New(src, mode).Sample(p, frame, gate)
}

// SampleStudy samples vol at a point given in study space.
func SampleStudy(vol *volume.Volume, mode Mode, p r3.Vec, frame, gate int) (float64, bool) {
	return Sample(vol, mode, vol.Frame().FromStudy(p), frame, gate)
}

// SampleFrom maps p from the frame it is expressed in to the volume's local
// space before sampling.
func SampleFrom(vol *volume.Volume, mode Mode, from coord.Frame, p r3.Vec, frame, gate int) (float64, bool) {
	return Sample(vol, mode, from.Transfer(p, vol.Frame()), frame, gate)
}

// fetch returns the value at a voxel index, or false outside the volume.
func (s *Sampler) fetch(x, y, z, gate, frame int) (float64, bool) {
	if x < 0 || x >= s.dim.X || y < 0 || y >= s.dim.Y || z < 0 || z >= s.dim.Z {
		return 0, false
	}
	return s.src.Value(x, y, z, gate, frame), true
}

// trilinear interpolates inside the 2×2×2 box formed by the voxel containing
// c and, on each axis, the neighbour on the side of c's offset from that
// voxel's centre.
func (s *Sampler) trilinear(c [3]float64, frame, gate int) (float64, bool) {
	var base, step [3]int
	var t [3]float64 // weight of the neighbour; the base voxel gets 1-t
	for a := range c {
		i := math.Floor(c[a])
		r := c[a] - (i + 0.5)
		base[a] = int(i)
		if r < 0 {
			step[a], t[a] = -1, -r
		} else {
			step[a], t[a] = 1, r
		}
	}

	var vals [8]float64
	var ok [8]bool
	all := true
	for k := 0; k < 8; k++ {
		x := base[0] + (k&1)*step[0]
		y := base[1] + (k>>1&1)*step[1]
		z := base[2] + (k>>2&1)*step[2]
		vals[k], ok[k] = s.fetch(x, y, z, gate, frame)
		all = all && ok[k]
	}

	if all {
		// x, then y, then z
		x00 := vals[0]*(1-t[0]) + vals[1]*t[0]
		x10 := vals[2]*(1-t[0]) + vals[3]*t[0]
		x01 := vals[4]*(1-t[0]) + vals[5]*t[0]
		x11 := vals[6]*(1-t[0]) + vals[7]*t[0]
		y0 := x00*(1-t[1]) + x10*t[1]
		y1 := x01*(1-t[1]) + x11*t[1]
		return y0*(1-t[2]) + y1*t[2], true
	}

	x00, ok00 := blend(vals[0], ok[0], vals[1], ok[1], t[0])
	x10, ok10 := blend(vals[2], ok[2], vals[3], ok[3], t[0])
	x01, ok01 := blend(vals[4], ok[4], vals[5], ok[5], t[0])
	x11, ok11 := blend(vals[6], ok[6], vals[7], ok[7], t[0])
	y0, oky0 := blend(x00, ok00, x10, ok10, t[1])
	y1, oky1 := blend(x01, ok01, x11, ok11, t[1])
	return blend(y0, oky0, y1, oky1, t[2])
}

// blend interpolates a (weight 1-t) and b (weight t). When only one operand
// is present it survives if its weight is at least the missing one's.
func blend(a float64, aok bool, b float64, bok bool, t float64) (float64, bool) {
	switch {
	case aok && bok:
		return a*(1-t) + b*t, true
	case aok:
		return a, 1-t >= t
	case bok:
		return b, t >= 1-t
	}
	return 0, false
}

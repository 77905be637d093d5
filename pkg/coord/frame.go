// Package coord places volumes and slices in a shared study space.
//
// A Frame is a rigid transform: an offset plus an orthonormal axis triple.
// Local coordinates are expressed along the frame's axes relative to its
// offset; study coordinates are the shared space every volume lives in.
package coord

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame maps a local space to study space.
type Frame struct {
	// Offset is the study-space position of the local origin.
	Offset r3.Vec

	// Axes are the study-space directions of the local x, y and z axes.
	// They are expected to be orthonormal.
	Axes [3]r3.Vec
}

// Identity returns the frame whose local space is study space.
func Identity() Frame {
	return Frame{
		Axes: [3]r3.Vec{
			{X: 1},
			{Y: 1},
			{Z: 1},
		},
	}
}

// NewFrame creates a frame from an offset and three axes. The axes are
// normalized but not orthogonalized.
func NewFrame(offset, x, y, z r3.Vec) Frame {
	return Frame{
		Offset: offset,
		Axes:   [3]r3.Vec{r3.Unit(x), r3.Unit(y), r3.Unit(z)},
	}
}

// ToStudy maps a local point to study space.
func (f Frame) ToStudy(p r3.Vec) r3.Vec {
	return r3.Add(f.Offset, f.DirToStudy(p))
}

// FromStudy maps a study-space point into local space.
func (f Frame) FromStudy(p r3.Vec) r3.Vec {
	return f.DirFromStudy(r3.Sub(p, f.Offset))
}

// DirToStudy maps a local displacement to study space, ignoring the offset.
func (f Frame) DirToStudy(d r3.Vec) r3.Vec {
	return r3.Add(
		r3.Add(r3.Scale(d.X, f.Axes[0]), r3.Scale(d.Y, f.Axes[1])),
		r3.Scale(d.Z, f.Axes[2]),
	)
}

// DirFromStudy maps a study-space displacement into local space, ignoring
// the offset.
func (f Frame) DirFromStudy(d r3.Vec) r3.Vec {
	return r3.Vec{
		X: r3.Dot(d, f.Axes[0]),
		Y: r3.Dot(d, f.Axes[1]),
		Z: r3.Dot(d, f.Axes[2]),
	}
}

// Transfer maps a point in f's local space into g's local space.
func (f Frame) Transfer(p r3.Vec, g Frame) r3.Vec {
	return g.FromStudy(f.ToStudy(p))
}

// TransferDir maps a displacement in f's local space into g's local space.
func (f Frame) TransferDir(d r3.Vec, g Frame) r3.Vec {
	return g.DirFromStudy(f.DirToStudy(d))
}

// Compose returns the frame obtained by placing inner, whose offset and axes
// are expressed in f's local space, into study space.
func (f Frame) Compose(inner Frame) Frame {
	return Frame{
		Offset: f.ToStudy(inner.Offset),
		Axes: [3]r3.Vec{
			f.DirToStudy(inner.Axes[0]),
			f.DirToStudy(inner.Axes[1]),
			f.DirToStudy(inner.Axes[2]),
		},
	}
}

// Inverse returns the frame that maps study space into f's local space.
func (f Frame) Inverse() Frame {
	// The transpose of an orthonormal basis is its inverse.
	inv := Frame{
		Axes: [3]r3.Vec{
			{X: f.Axes[0].X, Y: f.Axes[1].X, Z: f.Axes[2].X},
			{X: f.Axes[0].Y, Y: f.Axes[1].Y, Z: f.Axes[2].Y},
			{X: f.Axes[0].Z, Y: f.Axes[1].Z, Z: f.Axes[2].Z},
		},
	}
	inv.Offset = r3.Scale(-1, inv.DirToStudy(f.Offset))
	return inv
}

// Translate returns a copy of f moved by a local displacement.
func (f Frame) Translate(d r3.Vec) Frame {
	f.Offset = f.ToStudy(d)
	return f
}

// Rotate returns a copy of f with its axes rotated by angle radians around
// a study-space axis through the frame's offset.
func (f Frame) Rotate(angle float64, axis r3.Vec) Frame {
	for i := range f.Axes {
		f.Axes[i] = r3.Rotate(f.Axes[i], angle, axis)
	}
	return f
}

// Corners returns the eight study-space corners of the local box
// [0,size.X]×[0,size.Y]×[0,size.Z].
func (f Frame) Corners(size r3.Vec) [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		local := r3.Vec{}
		if i&1 != 0 {
			local.X = size.X
		}
		if i&2 != 0 {
			local.Y = size.Y
		}
		if i&4 != 0 {
			local.Z = size.Z
		}
		out[i] = f.ToStudy(local)
	}
	return out
}

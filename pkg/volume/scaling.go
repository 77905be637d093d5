package volume

import (
	"errors"
	"fmt"
)

// ErrScaling is returned for scale grids that cannot be broadcast over a volume.
var ErrScaling = errors.New("invalid scaling")

// ScaleGrid holds per-block scale values. Each component of Dim is either 1,
// meaning the value is shared along that axis, or equal to the volume's
// extent. A grid of all ones is a single global value; 1×1×1×1×T is one
// value per frame; X×Y×Z×G×T is one value per voxel.
type ScaleGrid struct {
	Dim    Dim5
	Values []float64
}

// NewScaleGrid allocates a grid filled with v.
func NewScaleGrid(dim Dim5, v float64) (*ScaleGrid, error) {
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	g := &ScaleGrid{Dim: dim, Values: make([]float64, dim.Voxels())}
	for i := range g.Values {
		g.Values[i] = v
	}
	return g, nil
}

// Set stores v at idx of the grid.
func (g *ScaleGrid) Set(idx Index5, v float64) {
	g.Values[g.Dim.Linear(idx)] = v
}

func (g *ScaleGrid) at(idx Index5) float64 {
	if idx.X >= g.Dim.X {
		idx.X = 0
	}
	if idx.Y >= g.Dim.Y {
		idx.Y = 0
	}
	if idx.Z >= g.Dim.Z {
		idx.Z = 0
	}
	if idx.Gate >= g.Dim.Gate {
		idx.Gate = 0
	}
	if idx.Time >= g.Dim.Time {
		idx.Time = 0
	}
	return g.Values[g.Dim.Linear(idx)]
}

func (g *ScaleGrid) check(dim Dim5) error {
	if g == nil {
		return nil
	}
	if len(g.Values) != g.Dim.Voxels() {
		return fmt.Errorf("%w: grid %v has %d values", ErrScaling, g.Dim, len(g.Values))
	}
	axes := [][2]int{
		{g.Dim.X, dim.X}, {g.Dim.Y, dim.Y}, {g.Dim.Z, dim.Z},
		{g.Dim.Gate, dim.Gate}, {g.Dim.Time, dim.Time},
	}
	for _, a := range axes {
		if a[0] != 1 && a[0] != a[1] {
			return fmt.Errorf("%w: grid %v does not broadcast over %v", ErrScaling, g.Dim, dim)
		}
	}
	return nil
}

// Scaling maps stored elements to physical values:
//
//	value = Global × (Factor[idx] × raw + Intercept[idx])
//
// A nil Factor is 1 and a nil Intercept is 0.
type Scaling struct {
	Global    float64
	Factor    *ScaleGrid
	Intercept *ScaleGrid
}

// IdentityScaling returns the scaling that leaves raw values unchanged.
func IdentityScaling() Scaling {
	return Scaling{Global: 1}
}

func (s Scaling) isIdentity() bool {
	return s.Global == 1 && s.Factor == nil && s.Intercept == nil
}

func (s Scaling) apply(raw float64, idx Index5) float64 {
	v := raw
	if s.Factor != nil {
		v *= s.Factor.at(idx)
	}
	if s.Intercept != nil {
		v += s.Intercept.at(idx)
	}
	return s.Global * v
}

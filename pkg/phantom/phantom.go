// Package phantom builds synthetic 5D volumes for tests and demos.
package phantom

import (
	"math"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/volume"
)

// Ramp returns a volume whose element at linear index i is i, clamped to
// the range of kind.
func Ramp(kind volume.Kind, dim volume.Dim5, opts ...volume.Option) (*volume.Volume, error) {
	store, err := volume.NewStore(kind, dim)
	if err != nil {
		return nil, err
	}
	for i := 0; i < dim.Voxels(); i++ {
		store.SetRaw(i, float64(i))
	}
	return volume.FromStore(store, opts...)
}

// SphereOptions describes a bright sphere on a flat background.
type SphereOptions struct {
	// Center and Radius are in local physical units. A zero Radius picks a
	// third of the smallest extent; a zero Center picks the volume centre.
	Center r3.Vec
	Radius float64

	Value      float64
	Background float64

	// FrameGain raises the sphere value by this fraction per time frame.
	FrameGain float64

	// Pulse changes the radius by this fraction over the gate cycle.
	Pulse float64

	// Noise adds uniform noise in [-Noise, Noise] from a generator seeded
	// with Seed.
	Noise float64
	Seed  uint32
}

// Sphere returns a volume with a sphere whose intensity grows over time
// and whose radius pulses with the gate, as in a gated dynamic study.
func Sphere(kind volume.Kind, dim volume.Dim5, o SphereOptions, opts ...volume.Option) (*volume.Volume, error) {
	v, err := volume.New(kind, dim, opts...)
	if err != nil {
		return nil, err
	}
	extent := v.Extent()
	vs := v.VoxelSize()
	if o.Center == (r3.Vec{}) {
		o.Center = r3.Scale(0.5, extent)
	}
	if o.Radius == 0 {
		o.Radius = math.Min(extent.X, math.Min(extent.Y, extent.Z)) / 3
	}

	var rng fastrand.RNG
	rng.Seed(o.Seed)
	noise := func() float64 {
		if o.Noise == 0 {
			return 0
		}
		return o.Noise * (2*float64(rng.Uint32n(1<<24))/(1<<24) - 1)
	}

	store := v.Store()
	i := 0
	for t := 0; t < dim.Time; t++ {
		value := o.Value * (1 + o.FrameGain*float64(t))
		for g := 0; g < dim.Gate; g++ {
			phase := 2 * math.Pi * float64(g) / float64(dim.Gate)
			radius := o.Radius * (1 + o.Pulse*math.Sin(phase))
			for z := 0; z < dim.Z; z++ {
				for y := 0; y < dim.Y; y++ {
					for x := 0; x < dim.X; x++ {
						p := r3.Vec{
							X: (float64(x) + 0.5) * vs.X,
							Y: (float64(y) + 0.5) * vs.Y,
							Z: (float64(z) + 0.5) * vs.Z,
						}
						raw := o.Background
						if r3.Norm(r3.Sub(p, o.Center)) <= radius {
							raw = value
						}
						store.SetRaw(i, raw+noise())
						i++
					}
				}
			}
		}
	}
	v.Invalidate()
	return v, nil
}

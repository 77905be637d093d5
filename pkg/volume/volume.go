// Package volume holds typed 5D voxel data (x, y, z, gate, time) together
// with its placement in study space, its frame timing and its scaling.
//
// Volumes are long-lived and are read concurrently by slice extraction. The
// voxel data carries no locking: callers must not write to a volume while
// other goroutines read from it. Only the min/max and distribution caches
// are synchronized, because lazy readers fill them.
package volume

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/coord"
	"volslice/pkg/timing"
)

// ErrInvalidVoxelSize is returned for voxel sizes that are not strictly positive.
var ErrInvalidVoxelSize = errors.New("voxel size must be positive")

// DefaultProgressEvery is the number of planes between progress callbacks
// during full-volume scans.
const DefaultProgressEvery = 8

// Volume is a 5D scalar grid placed in study space.
type Volume struct {
	id        uuid.UUID
	name      string
	store     Store
	voxelSize r3.Vec
	frame     coord.Frame
	scaling   Scaling
	spans     []timing.Span
	gates     timing.Gates

	progressEvery int
	cache         cache
	destroyed     atomic.Bool
}

// Option configures a Volume at construction.
type Option func(*Volume)

// WithName sets a human readable name.
func WithName(name string) Option {
	return func(v *Volume) { v.name = name }
}

// WithVoxelSize sets the physical size of one voxel.
func WithVoxelSize(size r3.Vec) Option {
	return func(v *Volume) { v.voxelSize = size }
}

// WithFrame places the volume in study space.
func WithFrame(f coord.Frame) Option {
	return func(v *Volume) { v.frame = f }
}

// WithFrameSpans sets the start time and duration of every time frame.
func WithFrameSpans(spans []timing.Span) Option {
	return func(v *Volume) { v.spans = append([]timing.Span(nil), spans...) }
}

// WithScaling sets the mapping from stored elements to values.
func WithScaling(s Scaling) Option {
	return func(v *Volume) { v.scaling = s }
}

// WithVisibleGates restricts the gates used when all visible gates are
// requested. start > end wraps around the gate count.
func WithVisibleGates(start, end int) Option {
	return func(v *Volume) { v.gates.ViewStart, v.gates.ViewEnd = start, end }
}

// WithProgressEvery sets how many planes pass between progress callbacks.
func WithProgressEvery(n int) Option {
	return func(v *Volume) { v.progressEvery = n }
}

// New allocates a zero-filled volume.
func New(kind Kind, dim Dim5, opts ...Option) (*Volume, error) {
	store, err := NewStore(kind, dim)
	if err != nil {
		return nil, err
	}
	return FromStore(store, opts...)
}

// FromData wraps an existing row-major slice without copying it.
func FromData[T Element](dim Dim5, data []T, opts ...Option) (*Volume, error) {
	buf, err := WrapBuffer(dim, data)
	if err != nil {
		return nil, err
	}
	return FromStore(buf, opts...)
}

// FromStore builds a volume around store.
func FromStore(store Store, opts ...Option) (*Volume, error) {
	dim := store.Dim()
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	v := &Volume{
		id:            uuid.New(),
		store:         store,
		voxelSize:     r3.Vec{X: 1, Y: 1, Z: 1},
		frame:         coord.Identity(),
		scaling:       IdentityScaling(),
		gates:         timing.Gates{Count: dim.Gate, ViewStart: 0, ViewEnd: dim.Gate - 1},
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(v)
	}

	if !(v.voxelSize.X > 0 && v.voxelSize.Y > 0 && v.voxelSize.Z > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVoxelSize, v.voxelSize)
	}
	if v.spans == nil {
		v.spans = timing.DefaultSpans(dim.Time)
	}
	if len(v.spans) != dim.Time {
		return nil, fmt.Errorf("%w: %d spans for %d frames", timing.ErrInvalidFrames, len(v.spans), dim.Time)
	}
	if err := timing.ValidateSpans(v.spans); err != nil {
		return nil, err
	}
	if err := v.scaling.Factor.check(dim); err != nil {
		return nil, err
	}
	if err := v.scaling.Intercept.check(dim); err != nil {
		return nil, err
	}
	if err := v.checkGates(v.gates.ViewStart, v.gates.ViewEnd); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Volume) ID() uuid.UUID       { return v.id }
func (v *Volume) Name() string        { return v.name }
func (v *Volume) Kind() Kind          { return v.store.Kind() }
func (v *Volume) Dim() Dim5           { return v.store.Dim() }
func (v *Volume) Store() Store        { return v.store }
func (v *Volume) VoxelSize() r3.Vec   { return v.voxelSize }
func (v *Volume) Frame() coord.Frame  { return v.frame }
func (v *Volume) Scaling() Scaling    { return v.scaling }
func (v *Volume) Gates() timing.Gates { return v.gates }

// SetFrame moves the volume in study space.
func (v *Volume) SetFrame(f coord.Frame) {
	v.frame = f
}

// Extent returns the physical size of the volume in its local space.
func (v *Volume) Extent() r3.Vec {
	d := v.Dim()
	return r3.Vec{
		X: float64(d.X) * v.voxelSize.X,
		Y: float64(d.Y) * v.voxelSize.Y,
		Z: float64(d.Z) * v.voxelSize.Z,
	}
}

// Corners returns the eight study-space corners of the volume.
func (v *Volume) Corners() [8]r3.Vec {
	return v.frame.Corners(v.Extent())
}

// FrameSpans returns a copy of the per-frame timing.
func (v *Volume) FrameSpans() []timing.Span {
	return append([]timing.Span(nil), v.spans...)
}

// FrameSpan returns the timing of one frame.
func (v *Volume) FrameSpan(frame int) timing.Span {
	return v.spans[frame]
}

// SetVisibleGates changes the gates used for AllVisibleGates requests.
func (v *Volume) SetVisibleGates(start, end int) error {
	if err := v.checkGates(start, end); err != nil {
		return err
	}
	v.gates.ViewStart, v.gates.ViewEnd = start, end
	return nil
}

func (v *Volume) checkGates(start, end int) error {
	n := v.Dim().Gate
	if start < 0 || start >= n || end < 0 || end >= n {
		return fmt.Errorf("%w: visible gates %d..%d outside 0..%d", ErrInvalidDim, start, end, n-1)
	}
	return nil
}

// Scalar returns the scaled value at idx, or false when idx is outside the
// volume.
func (v *Volume) Scalar(idx Index5) (float64, bool) {
	if !v.Dim().Contains(idx) {
		return math.NaN(), false
	}
	return v.scaledAt(idx), true
}

// Value returns the scaled value at an index the caller has already
// bounds-checked.
func (v *Volume) Value(x, y, z, gate, frame int) float64 {
	return v.scaledAt(Index5{X: x, Y: y, Z: z, Gate: gate, Time: frame})
}

func (v *Volume) scaledAt(idx Index5) float64 {
	raw := v.store.Raw(v.Dim().Linear(idx))
	if v.scaling.isIdentity() {
		return raw
	}
	return v.scaling.apply(raw, idx)
}

// SetRaw writes an unscaled element and drops cached statistics.
func (v *Volume) SetRaw(idx Index5, raw float64) error {
	if !v.Dim().Contains(idx) {
		return fmt.Errorf("index %+v outside %v", idx, v.Dim())
	}
	v.store.SetRaw(v.Dim().Linear(idx), raw)
	v.cache.invalidate()
	return nil
}

// Invalidate drops cached statistics. Call it after writing to the store
// directly.
func (v *Volume) Invalidate() {
	v.cache.invalidate()
}

// Destroy marks the volume as gone. Slices that refer back to it stop
// resolving the reference.
func (v *Volume) Destroy() {
	v.destroyed.Store(true)
}

// Alive reports whether Destroy has not been called.
func (v *Volume) Alive() bool {
	return !v.destroyed.Load()
}

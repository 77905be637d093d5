// Package slicer resamples a 5D volume onto an arbitrarily oriented 2D grid.
//
// A request names a time window, a gate selection, an output coordinate
// frame, a footprint in that frame's xy plane, a pixel size and a slab
// thickness. The output frame's z = 0 plane is the centre of the slab, which
// extends thickness/2 to either side. Every contributing time frame, gate
// and slab substep is sampled once per output pixel and combined by the
// requested projection.
//
// Extraction is synchronous and reads the source volume without locking.
// Independent requests may run concurrently as long as nothing writes to
// the source volume meanwhile.
package slicer

import (
	"errors"
	"fmt"
	"math"

	"github.com/pbnjay/memory"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/coord"
	"volslice/pkg/interpolation"
	"volslice/pkg/timing"
	"volslice/pkg/volume"
)

var (
	// ErrAllocation is returned when the output or accumulation buffers
	// cannot be obtained. Only the request fails.
	ErrAllocation = errors.New("cannot allocate slice buffers")

	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid slice request")
)

// DefaultMemoryFraction is the share of physical memory one request may
// use for its buffers.
const DefaultMemoryFraction = 0.5

const (
	// output float32 plus float64 sum and weight
	bytesPerPixel = 4 + 8 + 8

	maxPixels   = 1 << 31
	gridEpsilon = 1e-9
)

// Request describes one slice.
type Request struct {
	Window timing.Window
	Gates  timing.GateSelector

	// PixelSize holds the pixel width and height in X and Y and the slab
	// thickness in Z.
	PixelSize r3.Vec

	// Footprint is the covered area in the output frame's xy plane.
	Footprint r2.Box

	// Frame places the output grid in study space.
	Frame coord.Frame

	Interpolation interpolation.Mode
	Projection    Projection

	// RecalcMinMax computes the slice's min/max before returning it.
	RecalcMinMax bool
}

func (r Request) validate() error {
	ps := r.PixelSize
	if !(ps.X > 0 && ps.Y > 0 && ps.Z > 0) || math.IsInf(ps.X+ps.Y+ps.Z, 0) {
		return fmt.Errorf("%w: pixel size %v", ErrInvalidRequest, ps)
	}
	fp := r.Footprint
	w, h := fp.Max.X-fp.Min.X, fp.Max.Y-fp.Min.Y
	if !(w > 0 && h > 0) || math.IsInf(w+h, 0) {
		return fmt.Errorf("%w: empty footprint %v", ErrInvalidRequest, fp)
	}
	if !(r.Window.Duration >= 0) || math.IsNaN(r.Window.Start) {
		return fmt.Errorf("%w: time window %+v", ErrInvalidRequest, r.Window)
	}
	switch r.Projection {
	case Average, MaximumIntensity, MinimumIntensity:
	default:
		return fmt.Errorf("%w: projection %v", ErrInvalidRequest, r.Projection)
	}
	switch r.Interpolation {
	case interpolation.NearestNeighbor, interpolation.Trilinear:
	default:
		return fmt.Errorf("%w: interpolation %v", ErrInvalidRequest, r.Interpolation)
	}
	return nil
}

// grid returns the output size in pixels.
func (r Request) grid() (cols, rows float64) {
	cells := func(extent, size float64) float64 {
		return math.Max(1, math.Ceil(extent/size-gridEpsilon))
	}
	fp := r.Footprint
	return cells(fp.Max.X-fp.Min.X, r.PixelSize.X), cells(fp.Max.Y-fp.Min.Y, r.PixelSize.Y)
}

// Extractor turns requests into slices.
type Extractor struct {
	selector       timing.Selector
	memoryFraction float64
	budget         uint64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEpsilon sets the frame boundary epsilon.
func WithEpsilon(eps float64) Option {
	return func(e *Extractor) { e.selector = timing.NewSelector(eps) }
}

// WithMemoryFraction bounds a request's buffers to a share of physical memory.
func WithMemoryFraction(f float64) Option {
	return func(e *Extractor) { e.memoryFraction = f }
}

// WithMemoryBudget bounds a request's buffers to a fixed number of bytes,
// overriding the memory fraction.
func WithMemoryBudget(bytes uint64) Option {
	return func(e *Extractor) { e.budget = bytes }
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		selector:       timing.NewSelector(timing.DefaultEpsilon),
		memoryFraction: DefaultMemoryFraction,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs req against vol with a default extractor.
func Extract(vol *volume.Volume, req Request) (*Slice, error) {
	return NewExtractor().Extract(vol, req)
}

// limit returns the byte budget of one request, or 0 when unknown.
func (e *Extractor) limit() uint64 {
	if e.budget > 0 {
		return e.budget
	}
	total := memory.TotalMemory()
	if total == 0 || e.memoryFraction <= 0 {
		return 0
	}
	return uint64(float64(total) * math.Min(e.memoryFraction, 1))
}

type buffers struct {
	out    []float32
	sum    []float64
	weight []float64
}

func (e *Extractor) allocate(pixels float64) (b buffers, err error) {
	need := pixels * bytesPerPixel
	if limit := e.limit(); pixels > maxPixels || (limit > 0 && need > float64(limit)) {
		return buffers{}, fmt.Errorf("%w: %.0f pixels need %.0f bytes, limit %d", ErrAllocation, pixels, need, limit)
	}
	defer func() {
		if r := recover(); r != nil {
			b = buffers{}
			err = fmt.Errorf("%w: %v", ErrAllocation, r)
		}
	}()
	n := int(pixels)
	return buffers{
		out:    make([]float32, n),
		sum:    make([]float64, n),
		weight: make([]float64, n),
	}, nil
}

// Extract resamples vol per req. Pixels without contributing data are NaN;
// an empty time or gate selection yields an all-NaN slice, not an error.
func (e *Extractor) Extract(vol *volume.Volume, req Request) (*Slice, error) {
	log := Logger()
	if vol == nil || !vol.Alive() {
		return nil, fmt.Errorf("%w: no source volume", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	log.Debug("extract", "stage", StageInit, "volume", vol.ID(),
		"interpolation", req.Interpolation, "projection", req.Projection)

	cols, rows := req.grid()
	log.Debug("extract", "stage", StageAllocateOutput, "cols", cols, "rows", rows)
	buf, err := e.allocate(cols * rows)
	if err != nil {
		log.Warn("extract", "stage", StageError, "error", err)
		return nil, err
	}

	thickness := req.PixelSize.Z
	sel := e.selector.Select(vol.FrameSpans(), vol.Gates(), req.Window, req.Gates)
	c := &compositor{
		vol:     vol,
		sampler: interpolation.New(vol, req.Interpolation),
		proj:    req.Projection,
		frame:   req.Frame.Translate(r3.Vec{X: req.Footprint.Min.X, Y: req.Footprint.Min.Y, Z: -thickness / 2}),
		pixel:   req.PixelSize,
		cols:    int(cols),
		rows:    int(rows),
		buf:     buf,
	}
	c.run(sel)

	log.Debug("extract", "stage", StageNormalize)
	c.normalize()

	out, err := volume.FromData(
		volume.Dim5{X: c.cols, Y: c.rows, Z: 1, Gate: 1, Time: 1},
		buf.out,
		volume.WithName(vol.Name()),
		volume.WithVoxelSize(req.PixelSize),
		volume.WithFrame(c.frame),
		volume.WithFrameSpans([]timing.Span{{Start: sel.ScanStart, Duration: sel.Duration}}),
	)
	if err != nil {
		return nil, err
	}
	s := &Slice{
		Volume:        out,
		Source:        vol.Ref(),
		Interpolation: req.Interpolation,
		Projection:    req.Projection,
		StartFrame:    sel.StartFrame,
		EndFrame:      sel.EndFrame,
		SourceGates:   sel.Gates,
		pixels:        buf.out,
	}
	if req.RecalcMinMax {
		if _, _, err := s.ComputeGlobalMinMax(nil); err != nil {
			return nil, err
		}
	}
	log.Debug("extract", "stage", StageDone, "slice", s.ID())
	return s, nil
}

// compositor holds the state of one extraction pass.
type compositor struct {
	vol     *volume.Volume
	sampler *interpolation.Sampler
	proj    Projection

	// frame places the slab bottom so that pixel (c, r) has its centre at
	// ((c+0.5)·pixel.X, (r+0.5)·pixel.Y) and the slab spans z in [0, pixel.Z].
	frame coord.Frame
	pixel r3.Vec

	cols, rows int
	buf        buffers
}

// run accumulates every contributing sample.
func (c *compositor) run(sel timing.Selection) {
	log := Logger()
	if c.proj != Average {
		for i := range c.buf.sum {
			c.buf.sum[i] = math.NaN()
		}
	}
	if sel.Empty() {
		log.Debug("extract", "stage", StageIterateFrames, "frames", 0, "gates", len(sel.Gates))
		return
	}

	c0, c1, r0, r1, ok := c.bounds()
	if !ok {
		log.Debug("extract", "stage", StageIterateXY, "intersection", "none")
		return
	}

	src := c.vol.Frame()
	vs := c.vol.VoxelSize()
	dz := c.frame.TransferDir(r3.Vec{Z: 1}, src)
	voxelLength := r3.Norm(r3.Vec{X: dz.X * vs.X, Y: dz.Y * vs.Y, Z: dz.Z * vs.Z})
	zSteps := c.pixel.Z / voxelLength
	substeps := max(1, int(math.Ceil(zSteps-gridEpsilon)))

	// nearest-neighbour positions advance by fixed strides
	origin := c.frame.Transfer(r3.Vec{X: 0.5 * c.pixel.X, Y: 0.5 * c.pixel.Y}, src)
	dx := c.frame.TransferDir(r3.Vec{X: c.pixel.X}, src)
	dy := c.frame.TransferDir(r3.Vec{Y: c.pixel.Y}, src)
	nearest := c.sampler.Mode() == interpolation.NearestNeighbor

	log.Debug("extract", "stage", StageIterateZSubsteps, "voxelLength", voxelLength, "zSteps", zSteps, "substeps", substeps)
	log.Debug("extract", "stage", StageIterateFrames, "start", sel.StartFrame, "end", sel.EndFrame, "frames", len(sel.Frames))
	log.Debug("extract", "stage", StageIterateGates, "gates", sel.Gates)
	log.Debug("extract", "stage", StageIterateXY, "cols", [2]int{c0, c1}, "rows", [2]int{r0, r1})

	for k := 0; k < substeps; k++ {
		wz := math.Min(1, zSteps-float64(k))
		z := (float64(k) + wz/2) * voxelLength
		for _, fw := range sel.Frames {
			for _, g := range sel.Gates {
				w := fw.Weight * wz
				for r := r0; r <= r1; r++ {
					rowStart := r3.Add(r3.Add(origin, r3.Scale(float64(r), dy)), r3.Scale(z, dz))
					for col := c0; col <= c1; col++ {
						var p r3.Vec
						if nearest {
							p = r3.Add(rowStart, r3.Scale(float64(col), dx))
						} else {
							p = c.frame.Transfer(r3.Vec{
								X: (float64(col) + 0.5) * c.pixel.X,
								Y: (float64(r) + 0.5) * c.pixel.Y,
								Z: z,
							}, src)
						}
						v, ok := c.sampler.Sample(p, fw.Frame, g)
						if !ok || math.IsNaN(v) {
							continue
						}
						i := r*c.cols + col
						if c.proj == Average {
							c.buf.sum[i] += w * v
							c.buf.weight[i] += w
						} else {
							c.buf.sum[i] = c.proj.combine(c.buf.sum[i], v)
						}
					}
				}
			}
		}
	}
}

// bounds returns the inclusive pixel range that can receive data: the
// source volume's bounding box in slab space, widened by one pixel and
// clipped to the grid.
func (c *compositor) bounds() (c0, c1, r0, r1 int, ok bool) {
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range c.vol.Corners() {
		q := c.frame.FromStudy(p)
		lo = r3.Vec{X: math.Min(lo.X, q.X), Y: math.Min(lo.Y, q.Y), Z: math.Min(lo.Z, q.Z)}
		hi = r3.Vec{X: math.Max(hi.X, q.X), Y: math.Max(hi.Y, q.Y), Z: math.Max(hi.Z, q.Z)}
	}
	if hi.Z < 0 || lo.Z > c.pixel.Z {
		return 0, 0, 0, 0, false
	}

	span := func(lo, hi, size float64, n int) (int, int, bool) {
		a := math.Floor(lo/size - 0.5)
		b := math.Ceil(hi/size - 0.5)
		if b < 0 || a > float64(n-1) {
			return 0, 0, false
		}
		return int(math.Max(a, 0)), int(math.Min(b, float64(n-1))), true
	}
	c0, c1, okX := span(lo.X, hi.X, c.pixel.X, c.cols)
	r0, r1, okY := span(lo.Y, hi.Y, c.pixel.Y, c.rows)
	return c0, c1, r0, r1, okX && okY
}

// normalize writes the final pixel values.
func (c *compositor) normalize() {
	for i := range c.buf.out {
		switch {
		case c.proj != Average:
			c.buf.out[i] = float32(c.buf.sum[i])
		case c.buf.weight[i] > 0:
			c.buf.out[i] = float32(c.buf.sum[i] / c.buf.weight[i])
		default:
			c.buf.out[i] = float32(math.NaN())
		}
	}
}

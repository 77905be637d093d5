// Package visualization extracts slices of a volume along the standard views
// and writes them as 16-bit grayscale images.
package visualization

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"volslice/internal/models"
	"volslice/pkg/interpolation"
	"volslice/pkg/progress"
	"volslice/pkg/slicer"
	"volslice/pkg/timing"
	"volslice/pkg/volume"
)

// Viewer extracts slices of one volume along the transverse, coronal and
// sagittal views.
type Viewer struct {
	vol       *volume.Volume
	extractor *slicer.Extractor

	// PixelSize is the in-plane pixel size and Thickness the slab thickness,
	// both in the volume's physical units.
	PixelSize float64
	Thickness float64

	Interpolation interpolation.Mode
	Projection    slicer.Projection
	Window        timing.Window
	Gates         timing.GateSelector
}

// NewViewer creates a viewer that integrates every frame and visible gate of
// vol. A nil extractor uses the defaults.
func NewViewer(vol *volume.Volume, extractor *slicer.Extractor, pixelSize, thickness float64) *Viewer {
	if extractor == nil {
		extractor = slicer.NewExtractor()
	}
	spans := vol.FrameSpans()
	first, last := spans[0], spans[len(spans)-1]
	return &Viewer{
		vol:           vol,
		extractor:     extractor,
		PixelSize:     pixelSize,
		Thickness:     thickness,
		Interpolation: interpolation.Trilinear,
		Projection:    slicer.Average,
		Window:        timing.Window{Start: first.Start, Duration: last.End() - first.Start},
		Gates:         timing.AllVisibleGates(),
	}
}

// bounds returns the box the volume occupies in view coordinates.
func (v *Viewer) bounds(view models.View) r3.Box {
	f := view.Frame(r3.Vec{})
	b := r3.Box{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, c := range v.vol.Corners() {
		p := f.FromStudy(c)
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// Positions returns the slab centres that tile the volume along the view
// normal.
func (v *Viewer) Positions(view models.View) []float64 {
	b := v.bounds(view)
	n := max(1, int(math.Ceil((b.Max.Z-b.Min.Z)/v.Thickness-1e-9)))
	out := make([]float64, n)
	for k := range out {
		out[k] = b.Min.Z + (float64(k)+0.5)*v.Thickness
	}
	return out
}

// ExtractSlice extracts the slab centred at position along the view normal.
// The footprint covers the whole volume.
func (v *Viewer) ExtractSlice(view models.View, position float64) (*slicer.Slice, error) {
	b := v.bounds(view)
	if position < b.Min.Z || position > b.Max.Z {
		return nil, fmt.Errorf("position %g outside %g..%g along the %v normal", position, b.Min.Z, b.Max.Z, view)
	}
	return v.extractor.Extract(v.vol, slicer.Request{
		Window:        v.Window,
		Gates:         v.Gates,
		PixelSize:     r3.Vec{X: v.PixelSize, Y: v.PixelSize, Z: v.Thickness},
		Footprint:     r2.Box{Min: r2.Vec{X: b.Min.X, Y: b.Min.Y}, Max: r2.Vec{X: b.Max.X, Y: b.Max.Y}},
		Frame:         view.Frame(r3.Scale(position, view.Normal())),
		Interpolation: v.Interpolation,
		Projection:    v.Projection,
	})
}

// ToGray16 maps a slice linearly from [lo, hi] to the 16-bit range. NaN
// pixels become black. Slice row 0 becomes the bottom row of the image.
func ToGray16(s *slicer.Slice, lo, hi float64) *image.Gray16 {
	cols, rows := s.Cols(), s.Rows()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			gray := (s.At(c, r) - lo) * scale
			if hi <= lo && s.At(c, r) > lo {
				gray = 1
			}
			// replace NaNs with zeros for export
			if math.IsNaN(gray) || gray < 0 {
				gray = 0
			}
			if gray > 1 {
				gray = 1
			}
			img.SetGray16(c, rows-1-r, color.Gray16{Y: uint16(math.Round(gray * 65535))})
		}
	}
	return img
}

// WriteImage encodes img as "png" or "tiff".
func WriteImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unsupported image format %q (must be png or tiff)", format)
}

// FormatOf returns the image format implied by a file extension.
func FormatOf(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png", nil
	case ".tif", ".tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("cannot tell image format from %q", filename)
}

// SaveSlice writes img to filename in the format given by its extension.
func SaveSlice(img image.Image, filename string) error {
	format, err := FormatOf(filename)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := WriteImage(writer, img, format); err != nil {
		return err
	}
	return writer.Flush()
}

// SaveSliceSequence extracts every slab along a view and writes it to
// outputDir, windowed to the volume's global min/max. It returns the written
// file names. fn may be nil; when it declines to continue the sequence
// stops with progress.ErrCancelled.
func (v *Viewer) SaveSliceSequence(view models.View, outputDir, format string, fn progress.Func) ([]string, error) {
	ext := map[string]string{"png": "png", "tiff": "tif"}[format]
	if ext == "" {
		return nil, fmt.Errorf("unsupported image format %q (must be png or tiff)", format)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	lo, hi := v.vol.MinMax()
	positions := v.Positions(view)
	tr := progress.NewTracker(fn, fmt.Sprintf("Saving %v slices", view), 1)
	if !tr.Start() {
		return nil, progress.ErrCancelled
	}

	var files []string
	for i, pos := range positions {
		s, err := v.ExtractSlice(view, pos)
		if err != nil {
			return files, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%v_%03d.%s", view, i, ext))
		if err := SaveSlice(ToGray16(s, lo, hi), filename); err != nil {
			return files, err
		}
		files = append(files, filename)
		if !tr.Step(i+1, len(positions)) {
			return files, progress.ErrCancelled
		}
	}
	tr.Done()
	return files, nil
}

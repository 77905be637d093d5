package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"volslice/internal/models"
	"volslice/pkg/config"
	"volslice/pkg/interpolation"
	"volslice/pkg/progress"
	"volslice/pkg/slicer"
	"volslice/pkg/timing"
	"volslice/pkg/visualization"
	"volslice/pkg/volume"
)

var (
	viewFlag          string
	positionFlag      float64
	outFlag           string
	projectionFlag    string
	interpolationFlag string
	gateFlag          int
	startFlag         float64
	durationFlag      float64
	sequenceFlag      bool
)

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Extract one slice, or every slice along a view",
	RunE:  runSlice,
}

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Extract the central transverse, coronal and sagittal slices concurrently",
	RunE:  runViews,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Scan the volume for min/max and its value distribution",
	RunE:  runStats,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateDefaultConfigFile(configPath); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to: %s\n", configPath)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{sliceCmd, viewsCmd} {
		f := cmd.Flags()
		f.StringVarP(&outFlag, "out", "o", "", "Output directory (default: output.dir from the config)")
		f.StringVar(&projectionFlag, "projection", "", "Projection: average, mip or minip")
		f.StringVar(&interpolationFlag, "interpolation", "", "Interpolation: nearest or trilinear")
		f.IntVar(&gateFlag, "gate", -1, "Single gate to use (default: all visible gates)")
		f.Float64Var(&startFlag, "start", 0, "Start of the time window")
		f.Float64Var(&durationFlag, "duration", 0, "Duration of the time window (default: whole study)")
	}
	sliceCmd.Flags().StringVar(&viewFlag, "view", "transverse", "View: transverse, coronal or sagittal")
	sliceCmd.Flags().Float64Var(&positionFlag, "position", 0, "Slab centre along the view normal (default: middle of the volume)")
	sliceCmd.Flags().BoolVar(&sequenceFlag, "sequence", false, "Save every slab along the view")

	configCmd.AddCommand(configInitCmd)
}

// newViewer applies the config and the command's overrides
func newViewer(cmd *cobra.Command, vol *volume.Volume) (*visualization.Viewer, error) {
	v := visualization.NewViewer(vol, cfg.Extractor(), cfg.View.PixelSize, cfg.View.Thickness)

	var err error
	if v.Interpolation, err = cfg.InterpolationMode(); err != nil {
		return nil, err
	}
	if v.Projection, err = cfg.ProjectionMode(); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("interpolation") {
		if v.Interpolation, err = interpolation.ParseMode(interpolationFlag); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("projection") {
		if v.Projection, err = slicer.ParseProjection(projectionFlag); err != nil {
			return nil, err
		}
	}
	if gateFlag >= 0 {
		v.Gates = timing.SingleGate(gateFlag)
	}
	if cmd.Flags().Changed("start") || cmd.Flags().Changed("duration") {
		v.Window = timing.Window{Start: startFlag, Duration: durationFlag}
	}
	return v, nil
}

func outputDir() string {
	if outFlag != "" {
		return outFlag
	}
	return cfg.Output.Dir
}

func imageExt() string {
	if cfg.Output.Format == "tiff" {
		return "tif"
	}
	return "png"
}

func describe(s *slicer.Slice) {
	st := s.Stats()
	fmt.Printf("- %dx%d pixels, frames %d..%d, gates %v, window %.3g+%.3g\n",
		s.Cols(), s.Rows(), s.StartFrame, s.EndFrame, s.SourceGates, s.ScanStart(), s.Duration())
	fmt.Printf("- %d valid pixels, mean %.4g, std-dev %.4g\n", st.Count, st.Mean, st.StdDev)
}

func runSlice(cmd *cobra.Command, args []string) error {
	view, err := models.ParseView(viewFlag)
	if err != nil {
		return err
	}
	vol, err := loadVolume()
	if err != nil {
		return err
	}
	viewer, err := newViewer(cmd, vol)
	if err != nil {
		return err
	}

	printBanner("OBLIQUE SLICE EXTRACTION")
	fmt.Printf("Volume: %s %v (%v), %v projection, %v interpolation\n",
		vol.Name(), vol.Dim(), vol.Kind(), viewer.Projection, viewer.Interpolation)

	if sequenceFlag {
		dir := filepath.Join(outputDir(), view.String())
		fmt.Printf("Saving %v slices to: %s\n", view, dir)
		files, err := viewer.SaveSliceSequence(view, dir, cfg.Output.Format, progress.Console(os.Stdout))
		if err != nil {
			return err
		}
		fmt.Printf("Saved %d slices\n", len(files))
		return nil
	}

	position := positionFlag
	if !cmd.Flags().Changed("position") {
		positions := viewer.Positions(view)
		position = positions[len(positions)/2]
	}

	startTime := time.Now()
	s, err := viewer.ExtractSlice(view, position)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %v slice at %.3g in %v\n", view, position, time.Since(startTime))
	describe(s)

	if err := os.MkdirAll(outputDir(), 0755); err != nil {
		return err
	}
	lo, hi := vol.MinMax()
	filename := filepath.Join(outputDir(), fmt.Sprintf("slice_%v.%s", view, imageExt()))
	if err := visualization.SaveSlice(visualization.ToGray16(s, lo, hi), filename); err != nil {
		return err
	}
	fmt.Printf("Output saved to: %s\n", filename)
	return nil
}

func runViews(cmd *cobra.Command, args []string) error {
	vol, err := loadVolume()
	if err != nil {
		return err
	}
	viewer, err := newViewer(cmd, vol)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir(), 0755); err != nil {
		return err
	}

	printBanner("ORTHOGONAL VIEWS")
	// fill the min/max cache before the workers read it
	lo, hi := vol.MinMax()

	var mu sync.Mutex
	slices := make(map[models.View]*slicer.Slice)
	var g errgroup.Group
	startTime := time.Now()
	for _, view := range models.Views {
		g.Go(func() error {
			positions := viewer.Positions(view)
			s, err := viewer.ExtractSlice(view, positions[len(positions)/2])
			if err != nil {
				return fmt.Errorf("%v: %w", view, err)
			}
			filename := filepath.Join(outputDir(), fmt.Sprintf("slice_%v.%s", view, imageExt()))
			if err := visualization.SaveSlice(visualization.ToGray16(s, lo, hi), filename); err != nil {
				return fmt.Errorf("%v: %w", view, err)
			}
			mu.Lock()
			slices[view] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Extracted %d views in %v\n", len(slices), time.Since(startTime))
	for _, view := range models.Views {
		fmt.Printf("%v:\n", view)
		describe(slices[view])
	}
	fmt.Printf("Output saved to: %s\n", outputDir())
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	vol, err := loadVolume()
	if err != nil {
		return err
	}

	printBanner("VOLUME STATISTICS")
	fmt.Printf("Volume: %s %v (%v), id %s\n", vol.Name(), vol.Dim(), vol.Kind(), vol.ID())

	console := progress.Console(os.Stdout)
	lo, hi, err := vol.ComputeGlobalMinMax(console)
	if err != nil {
		return err
	}
	fmt.Printf("Global min/max: %.6g / %.6g\n", lo, hi)
	for f := 0; f < vol.Dim().Time; f++ {
		flo, fhi, err := vol.FrameMinMax(f)
		if err != nil {
			return err
		}
		span := vol.FrameSpan(f)
		fmt.Printf("- frame %d [%.3g, %.3g): %.6g / %.6g\n", f, span.Start, span.End(), flo, fhi)
	}

	h, err := vol.ComputeDistribution(cfg.Engine.HistogramBins, console)
	if err != nil {
		return err
	}
	fmt.Printf("Distribution: %d bins, %.0f voxels, most common value ~%.6g\n", len(h.Counts), h.Total(), h.Mode())
	return nil
}

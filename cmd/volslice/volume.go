package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/phantom"
	"volslice/pkg/volume"
)

var (
	phantomName string
	dimsFlag    string
	voxelFlag   string
	kindFlag    string
	noiseFlag   float64
	seedFlag    uint32
)

func addVolumeFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&phantomName, "phantom", "sphere", "Phantom volume: sphere or ramp")
	f.StringVar(&dimsFlag, "dims", "64x64x32x4x3", "Volume dimensions XxYxZxGATExTIME")
	f.StringVar(&voxelFlag, "voxel", "1,1,1", "Voxel size X,Y,Z in mm")
	f.StringVar(&kindFlag, "kind", "int16", "Element kind (uint8, int8, uint16, int16, uint32, int32, float32, float64)")
	f.Float64Var(&noiseFlag, "noise", 0, "Uniform noise amplitude of the sphere phantom")
	f.Uint32Var(&seedFlag, "seed", 1, "Noise seed")
}

func parseDims(s string) (volume.Dim5, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) < 3 || len(parts) > 5 {
		return volume.Dim5{}, fmt.Errorf("dimensions %q must have 3 to 5 components", s)
	}
	n := []int{1, 1, 1, 1, 1}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return volume.Dim5{}, fmt.Errorf("dimensions %q: %w", s, err)
		}
		n[i] = v
	}
	d := volume.Dim5{X: n[0], Y: n[1], Z: n[2], Gate: n[3], Time: n[4]}
	return d, d.Validate()
}

func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("vector %q must have 3 components", s)
	}
	var v [3]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("vector %q: %w", s, err)
		}
		v[i] = x
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// loadVolume builds the phantom selected on the command line
func loadVolume() (*volume.Volume, error) {
	dim, err := parseDims(dimsFlag)
	if err != nil {
		return nil, err
	}
	size, err := parseVec(voxelFlag)
	if err != nil {
		return nil, err
	}
	kind, err := volume.ParseKind(kindFlag)
	if err != nil {
		return nil, err
	}
	opts := []volume.Option{
		volume.WithName(phantomName),
		volume.WithVoxelSize(size),
		volume.WithProgressEvery(cfg.Engine.ProgressEvery),
	}

	switch phantomName {
	case "ramp":
		return phantom.Ramp(kind, dim, opts...)
	case "sphere":
		return phantom.Sphere(kind, dim, phantom.SphereOptions{
			Value:      1000,
			Background: 100,
			FrameGain:  0.25,
			Pulse:      0.2,
			Noise:      noiseFlag,
			Seed:       seedFlag,
		}, opts...)
	}
	return nil, fmt.Errorf("unknown phantom %q (must be sphere or ramp)", phantomName)
}

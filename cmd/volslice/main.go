package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"volslice/pkg/config"
	"volslice/pkg/slicer"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "volslice",
	Short: "Oblique slice extraction from 5D (x, y, z, gate, time) volumes",
	Long: `volslice resamples gated dynamic volumes onto arbitrary planes.

It supports nearest-neighbour and trilinear interpolation and average,
maximum-intensity and minimum-intensity projection over slabs, time
windows and gates. Volumes are synthetic phantoms; use --phantom and
--dims to choose one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if verbose || cfg.Output.Verbose {
			level = slog.LevelDebug
		}
		slicer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "volslice.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log extraction stages")
	addVolumeFlags(rootCmd)

	rootCmd.AddCommand(sliceCmd, viewsCmd, statsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(title string) {
	fmt.Println("================================")
	fmt.Println(title)
	fmt.Println("================================")
}

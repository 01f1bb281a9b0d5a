package cmd

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/pbf2json-go/internal/config"
	"github.com/wegman-software/pbf2json-go/internal/logger"
	"github.com/wegman-software/pbf2json-go/internal/pipeline"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	geometryStr     string
)

var rootCmd = &cobra.Command{
	Use:   "pbf2json <input.osm.pbf>",
	Short: "Convert OSM PBF extracts to line-delimited JSON",
	Long: `pbf2json converts OSM PBF extracts into a stream of line-delimited JSON
features, one element per line, with bounded memory regardless of input size.

Features:
  - Multi-threaded PBF parsing and parallel feature encoding
  - Memory-mapped coordinate store for O(1) node lookups
  - Tag filtering with wildcard key patterns (addr*+name,highway)
  - Way centroids and bounding boxes; relation geometry aggregation
  - Automatic pass-plan selection based on input size`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		// Initialize logger with optional file output
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel transform workers")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")

	// Conversion flags
	rootCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file (default: stdout)")
	rootCmd.Flags().StringVarP(&cfg.TagFilter, "tags", "t", "", "Tag filter: comma for OR, plus for AND, * wildcards (addr*+name,highway)")
	rootCmd.Flags().StringVar(&cfg.FilterFile, "filter-file", "", "YAML file with tag filter groups (overrides --tags)")
	rootCmd.Flags().BoolVarP(&cfg.Pretty, "pretty", "p", false, "Pretty-print JSON records")
	rootCmd.Flags().StringVarP(&geometryStr, "geometry", "g", string(config.GeometryAuto), "Geometry level: auto, basic, or full")
	rootCmd.Flags().StringVar(&cfg.StorePath, "coord-store", "", "Path for the coordinate store file (default: temp file)")
	rootCmd.Flags().BoolVar(&cfg.RetainStore, "keep-coord-store", false, "Keep the coordinate store file after conversion")
	rootCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Coordinate store write batch size")
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	log := logger.Get()

	level, ok := config.ParseGeometryLevel(geometryStr)
	if !ok {
		log.Warn("Unknown geometry level, using auto", zap.String("geometry", geometryStr))
	}
	cfg.GeometryLevel = level

	conv, err := pipeline.NewConverter(cfg)
	if err != nil {
		exitWithError("Invalid configuration", err)
	}

	stats, err := conv.Run(context.Background())
	if err != nil {
		exitWithError("Conversion failed", err)
	}

	log.Info("Done",
		zap.String("plan", stats.Plan),
		zap.Int64("records", stats.Records),
		zap.Duration("duration", stats.Duration))
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}

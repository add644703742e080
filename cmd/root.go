package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpbf-core/internal/config"
	"github.com/wegman-software/osmpbf-core/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	bboxFlag        string
)

var rootCmd = &cobra.Command{
	Use:   "osmpbf-core",
	Short: "Streaming OSM PBF decoder and relation assembly engine",
	Long: `osmpbf-core decodes OSM PBF files into nodes, ways, and relations,
and assembles relations against their members in two passes.

Features:
  - Multi-threaded blob decode with ordered delivery
  - Dense-node delta decoding and tag resolution
  - Two-pass relation assembly with orphan/complete hooks
  - Optional bounding-box filtering of node locations`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		if bboxFlag != "" {
			bbox, err := config.ParseBBox(bboxFlag)
			if err != nil {
				exitWithError("invalid --bbox", err)
			}
			cfg.BBox = bbox
		}

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
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel decode workers")
	rootCmd.PersistentFlags().IntVar(&cfg.MaxWorkQueue, "max-work-queue", cfg.MaxWorkQueue, "Max pending blob-decode tasks")
	rootCmd.PersistentFlags().IntVar(&cfg.MaxBufferQueue, "max-buffer-queue", cfg.MaxBufferQueue, "Max undelivered output buffers")
	rootCmd.PersistentFlags().StringVar(&bboxFlag, "bbox", "", "Bounding box filter: minlon,minlat,maxlon,maxlat")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "progress-interval", 30*time.Second, "Interval for progress logging (e.g., 10s, 1m)")
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

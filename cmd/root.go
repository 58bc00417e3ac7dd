package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilemaker-go/internal/config"
	"github.com/wegman-software/tilemaker-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tilemaker-go",
	Short: "Converts OpenStreetMap PBF extracts into vector tiles",
	Long: `tilemaker-go reads an OpenStreetMap .osm.pbf extract and writes vector
tiles, driven by a Lua process script that decides which entities become
which layers.

Features:
  - Four-phase ingest (nodes, relation scan, ways, relations) matching the
    way multipolygon relations depend on their member ways
  - Lua Flex-style process scripts with Layer()/Attribute()/Accept() calls
  - Sharded Ways/Relations passes for datasets too large to keep in memory
  - Optional replication-driven incremental updates from .osc change files`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = int(metricsInterval / time.Second)

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
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Stored as cfg.MetricsInterval; no command starts a metrics collector (e.g., 10s, 1m)")

	rootCmd.PersistentFlags().IntVarP(&cfg.Threads, "threads", "j", cfg.Threads, "Number of parallel worker threads")
	rootCmd.PersistentFlags().BoolVar(&cfg.LogTileTimings, "log-tile-timings", false, "Log per-zoom-level render timings (debug level)")
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

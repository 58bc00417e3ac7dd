package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilemaker-go/internal/expire"
	"github.com/wegman-software/tilemaker-go/internal/logger"
	"github.com/wegman-software/tilemaker-go/internal/osc"
	"github.com/wegman-software/tilemaker-go/internal/replication"
)

var (
	updateSource       string
	updateCatchUp      bool
	updateExpireOutput string
	updateExpireMinZ   int
	updateExpireMaxZ   int
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch the next OSC change file and report which tiles it touches",
	Long: `update fetches the next pending replication sequence, parses its .osc
change file, and expires every tile its node changes fall in. It does not
re-ingest ways or relations into a live tileset — resolving a modified way's
geometry needs the base dataset's node store, which this command does not
hold — so way/relation changes are only counted, never expired directly.

Use --expire-output to write the affected tile list for a downstream
'render' pass (or any other consumer) to pick up, the same convention
osm2pgsql's --expire-output and tilemaker's expired-tiles file follow.`,
	Run: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateSource, "source", "", "Replication source (e.g. geofabrik/monaco, planet-minute)")
	updateCmd.Flags().BoolVar(&updateCatchUp, "catch-up", false, "Apply all pending updates until caught up")
	updateCmd.Flags().StringVarP(&updateExpireOutput, "expire-output", "e", "", "Path to write the expired-tiles list")
	updateCmd.Flags().IntVar(&updateExpireMinZ, "expire-min-zoom", 6, "Minimum zoom level recorded in the expired-tiles list")
	updateCmd.Flags().IntVar(&updateExpireMaxZ, "expire-max-zoom", int(cfg.BaseZoom), "Maximum zoom level recorded in the expired-tiles list")
}

func runUpdate(cmd *cobra.Command, args []string) {
	log := logger.Get()

	if updateSource == "" {
		exitWithError("--source is required", nil)
	}
	source, err := replication.ParseSource(updateSource)
	if err != nil {
		exitWithError("invalid replication source", err)
	}

	replicator, err := replication.NewReplicator(cfg, source)
	if err != nil {
		exitWithError("failed to create replicator", err)
	}
	if err := replicator.LoadState(); err != nil {
		exitWithError("failed to load replication state", err)
	}

	tracker := expire.NewTracker(updateExpireMinZ, updateExpireMaxZ)

	ctx := context.Background()
	applied := 0

	for {
		hasUpdates, behind, err := replicator.CheckForUpdates(ctx)
		if err != nil {
			exitWithError("failed to check for updates", err)
		}
		if !hasUpdates {
			break
		}
		log.Info("update available", zap.Int64("behind", behind))

		oscPath, nextState, err := replicator.FetchNextUpdate(ctx)
		if err != nil {
			exitWithError("failed to fetch update", err)
		}
		if oscPath == "" {
			log.Warn("update not yet available, try again later")
			break
		}

		counted, err := applyOSCToTracker(ctx, oscPath, tracker)
		if err != nil {
			exitWithError("failed to process OSC file", err)
		}
		log.Info("processed OSC file",
			zap.String("path", oscPath),
			zap.Int64("nodes", counted.NodesCreated+counted.NodesModified+counted.NodesDeleted),
			zap.Int64("ways", counted.WaysCreated+counted.WaysModified+counted.WaysDeleted),
			zap.Int64("relations", counted.RelationsCreated+counted.RelationsModified+counted.RelationsDeleted))

		if err := replicator.UpdateState(nextState); err != nil {
			exitWithError("failed to save replication state", err)
		}
		applied++

		if !updateCatchUp {
			break
		}
	}

	if applied == 0 {
		fmt.Println("Already up to date.")
		return
	}

	fmt.Printf("Applied %d update(s). %d tiles expired.\n", applied, tracker.Count())
	if updateExpireOutput != "" {
		if err := tracker.WriteToFile(updateExpireOutput); err != nil {
			exitWithError("failed to write expired-tiles list", err)
		}
		fmt.Printf("Expired tiles written to %s\n", updateExpireOutput)
	}
}

// applyOSCToTracker streams changes out of an .osc file and expires every
// tile a node change falls in.
func applyOSCToTracker(ctx context.Context, path string, tracker *expire.Tracker) (osc.Stats, error) {
	parser := osc.NewParser()
	changes, errCh := parser.ParseFile(ctx, path)

	for change := range changes {
		if change.Node != nil {
			tracker.ExpirePoint(float64(change.Node.Lat)/1e7, float64(change.Node.Lon)/1e7)
		}
	}
	if err := <-errCh; err != nil {
		return osc.Stats{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return parser.Stats(), nil
}

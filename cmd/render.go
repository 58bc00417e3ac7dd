package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilemaker-go/internal/config"
	"github.com/wegman-software/tilemaker-go/internal/logger"
	"github.com/wegman-software/tilemaker-go/internal/pbfdriver"
	"github.com/wegman-software/tilemaker-go/internal/tilesink"
)

var (
	bboxStr        string
	mergeFiles     []string
	processScript  string
	styleFile      string
	storeMode      string
	compactNodes   bool
	compressNodes  bool
	compressWays   bool
	lazyGeometries bool
	materialize    bool
	shardStores    int
	fastMode       bool
	skipIntegrity  bool
	baseZoom       uint8
	minZoom        uint8
	gzipTiles      bool
	funcCachePath  string
)

var renderCmd = &cobra.Command{
	Use:   "render <input.osm.pbf> <output>",
	Short: "Ingest a PBF extract and render vector tiles",
	Long: `render runs the four-phase ingest (nodes, relation scan, ways, relations)
over the input PBF, driving the Lua process script's Layer()/Attribute()
calls, then encodes and writes one vector tile per covered tile across
[--min-zoom, --base-zoom].

output may be a directory (the default, written as <z>/<x>/<y>.pbf), an
.ndjson debug dump, or an .mbtiles/.pmtiles path (those two are not
currently wired to a concrete archive writer and will fail at open time).`,
	Args: cobra.ExactArgs(2),
	Run:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&bboxStr, "bbox", "b", "", "Bounding box filter: minlon,minlat,maxlon,maxlat")
	renderCmd.Flags().StringSliceVar(&mergeFiles, "merge", nil, "Additional PBF files to merge into the same tileset")
	renderCmd.Flags().StringVarP(&processScript, "process", "p", "", "Lua process script (required)")
	renderCmd.Flags().StringVarP(&styleFile, "config", "c", "", "Style YAML file for tag pre-filtering")
	renderCmd.Flags().StringVar(&storeMode, "store", "memory", "Entity store backend (only \"memory\" is accepted)")
	renderCmd.Flags().BoolVar(&compactNodes, "compact", false, "Use the compact (sequential-id) node store")
	renderCmd.Flags().BoolVar(&compressNodes, "compress-nodes", true, "Accepted; the node store is not compressed either way")
	renderCmd.Flags().BoolVar(&compressWays, "compress-ways", true, "Accepted; the way store is not compressed either way")
	renderCmd.Flags().BoolVar(&lazyGeometries, "lazy-geometries", false, "Accepted; has no effect on geometry construction")
	renderCmd.Flags().BoolVar(&materialize, "materialize-geometries", false, "Accepted; has no effect on geometry construction")
	renderCmd.Flags().IntVar(&shardStores, "shard-stores", 1, "Number of shards for the Ways/Relations phases")
	renderCmd.Flags().BoolVar(&fastMode, "fast", false, "Trade the id-indexed tile index for speed/memory")
	renderCmd.Flags().BoolVar(&skipIntegrity, "skip-integrity", false, "Skip node/way reference integrity checks")
	renderCmd.Flags().Uint8Var(&baseZoom, "base-zoom", 14, "Base (highest) zoom level to render")
	renderCmd.Flags().Uint8Var(&minZoom, "min-zoom", 0, "Minimum zoom level to render")
	renderCmd.Flags().BoolVar(&gzipTiles, "gzip", true, "Gzip-compress encoded tile bytes before writing")
	renderCmd.Flags().StringVar(&funcCachePath, "func-cache", "", "Path to a function-cache sidecar file memoizing relation validity across runs (disabled if empty)")
}

func runRender(cmd *cobra.Command, args []string) {
	log := logger.Get()

	cfg.InputFile = args[0]
	cfg.OutputPath = args[1]
	cfg.MergeFiles = mergeFiles
	cfg.ProcessScript = processScript
	cfg.StyleFile = styleFile
	cfg.Store = storeMode
	cfg.CompactNodes = compactNodes
	cfg.CompressNodes = compressNodes
	cfg.CompressWays = compressWays
	cfg.LazyGeometries = lazyGeometries
	cfg.Materialize = materialize
	cfg.ShardStores = shardStores
	cfg.Fast = fastMode
	cfg.EnforceIntegrity = !skipIntegrity
	cfg.BaseZoom = baseZoom
	cfg.MinZoom = minZoom
	cfg.FuncCachePath = funcCachePath

	if bboxStr != "" {
		bbox, err := config.ParseBBox(bboxStr)
		if err != nil {
			exitWithError("invalid bbox", err)
		}
		cfg.BBox = bbox
	}

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	start := time.Now()
	log.Info("starting render",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputPath),
		zap.Int("threads", cfg.Threads),
		zap.Uint8("base_zoom", cfg.BaseZoom))

	driver, err := pbfdriver.New(cfg)
	if err != nil {
		exitWithError("failed to initialize driver", err)
	}
	defer driver.Close()

	ctx := context.Background()
	if err := driver.Run(ctx); err != nil {
		exitWithError("ingest failed", err)
	}

	log.Info("ingest complete",
		zap.Int64("nodes", driver.Stats.Nodes.Load()),
		zap.Int64("ways", driver.Stats.Ways.Load()),
		zap.Int64("relations", driver.Stats.Relations.Load()),
		zap.Duration("elapsed", time.Since(start).Round(time.Second)))

	sink, err := tilesink.Open(cfg.OutputPath)
	if err != nil {
		exitWithError("failed to open output sink", err)
	}
	defer sink.Close()

	encoder := tilesink.NewMVTEncoder(gzipTiles)
	tilesWritten, err := renderTiles(ctx, driver, encoder, sink, cfg)
	if err != nil {
		exitWithError("tile rendering failed", err)
	}

	log.Info("render complete",
		zap.Int("tiles_written", tilesWritten),
		zap.Duration("total_elapsed", time.Since(start).Round(time.Second)))
	fmt.Printf("Wrote %d tiles to %s\n", tilesWritten, cfg.OutputPath)
}

func renderTiles(ctx context.Context, driver *pbfdriver.Driver, encoder *tilesink.MVTEncoder, sink tilesink.Sink, cfg *config.Config) (int, error) {
	log := logger.Get()
	written := 0

	// Coarse-to-fine: ClipCache.Add at a zoom must run before any finer
	// zoom's ClipCache.Get probes it as an ancestor.
	for zoom := cfg.MinZoom; ; zoom++ {
		tiles := driver.Sink.CollectTilesWithObjectsAtZoom(zoom)
		tileStart := time.Now()

		for _, tile := range tiles {
			objects := driver.Sink.CollectObjectsForTile(zoom, tile, nil)
			if len(objects) == 0 {
				continue
			}
			data, err := encoder.Encode(zoom, tile, objects, driver.Sink.BuildWayGeometry, driver.Attrs())
			if err != nil {
				return written, fmt.Errorf("encoding tile z%d/%d/%d: %w", zoom, tile.X, tile.Y, err)
			}
			if len(data) == 0 {
				continue
			}
			if err := sink.WriteTile(ctx, zoom, tile, data); err != nil {
				return written, fmt.Errorf("writing tile z%d/%d/%d: %w", zoom, tile.X, tile.Y, err)
			}
			written++
		}

		if cfg.LogTileTimings {
			log.Debug("rendered zoom level",
				zap.Uint8("zoom", zoom),
				zap.Int("tiles", len(tiles)),
				zap.Duration("elapsed", time.Since(tileStart)))
		}

		if zoom == cfg.BaseZoom {
			break
		}
	}

	return written, nil
}

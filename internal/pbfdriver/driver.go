// Package pbfdriver orchestrates the four ordered ingest phases —
// Nodes, RelationScan, Ways, Relations — over one or more OSM PBF files,
// feeding every worker's script runtime and leaving its outputs in a
// shared tiledata.TileDataSource (ground: original_source/src/read_pbf.cpp's
// phase order, generalizing teacher's two-pass internal/pbf/extractor.go
// into four).
package pbfdriver

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/tilemaker-go/internal/attrstore"
	"github.com/wegman-software/tilemaker-go/internal/config"
	"github.com/wegman-software/tilemaker-go/internal/flex"
	"github.com/wegman-software/tilemaker-go/internal/funccache"
	"github.com/wegman-software/tilemaker-go/internal/logger"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/proj"
	"github.com/wegman-software/tilemaker-go/internal/style"
	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// BlockSource is the subset of *osmpbf.Scanner each phase depends on,
// narrowed to an interface so phase logic can run against a canned fake in
// tests without decoding a real PBF file. *osmpbf.Scanner already has this
// exact method set (ground: teacher's internal/pbf/extractor.go's
// scanner.Scan()/Object()/Err()/Close() usage).
type BlockSource interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// Stats accumulates per-phase counters for progress logging.
type Stats struct {
	Nodes             atomic.Int64
	Ways              atomic.Int64
	Relations         atomic.Int64
	RelationsAccepted atomic.Int64
}

// New constructs a Driver, probing the process script once (on the calling
// goroutine) to discover node_keys before any phase starts.
func New(cfg *config.Config) (*Driver, error) {
	attrs := attrstore.NewEngine()
	scan := osmstore.NewRelationScanStore()
	sink := tiledata.New(cfg.BaseZoom, !cfg.Fast, cfg.Threads)

	d := &Driver{
		cfg:   cfg,
		attrs: attrs,
		nodes: osmstore.NewNodeStore(cfg.EnforceIntegrity),
		ways:  osmstore.NewWayStore(cfg.CompactNodes, cfg.EnforceIntegrity),
		rels:  osmstore.NewRelationStore(cfg.EnforceIntegrity),
		scan:  scan,
		used:  osmstore.NewUsedWays(1 << 24),
		Sink:  sink,
	}

	if cfg.StyleFile != "" {
		styleCfg, err := style.LoadConfig(cfg.StyleFile)
		if err != nil {
			return nil, fmt.Errorf("pbfdriver: loading style file: %w", err)
		}
		d.pointFilter = style.NewFilter(styleCfg.Points)
		d.lineFilter = style.NewFilter(styleCfg.Lines)
		d.polyFilter = style.NewFilter(styleCfg.Polygons)
	}

	if cfg.FuncCachePath != "" {
		cache, err := funccache.Open(cfg.FuncCachePath, 0)
		if err != nil {
			return nil, fmt.Errorf("pbfdriver: opening function cache: %w", err)
		}
		d.funcCache = cache
	}
	d.newRuntime = func() (*flex.Runtime, error) {
		rt := flex.NewRuntime(flex.NewOsmProcessing(attrs, scan, sink))
		if err := rt.LoadFile(cfg.ProcessScript); err != nil {
			rt.Close()
			return nil, err
		}
		return rt, nil
	}

	probe, err := d.newRuntime()
	if err != nil {
		return nil, fmt.Errorf("pbfdriver: loading process script: %w", err)
	}
	d.nodeKeys = probe.NodeKeys()
	probe.Close()

	return d, nil
}

// Driver holds the process-wide stores and sink shared by every worker.
type Driver struct {
	cfg *config.Config

	attrs *attrstore.Engine
	nodes *osmstore.NodeStore
	ways  *osmstore.WayStore
	rels  *osmstore.RelationStore
	scan  *osmstore.RelationScanStore
	used  *osmstore.UsedWays

	pointFilter *style.Filter
	lineFilter  *style.Filter
	polyFilter  *style.Filter

	funcCache *funccache.Store

	Sink *tiledata.TileDataSource

	newRuntime func() (*flex.Runtime, error)
	nodeKeys   []string

	Stats Stats
}

// funcTagRelationOuterValid memoizes whether a relation's outer member
// ways assemble into at least one closed ring, keyed by relation ID and
// the number of outer member ways whose coordinates resolved
// (len(outerSegs)) as a cheap (imperfect but cheap) proxy for
// "the member set hasn't changed since this was last computed".
const funcTagRelationOuterValid uint8 = 1

// Attrs exposes the shared attribute engine so a caller rendering tiles
// after Run can resolve an OutputObject's AttributeSet back into key/value
// pairs.
func (d *Driver) Attrs() *attrstore.Engine { return d.attrs }

// Close releases resources held across the Driver's lifetime, such as the
// function-cache sidecar's file handles and cross-process lock.
func (d *Driver) Close() error {
	if d.funcCache != nil {
		return d.funcCache.Close()
	}
	return nil
}

// Run executes the four phases in order, over cfg.InputFile plus any
// --merge files, shards the Ways/Relations phases per cfg.ShardStores, and
// finalizes every store once ingest completes.
func (d *Driver) Run(ctx context.Context) error {
	files := append([]string{d.cfg.InputFile}, d.cfg.MergeFiles...)
	log := logger.Get()

	for _, path := range files {
		if err := d.withScanner(ctx, path, func(src BlockSource) error {
			return d.nodesOverSource(ctx, src)
		}); err != nil {
			return fmt.Errorf("pbfdriver: nodes phase: %w", err)
		}
	}
	d.nodes.Finalize()
	log.Info("nodes phase complete", zap.Int64("nodes", d.Stats.Nodes.Load()))

	for _, path := range files {
		if err := d.withScanner(ctx, path, func(src BlockSource) error {
			return d.relationScanOverSource(ctx, src)
		}); err != nil {
			return fmt.Errorf("pbfdriver: relation-scan phase: %w", err)
		}
	}
	d.scan.Finalize()
	log.Info("relation-scan phase complete", zap.Int64("accepted", d.Stats.RelationsAccepted.Load()))

	shards := d.cfg.ShardStores
	if shards < 1 {
		shards = 1
	}
	for s := 0; s < shards; s++ {
		for _, path := range files {
			if err := d.withScanner(ctx, path, func(src BlockSource) error {
				return d.waysOverSource(ctx, src, s, shards)
			}); err != nil {
				return fmt.Errorf("pbfdriver: ways phase (shard %d/%d): %w", s, shards, err)
			}
		}
	}
	d.ways.Finalize()
	log.Info("ways phase complete", zap.Int64("ways", d.Stats.Ways.Load()))

	for s := 0; s < shards; s++ {
		for _, path := range files {
			if err := d.withScanner(ctx, path, func(src BlockSource) error {
				return d.relationsOverSource(ctx, src, s, shards)
			}); err != nil {
				return fmt.Errorf("pbfdriver: relations phase (shard %d/%d): %w", s, shards, err)
			}
		}
	}
	d.rels.Finalize()
	log.Info("relations phase complete", zap.Int64("relations", d.Stats.Relations.Load()))

	d.Sink.Finalize()
	return nil
}

// withScanner opens path, runs fn against its scanner, and classifies any
// scanner-level error (other than a clean EOF) as an ErrMalformedPbf.
func (d *Driver) withScanner(ctx context.Context, path string, fn func(BlockSource) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("pbfdriver: opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, d.cfg.Threads)
	defer scanner.Close()

	if err := fn(scanner); err != nil {
		return err
	}
	if serr := scanner.Err(); serr != nil && serr != io.EOF {
		return &ErrMalformedPbf{Path: path, Err: serr}
	}
	return nil
}

func shardOf(id uint64, shards int) int {
	return int(id % uint64(shards))
}

// nodesOverSource stores every node's projected coordinate and, for nodes
// carrying at least one of the script's node_keys, invokes node_function
// (ground: spec.md §4.10/§6 — node storage and node_function share the
// Nodes phase in tilemaker's single-pass design, unlike teacher's
// coordinate-only pass 1).
func (d *Driver) nodesOverSource(ctx context.Context, src BlockSource) error {
	nodeCh := make(chan *osm.Node, 4096)
	workers, _ := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Threads; i++ {
		workers.Go(func() error {
			rt, err := d.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			for n := range nodeCh {
				d.processNode(rt, n)
			}
			return nil
		})
	}
	for src.Scan() {
		if n, ok := src.Object().(*osm.Node); ok {
			nodeCh <- n
		}
	}
	close(nodeCh)
	return workers.Wait()
}

func (d *Driver) processNode(rt *flex.Runtime, n *osm.Node) {
	loc := osmstore.LatpLon{
		Latp: osmstore.ScaleCoord(proj.Lat2Latp(n.Lat)),
		Lon:  osmstore.ScaleCoord(n.Lon),
	}
	d.nodes.Insert(osmstore.NodeID(n.ID), loc)
	d.Stats.Nodes.Add(1)

	if d.cfg.BBox != nil && d.cfg.BBox.IsSet && !d.cfg.BBox.Contains(n.Lat, n.Lon) {
		return
	}
	if !hasAnyKey(n.Tags, d.nodeKeys) {
		return
	}
	if d.pointFilter != nil && d.pointFilter.HasFilter() && !d.pointFilter.MatchOSMTags(n.Tags) {
		return
	}
	tm := tagMapFromOSM(n.Tags)
	if _, err := rt.ProcessNode(osmstore.NodeID(n.ID), loc, tm); err != nil {
		logger.Get().Warn("node_function error", zap.Uint64("node", uint64(n.ID)), zap.Error(err))
	}
}

// relationScanOverSource invokes relation_scan_function for every
// relation, recording way membership and relation tags for every relation
// the script accepted (ground: original_source/src/osm_lua_processing.cpp's
// ScanRelation/supportsReadingRelations path).
func (d *Driver) relationScanOverSource(ctx context.Context, src BlockSource) error {
	relCh := make(chan *osm.Relation, 4096)
	workers, _ := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Threads; i++ {
		workers.Go(func() error {
			rt, err := d.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			for rel := range relCh {
				d.scanRelation(rt, rel)
			}
			return nil
		})
	}
	for src.Scan() {
		if rel, ok := src.Object().(*osm.Relation); ok {
			relCh <- rel
		}
	}
	close(relCh)
	return workers.Wait()
}

func (d *Driver) scanRelation(rt *flex.Runtime, rel *osm.Relation) {
	tm := tagMapFromOSM(rel.Tags)
	accepted, err := rt.ScanRelation(osmstore.RelationID(rel.ID), tm)
	if err != nil {
		logger.Get().Warn("relation_scan_function error", zap.Uint64("relation", uint64(rel.ID)), zap.Error(err))
		return
	}
	if !accepted {
		return
	}
	d.scan.StoreRelationTags(osmstore.RelationID(rel.ID), tm.ExportToOwnedMap())
	for _, m := range rel.Members {
		if m.Type == osm.TypeWay {
			wayID := osmstore.WayID(m.Ref)
			d.scan.RelationContainsWay(osmstore.RelationID(rel.ID), wayID)
			d.used.Mark(wayID)
		}
	}
	d.Stats.RelationsAccepted.Add(1)
}

// waysOverSource stores every way's node refs and invokes way_function.
// When shards > 1, a way is only processed in the shard owning its first
// node id (spec.md §4.10's shard-skip rule).
func (d *Driver) waysOverSource(ctx context.Context, src BlockSource, shard, shards int) error {
	wayCh := make(chan *osm.Way, 4096)
	workers, _ := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Threads; i++ {
		workers.Go(func() error {
			rt, err := d.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			for w := range wayCh {
				d.processWay(rt, w)
			}
			return nil
		})
	}
	for src.Scan() {
		w, ok := src.Object().(*osm.Way)
		if !ok || len(w.Nodes) == 0 {
			continue
		}
		if shards > 1 && shardOf(uint64(w.Nodes[0].ID), shards) != shard {
			continue
		}
		wayCh <- w
	}
	close(wayCh)
	return workers.Wait()
}

// processWay resolves a way's coordinates, runs way_function, and retains
// the way's node refs in the WayStore only if the script emitted something
// for it or a relation accepted during the scan phase references it (ground:
// original_source/src/read_pbf.cpp:145's `if (emitted || osmStore.way_is_used(wayId))`
// retention gate — a way nothing renders and no relation needs is dead
// weight in the WayStore).
func (d *Driver) processWay(rt *flex.Runtime, w *osm.Way) {
	wayID := osmstore.WayID(w.ID)
	refs := make([]osmstore.NodeID, len(w.Nodes))
	for i, n := range w.Nodes {
		refs[i] = osmstore.NodeID(n.ID)
	}
	d.Stats.Ways.Add(1)

	coords, err := d.nodes.Resolve(refs)
	if err != nil {
		logger.Get().Warn("way node resolution failed", zap.Uint64("way", uint64(w.ID)), zap.Error(err))
		if d.used.Used(wayID) {
			d.ways.InsertRefs(wayID, refs)
		}
		return
	}
	if len(coords) < 2 {
		if d.used.Used(wayID) {
			d.ways.InsertRefs(wayID, refs)
		}
		return
	}
	closed := len(coords) >= 4 && coords[0] == coords[len(coords)-1]

	filter := d.lineFilter
	if closed {
		filter = d.polyFilter
	}
	emitted := false
	if filter == nil || !filter.HasFilter() || filter.MatchOSMTags(w.Tags) {
		tm := tagMapFromOSM(w.Tags)
		objs, err := rt.ProcessWay(wayID, coords, closed, tm)
		if err != nil {
			logger.Get().Warn("way_function error", zap.Uint64("way", uint64(w.ID)), zap.Error(err))
		}
		emitted = len(objs) > 0
	}

	if emitted || d.used.Used(wayID) {
		d.ways.InsertRefs(wayID, refs)
	}
}

// relationsOverSource resolves every accepted relation's member ways into
// outer/inner ring sets and invokes relation_function. When shards > 1, a
// relation is only processed in the shard owning its first way member's
// id.
func (d *Driver) relationsOverSource(ctx context.Context, src BlockSource, shard, shards int) error {
	relCh := make(chan *osm.Relation, 4096)
	workers, _ := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Threads; i++ {
		workers.Go(func() error {
			rt, err := d.newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			for rel := range relCh {
				d.processRelation(rt, rel)
			}
			return nil
		})
	}
	for src.Scan() {
		rel, ok := src.Object().(*osm.Relation)
		if !ok || !d.scan.Accepted(osmstore.RelationID(rel.ID)) {
			continue
		}
		if shards > 1 {
			firstWay, hasWay := firstWayMember(rel)
			if hasWay && shardOf(uint64(firstWay), shards) != shard {
				continue
			}
		}
		relCh <- rel
	}
	close(relCh)
	return workers.Wait()
}

func firstWayMember(rel *osm.Relation) (int64, bool) {
	for _, m := range rel.Members {
		if m.Type == osm.TypeWay {
			return m.Ref, true
		}
	}
	return 0, false
}

func (d *Driver) processRelation(rt *flex.Runtime, rel *osm.Relation) {
	var outerIDs, innerIDs []osmstore.WayID
	var outerSegs, innerSegs [][]osmstore.LatpLon

	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		wayID := osmstore.WayID(m.Ref)
		coords, err := d.ways.Geometry(wayID, d.nodes)
		if err != nil {
			logger.Get().Warn("relation member resolution failed",
				zap.Uint64("relation", uint64(rel.ID)), zap.Uint64("way", uint64(wayID)), zap.Error(err))
			continue
		}
		if m.Role == "inner" {
			innerIDs = append(innerIDs, wayID)
			if len(coords) >= 2 {
				innerSegs = append(innerSegs, coords)
			}
		} else {
			outerIDs = append(outerIDs, wayID)
			if len(coords) >= 2 {
				outerSegs = append(outerSegs, coords)
			}
		}
	}

	tags := tagMapFromOSM(rel.Tags)
	d.rels.Insert(osmstore.Relation{
		ID:    osmstore.RelationID(rel.ID),
		Outer: outerIDs,
		Inner: innerIDs,
		Tags:  tags.ExportToOwnedMap(),
	})
	d.Stats.Relations.Add(1)

	var cacheKey funccache.Key
	if d.funcCache != nil {
		cacheKey = funccache.Key{K1: uint64(rel.ID), K2: uint64(len(outerSegs)), Tag: funcTagRelationOuterValid}
		if v, ok := d.funcCache.Get(cacheKey); ok && v == 0 {
			return
		}
	}

	outer := assembleRings(outerSegs)
	inner := assembleRings(innerSegs)
	if len(outer) == 0 {
		if d.funcCache != nil {
			if err := d.funcCache.Put(cacheKey, 0); err != nil {
				logger.Get().Warn("function cache write failed", zap.Error(err))
			}
		}
		return
	}
	if d.funcCache != nil {
		if err := d.funcCache.Put(cacheKey, 1); err != nil {
			logger.Get().Warn("function cache write failed", zap.Error(err))
		}
	}
	if d.polyFilter != nil && d.polyFilter.HasFilter() && !d.polyFilter.MatchOSMTags(rel.Tags) {
		return
	}
	isMultiPolygon := isMultiPolygonType(rel.Tags)
	if _, err := rt.ProcessRelation(osmstore.RelationID(rel.ID), outer, inner, tags, isMultiPolygon, isMultiPolygon); err != nil {
		logger.Get().Warn("relation_function error", zap.Uint64("relation", uint64(rel.ID)), zap.Error(err))
	}
}

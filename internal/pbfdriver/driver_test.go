package pbfdriver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"

	"github.com/wegman-software/tilemaker-go/internal/config"
	"github.com/wegman-software/tilemaker-go/internal/funccache"
)

const testScript = `
node_keys = { "shop" }

function node_function()
	if Holds("shop") then
		Layer("poi", false)
		Attribute("shop", Find("shop"), 0)
	end
end

function way_function()
	if Holds("building") then
		Layer("buildings", true)
	end
end

function relation_scan_function()
	if Find("type") == "multipolygon" then
		Accept()
	end
end

function relation_function()
	Layer("land", true)
end
`

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "process.lua")
	if err := os.WriteFile(scriptPath, []byte(testScript), 0o644); err != nil {
		t.Fatalf("writing test script: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.ProcessScript = scriptPath
	cfg.Threads = 1
	cfg.BaseZoom = 10
	cfg.ShardStores = 1

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// fakeScanner implements BlockSource over a canned slice of decoded
// objects, so phase logic can be exercised without a real PBF file.
type fakeScanner struct {
	objs []osm.Object
	i    int
}

func (f *fakeScanner) Scan() bool {
	if f.i >= len(f.objs) {
		return false
	}
	f.i++
	return true
}
func (f *fakeScanner) Object() osm.Object { return f.objs[f.i-1] }
func (f *fakeScanner) Err() error         { return nil }
func (f *fakeScanner) Close() error       { return nil }

func TestNodesOverSourceStoresCoordinatesAndRunsSignificantNodes(t *testing.T) {
	d := newTestDriver(t)
	src := &fakeScanner{objs: []osm.Object{
		&osm.Node{ID: 1, Lat: 51.5, Lon: -0.1, Tags: osm.Tags{{Key: "shop", Value: "bakery"}}},
		&osm.Node{ID: 2, Lat: 51.6, Lon: -0.2},
	}}

	if err := d.nodesOverSource(context.Background(), src); err != nil {
		t.Fatalf("nodesOverSource: %v", err)
	}
	d.nodes.Finalize()

	if got := d.Stats.Nodes.Load(); got != 2 {
		t.Errorf("Stats.Nodes = %d, want 2", got)
	}
	if _, err := d.nodes.Get(1); err != nil {
		t.Errorf("node 1 not stored: %v", err)
	}
	if _, err := d.nodes.Get(2); err != nil {
		t.Errorf("node 2 not stored: %v", err)
	}

	tiles := d.Sink.CollectTilesWithObjectsAtZoom(10)
	if len(tiles) != 1 {
		t.Errorf("expected node 1's poi emission to land in exactly one tile, got %d", len(tiles))
	}
}

func TestNodesOverSourceHonorsStylePointFilter(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "process.lua")
	if err := os.WriteFile(scriptPath, []byte(testScript), 0o644); err != nil {
		t.Fatalf("writing test script: %v", err)
	}
	stylePath := filepath.Join(dir, "style.yaml")
	styleYAML := "points:\n  include:\n    shop:\n      - bakery\n"
	if err := os.WriteFile(stylePath, []byte(styleYAML), 0o644); err != nil {
		t.Fatalf("writing style file: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.ProcessScript = scriptPath
	cfg.StyleFile = stylePath
	cfg.Threads = 1
	cfg.BaseZoom = 10

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	src := &fakeScanner{objs: []osm.Object{
		&osm.Node{ID: 1, Lat: 51.5, Lon: -0.1, Tags: osm.Tags{{Key: "shop", Value: "bakery"}}},
		&osm.Node{ID: 2, Lat: 51.6, Lon: -0.2, Tags: osm.Tags{{Key: "shop", Value: "butcher"}}},
	}}
	if err := d.nodesOverSource(context.Background(), src); err != nil {
		t.Fatalf("nodesOverSource: %v", err)
	}
	d.nodes.Finalize()

	tiles := d.Sink.CollectTilesWithObjectsAtZoom(10)
	if len(tiles) != 1 {
		t.Errorf("expected only the bakery node to emit, got %d tiles with objects", len(tiles))
	}
}

func TestWaysOverSourceResolvesNodesAndEmitsBuilding(t *testing.T) {
	d := newTestDriver(t)
	nodeSrc := &fakeScanner{objs: []osm.Object{
		&osm.Node{ID: 1, Lat: 0, Lon: 0},
		&osm.Node{ID: 2, Lat: 0, Lon: 0.001},
		&osm.Node{ID: 3, Lat: 0.001, Lon: 0.001},
		&osm.Node{ID: 4, Lat: 0.001, Lon: 0},
	}}
	if err := d.nodesOverSource(context.Background(), nodeSrc); err != nil {
		t.Fatalf("nodesOverSource: %v", err)
	}
	d.nodes.Finalize()

	waySrc := &fakeScanner{objs: []osm.Object{
		&osm.Way{
			ID: 10,
			Nodes: osm.WayNodes{
				{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 1},
			},
			Tags: osm.Tags{{Key: "building", Value: "yes"}},
		},
	}}
	if err := d.waysOverSource(context.Background(), waySrc, 0, 1); err != nil {
		t.Fatalf("waysOverSource: %v", err)
	}
	d.ways.Finalize()

	if got := d.Stats.Ways.Load(); got != 1 {
		t.Errorf("Stats.Ways = %d, want 1", got)
	}
	w, err := d.ways.Get(10)
	if err != nil || w == nil {
		t.Fatalf("way 10 not stored: %v", err)
	}

	tiles := d.Sink.CollectTilesWithObjectsAtZoom(10)
	if len(tiles) == 0 {
		t.Error("expected the closed building way to emit into at least one tile")
	}
}

func TestRelationScanThenRelationsPhaseAssemblesMultipolygon(t *testing.T) {
	d := newTestDriver(t)

	nodeSrc := &fakeScanner{objs: []osm.Object{
		&osm.Node{ID: 1, Lat: 0, Lon: 0},
		&osm.Node{ID: 2, Lat: 0, Lon: 0.001},
		&osm.Node{ID: 3, Lat: 0.001, Lon: 0.001},
		&osm.Node{ID: 4, Lat: 0.001, Lon: 0},
	}}
	if err := d.nodesOverSource(context.Background(), nodeSrc); err != nil {
		t.Fatalf("nodesOverSource: %v", err)
	}
	d.nodes.Finalize()

	rel := &osm.Relation{
		ID: 100,
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 20, Role: "outer"},
			{Type: osm.TypeWay, Ref: 21, Role: "outer"},
		},
		Tags: osm.Tags{{Key: "type", Value: "multipolygon"}},
	}

	// Scan phase runs before the ways phase, matching Driver.Run's ordering:
	// it's what lets processWay's used.Used(wayID) check see a way marked
	// by a relation it belongs to.
	scanSrc := &fakeScanner{objs: []osm.Object{rel}}
	if err := d.relationScanOverSource(context.Background(), scanSrc); err != nil {
		t.Fatalf("relationScanOverSource: %v", err)
	}
	d.scan.Finalize()

	if !d.scan.Accepted(100) {
		t.Fatal("relation 100 was not accepted during the scan phase")
	}
	if !d.scan.WayInAnyRelation(20) || !d.scan.WayInAnyRelation(21) {
		t.Error("member ways were not recorded as used by a relation")
	}

	waySrc := &fakeScanner{objs: []osm.Object{
		&osm.Way{ID: 20, Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}}},
		&osm.Way{ID: 21, Nodes: osm.WayNodes{{ID: 3}, {ID: 4}, {ID: 1}}},
	}}
	if err := d.waysOverSource(context.Background(), waySrc, 0, 1); err != nil {
		t.Fatalf("waysOverSource: %v", err)
	}
	d.ways.Finalize()

	relSrc := &fakeScanner{objs: []osm.Object{rel}}
	if err := d.relationsOverSource(context.Background(), relSrc, 0, 1); err != nil {
		t.Fatalf("relationsOverSource: %v", err)
	}
	d.rels.Finalize()

	if got := d.Stats.Relations.Load(); got != 1 {
		t.Errorf("Stats.Relations = %d, want 1", got)
	}
	stored, err := d.rels.Get(100)
	if err != nil || stored == nil {
		t.Fatalf("relation 100 not stored: %v", err)
	}
	if len(stored.Outer) != 2 {
		t.Errorf("stored relation has %d outer ways, want 2", len(stored.Outer))
	}

	tiles := d.Sink.CollectTilesWithObjectsAtZoom(10)
	if len(tiles) == 0 {
		t.Error("expected the assembled multipolygon to emit into at least one tile")
	}
}

func TestRelationsOverSourceSkipsUnacceptedRelations(t *testing.T) {
	d := newTestDriver(t)

	rel := &osm.Relation{
		ID:   200,
		Tags: osm.Tags{{Key: "type", Value: "restriction"}},
	}
	// Never scanned/accepted.
	relSrc := &fakeScanner{objs: []osm.Object{rel}}
	if err := d.relationsOverSource(context.Background(), relSrc, 0, 1); err != nil {
		t.Fatalf("relationsOverSource: %v", err)
	}
	d.rels.Finalize()

	if got := d.Stats.Relations.Load(); got != 0 {
		t.Errorf("Stats.Relations = %d, want 0 for an unaccepted relation", got)
	}
}

func TestProcessRelationMemoizesOuterRingValidityInFuncCache(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "process.lua")
	if err := os.WriteFile(scriptPath, []byte(testScript), 0o644); err != nil {
		t.Fatalf("writing test script: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.ProcessScript = scriptPath
	cfg.Threads = 1
	cfg.BaseZoom = 10
	cfg.ShardStores = 1
	cfg.FuncCachePath = filepath.Join(dir, "funccache.db")

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if d.funcCache == nil {
		t.Fatal("expected funcCache to be initialized when FuncCachePath is set")
	}

	rt, err := d.newRuntime()
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	defer rt.Close()

	// No member ways resolve (none were ingested), so outer assembles empty
	// and processRelation should record the relation as invalid.
	rel := &osm.Relation{
		ID: 300,
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 999, Role: "outer"},
		},
		Tags: osm.Tags{{Key: "type", Value: "multipolygon"}},
	}

	d.processRelation(rt, rel)

	key := funccache.Key{K1: 300, K2: 0, Tag: funcTagRelationOuterValid}
	v, ok := d.funcCache.Get(key)
	if !ok {
		t.Fatal("expected the outer-ring validity result to be cached")
	}
	if v != 0 {
		t.Errorf("cached value = %d, want 0 (invalid)", v)
	}
}

func TestShardOfDistributesAcrossShards(t *testing.T) {
	if shardOf(10, 4) != 10%4 {
		t.Errorf("shardOf(10,4) = %d, want %d", shardOf(10, 4), 10%4)
	}
}

package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// BBox represents a geographic bounding box filter applied during the
// Nodes phase: nodes outside it are still indexed (ways may span the
// boundary) but are not passed to node_function. Ways and relations are
// not filtered by it.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// Config holds the global configuration for one render or update run
// (ground: teacher's internal/config.Config, generalized from osm2pgsql-go's
// DB-centric flag set to spec.md §6's CLI surface).
type Config struct {
	// Input/output
	InputFile  string
	MergeFiles []string // --merge: additional PBFs read as if concatenated with InputFile
	OutputPath string    // positional output; suffix selects the tile sink (.mbtiles/.pmtiles/dir/.ndjson)
	BBox       *BBox

	// Script surface
	ProcessScript string // --process: the Lua script loaded per worker
	StyleFile     string // --config: YAML tag filter consulted ahead of node_keys/way processing

	// Concurrency
	Threads int // --threads: worker pool size for every phase; defaults to runtime.NumCPU(), must be at least 1

	// Store mode
	Store          string // --store: "" or "memory"; Validate rejects any other value
	CompactNodes   bool   // --compact: node store uses the "locations on ways" shortcut when available
	CompressNodes  bool   // --compress-nodes (default true; there is no --no-compress-nodes form); the node store does not read it
	CompressWays   bool   // --compress-ways (default true; there is no --no-compress-ways form); the way store does not read it
	LazyGeometries bool   // --lazy-geometries: recorded here; nothing reads it, geometry construction is unaffected
	Materialize    bool   // --materialize-geometries: recorded here; nothing reads it, geometry construction is unaffected
	ShardStores    int    // --shard-stores: 1 disables sharding; N repeats Ways/Relations phases N times; must be at least 1
	Fast           bool   // --fast: objects go into the anonymous buckets/R-tree instead of the id-indexed ones (tiledata.New's includeID=false)

	// Integrity / diagnostics
	EnforceIntegrity bool // !--skip-integrity
	Verbose          bool
	LogTileTimings   bool

	// Rendering
	BaseZoom uint8
	MinZoom  uint8

	// Logging and metrics (ambient, unchanged from teacher)
	LogFile         string
	MetricsInterval int // seconds

	// CacheDir holds replication state/cache files for the update command;
	// defaults to ".tilemaker-cache", relative to the working directory.
	CacheDir string

	// FuncCachePath, if set, points the function-cache sidecar at a file
	// on disk so relation validity predicates are memoized across runs.
	// Leaving it empty disables the sidecar entirely.
	FuncCachePath string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Threads:          runtime.NumCPU(),
		CompressNodes:    true,
		CompressWays:     true,
		EnforceIntegrity: true,
		ShardStores:      1,
		BaseZoom:         14,
		MinZoom:          0,
		MetricsInterval:  30,
		CacheDir:         ".tilemaker-cache",
	}
}

// Validate checks that the configuration is usable before a run starts.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.ProcessScript == "" {
		return fmt.Errorf("a process script (--process) is required")
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if c.ShardStores < 1 {
		return fmt.Errorf("shard-stores must be at least 1")
	}
	if c.BaseZoom > 24 {
		return fmt.Errorf("base zoom %d is out of range", c.BaseZoom)
	}
	if c.MinZoom > c.BaseZoom {
		return fmt.Errorf("min zoom %d must be <= base zoom %d", c.MinZoom, c.BaseZoom)
	}
	if c.Store != "" && c.Store != "memory" {
		return fmt.Errorf("store mode %q is not wired into this build; use \"memory\" (the default)", c.Store)
	}
	return nil
}

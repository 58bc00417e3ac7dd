package tilesink

import (
	"fmt"
	"strings"
)

// Open picks a concrete Sink for path by its suffix: .mbtiles, .pmtiles,
// .ndjson, or a bare directory (the default, created if missing).
func Open(path string) (Sink, error) {
	switch {
	case strings.HasSuffix(path, ".mbtiles"):
		return NewMBTilesSink(path)
	case strings.HasSuffix(path, ".pmtiles"):
		return NewPMTilesSink(path)
	case strings.HasSuffix(path, ".ndjson"):
		return NewNDJSONSink(path)
	case path == "":
		return nil, fmt.Errorf("tilesink: empty output path")
	default:
		return NewDirSink(path)
	}
}

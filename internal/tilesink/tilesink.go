// Package tilesink writes encoded tile bytes to a concrete destination: a
// directory of .pbf files, an NDJSON debug dump, or (stubbed) an MBTiles or
// PMTiles archive. Sink selection happens once, by output path suffix,
// mirroring how the teacher's loader/parquet packages pick a concrete
// writer behind a narrow interface.
package tilesink

import (
	"context"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// Sink receives one tile's already-encoded bytes per call. Concrete sinks
// decide how those bytes land on disk: one file per tile, one row in an
// archive, or one line of an NDJSON stream.
type Sink interface {
	WriteTile(ctx context.Context, zoom uint8, tile tiledata.TileCoord, data []byte) error
	Close() error
}

// Stats tracks what a Sink has written, reported back to the caller the
// same way the teacher's loader.Stats reports rows loaded.
type Stats struct {
	TilesWritten int64
	BytesWritten int64
}

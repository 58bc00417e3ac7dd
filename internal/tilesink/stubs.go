package tilesink

import (
	"context"
	"fmt"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// ErrContainerFormatUnavailable is returned by MBTilesSink and PMTilesSink:
// neither an SQLite driver nor a PMTiles archive writer appears anywhere in
// the retrieval pack this module was grounded on, and the container format
// itself is an explicitly out-of-scope external collaborator. These types
// exist so --output's suffix dispatch has somewhere to fail loudly instead
// of silently falling back to a directory sink.
var ErrContainerFormatUnavailable = fmt.Errorf("tilesink: no MBTiles/PMTiles archive writer is wired into this build")

// MBTilesSink documents the missing SQLite-backed .mbtiles writer.
type MBTilesSink struct{}

func NewMBTilesSink(path string) (*MBTilesSink, error) {
	return nil, ErrContainerFormatUnavailable
}

func (*MBTilesSink) WriteTile(ctx context.Context, zoom uint8, tile tiledata.TileCoord, data []byte) error {
	return ErrContainerFormatUnavailable
}
func (*MBTilesSink) Close() error { return nil }

// PMTilesSink documents the missing PMTiles archive writer.
type PMTilesSink struct{}

func NewPMTilesSink(path string) (*PMTilesSink, error) {
	return nil, ErrContainerFormatUnavailable
}

func (*PMTilesSink) WriteTile(ctx context.Context, zoom uint8, tile tiledata.TileCoord, data []byte) error {
	return ErrContainerFormatUnavailable
}
func (*PMTilesSink) Close() error { return nil }

var (
	_ Sink = (*MBTilesSink)(nil)
	_ Sink = (*PMTilesSink)(nil)
	_ Sink = (*DirSink)(nil)
	_ Sink = (*NDJSONSink)(nil)
)

package tilesink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// DirSink writes each tile to <root>/<z>/<x>/<y>.pbf, the flat-file layout
// most static tile servers (and tippecanoe/tilemaker's --output directory
// mode) expect.
type DirSink struct {
	root string

	tilesWritten atomic.Int64
	bytesWritten atomic.Int64
}

func NewDirSink(root string) (*DirSink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("tilesink: creating output directory: %w", err)
	}
	return &DirSink{root: root}, nil
}

func (s *DirSink) WriteTile(ctx context.Context, zoom uint8, tile tiledata.TileCoord, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	dir := filepath.Join(s.root, fmt.Sprintf("%d", zoom), fmt.Sprintf("%d", tile.X))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tilesink: creating tile directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.pbf", tile.Y))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tilesink: writing %s: %w", path, err)
	}
	s.tilesWritten.Add(1)
	s.bytesWritten.Add(int64(len(data)))
	return nil
}

func (s *DirSink) Close() error { return nil }

func (s *DirSink) Stats() Stats {
	return Stats{TilesWritten: s.tilesWritten.Load(), BytesWritten: s.bytesWritten.Load()}
}

package tilesink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// ndjsonRecord is one line of an NDJSONSink dump: enough to replay or
// inspect a tile's encoded bytes without a full MBTiles/PMTiles reader.
type ndjsonRecord struct {
	Zoom uint8  `json:"zoom"`
	X    uint32 `json:"x"`
	Y    uint32 `json:"y"`
	Size int    `json:"size"`
	Data string `json:"data"` // base64 of the encoded tile bytes
}

// NDJSONSink dumps one JSON object per line, one per tile, to a file.
// There is no ecosystem NDJSON writer in the retrieval pack, so this uses
// the standard library's encoding/json directly, as a debug/inspection
// sink rather than a production archive format.
type NDJSONSink struct {
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	tot  int64
	size int64
}

func NewNDJSONSink(path string) (*NDJSONSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("tilesink: creating NDJSON dump %s: %w", path, err)
	}
	return &NDJSONSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *NDJSONSink) WriteTile(ctx context.Context, zoom uint8, tile tiledata.TileCoord, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ndjsonRecord{
		Zoom: zoom,
		X:    tile.X,
		Y:    tile.Y,
		Size: len(data),
		Data: base64.StdEncoding.EncodeToString(data),
	}
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("tilesink: encoding NDJSON record: %w", err)
	}
	s.tot++
	s.size += int64(len(data))
	return nil
}

func (s *NDJSONSink) Close() error { return s.f.Close() }

func (s *NDJSONSink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{TilesWritten: s.tot, BytesWritten: s.size}
}

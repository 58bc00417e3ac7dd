package tilesink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

func TestNDJSONSinkWritesOneLinePerTile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.ndjson")
	s, err := NewNDJSONSink(path)
	if err != nil {
		t.Fatalf("NewNDJSONSink: %v", err)
	}

	if err := s.WriteTile(context.Background(), 10, tiledata.TileCoord{X: 1, Y: 2}, []byte("abc")); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if err := s.WriteTile(context.Background(), 10, tiledata.TileCoord{X: 3, Y: 4}, []byte("defg")); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening dump: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		var rec ndjsonRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshaling line: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("got %d NDJSON lines, want 2", lines)
	}
}

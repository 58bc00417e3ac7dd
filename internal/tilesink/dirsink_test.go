package tilesink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

func TestDirSinkWritesExpectedPath(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}
	defer s.Close()

	if err := s.WriteTile(context.Background(), 14, tiledata.TileCoord{X: 3, Y: 5}, []byte("tiledata")); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	want := filepath.Join(dir, "14", "3", "5.pbf")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected tile at %s: %v", want, err)
	}
	if string(data) != "tiledata" {
		t.Errorf("tile contents = %q, want %q", data, "tiledata")
	}

	if got := s.Stats().TilesWritten; got != 1 {
		t.Errorf("TilesWritten = %d, want 1", got)
	}
}

func TestDirSinkSkipsEmptyTiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirSink(dir)
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}
	defer s.Close()

	if err := s.WriteTile(context.Background(), 14, tiledata.TileCoord{X: 0, Y: 0}, nil); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if got := s.Stats().TilesWritten; got != 0 {
		t.Errorf("TilesWritten = %d, want 0 for an empty tile", got)
	}
}

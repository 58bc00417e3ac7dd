package osmstore

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// mmapEntrySize is the on-disk size of one node record: Latp (int32) + Lon
// (int32).
const mmapEntrySize = 8

// MmapNodeStore is a disk-backed NodeStore for conversion runs too large to
// hold every node coordinate in heap memory. It addresses node ids directly
// by offset (ground: teacher's internal/nodeindex/mmap.go direct-syscall
// pattern, lifted onto the cross-platform edsrzf/mmap-go wrapper so the rest
// of osmstore doesn't need build-tagged syscall code). Unlike NodeStore, it
// requires an upper bound on node ids up front, since the backing file is
// sized once at construction and never grows.
type MmapNodeStore struct {
	file *os.File
	mm   mmap.MMap
	max  NodeID
}

// NewMmapNodeStore creates (or truncates) a sparse backing file at path
// sized to hold every id up to maxID.
func NewMmapNodeStore(path string, maxID NodeID) (*MmapNodeStore, error) {
	size := int64(maxID+1) * mmapEntrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("osmstore: creating mmap node store: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("osmstore: sizing mmap node store: %w", err)
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("osmstore: mapping node store: %w", err)
	}

	return &MmapNodeStore{file: f, mm: mm, max: maxID}, nil
}

// OpenMmapNodeStore opens an existing backing file for read-only access,
// used when resuming against a node index built in a prior phase.
func OpenMmapNodeStore(path string) (*MmapNodeStore, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("osmstore: opening mmap node store: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("osmstore: statting mmap node store: %w", err)
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("osmstore: mapping node store: %w", err)
	}
	return &MmapNodeStore{file: f, mm: mm, max: NodeID(info.Size()/mmapEntrySize) - 1}, nil
}

// Insert writes id's coordinate directly to its offset. Safe for
// concurrent use by distinct ids; concurrent writers to the *same* id race
// exactly as the original vector does, since neither needs to.
func (s *MmapNodeStore) Insert(id NodeID, loc LatpLon) error {
	if id > s.max {
		return fmt.Errorf("osmstore: node id %d exceeds mmap store capacity %d", id, s.max)
	}
	off := int64(id) * mmapEntrySize
	putInt32(s.mm[off:], loc.Latp)
	putInt32(s.mm[off+4:], loc.Lon)
	return nil
}

// Get reads id's coordinate. The zero coordinate is indistinguishable from
// "never written", matching teacher's nodeindex/mmap.go documented tradeoff.
func (s *MmapNodeStore) Get(id NodeID) (LatpLon, bool) {
	if id > s.max {
		return LatpLon{}, false
	}
	off := int64(id) * mmapEntrySize
	latp := getInt32(s.mm[off:])
	lon := getInt32(s.mm[off+4:])
	if latp == 0 && lon == 0 {
		return LatpLon{}, false
	}
	return LatpLon{Latp: latp, Lon: lon}, true
}

// Sync flushes pending writes to the backing file.
func (s *MmapNodeStore) Sync() error {
	return s.mm.Flush()
}

// Close unmaps the file and closes the descriptor.
func (s *MmapNodeStore) Close() error {
	if err := s.mm.Unmap(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func getInt32(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

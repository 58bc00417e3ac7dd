// Package clipcache caches a polygon's clip result at one tile so that an
// ancestor tile's clip can seed a descendant's clip instead of re-clipping
// against the full, unclipped geometry every time.
package clipcache

import (
	"container/list"
	"sync"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

// Key identifies one cached clip result.
type Key struct {
	Zoom     uint8
	X, Y     uint32
	ObjectID osmstore.ObjectID
}

type entry struct {
	key  Key
	geom orb.Geometry
}

// shard is a bounded LRU (container/list + map, ground: spec.md §4.9 —
// teacher has no off-the-shelf LRU dependency anywhere in the corpus, so
// this is hand-rolled rather than imported).
type shard struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
}

func newShard(capacity int) *shard {
	return &shard{capacity: capacity, ll: list.New(), items: make(map[Key]*list.Element)}
}

func (s *shard) get(k Key) (orb.Geometry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[k]
	if !ok {
		return nil, false
	}
	s.ll.MoveToFront(el)
	return el.Value.(*entry).geom, true
}

func (s *shard) add(k Key, geom orb.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[k]; ok {
		el.Value.(*entry).geom = geom
		s.ll.MoveToFront(el)
		return
	}
	el := s.ll.PushFront(&entry{key: k, geom: geom})
	s.items[k] = el
	if s.ll.Len() > s.capacity {
		oldest := s.ll.Back()
		if oldest != nil {
			s.ll.Remove(oldest)
			delete(s.items, oldest.Value.(*entry).key)
		}
	}
}

// Cache is a sharded, bounded clip-result cache. Shard count is fixed at
// construction (≈4×worker threads per spec.md §5's striped-lock
// convention) and a key's shard is chosen by objectID, so one object's
// entries across zoom levels always land in the same shard and lock.
type Cache struct {
	baseZoom uint8
	shards   []*shard
}

// New creates a cache with shardCount shards, each capped at
// capacityPerShard entries, for tiles below baseZoom.
func New(baseZoom uint8, shardCount, capacityPerShard int) *Cache {
	c := &Cache{baseZoom: baseZoom, shards: make([]*shard, shardCount)}
	for i := range c.shards {
		c.shards[i] = newShard(capacityPerShard)
	}
	return c
}

func (c *Cache) shardFor(id osmstore.ObjectID) *shard {
	return c.shards[uint64(id)%uint64(len(c.shards))]
}

// Get walks ancestor tiles z-1..0 at object id's cached column/row, looking
// for the nearest cached ancestor's clip result. It returns the first hit
// found (a miss at every level returns ok=false).
func (c *Cache) Get(zoom uint8, x, y uint32, id osmstore.ObjectID) (orb.Geometry, uint8, bool) {
	sh := c.shardFor(id)
	for z := int(zoom) - 1; z >= 0; z-- {
		ax, ay := ancestorCoord(x, y, zoom, uint8(z))
		if geom, ok := sh.get(Key{Zoom: uint8(z), X: ax, Y: ay, ObjectID: id}); ok {
			return geom, uint8(z), true
		}
	}
	return nil, 0, false
}

// Add inserts a clip result, refusing entries at or above base zoom since
// there is no deeper descendant to ever reuse them (spec.md §4.9).
func (c *Cache) Add(zoom uint8, x, y uint32, id osmstore.ObjectID, geom orb.Geometry) {
	if zoom >= c.baseZoom {
		return
	}
	c.shardFor(id).add(Key{Zoom: zoom, X: x, Y: y, ObjectID: id}, geom)
}

func ancestorCoord(x, y uint32, fromZoom, toZoom uint8) (uint32, uint32) {
	shift := fromZoom - toZoom
	return x >> shift, y >> shift
}

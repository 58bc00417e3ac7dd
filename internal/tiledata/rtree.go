package tiledata

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/flex"
)

// rtreeNodeCapacity bounds how many children/leaf-entries one node holds.
// Chosen to match the stores elsewhere in this codebase's batch sizes; not
// performance-tuned beyond "reasonable for tens of thousands of entries".
const rtreeNodeCapacity = 16

type rtreeEntry struct {
	bound orb.Bound
	out   flex.OutputObject
}

type rtreeNode struct {
	bound    orb.Bound
	leaf     bool
	entries  []rtreeEntry
	children []*rtreeNode
}

// RTree is a bulk-loadable, read-only-after-Build R-tree over bounding
// boxes, built with the sort-tile-recursive (STR) algorithm. There is no
// R-tree package anywhere in the retrieval pack, so this is hand-rolled
// (ground: spec.md §4.8's "compact, from-scratch bulk-loadable R-tree";
// the insert-then-Build lifecycle mirrors the insert-then-Finalize pattern
// used throughout internal/osmstore and internal/attrstore).
type RTree struct {
	pending []rtreeEntry
	root    *rtreeNode
	built   bool
}

// NewRTree returns an empty tree ready for Insert calls.
func NewRTree() *RTree {
	return &RTree{}
}

// Insert adds an entry. Panics if Build has already run.
func (t *RTree) Insert(bound orb.Bound, out flex.OutputObject) {
	if t.built {
		panic("tiledata: RTree.Insert after Build")
	}
	t.pending = append(t.pending, rtreeEntry{bound: bound, out: out})
}

// Len reports how many entries have been inserted.
func (t *RTree) Len() int { return len(t.pending) }

// Build bulk-loads the tree via STR and frees the staging slice. Calling it
// on an empty tree leaves root nil; Search then simply finds nothing.
func (t *RTree) Build() {
	if t.built {
		return
	}
	t.built = true
	if len(t.pending) == 0 {
		return
	}
	leaves := strLeaves(t.pending, rtreeNodeCapacity)
	nodes := make([]*rtreeNode, len(leaves))
	for i, entries := range leaves {
		nodes[i] = &rtreeNode{leaf: true, entries: entries, bound: boundOfEntries(entries)}
	}
	for len(nodes) > 1 {
		nodes = buildLevel(nodes, rtreeNodeCapacity)
	}
	t.root = nodes[0]
	t.pending = nil
}

// strLeaves partitions entries into up-to-capacity-sized leaf groups using
// the sort-tile-recursive scheme: sort by X-center into vertical slices,
// then sort each slice by Y-center before chunking.
func strLeaves(entries []rtreeEntry, capacity int) [][]rtreeEntry {
	n := len(entries)
	leafCount := (n + capacity - 1) / capacity
	sliceCount := ceilSqrt(leafCount)
	sliceSize := sliceCount * capacity

	sorted := append([]rtreeEntry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return centerX(sorted[i].bound) < centerX(sorted[j].bound)
	})

	var leaves [][]rtreeEntry
	for i := 0; i < n; i += sliceSize {
		end := i + sliceSize
		if end > n {
			end = n
		}
		slice := sorted[i:end]
		sort.Slice(slice, func(a, b int) bool {
			return centerY(slice[a].bound) < centerY(slice[b].bound)
		})
		for j := 0; j < len(slice); j += capacity {
			k := j + capacity
			if k > len(slice) {
				k = len(slice)
			}
			leaves = append(leaves, slice[j:k])
		}
	}
	return leaves
}

func buildLevel(nodes []*rtreeNode, capacity int) []*rtreeNode {
	n := len(nodes)
	groupCount := (n + capacity - 1) / capacity
	sliceCount := ceilSqrt(groupCount)
	sliceSize := sliceCount * capacity

	sorted := append([]*rtreeNode{}, nodes...)
	sort.Slice(sorted, func(i, j int) bool {
		return centerX(sorted[i].bound) < centerX(sorted[j].bound)
	})

	var parents []*rtreeNode
	for i := 0; i < n; i += sliceSize {
		end := i + sliceSize
		if end > n {
			end = n
		}
		slice := sorted[i:end]
		sort.Slice(slice, func(a, b int) bool {
			return centerY(slice[a].bound) < centerY(slice[b].bound)
		})
		for j := 0; j < len(slice); j += capacity {
			k := j + capacity
			if k > len(slice) {
				k = len(slice)
			}
			group := slice[j:k]
			parents = append(parents, &rtreeNode{children: group, bound: boundOfNodes(group)})
		}
	}
	return parents
}

func ceilSqrt(n int) int {
	if n <= 1 {
		return 1
	}
	r := 1
	for r*r < n {
		r++
	}
	return r
}

func centerX(b orb.Bound) float64 { return (b.Min.X() + b.Max.X()) / 2 }
func centerY(b orb.Bound) float64 { return (b.Min.Y() + b.Max.Y()) / 2 }

func boundOfEntries(entries []rtreeEntry) orb.Bound {
	b := entries[0].bound
	for _, e := range entries[1:] {
		b = b.Union(e.bound)
	}
	return b
}

func boundOfNodes(nodes []*rtreeNode) orb.Bound {
	b := nodes[0].bound
	for _, nd := range nodes[1:] {
		b = b.Union(nd.bound)
	}
	return b
}

// Search returns every output whose inserted bound intersects query.
// Build must have been called first; searching an unbuilt or empty tree
// returns nil.
func (t *RTree) Search(query orb.Bound) []flex.OutputObject {
	if t.root == nil {
		return nil
	}
	var out []flex.OutputObject
	searchNode(t.root, query, &out)
	return out
}

func searchNode(n *rtreeNode, query orb.Bound, out *[]flex.OutputObject) {
	if !n.bound.Intersects(query) {
		return
	}
	if n.leaf {
		for _, e := range n.entries {
			if e.bound.Intersects(query) {
				*out = append(*out, e.out)
			}
		}
		return
	}
	for _, c := range n.children {
		searchNode(c, query, out)
	}
}

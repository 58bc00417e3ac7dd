package osmstore

import "time"

// LatpLon is a node coordinate pre-projected on the latitude axis (see the
// GLOSSARY entry for "Latp"): Latp is the Web-Mercator-warped y value scaled
// by 1e7, Lon is the raw longitude scaled by 1e7. Storing both as integers
// keeps a Node at 16 bytes and lets WayStore's compact mode embed resolved
// coordinates inline without any floating point drift between runs.
type LatpLon struct {
	Latp int32
	Lon  int32
}

// Node is the read-only, post-insert representation of an OSM node.
type Node struct {
	ID  NodeID
	Loc LatpLon
}

// Way is the read-only representation of an OSM way: either a vector of
// NodeIDs (classic mode, looked up through the NodeStore) or a vector of
// pre-resolved LatpLons (compact mode, when the PBF used "locations on
// ways"). Exactly one of Refs/Locs is populated.
type Way struct {
	ID   WayID
	Refs []NodeID
	Locs []LatpLon
}

// IsCompact reports whether this way carries resolved locations instead of
// node references.
func (w *Way) IsCompact() bool { return w.Locs != nil }

// Closed reports whether the way's first and last points coincide.
func (w *Way) Closed() bool {
	if w.IsCompact() {
		n := len(w.Locs)
		return n >= 4 && w.Locs[0] == w.Locs[n-1]
	}
	n := len(w.Refs)
	return n >= 4 && w.Refs[0] == w.Refs[n-1]
}

// Relation is the read-only representation of an OSM relation: two ordered
// way-id sequences (outer/inner per the multipolygon convention) plus the
// relation's own tags, copied out of the PBF string table at insert time
// since relation tags must outlive the decoding block.
type Relation struct {
	ID    RelationID
	Outer []WayID
	Inner []WayID
	Tags  map[string]string
}

// RelationMember names one member of a raw (pre-scan) relation, in the
// order the PBF declared it. Used by the RelationScan phase before the
// outer/inner split has been computed.
type RelationMember struct {
	Type string // "n", "w", or "r"
	Ref  uint64
	Role string
}

// RawNode/RawWay/RawRelation are the OSC/replication-facing representations
// of an entity: scaled-integer coordinates and the full set of metadata
// fields an .osc change file or middle table might carry. They intentionally
// do not share a type with Node/Way/Relation above: those are read-only,
// finalized store entries, while these are mutable records flowing through
// the update pipeline.
type RawNode struct {
	ID        int64
	Lat       int32 // scaled: lat * 10^7
	Lon       int32 // scaled: lon * 10^7
	Tags      map[string]string
	Version   int32
	Changeset int64
	Timestamp time.Time
	User      string
	UID       int32
}

type RawWay struct {
	ID        int64
	Nodes     []int64
	Tags      map[string]string
	Version   int32
	Changeset int64
	Timestamp time.Time
	User      string
	UID       int32
}

type RawRelationMember struct {
	Type string // "n", "w", "r"
	Ref  int64
	Role string
}

type RawRelation struct {
	ID        int64
	Members   []RawRelationMember
	Tags      map[string]string
	Version   int32
	Changeset int64
	Timestamp time.Time
	User      string
	UID       int32
}

// ScaleCoord converts a float64 lat/lon to a scaled integer (x 10^7).
func ScaleCoord(coord float64) int32 { return int32(coord * 1e7) }

// UnscaleCoord converts a scaled integer back to float64.
func UnscaleCoord(scaled int32) float64 { return float64(scaled) / 1e7 }

// Package entity implements the shared OSM object model consumed by both
// the decode pipeline and the relation collector: nodes, ways, relations,
// locations, tags, and relation members.
package entity

import "math"

// Fixed-point and timestamp constants, per the OSM-PBF wire format. The
// coordinate divisor MUST be derived from the first two, never hard-coded.
const (
	// NanodegreeResolution is the on-wire coordinate unit (10^9 per degree).
	NanodegreeResolution = 1_000_000_000
	// CoordinatePrecision is the in-memory fixed-point scale (10^7 per
	// degree; ~1.11cm at the equator).
	CoordinatePrecision = 10_000_000
	// DefaultGranularity is the default PrimitiveBlock granularity in
	// nanodegrees.
	DefaultGranularity = 100
	// DefaultDateGranularity is the default PrimitiveBlock timestamp
	// granularity, in milliseconds per unit.
	DefaultDateGranularity = 1000
)

// coordDivisor converts a raw*granularity+offset nanodegree value into a
// CoordinatePrecision fixed-point value.
const coordDivisor = NanodegreeResolution / CoordinatePrecision

// ScaleCoord converts a raw nanodegree accumulator value (raw*granularity +
// offset) into a CoordinatePrecision (1e7) fixed-point coordinate.
func ScaleCoord(nanodegrees int64) int32 {
	return int32(nanodegrees / coordDivisor)
}

// UndefinedCoord is the sentinel for a location with no known value
// (invisible nodes carry this in both Lon and Lat).
const UndefinedCoord = math.MaxInt32

// Kind identifies the tagged-union variant of an Object and the kind of a
// RelationMember reference.
type Kind uint8

const (
	KindNode Kind = iota
	KindWay
	KindRelation
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindWay:
		return "way"
	case KindRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Location is a fixed-point geographic coordinate at CoordinatePrecision
// resolution. An undefined location (invisible node) carries
// UndefinedCoord in both fields.
type Location struct {
	LonI32 int32
	LatI32 int32
}

// Defined reports whether the location carries a real coordinate.
func (l Location) Defined() bool {
	return l.LonI32 != UndefinedCoord && l.LatI32 != UndefinedCoord
}

// Lon returns the coordinate as a float64 degree value.
func (l Location) Lon() float64 { return float64(l.LonI32) / CoordinatePrecision }

// Lat returns the coordinate as a float64 degree value.
func (l Location) Lat() float64 { return float64(l.LatI32) / CoordinatePrecision }

// UndefinedLocation is the sentinel value for an invisible node's location.
var UndefinedLocation = Location{LonI32: UndefinedCoord, LatI32: UndefinedCoord}

// Tag is a single key/value pair. Order and duplicate keys are preserved
// exactly as decoded; the collector never deduplicates.
type Tag struct {
	Key   string
	Value string
}

// RelationMember references another object by kind and id, with its role
// string inside the owning relation.
type RelationMember struct {
	Kind Kind
	Ref  int64
	Role string
}

// Meta holds the common OSM metadata fields shared by nodes, ways, and
// relations.
type Meta struct {
	Version   int32
	Changeset int64
	Timestamp int64 // milliseconds since epoch
	UID       int32 // -1 means anonymous
	User      string
	Visible   bool
}

// Object is the tagged-union interface implemented by Node, Way, and
// Relation.
type Object interface {
	ObjectID() int64
	ObjectKind() Kind
}

// Node is a point object, optionally tagged and located.
type Node struct {
	ID   int64
	Meta Meta
	Tags []Tag
	Loc  Location
}

func (n Node) ObjectID() int64  { return n.ID }
func (n Node) ObjectKind() Kind { return KindNode }

// Way is an ordered sequence of node references.
type Way struct {
	ID   int64
	Meta Meta
	Tags []Tag
	Refs []int64
}

func (w Way) ObjectID() int64  { return w.ID }
func (w Way) ObjectKind() Kind { return KindWay }

// Relation is an ordered sequence of typed, roled member references.
type Relation struct {
	ID      int64
	Meta    Meta
	Tags    []Tag
	Members []RelationMember
}

func (r Relation) ObjectID() int64  { return r.ID }
func (r Relation) ObjectKind() Kind { return KindRelation }

// Header carries the decoded HeaderBlock fields.
type Header struct {
	RequiredFeatures []string
	OptionalFeatures []string
	HasDenseNodes    bool
	HasHistorical    bool
	WritingProgram   string
	Source           string
	HasBBox          bool
	BBox             Box
	ReplicationTimestamp string // ISO-8601 UTC, empty if absent
	ReplicationSequence  int64
	ReplicationBaseURL   string
}

// Box is a decoded bounding box in CoordinatePrecision fixed-point units.
type Box struct {
	Left, Right, Top, Bottom int32
}

// OutputBuffer is one decoded PrimitiveBlock's worth of entities, tagged
// with the blob's sequence number so consumers can verify delivery order.
type OutputBuffer struct {
	SeqNo   uint64
	Objects []Object
}

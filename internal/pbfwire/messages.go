// Package pbfwire hand-decodes the fixed OSM-PBF protobuf message schema
// (BlobHeader, Blob, HeaderBlock, PrimitiveBlock and its groups) directly
// off the wire using protowire's low-level varint/tag primitives. This
// stands in for a generated reader: the schema never changes, so there is
// no benefit to running protoc over it, and hand-decoding keeps the
// dependency surface to the same protobuf module the rest of the Go
// ecosystem already uses for wire-level work.
package pbfwire

// BlobHeader is the variable-length frame header (preceded by its 4-byte
// big-endian size) that comes before every Blob.
type BlobHeader struct {
	Type      string
	IndexData []byte
	DataSize  int32
}

// Blob carries exactly one populated payload variant. The Has* flags
// distinguish "field present but empty" from "field absent" so an empty
// raw or zlib payload still dispatches correctly.
type Blob struct {
	Raw               []byte // field 1
	HasRaw            bool
	RawSize           int32 // field 2, valid when ZlibData or LzmaData is set
	ZlibData          []byte // field 3
	HasZlibData       bool
	LzmaData          []byte // field 4
	HasLzmaData       bool
	OBSOLETEBzip2Data []byte // field 5, rejected as unsupported
	HasOBSOLETEBzip2Data bool
}

// HeaderBBox is the optional bounding box carried by a HeaderBlock, in raw
// nanodegree units (×1e9).
type HeaderBBox struct {
	Left, Right, Top, Bottom int64
}

// HeaderBlock is decoded once, before any PrimitiveBlock.
type HeaderBlock struct {
	BBox                 *HeaderBBox
	RequiredFeatures     []string
	OptionalFeatures     []string
	WritingProgram       string
	Source               string
	OsmosisReplicationTimestamp int64
	OsmosisReplicationSequence  int64
	OsmosisReplicationBaseURL   string
}

// StringTable is the block-local interning table. Slot 0 is reserved.
type StringTable struct {
	S [][]byte
}

// Info is non-dense per-object metadata.
type Info struct {
	Version   int32
	Timestamp int64
	Changeset int64
	UID       int32
	UserSID   int32
	Visible   bool
	HasVisible bool
}

// DenseInfo is the column-oriented, delta-encoded metadata for DenseNodes.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64 // delta-encoded
	Changeset []int64 // delta-encoded
	UID       []int32 // delta-encoded
	UserSID   []int32 // delta-encoded
	Visible   []bool  // absolute, may be empty (defaults to true)
}

// DenseNodes is the column-oriented, delta-encoded node representation.
type DenseNodes struct {
	ID       []int64 // delta-encoded
	Denseinfo *DenseInfo
	Lat      []int64 // delta-encoded
	Lon      []int64 // delta-encoded
	KeysVals []int32 // flat, 0-terminated per-node key/value sid stream
}

// NodeMsg is a non-dense node.
type NodeMsg struct {
	ID   int64
	Keys []int32
	Vals []int32
	Info *Info
	Lat  int64
	Lon  int64
}

// WayMsg is a non-dense way. Refs is delta-encoded on the wire.
type WayMsg struct {
	ID   int64
	Keys []int32
	Vals []int32
	Info *Info
	Refs []int64
}

// RelationMemberType maps the PBF enum {0,1,2} to node/way/relation.
type RelationMemberType int32

const (
	MemberNode     RelationMemberType = 0
	MemberWay      RelationMemberType = 1
	MemberRelation RelationMemberType = 2
)

// RelationMsg is a non-dense relation. Memids is delta-encoded on the wire.
type RelationMsg struct {
	ID       int64
	Keys     []int32
	Vals     []int32
	Info     *Info
	RolesSID []int32
	Memids   []int64
	Types    []RelationMemberType
}

// PrimitiveGroup holds exactly one of its populated fields, per the
// group-dispatch rule.
type PrimitiveGroup struct {
	Nodes     []NodeMsg
	Dense     *DenseNodes
	Ways      []WayMsg
	Relations []RelationMsg
}

// PrimitiveBlock is one self-contained decode unit.
type PrimitiveBlock struct {
	Stringtable     StringTable
	Primitivegroup  []PrimitiveGroup
	Granularity     int32 // nanodegrees, default 100
	LatOffset       int64 // nanodegrees
	LonOffset       int64 // nanodegrees
	DateGranularity int32 // ms, default 1000
}

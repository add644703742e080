package pbf

import (
	"testing"

	"github.com/wegman-software/osmpbf-core/internal/entity"
)

// stringInterner assigns stable string table slots, with slot 0 reserved
// for the empty string per the wire format.
type stringInterner struct {
	order []string
	sid   map[string]int32
}

func newStringInterner() *stringInterner {
	return &stringInterner{order: []string{""}, sid: map[string]int32{"": 0}}
}

func (s *stringInterner) intern(str string) int32 {
	if sid, ok := s.sid[str]; ok {
		return sid
	}
	sid := int32(len(s.order))
	s.order = append(s.order, str)
	s.sid[str] = sid
	return sid
}

func (s *stringInterner) tableBytes() []byte {
	return stringTableBytes(s.order...)
}

func deltaEncode(vals []int64) []int64 {
	out := make([]int64, len(vals))
	var prev int64
	for i, v := range vals {
		out[i] = v - prev
		prev = v
	}
	return out
}

func zigzagAll(vals []int64) []uint64 {
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = zz(v)
	}
	return out
}

// encodeInfo appends a Node/Way/Relation.info field (always field 4).
func encodeInfo(b []byte, meta entity.Meta, userSid int32) []byte {
	var info []byte
	info = appendVarintField(info, 1, uint64(meta.Version))
	info = appendVarintField(info, 2, uint64(meta.Timestamp/entity.DefaultDateGranularity))
	info = appendVarintField(info, 3, uint64(meta.Changeset))
	info = appendVarintField(info, 4, uint64(int64(meta.UID)))
	info = appendVarintField(info, 5, uint64(userSid))
	var visible uint64
	if meta.Visible {
		visible = 1
	}
	info = appendVarintField(info, 6, visible)
	return appendBytesField(b, 4, info)
}

func encodeTags(b []byte, st *stringInterner, tags []entity.Tag) []byte {
	if len(tags) == 0 {
		return b
	}
	keys := make([]uint64, len(tags))
	vals := make([]uint64, len(tags))
	for i, t := range tags {
		keys[i] = uint64(st.intern(t.Key))
		vals[i] = uint64(st.intern(t.Value))
	}
	b = appendPackedVarints(b, 2, keys)
	b = appendPackedVarints(b, 3, vals)
	return b
}

// encodeNode serializes a Node into a non-dense Node message. Coordinates
// round-trip exactly at granularity=100, offset=0, since ScaleCoord divides
// by the same factor the block's default granularity multiplies by.
func encodeNode(st *stringInterner, n entity.Node) []byte {
	var b []byte
	b = appendVarintField(b, 1, zz(n.ID))
	b = encodeTags(b, st, n.Tags)
	b = encodeInfo(b, n.Meta, st.intern(n.Meta.User))
	b = appendVarintField(b, 8, zz(int64(n.Loc.LatI32)))
	b = appendVarintField(b, 9, zz(int64(n.Loc.LonI32)))
	return b
}

func encodeWay(st *stringInterner, w entity.Way) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(w.ID))
	b = encodeTags(b, st, w.Tags)
	b = encodeInfo(b, w.Meta, st.intern(w.Meta.User))
	if len(w.Refs) > 0 {
		b = appendPackedVarints(b, 8, zigzagAll(deltaEncode(w.Refs)))
	}
	return b
}

func encodeRelation(st *stringInterner, r entity.Relation) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(r.ID))
	b = encodeTags(b, st, r.Tags)
	b = encodeInfo(b, r.Meta, st.intern(r.Meta.User))
	if len(r.Members) > 0 {
		roles := make([]uint64, len(r.Members))
		ids := make([]int64, len(r.Members))
		types := make([]uint64, len(r.Members))
		for i, m := range r.Members {
			roles[i] = uint64(st.intern(m.Role))
			ids[i] = m.Ref
			types[i] = uint64(m.Kind)
		}
		b = appendPackedVarints(b, 8, roles)
		b = appendPackedVarints(b, 9, zigzagAll(deltaEncode(ids)))
		b = appendPackedVarints(b, 10, types)
	}
	return b
}

// encodeRoundTripBlock builds a minimal PrimitiveBlock at the default
// granularity, one PrimitiveGroup per populated kind, with no dense-node
// encoding and no inter-object delta chaining beyond what the wire format
// inherently requires (way refs, relation members). It exists only to
// exercise DecodePrimitiveBlock against known input.
func encodeRoundTripBlock(nodes []entity.Node, ways []entity.Way, rels []entity.Relation) []byte {
	st := newStringInterner()

	var nodeGroup, wayGroup, relGroup []byte
	for _, n := range nodes {
		nodeGroup = appendBytesField(nodeGroup, 1, encodeNode(st, n))
	}
	for _, w := range ways {
		wayGroup = appendBytesField(wayGroup, 3, encodeWay(st, w))
	}
	for _, r := range rels {
		relGroup = appendBytesField(relGroup, 4, encodeRelation(st, r))
	}

	// The string table must be built after encoding every group, since
	// encoding interns strings lazily; append it first regardless, since
	// field order within a protobuf message is not significant.
	var pbBytes []byte
	pbBytes = appendBytesField(pbBytes, 1, st.tableBytes())
	if len(nodeGroup) > 0 {
		pbBytes = appendBytesField(pbBytes, 2, nodeGroup)
	}
	if len(wayGroup) > 0 {
		pbBytes = appendBytesField(pbBytes, 2, wayGroup)
	}
	if len(relGroup) > 0 {
		pbBytes = appendBytesField(pbBytes, 2, relGroup)
	}
	pbBytes = appendVarintField(pbBytes, 17, entity.DefaultGranularity)
	return pbBytes
}

// TestRoundTrip encodes a small mixed set of nodes, ways, and relations
// with the test-only encoder above and checks that decoding reproduces the
// same objects, exercising the non-dense node/way/relation paths together.
func TestRoundTrip(t *testing.T) {
	nodes := []entity.Node{
		{
			ID:   1,
			Meta: entity.Meta{Version: 1, Changeset: 10, Timestamp: 5000, UID: 7, User: "alice", Visible: true},
			Tags: []entity.Tag{{Key: "amenity", Value: "cafe"}},
			Loc:  entity.Location{LonI32: 1_230_000, LatI32: -450_000},
		},
		{
			ID:   2,
			Meta: entity.Meta{Version: 1, Changeset: 10, Timestamp: 5000, UID: -1, Visible: true},
			Loc:  entity.Location{LonI32: 1_230_100, LatI32: -450_200},
		},
	}
	ways := []entity.Way{
		{
			ID:   100,
			Meta: entity.Meta{Version: 2, Changeset: 11, Timestamp: 6000, UID: 7, User: "alice", Visible: true},
			Tags: []entity.Tag{{Key: "highway", Value: "residential"}},
			Refs: []int64{1, 2, 1},
		},
	}
	rels := []entity.Relation{
		{
			ID:   1000,
			Meta: entity.Meta{Version: 1, Changeset: 12, Timestamp: 7000, UID: 8, User: "bob", Visible: true},
			Tags: []entity.Tag{{Key: "type", Value: "multipolygon"}},
			Members: []entity.RelationMember{
				{Kind: entity.KindWay, Ref: 100, Role: "outer"},
				{Kind: entity.KindNode, Ref: 1, Role: ""},
			},
		},
	}

	block := encodeRoundTripBlock(nodes, ways, rels)
	out, err := DecodePrimitiveBlock(block, 0, AllKinds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Objects) != len(nodes)+len(ways)+len(rels) {
		t.Fatalf("got %d objects, want %d", len(out.Objects), len(nodes)+len(ways)+len(rels))
	}

	gotNode0, ok := out.Objects[0].(entity.Node)
	if !ok {
		t.Fatalf("Objects[0] = %T, want entity.Node", out.Objects[0])
	}
	if gotNode0.ID != nodes[0].ID || gotNode0.Meta != nodes[0].Meta || gotNode0.Loc != nodes[0].Loc {
		t.Errorf("node 0 = %+v, want %+v", gotNode0, nodes[0])
	}
	if len(gotNode0.Tags) != 1 || gotNode0.Tags[0] != nodes[0].Tags[0] {
		t.Errorf("node 0 tags = %v, want %v", gotNode0.Tags, nodes[0].Tags)
	}
	gotNode1, ok := out.Objects[1].(entity.Node)
	if !ok {
		t.Fatalf("Objects[1] = %T, want entity.Node", out.Objects[1])
	}
	if gotNode1.Meta.UID != -1 || gotNode1.Meta.User != "" {
		t.Errorf("node 1 meta = %+v, want UID=-1 User=\"\"", gotNode1.Meta)
	}

	gotWay, ok := out.Objects[2].(entity.Way)
	if !ok {
		t.Fatalf("Objects[2] = %T, want entity.Way", out.Objects[2])
	}
	if gotWay.ID != ways[0].ID || len(gotWay.Refs) != len(ways[0].Refs) {
		t.Fatalf("way = %+v, want %+v", gotWay, ways[0])
	}
	for i, ref := range ways[0].Refs {
		if gotWay.Refs[i] != ref {
			t.Errorf("way.Refs[%d] = %d, want %d", i, gotWay.Refs[i], ref)
		}
	}
	if len(gotWay.Tags) != 1 || gotWay.Tags[0] != ways[0].Tags[0] {
		t.Errorf("way tags = %v, want %v", gotWay.Tags, ways[0].Tags)
	}

	gotRel, ok := out.Objects[3].(entity.Relation)
	if !ok {
		t.Fatalf("Objects[3] = %T, want entity.Relation", out.Objects[3])
	}
	if gotRel.ID != rels[0].ID || len(gotRel.Members) != len(rels[0].Members) {
		t.Fatalf("relation = %+v, want %+v", gotRel, rels[0])
	}
	for i, m := range rels[0].Members {
		if gotRel.Members[i] != m {
			t.Errorf("relation.Members[%d] = %+v, want %+v", i, gotRel.Members[i], m)
		}
	}
}

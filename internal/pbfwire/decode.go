package pbfwire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wegman-software/osmpbf-core/internal/errs"
)

func wireErr(context string, n int) error {
	return errs.NewCorrupt(fmt.Sprintf("%s: malformed protobuf (code %d)", context, n))
}

// consumeVarints reads a packed-varint field payload (already unwrapped
// from its length-delimited envelope) into a slice of raw uint64 values.
func consumeVarints(data []byte) ([]uint64, error) {
	var out []uint64
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, wireErr("packed varint", n)
		}
		out = append(out, v)
		data = data[n:]
	}
	return out, nil
}

func zigzagAll(raw []uint64) []int64 {
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = protowire.DecodeZigZag(v)
	}
	return out
}

func int64All(raw []uint64) []int64 {
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = int64(v)
	}
	return out
}

func int32All(raw []uint64) []int32 {
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out
}

func boolAll(raw []uint64) []bool {
	out := make([]bool, len(raw))
	for i, v := range raw {
		out[i] = v != 0
	}
	return out
}

// packedOrSingle reads either a length-delimited packed payload (the wire
// form every OSM-PBF writer emits) or a single bare varint (permitted by
// the protobuf spec for fields declared packed=true, but never actually
// emitted by real writers) and returns the bytes consumed and the decoded
// raw values.
func packedOrSingle(typ protowire.Type, b []byte) (consumed int, raw []uint64, err error) {
	switch typ {
	case protowire.BytesType:
		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, nil, wireErr("packed field", n)
		}
		vs, verr := consumeVarints(payload)
		if verr != nil {
			return 0, nil, verr
		}
		return n, vs, nil
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, nil, wireErr("scalar field", n)
		}
		return n, []uint64{v}, nil
	default:
		return 0, nil, errs.NewCorruptf("unexpected wire type %d for packed-capable field", typ)
	}
}

// UnmarshalBlobHeader decodes a BlobHeader message.
func UnmarshalBlobHeader(b []byte) (*BlobHeader, error) {
	h := &BlobHeader{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("BlobHeader tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // type
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("BlobHeader.type", n)
			}
			h.Type = string(v)
			b = b[n:]
		case 2: // indexdata
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("BlobHeader.indexdata", n)
			}
			h.IndexData = append([]byte(nil), v...)
			b = b[n:]
		case 3: // datasize
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("BlobHeader.datasize", n)
			}
			h.DataSize = int32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("BlobHeader unknown field", n)
			}
			b = b[n:]
		}
	}
	return h, nil
}

// UnmarshalBlob decodes a Blob message.
func UnmarshalBlob(b []byte) (*Blob, error) {
	blob := &Blob{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("Blob tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // raw
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("Blob.raw", n)
			}
			blob.Raw = append([]byte(nil), v...)
			blob.HasRaw = true
			b = b[n:]
		case 2: // raw_size
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Blob.raw_size", n)
			}
			blob.RawSize = int32(v)
			b = b[n:]
		case 3: // zlib_data
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("Blob.zlib_data", n)
			}
			blob.ZlibData = append([]byte(nil), v...)
			blob.HasZlibData = true
			b = b[n:]
		case 4: // lzma_data
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("Blob.lzma_data", n)
			}
			blob.LzmaData = append([]byte(nil), v...)
			blob.HasLzmaData = true
			b = b[n:]
		case 5: // OBSOLETE_bzip2_data
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("Blob.OBSOLETE_bzip2_data", n)
			}
			blob.OBSOLETEBzip2Data = append([]byte(nil), v...)
			blob.HasOBSOLETEBzip2Data = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("Blob unknown field", n)
			}
			b = b[n:]
		}
	}
	return blob, nil
}

func unmarshalHeaderBBox(b []byte) (*HeaderBBox, error) {
	bb := &HeaderBBox{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("HeaderBBox tag", n)
		}
		b = b[n:]
		switch num {
		case 1, 2, 3, 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("HeaderBBox field", n)
			}
			zz := protowire.DecodeZigZag(v)
			switch num {
			case 1:
				bb.Left = zz
			case 2:
				bb.Right = zz
			case 3:
				bb.Top = zz
			case 4:
				bb.Bottom = zz
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("HeaderBBox unknown field", n)
			}
			b = b[n:]
		}
	}
	return bb, nil
}

// UnmarshalHeaderBlock decodes a HeaderBlock message.
func UnmarshalHeaderBlock(b []byte) (*HeaderBlock, error) {
	hb := &HeaderBlock{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("HeaderBlock tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // bbox
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.bbox", n)
			}
			box, err := unmarshalHeaderBBox(v)
			if err != nil {
				return nil, err
			}
			hb.BBox = box
			b = b[n:]
		case 4: // required_features
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.required_features", n)
			}
			hb.RequiredFeatures = append(hb.RequiredFeatures, string(v))
			b = b[n:]
		case 5: // optional_features
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.optional_features", n)
			}
			hb.OptionalFeatures = append(hb.OptionalFeatures, string(v))
			b = b[n:]
		case 16: // writingprogram
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.writingprogram", n)
			}
			hb.WritingProgram = string(v)
			b = b[n:]
		case 17: // source
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.source", n)
			}
			hb.Source = string(v)
			b = b[n:]
		case 32: // osmosis_replication_timestamp
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.osmosis_replication_timestamp", n)
			}
			hb.OsmosisReplicationTimestamp = int64(v)
			b = b[n:]
		case 33: // osmosis_replication_sequence
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.osmosis_replication_sequence", n)
			}
			hb.OsmosisReplicationSequence = int64(v)
			b = b[n:]
		case 34: // osmosis_replication_base_url
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("HeaderBlock.osmosis_replication_base_url", n)
			}
			hb.OsmosisReplicationBaseURL = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("HeaderBlock unknown field", n)
			}
			b = b[n:]
		}
	}
	return hb, nil
}

func unmarshalStringTable(b []byte) (StringTable, error) {
	var st StringTable
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return st, wireErr("StringTable tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // s
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return st, wireErr("StringTable.s", n)
			}
			st.S = append(st.S, append([]byte(nil), v...))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return st, wireErr("StringTable unknown field", n)
			}
			b = b[n:]
		}
	}
	return st, nil
}

func unmarshalInfo(b []byte) (*Info, error) {
	info := &Info{Version: -1}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("Info tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // version
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.version", n)
			}
			info.Version = int32(v)
			b = b[n:]
		case 2: // timestamp
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.timestamp", n)
			}
			info.Timestamp = int64(v)
			b = b[n:]
		case 3: // changeset
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.changeset", n)
			}
			info.Changeset = int64(v)
			b = b[n:]
		case 4: // uid
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.uid", n)
			}
			info.UID = int32(int64(v))
			b = b[n:]
		case 5: // user_sid
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.user_sid", n)
			}
			info.UserSID = int32(v)
			b = b[n:]
		case 6: // visible
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("Info.visible", n)
			}
			info.Visible = v != 0
			info.HasVisible = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("Info unknown field", n)
			}
			b = b[n:]
		}
	}
	return info, nil
}

func unmarshalDenseInfo(b []byte) (*DenseInfo, error) {
	di := &DenseInfo{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("DenseInfo tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // version
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.Version = append(di.Version, int32All(raw)...)
			b = b[n:]
		case 2: // timestamp (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.Timestamp = append(di.Timestamp, zigzagAll(raw)...)
			b = b[n:]
		case 3: // changeset (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.Changeset = append(di.Changeset, zigzagAll(raw)...)
			b = b[n:]
		case 4: // uid (sint32 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.UID = append(di.UID, int32All(zigzagAllAsUint(raw))...)
			b = b[n:]
		case 5: // user_sid (sint32 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.UserSID = append(di.UserSID, int32All(zigzagAllAsUint(raw))...)
			b = b[n:]
		case 6: // visible (bool)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			di.Visible = append(di.Visible, boolAll(raw)...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("DenseInfo unknown field", n)
			}
			b = b[n:]
		}
	}
	return di, nil
}

// zigzagAllAsUint decodes zigzag values and re-widens them to uint64 so
// int32All can narrow them the same way as any other packed int32 field.
func zigzagAllAsUint(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	for i, v := range raw {
		out[i] = uint64(protowire.DecodeZigZag(v))
	}
	return out
}

func unmarshalDenseNodes(b []byte) (*DenseNodes, error) {
	dn := &DenseNodes{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("DenseNodes tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // id (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			dn.ID = append(dn.ID, zigzagAll(raw)...)
			b = b[n:]
		case 5: // denseinfo
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("DenseNodes.denseinfo", n)
			}
			di, err := unmarshalDenseInfo(v)
			if err != nil {
				return nil, err
			}
			dn.Denseinfo = di
			b = b[n:]
		case 8: // lat (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			dn.Lat = append(dn.Lat, zigzagAll(raw)...)
			b = b[n:]
		case 9: // lon (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			dn.Lon = append(dn.Lon, zigzagAll(raw)...)
			b = b[n:]
		case 10: // keys_vals (int32, NOT delta, 0-terminated per node)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nil, err
			}
			dn.KeysVals = append(dn.KeysVals, int32All(raw)...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("DenseNodes unknown field", n)
			}
			b = b[n:]
		}
	}
	return dn, nil
}

func unmarshalNode(b []byte) (NodeMsg, error) {
	var nd NodeMsg
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nd, wireErr("Node tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // id (sint64)
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nd, wireErr("Node.id", n)
			}
			nd.ID = protowire.DecodeZigZag(v)
			b = b[n:]
		case 2: // keys (uint32 packed)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nd, err
			}
			nd.Keys = append(nd.Keys, int32All(raw)...)
			b = b[n:]
		case 3: // vals (uint32 packed)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return nd, err
			}
			nd.Vals = append(nd.Vals, int32All(raw)...)
			b = b[n:]
		case 4: // info
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nd, wireErr("Node.info", n)
			}
			info, err := unmarshalInfo(v)
			if err != nil {
				return nd, err
			}
			nd.Info = info
			b = b[n:]
		case 8: // lat (sint64)
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nd, wireErr("Node.lat", n)
			}
			nd.Lat = protowire.DecodeZigZag(v)
			b = b[n:]
		case 9: // lon (sint64)
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nd, wireErr("Node.lon", n)
			}
			nd.Lon = protowire.DecodeZigZag(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nd, wireErr("Node unknown field", n)
			}
			b = b[n:]
		}
	}
	return nd, nil
}

func unmarshalWay(b []byte) (WayMsg, error) {
	var w WayMsg
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return w, wireErr("Way tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // id
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, wireErr("Way.id", n)
			}
			w.ID = int64(v)
			b = b[n:]
		case 2: // keys
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return w, err
			}
			w.Keys = append(w.Keys, int32All(raw)...)
			b = b[n:]
		case 3: // vals
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return w, err
			}
			w.Vals = append(w.Vals, int32All(raw)...)
			b = b[n:]
		case 4: // info
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return w, wireErr("Way.info", n)
			}
			info, err := unmarshalInfo(v)
			if err != nil {
				return w, err
			}
			w.Info = info
			b = b[n:]
		case 8: // refs (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return w, err
			}
			w.Refs = append(w.Refs, zigzagAll(raw)...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return w, wireErr("Way unknown field", n)
			}
			b = b[n:]
		}
	}
	return w, nil
}

func unmarshalRelation(b []byte) (RelationMsg, error) {
	var r RelationMsg
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, wireErr("Relation tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // id
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, wireErr("Relation.id", n)
			}
			r.ID = int64(v)
			b = b[n:]
		case 2: // keys
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return r, err
			}
			r.Keys = append(r.Keys, int32All(raw)...)
			b = b[n:]
		case 3: // vals
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return r, err
			}
			r.Vals = append(r.Vals, int32All(raw)...)
			b = b[n:]
		case 4: // info
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, wireErr("Relation.info", n)
			}
			info, err := unmarshalInfo(v)
			if err != nil {
				return r, err
			}
			r.Info = info
			b = b[n:]
		case 8: // roles_sid
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return r, err
			}
			r.RolesSID = append(r.RolesSID, int32All(raw)...)
			b = b[n:]
		case 9: // memids (sint64 delta)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return r, err
			}
			r.Memids = append(r.Memids, zigzagAll(raw)...)
			b = b[n:]
		case 10: // types (enum, packed varint)
			n, raw, err := packedOrSingle(typ, b)
			if err != nil {
				return r, err
			}
			for _, v := range raw {
				r.Types = append(r.Types, RelationMemberType(v))
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, wireErr("Relation unknown field", n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

func unmarshalPrimitiveGroup(b []byte) (PrimitiveGroup, error) {
	var g PrimitiveGroup
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return g, wireErr("PrimitiveGroup tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // nodes
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return g, wireErr("PrimitiveGroup.nodes", n)
			}
			nd, err := unmarshalNode(v)
			if err != nil {
				return g, err
			}
			g.Nodes = append(g.Nodes, nd)
			b = b[n:]
		case 2: // dense
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return g, wireErr("PrimitiveGroup.dense", n)
			}
			dn, err := unmarshalDenseNodes(v)
			if err != nil {
				return g, err
			}
			g.Dense = dn
			b = b[n:]
		case 3: // ways
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return g, wireErr("PrimitiveGroup.ways", n)
			}
			w, err := unmarshalWay(v)
			if err != nil {
				return g, err
			}
			g.Ways = append(g.Ways, w)
			b = b[n:]
		case 4: // relations
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return g, wireErr("PrimitiveGroup.relations", n)
			}
			r, err := unmarshalRelation(v)
			if err != nil {
				return g, err
			}
			g.Relations = append(g.Relations, r)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return g, wireErr("PrimitiveGroup unknown field", n)
			}
			b = b[n:]
		}
	}
	return g, nil
}

// UnmarshalPrimitiveBlock decodes a PrimitiveBlock message, applying the
// standard defaults (granularity=100, date_granularity=1000) when the
// corresponding field is absent.
func UnmarshalPrimitiveBlock(b []byte) (*PrimitiveBlock, error) {
	pb := &PrimitiveBlock{Granularity: 100, DateGranularity: 1000}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireErr("PrimitiveBlock tag", n)
		}
		b = b[n:]
		switch num {
		case 1: // stringtable
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.stringtable", n)
			}
			st, err := unmarshalStringTable(v)
			if err != nil {
				return nil, err
			}
			pb.Stringtable = st
			b = b[n:]
		case 2: // primitivegroup
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.primitivegroup", n)
			}
			g, err := unmarshalPrimitiveGroup(v)
			if err != nil {
				return nil, err
			}
			pb.Primitivegroup = append(pb.Primitivegroup, g)
			b = b[n:]
		case 17: // granularity
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.granularity", n)
			}
			pb.Granularity = int32(v)
			b = b[n:]
		case 18: // date_granularity
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.date_granularity", n)
			}
			pb.DateGranularity = int32(v)
			b = b[n:]
		case 19: // lat_offset
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.lat_offset", n)
			}
			pb.LatOffset = int64(v)
			b = b[n:]
		case 20: // lon_offset
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock.lon_offset", n)
			}
			pb.LonOffset = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireErr("PrimitiveBlock unknown field", n)
			}
			b = b[n:]
		}
	}
	return pb, nil
}

package pbf

import (
	"fmt"
	"time"

	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/errs"
	"github.com/wegman-software/osmpbf-core/internal/pbfwire"
)

// KindFilter selects which entity kinds a caller wants decoded. Groups of
// filtered-out kinds are still parsed off the wire with the rest of the
// block, but are not converted into entities.
type KindFilter struct {
	Nodes     bool
	Ways      bool
	Relations bool
}

// AllKinds decodes every entity kind.
var AllKinds = KindFilter{Nodes: true, Ways: true, Relations: true}

var allowedRequiredFeatures = map[string]bool{
	"OsmSchema-V0.6":        true,
	"DenseNodes":            true,
	"HistoricalInformation": true,
}

// DecodeHeaderBlock interprets a decoded block as a HeaderBlock.
func DecodeHeaderBlock(block []byte) (*entity.Header, error) {
	hb, err := pbfwire.UnmarshalHeaderBlock(block)
	if err != nil {
		return nil, err
	}

	h := &entity.Header{
		RequiredFeatures: hb.RequiredFeatures,
		OptionalFeatures: hb.OptionalFeatures,
		WritingProgram:   hb.WritingProgram,
		Source:           hb.Source,
	}

	for _, f := range hb.RequiredFeatures {
		if !allowedRequiredFeatures[f] {
			return nil, errs.NewUnsupported(fmt.Sprintf("required feature %q", f))
		}
		switch f {
		case "DenseNodes":
			h.HasDenseNodes = true
		case "HistoricalInformation":
			h.HasHistorical = true
		}
	}

	if hb.BBox != nil {
		h.HasBBox = true
		h.BBox = entity.Box{
			Left:   entity.ScaleCoord(hb.BBox.Left),
			Right:  entity.ScaleCoord(hb.BBox.Right),
			Top:    entity.ScaleCoord(hb.BBox.Top),
			Bottom: entity.ScaleCoord(hb.BBox.Bottom),
		}
	}

	if hb.OsmosisReplicationTimestamp != 0 {
		h.ReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0).UTC().Format(time.RFC3339)
	}
	h.ReplicationSequence = hb.OsmosisReplicationSequence
	h.ReplicationBaseURL = hb.OsmosisReplicationBaseURL

	return h, nil
}

// resolveString looks up a string-table slot, returning "" for slot 0.
func resolveString(st pbfwire.StringTable, sid int32) (string, error) {
	if sid == 0 {
		return "", nil
	}
	if sid < 0 || int(sid) >= len(st.S) {
		return "", errs.NewCorruptf("string table index %d out of range (len %d)", sid, len(st.S))
	}
	return string(st.S[sid]), nil
}

func decodeMeta(st pbfwire.StringTable, info *pbfwire.Info, dateGranularity int32) (entity.Meta, error) {
	if info == nil {
		return entity.Meta{Visible: true, UID: -1}, nil
	}
	if info.Changeset < 0 {
		return entity.Meta{}, errs.NewCorruptf("negative changeset %d", info.Changeset)
	}
	if info.Timestamp < 0 {
		return entity.Meta{}, errs.NewCorruptf("negative timestamp %d", info.Timestamp)
	}
	if info.UID < -1 {
		return entity.Meta{}, errs.NewCorruptf("uid %d below -1", info.UID)
	}
	user, err := resolveString(st, info.UserSID)
	if err != nil {
		return entity.Meta{}, err
	}
	visible := true
	if info.HasVisible {
		visible = info.Visible
	}
	return entity.Meta{
		Version:   info.Version,
		Changeset: info.Changeset,
		Timestamp: info.Timestamp * int64(dateGranularity),
		UID:       info.UID,
		User:      user,
		Visible:   visible,
	}, nil
}

func decodeTags(st pbfwire.StringTable, keys, vals []int32) ([]entity.Tag, error) {
	if len(keys) != len(vals) {
		return nil, errs.NewCorruptf("tag keys/vals length mismatch: %d vs %d", len(keys), len(vals))
	}
	if len(keys) == 0 {
		return nil, nil
	}
	tags := make([]entity.Tag, len(keys))
	for i := range keys {
		k, err := resolveString(st, keys[i])
		if err != nil {
			return nil, err
		}
		v, err := resolveString(st, vals[i])
		if err != nil {
			return nil, err
		}
		tags[i] = entity.Tag{Key: k, Value: v}
	}
	return tags, nil
}

func decodeNode(st pbfwire.StringTable, n pbfwire.NodeMsg, dateGranularity, granularity int32, latOffset, lonOffset int64) (entity.Node, error) {
	meta, err := decodeMeta(st, n.Info, dateGranularity)
	if err != nil {
		return entity.Node{}, err
	}
	tags, err := decodeTags(st, n.Keys, n.Vals)
	if err != nil {
		return entity.Node{}, err
	}
	loc := entity.UndefinedLocation
	if meta.Visible {
		loc = entity.Location{
			LonI32: entity.ScaleCoord(n.Lon*int64(granularity) + lonOffset),
			LatI32: entity.ScaleCoord(n.Lat*int64(granularity) + latOffset),
		}
	}
	return entity.Node{ID: n.ID, Meta: meta, Tags: tags, Loc: loc}, nil
}

func prefixSum(deltas []int64) []int64 {
	if len(deltas) == 0 {
		return nil
	}
	out := make([]int64, len(deltas))
	var acc int64
	for i, d := range deltas {
		acc += d
		out[i] = acc
	}
	return out
}

func decodeWay(st pbfwire.StringTable, w pbfwire.WayMsg, dateGranularity int32) (entity.Way, error) {
	meta, err := decodeMeta(st, w.Info, dateGranularity)
	if err != nil {
		return entity.Way{}, err
	}
	tags, err := decodeTags(st, w.Keys, w.Vals)
	if err != nil {
		return entity.Way{}, err
	}
	return entity.Way{ID: w.ID, Meta: meta, Tags: tags, Refs: prefixSum(w.Refs)}, nil
}

func decodeRelation(st pbfwire.StringTable, r pbfwire.RelationMsg, dateGranularity int32) (entity.Relation, error) {
	meta, err := decodeMeta(st, r.Info, dateGranularity)
	if err != nil {
		return entity.Relation{}, err
	}
	tags, err := decodeTags(st, r.Keys, r.Vals)
	if err != nil {
		return entity.Relation{}, err
	}
	if len(r.Memids) != len(r.Types) || len(r.Memids) != len(r.RolesSID) {
		return entity.Relation{}, errs.NewCorruptf(
			"relation %d member array length mismatch: memids=%d types=%d roles=%d",
			r.ID, len(r.Memids), len(r.Types), len(r.RolesSID))
	}
	ids := prefixSum(r.Memids)
	members := make([]entity.RelationMember, len(ids))
	for i, id := range ids {
		var kind entity.Kind
		switch r.Types[i] {
		case pbfwire.MemberNode:
			kind = entity.KindNode
		case pbfwire.MemberWay:
			kind = entity.KindWay
		case pbfwire.MemberRelation:
			kind = entity.KindRelation
		default:
			return entity.Relation{}, errs.NewCorruptf("relation %d member %d: unknown member type %d", r.ID, i, r.Types[i])
		}
		role, err := resolveString(st, r.RolesSID[i])
		if err != nil {
			return entity.Relation{}, err
		}
		members[i] = entity.RelationMember{Kind: kind, Ref: id, Role: role}
	}
	return entity.Relation{ID: r.ID, Meta: meta, Tags: tags, Members: members}, nil
}

// decodeDenseNodes runs the dense-node delta-accumulation inner loop.
func decodeDenseNodes(st pbfwire.StringTable, dn *pbfwire.DenseNodes, granularity, dateGranularity int32, latOffset, lonOffset int64) ([]entity.Node, error) {
	n := len(dn.ID)
	if n == 0 {
		return nil, nil
	}
	if len(dn.Lat) != n || len(dn.Lon) != n {
		return nil, errs.NewCorruptf("dense node id/lat/lon length mismatch: %d/%d/%d", n, len(dn.Lat), len(dn.Lon))
	}

	di := dn.Denseinfo
	hasVisible := di != nil && len(di.Visible) == n
	hasInfo := di != nil

	if hasInfo {
		if len(di.Version) != n || len(di.Timestamp) != n || len(di.Changeset) != n || len(di.UID) != n || len(di.UserSID) != n {
			return nil, errs.NewCorrupt("dense denseinfo array length mismatch")
		}
	}

	nodes := make([]entity.Node, n)
	var lastID, lastLat, lastLon int64
	var lastChangeset, lastTimestamp int64
	var lastUID, lastUserSID int32

	k := 0 // cursor into KeysVals

	for i := 0; i < n; i++ {
		lastID += dn.ID[i]
		lastLat += dn.Lat[i]
		lastLon += dn.Lon[i]

		meta := entity.Meta{Visible: true, UID: -1}
		if hasInfo {
			lastChangeset += di.Changeset[i]
			lastTimestamp += di.Timestamp[i]
			lastUID += di.UID[i]
			lastUserSID += di.UserSID[i]

			if lastChangeset < 0 {
				return nil, errs.NewCorruptf("dense node %d: negative changeset %d", i, lastChangeset)
			}
			if lastTimestamp < 0 {
				return nil, errs.NewCorruptf("dense node %d: negative timestamp %d", i, lastTimestamp)
			}
			if lastUID < -1 {
				return nil, errs.NewCorruptf("dense node %d: uid %d below -1", i, lastUID)
			}
			if lastUserSID < 0 {
				return nil, errs.NewCorruptf("dense node %d: negative user_sid %d", i, lastUserSID)
			}
			if di.Version[i] <= 0 {
				return nil, errs.NewCorruptf("dense node %d: non-positive version %d", i, di.Version[i])
			}

			visible := true
			if hasVisible {
				visible = di.Visible[i]
			}
			user, err := resolveString(st, lastUserSID)
			if err != nil {
				return nil, err
			}
			meta = entity.Meta{
				Version:   di.Version[i],
				Changeset: lastChangeset,
				Timestamp: lastTimestamp * int64(dateGranularity),
				UID:       lastUID,
				User:      user,
				Visible:   visible,
			}
		}

		loc := entity.UndefinedLocation
		if meta.Visible {
			loc = entity.Location{
				LonI32: entity.ScaleCoord(lastLon*int64(granularity) + lonOffset),
				LatI32: entity.ScaleCoord(lastLat*int64(granularity) + latOffset),
			}
		}

		var tags []entity.Tag
		if k < len(dn.KeysVals) {
			for k < len(dn.KeysVals) && dn.KeysVals[k] != 0 {
				if k+1 >= len(dn.KeysVals) {
					return nil, errs.NewCorrupt("dense keys_vals stream truncated mid-pair")
				}
				keySid, valSid := dn.KeysVals[k], dn.KeysVals[k+1]
				key, err := resolveString(st, keySid)
				if err != nil {
					return nil, err
				}
				val, err := resolveString(st, valSid)
				if err != nil {
					return nil, err
				}
				tags = append(tags, entity.Tag{Key: key, Value: val})
				k += 2
			}
			if k < len(dn.KeysVals) {
				k++ // consume the 0 terminator
			}
		}

		nodes[i] = entity.Node{ID: lastID, Meta: meta, Tags: tags, Loc: loc}
	}

	return nodes, nil
}

// DecodePrimitiveBlock decodes one data block into an OutputBuffer,
// honoring the caller's KindFilter: the whole block is parsed off the
// wire, and groups of kinds the caller does not want are skipped before
// entity conversion.
func DecodePrimitiveBlock(block []byte, seqNo uint64, filter KindFilter) (*entity.OutputBuffer, error) {
	pb, err := pbfwire.UnmarshalPrimitiveBlock(block)
	if err != nil {
		return nil, err
	}

	out := &entity.OutputBuffer{SeqNo: seqNo}

	for _, g := range pb.Primitivegroup {
		count := 0
		if g.Dense != nil {
			count++
		}
		if len(g.Nodes) > 0 {
			count++
		}
		if len(g.Ways) > 0 {
			count++
		}
		if len(g.Relations) > 0 {
			count++
		}
		if count > 1 {
			return nil, errs.NewCorrupt("primitive group has more than one populated variant")
		}

		switch {
		case g.Dense != nil:
			if !filter.Nodes {
				continue
			}
			nodes, err := decodeDenseNodes(pb.Stringtable, g.Dense, pb.Granularity, pb.DateGranularity, pb.LatOffset, pb.LonOffset)
			if err != nil {
				return nil, err
			}
			for _, nd := range nodes {
				out.Objects = append(out.Objects, nd)
			}

		case len(g.Nodes) > 0:
			if !filter.Nodes {
				continue
			}
			for _, n := range g.Nodes {
				nd, err := decodeNode(pb.Stringtable, n, pb.DateGranularity, pb.Granularity, pb.LatOffset, pb.LonOffset)
				if err != nil {
					return nil, err
				}
				out.Objects = append(out.Objects, nd)
			}

		case len(g.Ways) > 0:
			if !filter.Ways {
				continue
			}
			for _, w := range g.Ways {
				wy, err := decodeWay(pb.Stringtable, w, pb.DateGranularity)
				if err != nil {
					return nil, err
				}
				out.Objects = append(out.Objects, wy)
			}

		case len(g.Relations) > 0:
			if !filter.Relations {
				continue
			}
			for _, r := range g.Relations {
				rel, err := decodeRelation(pb.Stringtable, r, pb.DateGranularity)
				if err != nil {
					return nil, err
				}
				out.Objects = append(out.Objects, rel)
			}

		default:
			return nil, errs.NewCorrupt("primitive group has no populated variant")
		}
	}

	return out, nil
}

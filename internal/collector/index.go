package collector

import "sort"

// MemberMetaEntry is one row of a MemberIndex: a reference from a
// relation's member list back into RelationStore, resolved during pass 2
// via a binary equal-range lookup on MemberID.
type MemberMetaEntry struct {
	MemberID       int64
	RelationSlot   uint32
	MemberPosition uint32
	BufferOffset   uint64
	HasOffset      bool
}

// MemberIndex is a per-kind sorted array of MemberMetaEntry, providing
// the equal-range lookup primitive pass 2 and purge both rely on.
type MemberIndex struct {
	entries []MemberMetaEntry
	sorted  bool
}

// Append records an unsorted entry. Call SortStable once pass 1 finishes
// appending, before any EqualRange lookup.
func (idx *MemberIndex) Append(e MemberMetaEntry) {
	idx.entries = append(idx.entries, e)
	idx.sorted = false
}

// SortStable orders entries by MemberID ascending, breaking ties by
// insertion order (a stable sort).
func (idx *MemberIndex) SortStable() {
	sort.SliceStable(idx.entries, func(i, j int) bool {
		return idx.entries[i].MemberID < idx.entries[j].MemberID
	})
	idx.sorted = true
}

// EqualRange returns the [lo, hi) index range of entries with
// MemberID == id. The index must be sorted first.
func (idx *MemberIndex) EqualRange(id int64) (lo, hi int) {
	lo = sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].MemberID >= id
	})
	hi = sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].MemberID > id
	})
	return lo, hi
}

// At returns a pointer into the backing array so callers can mutate an
// entry's BufferOffset in place.
func (idx *MemberIndex) At(i int) *MemberMetaEntry {
	return &idx.entries[i]
}

// Len reports the number of entries.
func (idx *MemberIndex) Len() int { return len(idx.entries) }

package collector

import (
	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/errs"
)

// Hooks are the extension points a caller implements to steer pass 1
// (KeepRelation, KeepMember) and observe pass 2. Embed NoopHooks to
// pick up defaults for whichever hooks a caller doesn't care about.
type Hooks interface {
	// KeepRelation decides whether a relation is worth tracking at all.
	KeepRelation(r entity.Relation) bool
	// KeepMember decides whether one member of a kept relation should be
	// tracked; declining sentinels that member's ref to 0 in the stored
	// copy.
	KeepMember(slot uint32, m entity.RelationMember) bool
	// CompleteRelation fires once, in arrival order, when every tracked
	// member of a relation has been resolved. members is indexed the
	// same as rel.Members; a nil entry means that position was declined
	// by KeepMember or is of a member kind the Collector does not track.
	CompleteRelation(slot uint32, rel entity.Relation, members []entity.Object)
	OrphanNode(n entity.Node)
	OrphanWay(w entity.Way)
	OrphanRelation(r entity.Relation)
	// Done fires once pass 2 has consumed the whole input.
	Done()
	// MovingInBuffer fires when purge relocates a still-referenced
	// member record; holders of the old offset must forget it.
	MovingInBuffer(oldOffset, newOffset uint64)
}

// NoopHooks implements Hooks with no-ops; embed it and override only the
// methods a caller needs.
type NoopHooks struct{}

func (NoopHooks) KeepRelation(entity.Relation) bool                        { return true }
func (NoopHooks) KeepMember(uint32, entity.RelationMember) bool            { return true }
func (NoopHooks) CompleteRelation(uint32, entity.Relation, []entity.Object) {}
func (NoopHooks) OrphanNode(entity.Node)                                   {}
func (NoopHooks) OrphanWay(entity.Way)                                     {}
func (NoopHooks) OrphanRelation(entity.Relation)                           {}
func (NoopHooks) Done()                                                    {}
func (NoopHooks) MovingInBuffer(uint64, uint64)                            {}

// RelationSlot tracks one kept relation's completion progress.
type RelationSlot struct {
	BufferOffset  uint64
	MembersNeeded uint32
	MembersFound  uint32
	Tombstoned    bool
}

// purgeEvery is how many completions accumulate before a purge pass runs.
const purgeEvery = 1000

// Collector runs the two-pass relation assembly algorithm: pass 1 records relations and the members they need, pass 2 resolves those members and fires completion.
type Collector struct {
	hooks Hooks

	trackNodes     bool
	trackWays      bool
	trackRelations bool
	useMmap        bool

	relStore byteArena
	slots    []RelationSlot

	memberIndex [3]MemberIndex // indexed by entity.Kind

	memberStore byteArena
	completions int

	pass1Finished bool
}

// New builds a Collector tracking the given member kinds. useMmap selects
// mmap-backed arenas (internal/collector.mmapArena) over in-heap ones.
func New(hooks Hooks, trackNodes, trackWays, trackRelations, useMmap bool) (*Collector, error) {
	c := &Collector{
		hooks:          hooks,
		trackNodes:     trackNodes,
		trackWays:      trackWays,
		trackRelations: trackRelations,
		useMmap:        useMmap,
	}
	rel, err := c.newArena()
	if err != nil {
		return nil, err
	}
	mem, err := c.newArena()
	if err != nil {
		rel.Close()
		return nil, err
	}
	c.relStore = rel
	c.memberStore = mem
	return c, nil
}

func (c *Collector) newArena() (byteArena, error) {
	if c.useMmap {
		return newMmapArena()
	}
	return newMemArena(), nil
}

func (c *Collector) trackedKind(k entity.Kind) bool {
	switch k {
	case entity.KindNode:
		return c.trackNodes
	case entity.KindWay:
		return c.trackWays
	case entity.KindRelation:
		return c.trackRelations
	default:
		return false
	}
}

// Pass1 processes one input relation. Call FinishPass1 once every
// relation has been fed through.
func (c *Collector) Pass1(r entity.Relation) error {
	if c.pass1Finished {
		return errs.NewCorrupt("collector: Pass1 called after FinishPass1")
	}
	if !c.hooks.KeepRelation(r) {
		return nil
	}

	slot := uint32(len(c.slots))
	members := make([]entity.RelationMember, len(r.Members))
	copy(members, r.Members)

	var needed uint32
	for i, m := range members {
		if c.trackedKind(m.Kind) && c.hooks.KeepMember(slot, m) {
			c.memberIndex[m.Kind].Append(MemberMetaEntry{
				MemberID:       m.Ref,
				RelationSlot:   slot,
				MemberPosition: uint32(i),
			})
			needed++
		} else {
			members[i].Ref = 0 // sentinel: uninteresting
		}
	}

	stored := r
	stored.Members = members
	rec, err := encodeObject(stored)
	if err != nil {
		return err
	}
	offset, err := c.relStore.Append(rec)
	if err != nil {
		return err
	}
	if needed == 0 {
		c.relStore.Rollback()
		return nil
	}
	c.relStore.Commit()
	c.slots = append(c.slots, RelationSlot{BufferOffset: offset, MembersNeeded: needed})
	return nil
}

// FinishPass1 sorts the member indexes built by Pass1. Call this exactly
// once, between the two passes.
func (c *Collector) FinishPass1() {
	for i := range c.memberIndex {
		c.memberIndex[i].SortStable()
	}
	c.pass1Finished = true
}

// Pass2 processes one input object of any tracked kind, resolving it
// against relations kept in pass 1.
func (c *Collector) Pass2(o entity.Object) error {
	if !c.pass1Finished {
		return errs.NewCorrupt("collector: Pass2 called before FinishPass1")
	}
	kind := o.ObjectKind()
	if !c.trackedKind(kind) {
		return nil
	}

	idx := &c.memberIndex[kind]
	lo, hi := idx.EqualRange(o.ObjectID())
	if lo == hi {
		c.orphan(o)
		return nil
	}

	rec, err := encodeObject(o)
	if err != nil {
		return err
	}
	pos, err := c.memberStore.Append(rec)
	if err != nil {
		return err
	}
	c.memberStore.Commit()

	// Purge only after every entry in the range points at pos, so a record
	// still needed by a live slot later in the range is not dropped.
	purgeDue := false
	for i := lo; i < hi; i++ {
		e := idx.At(i)
		e.BufferOffset = pos
		e.HasOffset = true

		slot := &c.slots[e.RelationSlot]
		slot.MembersFound++
		if slot.MembersFound == slot.MembersNeeded {
			if err := c.fireComplete(e.RelationSlot); err != nil {
				return err
			}
			c.completions++
			if c.completions%purgeEvery == 0 {
				purgeDue = true
			}
		}
	}
	if purgeDue {
		return c.purge()
	}
	return nil
}

func (c *Collector) orphan(o entity.Object) {
	switch v := o.(type) {
	case entity.Node:
		c.hooks.OrphanNode(v)
	case entity.Way:
		c.hooks.OrphanWay(v)
	case entity.Relation:
		c.hooks.OrphanRelation(v)
	}
}

// findEntry locates the single MemberMetaEntry recorded by Pass1 for
// (kind, memberID, slot, position), by equal-range then a linear scan of
// the (small) matching bucket.
func (c *Collector) findEntry(kind entity.Kind, memberID int64, slot uint32, pos uint32) (*MemberMetaEntry, bool) {
	idx := &c.memberIndex[kind]
	lo, hi := idx.EqualRange(memberID)
	for i := lo; i < hi; i++ {
		e := idx.At(i)
		if e.RelationSlot == slot && e.MemberPosition == pos {
			return e, true
		}
	}
	return nil, false
}

func (c *Collector) fireComplete(slot uint32) error {
	ss := &c.slots[slot]
	relRec, err := c.relStore.ReadAt(ss.BufferOffset)
	if err != nil {
		return err
	}
	obj, err := decodeObject(relRec)
	if err != nil {
		return err
	}
	rel, ok := obj.(entity.Relation)
	if !ok {
		return errs.NewCorruptf("collector: slot %d buffer offset does not hold a relation", slot)
	}

	members := make([]entity.Object, len(rel.Members))
	for i, m := range rel.Members {
		if m.Ref == 0 {
			continue // declined by KeepMember
		}
		e, ok := c.findEntry(m.Kind, m.Ref, slot, uint32(i))
		if !ok || !e.HasOffset {
			return errs.NewCorruptf("collector: completed relation slot %d missing resolved member at position %d", slot, i)
		}
		mrec, err := c.memberStore.ReadAt(e.BufferOffset)
		if err != nil {
			return err
		}
		mobj, err := decodeObject(mrec)
		if err != nil {
			return err
		}
		members[i] = mobj
	}

	c.hooks.CompleteRelation(slot, rel, members)
	ss.Tombstoned = true
	return nil
}

// purge compacts the MemberStore, dropping records whose every
// referencing relation slot is tombstoned, and relocating survivors into
// a fresh arena while firing MovingInBuffer for each move.
func (c *Collector) purge() error {
	newArena, err := c.newArena()
	if err != nil {
		return err
	}

	var walkErr error
	err = c.memberStore.ForEachRecord(func(oldOffset uint64, rec []byte) bool {
		obj, derr := decodeObject(rec)
		if derr != nil {
			walkErr = derr
			return false
		}
		kind := obj.ObjectKind()
		idx := &c.memberIndex[kind]
		lo, hi := idx.EqualRange(obj.ObjectID())

		var matches []*MemberMetaEntry
		anyLive := false
		for i := lo; i < hi; i++ {
			e := idx.At(i)
			if e.HasOffset && e.BufferOffset == oldOffset {
				matches = append(matches, e)
				if !c.slots[e.RelationSlot].Tombstoned {
					anyLive = true
				}
			}
		}
		if len(matches) == 0 || !anyLive {
			return true // drop
		}

		newOffset, aerr := newArena.Append(rec)
		if aerr != nil {
			walkErr = aerr
			return false
		}
		for _, e := range matches {
			e.BufferOffset = newOffset
		}
		c.hooks.MovingInBuffer(oldOffset, newOffset)
		return true
	})
	if err != nil {
		newArena.Close()
		return err
	}
	if walkErr != nil {
		newArena.Close()
		return walkErr
	}

	newArena.Commit()
	old := c.memberStore
	c.memberStore = newArena
	return old.Close()
}

// Finish signals end of input: fires Done and leaves any still-
// incomplete relations in RelationStore for the caller to inspect via
// Stats or a custom walk.
func (c *Collector) Finish() {
	c.hooks.Done()
}

// Close releases both backing arenas.
func (c *Collector) Close() error {
	err1 := c.relStore.Close()
	err2 := c.memberStore.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Stats reports the introspection osmium exposes via used_memory():
// relation/member-index sizes and buffer extents.
type Stats struct {
	RelationSlots      int
	CompletedRelations int
	MemberIndexSize    [3]int
	RelationStoreBytes uint64
	MemberStoreBytes   uint64
}

// Stats reports current buffer and index sizes.
func (c *Collector) Stats() Stats {
	completed := 0
	for _, s := range c.slots {
		if s.Tombstoned {
			completed++
		}
	}
	return Stats{
		RelationSlots:      len(c.slots),
		CompletedRelations: completed,
		MemberIndexSize: [3]int{
			c.memberIndex[entity.KindNode].Len(),
			c.memberIndex[entity.KindWay].Len(),
			c.memberIndex[entity.KindRelation].Len(),
		},
		RelationStoreBytes: c.relStore.Tail(),
		MemberStoreBytes:   c.memberStore.Tail(),
	}
}

// CleanAssembledRelations drops tombstoned (completed) slots from the
// RelationStore's slot table. It must only be called once processing has
// fully finished: slot numbers are not renumbered against the member
// index, so calling this mid-stream would corrupt in-flight lookups.
// Mirrors osmium's clean_assembled_relations, useful when one process
// runs several Collector instances back to back and wants to reclaim
// memory between them.
func (c *Collector) CleanAssembledRelations() int {
	kept := c.slots[:0]
	removed := 0
	for _, s := range c.slots {
		if s.Tombstoned {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	c.slots = kept
	return removed
}

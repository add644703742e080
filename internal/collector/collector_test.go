package collector

import (
	"testing"

	"github.com/wegman-software/osmpbf-core/internal/entity"
)

// recordingHooks captures every hook firing for assertions.
type recordingHooks struct {
	NoopHooks
	orphanedWays     []int64
	completed        []entity.Relation
	completedMembers [][]entity.Object
	moved            [][2]uint64
	done             bool
}

func (h *recordingHooks) OrphanWay(w entity.Way) {
	h.orphanedWays = append(h.orphanedWays, w.ID)
}

func (h *recordingHooks) CompleteRelation(slot uint32, rel entity.Relation, members []entity.Object) {
	h.completed = append(h.completed, rel)
	h.completedMembers = append(h.completedMembers, members)
}

func (h *recordingHooks) MovingInBuffer(oldOffset, newOffset uint64) {
	h.moved = append(h.moved, [2]uint64{oldOffset, newOffset})
}

func (h *recordingHooks) Done() { h.done = true }

// TestTwoPassAssembly is the seeded scenario: a relation R1 referencing
// ways 7 and 8. Pass 2 sees way 7, an unrelated way 9, then way 8. Way 9
// must be orphaned exactly once; R1 must complete exactly once, after
// way 8 arrives, with its members resolved to the stored copies of 7
// and 8.
func TestTwoPassAssembly(t *testing.T) {
	hooks := &recordingHooks{}
	c, err := New(hooks, false, true, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	r1 := entity.Relation{
		ID: 1,
		Members: []entity.RelationMember{
			{Kind: entity.KindWay, Ref: 7, Role: "outer"},
			{Kind: entity.KindWay, Ref: 8, Role: "inner"},
		},
	}
	if err := c.Pass1(r1); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	c.FinishPass1()

	way7 := entity.Way{ID: 7, Refs: []int64{1, 2, 3}}
	way9 := entity.Way{ID: 9, Refs: []int64{9, 9}}
	way8 := entity.Way{ID: 8, Refs: []int64{4, 5}}

	if err := c.Pass2(way7); err != nil {
		t.Fatalf("Pass2(way7): %v", err)
	}
	if len(hooks.completed) != 0 {
		t.Fatalf("relation completed early after one of two members")
	}

	if err := c.Pass2(way9); err != nil {
		t.Fatalf("Pass2(way9): %v", err)
	}
	if len(hooks.orphanedWays) != 1 || hooks.orphanedWays[0] != 9 {
		t.Fatalf("orphanedWays = %v, want [9]", hooks.orphanedWays)
	}

	if err := c.Pass2(way8); err != nil {
		t.Fatalf("Pass2(way8): %v", err)
	}
	if len(hooks.completed) != 1 {
		t.Fatalf("completed = %d relations, want 1", len(hooks.completed))
	}
	if hooks.completed[0].ID != 1 {
		t.Errorf("completed relation ID = %d, want 1", hooks.completed[0].ID)
	}
	members := hooks.completedMembers[0]
	if len(members) != 2 {
		t.Fatalf("resolved members = %d, want 2", len(members))
	}
	gotWay7, ok := members[0].(entity.Way)
	if !ok || gotWay7.ID != 7 || len(gotWay7.Refs) != 3 {
		t.Errorf("members[0] = %+v, want a copy of way 7", members[0])
	}
	gotWay8, ok := members[1].(entity.Way)
	if !ok || gotWay8.ID != 8 || len(gotWay8.Refs) != 2 {
		t.Errorf("members[1] = %+v, want a copy of way 8", members[1])
	}

	c.Finish()
	if !hooks.done {
		t.Error("Done hook did not fire")
	}

	stats := c.Stats()
	if stats.RelationSlots != 1 || stats.CompletedRelations != 1 {
		t.Errorf("Stats = %+v, want 1 slot, 1 completed", stats)
	}
}

// TestUntrackedMemberKindIgnored checks that a relation whose only
// member is a kind the Collector isn't tracking rolls back to an empty
// slot and never fires CompleteRelation or an orphan hook for it.
func TestUntrackedMemberKindIgnored(t *testing.T) {
	hooks := &recordingHooks{}
	c, err := New(hooks, false, false, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	r1 := entity.Relation{
		ID:      1,
		Members: []entity.RelationMember{{Kind: entity.KindWay, Ref: 7}},
	}
	if err := c.Pass1(r1); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	c.FinishPass1()

	stats := c.Stats()
	if stats.RelationSlots != 0 {
		t.Errorf("RelationSlots = %d, want 0 (relation had no trackable members)", stats.RelationSlots)
	}

	if err := c.Pass2(entity.Way{ID: 7}); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if len(hooks.orphanedWays) != 0 {
		t.Errorf("orphanedWays = %v, want none: way kind isn't tracked", hooks.orphanedWays)
	}
}

// TestKeepMemberDecline checks that declining a specific member in
// KeepMember shrinks the needed count and the declined position stays
// nil in the resolved member slice.
type declineSecondHooks struct {
	NoopHooks
	completed []entity.Relation
	members   [][]entity.Object
}

func (h *declineSecondHooks) KeepMember(slot uint32, m entity.RelationMember) bool {
	return m.Ref != 8
}

func (h *declineSecondHooks) CompleteRelation(slot uint32, rel entity.Relation, members []entity.Object) {
	h.completed = append(h.completed, rel)
	h.members = append(h.members, members)
}

func TestKeepMemberDecline(t *testing.T) {
	hooks := &declineSecondHooks{}
	c, err := New(hooks, false, true, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	r1 := entity.Relation{
		ID: 1,
		Members: []entity.RelationMember{
			{Kind: entity.KindWay, Ref: 7},
			{Kind: entity.KindWay, Ref: 8},
		},
	}
	if err := c.Pass1(r1); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	c.FinishPass1()

	if err := c.Pass2(entity.Way{ID: 7}); err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	if len(hooks.completed) != 1 {
		t.Fatalf("completed = %d, want 1 (only member 7 was needed)", len(hooks.completed))
	}
	if hooks.members[0][1] != nil {
		t.Errorf("declined member slot = %v, want nil", hooks.members[0][1])
	}
}

// TestPurgeDropsCompletedMembers drives enough completions to trigger a
// purge pass and checks that member records belonging only to
// already-completed (tombstoned) relations are dropped from the member
// store.
func TestPurgeDropsCompletedMembers(t *testing.T) {
	hooks := &recordingHooks{}
	c, err := New(hooks, false, true, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	// One relation per way id 0..purgeEvery-1, each with a single member,
	// so the purgeEvery-th completion triggers a purge.
	for i := 0; i < purgeEvery; i++ {
		rel := entity.Relation{
			ID: int64(i),
			Members: []entity.RelationMember{
				{Kind: entity.KindWay, Ref: int64(i)},
			},
		}
		if err := c.Pass1(rel); err != nil {
			t.Fatalf("Pass1(%d): %v", i, err)
		}
	}
	c.FinishPass1()

	for i := 0; i < purgeEvery; i++ {
		if err := c.Pass2(entity.Way{ID: int64(i)}); err != nil {
			t.Fatalf("Pass2(%d): %v", i, err)
		}
	}

	if len(hooks.completed) != purgeEvery {
		t.Fatalf("completed = %d, want %d", len(hooks.completed), purgeEvery)
	}
	stats := c.Stats()
	// Every referenced way belonged only to a now-tombstoned relation, so
	// the purge triggered by the purgeEvery-th completion should have
	// dropped all of them back to an (almost) empty member store.
	if stats.MemberStoreBytes != 0 {
		t.Errorf("MemberStoreBytes = %d, want 0 after purge dropped all unreferenced members", stats.MemberStoreBytes)
	}
}

func TestCleanAssembledRelations(t *testing.T) {
	hooks := &recordingHooks{}
	c, err := New(hooks, false, true, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	rel := entity.Relation{
		ID:      1,
		Members: []entity.RelationMember{{Kind: entity.KindWay, Ref: 7}},
	}
	if err := c.Pass1(rel); err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	c.FinishPass1()
	if err := c.Pass2(entity.Way{ID: 7}); err != nil {
		t.Fatalf("Pass2: %v", err)
	}

	if got := c.CleanAssembledRelations(); got != 1 {
		t.Fatalf("CleanAssembledRelations = %d, want 1", got)
	}
	if c.Stats().RelationSlots != 0 {
		t.Errorf("RelationSlots = %d, want 0 after cleanup", c.Stats().RelationSlots)
	}
}

package spacestore

import (
	"testing"
	"time"

	"github.com/parleyhq/parley-go/internal/types"
)

func ts(day int) time.Time {
	return time.Date(2025, 6, day, 10, 0, 0, 0, time.UTC)
}

func TestStoreSpacesDeepMerge(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{
		ID:          "sp-1",
		DisplayName: "Project Parley",
		Type:        types.SpaceTypeGroup,
		Participants: []types.Participant{
			{ID: "u1", DisplayName: "Ada"},
		},
		Tags:      []string{types.TagFavorite},
		Published: ts(1),
	}})

	// Sparse update: absent fields must survive the merge.
	s.StoreSpaces([]types.Space{{
		ID:                       "sp-1",
		LatestActivity:           "act-9",
		LastReadableActivityDate: ts(2),
	}})

	sp, ok := s.Get("sp-1")
	if !ok {
		t.Fatal("space missing")
	}
	if sp.DisplayName != "Project Parley" {
		t.Fatalf("DisplayName = %q, lost in merge", sp.DisplayName)
	}
	if len(sp.Participants) != 1 || sp.Participants[0].ID != "u1" {
		t.Fatalf("Participants = %+v, lost in merge", sp.Participants)
	}
	if !sp.HasTag(types.TagFavorite) {
		t.Fatal("tags lost in merge")
	}
	if sp.LatestActivity != "act-9" {
		t.Fatalf("LatestActivity = %q", sp.LatestActivity)
	}
	if !sp.LastReadableActivityDate.Equal(ts(2)) {
		t.Fatalf("LastReadableActivityDate = %v", sp.LastReadableActivityDate)
	}
	if !sp.Published.Equal(ts(1)) {
		t.Fatalf("Published = %v, lost in merge", sp.Published)
	}
}

func TestStoreSpacesReplacesSetsWhenPresent(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{
		ID:           "sp-1",
		Participants: []types.Participant{{ID: "u1"}, {ID: "u2"}},
		Tags:         []string{types.TagFavorite, types.TagLocked},
	}})
	s.StoreSpaces([]types.Space{{
		ID:           "sp-1",
		Participants: []types.Participant{{ID: "u3"}},
		Tags:         []string{},
	}})

	sp, _ := s.Get("sp-1")
	if len(sp.Participants) != 1 || sp.Participants[0].ID != "u3" {
		t.Fatalf("Participants = %+v, want replaced set", sp.Participants)
	}
	if len(sp.Tags) != 0 {
		t.Fatalf("Tags = %v, want cleared by present empty set", sp.Tags)
	}
}

func TestStoreInitialSpacePlaceholder(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreInitialSpace("sp-1")
	sp, ok := s.Get("sp-1")
	if !ok || !sp.IsFetching {
		t.Fatalf("placeholder = %+v, %v", sp, ok)
	}

	// A failed fetch clears the flag and leaves the record untouched.
	s.MarkFetched("sp-1")
	sp, _ = s.Get("sp-1")
	if sp.IsFetching {
		t.Fatal("IsFetching still set after MarkFetched")
	}
	if sp.DisplayName != "" || len(sp.Participants) != 0 {
		t.Fatalf("failed fetch mutated record: %+v", sp)
	}

	// Re-fetching an existing space keeps its data.
	s.StoreSpaces([]types.Space{{ID: "sp-1", DisplayName: "Kept"}})
	s.StoreInitialSpace("sp-1")
	sp, _ = s.Get("sp-1")
	if sp.DisplayName != "Kept" || !sp.IsFetching {
		t.Fatalf("refetch placeholder = %+v", sp)
	}
}

func TestUpdateSpaceWithActivity(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{
		ID:           "sp-1",
		Participants: []types.Participant{{ID: "u1"}},
		Tags:         []string{types.TagFavorite},
	}})

	act := types.Activity{
		ID:        "act-1",
		Verb:      types.VerbPost,
		Published: ts(3),
		Target:    types.Target{ID: "sp-1"},
	}
	s.UpdateSpaceWithActivity(act, false, true)

	sp, _ := s.Get("sp-1")
	if sp.LatestActivity != "act-1" {
		t.Fatalf("LatestActivity = %q", sp.LatestActivity)
	}
	if !sp.LastReadableActivityDate.Equal(ts(3)) {
		t.Fatalf("LastReadableActivityDate = %v", sp.LastReadableActivityDate)
	}
	if !sp.LastSeenActivityDate.IsZero() {
		t.Fatalf("LastSeenActivityDate = %v, set for non-self", sp.LastSeenActivityDate)
	}
	if len(sp.Participants) != 1 || !sp.HasTag(types.TagFavorite) {
		t.Fatal("activity patch touched participants or tags")
	}

	// Self activity advances the seen date.
	act.ID = "act-2"
	act.Published = ts(4)
	s.UpdateSpaceWithActivity(act, true, true)
	sp, _ = s.Get("sp-1")
	if !sp.LastSeenActivityDate.Equal(ts(4)) {
		t.Fatalf("LastSeenActivityDate = %v", sp.LastSeenActivityDate)
	}

	// Lock/unlock verbs toggle the flag.
	s.UpdateSpaceWithActivity(types.Activity{ID: "act-3", Verb: types.VerbLock, Target: types.Target{ID: "sp-1"}}, false, false)
	if sp, _ = s.Get("sp-1"); !sp.IsLocked {
		t.Fatal("lock verb did not set IsLocked")
	}
	s.UpdateSpaceWithActivity(types.Activity{ID: "act-4", Verb: types.VerbUnlock, Target: types.Target{ID: "sp-1"}}, false, false)
	if sp, _ = s.Get("sp-1"); sp.IsLocked {
		t.Fatal("unlock verb did not clear IsLocked")
	}

	// Unknown target is a no-op.
	s.UpdateSpaceWithActivity(types.Activity{ID: "x", Target: types.Target{ID: "ghost"}}, false, false)
	if _, ok := s.Get("ghost"); ok {
		t.Fatal("activity patch created a space")
	}
}

func TestTagSetOps(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{ID: "sp-1", Tags: []string{types.TagFavorite}}})

	s.AddSpaceTags("sp-1", []string{types.TagLocked, types.TagFavorite})
	sp, _ := s.Get("sp-1")
	if len(sp.Tags) != 2 || !sp.IsLocked {
		t.Fatalf("after add: tags=%v locked=%v", sp.Tags, sp.IsLocked)
	}

	s.RemoveSpaceTags("sp-1", []string{types.TagLocked, "not-there"})
	sp, _ = s.Get("sp-1")
	if sp.HasTag(types.TagLocked) || sp.IsLocked {
		t.Fatalf("after remove: tags=%v locked=%v", sp.Tags, sp.IsLocked)
	}

	// Absent space is a no-op, not a creation.
	s.AddSpaceTags("ghost", []string{types.TagMuted})
	if _, ok := s.Get("ghost"); ok {
		t.Fatal("tag op created a space")
	}
}

func TestInFlightParticipants(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{ID: "sp-1", Participants: []types.Participant{{ID: "u1"}}}})

	byEmail := types.Participant{EmailAddress: "new@example.com"}
	s.BeginAddParticipant("sp-1", byEmail)

	adding, _ := s.InFlightParticipants("sp-1")
	if len(adding) != 1 || adding[0] != "new@example.com" {
		t.Fatalf("adding = %v", adding)
	}

	// Confirmation arrives with the resolved id; the email marker must
	// still clear, exactly once.
	confirmed := types.Participant{ID: "u2", EmailAddress: "new@example.com", DisplayName: "New"}
	s.ConfirmAddParticipant("sp-1", confirmed)

	adding, _ = s.InFlightParticipants("sp-1")
	if len(adding) != 0 {
		t.Fatalf("adding = %v, want cleared", adding)
	}
	sp, _ := s.Get("sp-1")
	if len(sp.Participants) != 2 {
		t.Fatalf("Participants = %+v", sp.Participants)
	}

	// Duplicate confirmation neither re-adds nor underflows.
	s.ConfirmAddParticipant("sp-1", confirmed)
	sp, _ = s.Get("sp-1")
	if len(sp.Participants) != 2 {
		t.Fatalf("duplicate confirm changed participants: %+v", sp.Participants)
	}
}

func TestFailedAddClearsMarkerOnly(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{ID: "sp-1", Participants: []types.Participant{{ID: "u1"}}}})

	p := types.Participant{ID: "u2"}
	s.BeginAddParticipant("sp-1", p)
	s.FailAddParticipant("sp-1", p)

	adding, _ := s.InFlightParticipants("sp-1")
	if len(adding) != 0 {
		t.Fatalf("adding = %v", adding)
	}
	sp, _ := s.Get("sp-1")
	if len(sp.Participants) != 1 {
		t.Fatalf("failed add mutated participants: %+v", sp.Participants)
	}
}

func TestRemoveParticipantFlow(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{ID: "sp-1", Participants: []types.Participant{{ID: "u1"}, {ID: "u2"}}}})

	p := types.Participant{ID: "u2"}
	s.BeginRemoveParticipant("sp-1", p)
	_, removing := s.InFlightParticipants("sp-1")
	if len(removing) != 1 || removing[0] != "u2" {
		t.Fatalf("removing = %v", removing)
	}

	s.ConfirmRemoveParticipant("sp-1", p)
	_, removing = s.InFlightParticipants("sp-1")
	if len(removing) != 0 {
		t.Fatalf("removing = %v, want cleared", removing)
	}
	sp, _ := s.Get("sp-1")
	if len(sp.Participants) != 1 || sp.Participants[0].ID != "u1" {
		t.Fatalf("Participants = %+v", sp.Participants)
	}
}

func TestSnapshotsImmune(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{
		ID:           "sp-1",
		Tags:         []string{types.TagLocked, types.TagMuted},
		Participants: []types.Participant{{ID: "u1"}, {ID: "u2"}},
	}})

	before, _ := s.Get("sp-1")

	s.RemoveSpaceTags("sp-1", []string{types.TagLocked})
	if len(before.Tags) != 2 || before.Tags[0] != types.TagLocked || before.Tags[1] != types.TagMuted {
		t.Fatalf("tag removal rewrote an earlier snapshot: %v", before.Tags)
	}

	s.ConfirmRemoveParticipant("sp-1", types.Participant{ID: "u1"})
	if len(before.Participants) != 2 || before.Participants[0].ID != "u1" {
		t.Fatalf("participant removal rewrote an earlier snapshot: %+v", before.Participants)
	}

	// Mutating a snapshot must not leak back into the store.
	before.Tags[0] = "SCRIBBLED"
	sp, _ := s.Get("sp-1")
	if sp.HasTag("SCRIBBLED") {
		t.Fatalf("snapshot write reached the store: %v", sp.Tags)
	}

	list := s.List()
	list[0].Participants[0].ID = "u9"
	sp, _ = s.Get("sp-1")
	if sp.Participants[0].ID != "u2" {
		t.Fatalf("List snapshot write reached the store: %+v", sp.Participants)
	}
}

func TestRemoveSpace(t *testing.T) {
	t.Parallel()

	s := New()
	s.StoreSpaces([]types.Space{{ID: "sp-1"}})
	s.BeginAddParticipant("sp-1", types.Participant{ID: "u9"})
	s.Remove("sp-1")

	if _, ok := s.Get("sp-1"); ok {
		t.Fatal("space still present")
	}
	if adding, _ := s.InFlightParticipants("sp-1"); adding != nil {
		t.Fatalf("in-flight survived removal: %v", adding)
	}
}

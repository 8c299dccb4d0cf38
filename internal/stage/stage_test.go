package stage_test

import (
	"errors"
	"testing"

	"docflow/internal/actor"
	"docflow/internal/stage"
)

func TestCatalogOrdering(t *testing.T) {
	all := stage.All()
	if len(all) != stage.Count {
		t.Fatalf("catalog has %d stages, want %d", len(all), stage.Count)
	}
	for i, s := range all {
		if s.Ordinal != i+1 {
			t.Fatalf("stage %s ordinal = %d, want %d", s.ID, s.Ordinal, i+1)
		}
		if len(s.OwnerRoles) == 0 {
			t.Fatalf("stage %s has no owner roles", s.ID)
		}
	}
}

func TestByOrdinalAndByID(t *testing.T) {
	for _, s := range stage.All() {
		byOrd, err := stage.ByOrdinal(s.Ordinal)
		if err != nil {
			t.Fatalf("ByOrdinal(%d): %v", s.Ordinal, err)
		}
		if byOrd.ID != s.ID {
			t.Fatalf("ByOrdinal(%d) = %s, want %s", s.Ordinal, byOrd.ID, s.ID)
		}
		byID, err := stage.ByID(s.ID)
		if err != nil {
			t.Fatalf("ByID(%s): %v", s.ID, err)
		}
		if byID.Ordinal != s.Ordinal {
			t.Fatalf("ByID(%s).Ordinal = %d, want %d", s.ID, byID.Ordinal, s.Ordinal)
		}
	}
}

func TestUnknownLookups(t *testing.T) {
	if _, err := stage.ByOrdinal(0); !errors.Is(err, stage.ErrUnknown) {
		t.Fatalf("ByOrdinal(0) err = %v", err)
	}
	if _, err := stage.ByOrdinal(9); !errors.Is(err, stage.ErrUnknown) {
		t.Fatalf("ByOrdinal(9) err = %v", err)
	}
	if _, err := stage.ByID("NOT_A_STAGE"); !errors.Is(err, stage.ErrUnknown) {
		t.Fatalf("ByID err = %v", err)
	}
	if _, err := stage.ByID(stage.Published); !errors.Is(err, stage.ErrUnknown) {
		t.Fatalf("ByID(Published) err = %v, want ErrUnknown (terminal marker is not a catalog stage)", err)
	}
}

func TestNextPrevious(t *testing.T) {
	all := stage.All()
	for i, s := range all {
		next, ok := s.Next()
		if i == len(all)-1 {
			if ok {
				t.Fatalf("stage %s unexpectedly has a next stage", s.ID)
			}
		} else if !ok || next.Ordinal != s.Ordinal+1 {
			t.Fatalf("stage %s next = %v %v", s.ID, next.ID, ok)
		}

		prev, ok := s.Previous()
		if i == 0 {
			if ok {
				t.Fatalf("stage %s unexpectedly has a previous stage", s.ID)
			}
		} else if !ok || prev.Ordinal != s.Ordinal-1 {
			t.Fatalf("stage %s previous = %v %v", s.ID, prev.ID, ok)
		}
	}
}

func TestPublishStageOwnership(t *testing.T) {
	last := stage.Last()
	if last.ID != stage.FinalPublishing {
		t.Fatalf("last stage = %s", last.ID)
	}
	want := map[actor.Role]struct{}{actor.RolePublisher: {}, actor.RoleAdmin: {}}
	if len(last.OwnerRoles) != len(want) {
		t.Fatalf("publish stage owners = %v", last.OwnerRoles)
	}
	for _, role := range last.OwnerRoles {
		if _, ok := want[role]; !ok {
			t.Fatalf("unexpected publish stage owner %s", role)
		}
	}
}

func TestOwns(t *testing.T) {
	draft := stage.First()
	if !draft.Owns(actor.RoleAuthor) {
		t.Fatal("author should own draft creation")
	}
	if !draft.Owns(actor.RoleAdmin) {
		t.Fatal("admin should own draft creation")
	}
	if draft.Owns(actor.RoleLegalReviewer) {
		t.Fatal("legal reviewer should not own draft creation")
	}
}

package stage_test

import (
	"errors"
	"testing"

	"docflow/internal/stage"
)

func TestTranslatorBijectiveOnCanonical(t *testing.T) {
	for _, s := range stage.All() {
		display := stage.ToDisplay(s)
		roundTrip, err := stage.ToCanonical(display)
		if err != nil {
			t.Fatalf("ToCanonical(%q): %v", display, err)
		}
		if roundTrip.ID != s.ID {
			t.Fatalf("ToCanonical(ToDisplay(%s)) = %s", s.ID, roundTrip.ID)
		}
	}
}

func TestTranslatorAcceptsCanonicalIDs(t *testing.T) {
	for _, s := range stage.All() {
		resolved, err := stage.ToCanonical(string(s.ID))
		if err != nil {
			t.Fatalf("ToCanonical(%q): %v", s.ID, err)
		}
		if resolved.ID != s.ID {
			t.Fatalf("ToCanonical(%q) = %s", s.ID, resolved.ID)
		}
	}
}

func TestTranslatorAliases(t *testing.T) {
	cases := []struct {
		input string
		want  stage.ID
	}{
		{"ICU Review", stage.InternalCoordination},
		{"1st Coordination", stage.InternalCoordination},
		{"2nd coordination", stage.ExternalCoordination},
		{"Technical Review", stage.ExternalCoordination},
		{"legal", stage.LegalReview},
		{"AFDPO", stage.FinalPublishing},
		{"afdpo publish", stage.FinalPublishing},
		{"opr_revisions", stage.OPRRevisions},
		{"  OPR Creates  ", stage.DraftCreation},
	}
	for _, tc := range cases {
		resolved, err := stage.ToCanonical(tc.input)
		if err != nil {
			t.Fatalf("ToCanonical(%q): %v", tc.input, err)
		}
		if resolved.ID != tc.want {
			t.Fatalf("ToCanonical(%q) = %s, want %s", tc.input, resolved.ID, tc.want)
		}
	}
}

func TestTranslatorRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "   ", "stage 9", "Coordination", "PUBLISHED"} {
		if resolved, err := stage.ToCanonical(input); !errors.Is(err, stage.ErrUnknown) {
			t.Fatalf("ToCanonical(%q) = %v, %v; want ErrUnknown", input, resolved.ID, err)
		}
	}
}

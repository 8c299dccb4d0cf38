package stage

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// The source system addressed stages by canonical id in some call sites and
// by display name (or older aliases) in others. The translator makes that a
// single total mapping: many aliases fold onto one canonical stage, while the
// canonical side stays bijective (one display name per id).

var displayAliases = map[string]ID{
	"icu review":            InternalCoordination,
	"internal coordination": InternalCoordination,
	"technical review":      ExternalCoordination,
	"external coordination": ExternalCoordination,
	"legal":                 LegalReview,
	"publish":               FinalPublishing,
	"afdpo":                 FinalPublishing,
	"final publishing":      FinalPublishing,
	"draft creation":        DraftCreation,
	"opr creates":           DraftCreation,
}

var foldedLookup = func() map[string]ID {
	index := make(map[string]ID, len(catalog)*2+len(displayAliases))
	for _, s := range catalog {
		index[foldKey(string(s.ID))] = s.ID
		index[foldKey(s.DisplayName)] = s.ID
	}
	for alias, id := range displayAliases {
		index[foldKey(alias)] = id
	}
	return index
}()

var keyFolder = cases.Fold()

// foldKey normalizes case and separator differences so "OPR_REVISIONS",
// "opr revisions", and "OPR Revisions" share one lookup key.
func foldKey(value string) string {
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return keyFolder.String(value)
}

// ToCanonical resolves a display name, alias, or canonical identifier into
// its Stage. Unknown input fails with ErrUnknown.
func ToCanonical(value string) (Stage, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Stage{}, fmt.Errorf("%w: empty stage name", ErrUnknown)
	}
	id, ok := foldedLookup[foldKey(trimmed)]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknown, trimmed)
	}
	return byID[id], nil
}

// ToDisplay returns the single display name for a stage.
func ToDisplay(s Stage) string {
	return s.DisplayName
}

// DisplayFor resolves an identifier to its display name. The terminal
// PUBLISHED marker and unrecognized ids render as the raw identifier so audit
// rows never lose information.
func DisplayFor(id ID) string {
	if s, ok := byID[id]; ok {
		return s.DisplayName
	}
	return string(id)
}

package stage

import (
	"errors"
	"fmt"

	"docflow/internal/actor"
)

// ErrUnknown marks lookups for stages outside the catalog. Unknown input is
// always an error; it never falls through to stage 1.
var ErrUnknown = errors.New("unknown stage")

// ID is the stable canonical identifier of a pipeline stage.
type ID string

const (
	DraftCreation        ID = "DRAFT_CREATION"
	InternalCoordination ID = "INTERNAL_COORDINATION"
	OPRRevisions         ID = "OPR_REVISIONS"
	ExternalCoordination ID = "EXTERNAL_COORDINATION"
	OPRFinal             ID = "OPR_FINAL"
	LegalReview          ID = "LEGAL_REVIEW"
	OPRLegal             ID = "OPR_LEGAL"
	FinalPublishing      ID = "FINAL_PUBLISHING"
)

// Published is the terminal marker reached by advancing out of stage 8. It is
// not part of the catalog; no transition leaves it.
const Published ID = "PUBLISHED"

// Stage is one fixed position in the approval pipeline. Stages are static
// configuration created at process start and never mutated.
type Stage struct {
	Ordinal     int
	ID          ID
	DisplayName string
	OwnerRoles  []actor.Role
}

// Count is the number of pipeline stages.
const Count = 8

var catalog = []Stage{
	{Ordinal: 1, ID: DraftCreation, DisplayName: "OPR Creates", OwnerRoles: []actor.Role{actor.RoleAuthor, actor.RoleAdmin}},
	{Ordinal: 2, ID: InternalCoordination, DisplayName: "1st Coordination", OwnerRoles: []actor.Role{actor.RoleTechnicalReviewer, actor.RoleAdmin}},
	{Ordinal: 3, ID: OPRRevisions, DisplayName: "OPR Revisions", OwnerRoles: []actor.Role{actor.RoleAuthor, actor.RoleAdmin}},
	{Ordinal: 4, ID: ExternalCoordination, DisplayName: "2nd Coordination", OwnerRoles: []actor.Role{actor.RoleTechnicalReviewer, actor.RoleAdmin}},
	{Ordinal: 5, ID: OPRFinal, DisplayName: "OPR Final", OwnerRoles: []actor.Role{actor.RoleAuthor, actor.RoleAdmin}},
	{Ordinal: 6, ID: LegalReview, DisplayName: "Legal Review", OwnerRoles: []actor.Role{actor.RoleLegalReviewer, actor.RoleAdmin}},
	{Ordinal: 7, ID: OPRLegal, DisplayName: "OPR Legal", OwnerRoles: []actor.Role{actor.RoleAuthor, actor.RoleAdmin}},
	{Ordinal: 8, ID: FinalPublishing, DisplayName: "AFDPO Publish", OwnerRoles: []actor.Role{actor.RolePublisher, actor.RoleAdmin}},
}

var byID = func() map[ID]Stage {
	index := make(map[ID]Stage, len(catalog))
	for _, s := range catalog {
		index[s.ID] = s
	}
	return index
}()

// All returns the ordered catalog of the eight pipeline stages.
func All() []Stage {
	cp := make([]Stage, len(catalog))
	copy(cp, catalog)
	return cp
}

// ByOrdinal resolves a stage by its 1-based pipeline position.
func ByOrdinal(ordinal int) (Stage, error) {
	if ordinal < 1 || ordinal > len(catalog) {
		return Stage{}, fmt.Errorf("%w: ordinal %d", ErrUnknown, ordinal)
	}
	return catalog[ordinal-1], nil
}

// ByID resolves a stage by its canonical identifier.
func ByID(id ID) (Stage, error) {
	s, ok := byID[id]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknown, string(id))
	}
	return s, nil
}

// Next returns the stage after s, or false when s is terminal.
func (s Stage) Next() (Stage, bool) {
	if s.Ordinal >= len(catalog) {
		return Stage{}, false
	}
	return catalog[s.Ordinal], true
}

// Previous returns the stage before s, or false when s is first.
func (s Stage) Previous() (Stage, bool) {
	if s.Ordinal <= 1 {
		return Stage{}, false
	}
	return catalog[s.Ordinal-2], true
}

// Owns reports whether the role belongs to the stage's owner set, i.e. may
// push the document out of this stage.
func (s Stage) Owns(role actor.Role) bool {
	for _, owner := range s.OwnerRoles {
		if owner == role {
			return true
		}
	}
	return false
}

// First returns stage 1.
func First() Stage {
	return catalog[0]
}

// Last returns stage 8.
func Last() Stage {
	return catalog[len(catalog)-1]
}

package store

import (
	"time"

	"docflow/internal/actor"
	"docflow/internal/stage"
)

// EntryKind classifies a committed transition in the audit trail.
type EntryKind string

const (
	KindStart     EntryKind = "START"
	KindAdvance   EntryKind = "ADVANCE"
	KindBackward  EntryKind = "BACKWARD"
	KindAdminJump EntryKind = "ADMIN_JUMP"
	KindReset     EntryKind = "RESET"
)

// Instance is the per-document workflow state persisted in SQLite. Version
// increases monotonically on every committed transition and is the
// compare-and-swap token for optimistic concurrency.
type Instance struct {
	ID           string
	DocumentID   string
	CurrentStage stage.ID
	IsActive     bool
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntry is one immutable record of a committed transition. Entries are
// never mutated or deleted; an instance's current stage always equals the
// ToStage of its highest-sequence entry.
type AuditEntry struct {
	InstanceID     string
	Seq            int64
	Kind           EntryKind
	FromStage      stage.ID
	ToStage        stage.ID
	ActorRole      actor.Role
	ActorIdentity  string
	Reason         string
	TransitionData string
	CreatedAt      time.Time
}

// FeedbackRecord is the stage-scoped commentary surfaced to the next stage's
// occupant. A later submission for the same (instance, stage) supersedes the
// record for display; prior content remains recoverable from the audit trail.
type FeedbackRecord struct {
	InstanceID     string
	Stage          stage.ID
	Content        string
	Comments       string
	AuthorIdentity string
	SubmittedAt    time.Time
}

// Transition describes one atomic mutation: the instance CAS, the audit
// entry appended with it, and an optional feedback upsert. Either all three
// commit or none do.
type Transition struct {
	InstanceID      string
	ExpectedVersion int64
	ToStage         stage.ID
	Deactivate      bool
	Entry           AuditEntry
	Feedback        *FeedbackRecord
}

// DatabaseHealth captures diagnostic information about the workflow database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	Instances        int
	AuditEntries     int
	IntegrityCheck   bool
	Error            string
}

// FoldStage replays an ordered audit trail and returns the stage it ends on.
// Used as a consistency check against the materialized instance state.
func FoldStage(entries []*AuditEntry) (stage.ID, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[len(entries)-1].ToStage, true
}

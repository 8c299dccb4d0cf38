// Package store persists workflow instances, the append-only audit trail,
// and stage-scoped feedback records in SQLite.
//
// Every mutation after instance creation goes through ApplyTransition, which
// commits the instance compare-and-swap, the audit append, and any feedback
// upsert in a single transaction. A partial write (stage moved without its
// audit entry, or vice versa) is never observable. Optimistic concurrency
// uses the instance version column; a stale expected version surfaces as
// ErrVersionConflict for the caller to retry.
//
// Audit entries are never mutated or deleted. Treat this package as the
// single source of truth for workflow state; no component holds a second,
// independently mutated copy of the current stage.
package store

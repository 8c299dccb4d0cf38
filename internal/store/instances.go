package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/stage"
)

const instanceColumns = "id, document_id, current_stage, is_active, version, created_at, updated_at"

// CreateInstance inserts a new active workflow instance at stage 1 together
// with its START audit entry. Fails with ErrActiveInstanceExists when the
// document already has an active instance.
func (s *Store) CreateInstance(ctx context.Context, documentID string, entry AuditEntry) (*Instance, *AuditEntry, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	first := stage.First()
	entry.InstanceID = id
	entry.Seq = 1
	entry.Kind = KindStart
	entry.FromStage = ""
	entry.ToStage = first.ID
	entry.CreatedAt = now

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var existing int
		row := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM workflow_instances WHERE document_id = ? AND is_active = 1`, documentID)
		if err := row.Scan(&existing); err != nil {
			return fmt.Errorf("check active instance: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: document %s", ErrActiveInstanceExists, documentID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_instances (id, document_id, current_stage, is_active, version, created_at, updated_at)
             VALUES (?, ?, ?, 1, 1, ?, ?)`,
			id, documentID, string(first.ID), timestamp, timestamp,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: document %s", ErrActiveInstanceExists, documentID)
			}
			return fmt.Errorf("insert instance: %w", err)
		}

		if err := insertAuditEntry(ctx, tx, &entry); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit instance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	instance, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return instance, &entry, nil
}

// GetByID fetches a workflow instance by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Instance, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM workflow_instances WHERE id = ?`, id)
	instance, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return instance, nil
}

// GetByDocument returns the document's active instance, or when none is
// active, the most recently updated terminated one. Returns nil when the
// document has never had a workflow.
func (s *Store) GetByDocument(ctx context.Context, documentID string) (*Instance, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM workflow_instances
         WHERE document_id = ?
         ORDER BY is_active DESC, updated_at DESC, created_at DESC
         LIMIT 1`, documentID)
	instance, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance by document: %w", err)
	}
	return instance, nil
}

// ApplyTransition commits one transition atomically: compare-and-swap on the
// instance version, append the audit entry at the next sequence number, and
// upsert any feedback payload. A stale expected version fails with
// ErrVersionConflict and leaves the database untouched.
func (s *Store) ApplyTransition(ctx context.Context, t Transition) (*Instance, *AuditEntry, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	entry := t.Entry
	entry.InstanceID = t.InstanceID
	entry.ToStage = t.ToStage
	entry.CreatedAt = now

	active := 1
	if t.Deactivate {
		active = 0
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE workflow_instances
             SET current_stage = ?, is_active = ?, version = version + 1, updated_at = ?
             WHERE id = ? AND version = ?`,
			string(t.ToStage), active, timestamp, t.InstanceID, t.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: instance %s at version %d", ErrVersionConflict, t.InstanceID, t.ExpectedVersion)
		}

		var seq int64
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_entries WHERE instance_id = ?`, t.InstanceID)
		if err := row.Scan(&seq); err != nil {
			return fmt.Errorf("next audit sequence: %w", err)
		}
		entry.Seq = seq

		if err := insertAuditEntry(ctx, tx, &entry); err != nil {
			return err
		}

		if t.Feedback != nil {
			fb := *t.Feedback
			fb.InstanceID = t.InstanceID
			fb.SubmittedAt = now
			if err := upsertFeedback(ctx, tx, &fb); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	instance, err := s.GetByID(ctx, t.InstanceID)
	if err != nil {
		return nil, nil, err
	}
	return instance, &entry, nil
}

func scanInstance(scanner interface{ Scan(dest ...any) error }) (*Instance, error) {
	var (
		id         string
		documentID string
		stageStr   string
		isActive   int64
		version    int64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &documentID, &stageStr, &isActive, &version, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	instance := &Instance{
		ID:           id,
		DocumentID:   documentID,
		CurrentStage: stage.ID(stageStr),
		IsActive:     isActive != 0,
		Version:      version,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		instance.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		instance.UpdatedAt = updated
	}
	return instance, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint violation")
}

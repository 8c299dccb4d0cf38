package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docflow/internal/actor"
	"docflow/internal/stage"
)

const auditColumns = "instance_id, seq, kind, from_stage, to_stage, actor_role, actor_identity, reason, transition_data, created_at"

// History returns an instance's audit trail ordered oldest first.
func (s *Store) History(ctx context.Context, instanceID string) ([]*AuditEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_entries WHERE instance_id = ? ORDER BY seq`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FeedbackFor returns the current feedback record for a stage slot, or nil
// when none has been submitted.
func (s *Store) FeedbackFor(ctx context.Context, instanceID string, stageID stage.ID) (*FeedbackRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT instance_id, stage, content, comments, author_identity, submitted_at
         FROM feedback_records WHERE instance_id = ? AND stage = ?`,
		instanceID, string(stageID))
	record, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return record, nil
}

// UpsertFeedback stores or supersedes the feedback record for a stage slot.
func (s *Store) UpsertFeedback(ctx context.Context, record FeedbackRecord) (*FeedbackRecord, error) {
	ctx = ensureContext(ctx)
	record.SubmittedAt = time.Now().UTC()
	err := retryOnBusy(ctx, func() error {
		return upsertFeedback(ctx, s.db, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAuditEntry(ctx context.Context, ex execer, entry *AuditEntry) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO audit_entries (`+auditColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.InstanceID,
		entry.Seq,
		string(entry.Kind),
		nullableString(string(entry.FromStage)),
		string(entry.ToStage),
		string(entry.ActorRole),
		entry.ActorIdentity,
		nullableString(entry.Reason),
		nullableString(entry.TransitionData),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func upsertFeedback(ctx context.Context, ex execer, record *FeedbackRecord) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO feedback_records (instance_id, stage, content, comments, author_identity, submitted_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (instance_id, stage) DO UPDATE SET
             content = excluded.content,
             comments = excluded.comments,
             author_identity = excluded.author_identity,
             submitted_at = excluded.submitted_at`,
		record.InstanceID,
		string(record.Stage),
		record.Content,
		nullableString(record.Comments),
		record.AuthorIdentity,
		record.SubmittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	var (
		instanceID     string
		seq            int64
		kind           string
		fromStage      sql.NullString
		toStage        string
		actorRole      string
		actorIdentity  string
		reason         sql.NullString
		transitionData sql.NullString
		createdRaw     string
	)
	if err := scanner.Scan(&instanceID, &seq, &kind, &fromStage, &toStage, &actorRole, &actorIdentity, &reason, &transitionData, &createdRaw); err != nil {
		return nil, err
	}

	entry := &AuditEntry{
		InstanceID:     instanceID,
		Seq:            seq,
		Kind:           EntryKind(kind),
		FromStage:      stage.ID(fromStage.String),
		ToStage:        stage.ID(toStage),
		ActorRole:      actor.Role(actorRole),
		ActorIdentity:  actorIdentity,
		Reason:         reason.String,
		TransitionData: transitionData.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func scanFeedback(scanner interface{ Scan(dest ...any) error }) (*FeedbackRecord, error) {
	var (
		instanceID   string
		stageStr     string
		content      string
		comments     sql.NullString
		author       string
		submittedRaw string
	)
	if err := scanner.Scan(&instanceID, &stageStr, &content, &comments, &author, &submittedRaw); err != nil {
		return nil, err
	}

	record := &FeedbackRecord{
		InstanceID:     instanceID,
		Stage:          stage.ID(stageStr),
		Content:        content,
		Comments:       comments.String,
		AuthorIdentity: author,
	}
	if submitted, err := parseTimeString(submittedRaw); err == nil {
		record.SubmittedAt = submitted
	}
	return record, nil
}

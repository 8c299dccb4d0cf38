package api

import (
	"encoding/json"
	"time"

	"docflow/internal/stage"
	"docflow/internal/store"
)

// FromInstance converts an instance record to its API representation.
func FromInstance(instance *store.Instance) InstanceView {
	if instance == nil {
		return InstanceView{}
	}
	view := InstanceView{
		ID:         instance.ID,
		DocumentID: instance.DocumentID,
		Stage:      string(instance.CurrentStage),
		StageName:  stage.DisplayFor(instance.CurrentStage),
		Active:     instance.IsActive,
		Version:    instance.Version,
		CreatedAt:  FormatTime(instance.CreatedAt),
		UpdatedAt:  FormatTime(instance.UpdatedAt),
	}
	if s, err := stage.ByID(instance.CurrentStage); err == nil {
		view.StageOrdinal = s.Ordinal
	}
	return view
}

// FromAuditEntry converts one audit record.
func FromAuditEntry(entry *store.AuditEntry) TransitionView {
	if entry == nil {
		return TransitionView{}
	}
	view := TransitionView{
		Seq:           entry.Seq,
		Kind:          string(entry.Kind),
		FromStage:     string(entry.FromStage),
		ToStage:       string(entry.ToStage),
		ToStageName:   stage.DisplayFor(entry.ToStage),
		ActorRole:     string(entry.ActorRole),
		ActorIdentity: entry.ActorIdentity,
		Reason:        entry.Reason,
		CreatedAt:     FormatTime(entry.CreatedAt),
	}
	if entry.FromStage != "" {
		view.FromStageName = stage.DisplayFor(entry.FromStage)
	}
	if raw := entry.TransitionData; raw != "" {
		view.TransitionData = json.RawMessage(raw)
	}
	return view
}

// FromAuditEntries converts an audit trail into API DTOs, preserving order.
func FromAuditEntries(entries []*store.AuditEntry) []TransitionView {
	if len(entries) == 0 {
		return nil
	}
	out := make([]TransitionView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromAuditEntry(entry))
	}
	return out
}

// FromFeedback converts a feedback record.
func FromFeedback(record *store.FeedbackRecord) FeedbackView {
	if record == nil {
		return FeedbackView{}
	}
	return FeedbackView{
		Stage:          string(record.Stage),
		StageName:      stage.DisplayFor(record.Stage),
		Content:        record.Content,
		Comments:       record.Comments,
		AuthorIdentity: record.AuthorIdentity,
		SubmittedAt:    FormatTime(record.SubmittedAt),
	}
}

// StageCatalog returns the full ordered catalog as API DTOs.
func StageCatalog() []StageView {
	stages := stage.All()
	out := make([]StageView, 0, len(stages))
	for _, s := range stages {
		roles := make([]string, 0, len(s.OwnerRoles))
		for _, role := range s.OwnerRoles {
			roles = append(roles, string(role))
		}
		out = append(out, StageView{
			Ordinal:     s.Ordinal,
			ID:          string(s.ID),
			DisplayName: s.DisplayName,
			OwnerRoles:  roles,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

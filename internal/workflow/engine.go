package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docflow/internal/actor"
	"docflow/internal/stage"
	"docflow/internal/store"
)

// TransitionData is the opaque payload a caller may attach to a transition.
// It lands verbatim in the audit entry; when it carries feedback for a stage
// slot, the corresponding feedback record is upserted in the same commit.
type TransitionData struct {
	Notes    string           `json:"notes,omitempty"`
	Feedback *FeedbackPayload `json:"feedback,omitempty"`
}

// FeedbackPayload addresses one stage's feedback slot.
type FeedbackPayload struct {
	Stage    string `json:"stage"`
	Content  string `json:"content"`
	Comments string `json:"comments,omitempty"`
}

// Actor is the authenticated participant attempting a transition.
type Actor struct {
	Role     actor.Role
	Identity string
}

// Result is the outcome of a committed transition: the refreshed instance
// snapshot and the audit entry recorded for it.
type Result struct {
	Instance *store.Instance
	Entry    *store.AuditEntry
}

// Engine orchestrates validated transitions against workflow instances. Each
// call is synchronous and stateless; concurrency safety comes from the
// store's per-instance compare-and-swap, so unrelated documents never
// contend.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New constructs a transition engine over the given store.
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// Start creates and activates a workflow instance for a document at stage 1.
// Fails with ErrActiveInstanceExists when the document already has one.
func (e *Engine) Start(ctx context.Context, documentID string, act Actor) (Result, error) {
	if strings.TrimSpace(documentID) == "" {
		return Result{}, fmt.Errorf("%w: empty document id", ErrInvalidTarget)
	}
	if decision := Authorize(nil, Request{Intent: IntentStart}, act.Role); !decision.Allowed {
		return Result{}, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}

	instance, entry, err := e.store.CreateInstance(ctx, documentID, store.AuditEntry{
		ActorRole:     act.Role,
		ActorIdentity: act.Identity,
	})
	if err != nil {
		if errors.Is(err, store.ErrActiveInstanceExists) {
			return Result{}, fmt.Errorf("%w: %s", ErrActiveInstanceExists, documentID)
		}
		return Result{}, fmt.Errorf("start workflow: %w", err)
	}

	e.logger.Info("workflow started",
		slog.String("instance", instance.ID),
		slog.String("document", documentID),
		slog.String("role", string(act.Role)))
	return Result{Instance: instance, Entry: entry}, nil
}

// Advance moves the instance one stage forward. Advancing out of stage 8
// publishes the document: the instance becomes inactive at the terminal
// PUBLISHED marker.
func (e *Engine) Advance(ctx context.Context, instanceID string, act Actor, data *TransitionData) (Result, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return Result{}, err
	}
	if err := e.authorize(instance, Request{Intent: IntentAdvance}, act.Role); err != nil {
		return Result{}, err
	}

	current, err := stage.ByID(instance.CurrentStage)
	if err != nil {
		return Result{}, fmt.Errorf("%w: instance at %q", ErrInvalidTarget, instance.CurrentStage)
	}

	target := stage.Published
	deactivate := true
	if next, ok := current.Next(); ok {
		target = next.ID
		deactivate = false
	}

	return e.apply(ctx, instance, store.Transition{
		ToStage:    target,
		Deactivate: deactivate,
		Entry: store.AuditEntry{
			Kind:      store.KindAdvance,
			FromStage: instance.CurrentStage,
		},
	}, act, data)
}

// MoveBackward returns the instance to an earlier stage. Admin only; the
// reason is mandatory and recorded in the audit entry.
func (e *Engine) MoveBackward(ctx context.Context, instanceID string, act Actor, targetStage, reason string, data *TransitionData) (Result, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return Result{}, err
	}
	if err := e.authorize(instance, Request{Intent: IntentBackward, Reason: reason}, act.Role); err != nil {
		return Result{}, err
	}

	target, err := stage.ToCanonical(targetStage)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	current, err := stage.ByID(instance.CurrentStage)
	if err != nil {
		return Result{}, fmt.Errorf("%w: instance at %q", ErrInvalidTarget, instance.CurrentStage)
	}
	if target.Ordinal >= current.Ordinal {
		return Result{}, fmt.Errorf("%w: %s is not before %s", ErrInvalidTarget, target.ID, current.ID)
	}

	return e.apply(ctx, instance, store.Transition{
		ToStage: target.ID,
		Entry: store.AuditEntry{
			Kind:      store.KindBackward,
			FromStage: instance.CurrentStage,
			Reason:    reason,
		},
	}, act, data)
}

// AdminJump moves the instance to an arbitrary catalog stage, bypassing
// adjacency rules. Admin only; always recorded as an override.
func (e *Engine) AdminJump(ctx context.Context, instanceID string, act Actor, targetStage, reason string) (Result, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return Result{}, err
	}
	if err := e.authorize(instance, Request{Intent: IntentAdminJump, Reason: reason}, act.Role); err != nil {
		return Result{}, err
	}

	target, err := stage.ToCanonical(targetStage)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	return e.apply(ctx, instance, store.Transition{
		ToStage: target.ID,
		Entry: store.AuditEntry{
			Kind:      store.KindAdminJump,
			FromStage: instance.CurrentStage,
			Reason:    reason,
		},
	}, act, nil)
}

// Reset returns the instance to stage 1 while preserving its identity, audit
// trail, and feedback records. Admin only; requires the caller-supplied
// confirmation token.
func (e *Engine) Reset(ctx context.Context, instanceID string, act Actor, confirmation string) (Result, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return Result{}, err
	}
	if err := e.authorize(instance, Request{Intent: IntentReset, Confirmation: confirmation}, act.Role); err != nil {
		return Result{}, err
	}

	return e.apply(ctx, instance, store.Transition{
		ToStage: stage.First().ID,
		Entry: store.AuditEntry{
			Kind:      store.KindReset,
			FromStage: instance.CurrentStage,
			Reason:    "workflow reset",
		},
	}, act, nil)
}

// Status returns the workflow instance for a document: the active one, or
// the most recent terminated one, or nil when the document has never had a
// workflow.
func (e *Engine) Status(ctx context.Context, documentID string) (*store.Instance, error) {
	instance, err := e.store.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("workflow status: %w", err)
	}
	return instance, nil
}

// History returns an instance's audit trail, oldest first.
func (e *Engine) History(ctx context.Context, instanceID string) ([]*store.AuditEntry, error) {
	if _, err := e.load(ctx, instanceID); err != nil {
		return nil, err
	}
	entries, err := e.store.History(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("workflow history: %w", err)
	}
	return entries, nil
}

// SubmitFeedback records stage-scoped commentary outside a transition,
// superseding any prior record for the same slot.
func (e *Engine) SubmitFeedback(ctx context.Context, instanceID string, act Actor, stageName, content, comments string) (*store.FeedbackRecord, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if !instance.IsActive {
		return nil, fmt.Errorf("%w: instance %s", ErrNotStarted, instanceID)
	}
	target, err := stage.ToCanonical(stageName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: feedback content is empty", ErrInvalidTarget)
	}

	record, err := e.store.UpsertFeedback(ctx, store.FeedbackRecord{
		InstanceID:     instanceID,
		Stage:          target.ID,
		Content:        content,
		Comments:       comments,
		AuthorIdentity: act.Identity,
	})
	if err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}

	e.logger.Info("feedback submitted",
		slog.String("instance", instanceID),
		slog.String("stage", string(target.ID)),
		slog.String("author", act.Identity))
	return record, nil
}

// Feedback returns the current feedback record for a stage slot, or nil.
func (e *Engine) Feedback(ctx context.Context, instanceID, stageName string) (*store.FeedbackRecord, error) {
	if _, err := e.load(ctx, instanceID); err != nil {
		return nil, err
	}
	target, err := stage.ToCanonical(stageName)
	if err != nil {
		return nil, err
	}
	record, err := e.store.FeedbackFor(ctx, instanceID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return record, nil
}

// Permissions reports which intents the guard currently grants the actor on
// the instance.
func (e *Engine) Permissions(ctx context.Context, instanceID string, role actor.Role) ([]Intent, error) {
	instance, err := e.load(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return AllowedIntents(instance, role), nil
}

// load fetches an instance, mapping absence to ErrInstanceNotFound.
func (e *Engine) load(ctx context.Context, instanceID string) (*store.Instance, error) {
	instance, err := e.store.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	return instance, nil
}

// authorize maps a guard denial onto the error taxonomy. Inactive-instance
// denials surface as ErrNotStarted so callers can distinguish them from role
// denials.
func (e *Engine) authorize(instance *store.Instance, req Request, role actor.Role) error {
	decision := Authorize(instance, req, role)
	if decision.Allowed {
		return nil
	}
	if instance != nil && !instance.IsActive {
		return fmt.Errorf("%w: %s", ErrNotStarted, decision.Reason)
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
}

// apply commits a validated transition, attaching any transition payload and
// its feedback upsert to the same atomic write.
func (e *Engine) apply(ctx context.Context, instance *store.Instance, t store.Transition, act Actor, data *TransitionData) (Result, error) {
	t.InstanceID = instance.ID
	t.ExpectedVersion = instance.Version
	t.Entry.ActorRole = act.Role
	t.Entry.ActorIdentity = act.Identity

	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return Result{}, fmt.Errorf("encode transition data: %w", err)
		}
		t.Entry.TransitionData = string(encoded)

		if data.Feedback != nil {
			slot, err := stage.ToCanonical(data.Feedback.Stage)
			if err != nil {
				return Result{}, fmt.Errorf("%w: feedback %v", ErrInvalidTarget, err)
			}
			t.Feedback = &store.FeedbackRecord{
				Stage:          slot.ID,
				Content:        data.Feedback.Content,
				Comments:       data.Feedback.Comments,
				AuthorIdentity: act.Identity,
			}
		}
	}

	updated, entry, err := e.store.ApplyTransition(ctx, t)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return Result{}, fmt.Errorf("%w: instance %s", ErrConcurrentModification, instance.ID)
		}
		return Result{}, fmt.Errorf("apply transition: %w", err)
	}

	e.logger.Info("workflow transition",
		slog.String("instance", updated.ID),
		slog.String("kind", string(entry.Kind)),
		slog.String("from", string(entry.FromStage)),
		slog.String("to", string(entry.ToStage)),
		slog.String("role", string(act.Role)))
	return Result{Instance: updated, Entry: entry}, nil
}

package api

import (
	"context"

	"docflow/internal/actor"
	"docflow/internal/store"
	"docflow/internal/workflow"
)

// WorkflowReader abstracts the engine queries the read endpoints need.
type WorkflowReader interface {
	Status(ctx context.Context, documentID string) (*store.Instance, error)
	History(ctx context.Context, instanceID string) ([]*store.AuditEntry, error)
	Feedback(ctx context.Context, instanceID, stageName string) (*store.FeedbackRecord, error)
	Permissions(ctx context.Context, instanceID string, role actor.Role) ([]workflow.Intent, error)
}

// WorkflowService exposes read-only workflow operations returning API DTOs.
type WorkflowService struct {
	engine WorkflowReader
}

// NewWorkflowService constructs a WorkflowService around the provided reader.
func NewWorkflowService(engine WorkflowReader) *WorkflowService {
	if engine == nil {
		return nil
	}
	return &WorkflowService{engine: engine}
}

// Status returns the document's workflow instance view, or nil when the
// document has never had a workflow.
func (s *WorkflowService) Status(ctx context.Context, documentID string) (*InstanceView, error) {
	if s == nil || s.engine == nil {
		return nil, nil
	}
	instance, err := s.engine.Status(ctx, documentID)
	if err != nil || instance == nil {
		return nil, err
	}
	view := FromInstance(instance)
	return &view, nil
}

// History returns the instance's audit trail as DTOs, oldest first.
func (s *WorkflowService) History(ctx context.Context, instanceID string) ([]TransitionView, error) {
	if s == nil || s.engine == nil {
		return nil, nil
	}
	entries, err := s.engine.History(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return FromAuditEntries(entries), nil
}

// Feedback returns the feedback view for one stage slot, or nil when empty.
func (s *WorkflowService) Feedback(ctx context.Context, instanceID, stageName string) (*FeedbackView, error) {
	if s == nil || s.engine == nil {
		return nil, nil
	}
	record, err := s.engine.Feedback(ctx, instanceID, stageName)
	if err != nil || record == nil {
		return nil, err
	}
	view := FromFeedback(record)
	return &view, nil
}

// Permissions reports the intents the role currently holds on the instance.
func (s *WorkflowService) Permissions(ctx context.Context, instanceID string, role actor.Role) (PermissionsView, error) {
	view := PermissionsView{Role: string(role), Intents: []string{}}
	if s == nil || s.engine == nil {
		return view, nil
	}
	intents, err := s.engine.Permissions(ctx, instanceID, role)
	if err != nil {
		return view, err
	}
	for _, intent := range intents {
		view.Intents = append(view.Intents, string(intent))
	}
	return view, nil
}

package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// InstanceView describes a workflow instance in a transport-friendly format.
type InstanceView struct {
	ID            string `json:"id"`
	DocumentID    string `json:"documentId"`
	Stage         string `json:"stage"`
	StageName     string `json:"stageName"`
	StageOrdinal  int    `json:"stageOrdinal,omitempty"`
	Active        bool   `json:"active"`
	Version       int64  `json:"version"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// TransitionView is one audit trail entry.
type TransitionView struct {
	Seq            int64           `json:"seq"`
	Kind           string          `json:"kind"`
	FromStage      string          `json:"fromStage,omitempty"`
	FromStageName  string          `json:"fromStageName,omitempty"`
	ToStage        string          `json:"toStage"`
	ToStageName    string          `json:"toStageName"`
	ActorRole      string          `json:"actorRole"`
	ActorIdentity  string          `json:"actorIdentity,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	TransitionData json.RawMessage `json:"transitionData,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
}

// FeedbackView is the current feedback record for one stage slot.
type FeedbackView struct {
	Stage          string `json:"stage"`
	StageName      string `json:"stageName"`
	Content        string `json:"content"`
	Comments       string `json:"comments,omitempty"`
	AuthorIdentity string `json:"authorIdentity,omitempty"`
	SubmittedAt    string `json:"submittedAt,omitempty"`
}

// StageView describes one catalog stage, owner roles included.
type StageView struct {
	Ordinal     int      `json:"ordinal"`
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	OwnerRoles  []string `json:"ownerRoles"`
}

// PermissionsView reports the intents a role currently holds on an instance.
type PermissionsView struct {
	Role    string   `json:"role"`
	Intents []string `json:"intents"`
}

// TransitionResult pairs the refreshed instance with the audit entry the
// transition recorded.
type TransitionResult struct {
	Instance InstanceView   `json:"instance"`
	Entry    TransitionView `json:"entry"`
}

// InstanceResponse wraps a single instance.
type InstanceResponse struct {
	Instance InstanceView `json:"instance"`
}

// HistoryResponse wraps an instance's audit trail, oldest first.
type HistoryResponse struct {
	InstanceID string           `json:"instanceId"`
	Entries    []TransitionView `json:"entries"`
}

// StagesResponse wraps the ordered stage catalog.
type StagesResponse struct {
	Stages []StageView `json:"stages"`
}

// StartRequest begins a workflow for a document.
type StartRequest struct {
	DocumentID string `json:"documentId"`
}

// AdvanceRequest optionally attaches a payload to a forward transition.
type AdvanceRequest struct {
	Notes    string           `json:"notes,omitempty"`
	Feedback *FeedbackRequest `json:"feedback,omitempty"`
}

// BackwardRequest names an earlier target stage with a mandatory reason.
type BackwardRequest struct {
	TargetStage string `json:"targetStage"`
	Reason      string `json:"reason"`
}

// JumpRequest names an arbitrary catalog stage for an admin override.
type JumpRequest struct {
	TargetStage string `json:"targetStage"`
	Reason      string `json:"reason,omitempty"`
}

// ResetRequest carries the operator confirmation token.
type ResetRequest struct {
	Confirmation string `json:"confirmation"`
}

// FeedbackRequest submits or replaces a stage's feedback record.
type FeedbackRequest struct {
	Stage    string `json:"stage"`
	Content  string `json:"content"`
	Comments string `json:"comments,omitempty"`
}

package audit

import (
	"context"
	"time"

	id "veristage/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: submissions, admin force-completions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: stage transitions, autosaves, upload failures.
	CategoryOperations EventCategory = "operations"
)

// Action names what happened to a workflow instance.
type Action string

const (
	ActionStageAdvanced  Action = "stage_advanced"
	ActionStageRetreated Action = "stage_retreated"
	ActionStageJumped    Action = "stage_jumped"
	ActionUploadFailed   Action = "upload_failed"
	ActionProgressSaved  Action = "progress_saved"
	ActionSubmitted      Action = "workflow_submitted"
	ActionForceCompleted Action = "workflow_force_completed"
	ActionSubmitRejected Action = "workflow_submit_rejected"
)

// Event is emitted from workflow logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	ApplicantID id.ApplicantID
	Action      Action
	Stage       int
	// ActorID tracks who performed the action when different from the
	// applicant: admin-assisted operations record the operator here.
	ActorID string
	// Detail carries action-specific context, e.g. the stages left
	// incomplete by a force-completion or the slot whose upload failed.
	Detail    string
	RequestID string
	Device    string
}

// Store persists audit events. Implementations: in-memory (tests, dev),
// Postgres outbox, Kafka sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

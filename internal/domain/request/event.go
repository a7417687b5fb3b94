package request

import "time"

// Action identifies what happened at an approval step
type Action string

const (
	ActionAssigned  Action = "ASSIGNED"
	ActionApproved  Action = "APPROVED"
	ActionRejected  Action = "REJECTED"
	ActionCancelled Action = "CANCELLED"
	ActionCompleted Action = "COMPLETED"
)

// ApprovalEvent is an append-only audit record of a lifecycle action.
// Events are never updated or deleted.
type ApprovalEvent struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	ActorID   string    `json:"actor_id"`
	Action    Action    `json:"action"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

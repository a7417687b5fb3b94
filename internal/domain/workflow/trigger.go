package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerAssign binds an approver to the current step
	TriggerAssign Trigger = "ASSIGN"

	// TriggerAdvance consumes the current step with further steps remaining
	TriggerAdvance Trigger = "ADVANCE"

	// TriggerStall records a routing failure for the next step; the request
	// falls back to PENDING until re-routed
	TriggerStall Trigger = "STALL"

	// TriggerFinalize consumes the last step of the chain
	TriggerFinalize Trigger = "FINALIZE"

	TriggerReject   Trigger = "REJECT"
	TriggerCancel   Trigger = "CANCEL"
	TriggerComplete Trigger = "COMPLETE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

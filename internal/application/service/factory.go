package service

import "github.com/campusfound/custody-workflow/internal/domain/workflow"

// buildLifecycleMachine creates the state machine governing a work request.
//
// ADVANCE keeps the request in progress while chain steps remain; FINALIZE
// fires on the last step; STALL records a routing failure for the next step
// and parks the request back in PENDING until re-routed.
func buildLifecycleMachine(initial workflow.State) workflow.Machine {
	builder := workflow.NewBuilder()

	builder.Configure(workflow.StatePending).
		Permit(workflow.TriggerAssign, workflow.StateInProgress).
		Permit(workflow.TriggerCancel, workflow.StateCancelled)

	builder.Configure(workflow.StateInProgress).
		Permit(workflow.TriggerAdvance, workflow.StateInProgress).
		Permit(workflow.TriggerStall, workflow.StatePending).
		Permit(workflow.TriggerFinalize, workflow.StateApproved).
		Permit(workflow.TriggerReject, workflow.StateRejected).
		Permit(workflow.TriggerCancel, workflow.StateCancelled)

	builder.Configure(workflow.StateApproved).
		Permit(workflow.TriggerComplete, workflow.StateCompleted)

	// REJECTED, CANCELLED and COMPLETED are terminal: no outgoing transitions

	return builder.Build(initial)
}

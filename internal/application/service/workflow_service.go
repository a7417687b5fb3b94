package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/catalog"
	"github.com/campusfound/custody-workflow/internal/chain"
	"github.com/campusfound/custody-workflow/internal/domain/request"
	"github.com/campusfound/custody-workflow/internal/domain/workflow"
	"github.com/campusfound/custody-workflow/internal/routing"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateInput carries everything needed to open a work request
type CreateInput struct {
	Variant             request.Variant
	Priority            request.Priority
	RequesterID         string
	RequesterOrg        string
	RequesterEnterprise string
	TargetOrg           string
	TargetEnterprise    string
	Payload             request.Payload
}

// WorkflowService owns the request lifecycle. All mutation of a request
// flows through its five transition operations; none of them is idempotent —
// a duplicate call after success fails with request.ErrInvalidState so
// duplicate-submission bugs surface in the caller.
type WorkflowService interface {
	Create(ctx context.Context, input CreateInput) (*request.WorkRequest, error)
	Approve(ctx context.Context, requestID, actorID string) (*request.WorkRequest, error)
	Reject(ctx context.Context, requestID, actorID, reason string) (*request.WorkRequest, error)
	Cancel(ctx context.Context, requestID, actorID string) (*request.WorkRequest, error)
	Complete(ctx context.Context, requestID string) (*request.WorkRequest, error)
	Get(ctx context.Context, requestID string) (*request.WorkRequest, error)
	Events(ctx context.Context, requestID string) ([]*request.ApprovalEvent, error)
}

type workflowServiceImpl struct {
	catalog   *catalog.Catalog
	resolver  *chain.Resolver
	router    *routing.Engine
	directory port.Directory
	requests  port.RequestRepository
	events    port.EventRepository
	txManager port.TransactionManager
	logger    Logger

	// locks serializes transitions per request id; the repository's
	// version check backs this up at the persistence boundary.
	locks sync.Map
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	cat *catalog.Catalog,
	resolver *chain.Resolver,
	router *routing.Engine,
	directory port.Directory,
	requests port.RequestRepository,
	events port.EventRepository,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		catalog:   cat,
		resolver:  resolver,
		router:    router,
		directory: directory,
		requests:  requests,
		events:    events,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *workflowServiceImpl) lockRequest(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Create validates the payload, resolves the approval chain, persists the
// request and attempts to route the first step. A routing miss is not an
// error: the request stays PENDING with no approver until re-routed.
func (s *workflowServiceImpl) Create(ctx context.Context, input CreateInput) (*request.WorkRequest, error) {
	if err := s.catalog.Validate(input.Variant, input.Payload); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = request.PriorityNormal
	}
	if !priority.IsValid() {
		return nil, request.NewValidationError("priority", "unknown priority level")
	}
	// Emergency handoffs always run on the tightest SLA window
	if input.Variant == request.VariantEmergencyTransit {
		priority = request.PriorityUrgent
	}

	approvalChain := s.resolver.Resolve(input.Variant, input.Payload)
	if len(approvalChain) == 0 {
		return nil, request.NewValidationError("variant", "no approval chain defined for variant")
	}

	now := time.Now().UTC()
	req := &request.WorkRequest{
		ID:                  uuid.NewString(),
		Variant:             input.Variant,
		Status:              request.StatusPending,
		Priority:            priority,
		RequesterID:         input.RequesterID,
		RequesterOrg:        input.RequesterOrg,
		RequesterEnterprise: input.RequesterEnterprise,
		TargetOrg:           input.TargetOrg,
		TargetEnterprise:    input.TargetEnterprise,
		Chain:               approvalChain,
		StepIndex:           0,
		Payload:             input.Payload,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to persist request", "error", err, "variant", input.Variant.String())
		return nil, err
	}

	if err := s.assignCurrentStep(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Request created",
		"request_id", req.ID,
		"variant", req.Variant.String(),
		"status", req.Status.String(),
		"chain_length", len(req.Chain))
	return req, nil
}

// assignCurrentStep asks the routing engine for an approver for the step at
// StepIndex and persists the outcome. The request must be PENDING.
func (s *workflowServiceImpl) assignCurrentStep(ctx context.Context, req *request.WorkRequest) error {
	role, ok := req.CurrentRole()
	if !ok {
		return fmt.Errorf("%w: no chain step to assign", request.ErrInvalidState)
	}

	approverID, found, err := s.router.Assign(ctx, role, req.TargetOrg, req.TargetEnterprise)
	if err != nil {
		return err
	}
	if !found {
		// Normal outcome: backlog surfaces through the SLA sweep
		return nil
	}

	machine := buildLifecycleMachine(workflow.State(req.Status))
	if err := machine.Fire(workflow.TriggerAssign); err != nil {
		s.router.Release(approverID)
		return fmt.Errorf("%w: %v", request.ErrInvalidState, err)
	}

	req.Status = request.Status(machine.State())
	req.ApproverID = &approverID
	req.UpdatedAt = time.Now().UTC()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}
		return s.events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   approverID,
			Action:    request.ActionAssigned,
			Note:      fmt.Sprintf("assigned for role %s", role),
			Timestamp: req.UpdatedAt,
		})
	})
	if err != nil {
		s.router.Release(approverID)
		return err
	}
	return nil
}

// Approve consumes the current chain step. The acting identity must be the
// assigned approver, or at least hold the step's role within the target
// scope. Advancing past the final step yields APPROVED; completion remains
// a separate, explicit signal.
func (s *workflowServiceImpl) Approve(ctx context.Context, requestID, actorID string) (*request.WorkRequest, error) {
	unlock := s.lockRequest(requestID)
	defer unlock()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	machine := buildLifecycleMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerAdvance) && !machine.CanFire(workflow.TriggerFinalize) {
		return nil, fmt.Errorf("%w: cannot approve request in status %s", request.ErrInvalidState, req.Status)
	}
	if req.ApproverID == nil {
		return nil, fmt.Errorf("%w: step %d has no assigned approver", request.ErrInvalidState, req.StepIndex)
	}

	if err := s.authorizeStepActor(ctx, req, actorID); err != nil {
		return nil, err
	}

	outgoing := *req.ApproverID
	role, _ := req.CurrentRole()
	now := time.Now().UTC()

	req.StepIndex++
	req.ApproverID = nil
	req.UpdatedAt = now

	var nextApprover string
	var nextRole request.Role
	if req.ChainExhausted() {
		if err := machine.Fire(workflow.TriggerFinalize); err != nil {
			return nil, fmt.Errorf("%w: %v", request.ErrInvalidState, err)
		}
	} else {
		nextRole, _ = req.CurrentRole()
		id, found, err := s.router.Assign(ctx, nextRole, req.TargetOrg, req.TargetEnterprise)
		if err != nil {
			return nil, err
		}
		trigger := workflow.TriggerStall
		if found {
			trigger = workflow.TriggerAdvance
			nextApprover = id
			req.ApproverID = &id
		}
		if err := machine.Fire(trigger); err != nil {
			if found {
				s.router.Release(id)
			}
			return nil, fmt.Errorf("%w: %v", request.ErrInvalidState, err)
		}
	}
	req.Status = request.Status(machine.State())

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}
		if err := s.events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   actorID,
			Action:    request.ActionApproved,
			Note:      fmt.Sprintf("approved step for role %s", role),
			Timestamp: now,
		}); err != nil {
			return err
		}
		if nextApprover != "" {
			return s.events.Append(txCtx, &request.ApprovalEvent{
				RequestID: req.ID,
				ActorID:   nextApprover,
				Action:    request.ActionAssigned,
				Note:      fmt.Sprintf("assigned for role %s", nextRole),
				Timestamp: now,
			})
		}
		return nil
	})
	if err != nil {
		if nextApprover != "" {
			s.router.Release(nextApprover)
		}
		return nil, err
	}

	// Counter released only after the transition is durable, so a failed
	// update never loses an active assignment.
	s.router.Release(outgoing)

	s.logger.Info("Request step approved",
		"request_id", req.ID,
		"actor_id", actorID,
		"step_index", req.StepIndex,
		"status", req.Status.String())
	return req, nil
}

// Reject terminates the request at the current step
func (s *workflowServiceImpl) Reject(ctx context.Context, requestID, actorID, reason string) (*request.WorkRequest, error) {
	unlock := s.lockRequest(requestID)
	defer unlock()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	machine := buildLifecycleMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerReject) {
		return nil, fmt.Errorf("%w: cannot reject request in status %s", request.ErrInvalidState, req.Status)
	}
	if req.ApproverID == nil {
		return nil, fmt.Errorf("%w: step %d has no assigned approver", request.ErrInvalidState, req.StepIndex)
	}
	if err := s.authorizeStepActor(ctx, req, actorID); err != nil {
		return nil, err
	}

	outgoing := *req.ApproverID
	now := time.Now().UTC()

	if err := machine.Fire(workflow.TriggerReject); err != nil {
		return nil, fmt.Errorf("%w: %v", request.ErrInvalidState, err)
	}
	req.Status = request.Status(machine.State())
	req.ApproverID = nil
	req.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}
		return s.events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   actorID,
			Action:    request.ActionRejected,
			Note:      reason,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.router.Release(outgoing)

	s.logger.Info("Request rejected", "request_id", req.ID, "actor_id", actorID)
	return req, nil
}

// Cancel withdraws a non-terminal request. Only the original requester may
// cancel.
func (s *workflowServiceImpl) Cancel(ctx context.Context, requestID, actorID string) (*request.WorkRequest, error) {
	unlock := s.lockRequest(requestID)
	defer unlock()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	machine := buildLifecycleMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerCancel) {
		return nil, fmt.Errorf("%w: cannot cancel request in status %s", request.ErrInvalidState, req.Status)
	}
	if actorID != req.RequesterID {
		return nil, fmt.Errorf("%w: only the requester may cancel", request.ErrUnauthorized)
	}

	var outgoing string
	if req.ApproverID != nil {
		outgoing = *req.ApproverID
	}
	now := time.Now().UTC()

	if err := machine.Fire(workflow.TriggerCancel); err != nil {
		return nil, fmt.Errorf("%w: %v", request.ErrInvalidState, err)
	}
	req.Status = request.Status(machine.State())
	req.ApproverID = nil
	req.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}
		return s.events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   actorID,
			Action:    request.ActionCancelled,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if outgoing != "" {
		s.router.Release(outgoing)
	}

	s.logger.Info("Request cancelled", "request_id", req.ID, "actor_id", actorID)
	return req, nil
}

// Complete confirms the physical handoff for a fully approved request.
// Approval alone never completes a request.
func (s *workflowServiceImpl) Complete(ctx context.Context, requestID string) (*request.WorkRequest, error) {
	unlock := s.lockRequest(requestID)
	defer unlock()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	machine := buildLifecycleMachine(workflow.State(req.Status))
	if err := machine.Fire(workflow.TriggerComplete); err != nil {
		return nil, fmt.Errorf("%w: cannot complete request in status %s", request.ErrInvalidState, req.Status)
	}

	now := time.Now().UTC()
	req.Status = request.Status(machine.State())
	req.CompletedAt = &now
	req.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Update(txCtx, req); err != nil {
			return err
		}
		return s.events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   req.RequesterID,
			Action:    request.ActionCompleted,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request completed", "request_id", req.ID)
	return req, nil
}

// Get retrieves a request by id
func (s *workflowServiceImpl) Get(ctx context.Context, requestID string) (*request.WorkRequest, error) {
	return s.requests.GetByID(ctx, requestID)
}

// Events returns the audit trail for a request
func (s *workflowServiceImpl) Events(ctx context.Context, requestID string) ([]*request.ApprovalEvent, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.events.ListByRequest(ctx, requestID)
}

// authorizeStepActor checks the acting identity against the current step:
// the assigned individual is always authorized; anyone else must pass the
// capability check for the step's role within the target scope.
func (s *workflowServiceImpl) authorizeStepActor(ctx context.Context, req *request.WorkRequest, actorID string) error {
	if req.ApproverID != nil && actorID == *req.ApproverID {
		return nil
	}
	role, ok := req.CurrentRole()
	if !ok {
		return fmt.Errorf("%w: chain already consumed", request.ErrInvalidState)
	}
	can, err := s.directory.CanAct(ctx, actorID, role, req.TargetOrg, req.TargetEnterprise)
	if err != nil {
		return fmt.Errorf("capability check: %w", err)
	}
	if !can {
		return fmt.Errorf("%w: %s cannot act as %s", request.ErrUnauthorized, actorID, role)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfound/custody-workflow/internal/catalog"
	"github.com/campusfound/custody-workflow/internal/chain"
	"github.com/campusfound/custody-workflow/internal/domain/request"
	"github.com/campusfound/custody-workflow/internal/routing"
)

// In-memory repositories in place of the sqlite implementations

type memRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*request.WorkRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[string]*request.WorkRequest)}
}

func copyRequest(req *request.WorkRequest) *request.WorkRequest {
	clone := *req
	clone.Chain = append([]request.Role(nil), req.Chain...)
	if req.ApproverID != nil {
		id := *req.ApproverID
		clone.ApproverID = &id
	}
	if req.CompletedAt != nil {
		ts := *req.CompletedAt
		clone.CompletedAt = &ts
	}
	return &clone
}

func (r *memRequestRepo) Create(ctx context.Context, req *request.WorkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = copyRequest(req)
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id string) (*request.WorkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", request.ErrNotFound, id)
	}
	return copyRequest(req), nil
}

func (r *memRequestRepo) Update(ctx context.Context, req *request.WorkRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok {
		return fmt.Errorf("%w: %s", request.ErrNotFound, req.ID)
	}
	if stored.Version != req.Version {
		return fmt.Errorf("%w: request %s changed concurrently", request.ErrInvalidState, req.ID)
	}
	req.Version++
	r.requests[req.ID] = copyRequest(req)
	return nil
}

func (r *memRequestRepo) ListByStatus(ctx context.Context, status request.Status) ([]*request.WorkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*request.WorkRequest
	for _, req := range r.requests {
		if req.Status == status {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListByVariant(ctx context.Context, variant request.Variant) ([]*request.WorkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*request.WorkRequest
	for _, req := range r.requests {
		if req.Variant == variant {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]*request.WorkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*request.WorkRequest
	for _, req := range r.requests {
		if req.RequesterID == requesterID {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) ListActive(ctx context.Context) ([]*request.WorkRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*request.WorkRequest
	for _, req := range r.requests {
		if !req.Status.IsTerminal() {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) CountByStatus(ctx context.Context) (map[request.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[request.Status]int)
	for _, req := range r.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (r *memRequestRepo) CountByVariant(ctx context.Context) (map[request.Variant]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[request.Variant]int)
	for _, req := range r.requests {
		counts[req.Variant]++
	}
	return counts, nil
}

func (r *memRequestRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*request.ApprovalEvent
}

func (r *memEventRepo) Append(ctx context.Context, event *request.ApprovalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *event
	clone.ID = int64(len(r.events) + 1)
	r.events = append(r.events, &clone)
	event.ID = clone.ID
	return nil
}

func (r *memEventRepo) ListByRequest(ctx context.Context, requestID string) ([]*request.ApprovalEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*request.ApprovalEvent
	for _, evt := range r.events {
		if evt.RequestID == requestID {
			clone := *evt
			out = append(out, &clone)
		}
	}
	return out, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubDirectory struct {
	candidates map[request.Role][]string
}

func (d *stubDirectory) ListCandidates(ctx context.Context, role request.Role, org, enterprise string) ([]string, error) {
	return d.candidates[role], nil
}

func (d *stubDirectory) CanAct(ctx context.Context, actorID string, role request.Role, org, enterprise string) (bool, error) {
	for _, id := range d.candidates[role] {
		if id == actorID {
			return true, nil
		}
	}
	return false, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fixture struct {
	service   WorkflowService
	requests  *memRequestRepo
	events    *memEventRepo
	router    *routing.Engine
	directory *stubDirectory
}

func newFixture(candidates map[request.Role][]string) *fixture {
	requests := newMemRequestRepo()
	events := &memEventRepo{}
	dir := &stubDirectory{candidates: candidates}
	router := routing.NewEngine(dir, nopLogger{})

	svc := NewWorkflowService(
		catalog.New(500, 40),
		chain.NewResolver(chain.DefaultThresholds()),
		router,
		dir,
		requests,
		events,
		passthroughTx{},
		nopLogger{},
	)
	return &fixture{service: svc, requests: requests, events: events, router: router, directory: dir}
}

func fullDirectory() map[request.Role][]string {
	return map[request.Role][]string{
		request.RoleCampusCoordinator:     {"coord"},
		request.RoleHighValueVerifier:     {"verifier"},
		request.RoleLawEnforcementLiaison: {"officer"},
		request.RolePropertyManager:       {"manager"},
		request.RoleTransitSupervisor:     {"supervisor"},
	}
}

func claimInput(value float64) CreateInput {
	return CreateInput{
		Variant:      request.VariantClaim,
		Priority:     request.PriorityNormal,
		RequesterID:  "student-1",
		RequesterOrg: "north-campus",
		TargetOrg:    "north-campus",
		Payload: request.Payload{
			Item: &request.ItemDetails{ItemID: "item-1", Name: "Laptop", Value: value},
			Claim: &request.ClaimDetails{
				SupportingDetail: "Left in room 204 after the evening lecture",
				ProofDescription: strings.Repeat("receipt photo and engraved initials ", 2),
			},
		},
	}
}

func TestCreate_ValidationFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(fullDirectory())

	input := CreateInput{
		Variant:     request.VariantPoliceEvidence,
		RequesterID: "det-1",
		TargetOrg:   "north-campus",
		Payload: request.Payload{
			Item:   &request.ItemDetails{ItemID: "item-1", Name: "Phone", Value: 300},
			Police: &request.PoliceDetails{CaseNumber: "C-1", StolenCheck: true},
		},
	}

	_, err := f.service.Create(context.Background(), input)
	require.Error(t, err)
	assert.True(t, request.IsValidationError(err))
	assert.Equal(t, 0, f.requests.size())
}

func TestCreate_AssignsFirstStep(t *testing.T) {
	f := newFixture(fullDirectory())

	req, err := f.service.Create(context.Background(), claimInput(25))
	require.NoError(t, err)

	assert.Equal(t, request.StatusInProgress, req.Status)
	assert.Equal(t, []request.Role{request.RoleCampusCoordinator}, req.Chain)
	require.NotNil(t, req.ApproverID)
	assert.Equal(t, "coord", *req.ApproverID)
	assert.Equal(t, 1, f.router.ActiveAssignments("coord"))

	events, err := f.events.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, request.ActionAssigned, events[0].Action)
}

func TestCreate_NoCandidateLeavesRequestPending(t *testing.T) {
	f := newFixture(map[request.Role][]string{})

	req, err := f.service.Create(context.Background(), claimInput(25))
	require.NoError(t, err)

	assert.Equal(t, request.StatusPending, req.Status)
	assert.Nil(t, req.ApproverID)
}

func TestCreate_EmergencyTransitForcedUrgent(t *testing.T) {
	f := newFixture(fullDirectory())

	req, err := f.service.Create(context.Background(), CreateInput{
		Variant:     request.VariantEmergencyTransit,
		Priority:    request.PriorityLow,
		RequesterID: "dispatcher-1",
		TargetOrg:   "airport",
		Payload: request.Payload{
			Item:     &request.ItemDetails{ItemID: "item-5", Name: "Passport", Value: 0},
			Transfer: &request.TransferDetails{OriginScope: "transit-hub", DestinationScope: "airport"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, request.PriorityUrgent, req.Priority)
}

func TestLifecycle_StandardClaim(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)

	approved, err := f.service.Approve(ctx, created.ID, "coord")
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, approved.Status)
	assert.Equal(t, 1, approved.StepIndex)
	assert.Nil(t, approved.ApproverID)
	assert.Equal(t, 0, f.router.ActiveAssignments("coord"))

	completed, err := f.service.Complete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// Completion is not idempotent
	_, err = f.service.Complete(ctx, created.ID)
	assert.ErrorIs(t, err, request.ErrInvalidState)
}

func TestLifecycle_HighValueRejectionKeepsAuditTrail(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(2499))
	require.NoError(t, err)
	assert.Equal(t, []request.Role{
		request.RoleCampusCoordinator,
		request.RoleHighValueVerifier,
		request.RoleLawEnforcementLiaison,
	}, created.Chain)

	_, err = f.service.Approve(ctx, created.ID, "coord")
	require.NoError(t, err)

	rejected, err := f.service.Reject(ctx, created.ID, "verifier", "proof does not match engraving")
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, rejected.Status)
	assert.Equal(t, 0, f.router.ActiveAssignments("verifier"))

	events, err := f.events.ListByRequest(ctx, created.ID)
	require.NoError(t, err)

	var actions []request.Action
	for _, evt := range events {
		actions = append(actions, evt.Action)
	}
	assert.Equal(t, []request.Action{
		request.ActionAssigned,
		request.ActionApproved,
		request.ActionAssigned,
		request.ActionRejected,
	}, actions)

	// Terminal: no further transitions
	_, err = f.service.Approve(ctx, created.ID, "officer")
	assert.ErrorIs(t, err, request.ErrInvalidState)
}

func TestApprove_RequiresAssignedApproverOrCapability(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, created.ID, "intruder")
	assert.ErrorIs(t, err, request.ErrUnauthorized)

	// A different member of the same role passes the capability check
	f.directory.candidates[request.RoleCampusCoordinator] = []string{"coord", "coord2"}
	approved, err := f.service.Approve(ctx, created.ID, "coord2")
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, approved.Status)
}

func TestApprove_PendingRequestIsInvalidState(t *testing.T) {
	f := newFixture(map[request.Role][]string{})
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)
	require.Equal(t, request.StatusPending, created.Status)

	_, err = f.service.Approve(ctx, created.ID, "coord")
	assert.ErrorIs(t, err, request.ErrInvalidState)
}

func TestApprove_UnknownRequest(t *testing.T) {
	f := newFixture(fullDirectory())

	_, err := f.service.Approve(context.Background(), "no-such-id", "coord")
	assert.ErrorIs(t, err, request.ErrNotFound)
}

func TestApprove_RoutingGapParksRequestPending(t *testing.T) {
	// Verifier role has no candidates; the second step cannot be routed
	candidates := fullDirectory()
	delete(candidates, request.RoleHighValueVerifier)
	f := newFixture(candidates)
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(750))
	require.NoError(t, err)

	stalled, err := f.service.Approve(ctx, created.ID, "coord")
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, stalled.Status)
	assert.Nil(t, stalled.ApproverID)
	assert.Equal(t, 1, stalled.StepIndex)
}

func TestCancel_OnlyRequesterMayCancel(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, created.ID, "coord")
	assert.ErrorIs(t, err, request.ErrUnauthorized)

	unchanged, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusInProgress, unchanged.Status)

	cancelled, err := f.service.Cancel(ctx, created.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, f.router.ActiveAssignments("coord"))

	// Cancellation is terminal
	_, err = f.service.Cancel(ctx, created.ID, "student-1")
	assert.ErrorIs(t, err, request.ErrInvalidState)
}

func TestComplete_RequiresApprovedStatus(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)

	_, err = f.service.Complete(ctx, created.ID)
	assert.ErrorIs(t, err, request.ErrInvalidState)
}

func TestTerminalRequest_AllTransitionsFailAndRecordIsUnchanged(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)
	_, err = f.service.Reject(ctx, created.ID, "coord", "no match")
	require.NoError(t, err)

	before, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, created.ID, "coord")
	assert.ErrorIs(t, err, request.ErrInvalidState)
	_, err = f.service.Reject(ctx, created.ID, "coord", "again")
	assert.ErrorIs(t, err, request.ErrInvalidState)
	_, err = f.service.Cancel(ctx, created.ID, "student-1")
	assert.ErrorIs(t, err, request.ErrInvalidState)
	_, err = f.service.Complete(ctx, created.ID)
	assert.ErrorIs(t, err, request.ErrInvalidState)

	after, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApprove_ConcurrentCallsOneWinner(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, claimInput(25))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(ctx, created.ID, "coord")
		}(i)
	}
	wg.Wait()

	var succeeded, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, request.ErrInvalidState):
			invalid++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, invalid)

	// Exactly one release: the approver carries no residual assignment
	assert.Equal(t, 0, f.router.ActiveAssignments("coord"))

	final, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, final.Status)
	assert.Equal(t, 1, final.StepIndex)
}

func TestStepIndex_NeverExceedsChainLength(t *testing.T) {
	f := newFixture(fullDirectory())
	ctx := context.Background()

	created, err := f.service.Create(ctx, CreateInput{
		Variant:     request.VariantCampusTransfer,
		RequesterID: "student-1",
		TargetOrg:   "south-campus",
		Payload: request.Payload{
			Item:     &request.ItemDetails{ItemID: "item-2", Name: "Bike", Value: 150},
			Transfer: &request.TransferDetails{OriginScope: "north-campus", DestinationScope: "south-campus"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Chain, 2)

	_, err = f.service.Approve(ctx, created.ID, "coord")
	require.NoError(t, err)
	approved, err := f.service.Approve(ctx, created.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, len(approved.Chain), approved.StepIndex)

	_, err = f.service.Approve(ctx, created.ID, "manager")
	assert.ErrorIs(t, err, request.ErrInvalidState)

	final, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, len(final.Chain), final.StepIndex)
}

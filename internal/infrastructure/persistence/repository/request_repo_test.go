package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
	"github.com/campusfound/custody-workflow/pkg/database"
)

func newTestStore(t *testing.T) (port.RequestRepository, port.EventRepository, *TxManager) {
	t.Helper()

	// Single connection keeps every statement on the same in-memory database
	db, err := database.New(database.Config{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Run(Migrations))

	logger := zap.NewNop()
	return NewRequestRepository(db.DB, logger), NewEventRepository(db.DB, logger), NewTxManager(db.DB, logger)
}

func sampleRequest(id string) *request.WorkRequest {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &request.WorkRequest{
		ID:           id,
		Variant:      request.VariantClaim,
		Status:       request.StatusPending,
		Priority:     request.PriorityNormal,
		RequesterID:  "student-1",
		RequesterOrg: "north-campus",
		TargetOrg:    "north-campus",
		Chain:        []request.Role{request.RoleCampusCoordinator},
		Payload: request.Payload{
			Item:  &request.ItemDetails{ItemID: "item-1", Name: "Laptop", Value: 25},
			Claim: &request.ClaimDetails{SupportingDetail: "left in room 204"},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRequestRepo_RoundTrip(t *testing.T) {
	requests, _, _ := newTestStore(t)
	ctx := context.Background()

	stored := sampleRequest("req-1")
	require.NoError(t, requests.Create(ctx, stored))

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, stored.Variant, got.Variant)
	assert.Equal(t, stored.Chain, got.Chain)
	assert.Equal(t, stored.Payload.Item.Value, got.Payload.Item.Value)
	assert.Nil(t, got.ApproverID)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, int64(1), got.Version)
}

func TestRequestRepo_GetByID_NotFound(t *testing.T) {
	requests, _, _ := newTestStore(t)

	_, err := requests.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, request.ErrNotFound)
}

func TestRequestRepo_UpdateBumpsVersion(t *testing.T) {
	requests, _, _ := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, requests.Create(ctx, req))

	approver := "coord"
	req.Status = request.StatusInProgress
	req.ApproverID = &approver
	require.NoError(t, requests.Update(ctx, req))
	assert.Equal(t, int64(2), req.Version)

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusInProgress, got.Status)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, "coord", *got.ApproverID)
	assert.Equal(t, int64(2), got.Version)
}

func TestRequestRepo_StaleVersionIsRejected(t *testing.T) {
	requests, _, _ := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, requests.Create(ctx, req))

	stale, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)

	req.Status = request.StatusInProgress
	require.NoError(t, requests.Update(ctx, req))

	stale.Status = request.StatusCancelled
	err = requests.Update(ctx, stale)
	assert.ErrorIs(t, err, request.ErrInvalidState)

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusInProgress, got.Status)
}

func TestRequestRepo_ListActiveSkipsTerminal(t *testing.T) {
	requests, _, _ := newTestStore(t)
	ctx := context.Background()

	open := sampleRequest("req-open")
	require.NoError(t, requests.Create(ctx, open))

	done := sampleRequest("req-done")
	done.Status = request.StatusCompleted
	require.NoError(t, requests.Create(ctx, done))

	active, err := requests.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "req-open", active[0].ID)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	requests, events, txManager := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, requests.Create(ctx, req))

	boom := errors.New("boom")
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req.Status = request.StatusInProgress
		if err := requests.Update(txCtx, req); err != nil {
			return err
		}
		if err := events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   "coord",
			Action:    request.ActionAssigned,
			Timestamp: req.UpdatedAt,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)

	trail, err := events.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestTxManager_CommitPersistsBothWrites(t *testing.T) {
	requests, events, txManager := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, requests.Create(ctx, req))

	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req.Status = request.StatusInProgress
		if err := requests.Update(txCtx, req); err != nil {
			return err
		}
		return events.Append(txCtx, &request.ApprovalEvent{
			RequestID: req.ID,
			ActorID:   "coord",
			Action:    request.ActionAssigned,
			Timestamp: req.UpdatedAt,
		})
	})
	require.NoError(t, err)

	got, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, request.StatusInProgress, got.Status)

	trail, err := events.ListByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, request.ActionAssigned, trail[0].Action)
	assert.Positive(t, trail[0].ID)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfound/custody-workflow/internal/domain/request"
)

func seedQueryFixture(t *testing.T) (*fixture, QueryService) {
	t.Helper()
	f := newFixture(fullDirectory())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Create(ctx, claimInput(25))
		require.NoError(t, err)
	}
	transfer, err := f.service.Create(ctx, CreateInput{
		Variant:     request.VariantCampusTransfer,
		RequesterID: "staff-1",
		TargetOrg:   "south-campus",
		Payload: request.Payload{
			Item:     &request.ItemDetails{ItemID: "item-2", Name: "Bike", Value: 150},
			Transfer: &request.TransferDetails{OriginScope: "north-campus", DestinationScope: "south-campus"},
		},
	})
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, transfer.ID, "staff-1")
	require.NoError(t, err)

	return f, NewQueryService(f.requests, nopLogger{})
}

func TestQuery_ByStatus(t *testing.T) {
	_, q := seedQueryFixture(t)

	inProgress, err := q.ByStatus(context.Background(), request.StatusInProgress)
	require.NoError(t, err)
	assert.Len(t, inProgress, 3)

	cancelled, err := q.ByStatus(context.Background(), request.StatusCancelled)
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)
}

func TestQuery_ByVariant(t *testing.T) {
	_, q := seedQueryFixture(t)

	claims, err := q.ByVariant(context.Background(), request.VariantClaim)
	require.NoError(t, err)
	assert.Len(t, claims, 3)
}

func TestQuery_ByRequester(t *testing.T) {
	_, q := seedQueryFixture(t)

	mine, err := q.ByRequester(context.Background(), "staff-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, request.VariantCampusTransfer, mine[0].Variant)
}

func TestQuery_Statistics(t *testing.T) {
	_, q := seedQueryFixture(t)

	stats, err := q.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[request.StatusInProgress])
	assert.Equal(t, 1, stats.ByStatus[request.StatusCancelled])
	assert.Equal(t, 3, stats.ByVariant[request.VariantClaim])
	assert.Equal(t, 1, stats.ByVariant[request.VariantCampusTransfer])
}

package service

import (
	"context"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// Statistics aggregates request counts for dashboards and reporting
type Statistics struct {
	Total     int                     `json:"total"`
	ByStatus  map[request.Status]int  `json:"by_status"`
	ByVariant map[request.Variant]int `json:"by_variant"`
}

// QueryService is the read-only aggregation surface over the workflow store
type QueryService interface {
	ByStatus(ctx context.Context, status request.Status) ([]*request.WorkRequest, error)
	ByVariant(ctx context.Context, variant request.Variant) ([]*request.WorkRequest, error)
	ByRequester(ctx context.Context, requesterID string) ([]*request.WorkRequest, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

type queryServiceImpl struct {
	requests port.RequestRepository
	logger   Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(requests port.RequestRepository, logger Logger) QueryService {
	return &queryServiceImpl{requests: requests, logger: logger}
}

func (s *queryServiceImpl) ByStatus(ctx context.Context, status request.Status) ([]*request.WorkRequest, error) {
	return s.requests.ListByStatus(ctx, status)
}

func (s *queryServiceImpl) ByVariant(ctx context.Context, variant request.Variant) ([]*request.WorkRequest, error) {
	return s.requests.ListByVariant(ctx, variant)
}

func (s *queryServiceImpl) ByRequester(ctx context.Context, requesterID string) ([]*request.WorkRequest, error) {
	return s.requests.ListByRequester(ctx, requesterID)
}

func (s *queryServiceImpl) Statistics(ctx context.Context) (*Statistics, error) {
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count by status", "error", err)
		return nil, err
	}
	byVariant, err := s.requests.CountByVariant(ctx)
	if err != nil {
		s.logger.Error("Failed to count by variant", "error", err)
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &Statistics{
		Total:     total,
		ByStatus:  byStatus,
		ByVariant: byVariant,
	}, nil
}

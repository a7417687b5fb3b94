package port

import (
	"context"

	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// RequestRepository defines persistence operations for WorkRequest
type RequestRepository interface {
	Create(ctx context.Context, req *request.WorkRequest) error

	// GetByID returns request.ErrNotFound when no record exists
	GetByID(ctx context.Context, id string) (*request.WorkRequest, error)

	// Update persists the request with an optimistic version check; it
	// returns request.ErrInvalidState when the stored version no longer
	// matches req.Version (a concurrent writer won the race).
	Update(ctx context.Context, req *request.WorkRequest) error

	ListByStatus(ctx context.Context, status request.Status) ([]*request.WorkRequest, error)
	ListByVariant(ctx context.Context, variant request.Variant) ([]*request.WorkRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*request.WorkRequest, error)

	// ListActive returns every non-terminal request (for the SLA sweep)
	ListActive(ctx context.Context) ([]*request.WorkRequest, error)

	CountByStatus(ctx context.Context) (map[request.Status]int, error)
	CountByVariant(ctx context.Context) (map[request.Variant]int, error)
}

// EventRepository defines persistence operations for the append-only
// approval audit trail
type EventRepository interface {
	Append(ctx context.Context, event *request.ApprovalEvent) error
	ListByRequest(ctx context.Context, requestID string) ([]*request.ApprovalEvent, error)
}

// TransactionManager executes a function within a storage transaction.
// Repository calls made with the inner context join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

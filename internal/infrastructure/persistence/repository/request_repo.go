package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// RequestRepository implements port.RequestRepository over sqlite
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

const requestColumns = `
	id, variant, status, priority,
	requester_id, requester_org, requester_enterprise,
	target_org, target_enterprise,
	chain, step_index, approver_id, payload, version,
	created_at, updated_at, completed_at
`

// Create persists a new work request
func (r *RequestRepository) Create(ctx context.Context, req *request.WorkRequest) error {
	chainJSON, err := json.Marshal(req.Chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO work_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		string(req.Variant),
		string(req.Status),
		string(req.Priority),
		req.RequesterID,
		req.RequesterOrg,
		req.RequesterEnterprise,
		req.TargetOrg,
		req.TargetEnterprise,
		string(chainJSON),
		req.StepIndex,
		req.ApproverID,
		string(payloadJSON),
		req.Version,
		req.CreatedAt,
		req.UpdatedAt,
		req.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID retrieves a work request by id
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*request.WorkRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM work_requests WHERE id = ?`
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)

	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", request.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// Update persists the request if its stored version still matches
// req.Version. On success the in-memory version is bumped alongside the
// stored row; on a version mismatch it returns request.ErrInvalidState.
func (r *RequestRepository) Update(ctx context.Context, req *request.WorkRequest) error {
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		UPDATE work_requests
		SET status = ?, step_index = ?, approver_id = ?, payload = ?,
			version = version + 1, updated_at = ?, completed_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		string(req.Status),
		req.StepIndex,
		req.ApproverID,
		string(payloadJSON),
		req.UpdatedAt,
		req.CompletedAt,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s changed concurrently", request.ErrInvalidState, req.ID)
	}

	req.Version++
	return nil
}

// ListByStatus returns all requests with the given status
func (r *RequestRepository) ListByStatus(ctx context.Context, status request.Status) ([]*request.WorkRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM work_requests WHERE status = ? ORDER BY created_at`
	return r.list(ctx, query, string(status))
}

// ListByVariant returns all requests of the given variant
func (r *RequestRepository) ListByVariant(ctx context.Context, variant request.Variant) ([]*request.WorkRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM work_requests WHERE variant = ? ORDER BY created_at`
	return r.list(ctx, query, string(variant))
}

// ListByRequester returns all requests opened by the given identity
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*request.WorkRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM work_requests WHERE requester_id = ? ORDER BY created_at`
	return r.list(ctx, query, requesterID)
}

// ListActive returns all non-terminal requests
func (r *RequestRepository) ListActive(ctx context.Context) ([]*request.WorkRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM work_requests WHERE status IN (?, ?, ?) ORDER BY created_at`
	return r.list(ctx, query,
		string(request.StatusPending),
		string(request.StatusInProgress),
		string(request.StatusApproved),
	)
}

// CountByStatus returns request counts grouped by status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[request.Status]int, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM work_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[request.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[request.Status(status)] = n
	}
	return counts, rows.Err()
}

// CountByVariant returns request counts grouped by variant
func (r *RequestRepository) CountByVariant(ctx context.Context) (map[request.Variant]int, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT variant, COUNT(*) FROM work_requests GROUP BY variant`)
	if err != nil {
		return nil, fmt.Errorf("count by variant: %w", err)
	}
	defer rows.Close()

	counts := make(map[request.Variant]int)
	for rows.Next() {
		var variant string
		var n int
		if err := rows.Scan(&variant, &n); err != nil {
			return nil, err
		}
		counts[request.Variant(variant)] = n
	}
	return counts, rows.Err()
}

func (r *RequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*request.WorkRequest, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*request.WorkRequest
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(dest ...interface{}) error) (*request.WorkRequest, error) {
	var req request.WorkRequest
	var variant, status, priority, chainJSON, payloadJSON string
	var approverID sql.NullString
	var completedAt sql.NullTime

	err := scan(
		&req.ID,
		&variant,
		&status,
		&priority,
		&req.RequesterID,
		&req.RequesterOrg,
		&req.RequesterEnterprise,
		&req.TargetOrg,
		&req.TargetEnterprise,
		&chainJSON,
		&req.StepIndex,
		&approverID,
		&payloadJSON,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Variant = request.Variant(variant)
	req.Status = request.Status(status)
	req.Priority = request.Priority(priority)
	if approverID.Valid {
		req.ApproverID = &approverID.String
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(chainJSON), &req.Chain); err != nil {
		return nil, fmt.Errorf("unmarshal chain: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &req.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// EventRepository implements port.EventRepository over sqlite. The table is
// insert-only; there is no update or delete path.
type EventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB, logger *zap.Logger) port.EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Append records an approval event
func (r *EventRepository) Append(ctx context.Context, event *request.ApprovalEvent) error {
	query := `
		INSERT INTO approval_events (request_id, actor_id, action, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		event.RequestID,
		event.ActorID,
		string(event.Action),
		event.Note,
		event.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append event",
			zap.String("request_id", event.RequestID),
			zap.String("action", string(event.Action)),
			zap.Error(err))
		return fmt.Errorf("append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	event.ID = id
	return nil
}

// ListByRequest returns the audit trail for a request in insertion order
func (r *EventRepository) ListByRequest(ctx context.Context, requestID string) ([]*request.ApprovalEvent, error) {
	query := `
		SELECT id, request_id, actor_id, action, note, created_at
		FROM approval_events
		WHERE request_id = ?
		ORDER BY id
	`
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list events", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*request.ApprovalEvent
	for rows.Next() {
		var evt request.ApprovalEvent
		var action string
		if err := rows.Scan(&evt.ID, &evt.RequestID, &evt.ActorID, &action, &evt.Note, &evt.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Action = request.Action(action)
		events = append(events, &evt)
	}
	return events, rows.Err()
}

// Verify interface compliance
var _ port.EventRepository = (*EventRepository)(nil)

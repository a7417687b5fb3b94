// Package directory provides a sqlite-backed implementation of the
// capability/authority collaborator: which identities may act in which
// roles within which organization and enterprise scope.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/application/port"
	"github.com/campusfound/custody-workflow/internal/domain/request"
)

// SqliteDirectory answers capability checks from the approvers table
type SqliteDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// New creates a directory over the given database
func New(db *sql.DB, logger *zap.Logger) *SqliteDirectory {
	return &SqliteDirectory{db: db, logger: logger}
}

// CanAct reports whether the identity holds the role within the scope
func (d *SqliteDirectory) CanAct(ctx context.Context, actorID string, role request.Role, org, enterprise string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM approvers
		WHERE approver_id = ? AND role = ? AND org = ? AND enterprise = ? AND active = 1
	`
	var n int
	if err := d.db.QueryRowContext(ctx, query, actorID, string(role), org, enterprise).Scan(&n); err != nil {
		d.logger.Error("Capability check failed", zap.String("actor_id", actorID), zap.Error(err))
		return false, fmt.Errorf("capability check: %w", err)
	}
	return n > 0, nil
}

// ListCandidates returns the active identities holding the role within the
// scope, in stable id order.
func (d *SqliteDirectory) ListCandidates(ctx context.Context, role request.Role, org, enterprise string) ([]string, error) {
	query := `
		SELECT approver_id FROM approvers
		WHERE role = ? AND org = ? AND enterprise = ? AND active = 1
		ORDER BY approver_id
	`
	rows, err := d.db.QueryContext(ctx, query, string(role), org, enterprise)
	if err != nil {
		d.logger.Error("Failed to list candidates", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		candidates = append(candidates, id)
	}
	return candidates, rows.Err()
}

// Grant registers (or reactivates) a role assignment
func (d *SqliteDirectory) Grant(ctx context.Context, actorID string, role request.Role, org, enterprise string) error {
	query := `
		INSERT INTO approvers (approver_id, role, org, enterprise, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT (approver_id, role, org, enterprise) DO UPDATE SET active = 1
	`
	if _, err := d.db.ExecContext(ctx, query, actorID, string(role), org, enterprise); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// Revoke deactivates a role assignment; existing step assignments are
// unaffected.
func (d *SqliteDirectory) Revoke(ctx context.Context, actorID string, role request.Role, org, enterprise string) error {
	query := `
		UPDATE approvers SET active = 0
		WHERE approver_id = ? AND role = ? AND org = ? AND enterprise = ?
	`
	if _, err := d.db.ExecContext(ctx, query, actorID, string(role), org, enterprise); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.Directory = (*SqliteDirectory)(nil)

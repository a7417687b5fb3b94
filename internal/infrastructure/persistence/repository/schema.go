package repository

import "github.com/campusfound/custody-workflow/pkg/database"

// Migrations is the full schema history for the workflow store
var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_work_requests",
		SQL: `
			CREATE TABLE work_requests (
				id TEXT PRIMARY KEY,
				variant TEXT NOT NULL,
				status TEXT NOT NULL,
				priority TEXT NOT NULL,
				requester_id TEXT NOT NULL,
				requester_org TEXT NOT NULL,
				requester_enterprise TEXT NOT NULL,
				target_org TEXT NOT NULL,
				target_enterprise TEXT NOT NULL,
				chain TEXT NOT NULL,
				step_index INTEGER NOT NULL DEFAULT 0,
				approver_id TEXT,
				payload TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				completed_at DATETIME
			);
			CREATE INDEX idx_work_requests_status ON work_requests(status);
			CREATE INDEX idx_work_requests_variant ON work_requests(variant);
			CREATE INDEX idx_work_requests_requester ON work_requests(requester_id);
		`,
	},
	{
		Version: 2,
		Name:    "create_approval_events",
		SQL: `
			CREATE TABLE approval_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				request_id TEXT NOT NULL REFERENCES work_requests(id),
				actor_id TEXT NOT NULL,
				action TEXT NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			);
			CREATE INDEX idx_approval_events_request ON approval_events(request_id);
		`,
	},
	{
		Version: 3,
		Name:    "create_approvers",
		SQL: `
			CREATE TABLE approvers (
				approver_id TEXT NOT NULL,
				role TEXT NOT NULL,
				org TEXT NOT NULL,
				enterprise TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1,
				PRIMARY KEY (approver_id, role, org, enterprise)
			);
			CREATE INDEX idx_approvers_role_scope ON approvers(role, org, enterprise);
		`,
	},
}

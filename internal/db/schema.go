package db

import (
	"context"
	"database/sql"
)

// SchemaSQL is the complete schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests load it via GetSchemaSQL(), and TestMigrationsMatchSchema fails when
// the migrations and this constant describe different tables.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = versionSchemaSQL + workflowSchemaSQL + approvalSchemaSQL + auditSchemaSQL +
	autosaveSchemaSQL + approvalConsumptionSQL

const versionSchemaSQL = `
-- Version ledger
CREATE TABLE IF NOT EXISTS content_versions (
	id TEXT PRIMARY KEY,
	content_id TEXT NOT NULL,
	version_number INTEGER NOT NULL CHECK(version_number > 0),
	data TEXT NOT NULL,
	author_id TEXT NOT NULL,
	notes TEXT,
	created_at DATETIME NOT NULL,
	parent_version_id TEXT,
	branch_name TEXT NOT NULL,
	reverted_from INTEGER,
	merged_from_branch TEXT,
	FOREIGN KEY (parent_version_id) REFERENCES content_versions(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_content_versions_number ON content_versions(content_id, version_number);
CREATE INDEX IF NOT EXISTS idx_content_versions_created ON content_versions(content_id, created_at);

CREATE TABLE IF NOT EXISTS version_changelogs (
	version_id TEXT PRIMARY KEY,
	from_version_id TEXT,
	fields_changed TEXT NOT NULL DEFAULT '[]',
	added INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0,
	modified INTEGER NOT NULL DEFAULT 0,
	similarity INTEGER NOT NULL CHECK(similarity BETWEEN 0 AND 100),
	created_at DATETIME NOT NULL,
	FOREIGN KEY (version_id) REFERENCES content_versions(id) ON DELETE CASCADE,
	FOREIGN KEY (from_version_id) REFERENCES content_versions(id) ON DELETE SET NULL
);

-- Branches
CREATE TABLE IF NOT EXISTS branches (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	content_id TEXT NOT NULL,
	description TEXT,
	base_version_id TEXT,
	head_version_id TEXT,
	is_default INTEGER NOT NULL DEFAULT 0 CHECK(is_default IN (0, 1)),
	is_protected INTEGER NOT NULL DEFAULT 0 CHECK(is_protected IN (0, 1)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (base_version_id) REFERENCES content_versions(id) ON DELETE SET NULL,
	FOREIGN KEY (head_version_id) REFERENCES content_versions(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_name ON branches(content_id, name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_one_default ON branches(content_id) WHERE is_default = 1;
CREATE INDEX IF NOT EXISTS idx_branches_head ON branches(head_version_id);
`

const workflowSchemaSQL = `
-- Workflow
CREATE TABLE IF NOT EXISTS workflow_states (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	label TEXT NOT NULL,
	description TEXT,
	is_initial INTEGER NOT NULL DEFAULT 0 CHECK(is_initial IN (0, 1)),
	is_terminal INTEGER NOT NULL DEFAULT 0 CHECK(is_terminal IN (0, 1)),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_workflow_states_one_initial ON workflow_states(is_initial) WHERE is_initial = 1;

CREATE TABLE IF NOT EXISTS content_workflow (
	content_id TEXT PRIMARY KEY,
	workflow_state_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	assigned_to_user_id TEXT,
	notes TEXT,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (workflow_state_id) REFERENCES workflow_states(id)
);

CREATE TABLE IF NOT EXISTS content_workflow_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content_id TEXT NOT NULL,
	from_state_id INTEGER,
	to_state_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	notes TEXT,
	transitioned_at DATETIME NOT NULL,
	FOREIGN KEY (from_state_id) REFERENCES workflow_states(id),
	FOREIGN KEY (to_state_id) REFERENCES workflow_states(id)
);

CREATE INDEX IF NOT EXISTS idx_workflow_history_content ON content_workflow_history(content_id, id);

-- Retention
CREATE TABLE IF NOT EXISTS content_retention_settings (
	content_id TEXT PRIMARY KEY,
	max_versions INTEGER NOT NULL CHECK(max_versions > 0),
	max_days INTEGER NOT NULL CHECK(max_days > 0),
	updated_at DATETIME NOT NULL
);
`

const approvalSchemaSQL = `
-- Approval gates
CREATE TABLE IF NOT EXISTS approval_workflows (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	gated_state_name TEXT NOT NULL UNIQUE,
	mode TEXT NOT NULL CHECK(mode IN ('sequential', 'parallel')),
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS approval_steps (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	step_order INTEGER NOT NULL CHECK(step_order > 0),
	name TEXT NOT NULL,
	required_approvals INTEGER NOT NULL DEFAULT 1 CHECK(required_approvals > 0),
	approval_logic TEXT NOT NULL CHECK(approval_logic IN ('any', 'all')),
	timeout_seconds INTEGER,
	escalate_to_user_id TEXT,
	FOREIGN KEY (workflow_id) REFERENCES approval_workflows(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_steps_order ON approval_steps(workflow_id, step_order);

CREATE TABLE IF NOT EXISTS approval_requests (
	id TEXT PRIMARY KEY,
	content_id TEXT NOT NULL,
	workflow_id TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	requested_at DATETIME NOT NULL,
	FOREIGN KEY (workflow_id) REFERENCES approval_workflows(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_approval_requests_content ON approval_requests(content_id, workflow_id, requested_at);

CREATE TABLE IF NOT EXISTS approval_decisions (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	step_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	decision TEXT NOT NULL CHECK(decision IN ('approved', 'rejected', 'changes_requested')),
	comments TEXT,
	decided_at DATETIME NOT NULL,
	FOREIGN KEY (request_id) REFERENCES approval_requests(id) ON DELETE CASCADE,
	FOREIGN KEY (step_id) REFERENCES approval_steps(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_decisions_once ON approval_decisions(request_id, step_id, user_id);
`

const auditSchemaSQL = `
-- Audit trail
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
`

const autosaveSchemaSQL = `
-- Autosaved drafts: unnumbered, never a branch head, one per author and branch
CREATE TABLE IF NOT EXISTS content_autosaves (
	id TEXT PRIMARY KEY,
	content_id TEXT NOT NULL,
	branch_name TEXT NOT NULL,
	data TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_content_autosaves_slot ON content_autosaves(content_id, branch_name, author_id);
CREATE INDEX IF NOT EXISTS idx_content_autosaves_created ON content_autosaves(content_id, created_at);
`

// approvalConsumptionSQL closes a request once a transition into its gated
// state commits, so a later entry needs a fresh request.
const approvalConsumptionSQL = `
ALTER TABLE approval_requests ADD COLUMN consumed_at DATETIME;
ALTER TABLE approval_requests ADD COLUMN consumed_by_history_id INTEGER REFERENCES content_workflow_history(id) ON DELETE SET NULL;
`

// InitSchema brings the database up to date. Fresh databases get SchemaSQL
// directly with every migration marked applied; existing ones run pending
// migrations.
func InitSchema(ctx context.Context, database *sql.DB) error {
	var tableCount int
	err := database.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(ctx, database)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, SchemaSQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, schemaVersionSQL); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

// ApprovalRepository implements secondary.ApprovalRepository with SQLite.
type ApprovalRepository struct {
	db *sql.DB
	tx txSettings
}

// NewApprovalRepository creates a new SQLite approval repository.
func NewApprovalRepository(db *sql.DB, opts ...Option) *ApprovalRepository {
	return &ApprovalRepository{db: db, tx: newTxSettings(opts)}
}

// CreateWorkflow persists a new gate.
func (r *ApprovalRepository) CreateWorkflow(ctx context.Context, wf *secondary.ApprovalWorkflowRecord) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO approval_workflows (id, name, gated_state_name, mode, created_at) VALUES (?, ?, ?, ?, ?)",
		wf.ID, wf.Name, wf.GatedStateName, wf.Mode, ts)
	if err != nil {
		return mapError("approval.create_workflow", fmt.Errorf("failed to create approval workflow: %w", err))
	}
	wf.CreatedAt = ts
	return nil
}

func scanWorkflow(row rowScanner) (*secondary.ApprovalWorkflowRecord, error) {
	var createdAt time.Time
	record := &secondary.ApprovalWorkflowRecord{}
	if err := row.Scan(&record.ID, &record.Name, &record.GatedStateName, &record.Mode, &createdAt); err != nil {
		return nil, err
	}
	record.CreatedAt = createdAt.UTC()
	return record, nil
}

// GetWorkflow retrieves a gate by ID.
func (r *ApprovalRepository) GetWorkflow(ctx context.Context, id string) (*secondary.ApprovalWorkflowRecord, error) {
	record, err := scanWorkflow(r.db.QueryRowContext(ctx,
		"SELECT id, name, gated_state_name, mode, created_at FROM approval_workflows WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("approval.workflow", "approval workflow %s not found", id)
	}
	if err != nil {
		return nil, mapError("approval.workflow", err)
	}
	return record, nil
}

// GetWorkflowByState retrieves the gate guarding a state.
func (r *ApprovalRepository) GetWorkflowByState(ctx context.Context, stateName string) (*secondary.ApprovalWorkflowRecord, error) {
	record, err := scanWorkflow(r.db.QueryRowContext(ctx,
		"SELECT id, name, gated_state_name, mode, created_at FROM approval_workflows WHERE gated_state_name = ?", stateName))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("approval.workflow", "state %q has no approval gate", stateName)
	}
	if err != nil {
		return nil, mapError("approval.workflow", err)
	}
	return record, nil
}

// ListWorkflows retrieves all gates.
func (r *ApprovalRepository) ListWorkflows(ctx context.Context) ([]*secondary.ApprovalWorkflowRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, gated_state_name, mode, created_at FROM approval_workflows ORDER BY name")
	if err != nil {
		return nil, mapError("approval.workflows", err)
	}
	defer rows.Close()

	var out []*secondary.ApprovalWorkflowRecord
	for rows.Next() {
		record, err := scanWorkflow(rows)
		if err != nil {
			return nil, mapError("approval.workflows", err)
		}
		out = append(out, record)
	}
	return out, mapError("approval.workflows", rows.Err())
}

// AddStep persists a step, assigning the next order when StepOrder is zero.
func (r *ApprovalRepository) AddStep(ctx context.Context, step *secondary.ApprovalStepRecord) error {
	const op = "approval.add_step"
	order := step.StepOrder
	err := r.tx.inTx(ctx, r.db, op, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM approval_workflows WHERE id = ?", step.WorkflowID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return apperr.NotFound(op, "approval workflow %s not found", step.WorkflowID)
		}

		if order == 0 {
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(step_order), 0) + 1 FROM approval_steps WHERE workflow_id = ?",
				step.WorkflowID).Scan(&order); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO approval_steps (id, workflow_id, step_order, name, required_approvals, approval_logic, timeout_seconds, escalate_to_user_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			step.ID, step.WorkflowID, order, step.Name, step.RequiredApprovals, step.ApprovalLogic,
			nullInt(int64(step.TimeoutSeconds)), nullString(step.EscalateToUserID))
		return err
	})
	if err != nil {
		return err
	}
	step.StepOrder = order
	return nil
}

// ListSteps retrieves a gate's steps ordered by step_order.
func (r *ApprovalRepository) ListSteps(ctx context.Context, workflowID string) ([]*secondary.ApprovalStepRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workflow_id, step_order, name, required_approvals, approval_logic, timeout_seconds, escalate_to_user_id
		 FROM approval_steps WHERE workflow_id = ? ORDER BY step_order`, workflowID)
	if err != nil {
		return nil, mapError("approval.steps", err)
	}
	defer rows.Close()

	var out []*secondary.ApprovalStepRecord
	for rows.Next() {
		var (
			timeout  sql.NullInt64
			escalate sql.NullString
		)
		record := &secondary.ApprovalStepRecord{}
		if err := rows.Scan(&record.ID, &record.WorkflowID, &record.StepOrder, &record.Name,
			&record.RequiredApprovals, &record.ApprovalLogic, &timeout, &escalate); err != nil {
			return nil, mapError("approval.steps", err)
		}
		record.TimeoutSeconds = int(timeout.Int64)
		record.EscalateToUserID = escalate.String
		out = append(out, record)
	}
	return out, mapError("approval.steps", rows.Err())
}

// CreateRequest persists a new approval request.
func (r *ApprovalRepository) CreateRequest(ctx context.Context, req *secondary.ApprovalRequestRecord) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO approval_requests (id, content_id, workflow_id, requested_by, requested_at) VALUES (?, ?, ?, ?, ?)",
		req.ID, req.ContentID, req.WorkflowID, req.RequestedBy, ts)
	if err != nil {
		return mapError("approval.request", err)
	}
	req.RequestedAt = ts
	return nil
}

const requestColumns = "id, content_id, workflow_id, requested_by, requested_at, consumed_at, consumed_by_history_id"

func scanRequest(row rowScanner) (*secondary.ApprovalRequestRecord, error) {
	var (
		requestedAt time.Time
		consumedAt  sql.NullTime
		consumedBy  sql.NullInt64
	)
	record := &secondary.ApprovalRequestRecord{}
	if err := row.Scan(&record.ID, &record.ContentID, &record.WorkflowID, &record.RequestedBy, &requestedAt,
		&consumedAt, &consumedBy); err != nil {
		return nil, err
	}
	record.RequestedAt = requestedAt.UTC()
	if consumedAt.Valid {
		t := consumedAt.Time.UTC()
		record.ConsumedAt = &t
	}
	record.ConsumedBy = consumedBy.Int64
	return record, nil
}

// GetRequest retrieves a request by ID.
func (r *ApprovalRepository) GetRequest(ctx context.Context, id string) (*secondary.ApprovalRequestRecord, error) {
	record, err := scanRequest(r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM approval_requests WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("approval.request", "approval request %s not found", id)
	}
	if err != nil {
		return nil, mapError("approval.request", err)
	}
	return record, nil
}

// GetOpenRequest retrieves the newest unconsumed request for content under a gate.
func (r *ApprovalRepository) GetOpenRequest(ctx context.Context, contentID, workflowID string) (*secondary.ApprovalRequestRecord, error) {
	record, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM approval_requests
		 WHERE content_id = ? AND workflow_id = ? AND consumed_at IS NULL
		 ORDER BY requested_at DESC, rowid DESC LIMIT 1`,
		contentID, workflowID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("approval.request", "no open approval request for content %s", contentID)
	}
	if err != nil {
		return nil, mapError("approval.request", err)
	}
	return record, nil
}

// CreateDecision persists a decision.
func (r *ApprovalRepository) CreateDecision(ctx context.Context, d *secondary.ApprovalDecisionRecord) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO approval_decisions (id, request_id, step_id, user_id, decision, comments, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RequestID, d.StepID, d.UserID, d.Decision, nullString(d.Comments), ts)
	if err != nil {
		return mapError("approval.decide", err)
	}
	d.DecidedAt = ts
	return nil
}

// ListDecisions retrieves a request's decisions oldest first.
func (r *ApprovalRepository) ListDecisions(ctx context.Context, requestID string) ([]*secondary.ApprovalDecisionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, step_id, user_id, decision, comments, decided_at
		 FROM approval_decisions WHERE request_id = ? ORDER BY decided_at, rowid`, requestID)
	if err != nil {
		return nil, mapError("approval.decisions", err)
	}
	defer rows.Close()

	var out []*secondary.ApprovalDecisionRecord
	for rows.Next() {
		var (
			comments  sql.NullString
			decidedAt time.Time
		)
		record := &secondary.ApprovalDecisionRecord{}
		if err := rows.Scan(&record.ID, &record.RequestID, &record.StepID, &record.UserID,
			&record.Decision, &comments, &decidedAt); err != nil {
			return nil, mapError("approval.decisions", err)
		}
		record.Comments = comments.String
		record.DecidedAt = decidedAt.UTC()
		out = append(out, record)
	}
	return out, mapError("approval.decisions", rows.Err())
}

var _ secondary.ApprovalRepository = (*ApprovalRepository)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

// WorkflowStateRepository implements secondary.WorkflowStateRepository with SQLite.
type WorkflowStateRepository struct {
	db *sql.DB
}

// NewWorkflowStateRepository creates a new SQLite workflow state repository.
func NewWorkflowStateRepository(db *sql.DB) *WorkflowStateRepository {
	return &WorkflowStateRepository{db: db}
}

const stateColumns = "id, name, label, description, is_initial, is_terminal"

func scanState(row rowScanner) (*secondary.WorkflowStateRecord, error) {
	var desc sql.NullString
	record := &secondary.WorkflowStateRecord{}
	if err := row.Scan(&record.ID, &record.Name, &record.Label, &desc, &record.IsInitial, &record.IsTerminal); err != nil {
		return nil, err
	}
	record.Description = desc.String
	return record, nil
}

// Create persists a new state and sets its ID.
func (r *WorkflowStateRepository) Create(ctx context.Context, state *secondary.WorkflowStateRecord) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO workflow_states (name, label, description, is_initial, is_terminal) VALUES (?, ?, ?, ?, ?)",
		state.Name, state.Label, nullString(state.Description), boolInt(state.IsInitial), boolInt(state.IsTerminal),
	)
	if err != nil {
		return mapError("state.create", fmt.Errorf("failed to create state %s: %w", state.Name, err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return apperr.Storage("state.create", err)
	}
	state.ID = id
	return nil
}

// GetByID retrieves a state by ID.
func (r *WorkflowStateRepository) GetByID(ctx context.Context, id int64) (*secondary.WorkflowStateRecord, error) {
	record, err := scanState(r.db.QueryRowContext(ctx,
		"SELECT "+stateColumns+" FROM workflow_states WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("state.get", "workflow state %d not found", id)
	}
	if err != nil {
		return nil, mapError("state.get", err)
	}
	return record, nil
}

// GetByName retrieves a state by name.
func (r *WorkflowStateRepository) GetByName(ctx context.Context, name string) (*secondary.WorkflowStateRecord, error) {
	record, err := scanState(r.db.QueryRowContext(ctx,
		"SELECT "+stateColumns+" FROM workflow_states WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("state.get", "workflow state %q not found", name)
	}
	if err != nil {
		return nil, mapError("state.get", err)
	}
	return record, nil
}

// GetInitial retrieves the initial state.
func (r *WorkflowStateRepository) GetInitial(ctx context.Context) (*secondary.WorkflowStateRecord, error) {
	record, err := scanState(r.db.QueryRowContext(ctx,
		"SELECT "+stateColumns+" FROM workflow_states WHERE is_initial = 1"))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("state.initial", "no initial workflow state is configured")
	}
	if err != nil {
		return nil, mapError("state.initial", err)
	}
	return record, nil
}

// List retrieves all states ordered by ID.
func (r *WorkflowStateRepository) List(ctx context.Context) ([]*secondary.WorkflowStateRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+stateColumns+" FROM workflow_states ORDER BY id")
	if err != nil {
		return nil, mapError("state.list", err)
	}
	defer rows.Close()

	var states []*secondary.WorkflowStateRecord
	for rows.Next() {
		record, err := scanState(rows)
		if err != nil {
			return nil, mapError("state.list", err)
		}
		states = append(states, record)
	}
	return states, mapError("state.list", rows.Err())
}

// ContentWorkflowRepository implements secondary.ContentWorkflowRepository with SQLite.
type ContentWorkflowRepository struct {
	db *sql.DB
	tx txSettings
}

// NewContentWorkflowRepository creates a new SQLite content workflow repository.
func NewContentWorkflowRepository(db *sql.DB, opts ...Option) *ContentWorkflowRepository {
	return &ContentWorkflowRepository{db: db, tx: newTxSettings(opts)}
}

// GetEntry retrieves the current entry.
func (r *ContentWorkflowRepository) GetEntry(ctx context.Context, contentID string) (*secondary.ContentWorkflowRecord, error) {
	var (
		assignee, notes sql.NullString
		updatedAt       time.Time
	)
	record := &secondary.ContentWorkflowRecord{ContentID: contentID}
	err := r.db.QueryRowContext(ctx,
		"SELECT workflow_state_id, user_id, assigned_to_user_id, notes, updated_at FROM content_workflow WHERE content_id = ?",
		contentID,
	).Scan(&record.WorkflowStateID, &record.UserID, &assignee, &notes, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("workflow.entry", "content %s has no workflow state", contentID)
	}
	if err != nil {
		return nil, mapError("workflow.entry", err)
	}
	record.AssignedToUserID = assignee.String
	record.Notes = notes.String
	record.UpdatedAt = updatedAt.UTC()
	return record, nil
}

// Transition compares the current state against ExpectedFromStateID,
// appends history and upserts the entry, all in one transaction.
func (r *ContentWorkflowRepository) Transition(ctx context.Context, t *secondary.TransitionRecord) error {
	const op = "workflow.transition"
	ts := now()
	var historyID int64

	err := r.tx.inTx(ctx, r.db, op, func(ctx context.Context, tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			"SELECT workflow_state_id FROM content_workflow WHERE content_id = ?", t.ContentID,
		).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read current state: %w", err)
		}
		if current != t.ExpectedFromStateID {
			return apperr.Conflict(op, "content %s moved to state %d while transitioning from state %d",
				t.ContentID, current, t.ExpectedFromStateID)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO content_workflow_history (content_id, from_state_id, to_state_id, user_id, notes, transitioned_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.ContentID, nullInt(t.ExpectedFromStateID), t.ToStateID, t.UserID, nullString(t.Notes), ts,
		)
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		if historyID, err = result.LastInsertId(); err != nil {
			return err
		}

		if t.ApprovalRequestID != "" {
			if err := consumeRequest(ctx, tx, op, t, historyID, ts); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_workflow (content_id, workflow_state_id, user_id, assigned_to_user_id, notes, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(content_id) DO UPDATE SET
				workflow_state_id = excluded.workflow_state_id,
				user_id = excluded.user_id,
				assigned_to_user_id = excluded.assigned_to_user_id,
				notes = excluded.notes,
				updated_at = excluded.updated_at`,
			t.ContentID, t.ToStateID, t.UserID, nullString(t.AssigneeID), nullString(t.Notes), ts,
		); err != nil {
			return fmt.Errorf("failed to upsert current state: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.HistoryID = historyID
	t.TransitionedAt = ts
	return nil
}

// consumeRequest closes the approval request that satisfied the gate. A
// decision recorded after the gate was evaluated, or a second transition
// racing for the same request, fails the whole transition.
func consumeRequest(ctx context.Context, tx *sql.Tx, op string, t *secondary.TransitionRecord, historyID int64, ts time.Time) error {
	var decisions int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM approval_decisions WHERE request_id = ?", t.ApprovalRequestID,
	).Scan(&decisions); err != nil {
		return fmt.Errorf("failed to count approval decisions: %w", err)
	}
	if decisions != t.ApprovalDecisions {
		return apperr.Conflict(op, "approval request %s received %d new decision(s) while transitioning",
			t.ApprovalRequestID, decisions-t.ApprovalDecisions)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE approval_requests SET consumed_at = ?, consumed_by_history_id = ?
		 WHERE id = ? AND content_id = ? AND consumed_at IS NULL`,
		ts, historyID, t.ApprovalRequestID, t.ContentID)
	if err != nil {
		return fmt.Errorf("failed to consume approval request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict(op, "approval request %s was already used by another transition", t.ApprovalRequestID)
	}
	return nil
}

// ListHistory retrieves history newest first with state names.
func (r *ContentWorkflowRepository) ListHistory(ctx context.Context, contentID string, limit, offset int) ([]*secondary.WorkflowHistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT h.id, h.content_id, h.from_state_id, fs.name, h.to_state_id, ts.name, h.user_id, h.notes, h.transitioned_at
		 FROM content_workflow_history h
		 LEFT JOIN workflow_states fs ON fs.id = h.from_state_id
		 JOIN workflow_states ts ON ts.id = h.to_state_id
		 WHERE h.content_id = ?
		 ORDER BY h.id DESC
		 LIMIT ? OFFSET ?`,
		contentID, limit, offset)
	if err != nil {
		return nil, mapError("workflow.history", err)
	}
	defer rows.Close()

	var history []*secondary.WorkflowHistoryRecord
	for rows.Next() {
		var (
			fromID         sql.NullInt64
			fromName       sql.NullString
			notes          sql.NullString
			transitionedAt time.Time
		)
		record := &secondary.WorkflowHistoryRecord{}
		if err := rows.Scan(&record.ID, &record.ContentID, &fromID, &fromName, &record.ToStateID, &record.ToStateName,
			&record.UserID, &notes, &transitionedAt); err != nil {
			return nil, mapError("workflow.history", err)
		}
		record.FromStateID = fromID.Int64
		record.FromStateName = fromName.String
		record.Notes = notes.String
		record.TransitionedAt = transitionedAt.UTC()
		history = append(history, record)
	}
	return history, mapError("workflow.history", rows.Err())
}

// CountHistory counts history rows for a content item.
func (r *ContentWorkflowRepository) CountHistory(ctx context.Context, contentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM content_workflow_history WHERE content_id = ?", contentID).Scan(&n)
	if err != nil {
		return 0, mapError("workflow.history_count", err)
	}
	return n, nil
}

var (
	_ secondary.WorkflowStateRepository   = (*WorkflowStateRepository)(nil)
	_ secondary.ContentWorkflowRepository = (*ContentWorkflowRepository)(nil)
)

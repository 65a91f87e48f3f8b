package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

// BranchRepository implements secondary.BranchRepository with SQLite.
type BranchRepository struct {
	db *sql.DB
	tx txSettings
}

// NewBranchRepository creates a new SQLite branch repository.
func NewBranchRepository(db *sql.DB, opts ...Option) *BranchRepository {
	return &BranchRepository{db: db, tx: newTxSettings(opts)}
}

const branchColumns = "id, name, content_id, description, base_version_id, head_version_id, is_default, is_protected, created_at, updated_at"

func scanBranch(row rowScanner) (*secondary.BranchRecord, error) {
	var (
		desc, base, head     sql.NullString
		createdAt, updatedAt time.Time
	)
	record := &secondary.BranchRecord{}
	err := row.Scan(&record.ID, &record.Name, &record.ContentID, &desc, &base, &head,
		&record.IsDefault, &record.IsProtected, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	record.Description = desc.String
	record.BaseVersionID = base.String
	record.HeadVersionID = head.String
	record.CreatedAt = createdAt.UTC()
	record.UpdatedAt = updatedAt.UTC()
	return record, nil
}

// Create persists a new branch.
func (r *BranchRepository) Create(ctx context.Context, branch *secondary.BranchRecord) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO branches ("+branchColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		branch.ID, branch.Name, branch.ContentID, nullString(branch.Description),
		nullString(branch.BaseVersionID), nullString(branch.HeadVersionID),
		boolInt(branch.IsDefault), boolInt(branch.IsProtected), ts, ts,
	)
	if err != nil {
		return mapError("branch.create", fmt.Errorf("failed to create branch %s: %w", branch.Name, err))
	}
	branch.CreatedAt = ts
	branch.UpdatedAt = ts
	return nil
}

// GetByName retrieves a branch by content and name.
func (r *BranchRepository) GetByName(ctx context.Context, contentID, name string) (*secondary.BranchRecord, error) {
	record, err := scanBranch(r.db.QueryRowContext(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE content_id = ? AND name = ?", contentID, name))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("branch.get", "branch %q not found for content %s", name, contentID)
	}
	if err != nil {
		return nil, mapError("branch.get", err)
	}
	return record, nil
}

// GetDefault retrieves the content's default branch.
func (r *BranchRepository) GetDefault(ctx context.Context, contentID string) (*secondary.BranchRecord, error) {
	record, err := scanBranch(r.db.QueryRowContext(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE content_id = ? AND is_default = 1", contentID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("branch.default", "content %s has no default branch", contentID)
	}
	if err != nil {
		return nil, mapError("branch.default", err)
	}
	return record, nil
}

// List retrieves all branches for a content item, default first.
func (r *BranchRepository) List(ctx context.Context, contentID string) ([]*secondary.BranchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+branchColumns+" FROM branches WHERE content_id = ? ORDER BY is_default DESC, name ASC", contentID)
	if err != nil {
		return nil, mapError("branch.list", err)
	}
	defer rows.Close()

	var branches []*secondary.BranchRecord
	for rows.Next() {
		record, err := scanBranch(rows)
		if err != nil {
			return nil, mapError("branch.list", err)
		}
		branches = append(branches, record)
	}
	return branches, mapError("branch.list", rows.Err())
}

// SetProtected updates the protected flag.
func (r *BranchRepository) SetProtected(ctx context.Context, contentID, name string, protected bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE branches SET is_protected = ?, updated_at = ? WHERE content_id = ? AND name = ?",
		boolInt(protected), now(), contentID, name)
	if err != nil {
		return mapError("branch.protect", err)
	}
	return requireRow(result, apperr.NotFound("branch.protect", "branch %q not found for content %s", name, contentID))
}

// SetDefault clears the current default and sets the named branch in one
// transaction, so the one-default index never sees two rows.
func (r *BranchRepository) SetDefault(ctx context.Context, contentID, name string) error {
	const op = "branch.set_default"
	return r.tx.inTx(ctx, r.db, op, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM branches WHERE content_id = ? AND name = ?", contentID, name,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return apperr.NotFound(op, "branch %q not found for content %s", name, contentID)
		}

		ts := now()
		if _, err := tx.ExecContext(ctx,
			"UPDATE branches SET is_default = 0, updated_at = ? WHERE content_id = ? AND is_default = 1 AND name != ?",
			ts, contentID, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE branches SET is_default = 1, updated_at = ? WHERE content_id = ? AND name = ?",
			ts, contentID, name)
		return err
	})
}

// Delete removes a branch. Versions tagged with its name stay.
func (r *BranchRepository) Delete(ctx context.Context, contentID, name string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM branches WHERE content_id = ? AND name = ?", contentID, name)
	if err != nil {
		return mapError("branch.delete", err)
	}
	return requireRow(result, apperr.NotFound("branch.delete", "branch %q not found for content %s", name, contentID))
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperr.Storage("rows_affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ secondary.BranchRepository = (*BranchRepository)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

// VersionRepository implements secondary.VersionRepository with SQLite.
type VersionRepository struct {
	db *sql.DB
	tx txSettings
}

// NewVersionRepository creates a new SQLite version repository.
func NewVersionRepository(db *sql.DB, opts ...Option) *VersionRepository {
	return &VersionRepository{db: db, tx: newTxSettings(opts)}
}

const versionColumns = "id, content_id, version_number, data, author_id, notes, created_at, parent_version_id, branch_name, reverted_from, merged_from_branch"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*secondary.VersionRecord, error) {
	var (
		notes, parent, merged sql.NullString
		revertedFrom          sql.NullInt64
		createdAt             time.Time
	)
	record := &secondary.VersionRecord{}
	err := row.Scan(&record.ID, &record.ContentID, &record.VersionNumber, &record.Data, &record.AuthorID,
		&notes, &createdAt, &parent, &record.BranchName, &revertedFrom, &merged)
	if err != nil {
		return nil, err
	}
	record.Notes = notes.String
	record.CreatedAt = createdAt.UTC()
	record.ParentVersionID = parent.String
	record.RevertedFrom = int(revertedFrom.Int64)
	record.MergedFromBranch = merged.String
	return record, nil
}

// Append writes a version, moves its branch head and stores its changelog
// in one transaction.
func (r *VersionRepository) Append(ctx context.Context, req *secondary.VersionAppend) error {
	const op = "version.append"
	v := req.Version
	var (
		number    int
		createdAt = now()
	)

	err := r.tx.inTx(ctx, r.db, op, func(ctx context.Context, tx *sql.Tx) error {
		if b := req.CreateBranch; b != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO branches (id, name, content_id, description, is_default, is_protected, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				b.ID, b.Name, b.ContentID, nullString(b.Description), boolInt(b.IsDefault), boolInt(b.IsProtected), createdAt, createdAt,
			); err != nil {
				return fmt.Errorf("failed to create branch %s: %w", b.Name, err)
			}
		}

		var head sql.NullString
		err := tx.QueryRowContext(ctx,
			"SELECT head_version_id FROM branches WHERE content_id = ? AND name = ?",
			v.ContentID, v.BranchName,
		).Scan(&head)
		if err == sql.ErrNoRows {
			return apperr.NotFound(op, "branch %q not found for content %s", v.BranchName, v.ContentID)
		}
		if err != nil {
			return fmt.Errorf("failed to read branch head: %w", err)
		}
		if head.String != req.ExpectedHeadID {
			return apperr.Conflict(op, "branch %q head moved from %q to %q", v.BranchName, req.ExpectedHeadID, head.String)
		}

		if req.AutosaveID != "" {
			result, err := tx.ExecContext(ctx,
				"DELETE FROM content_autosaves WHERE id = ? AND content_id = ?", req.AutosaveID, v.ContentID)
			if err != nil {
				return fmt.Errorf("failed to remove promoted autosave: %w", err)
			}
			if n, err := result.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return apperr.NotFound(op, "autosave %s not found for content %s", req.AutosaveID, v.ContentID)
			}
		}

		var latest int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(version_number), 0) FROM content_versions WHERE content_id = ?",
			v.ContentID,
		).Scan(&latest); err != nil {
			return fmt.Errorf("failed to read latest version number: %w", err)
		}
		number = latest + 1

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO content_versions ("+versionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			v.ID, v.ContentID, number, v.Data, v.AuthorID, nullString(v.Notes), createdAt,
			nullString(v.ParentVersionID), v.BranchName, nullInt(int64(v.RevertedFrom)), nullString(v.MergedFromBranch),
		); err != nil {
			return fmt.Errorf("failed to insert version %d: %w", number, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE branches SET head_version_id = ?, base_version_id = COALESCE(base_version_id, ?), updated_at = ?
			 WHERE content_id = ? AND name = ?`,
			v.ID, v.ID, createdAt, v.ContentID, v.BranchName,
		); err != nil {
			return fmt.Errorf("failed to move branch head: %w", err)
		}

		if cl := req.Changelog; cl != nil {
			fields, err := json.Marshal(nonNil(cl.FieldsChanged))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO version_changelogs (version_id, from_version_id, fields_changed, added, removed, modified, similarity, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				v.ID, nullString(cl.FromVersionID), string(fields), cl.Added, cl.Removed, cl.Modified, cl.Similarity, createdAt,
			); err != nil {
				return fmt.Errorf("failed to write changelog: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.VersionNumber = number
	v.CreatedAt = createdAt
	if req.Changelog != nil {
		req.Changelog.VersionID = v.ID
		req.Changelog.CreatedAt = createdAt
	}
	if req.CreateBranch != nil {
		req.CreateBranch.BaseVersionID = v.ID
		req.CreateBranch.HeadVersionID = v.ID
		req.CreateBranch.CreatedAt = createdAt
		req.CreateBranch.UpdatedAt = createdAt
	}
	return nil
}

// GetByID retrieves a version by its ID.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*secondary.VersionRecord, error) {
	record, err := scanVersion(r.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM content_versions WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.get", "version %s not found", id)
	}
	if err != nil {
		return nil, mapError("version.get", err)
	}
	return record, nil
}

// GetByNumber retrieves a version by content and number.
func (r *VersionRepository) GetByNumber(ctx context.Context, contentID string, number int) (*secondary.VersionRecord, error) {
	record, err := scanVersion(r.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM content_versions WHERE content_id = ? AND version_number = ?",
		contentID, number))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.get", "version %d of content %s not found", number, contentID)
	}
	if err != nil {
		return nil, mapError("version.get", err)
	}
	return record, nil
}

// GetLatest retrieves the highest-numbered version of a content item.
func (r *VersionRepository) GetLatest(ctx context.Context, contentID string) (*secondary.VersionRecord, error) {
	record, err := scanVersion(r.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM content_versions WHERE content_id = ? ORDER BY version_number DESC LIMIT 1",
		contentID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.latest", "content %s has no versions", contentID)
	}
	if err != nil {
		return nil, mapError("version.latest", err)
	}
	return record, nil
}

// List retrieves versions ordered by version_number desc.
// A non-positive limit returns every version.
func (r *VersionRepository) List(ctx context.Context, contentID string, limit, offset int) ([]*secondary.VersionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM content_versions WHERE content_id = ? ORDER BY version_number DESC LIMIT ? OFFSET ?",
		contentID, limit, offset)
	if err != nil {
		return nil, mapError("version.list", err)
	}
	defer rows.Close()

	var versions []*secondary.VersionRecord
	for rows.Next() {
		record, err := scanVersion(rows)
		if err != nil {
			return nil, mapError("version.list", err)
		}
		versions = append(versions, record)
	}
	return versions, mapError("version.list", rows.Err())
}

// GetChangelog retrieves the changelog stored with a version.
func (r *VersionRepository) GetChangelog(ctx context.Context, versionID string) (*secondary.ChangelogRecord, error) {
	var (
		from      sql.NullString
		fields    string
		createdAt time.Time
	)
	record := &secondary.ChangelogRecord{VersionID: versionID}
	err := r.db.QueryRowContext(ctx,
		`SELECT from_version_id, fields_changed, added, removed, modified, similarity, created_at
		 FROM version_changelogs WHERE version_id = ?`, versionID,
	).Scan(&from, &fields, &record.Added, &record.Removed, &record.Modified, &record.Similarity, &createdAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.changelog", "no changelog for version %s", versionID)
	}
	if err != nil {
		return nil, mapError("version.changelog", err)
	}
	if err := json.Unmarshal([]byte(fields), &record.FieldsChanged); err != nil {
		return nil, apperr.Storage("version.changelog", err)
	}
	record.FromVersionID = from.String
	record.CreatedAt = createdAt.UTC()
	return record, nil
}

const autosaveColumns = "id, content_id, branch_name, data, author_id, created_at"

func scanAutosave(row rowScanner) (*secondary.AutosaveRecord, error) {
	var createdAt time.Time
	record := &secondary.AutosaveRecord{}
	if err := row.Scan(&record.ID, &record.ContentID, &record.BranchName, &record.Data, &record.AuthorID, &createdAt); err != nil {
		return nil, err
	}
	record.CreatedAt = createdAt.UTC()
	return record, nil
}

// SaveAutosave replaces the author's autosave of the content and branch.
func (r *VersionRepository) SaveAutosave(ctx context.Context, a *secondary.AutosaveRecord) error {
	const op = "version.autosave"
	ts := now()
	err := r.tx.inTx(ctx, r.db, op, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM content_autosaves WHERE content_id = ? AND branch_name = ? AND author_id = ?",
			a.ContentID, a.BranchName, a.AuthorID,
		); err != nil {
			return fmt.Errorf("failed to replace autosave: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO content_autosaves ("+autosaveColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			a.ID, a.ContentID, a.BranchName, a.Data, a.AuthorID, ts)
		return err
	})
	if err != nil {
		return err
	}
	a.CreatedAt = ts
	return nil
}

// GetAutosave retrieves an autosave by ID.
func (r *VersionRepository) GetAutosave(ctx context.Context, id string) (*secondary.AutosaveRecord, error) {
	record, err := scanAutosave(r.db.QueryRowContext(ctx,
		"SELECT "+autosaveColumns+" FROM content_autosaves WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.autosave", "autosave %s not found", id)
	}
	if err != nil {
		return nil, mapError("version.autosave", err)
	}
	return record, nil
}

// GetLatestAutosave retrieves the newest autosave of a content item.
func (r *VersionRepository) GetLatestAutosave(ctx context.Context, contentID string) (*secondary.AutosaveRecord, error) {
	record, err := scanAutosave(r.db.QueryRowContext(ctx,
		"SELECT "+autosaveColumns+" FROM content_autosaves WHERE content_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		contentID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version.autosave", "content %s has no autosave", contentID)
	}
	if err != nil {
		return nil, mapError("version.autosave", err)
	}
	return record, nil
}

// StorageUsage measures stored payloads in bytes.
func (r *VersionRepository) StorageUsage(ctx context.Context, contentID string, top int) (*secondary.StorageUsageRecord, error) {
	const op = "version.storage"
	usage := &secondary.StorageUsageRecord{}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(CAST(data AS BLOB))), 0) FROM content_versions WHERE content_id = ?",
		contentID,
	).Scan(&usage.TotalVersions, &usage.TotalBytes); err != nil {
		return nil, mapError(op, err)
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(CAST(data AS BLOB))), 0) FROM content_autosaves WHERE content_id = ?",
		contentID,
	).Scan(&usage.Autosaves, &usage.AutosaveBytes); err != nil {
		return nil, mapError(op, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version_number, LENGTH(CAST(data AS BLOB)) AS size
		 FROM content_versions WHERE content_id = ?
		 ORDER BY size DESC, version_number DESC LIMIT ?`,
		contentID, top)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var v secondary.VersionSizeRecord
		if err := rows.Scan(&v.VersionID, &v.VersionNumber, &v.Bytes); err != nil {
			return nil, mapError(op, err)
		}
		usage.Largest = append(usage.Largest, v)
	}
	return usage, mapError(op, rows.Err())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ secondary.VersionRepository = (*VersionRepository)(nil)

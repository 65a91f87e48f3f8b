package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

// RetentionRepository implements secondary.RetentionRepository with SQLite.
type RetentionRepository struct {
	db *sql.DB
	tx txSettings
}

// NewRetentionRepository creates a new SQLite retention repository.
func NewRetentionRepository(db *sql.DB, opts ...Option) *RetentionRepository {
	return &RetentionRepository{db: db, tx: newTxSettings(opts)}
}

// GetSettings retrieves stored settings.
func (r *RetentionRepository) GetSettings(ctx context.Context, contentID string) (*secondary.RetentionSettingsRecord, error) {
	var updatedAt time.Time
	record := &secondary.RetentionSettingsRecord{ContentID: contentID}
	err := r.db.QueryRowContext(ctx,
		"SELECT max_versions, max_days, updated_at FROM content_retention_settings WHERE content_id = ?",
		contentID,
	).Scan(&record.MaxVersions, &record.MaxDays, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("retention.settings", "no retention settings for content %s", contentID)
	}
	if err != nil {
		return nil, mapError("retention.settings", err)
	}
	record.UpdatedAt = updatedAt.UTC()
	return record, nil
}

// SaveSettings upserts settings for a content item.
func (r *RetentionRepository) SaveSettings(ctx context.Context, settings *secondary.RetentionSettingsRecord) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO content_retention_settings (content_id, max_versions, max_days, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(content_id) DO UPDATE SET
			max_versions = excluded.max_versions,
			max_days = excluded.max_days,
			updated_at = excluded.updated_at`,
		settings.ContentID, settings.MaxVersions, settings.MaxDays, ts)
	if err != nil {
		return mapError("retention.save", err)
	}
	settings.UpdatedAt = ts
	return nil
}

// ListCandidates retrieves every version of a content item, newest first.
func (r *RetentionRepository) ListCandidates(ctx context.Context, contentID string) ([]*secondary.RetentionCandidateRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, version_number, created_at FROM content_versions WHERE content_id = ? ORDER BY version_number DESC",
		contentID)
	if err != nil {
		return nil, mapError("retention.candidates", err)
	}
	defer rows.Close()

	var out []*secondary.RetentionCandidateRecord
	for rows.Next() {
		var createdAt time.Time
		record := &secondary.RetentionCandidateRecord{}
		if err := rows.Scan(&record.ID, &record.VersionNumber, &createdAt); err != nil {
			return nil, mapError("retention.candidates", err)
		}
		record.CreatedAt = createdAt.UTC()
		out = append(out, record)
	}
	return out, mapError("retention.candidates", rows.Err())
}

// HeadVersionIDs retrieves the head version of every branch of a content item.
func (r *RetentionRepository) HeadVersionIDs(ctx context.Context, contentID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT head_version_id FROM branches WHERE content_id = ? AND head_version_id IS NOT NULL", contentID)
	if err != nil {
		return nil, mapError("retention.heads", err)
	}
	defer rows.Close()

	heads := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("retention.heads", err)
		}
		heads[id] = true
	}
	return heads, mapError("retention.heads", rows.Err())
}

// DeleteVersions deletes the given versions in one transaction. The head
// check is repeated inside the statement so a version that became a head
// after selection survives.
func (r *RetentionRepository) DeleteVersions(ctx context.Context, contentID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.tx.inTx(ctx, r.db, "retention.delete", func(ctx context.Context, tx *sql.Tx) error {
		args := make([]any, 0, len(ids)+2)
		args = append(args, contentID)
		for _, id := range ids {
			args = append(args, id)
		}
		args = append(args, contentID)

		result, err := tx.ExecContext(ctx,
			`DELETE FROM content_versions
			 WHERE content_id = ?
			   AND id IN (`+placeholders(len(ids))+`)
			   AND id NOT IN (SELECT head_version_id FROM branches WHERE content_id = ? AND head_version_id IS NOT NULL)`,
			args...)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// ListContentIDs retrieves every content id that has versions.
func (r *RetentionRepository) ListContentIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT content_id FROM content_versions ORDER BY content_id")
	if err != nil {
		return nil, mapError("retention.contents", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("retention.contents", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError("retention.contents", rows.Err())
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ secondary.RetentionRepository = (*RetentionRepository)(nil)

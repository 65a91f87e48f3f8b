package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/verflow/internal/ports/secondary"
)

// AuditRepository implements secondary.AuditRepository with SQLite.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new SQLite audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists a new audit entry and sets its ID.
func (r *AuditRepository) Create(ctx context.Context, entry *secondary.AuditRecord) error {
	ts := now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, entity_type, entity_id, action, field_name, old_value, new_value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(entry.ActorID),
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		nullString(entry.FieldName),
		nullString(entry.OldValue),
		nullString(entry.NewValue),
		ts,
	)
	if err != nil {
		return mapError("audit.create", fmt.Errorf("failed to create audit entry: %w", err))
	}
	if entry.ID, err = result.LastInsertId(); err != nil {
		return mapError("audit.create", err)
	}
	entry.CreatedAt = ts
	return nil
}

// List retrieves audit entries matching the given filters, newest first.
func (r *AuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditRecord, error) {
	query := `SELECT id, actor_id, entity_type, entity_id, action, field_name, old_value, new_value, created_at FROM audit_log WHERE 1=1`
	args := []any{}

	if filters.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filters.EntityType)
	}

	if filters.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filters.EntityID)
	}

	if filters.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filters.ActorID)
	}

	if filters.Action != "" {
		query += " AND action = ?"
		args = append(args, filters.Action)
	}

	query += " ORDER BY id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("audit.list", fmt.Errorf("failed to list audit entries: %w", err))
	}
	defer rows.Close()

	var entries []*secondary.AuditRecord
	for rows.Next() {
		var (
			actorID   sql.NullString
			fieldName sql.NullString
			oldValue  sql.NullString
			newValue  sql.NullString
			createdAt time.Time
		)

		record := &secondary.AuditRecord{}
		err := rows.Scan(&record.ID,
			&actorID,
			&record.EntityType,
			&record.EntityID,
			&record.Action,
			&fieldName,
			&oldValue,
			&newValue,
			&createdAt)
		if err != nil {
			return nil, mapError("audit.list", fmt.Errorf("failed to scan audit entry: %w", err))
		}
		record.ActorID = actorID.String
		record.FieldName = fieldName.String
		record.OldValue = oldValue.String
		record.NewValue = newValue.String
		record.CreatedAt = createdAt.UTC()

		entries = append(entries, record)
	}

	return entries, mapError("audit.list", rows.Err())
}

// PruneOlderThan deletes entries created before cutoff.
func (r *AuditRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM audit_log WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, mapError("audit.prune", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, mapError("audit.prune", err)
	}
	return int(n), nil
}

var _ secondary.AuditRepository = (*AuditRepository)(nil)

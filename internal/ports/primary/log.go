package primary

import (
	"context"
	"time"
)

// AuditService defines the primary port for reading the audit trail.
type AuditService interface {
	// ListEntries retrieves audit entries matching the given filters, newest first.
	ListEntries(ctx context.Context, filters AuditFilters) ([]*AuditEntry, error)

	// PruneEntries deletes entries older than the given number of days.
	PruneEntries(ctx context.Context, olderThanDays int) (int, error)
}

// AuditEntry represents an audit entry at the port boundary.
type AuditEntry struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actor_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"` // 'create', 'update', 'delete'
	FieldName  string    `json:"field_name,omitempty"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditFilters contains filter options for querying audit entries.
type AuditFilters struct {
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
	Limit      int
}

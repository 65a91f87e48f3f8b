package secondary

import (
	"context"
	"time"
)

// LogWriter defines the interface for writing audit log entries.
// Implementations extract the actor from context.
type LogWriter interface {
	// LogCreate logs a create operation for an entity.
	LogCreate(ctx context.Context, entityType, entityID string) error

	// LogUpdate logs an update operation for an entity field.
	// fieldName, oldValue, newValue describe what changed.
	LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error

	// LogDelete logs a delete operation for an entity.
	LogDelete(ctx context.Context, entityType, entityID string) error
}

// AuditRepository defines the secondary port for audit log persistence.
type AuditRepository interface {
	// Create persists a new entry and sets its ID.
	Create(ctx context.Context, entry *AuditRecord) error

	// List retrieves entries matching the given filters, newest first.
	List(ctx context.Context, filters AuditFilters) ([]*AuditRecord, error)

	// PruneOlderThan deletes entries created before cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditRecord represents an audit entry as stored in persistence.
type AuditRecord struct {
	ID         int64
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	FieldName  string // Empty string means null
	OldValue   string
	NewValue   string
	CreatedAt  time.Time
}

// AuditFilters contains filter options for querying audit entries.
type AuditFilters struct {
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
	Limit      int
}

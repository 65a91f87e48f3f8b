package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ctxutil"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// AuditServiceImpl implements the AuditService interface.
type AuditServiceImpl struct {
	auditRepo secondary.AuditRepository
	now       func() time.Time
}

// NewAuditService creates a new AuditService with injected dependencies.
func NewAuditService(auditRepo secondary.AuditRepository) *AuditServiceImpl {
	return &AuditServiceImpl{auditRepo: auditRepo, now: time.Now}
}

// ListEntries retrieves audit entries matching the given filters, newest first.
func (s *AuditServiceImpl) ListEntries(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEntry, error) {
	records, err := s.auditRepo.List(ctx, secondary.AuditFilters{
		EntityType: filters.EntityType,
		EntityID:   filters.EntityID,
		ActorID:    filters.ActorID,
		Action:     filters.Action,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*primary.AuditEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.AuditEntry{
			ID:         r.ID,
			ActorID:    r.ActorID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			FieldName:  r.FieldName,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
			CreatedAt:  r.CreatedAt,
		}
	}
	return entries, nil
}

// PruneEntries deletes entries older than the given number of days.
func (s *AuditServiceImpl) PruneEntries(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays < 1 {
		return 0, apperr.Validation("audit.prune", "days must be at least 1, got %d", olderThanDays)
	}
	cutoff := s.now().UTC().AddDate(0, 0, -olderThanDays)
	return s.auditRepo.PruneOlderThan(ctx, cutoff)
}

// auditTrail writes best-effort audit entries on behalf of the services.
// A failed write is logged and never fails the operation that caused it.
type auditTrail struct {
	writer secondary.LogWriter
	logger *zap.Logger
}

func newAuditTrail(writer secondary.LogWriter, logger *zap.Logger) auditTrail {
	return auditTrail{writer: writer, logger: logging.OrNop(logger)}
}

func (a auditTrail) created(ctx context.Context, actor, entityType, entityID string) {
	if a.writer == nil {
		return
	}
	ctx = ctxutil.WithActorID(ctx, ctxutil.ActorOr(ctx, actor))
	a.report(a.writer.LogCreate(ctx, entityType, entityID), entityType, entityID)
}

func (a auditTrail) updated(ctx context.Context, actor, entityType, entityID, field, oldValue, newValue string) {
	if a.writer == nil {
		return
	}
	ctx = ctxutil.WithActorID(ctx, ctxutil.ActorOr(ctx, actor))
	a.report(a.writer.LogUpdate(ctx, entityType, entityID, field, oldValue, newValue), entityType, entityID)
}

func (a auditTrail) deleted(ctx context.Context, actor, entityType, entityID string) {
	if a.writer == nil {
		return
	}
	ctx = ctxutil.WithActorID(ctx, ctxutil.ActorOr(ctx, actor))
	a.report(a.writer.LogDelete(ctx, entityType, entityID), entityType, entityID)
}

func (a auditTrail) report(err error, entityType, entityID string) {
	if err == nil {
		return
	}
	a.logger.Warn("failed to write audit entry",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Error(err))
}

// Ensure AuditServiceImpl implements the interface
var _ primary.AuditService = (*AuditServiceImpl)(nil)

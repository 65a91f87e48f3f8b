package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/core/conflict"
	"github.com/example/verflow/internal/core/diff"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// versionWriter appends versions on behalf of other services.
type versionWriter interface {
	write(ctx context.Context, op string, w versionWrite) (*primary.Version, error)
}

// ConflictServiceImpl implements the ConflictService interface.
type ConflictServiceImpl struct {
	versionRepo secondary.VersionRepository
	writer      versionWriter
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewConflictService creates a new ConflictService with injected dependencies.
func NewConflictService(
	versionRepo secondary.VersionRepository,
	versions *VersionServiceImpl,
	logger *zap.Logger,
	m *metrics.Collector,
) *ConflictServiceImpl {
	return &ConflictServiceImpl{
		versionRepo: versionRepo,
		writer:      versions,
		logger:      logging.OrNop(logger),
		metrics:     m,
	}
}

// DetectConflicts compares two versions. A missing target is not a conflict.
func (s *ConflictServiceImpl) DetectConflicts(ctx context.Context, sourceVersionID, targetVersionID string) (*primary.ConflictReport, error) {
	const op = "conflict.detect"
	if sourceVersionID == "" {
		return nil, apperr.Validation(op, "source version id is required")
	}
	source, err := loadSnapshot(ctx, s.versionRepo, sourceVersionID)
	if err != nil {
		return nil, err
	}

	var target *conflict.Snapshot
	if targetVersionID != "" {
		snap, err := loadSnapshot(ctx, s.versionRepo, targetVersionID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			target = &snap.Snapshot
		}
	}

	return detect(op, s.metrics, source.Snapshot, target)
}

// ResolveConflict applies a strategy and writes the result as a new version
// on the target's branch.
func (s *ConflictServiceImpl) ResolveConflict(ctx context.Context, req primary.ResolveConflictRequest) (*primary.Resolution, error) {
	const op = "conflict.resolve"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	strategy, err := conflict.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	source, err := loadSnapshot(ctx, s.versionRepo, req.SourceVersionID)
	if err != nil {
		return nil, err
	}
	target, err := loadSnapshot(ctx, s.versionRepo, req.TargetVersionID)
	if err != nil {
		return nil, err
	}
	if source.record.ContentID != target.record.ContentID {
		return nil, apperr.Validation(op, "versions belong to different contents (%s, %s)",
			source.record.ContentID, target.record.ContentID)
	}

	res, err := conflict.Resolve(strategy, source.Snapshot, target.Snapshot)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	version, err := s.writer.write(ctx, op, versionWrite{
		contentID: target.record.ContentID,
		branch:    target.record.BranchName,
		data:      res.Data,
		authorID:  req.UserID,
		notes:     fmt.Sprintf("Resolved conflict using %s strategy", strategy),
	})
	if err != nil {
		return nil, err
	}

	out := &primary.Resolution{
		Version:    version,
		Strategy:   string(strategy),
		Overridden: res.Overridden,
		Caveat:     res.Caveat(),
	}
	switch res.Chosen {
	case "":
	case source.record.ID:
		out.Chosen = "source"
	default:
		out.Chosen = "target"
	}
	if out.Caveat != "" {
		s.logger.Warn("lossy merge resolution",
			zap.String("content_id", version.ContentID),
			zap.Int("version", version.VersionNumber),
			zap.Strings("overridden", res.Overridden))
	}
	return out, nil
}

// loadedSnapshot keeps the record a snapshot was built from.
type loadedSnapshot struct {
	conflict.Snapshot
	record *secondary.VersionRecord
}

func loadSnapshot(ctx context.Context, repo secondary.VersionRepository, versionID string) (*loadedSnapshot, error) {
	record, err := repo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	data, err := diff.Decode([]byte(record.Data))
	if err != nil {
		return nil, apperr.Storage("version.decode", err)
	}
	return &loadedSnapshot{
		Snapshot: conflict.Snapshot{VersionID: record.ID, UpdatedAt: record.CreatedAt, Data: data},
		record:   record,
	}, nil
}

func detect(op string, m *metrics.Collector, source conflict.Snapshot, target *conflict.Snapshot) (*primary.ConflictReport, error) {
	r, err := conflict.Detect(source, target)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	m.ObserveConflict(r.TimestampConflict, r.ContentConflict)
	return &primary.ConflictReport{
		TimestampConflict: r.TimestampConflict,
		ContentConflict:   r.ContentConflict,
		SourceVersionID:   r.SourceVersionID,
		TargetVersionID:   r.TargetVersionID,
		HasConflict:       r.HasConflict(),
	}, nil
}

// Ensure ConflictServiceImpl implements the interface
var _ primary.ConflictService = (*ConflictServiceImpl)(nil)

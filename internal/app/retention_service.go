package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/core/retention"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// RetentionServiceImpl implements the RetentionService interface.
type RetentionServiceImpl struct {
	retentionRepo secondary.RetentionRepository
	limits        retention.Limits
	concurrency   int
	logger        *zap.Logger
	metrics       *metrics.Collector
	now           func() time.Time
}

// NewRetentionService creates a new RetentionService with injected dependencies.
// concurrency bounds how many contents CleanAll prunes at once.
func NewRetentionService(
	retentionRepo secondary.RetentionRepository,
	limits retention.Limits,
	concurrency int,
	logger *zap.Logger,
	m *metrics.Collector,
) *RetentionServiceImpl {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RetentionServiceImpl{
		retentionRepo: retentionRepo,
		limits:        limits,
		concurrency:   concurrency,
		logger:        logging.OrNop(logger),
		metrics:       m,
		now:           time.Now,
	}
}

// SetPolicy stores a per-content policy.
func (s *RetentionServiceImpl) SetPolicy(ctx context.Context, req primary.SetPolicyRequest) (*primary.RetentionPolicy, error) {
	const op = "retention.set_policy"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if err := retention.Validate(req.MaxVersions, req.MaxDays, s.limits); err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	err := s.retentionRepo.SaveSettings(ctx, &secondary.RetentionSettingsRecord{
		ContentID:   req.ContentID,
		MaxVersions: req.MaxVersions,
		MaxDays:     req.MaxDays,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("retention policy set",
		zap.String("content_id", req.ContentID),
		zap.Int("max_versions", req.MaxVersions),
		zap.Int("max_days", req.MaxDays))
	return policyToPrimary(retention.Resolve(req.ContentID, req.MaxVersions, req.MaxDays, true, s.limits)), nil
}

// GetPolicy returns the effective policy, with defaults and clamping applied.
func (s *RetentionServiceImpl) GetPolicy(ctx context.Context, contentID string) (*primary.RetentionPolicy, error) {
	p, err := s.policy(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return policyToPrimary(p), nil
}

// CleanVersions prunes one content item and returns the number of deleted versions.
func (s *RetentionServiceImpl) CleanVersions(ctx context.Context, contentID string) (int, error) {
	if contentID == "" {
		return 0, apperr.Validation("retention.clean", "content id is required")
	}
	p, err := s.policy(ctx, contentID)
	if err != nil {
		return 0, err
	}

	records, err := s.retentionRepo.ListCandidates(ctx, contentID)
	if err != nil {
		return 0, err
	}
	heads, err := s.retentionRepo.HeadVersionIDs(ctx, contentID)
	if err != nil {
		return 0, err
	}

	candidates := make([]retention.Candidate, len(records))
	for i, r := range records {
		candidates[i] = retention.Candidate{ID: r.ID, VersionNumber: r.VersionNumber, CreatedAt: r.CreatedAt}
	}
	ids := retention.SelectDeletions(candidates, heads, s.now().UTC(), p)
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.retentionRepo.DeleteVersions(ctx, contentID, ids)
	if err != nil {
		return 0, err
	}
	s.metrics.AddPruned(deleted)
	s.logger.Info("versions pruned",
		zap.String("content_id", contentID),
		zap.Int("deleted", deleted),
		zap.Int("max_versions", p.MaxVersions),
		zap.Int("max_days", p.MaxDays))
	return deleted, nil
}

// CleanAll prunes every content item that has versions. A failure on one
// content is logged and recorded in the summary; the sweep carries on.
func (s *RetentionServiceImpl) CleanAll(ctx context.Context) (*primary.CleanupSummary, error) {
	contentIDs, err := s.retentionRepo.ListContentIDs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		summary = &primary.CleanupSummary{Contents: len(contentIDs), Failed: map[string]string{}}
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, id := range contentIDs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			n, err := s.CleanVersions(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed[id] = err.Error()
				s.metrics.IncCleanupFailure()
				s.logger.Warn("retention cleanup failed, skipping content",
					zap.String("content_id", id),
					zap.Error(err))
				return nil
			}
			summary.Deleted += n
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, apperr.Wrap(apperr.KindStorage, "retention.clean_all", err)
	}
	if len(summary.Failed) == 0 {
		summary.Failed = nil
	}

	s.logger.Info("retention sweep finished",
		zap.Int("contents", summary.Contents),
		zap.Int("deleted", summary.Deleted),
		zap.Int("failed", len(summary.Failed)))
	return summary, nil
}

func (s *RetentionServiceImpl) policy(ctx context.Context, contentID string) (retention.Policy, error) {
	settings, err := s.retentionRepo.GetSettings(ctx, contentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return retention.Resolve(contentID, 0, 0, false, s.limits), nil
	}
	if err != nil {
		return retention.Policy{}, err
	}
	return retention.Resolve(contentID, settings.MaxVersions, settings.MaxDays, true, s.limits), nil
}

func policyToPrimary(p retention.Policy) *primary.RetentionPolicy {
	return &primary.RetentionPolicy{
		ContentID:   p.ContentID,
		MaxVersions: p.MaxVersions,
		MaxDays:     p.MaxDays,
		Custom:      p.Custom,
	}
}

// Ensure RetentionServiceImpl implements the interface
var _ primary.RetentionService = (*RetentionServiceImpl)(nil)

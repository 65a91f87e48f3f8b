package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	corebranch "github.com/example/verflow/internal/core/branch"
	"github.com/example/verflow/internal/core/conflict"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// BranchServiceImpl implements the BranchService interface.
type BranchServiceImpl struct {
	branchRepo  secondary.BranchRepository
	versionRepo secondary.VersionRepository
	writer      versionWriter
	audit       auditTrail
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewBranchService creates a new BranchService with injected dependencies.
func NewBranchService(
	branchRepo secondary.BranchRepository,
	versionRepo secondary.VersionRepository,
	versions *VersionServiceImpl,
	logWriter secondary.LogWriter,
	logger *zap.Logger,
	m *metrics.Collector,
) *BranchServiceImpl {
	return &BranchServiceImpl{
		branchRepo:  branchRepo,
		versionRepo: versionRepo,
		writer:      versions,
		audit:       newAuditTrail(logWriter, logger),
		logger:      logging.OrNop(logger),
		metrics:     m,
	}
}

// CreateBranch creates a branch whose base and head are an existing version.
func (s *BranchServiceImpl) CreateBranch(ctx context.Context, req primary.CreateBranchRequest) (*primary.Branch, error) {
	const op = "branch.create"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	guardCtx := corebranch.CreateBranchContext{ContentID: req.ContentID, Name: req.Name}

	version, err := s.versionRepo.GetByID(ctx, req.FromVersionID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil, apperr.NotFound(op, "version %s not found", req.FromVersionID)
	case err != nil:
		return nil, err
	}
	guardCtx.VersionExists = true
	guardCtx.VersionContent = version.ContentID

	_, err = s.branchRepo.GetByName(ctx, req.ContentID, req.Name)
	switch {
	case err == nil:
		guardCtx.NameTaken = true
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if result := corebranch.CanCreateBranch(guardCtx); !result.Allowed {
		return nil, apperr.Validation(op, "%s", result.Reason)
	}

	record := &secondary.BranchRecord{
		ID:            uuid.NewString(),
		Name:          req.Name,
		ContentID:     req.ContentID,
		Description:   req.Description,
		BaseVersionID: version.ID,
		HeadVersionID: version.ID,
	}
	if err := s.branchRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("branch created",
		zap.String("content_id", record.ContentID),
		zap.String("branch", record.Name),
		zap.Int("from_version", version.VersionNumber))
	s.audit.created(ctx, "", "branch", record.ID)

	return recordToBranch(record), nil
}

// MergeBranch writes the source head's data as a new version on target.
// The conflict report between the two heads is returned alongside; a
// conflict does not block the merge.
func (s *BranchServiceImpl) MergeBranch(ctx context.Context, req primary.MergeBranchRequest) (*primary.MergeResult, error) {
	const op = "branch.merge"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	source, err := s.branchRepo.GetByName(ctx, req.ContentID, req.Source)
	if err != nil {
		return nil, err
	}
	target, err := s.branchRepo.GetByName(ctx, req.ContentID, req.Target)
	if err != nil {
		return nil, err
	}

	result := corebranch.CanMerge(corebranch.MergeContext{
		SourceName:      source.Name,
		TargetName:      target.Name,
		SourceProtected: source.IsProtected,
		TargetProtected: target.IsProtected,
		SourceHasHead:   source.HeadVersionID != "",
	})
	if !result.Allowed {
		return nil, apperr.Validation(op, "%s", result.Reason)
	}

	sourceHead, err := loadSnapshot(ctx, s.versionRepo, source.HeadVersionID)
	if err != nil {
		return nil, err
	}
	var targetHead *conflict.Snapshot
	if target.HeadVersionID != "" {
		snap, err := loadSnapshot(ctx, s.versionRepo, target.HeadVersionID)
		if err != nil {
			return nil, err
		}
		targetHead = &snap.Snapshot
	}
	report, err := detect(op, s.metrics, sourceHead.Snapshot, targetHead)
	if err != nil {
		return nil, err
	}

	notes := req.Message
	if notes == "" {
		notes = fmt.Sprintf("Merged branch %s into %s", source.Name, target.Name)
	}
	version, err := s.writer.write(ctx, op, versionWrite{
		contentID:  req.ContentID,
		branch:     target.Name,
		data:       sourceHead.Data,
		authorID:   req.UserID,
		notes:      notes,
		mergedFrom: source.Name,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("branch merged",
		zap.String("content_id", req.ContentID),
		zap.String("source", source.Name),
		zap.String("target", target.Name),
		zap.Int("version", version.VersionNumber),
		zap.Bool("conflict", report.HasConflict))

	return &primary.MergeResult{Version: version, Conflict: report}, nil
}

// GetBranch retrieves a branch by content and name.
func (s *BranchServiceImpl) GetBranch(ctx context.Context, contentID, name string) (*primary.Branch, error) {
	record, err := s.branchRepo.GetByName(ctx, contentID, name)
	if err != nil {
		return nil, err
	}
	return recordToBranch(record), nil
}

// ListBranches lists the branches of a content item, default first.
func (s *BranchServiceImpl) ListBranches(ctx context.Context, contentID string) ([]*primary.Branch, error) {
	records, err := s.branchRepo.List(ctx, contentID)
	if err != nil {
		return nil, err
	}
	branches := make([]*primary.Branch, len(records))
	for i, r := range records {
		branches[i] = recordToBranch(r)
	}
	return branches, nil
}

// SetProtected marks a branch protected or unprotected.
func (s *BranchServiceImpl) SetProtected(ctx context.Context, contentID, name string, protected bool) error {
	record, err := s.branchRepo.GetByName(ctx, contentID, name)
	if err != nil {
		return err
	}
	if record.IsProtected == protected {
		return nil
	}
	if err := s.branchRepo.SetProtected(ctx, contentID, name, protected); err != nil {
		return err
	}
	s.audit.updated(ctx, "", "branch", record.ID, "is_protected",
		strconv.FormatBool(record.IsProtected), strconv.FormatBool(protected))
	return nil
}

// SetDefault makes a branch the content's default.
func (s *BranchServiceImpl) SetDefault(ctx context.Context, contentID, name string) error {
	record, err := s.branchRepo.GetByName(ctx, contentID, name)
	if err != nil {
		return err
	}
	if record.IsDefault {
		return nil
	}
	previous := ""
	if def, err := s.branchRepo.GetDefault(ctx, contentID); err == nil {
		previous = def.Name
	}
	if err := s.branchRepo.SetDefault(ctx, contentID, name); err != nil {
		return err
	}
	s.logger.Info("default branch changed",
		zap.String("content_id", contentID),
		zap.String("from", previous),
		zap.String("to", name))
	s.audit.updated(ctx, "", "content", contentID, "default_branch", previous, name)
	return nil
}

// DeleteBranch removes a branch. Its versions stay.
func (s *BranchServiceImpl) DeleteBranch(ctx context.Context, contentID, name string) error {
	const op = "branch.delete"
	record, err := s.branchRepo.GetByName(ctx, contentID, name)
	if err != nil {
		return err
	}
	result := corebranch.CanDelete(corebranch.DeleteContext{
		Name:        record.Name,
		IsDefault:   record.IsDefault,
		IsProtected: record.IsProtected,
	})
	if !result.Allowed {
		return apperr.Validation(op, "%s", result.Reason)
	}
	if err := s.branchRepo.Delete(ctx, contentID, name); err != nil {
		return err
	}
	s.audit.deleted(ctx, "", "branch", record.ID)
	return nil
}

func recordToBranch(r *secondary.BranchRecord) *primary.Branch {
	return &primary.Branch{
		ID:            r.ID,
		Name:          r.Name,
		ContentID:     r.ContentID,
		Description:   r.Description,
		BaseVersionID: r.BaseVersionID,
		HeadVersionID: r.HeadVersionID,
		IsDefault:     r.IsDefault,
		IsProtected:   r.IsProtected,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// Ensure BranchServiceImpl implements the interface
var _ primary.BranchService = (*BranchServiceImpl)(nil)

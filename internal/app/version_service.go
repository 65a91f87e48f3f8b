package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/core/diff"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

// VersionServiceConfig tunes version creation.
type VersionServiceConfig struct {
	DefaultBranch string
	CreateRetries uint
	RetryInterval time.Duration
}

func (c VersionServiceConfig) withDefaults() VersionServiceConfig {
	if c.DefaultBranch == "" {
		c.DefaultBranch = "main"
	}
	if c.CreateRetries == 0 {
		c.CreateRetries = 5
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 10 * time.Millisecond
	}
	return c
}

// VersionServiceImpl implements the VersionService interface.
type VersionServiceImpl struct {
	versionRepo secondary.VersionRepository
	branchRepo  secondary.BranchRepository
	audit       auditTrail
	cfg         VersionServiceConfig
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewVersionService creates a new VersionService with injected dependencies.
func NewVersionService(
	versionRepo secondary.VersionRepository,
	branchRepo secondary.BranchRepository,
	logWriter secondary.LogWriter,
	cfg VersionServiceConfig,
	logger *zap.Logger,
	m *metrics.Collector,
) *VersionServiceImpl {
	return &VersionServiceImpl{
		versionRepo: versionRepo,
		branchRepo:  branchRepo,
		audit:       newAuditTrail(logWriter, logger),
		cfg:         cfg.withDefaults(),
		logger:      logging.OrNop(logger),
		metrics:     m,
	}
}

// versionWrite describes a version to append to a branch head.
type versionWrite struct {
	contentID    string
	branch       string // empty means the default branch
	data         map[string]any
	authorID     string
	notes        string
	revertedFrom int
	mergedFrom   string
	autosaveID   string // set when promoting an autosave
}

// defaultStorageTop is how many versions GetStorageUsage ranks by default.
const defaultStorageTop = 10

// CreateVersion appends a new version for a content item.
func (s *VersionServiceImpl) CreateVersion(ctx context.Context, req primary.CreateVersionRequest) (*primary.Version, error) {
	const op = "version.create"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	return s.write(ctx, op, versionWrite{
		contentID: req.ContentID,
		branch:    req.Branch,
		data:      req.Data,
		authorID:  req.AuthorID,
		notes:     req.Notes,
	})
}

// GetVersion retrieves a version by content and number.
func (s *VersionServiceImpl) GetVersion(ctx context.Context, contentID string, number int) (*primary.Version, error) {
	record, err := s.versionRepo.GetByNumber(ctx, contentID, number)
	if err != nil {
		return nil, err
	}
	return recordToVersion(record)
}

// GetLatestVersion retrieves the highest-numbered version of a content item.
func (s *VersionServiceImpl) GetLatestVersion(ctx context.Context, contentID string) (*primary.Version, error) {
	record, err := s.versionRepo.GetLatest(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return recordToVersion(record)
}

// GetVersionByID retrieves a version by its ID.
func (s *VersionServiceImpl) GetVersionByID(ctx context.Context, versionID string) (*primary.Version, error) {
	record, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return recordToVersion(record)
}

// GetAllVersions lists versions newest first.
func (s *VersionServiceImpl) GetAllVersions(ctx context.Context, contentID string, limit, offset int) ([]*primary.Version, error) {
	if offset < 0 {
		return nil, apperr.Validation("version.list", "offset must not be negative")
	}
	records, err := s.versionRepo.List(ctx, contentID, limit, offset)
	if err != nil {
		return nil, err
	}
	versions := make([]*primary.Version, 0, len(records))
	for _, r := range records {
		v, err := recordToVersion(r)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// RevertToVersion copies an old version's data into a new version on the
// content's default branch.
func (s *VersionServiceImpl) RevertToVersion(ctx context.Context, req primary.RevertRequest) (*primary.Version, error) {
	const op = "version.revert"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	old, err := s.GetVersion(ctx, req.ContentID, req.VersionNumber)
	if err != nil {
		return nil, err
	}

	notes := fmt.Sprintf("Reverted to version %d", req.VersionNumber)
	if req.Notes != "" {
		notes += ": " + req.Notes
	}
	return s.write(ctx, op, versionWrite{
		contentID:    req.ContentID,
		data:         old.Data,
		authorID:     req.UserID,
		notes:        notes,
		revertedFrom: req.VersionNumber,
	})
}

// CompareVersions computes a field diff between two versions.
func (s *VersionServiceImpl) CompareVersions(ctx context.Context, contentID string, from, to int) (*primary.Diff, error) {
	oldV, newV, err := s.pair(ctx, contentID, from, to)
	if err != nil {
		return nil, err
	}
	fd := diff.Fields(oldV.Data, newV.Data)

	changes := make(map[string]primary.FieldChange, len(fd.FieldsChanged))
	for k, c := range fd.FieldsChanged {
		changes[k] = primary.FieldChange{Old: c.Old, New: c.New, Type: string(c.Type)}
	}
	return &primary.Diff{
		FromVersion:   from,
		ToVersion:     to,
		FieldsChanged: changes,
		Similarity:    fd.Similarity,
		Stats: primary.DiffStats{
			TotalFields:   fd.Stats.TotalFields,
			TotalChanges:  fd.Stats.TotalChanges,
			Added:         fd.Stats.Added,
			Removed:       fd.Stats.Removed,
			Modified:      fd.Stats.Modified,
			FieldsChanged: fd.Stats.FieldsChanged,
		},
	}, nil
}

// CompareVersionText computes a line diff of one text field. A missing field
// reads as empty text; a non-string field is a validation error.
func (s *VersionServiceImpl) CompareVersionText(ctx context.Context, contentID string, from, to int, field string) (*primary.LineDiff, error) {
	const op = "version.compare_text"
	if field == "" {
		return nil, apperr.Validation(op, "field is required")
	}
	oldV, newV, err := s.pair(ctx, contentID, from, to)
	if err != nil {
		return nil, err
	}
	oldText, err := textField(op, oldV, field)
	if err != nil {
		return nil, err
	}
	newText, err := textField(op, newV, field)
	if err != nil {
		return nil, err
	}

	ld := diff.Lines(oldText, newText)
	lines := make([]primary.LineChange, 0, len(ld.Lines))
	for _, l := range ld.Lines {
		lines = append(lines, primary.LineChange{Line: l.Line, Type: string(l.Type), Old: l.Old, New: l.New})
	}
	return &primary.LineDiff{
		Field:     field,
		Lines:     lines,
		Unchanged: ld.Stats.Unchanged,
		Added:     ld.Stats.Added,
		Removed:   ld.Stats.Removed,
		Modified:  ld.Stats.Modified,
	}, nil
}

// GetChangelog retrieves the changelog stored with a version.
func (s *VersionServiceImpl) GetChangelog(ctx context.Context, versionID string) (*primary.Changelog, error) {
	record, err := s.versionRepo.GetChangelog(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return &primary.Changelog{
		VersionID:     record.VersionID,
		FromVersionID: record.FromVersionID,
		FieldsChanged: record.FieldsChanged,
		Added:         record.Added,
		Removed:       record.Removed,
		Modified:      record.Modified,
		Similarity:    record.Similarity,
		CreatedAt:     record.CreatedAt,
	}, nil
}

// GetTimeline lists versions newest first with a one-line summary each.
func (s *VersionServiceImpl) GetTimeline(ctx context.Context, contentID string) ([]*primary.TimelineEntry, error) {
	versions, err := s.GetAllVersions(ctx, contentID, 0, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]*primary.TimelineEntry, 0, len(versions))
	for _, v := range versions {
		summary, err := s.summarize(ctx, v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &primary.TimelineEntry{Version: v, Summary: summary})
	}
	return entries, nil
}

// SaveAutosave stores an unnumbered draft on the requested branch. It does
// not move the branch head, write a changelog or consume a version number.
func (s *VersionServiceImpl) SaveAutosave(ctx context.Context, req primary.AutosaveRequest) (*primary.Autosave, error) {
	const op = "version.autosave"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	data, err := diff.Normalize(req.Data)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	branch, _, err := s.resolveBranch(ctx, op, req.ContentID, req.Branch)
	if err != nil {
		return nil, err
	}

	record := &secondary.AutosaveRecord{
		ID:         uuid.NewString(),
		ContentID:  req.ContentID,
		BranchName: branch.Name,
		Data:       string(encoded),
		AuthorID:   req.AuthorID,
	}
	if err := s.versionRepo.SaveAutosave(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Debug("autosave stored",
		zap.String("content_id", record.ContentID),
		zap.String("branch", record.BranchName),
		zap.String("author_id", record.AuthorID))
	return recordToAutosave(record)
}

// GetLatestAutosave retrieves the newest autosave of a content item.
func (s *VersionServiceImpl) GetLatestAutosave(ctx context.Context, contentID string) (*primary.Autosave, error) {
	record, err := s.versionRepo.GetLatestAutosave(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return recordToAutosave(record)
}

// PromoteAutosave writes an autosave's data as the next version of its
// branch. The autosave is removed in the same transaction.
func (s *VersionServiceImpl) PromoteAutosave(ctx context.Context, req primary.PromoteAutosaveRequest) (*primary.Version, error) {
	const op = "version.promote"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	autosave, err := s.versionRepo.GetAutosave(ctx, req.AutosaveID)
	if err != nil {
		return nil, err
	}
	data, err := diff.Decode([]byte(autosave.Data))
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	author := req.UserID
	if author == "" {
		author = autosave.AuthorID
	}
	notes := req.Notes
	if notes == "" {
		notes = "Promoted autosave"
	}
	v, err := s.write(ctx, op, versionWrite{
		contentID:  autosave.ContentID,
		branch:     autosave.BranchName,
		data:       data,
		authorID:   author,
		notes:      notes,
		autosaveID: autosave.ID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("autosave promoted",
		zap.String("autosave_id", autosave.ID),
		zap.String("content_id", v.ContentID),
		zap.Int("version", v.VersionNumber))
	return v, nil
}

// GetVersionSize reports a version's payload size per field.
func (s *VersionServiceImpl) GetVersionSize(ctx context.Context, contentID string, number int) (*primary.VersionSize, error) {
	v, err := s.GetVersion(ctx, contentID, number)
	if err != nil {
		return nil, err
	}
	size, err := diff.Sizes(v.Data)
	if err != nil {
		return nil, apperr.Storage("version.size", err)
	}
	return &primary.VersionSize{
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		TotalBytes:    size.TotalBytes,
		FieldCount:    size.FieldCount,
		Fields:        size.Fields,
	}, nil
}

// GetStorageUsage reports stored bytes for a content item. A non-positive
// top ranks the default number of versions.
func (s *VersionServiceImpl) GetStorageUsage(ctx context.Context, contentID string, top int) (*primary.StorageUsage, error) {
	if contentID == "" {
		return nil, apperr.Validation("version.storage", "content id is required")
	}
	if top <= 0 {
		top = defaultStorageTop
	}
	record, err := s.versionRepo.StorageUsage(ctx, contentID, top)
	if err != nil {
		return nil, err
	}
	usage := &primary.StorageUsage{
		ContentID:     contentID,
		TotalVersions: record.TotalVersions,
		TotalBytes:    record.TotalBytes,
		Autosaves:     record.Autosaves,
		AutosaveBytes: record.AutosaveBytes,
		Largest:       make([]primary.VersionBytes, 0, len(record.Largest)),
	}
	for _, v := range record.Largest {
		usage.Largest = append(usage.Largest, primary.VersionBytes{
			VersionID:     v.VersionID,
			VersionNumber: v.VersionNumber,
			Bytes:         v.Bytes,
		})
	}
	return usage, nil
}

func (s *VersionServiceImpl) summarize(ctx context.Context, v *primary.Version) (string, error) {
	switch {
	case v.RevertedFrom > 0:
		return fmt.Sprintf("Reverted to version %d", v.RevertedFrom), nil
	case v.MergedFromBranch != "":
		return fmt.Sprintf("Merged from branch %s", v.MergedFromBranch), nil
	case v.ParentVersionID == "" && v.VersionNumber == 1:
		return "Initial version", nil
	}
	cl, err := s.versionRepo.GetChangelog(ctx, v.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return "No changelog", nil
	}
	if err != nil {
		return "", err
	}
	if cl.FromVersionID == "" {
		return "Initial version", nil
	}
	return fmt.Sprintf("%d additions, %d removals, %d modifications", cl.Added, cl.Removed, cl.Modified), nil
}

// pair loads two versions of the same content.
func (s *VersionServiceImpl) pair(ctx context.Context, contentID string, from, to int) (*primary.Version, *primary.Version, error) {
	oldV, err := s.GetVersion(ctx, contentID, from)
	if err != nil {
		return nil, nil, err
	}
	newV, err := s.GetVersion(ctx, contentID, to)
	if err != nil {
		return nil, nil, err
	}
	return oldV, newV, nil
}

func textField(op string, v *primary.Version, field string) (string, error) {
	raw, ok := v.Data[field]
	if !ok || raw == nil {
		return "", nil
	}
	text, ok := raw.(string)
	if !ok {
		return "", apperr.Validation(op, "field %q of version %d is not text", field, v.VersionNumber)
	}
	return text, nil
}

// write appends a version to a branch head, retrying with backoff while
// concurrent writers win the race for the head or the version number.
func (s *VersionServiceImpl) write(ctx context.Context, op string, w versionWrite) (*primary.Version, error) {
	data, err := diff.Normalize(w.data)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	attempt := func() (*secondary.VersionRecord, error) {
		record, err := s.appendOnce(ctx, op, w, data, string(encoded))
		if err == nil {
			return record, nil
		}
		if apperr.IsRetryable(err) {
			s.metrics.IncVersionConflict()
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInterval
	policy.MaxInterval = 20 * s.cfg.RetryInterval

	record, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.cfg.CreateRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Debug("version append lost a race, retrying",
				zap.String("op", op),
				zap.String("content_id", w.contentID),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)
	if err != nil {
		if apperr.IsRetryable(err) {
			return nil, &apperr.Error{
				Kind: apperr.KindConflict,
				Op:   op,
				Msg:  fmt.Sprintf("gave up after %d attempts", s.cfg.CreateRetries),
				Err:  err,
			}
		}
		if apperr.KindOf(err) == apperr.KindStorage {
			s.logger.Error("version append failed", zap.String("op", op), zap.String("content_id", w.contentID), zap.Error(err))
		}
		return nil, apperr.Wrap(apperr.KindStorage, op, err)
	}

	s.metrics.IncVersionsCreated()
	s.logger.Info("version created",
		zap.String("content_id", record.ContentID),
		zap.Int("version", record.VersionNumber),
		zap.String("branch", record.BranchName),
		zap.String("author_id", record.AuthorID))
	s.audit.created(ctx, record.AuthorID, "version", record.ID)

	return recordToVersion(record)
}

func (s *VersionServiceImpl) appendOnce(ctx context.Context, op string, w versionWrite, data map[string]any, encoded string) (*secondary.VersionRecord, error) {
	branch, create, err := s.resolveBranch(ctx, op, w.contentID, w.branch)
	if err != nil {
		return nil, err
	}

	parentData := map[string]any{}
	if branch.HeadVersionID != "" {
		parent, err := s.versionRepo.GetByID(ctx, branch.HeadVersionID)
		if err != nil {
			return nil, err
		}
		if parentData, err = diff.Decode([]byte(parent.Data)); err != nil {
			return nil, apperr.Storage(op, err)
		}
	}
	fd := diff.Fields(parentData, data)

	record := &secondary.VersionRecord{
		ID:               uuid.NewString(),
		ContentID:        w.contentID,
		Data:             encoded,
		AuthorID:         w.authorID,
		Notes:            w.notes,
		ParentVersionID:  branch.HeadVersionID,
		BranchName:       branch.Name,
		RevertedFrom:     w.revertedFrom,
		MergedFromBranch: w.mergedFrom,
	}
	err = s.versionRepo.Append(ctx, &secondary.VersionAppend{
		Version:        record,
		ExpectedHeadID: branch.HeadVersionID,
		CreateBranch:   create,
		AutosaveID:     w.autosaveID,
		Changelog: &secondary.ChangelogRecord{
			FromVersionID: branch.HeadVersionID,
			FieldsChanged: fd.Stats.FieldsChanged,
			Added:         fd.Stats.Added,
			Removed:       fd.Stats.Removed,
			Modified:      fd.Stats.Modified,
			Similarity:    fd.Similarity,
		},
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// resolveBranch finds the branch a write goes to. A content with no branches
// gets its default branch created alongside the first version; the second
// return value is that branch when it still has to be created.
func (s *VersionServiceImpl) resolveBranch(ctx context.Context, op, contentID, name string) (*secondary.BranchRecord, *secondary.BranchRecord, error) {
	var (
		branch *secondary.BranchRecord
		err    error
	)
	if name == "" {
		branch, err = s.branchRepo.GetDefault(ctx, contentID)
	} else {
		branch, err = s.branchRepo.GetByName(ctx, contentID, name)
	}
	if err == nil {
		return branch, nil, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, err
	}
	if name != "" && name != s.cfg.DefaultBranch {
		return nil, nil, apperr.NotFound(op, "branch %q not found for content %s", name, contentID)
	}

	existing, err := s.branchRepo.List(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}
	if len(existing) > 0 {
		if name == "" {
			return nil, nil, apperr.NotFound(op, "content %s has no default branch", contentID)
		}
		return nil, nil, apperr.NotFound(op, "branch %q not found for content %s", name, contentID)
	}

	created := &secondary.BranchRecord{
		ID:        uuid.NewString(),
		Name:      s.cfg.DefaultBranch,
		ContentID: contentID,
		IsDefault: true,
	}
	return created, created, nil
}

func recordToVersion(r *secondary.VersionRecord) (*primary.Version, error) {
	data, err := diff.Decode([]byte(r.Data))
	if err != nil {
		return nil, apperr.Storage("version.decode", err)
	}
	return &primary.Version{
		ID:               r.ID,
		ContentID:        r.ContentID,
		VersionNumber:    r.VersionNumber,
		Data:             data,
		AuthorID:         r.AuthorID,
		Notes:            r.Notes,
		CreatedAt:        r.CreatedAt,
		ParentVersionID:  r.ParentVersionID,
		BranchName:       r.BranchName,
		RevertedFrom:     r.RevertedFrom,
		MergedFromBranch: r.MergedFromBranch,
	}, nil
}

func recordToAutosave(r *secondary.AutosaveRecord) (*primary.Autosave, error) {
	data, err := diff.Decode([]byte(r.Data))
	if err != nil {
		return nil, apperr.Storage("version.decode", err)
	}
	return &primary.Autosave{
		ID:         r.ID,
		ContentID:  r.ContentID,
		BranchName: r.BranchName,
		Data:       data,
		AuthorID:   r.AuthorID,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// Ensure VersionServiceImpl implements the interface
var _ primary.VersionService = (*VersionServiceImpl)(nil)

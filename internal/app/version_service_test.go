package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/metrics"
	"github.com/example/verflow/internal/ports/primary"
	"github.com/example/verflow/internal/ports/secondary"
)

func createVersion(t *testing.T, svc *VersionServiceImpl, contentID string, data map[string]any) *primary.Version {
	t.Helper()
	v, err := svc.CreateVersion(context.Background(), primary.CreateVersionRequest{
		ContentID: contentID,
		Data:      data,
		AuthorID:  "author-1",
	})
	require.NoError(t, err)
	return v
}

func TestCreateVersion_FirstVersionCreatesDefaultBranch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v := createVersion(t, env.versions, "42", map[string]any{"title": "A", "body": "hello"})

	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, "main", v.BranchName)
	assert.Empty(t, v.ParentVersionID)

	branch, err := env.branches.GetBranch(ctx, "42", "main")
	require.NoError(t, err)
	assert.True(t, branch.IsDefault)
	assert.Equal(t, v.ID, branch.HeadVersionID)
	assert.Equal(t, v.ID, branch.BaseVersionID)

	cl, err := env.versions.GetChangelog(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, cl.FromVersionID)
	assert.Equal(t, 2, cl.Added)
	assert.ElementsMatch(t, []string{"body", "title"}, cl.FieldsChanged)
}

func TestCreateVersion_NumbersAreGaplessAndChained(t *testing.T) {
	env := newTestEnv(t)

	var prev *primary.Version
	for i := 1; i <= 5; i++ {
		v := createVersion(t, env.versions, "42", map[string]any{"n": i})
		assert.Equal(t, i, v.VersionNumber)
		if prev != nil {
			assert.Equal(t, prev.ID, v.ParentVersionID)
		}
		prev = v
	}

	latest, err := env.versions.GetLatestVersion(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, prev.ID, latest.ID)
	assert.Equal(t, float64(5), testutil.ToFloat64(env.metrics.VersionsCreated))
}

func TestCreateVersion_NumbersAreScopedPerContent(t *testing.T) {
	env := newTestEnv(t)

	createVersion(t, env.versions, "a", map[string]any{"x": 1})
	createVersion(t, env.versions, "a", map[string]any{"x": 2})
	v := createVersion(t, env.versions, "b", map[string]any{"x": 1})

	assert.Equal(t, 1, v.VersionNumber)
}

func TestCreateVersion_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  primary.CreateVersionRequest
	}{
		{"missing content id", primary.CreateVersionRequest{AuthorID: "u"}},
		{"missing author", primary.CreateVersionRequest{ContentID: "42"}},
		{"unencodable data", primary.CreateVersionRequest{ContentID: "42", AuthorID: "u", Data: map[string]any{"ch": make(chan int)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.versions.CreateVersion(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestCreateVersion_UnknownBranchIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"title": "A"})

	_, err := env.versions.CreateVersion(context.Background(), primary.CreateVersionRequest{
		ContentID: "42", AuthorID: "u", Branch: "feature/x", Data: map[string]any{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCreateVersion_ConcurrentWritersGetDistinctNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verflow.db")
	env := newTestEnvAt(t, path, VersionServiceConfig{CreateRetries: 100, RetryInterval: time.Millisecond})
	ctx := context.Background()

	// Create the default branch up front so writers only race on the head.
	createVersion(t, env.versions, "42", map[string]any{"writer": -1})

	const writers, perWriter = 6, 5
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := env.versions.CreateVersion(ctx, primary.CreateVersionRequest{
					ContentID: "42",
					AuthorID:  fmt.Sprintf("writer-%d", w),
					Data:      map[string]any{"writer": w, "i": i},
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	versions, err := env.versions.GetAllVersions(ctx, "42", 0, 0)
	require.NoError(t, err)
	require.Len(t, versions, writers*perWriter+1)
	for i, v := range versions {
		assert.Equal(t, len(versions)-i, v.VersionNumber)
		if i+1 < len(versions) {
			assert.Equal(t, versions[i+1].ID, v.ParentVersionID, "version %d must chain to its predecessor", v.VersionNumber)
		}
	}
}

func TestGetVersion_UnknownIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.versions.GetVersion(ctx, "42", 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = env.versions.GetLatestVersion(ctx, "42")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = env.versions.GetVersionByID(ctx, "nope")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestGetAllVersions_Paginates(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		createVersion(t, env.versions, "42", map[string]any{"n": i})
	}

	page, err := env.versions.GetAllVersions(context.Background(), "42", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 4, page[0].VersionNumber)
	assert.Equal(t, 3, page[1].VersionNumber)

	_, err = env.versions.GetAllVersions(context.Background(), "42", 2, -1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCompareVersions_TitleChange(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"title": "A"})
	createVersion(t, env.versions, "42", map[string]any{"title": "B"})

	d, err := env.versions.CompareVersions(context.Background(), "42", 1, 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]primary.FieldChange{
		"title": {Old: "A", New: "B", Type: "modified"},
	}, d.FieldsChanged)
	assert.Equal(t, 0, d.Similarity)
	assert.Equal(t, 1, d.Stats.Modified)
}

func TestCompareVersions_SameVersionIsIdentical(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"title": "A", "n": 1.5, "tags": []any{"x"}})

	d, err := env.versions.CompareVersions(context.Background(), "42", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, d.FieldsChanged)
	assert.Equal(t, 100, d.Similarity)
}

func TestCompareVersions_ChangedKeysAreSymmetric(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"a": 1, "b": "x", "c": true})
	createVersion(t, env.versions, "42", map[string]any{"a": "1", "c": true, "d": nil})

	fwd, err := env.versions.CompareVersions(context.Background(), "42", 1, 2)
	require.NoError(t, err)
	back, err := env.versions.CompareVersions(context.Background(), "42", 2, 1)
	require.NoError(t, err)

	assert.ElementsMatch(t, fwd.Stats.FieldsChanged, back.Stats.FieldsChanged)
	assert.Equal(t, fwd.Stats.Added, back.Stats.Removed)
}

func TestCompareVersionText_Positional(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"body": "one\ntwo"})
	createVersion(t, env.versions, "42", map[string]any{"body": "zero\none\ntwo", "n": 3})

	ld, err := env.versions.CompareVersionText(context.Background(), "42", 1, 2, "body")
	require.NoError(t, err)
	assert.Equal(t, "body", ld.Field)
	assert.Equal(t, 2, ld.Modified)
	assert.Equal(t, 1, ld.Added)
	assert.Equal(t, 0, ld.Unchanged)

	_, err = env.versions.CompareVersionText(context.Background(), "42", 1, 2, "n")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRevertToVersion_IsAdditive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createVersion(t, env.versions, "42", map[string]any{"title": "A"})
	createVersion(t, env.versions, "42", map[string]any{"title": "B"})

	before, err := env.versions.GetVersion(ctx, "42", 1)
	require.NoError(t, err)

	v3, err := env.versions.RevertToVersion(ctx, primary.RevertRequest{ContentID: "42", VersionNumber: 1, UserID: "editor"})
	require.NoError(t, err)

	assert.Equal(t, 3, v3.VersionNumber)
	assert.Equal(t, map[string]any{"title": "A"}, v3.Data)
	assert.Contains(t, v3.Notes, "Reverted to version 1")
	assert.Equal(t, 1, v3.RevertedFrom)

	after, err := env.versions.GetVersion(ctx, "42", 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRevertToVersion_AppendsNotes(t *testing.T) {
	env := newTestEnv(t)
	createVersion(t, env.versions, "42", map[string]any{"title": "A"})

	v, err := env.versions.RevertToVersion(context.Background(), primary.RevertRequest{
		ContentID: "42", VersionNumber: 1, UserID: "editor", Notes: "undo typo",
	})
	require.NoError(t, err)
	assert.Equal(t, "Reverted to version 1: undo typo", v.Notes)

	_, err = env.versions.RevertToVersion(context.Background(), primary.RevertRequest{
		ContentID: "42", VersionNumber: 9, UserID: "editor",
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestGetTimeline_Summaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createVersion(t, env.versions, "42", map[string]any{"title": "A"})
	createVersion(t, env.versions, "42", map[string]any{"title": "B", "body": "x"})
	_, err := env.versions.RevertToVersion(ctx, primary.RevertRequest{ContentID: "42", VersionNumber: 1, UserID: "u"})
	require.NoError(t, err)

	timeline, err := env.versions.GetTimeline(ctx, "42")
	require.NoError(t, err)
	require.Len(t, timeline, 3)

	assert.Equal(t, "Reverted to version 1", timeline[0].Summary)
	assert.Equal(t, "1 additions, 0 removals, 1 modifications", timeline[1].Summary)
	assert.Equal(t, "Initial version", timeline[2].Summary)
}

func TestCreateVersion_WritesAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	v := createVersion(t, env.versions, "42", map[string]any{"title": "A"})

	entries, err := env.audit.ListEntries(context.Background(), primary.AuditFilters{EntityType: "version"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, v.ID, entries[0].EntityID)
	assert.Equal(t, "author-1", entries[0].ActorID)
	assert.Equal(t, "create", entries[0].Action)
}

// ============================================================================
// Retry behavior against a scripted repository
// ============================================================================

func TestCreateVersion_RetriesLostRaces(t *testing.T) {
	repo := newMockVersionRepository()
	repo.appendConflicts = 2
	m := metrics.NewCollector("verflow_test")
	svc := NewVersionService(repo, newMockBranchRepository(), nil,
		VersionServiceConfig{CreateRetries: 5, RetryInterval: time.Millisecond}, nil, m)

	v, err := svc.CreateVersion(context.Background(), primary.CreateVersionRequest{ContentID: "42", AuthorID: "u"})
	require.NoError(t, err)

	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, 3, repo.appendCalls)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.VersionConflicts))
}

func TestCreateVersion_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := newMockVersionRepository()
	repo.appendConflicts = 100
	svc := NewVersionService(repo, newMockBranchRepository(), nil,
		VersionServiceConfig{CreateRetries: 3, RetryInterval: time.Millisecond}, nil, nil)

	_, err := svc.CreateVersion(context.Background(), primary.CreateVersionRequest{ContentID: "42", AuthorID: "u"})
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))
	assert.Equal(t, 3, repo.appendCalls)
}

func TestCreateVersion_StorageFailureIsNotRetried(t *testing.T) {
	repo := newMockVersionRepository()
	repo.appendErr = apperr.Storage("version.append", errors.New("disk full"))
	svc := NewVersionService(repo, newMockBranchRepository(), nil,
		VersionServiceConfig{CreateRetries: 5, RetryInterval: time.Millisecond}, nil, nil)

	_, err := svc.CreateVersion(context.Background(), primary.CreateVersionRequest{ContentID: "42", AuthorID: "u"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, 1, repo.appendCalls)
}

func TestSaveAutosave_ReplacesSlotWithoutNumbering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createVersion(t, env.versions, "42", map[string]any{"title": "A"})

	first, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "42", AuthorID: "author-1", Data: map[string]any{"title": "A draft"},
	})
	require.NoError(t, err)
	assert.Equal(t, "main", first.BranchName)

	second, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "42", AuthorID: "author-1", Data: map[string]any{"title": "A draft 2"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM content_autosaves WHERE content_id = '42'"))

	latest, err := env.versions.GetLatestAutosave(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "A draft 2", latest.Data["title"])

	head, err := env.versions.GetLatestVersion(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 1, head.VersionNumber)
	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM version_changelogs"))
}

func TestSaveAutosave_FirstWriteDoesNotCreateBranch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "7", AuthorID: "u", Data: map[string]any{"title": "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, "main", a.BranchName)
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM branches WHERE content_id = '7'"))

	_, err = env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "7", AuthorID: "u", Branch: "feature",
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = env.versions.SaveAutosave(ctx, primary.AutosaveRequest{ContentID: "7"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestPromoteAutosave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := createVersion(t, env.versions, "42", map[string]any{"title": "A", "body": "x"})
	a, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "42", AuthorID: "writer", Data: map[string]any{"title": "B", "body": "x"},
	})
	require.NoError(t, err)

	v2, err := env.versions.PromoteAutosave(ctx, primary.PromoteAutosaveRequest{AutosaveID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, v1.ID, v2.ParentVersionID)
	assert.Equal(t, "writer", v2.AuthorID)
	assert.Equal(t, "Promoted autosave", v2.Notes)
	assert.Equal(t, "B", v2.Data["title"])

	cl, err := env.versions.GetChangelog(ctx, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, cl.FieldsChanged)

	_, err = env.versions.GetLatestAutosave(ctx, "42")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = env.versions.PromoteAutosave(ctx, primary.PromoteAutosaveRequest{AutosaveID: a.ID})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 2, env.count(t, "SELECT COUNT(*) FROM content_versions WHERE content_id = '42'"))
}

func TestPromoteAutosave_OverridesAuthorAndNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "42", AuthorID: "writer", Data: map[string]any{"title": "A"},
	})
	require.NoError(t, err)

	v, err := env.versions.PromoteAutosave(ctx, primary.PromoteAutosaveRequest{
		AutosaveID: a.ID, UserID: "editor", Notes: "ship it",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, "editor", v.AuthorID)
	assert.Equal(t, "ship it", v.Notes)

	branch, err := env.branches.GetBranch(ctx, "42", "main")
	require.NoError(t, err)
	assert.Equal(t, v.ID, branch.HeadVersionID)
}

func TestGetVersionSize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createVersion(t, env.versions, "42", map[string]any{"title": "hello", "count": 12})

	size, err := env.versions.GetVersionSize(ctx, "42", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, size.VersionNumber)
	assert.Equal(t, 2, size.FieldCount)
	assert.Equal(t, 5, size.Fields["title"])
	assert.Equal(t, 2, size.Fields["count"])
	assert.Equal(t, 7, size.TotalBytes)

	_, err = env.versions.GetVersionSize(ctx, "42", 9)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestGetStorageUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		createVersion(t, env.versions, "42", map[string]any{"i": i})
	}
	_, err := env.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: "42", AuthorID: "u", Data: map[string]any{"i": 13},
	})
	require.NoError(t, err)

	usage, err := env.versions.GetStorageUsage(ctx, "42", 0)
	require.NoError(t, err)
	assert.Equal(t, "42", usage.ContentID)
	assert.Equal(t, 12, usage.TotalVersions)
	assert.Equal(t, 1, usage.Autosaves)
	assert.Equal(t, int64(len(`{"i":13}`)), usage.AutosaveBytes)
	assert.Len(t, usage.Largest, 10)
	assert.Equal(t, 12, usage.Largest[0].VersionNumber)

	usage, err = env.versions.GetStorageUsage(ctx, "42", 3)
	require.NoError(t, err)
	assert.Len(t, usage.Largest, 3)

	_, err = env.versions.GetStorageUsage(ctx, "", 3)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

// ============================================================================
// Mock Implementations
// ============================================================================

// mockVersionRepository implements secondary.VersionRepository for testing.
type mockVersionRepository struct {
	versions        map[string]*secondary.VersionRecord
	appendConflicts int // Append fails with a conflict this many times first
	appendErr       error
	appendCalls     int
}

func newMockVersionRepository() *mockVersionRepository {
	return &mockVersionRepository{versions: make(map[string]*secondary.VersionRecord)}
}

func (m *mockVersionRepository) Append(ctx context.Context, req *secondary.VersionAppend) error {
	m.appendCalls++
	if m.appendErr != nil {
		return m.appendErr
	}
	if m.appendConflicts > 0 {
		m.appendConflicts--
		return apperr.Conflict("version.append", "version number taken")
	}
	req.Version.VersionNumber = len(m.versions) + 1
	req.Version.CreatedAt = time.Now().UTC()
	m.versions[req.Version.ID] = req.Version
	return nil
}

func (m *mockVersionRepository) GetByID(ctx context.Context, id string) (*secondary.VersionRecord, error) {
	if v, ok := m.versions[id]; ok {
		return v, nil
	}
	return nil, apperr.NotFound("version.get", "version %s not found", id)
}

func (m *mockVersionRepository) GetByNumber(ctx context.Context, contentID string, number int) (*secondary.VersionRecord, error) {
	for _, v := range m.versions {
		if v.ContentID == contentID && v.VersionNumber == number {
			return v, nil
		}
	}
	return nil, apperr.NotFound("version.get", "version %d not found", number)
}

func (m *mockVersionRepository) GetLatest(ctx context.Context, contentID string) (*secondary.VersionRecord, error) {
	var latest *secondary.VersionRecord
	for _, v := range m.versions {
		if v.ContentID == contentID && (latest == nil || v.VersionNumber > latest.VersionNumber) {
			latest = v
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("version.latest", "content %s has no versions", contentID)
	}
	return latest, nil
}

func (m *mockVersionRepository) List(ctx context.Context, contentID string, limit, offset int) ([]*secondary.VersionRecord, error) {
	return nil, nil
}

func (m *mockVersionRepository) GetChangelog(ctx context.Context, versionID string) (*secondary.ChangelogRecord, error) {
	return nil, apperr.NotFound("version.changelog", "no changelog for %s", versionID)
}

func (m *mockVersionRepository) SaveAutosave(ctx context.Context, autosave *secondary.AutosaveRecord) error {
	return nil
}

func (m *mockVersionRepository) GetAutosave(ctx context.Context, id string) (*secondary.AutosaveRecord, error) {
	return nil, apperr.NotFound("version.autosave", "autosave %s not found", id)
}

func (m *mockVersionRepository) GetLatestAutosave(ctx context.Context, contentID string) (*secondary.AutosaveRecord, error) {
	return nil, apperr.NotFound("version.autosave", "content %s has no autosaves", contentID)
}

func (m *mockVersionRepository) StorageUsage(ctx context.Context, contentID string, top int) (*secondary.StorageUsageRecord, error) {
	return &secondary.StorageUsageRecord{}, nil
}

// mockBranchRepository implements secondary.BranchRepository for testing.
// It starts empty, so the first write creates the default branch.
type mockBranchRepository struct {
	branches map[string]*secondary.BranchRecord
}

func newMockBranchRepository() *mockBranchRepository {
	return &mockBranchRepository{branches: make(map[string]*secondary.BranchRecord)}
}

func (m *mockBranchRepository) Create(ctx context.Context, branch *secondary.BranchRecord) error {
	m.branches[branch.ContentID+"/"+branch.Name] = branch
	return nil
}

func (m *mockBranchRepository) GetByName(ctx context.Context, contentID, name string) (*secondary.BranchRecord, error) {
	if b, ok := m.branches[contentID+"/"+name]; ok {
		return b, nil
	}
	return nil, apperr.NotFound("branch.get", "branch %q not found", name)
}

func (m *mockBranchRepository) GetDefault(ctx context.Context, contentID string) (*secondary.BranchRecord, error) {
	for _, b := range m.branches {
		if b.ContentID == contentID && b.IsDefault {
			return b, nil
		}
	}
	return nil, apperr.NotFound("branch.default", "content %s has no default branch", contentID)
}

func (m *mockBranchRepository) List(ctx context.Context, contentID string) ([]*secondary.BranchRecord, error) {
	var out []*secondary.BranchRecord
	for _, b := range m.branches {
		if b.ContentID == contentID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBranchRepository) SetProtected(ctx context.Context, contentID, name string, protected bool) error {
	return nil
}

func (m *mockBranchRepository) SetDefault(ctx context.Context, contentID, name string) error {
	return nil
}

func (m *mockBranchRepository) Delete(ctx context.Context, contentID, name string) error {
	delete(m.branches, contentID+"/"+name)
	return nil
}

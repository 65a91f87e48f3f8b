package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ports/secondary"
)

func TestVersionRepository_AppendAssignsSequentialNumbers(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	seedBranch(t, database, "page-1", "main")

	v1 := appendVersion(t, repo, "page-1", "main", "", `{"title":"A"}`)
	v2 := appendVersion(t, repo, "page-1", "main", v1.ID, `{"title":"B"}`)
	v3 := appendVersion(t, repo, "page-1", "main", v2.ID, `{"title":"C"}`)

	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, 3, v3.VersionNumber)
	assert.False(t, v1.CreatedAt.IsZero())

	branch, err := sqlite.NewBranchRepository(database).GetByName(context.Background(), "page-1", "main")
	require.NoError(t, err)
	assert.Equal(t, v3.ID, branch.HeadVersionID)
	assert.Equal(t, v1.ID, branch.BaseVersionID)
}

func TestVersionRepository_NumbersArePerContent(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	seedBranch(t, database, "a", "main")
	seedBranch(t, database, "b", "main")

	appendVersion(t, repo, "a", "main", "", `{}`)
	vb := appendVersion(t, repo, "b", "main", "", `{}`)
	assert.Equal(t, 1, vb.VersionNumber)
}

func TestVersionRepository_AppendRejectsStaleHead(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	seedBranch(t, database, "page-1", "main")
	appendVersion(t, repo, "page-1", "main", "", `{}`)

	err := repo.Append(context.Background(), &secondary.VersionAppend{
		Version:        &secondary.VersionRecord{ID: "stale", ContentID: "page-1", Data: `{}`, AuthorID: "u", BranchName: "main"},
		ExpectedHeadID: "",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = repo.GetByID(context.Background(), "stale")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "nothing is written when the head moved")
}

func TestVersionRepository_AppendUnknownBranch(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)

	err := repo.Append(context.Background(), &secondary.VersionAppend{
		Version: &secondary.VersionRecord{ID: "v", ContentID: "page-1", Data: `{}`, AuthorID: "u", BranchName: "ghost"},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVersionRepository_AppendCreatesBranchAndChangelog(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	ctx := context.Background()

	branch := &secondary.BranchRecord{ID: "b1", Name: "main", ContentID: "page-1", IsDefault: true}
	v := &secondary.VersionRecord{ID: "v1", ContentID: "page-1", Data: `{"title":"A"}`, AuthorID: "u", BranchName: "main"}
	cl := &secondary.ChangelogRecord{FieldsChanged: []string{"title"}, Added: 1, Similarity: 0}

	require.NoError(t, repo.Append(ctx, &secondary.VersionAppend{Version: v, CreateBranch: branch, Changelog: cl}))
	assert.Equal(t, "v1", branch.HeadVersionID)

	got, err := sqlite.NewBranchRepository(database).GetDefault(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.HeadVersionID)

	stored, err := repo.GetChangelog(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, stored.FieldsChanged)
	assert.Equal(t, 1, stored.Added)
	assert.Empty(t, stored.FromVersionID)
}

func TestVersionRepository_AppendRollsBackOnDuplicateBranch(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	seedBranch(t, database, "page-1", "main")

	err := repo.Append(context.Background(), &secondary.VersionAppend{
		Version:      &secondary.VersionRecord{ID: "v1", ContentID: "page-1", Data: `{}`, AuthorID: "u", BranchName: "main"},
		CreateBranch: &secondary.BranchRecord{ID: "dup", Name: "main", ContentID: "page-1"},
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM content_versions").Scan(&count))
	assert.Zero(t, count)
}

func TestVersionRepository_Reads(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	ctx := context.Background()
	seedBranch(t, database, "page-1", "main")

	head := ""
	for i := 0; i < 4; i++ {
		head = appendVersion(t, repo, "page-1", "main", head, `{"n":1}`).ID
	}

	v2, err := repo.GetByNumber(ctx, "page-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, "main", v2.BranchName)

	latest, err := repo.GetLatest(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, 4, latest.VersionNumber)
	assert.Equal(t, head, latest.ID)

	page, err := repo.List(ctx, "page-1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].VersionNumber)
	assert.Equal(t, 2, page[1].VersionNumber)

	all, err := repo.List(ctx, "page-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = repo.GetByNumber(ctx, "page-1", 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.GetLatest(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.GetChangelog(ctx, head)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVersionRepository_OptionalColumnsRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	ctx := context.Background()
	seedBranch(t, database, "page-1", "main")
	v1 := appendVersion(t, repo, "page-1", "main", "", `{}`)

	v := &secondary.VersionRecord{
		ID: "v2", ContentID: "page-1", Data: `{}`, AuthorID: "u", BranchName: "main",
		Notes: "Merged", ParentVersionID: v1.ID, RevertedFrom: 1, MergedFromBranch: "feature",
	}
	require.NoError(t, repo.Append(ctx, &secondary.VersionAppend{Version: v, ExpectedHeadID: v1.ID}))

	got, err := repo.GetByID(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, "Merged", got.Notes)
	assert.Equal(t, v1.ID, got.ParentVersionID)
	assert.Equal(t, 1, got.RevertedFrom)
	assert.Equal(t, "feature", got.MergedFromBranch)
	assert.True(t, got.CreatedAt.Equal(v.CreatedAt))
}

func TestVersionRepository_AutosavesReplaceAndPromote(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	ctx := context.Background()
	seedBranch(t, database, "page-1", "main")
	v1 := appendVersion(t, repo, "page-1", "main", "", `{"title":"A"}`)

	_, err := repo.GetLatestAutosave(ctx, "page-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	first := &secondary.AutosaveRecord{ID: "as-1", ContentID: "page-1", BranchName: "main", Data: `{"title":"B"}`, AuthorID: "ann"}
	require.NoError(t, repo.SaveAutosave(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	// A second autosave by the same author on the same branch replaces the first.
	second := &secondary.AutosaveRecord{ID: "as-2", ContentID: "page-1", BranchName: "main", Data: `{"title":"BB"}`, AuthorID: "ann"}
	require.NoError(t, repo.SaveAutosave(ctx, second))
	_, err = repo.GetAutosave(ctx, "as-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	latest, err := repo.GetLatestAutosave(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "as-2", latest.ID)
	assert.Equal(t, `{"title":"BB"}`, latest.Data)

	promoted := &secondary.VersionRecord{ID: "v-2", ContentID: "page-1", Data: latest.Data, AuthorID: "ann", BranchName: "main", ParentVersionID: v1.ID}
	require.NoError(t, repo.Append(ctx, &secondary.VersionAppend{Version: promoted, ExpectedHeadID: v1.ID, AutosaveID: "as-2"}))
	assert.Equal(t, 2, promoted.VersionNumber, "autosaves do not take version numbers")

	_, err = repo.GetAutosave(ctx, "as-2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Promoting the same autosave twice writes nothing.
	again := &secondary.VersionRecord{ID: "v-3", ContentID: "page-1", Data: `{}`, AuthorID: "ann", BranchName: "main"}
	err = repo.Append(ctx, &secondary.VersionAppend{Version: again, ExpectedHeadID: promoted.ID, AutosaveID: "as-2"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = repo.GetByID(ctx, "v-3")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVersionRepository_StorageUsage(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewVersionRepository(database)
	ctx := context.Background()
	seedBranch(t, database, "page-1", "main")
	v1 := appendVersion(t, repo, "page-1", "main", "", `{"t":"a"}`)
	v2 := appendVersion(t, repo, "page-1", "main", v1.ID, `{"t":"a much longer body"}`)
	appendVersion(t, repo, "page-1", "main", v2.ID, `{"t":"mid size"}`)
	require.NoError(t, repo.SaveAutosave(ctx, &secondary.AutosaveRecord{
		ID: "as-1", ContentID: "page-1", BranchName: "main", Data: `{"t":"é"}`, AuthorID: "ann"}))

	usage, err := repo.StorageUsage(ctx, "page-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, usage.TotalVersions)
	assert.Equal(t, int64(len(`{"t":"a"}`)+len(`{"t":"a much longer body"}`)+len(`{"t":"mid size"}`)), usage.TotalBytes)
	assert.Equal(t, 1, usage.Autosaves)
	assert.Equal(t, int64(len(`{"t":"é"}`)), usage.AutosaveBytes, "sizes are bytes, not characters")
	require.Len(t, usage.Largest, 2)
	assert.Equal(t, 2, usage.Largest[0].VersionNumber)
	assert.Equal(t, 3, usage.Largest[1].VersionNumber)

	empty, err := repo.StorageUsage(ctx, "page-2", 10)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalVersions)
	assert.Zero(t, empty.TotalBytes)
	assert.Empty(t, empty.Largest)
}

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

func TestBranchRepository_CreateAndGet(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewBranchRepository(database)
	ctx := context.Background()

	b := &secondary.BranchRecord{ID: "b1", Name: "feature", ContentID: "page-1", Description: "copy edits"}
	require.NoError(t, repo.Create(ctx, b))
	assert.False(t, b.CreatedAt.IsZero())

	got, err := repo.GetByName(ctx, "page-1", "feature")
	require.NoError(t, err)
	assert.Equal(t, "copy edits", got.Description)
	assert.False(t, got.IsDefault)
	assert.Empty(t, got.HeadVersionID)

	_, err = repo.GetByName(ctx, "page-1", "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBranchRepository_DuplicateNameConflicts(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewBranchRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &secondary.BranchRecord{ID: "b1", Name: "feature", ContentID: "page-1"}))
	err := repo.Create(ctx, &secondary.BranchRecord{ID: "b2", Name: "feature", ContentID: "page-1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Same name under another content is fine.
	assert.NoError(t, repo.Create(ctx, &secondary.BranchRecord{ID: "b3", Name: "feature", ContentID: "page-2"}))
}

func TestBranchRepository_SetDefaultSwapsAtomically(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewBranchRepository(database)
	ctx := context.Background()

	seedBranch(t, database, "page-1", "main")
	require.NoError(t, repo.Create(ctx, &secondary.BranchRecord{ID: "b2", Name: "next", ContentID: "page-1"}))

	require.NoError(t, repo.SetDefault(ctx, "page-1", "next"))

	def, err := repo.GetDefault(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "next", def.Name)

	list, err := repo.List(ctx, "page-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "next", list[0].Name, "default sorts first")
	assert.False(t, list[1].IsDefault)

	assert.ErrorIs(t, repo.SetDefault(ctx, "page-1", "ghost"), apperr.ErrNotFound)
}

func TestBranchRepository_ProtectAndDelete(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewBranchRepository(database)
	ctx := context.Background()
	seedBranch(t, database, "page-1", "main")

	require.NoError(t, repo.SetProtected(ctx, "page-1", "main", true))
	got, err := repo.GetByName(ctx, "page-1", "main")
	require.NoError(t, err)
	assert.True(t, got.IsProtected)

	assert.ErrorIs(t, repo.SetProtected(ctx, "page-1", "ghost", true), apperr.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "page-1", "main"))
	assert.ErrorIs(t, repo.Delete(ctx, "page-1", "main"), apperr.ErrNotFound)
}

package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/ctxutil"
	"github.com/example/verflow/internal/ports/secondary"
)

func TestLogWriterAdapter_WritesActorFromContext(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewAuditRepository(database)
	writer := sqlite.NewLogWriterAdapter(repo)
	ctx := ctxutil.WithActorID(context.Background(), "ann")

	require.NoError(t, writer.LogCreate(ctx, "version", "v1"))
	require.NoError(t, writer.LogUpdate(ctx, "content_workflow", "page-1", "state", "draft", "review"))
	require.NoError(t, writer.LogDelete(context.Background(), "branch", "feature"))

	entries, err := repo.List(context.Background(), secondary.AuditFilters{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "delete", entries[0].Action)
	assert.Empty(t, entries[0].ActorID)

	update := entries[1]
	assert.Equal(t, "ann", update.ActorID)
	assert.Equal(t, "state", update.FieldName)
	assert.Equal(t, "draft", update.OldValue)
	assert.Equal(t, "review", update.NewValue)
}

func TestAuditRepository_ListFilters(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewAuditRepository(database)
	ctx := context.Background()

	for _, e := range []*secondary.AuditRecord{
		{ActorID: "ann", EntityType: "version", EntityID: "v1", Action: "create"},
		{ActorID: "bob", EntityType: "version", EntityID: "v2", Action: "create"},
		{ActorID: "ann", EntityType: "branch", EntityID: "feature", Action: "delete"},
	} {
		require.NoError(t, repo.Create(ctx, e))
		assert.NotZero(t, e.ID)
	}

	byType, err := repo.List(ctx, secondary.AuditFilters{EntityType: "version"})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byActor, err := repo.List(ctx, secondary.AuditFilters{ActorID: "ann", Action: "delete"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "feature", byActor[0].EntityID)

	limited, err := repo.List(ctx, secondary.AuditFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAuditRepository_PruneOlderThan(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewAuditRepository(database)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &secondary.AuditRecord{EntityType: "version", EntityID: "old", Action: "create"}))
	require.NoError(t, repo.Create(ctx, &secondary.AuditRecord{EntityType: "version", EntityID: "new", Action: "create"}))
	_, err := database.Exec("UPDATE audit_log SET created_at = ? WHERE entity_id = 'old'", time.Now().UTC().AddDate(0, 0, -40))
	require.NoError(t, err)

	n, err := repo.PruneOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := repo.List(ctx, secondary.AuditFilters{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].EntityID)
}

package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableColumns(t *testing.T, database *sql.DB) map[string][]string {
	t.Helper()
	rows, err := database.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_version'")
	require.NoError(t, err)
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Close())

	out := make(map[string][]string, len(tables))
	for _, table := range tables {
		cols, err := database.Query("SELECT name FROM pragma_table_info(?)", table)
		require.NoError(t, err)
		for cols.Next() {
			var c string
			require.NoError(t, cols.Scan(&c))
			out[table] = append(out[table], c)
		}
		require.NoError(t, cols.Close())
		sort.Strings(out[table])
	}
	return out
}

func TestOpen_FreshDatabaseMarksAllMigrations(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "verflow.db"))
	require.NoError(t, err)
	defer database.Close()

	v, err := CurrentVersion(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)

	var mode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrationsMatchSchema(t *testing.T) {
	ctx := context.Background()

	fresh, err := sql.Open("sqlite3", DSN(MemoryPath))
	require.NoError(t, err)
	fresh.SetMaxOpenConns(1)
	defer fresh.Close()
	_, err = fresh.Exec(GetSchemaSQL())
	require.NoError(t, err)

	migrated, err := sql.Open("sqlite3", DSN(MemoryPath))
	require.NoError(t, err)
	migrated.SetMaxOpenConns(1)
	defer migrated.Close()
	require.NoError(t, RunMigrations(ctx, migrated))

	assert.Equal(t, tableColumns(t, fresh), tableColumns(t, migrated))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(ctx, database))
	v, err := CurrentVersion(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)
}

func TestSchema_PartialUniqueIndexes(t *testing.T) {
	database, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("INSERT INTO workflow_states (name, label, is_initial) VALUES ('draft', 'Draft', 1)")
	require.NoError(t, err)
	_, err = database.Exec("INSERT INTO workflow_states (name, label, is_initial) VALUES ('other', 'Other', 1)")
	assert.Error(t, err, "second initial state must be rejected")
	_, err = database.Exec("INSERT INTO workflow_states (name, label, is_initial) VALUES ('review', 'Review', 0)")
	assert.NoError(t, err)

	insertBranch := `INSERT INTO branches (id, name, content_id, is_default, created_at, updated_at)
		VALUES (?, ?, 'c1', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	_, err = database.Exec(insertBranch, "b1", "main", 1)
	require.NoError(t, err)
	_, err = database.Exec(insertBranch, "b2", "other", 1)
	assert.Error(t, err, "second default branch must be rejected")
	_, err = database.Exec(insertBranch, "b3", "feature", 0)
	assert.NoError(t, err)
}

func TestSeedStates(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	defer database.Close()

	seeds := []StateSeed{
		{Name: "draft", Label: "Draft", Initial: true},
		{Name: "published", Label: "Published", Terminal: true},
	}
	n, err := SeedStates(ctx, database, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = SeedStates(ctx, database, seeds)
	require.NoError(t, err)
	assert.Zero(t, n)

	var terminal bool
	require.NoError(t, database.QueryRow("SELECT is_terminal FROM workflow_states WHERE name = 'published'").Scan(&terminal))
	assert.True(t, terminal)
}

func TestRunMigrations_UpgradesOlderDatabase(t *testing.T) {
	ctx := context.Background()
	database, err := sql.Open("sqlite3", DSN(MemoryPath))
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	defer database.Close()

	_, err = database.Exec(schemaVersionSQL)
	require.NoError(t, err)
	for _, m := range migrations[:4] {
		require.NoError(t, applyMigration(ctx, database, m))
	}
	before := tableColumns(t, database)
	assert.NotContains(t, before, "content_autosaves")
	assert.NotContains(t, before["approval_requests"], "consumed_at")

	require.NoError(t, RunMigrations(ctx, database))
	after := tableColumns(t, database)
	assert.Contains(t, after, "content_autosaves")
	assert.Contains(t, after["approval_requests"], "consumed_at")
	assert.Contains(t, after["approval_requests"], "consumed_by_history_id")
}

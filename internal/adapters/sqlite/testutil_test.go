// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/db"
	"github.com/example/verflow/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", db.DSN(db.MemoryPath))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is its own database.
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedState inserts a workflow state and returns its ID.
func seedState(t *testing.T, database *sql.DB, name string, initial, terminal bool) int64 {
	t.Helper()
	result, err := database.Exec(
		"INSERT INTO workflow_states (name, label, is_initial, is_terminal) VALUES (?, ?, ?, ?)",
		name, name, initial, terminal)
	if err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

// seedBranch creates a default branch for a content item and returns it.
func seedBranch(t *testing.T, database *sql.DB, contentID, name string) *secondary.BranchRecord {
	t.Helper()
	b := &secondary.BranchRecord{
		ID:        fmt.Sprintf("b-%s-%s", contentID, name),
		Name:      name,
		ContentID: contentID,
		IsDefault: true,
	}
	if err := sqlite.NewBranchRepository(database).Create(context.Background(), b); err != nil {
		t.Fatalf("failed to seed branch: %v", err)
	}
	return b
}

// appendVersion writes a version on branch whose current head is head and
// returns the written record.
func appendVersion(t *testing.T, repo *sqlite.VersionRepository, contentID, branch, head, data string) *secondary.VersionRecord {
	t.Helper()
	v := &secondary.VersionRecord{
		ID:              uuid.NewString(),
		ContentID:       contentID,
		Data:            data,
		AuthorID:        "author-1",
		BranchName:      branch,
		ParentVersionID: head,
	}
	err := repo.Append(context.Background(), &secondary.VersionAppend{Version: v, ExpectedHeadID: head})
	if err != nil {
		t.Fatalf("failed to append version: %v", err)
	}
	return v
}

// backdate moves a version's created_at into the past.
func backdate(t *testing.T, database *sql.DB, versionID string, age time.Duration) {
	t.Helper()
	_, err := database.Exec("UPDATE content_versions SET created_at = ? WHERE id = ?",
		time.Now().UTC().Add(-age), versionID)
	if err != nil {
		t.Fatalf("failed to backdate version: %v", err)
	}
}

package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/config"
	"github.com/example/verflow/internal/core/retention"
	"github.com/example/verflow/internal/db"
	"github.com/example/verflow/internal/metrics"
)

// testEnv wires every service against one in-memory database seeded with
// the default workflow states and transitions.
type testEnv struct {
	db        *sql.DB
	metrics   *metrics.Collector
	versions  *VersionServiceImpl
	branches  *BranchServiceImpl
	conflicts *ConflictServiceImpl
	retention *RetentionServiceImpl
	workflow  *WorkflowServiceImpl
	approvals *ApprovalServiceImpl
	audit     *AuditServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, db.MemoryPath, VersionServiceConfig{})
}

func newTestEnvAt(t *testing.T, path string, vcfg VersionServiceConfig) *testEnv {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	seeds := make([]db.StateSeed, len(cfg.Workflow.States))
	for i, s := range cfg.Workflow.States {
		seeds[i] = db.StateSeed{Name: s.Name, Label: s.Label, Initial: s.Initial, Terminal: s.Terminal}
	}
	_, err = db.SeedStates(ctx, database, seeds)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	m := metrics.NewCollector("verflow_test")
	opts := []sqlite.Option{sqlite.WithTxTimeout(5 * time.Second), sqlite.WithMetrics(m)}

	versionRepo := sqlite.NewVersionRepository(database, opts...)
	branchRepo := sqlite.NewBranchRepository(database, opts...)
	stateRepo := sqlite.NewWorkflowStateRepository(database)
	entryRepo := sqlite.NewContentWorkflowRepository(database, opts...)
	approvalRepo := sqlite.NewApprovalRepository(database, opts...)
	retentionRepo := sqlite.NewRetentionRepository(database, opts...)
	auditRepo := sqlite.NewAuditRepository(database)
	logWriter := sqlite.NewLogWriterAdapter(auditRepo)

	env := &testEnv{db: database, metrics: m}
	env.versions = NewVersionService(versionRepo, branchRepo, logWriter, vcfg, logger, m)
	env.branches = NewBranchService(branchRepo, versionRepo, env.versions, logWriter, logger, m)
	env.conflicts = NewConflictService(versionRepo, env.versions, logger, m)
	env.retention = NewRetentionService(retentionRepo, retention.DefaultLimits(), 4, logger, m)
	env.approvals = NewApprovalService(approvalRepo, stateRepo, logWriter, logger)
	env.workflow = NewWorkflowService(stateRepo, entryRepo, env.approvals, cfg.Workflow.Transitions, logWriter, logger, m)
	env.audit = NewAuditService(auditRepo)
	return env
}

// count runs a COUNT(*) query.
func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}

// stateID looks up a seeded state's id by name.
func (e *testEnv) stateID(t *testing.T, name string) int64 {
	t.Helper()
	st, err := e.workflow.GetStateByName(context.Background(), name)
	require.NoError(t, err)
	return st.ID
}

// backdate moves every version of a content item into the past.
func (e *testEnv) backdate(t *testing.T, contentID string, age time.Duration) {
	t.Helper()
	_, err := e.db.Exec("UPDATE content_versions SET created_at = ? WHERE content_id = ?",
		time.Now().UTC().Add(-age), contentID)
	require.NoError(t, err)
}

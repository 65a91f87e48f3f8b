// Package wire provides dependency injection for verflow.
// It builds one Container per process from configuration; CLI commands reach
// it through the lazily initialized singleton accessors.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/example/verflow/internal/adapters/cache"
	cliadapter "github.com/example/verflow/internal/adapters/cli"
	"github.com/example/verflow/internal/adapters/rest"
	"github.com/example/verflow/internal/adapters/sqlite"
	"github.com/example/verflow/internal/app"
	"github.com/example/verflow/internal/config"
	"github.com/example/verflow/internal/core/retention"
	"github.com/example/verflow/internal/db"
	"github.com/example/verflow/internal/logging"
	"github.com/example/verflow/internal/metrics"
)

// Container holds every service of one process.
type Container struct {
	Config  *config.Config
	DB      *sql.DB
	Logger  *zap.Logger
	Metrics *metrics.Collector

	Versions  *app.VersionServiceImpl
	Branches  *app.BranchServiceImpl
	Conflicts *app.ConflictServiceImpl
	Workflow  *app.WorkflowServiceImpl
	Retention *app.RetentionServiceImpl
	Approvals *app.ApprovalServiceImpl
	Audit     *app.AuditServiceImpl
}

// New opens the database named by cfg, seeds the configured workflow states
// when none exist, and wires repositories into services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	logger = logging.OrNop(logger)

	database, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.SeedStates(ctx, database, stateSeeds(cfg)); err != nil {
		database.Close()
		return nil, err
	}

	m := metrics.NewCollector("verflow")
	opts := []sqlite.Option{sqlite.WithTxTimeout(cfg.Database.TxTimeout), sqlite.WithMetrics(m)}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	versionRepo := sqlite.NewVersionRepository(database, opts...)
	branchRepo := sqlite.NewBranchRepository(database, opts...)
	entryRepo := sqlite.NewContentWorkflowRepository(database, opts...)
	approvalRepo := sqlite.NewApprovalRepository(database, opts...)
	retentionRepo := sqlite.NewRetentionRepository(database, opts...)
	auditRepo := sqlite.NewAuditRepository(database)
	logWriter := sqlite.NewLogWriterAdapter(auditRepo)

	stateRepo, err := cache.NewStateRepository(sqlite.NewWorkflowStateRepository(database), cfg.Workflow.StateCacheSize)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create state cache: %w", err)
	}

	// Create services (primary ports implementation)
	c := &Container{Config: cfg, DB: database, Logger: logger, Metrics: m}
	c.Versions = app.NewVersionService(versionRepo, branchRepo, logWriter, app.VersionServiceConfig{
		DefaultBranch: cfg.Versions.DefaultBranch,
		CreateRetries: cfg.Versions.CreateRetries,
		RetryInterval: cfg.Versions.RetryInterval,
	}, logger, m)
	c.Branches = app.NewBranchService(branchRepo, versionRepo, c.Versions, logWriter, logger, m)
	c.Conflicts = app.NewConflictService(versionRepo, c.Versions, logger, m)
	c.Retention = app.NewRetentionService(retentionRepo, retention.Limits{
		DefaultMaxVersions: cfg.Retention.DefaultMaxVersions,
		DefaultMaxDays:     cfg.Retention.DefaultMaxDays,
		MaxVersions:        cfg.Retention.MaxVersions,
		MaxDays:            cfg.Retention.MaxDays,
	}, cfg.Retention.Concurrency, logger, m)
	c.Approvals = app.NewApprovalService(approvalRepo, stateRepo, logWriter, logger)
	c.Workflow = app.NewWorkflowService(stateRepo, entryRepo, c.Approvals, cfg.Workflow.Transitions, logWriter, logger, m)
	c.Audit = app.NewAuditService(auditRepo)

	return c, nil
}

// Close releases the database.
func (c *Container) Close() error {
	return c.DB.Close()
}

// Handler returns the HTTP router over every service, with /metrics.
func (c *Container) Handler() http.Handler {
	return rest.NewRouter(rest.Services{
		Versions:  c.Versions,
		Branches:  c.Branches,
		Conflicts: c.Conflicts,
		Workflow:  c.Workflow,
		Retention: c.Retention,
		Approvals: c.Approvals,
		Audit:     c.Audit,
	}, c.Metrics.Handler(), c.Logger).Setup()
}

func stateSeeds(cfg *config.Config) []db.StateSeed {
	seeds := make([]db.StateSeed, len(cfg.Workflow.States))
	for i, s := range cfg.Workflow.States {
		seeds[i] = db.StateSeed{Name: s.Name, Label: s.Label, Initial: s.Initial, Terminal: s.Terminal}
	}
	return seeds
}

var (
	configPath = config.DefaultFileName
	container  *Container
	initErr    error
	once       sync.Once
)

// SetConfigPath selects the config file the singleton is built from.
// It must be called before the first accessor.
func SetConfigPath(path string) {
	configPath = path
}

// Services returns the process-wide container, building it on first use.
func Services() (*Container, error) {
	once.Do(initServices)
	return container, initErr
}

// initServices loads configuration and builds the container.
// This is called once via sync.Once.
func initServices() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		initErr = err
		return
	}
	logger, err := logging.New(cfg)
	if err != nil {
		initErr = err
		return
	}
	container, initErr = New(context.Background(), cfg, logger)
}

// VersionAdapter returns a new VersionAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func VersionAdapter() (*cliadapter.VersionAdapter, error) {
	return VersionAdapterWithOutput(os.Stdout)
}

// VersionAdapterWithOutput returns a new VersionAdapter writing to the given output.
func VersionAdapterWithOutput(out io.Writer) (*cliadapter.VersionAdapter, error) {
	c, err := Services()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewVersionAdapter(c.Versions, c.Conflicts, out), nil
}

// BranchAdapter returns a new BranchAdapter writing to stdout.
func BranchAdapter() (*cliadapter.BranchAdapter, error) {
	c, err := Services()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewBranchAdapter(c.Branches, os.Stdout), nil
}

// WorkflowAdapter returns a new WorkflowAdapter writing to stdout.
func WorkflowAdapter() (*cliadapter.WorkflowAdapter, error) {
	c, err := Services()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewWorkflowAdapter(c.Workflow, c.Approvals, os.Stdout), nil
}

// RetentionAdapter returns a new RetentionAdapter writing to stdout.
func RetentionAdapter() (*cliadapter.RetentionAdapter, error) {
	c, err := Services()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewRetentionAdapter(c.Retention, os.Stdout), nil
}

// AuditAdapter returns a new AuditAdapter writing to stdout.
func AuditAdapter() (*cliadapter.AuditAdapter, error) {
	c, err := Services()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewAuditAdapter(c.Audit, os.Stdout), nil
}

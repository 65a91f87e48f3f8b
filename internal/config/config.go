// Package config loads verflow configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "verflow.yaml"

// Config is the complete verflow configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development production"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Database  DatabaseConfig  `yaml:"database"`
	Versions  VersionsConfig  `yaml:"versions"`
	Retention RetentionConfig `yaml:"retention"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path      string        `yaml:"path" validate:"required"`
	TxTimeout time.Duration `yaml:"tx_timeout" validate:"gt=0"`
}

// VersionsConfig controls version creation.
type VersionsConfig struct {
	// CreateRetries bounds retries after a version-number collision.
	CreateRetries uint          `yaml:"create_retries" validate:"gte=1,lte=20"`
	RetryInterval time.Duration `yaml:"retry_interval" validate:"gt=0"`
	DefaultBranch string        `yaml:"default_branch" validate:"required"`
}

// RetentionConfig holds retention defaults, system maxima and the sweep schedule.
type RetentionConfig struct {
	DefaultMaxVersions int           `yaml:"default_max_versions" validate:"gte=1,ltefield=MaxVersions"`
	DefaultMaxDays     int           `yaml:"default_max_days" validate:"gte=1,ltefield=MaxDays"`
	MaxVersions        int           `yaml:"max_versions" validate:"gte=1"`
	MaxDays            int           `yaml:"max_days" validate:"gte=1"`
	Interval           time.Duration `yaml:"interval" validate:"gte=0"`
	Concurrency        int           `yaml:"concurrency" validate:"gte=1,lte=64"`
}

// StateSeed describes a workflow state created by `verflow init`.
type StateSeed struct {
	Name     string `yaml:"name" validate:"required"`
	Label    string `yaml:"label" validate:"required"`
	Initial  bool   `yaml:"initial"`
	Terminal bool   `yaml:"terminal"`
}

// WorkflowConfig holds the allowed-transition table and seed states.
type WorkflowConfig struct {
	Transitions    map[string][]string `yaml:"transitions"`
	States         []StateSeed         `yaml:"states" validate:"dive"`
	StateCacheSize int                 `yaml:"state_cache_size" validate:"gte=1"`
}

// HTTPConfig controls the HTTP shim.
type HTTPConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		LogLevel:    "info",
		Database: DatabaseConfig{
			Path:      defaultDBPath(),
			TxTimeout: 5 * time.Second,
		},
		Versions: VersionsConfig{
			CreateRetries: 5,
			RetryInterval: 10 * time.Millisecond,
			DefaultBranch: "main",
		},
		Retention: RetentionConfig{
			DefaultMaxVersions: 5,
			DefaultMaxDays:     30,
			MaxVersions:        20,
			MaxDays:            365,
			Interval:           time.Hour,
			Concurrency:        4,
		},
		Workflow: WorkflowConfig{
			Transitions: map[string][]string{
				"draft":     {"review"},
				"review":    {"draft", "published", "rejected"},
				"rejected":  {"draft"},
				"published": {"draft", "archived"},
			},
			States: []StateSeed{
				{Name: "draft", Label: "Draft", Initial: true},
				{Name: "review", Label: "In Review"},
				{Name: "rejected", Label: "Rejected"},
				{Name: "published", Label: "Published"},
				{Name: "archived", Label: "Archived", Terminal: true},
			},
			StateCacheSize: 128,
		},
		HTTP: HTTPConfig{Address: ":8080"},
	}
}

// LoadConfig reads the YAML file at path on top of Default and applies
// VERFLOW_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			// A transitions map in the file replaces the default table
			// rather than merging into it.
			defaults := cfg.Workflow.Transitions
			cfg.Workflow.Transitions = nil
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			if cfg.Workflow.Transitions == nil {
				cfg.Workflow.Transitions = defaults
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field bounds and the transition table.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	known := make(map[string]bool, len(c.Workflow.States))
	initial := 0
	for _, s := range c.Workflow.States {
		known[s.Name] = true
		if s.Initial {
			initial++
		}
	}
	if len(c.Workflow.States) > 0 && initial != 1 {
		return fmt.Errorf("invalid config: exactly one initial workflow state required, got %d", initial)
	}
	if len(known) == 0 {
		return nil
	}
	for from, targets := range c.Workflow.Transitions {
		if !known[from] {
			return fmt.Errorf("invalid config: transition from unknown state %q", from)
		}
		for _, to := range targets {
			if !known[to] {
				return fmt.Errorf("invalid config: transition %s -> unknown state %q", from, to)
			}
		}
	}
	return nil
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("VERFLOW_ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = strings.ToLower(getEnv("VERFLOW_LOG_LEVEL", cfg.LogLevel))
	cfg.Database.Path = getEnv("VERFLOW_DB_PATH", cfg.Database.Path)
	cfg.Database.TxTimeout = getEnvDuration("VERFLOW_TX_TIMEOUT", cfg.Database.TxTimeout)
	cfg.HTTP.Address = getEnv("VERFLOW_HTTP_ADDRESS", cfg.HTTP.Address)
	cfg.Retention.Interval = getEnvDuration("VERFLOW_RETENTION_INTERVAL", cfg.Retention.Interval)
	cfg.Retention.Concurrency = getEnvInt("VERFLOW_RETENTION_CONCURRENCY", cfg.Retention.Concurrency)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".verflow", "verflow.db")
	}
	return filepath.Join(home, ".verflow", "verflow.db")
}

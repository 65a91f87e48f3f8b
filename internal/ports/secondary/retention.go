package secondary

import (
	"context"
	"time"
)

// RetentionRepository defines the secondary port for retention settings and pruning.
type RetentionRepository interface {
	// GetSettings retrieves stored settings. NotFound when none were saved.
	GetSettings(ctx context.Context, contentID string) (*RetentionSettingsRecord, error)

	// SaveSettings upserts settings for a content item.
	SaveSettings(ctx context.Context, settings *RetentionSettingsRecord) error

	// ListCandidates retrieves every version of a content item with the
	// fields pruning needs.
	ListCandidates(ctx context.Context, contentID string) ([]*RetentionCandidateRecord, error)

	// HeadVersionIDs retrieves the head version of every branch of a content item.
	HeadVersionIDs(ctx context.Context, contentID string) (map[string]bool, error)

	// DeleteVersions deletes the given versions in one transaction, skipping
	// any that became a branch head in the meantime. Returns rows deleted.
	DeleteVersions(ctx context.Context, contentID string, ids []string) (int, error)

	// ListContentIDs retrieves every content id that has versions.
	ListContentIDs(ctx context.Context) ([]string, error)
}

// RetentionSettingsRecord represents stored retention settings.
type RetentionSettingsRecord struct {
	ContentID   string
	MaxVersions int
	MaxDays     int
	UpdatedAt   time.Time
}

// RetentionCandidateRecord is a version as seen by the pruner.
type RetentionCandidateRecord struct {
	ID            string
	VersionNumber int
	CreatedAt     time.Time
}

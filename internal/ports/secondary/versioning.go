// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives storage.
package secondary

import (
	"context"
	"time"
)

// VersionRepository defines the secondary port for the version ledger.
type VersionRepository interface {
	// Append writes a version in one transaction: it assigns the next
	// version number, inserts the row, moves the branch head and stores the
	// changelog. It fails with a conflict when the branch head no longer
	// matches ExpectedHeadID or another writer claimed the same number.
	Append(ctx context.Context, req *VersionAppend) error

	// GetByID retrieves a version by its ID.
	GetByID(ctx context.Context, id string) (*VersionRecord, error)

	// GetByNumber retrieves a version by content and number.
	GetByNumber(ctx context.Context, contentID string, number int) (*VersionRecord, error)

	// GetLatest retrieves the highest-numbered version of a content item.
	GetLatest(ctx context.Context, contentID string) (*VersionRecord, error)

	// List retrieves versions ordered by version_number desc.
	List(ctx context.Context, contentID string, limit, offset int) ([]*VersionRecord, error)

	// GetChangelog retrieves the changelog stored with a version.
	GetChangelog(ctx context.Context, versionID string) (*ChangelogRecord, error)

	// SaveAutosave stores a draft, replacing the author's previous autosave
	// of the same content and branch. Autosaves are never numbered.
	SaveAutosave(ctx context.Context, a *AutosaveRecord) error

	// GetAutosave retrieves an autosave by ID.
	GetAutosave(ctx context.Context, id string) (*AutosaveRecord, error)

	// GetLatestAutosave retrieves the newest autosave of a content item.
	GetLatestAutosave(ctx context.Context, contentID string) (*AutosaveRecord, error)

	// StorageUsage sums the stored payload bytes of a content item and lists
	// its top largest versions.
	StorageUsage(ctx context.Context, contentID string, top int) (*StorageUsageRecord, error)
}

// VersionAppend is the unit of work for writing a version.
type VersionAppend struct {
	Version        *VersionRecord   // VersionNumber and CreatedAt are assigned by Append
	ExpectedHeadID string           // Empty means the branch must have no head yet
	CreateBranch   *BranchRecord    // Optional - created in the same transaction when set
	Changelog      *ChangelogRecord // VersionID is filled in by Append
	AutosaveID     string           // Optional - the promoted autosave, deleted in the same transaction
}

// VersionRecord represents a version as stored in persistence.
type VersionRecord struct {
	ID               string
	ContentID        string
	VersionNumber    int
	Data             string // JSON object text
	AuthorID         string
	Notes            string
	CreatedAt        time.Time
	ParentVersionID  string // Empty string means null
	BranchName       string
	RevertedFrom     int    // Zero means null
	MergedFromBranch string // Empty string means null
}

// ChangelogRecord represents a stored changelog.
type ChangelogRecord struct {
	VersionID     string
	FromVersionID string // Empty string means null
	FieldsChanged []string
	Added         int
	Removed       int
	Modified      int
	Similarity    int
	CreatedAt     time.Time
}

// AutosaveRecord represents an unnumbered draft as stored in persistence.
type AutosaveRecord struct {
	ID         string
	ContentID  string
	BranchName string
	Data       string // JSON object text
	AuthorID   string
	CreatedAt  time.Time
}

// StorageUsageRecord summarizes the bytes a content item occupies.
type StorageUsageRecord struct {
	TotalVersions int
	TotalBytes    int64
	Autosaves     int
	AutosaveBytes int64
	Largest       []VersionSizeRecord // Largest first
}

// VersionSizeRecord is the stored payload size of one version.
type VersionSizeRecord struct {
	VersionID     string
	VersionNumber int
	Bytes         int64
}

// BranchRepository defines the secondary port for branch persistence.
type BranchRepository interface {
	// Create persists a new branch. A duplicate name fails with a conflict.
	Create(ctx context.Context, branch *BranchRecord) error

	// GetByName retrieves a branch by content and name.
	GetByName(ctx context.Context, contentID, name string) (*BranchRecord, error)

	// GetDefault retrieves the content's default branch.
	GetDefault(ctx context.Context, contentID string) (*BranchRecord, error)

	// List retrieves all branches for a content item, default first.
	List(ctx context.Context, contentID string) ([]*BranchRecord, error)

	// SetProtected updates the protected flag.
	SetProtected(ctx context.Context, contentID, name string, protected bool) error

	// SetDefault moves the default flag to the named branch atomically.
	SetDefault(ctx context.Context, contentID, name string) error

	// Delete removes a branch.
	Delete(ctx context.Context, contentID, name string) error
}

// BranchRecord represents a branch as stored in persistence.
type BranchRecord struct {
	ID            string
	Name          string
	ContentID     string
	Description   string
	BaseVersionID string // Empty string means null
	HeadVersionID string // Empty string means null
	IsDefault     bool
	IsProtected   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

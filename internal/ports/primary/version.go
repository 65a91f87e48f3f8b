// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI and HTTP adapters drive the services.
package primary

import (
	"context"
	"time"
)

// VersionService defines the primary port for the version ledger.
type VersionService interface {
	// CreateVersion appends a new version for a content item.
	// An empty Branch means the content's default branch.
	CreateVersion(ctx context.Context, req CreateVersionRequest) (*Version, error)

	// GetVersion retrieves a version by content and number.
	GetVersion(ctx context.Context, contentID string, number int) (*Version, error)

	// GetLatestVersion retrieves the highest-numbered version of a content item.
	GetLatestVersion(ctx context.Context, contentID string) (*Version, error)

	// GetVersionByID retrieves a version by its ID.
	GetVersionByID(ctx context.Context, versionID string) (*Version, error)

	// GetAllVersions lists versions newest first.
	GetAllVersions(ctx context.Context, contentID string, limit, offset int) ([]*Version, error)

	// RevertToVersion copies an old version's data into a new version.
	RevertToVersion(ctx context.Context, req RevertRequest) (*Version, error)

	// CompareVersions computes a field diff between two versions.
	CompareVersions(ctx context.Context, contentID string, from, to int) (*Diff, error)

	// CompareVersionText computes a line diff of one text field.
	CompareVersionText(ctx context.Context, contentID string, from, to int, field string) (*LineDiff, error)

	// GetChangelog retrieves the changelog stored with a version.
	GetChangelog(ctx context.Context, versionID string) (*Changelog, error)

	// GetTimeline lists versions newest first with a one-line summary each.
	GetTimeline(ctx context.Context, contentID string) ([]*TimelineEntry, error)

	// SaveAutosave stores an unnumbered draft. It replaces the author's
	// previous autosave of the same content and branch.
	SaveAutosave(ctx context.Context, req AutosaveRequest) (*Autosave, error)

	// GetLatestAutosave retrieves the newest autosave of a content item.
	GetLatestAutosave(ctx context.Context, contentID string) (*Autosave, error)

	// PromoteAutosave turns an autosave into a numbered version on its
	// branch and removes the autosave.
	PromoteAutosave(ctx context.Context, req PromoteAutosaveRequest) (*Version, error)

	// GetVersionSize reports a version's payload size per field.
	GetVersionSize(ctx context.Context, contentID string, number int) (*VersionSize, error)

	// GetStorageUsage reports the bytes a content item's versions and
	// autosaves occupy, with its top largest versions.
	GetStorageUsage(ctx context.Context, contentID string, top int) (*StorageUsage, error)
}

// CreateVersionRequest contains parameters for creating a version.
type CreateVersionRequest struct {
	ContentID string         `json:"content_id" validate:"required,max=255"`
	Data      map[string]any `json:"data"`
	AuthorID  string         `json:"author_id" validate:"required,max=255"`
	Notes     string         `json:"notes" validate:"max=2000"`
	Branch    string         `json:"branch" validate:"max=100"` // Optional - defaults to the content's default branch
}

// AutosaveRequest contains parameters for storing an autosave.
type AutosaveRequest struct {
	ContentID string         `json:"content_id" validate:"required,max=255"`
	Data      map[string]any `json:"data"`
	AuthorID  string         `json:"author_id" validate:"required,max=255"`
	Branch    string         `json:"branch" validate:"max=100"` // Optional - defaults to the content's default branch
}

// PromoteAutosaveRequest contains parameters for promoting an autosave.
type PromoteAutosaveRequest struct {
	AutosaveID string `json:"autosave_id" validate:"required"`
	UserID     string `json:"user_id"` // Optional - defaults to the autosave's author
	Notes      string `json:"notes" validate:"max=2000"`
}

// RevertRequest contains parameters for reverting to an earlier version.
type RevertRequest struct {
	ContentID     string `json:"content_id" validate:"required"`
	VersionNumber int    `json:"version_number" validate:"required,min=1"`
	UserID        string `json:"user_id" validate:"required"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// Version represents a version at the port boundary.
type Version struct {
	ID               string         `json:"id"`
	ContentID        string         `json:"content_id"`
	VersionNumber    int            `json:"version_number"`
	Data             map[string]any `json:"data"`
	AuthorID         string         `json:"author_id"`
	Notes            string         `json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ParentVersionID  string         `json:"parent_version_id,omitempty"`
	BranchName       string         `json:"branch_name"`
	RevertedFrom     int            `json:"reverted_from,omitempty"`
	MergedFromBranch string         `json:"merged_from_branch,omitempty"`
}

// FieldChange describes one changed field.
type FieldChange struct {
	Old  any    `json:"old"`
	New  any    `json:"new"`
	Type string `json:"type"` // 'added', 'removed', 'modified'
}

// DiffStats summarizes a field diff.
type DiffStats struct {
	TotalFields   int      `json:"total_fields"`
	TotalChanges  int      `json:"total_changes"`
	Added         int      `json:"added"`
	Removed       int      `json:"removed"`
	Modified      int      `json:"modified"`
	FieldsChanged []string `json:"fields_changed"`
}

// Diff is a field-level comparison of two versions.
type Diff struct {
	FromVersion   int                    `json:"from_version"`
	ToVersion     int                    `json:"to_version"`
	FieldsChanged map[string]FieldChange `json:"fields_changed"`
	Similarity    int                    `json:"similarity"`
	Stats         DiffStats              `json:"stats"`
}

// LineChange describes one line of a line diff.
type LineChange struct {
	Line int    `json:"line"`
	Type string `json:"type"` // 'unchanged', 'added', 'removed', 'modified'
	Old  string `json:"old,omitempty"`
	New  string `json:"new,omitempty"`
}

// LineDiff is a positional line comparison of one text field.
type LineDiff struct {
	Field     string       `json:"field"`
	Lines     []LineChange `json:"lines"`
	Unchanged int          `json:"unchanged"`
	Added     int          `json:"added"`
	Removed   int          `json:"removed"`
	Modified  int          `json:"modified"`
}

// Changelog is the diff recorded against a version's parent when it was written.
type Changelog struct {
	VersionID     string    `json:"version_id"`
	FromVersionID string    `json:"from_version_id,omitempty"` // Empty for a first version
	FieldsChanged []string  `json:"fields_changed"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	Modified      int       `json:"modified"`
	Similarity    int       `json:"similarity"`
	CreatedAt     time.Time `json:"created_at"`
}

// TimelineEntry is a version plus a human summary of what it did.
type TimelineEntry struct {
	Version *Version `json:"version"`
	Summary string   `json:"summary"`
}

// Autosave is an unnumbered draft of a content item.
type Autosave struct {
	ID         string         `json:"id"`
	ContentID  string         `json:"content_id"`
	BranchName string         `json:"branch_name"`
	Data       map[string]any `json:"data"`
	AuthorID   string         `json:"author_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

// VersionSize is the payload size of one version.
type VersionSize struct {
	VersionID     string         `json:"version_id"`
	VersionNumber int            `json:"version_number"`
	TotalBytes    int            `json:"total_bytes"`
	FieldCount    int            `json:"field_count"`
	Fields        map[string]int `json:"fields"`
}

// VersionBytes is the stored size of one version.
type VersionBytes struct {
	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	Bytes         int64  `json:"bytes"`
}

// StorageUsage is the stored footprint of a content item.
type StorageUsage struct {
	ContentID     string         `json:"content_id"`
	TotalVersions int            `json:"total_versions"`
	TotalBytes    int64          `json:"total_bytes"`
	Autosaves     int            `json:"autosaves"`
	AutosaveBytes int64          `json:"autosave_bytes"`
	Largest       []VersionBytes `json:"largest"`
}

package primary

import (
	"context"
	"time"
)

// BranchService defines the primary port for branch operations.
type BranchService interface {
	// CreateBranch creates a branch whose base and head are an existing version.
	CreateBranch(ctx context.Context, req CreateBranchRequest) (*Branch, error)

	// MergeBranch writes the source head's data as a new version on target.
	MergeBranch(ctx context.Context, req MergeBranchRequest) (*MergeResult, error)

	// GetBranch retrieves a branch by content and name.
	GetBranch(ctx context.Context, contentID, name string) (*Branch, error)

	// ListBranches lists the branches of a content item.
	ListBranches(ctx context.Context, contentID string) ([]*Branch, error)

	// SetProtected marks a branch protected or unprotected.
	SetProtected(ctx context.Context, contentID, name string, protected bool) error

	// SetDefault makes a branch the content's default.
	SetDefault(ctx context.Context, contentID, name string) error

	// DeleteBranch removes a branch. Its versions stay.
	DeleteBranch(ctx context.Context, contentID, name string) error
}

// CreateBranchRequest contains parameters for creating a branch.
type CreateBranchRequest struct {
	ContentID     string `json:"content_id" validate:"required,max=255"`
	FromVersionID string `json:"from_version_id" validate:"required"`
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=1000"`
}

// MergeBranchRequest contains parameters for merging one branch into another.
type MergeBranchRequest struct {
	ContentID string `json:"content_id" validate:"required"`
	Source    string `json:"source" validate:"required"`
	Target    string `json:"target" validate:"required"`
	Message   string `json:"message" validate:"max=2000"`
	UserID    string `json:"user_id" validate:"required"`
}

// MergeResult contains the version a merge wrote and the conflict report
// computed between the two heads beforehand.
type MergeResult struct {
	Version  *Version        `json:"version"`
	Conflict *ConflictReport `json:"conflict"`
}

// Branch represents a branch at the port boundary.
type Branch struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContentID     string    `json:"content_id"`
	Description   string    `json:"description,omitempty"`
	BaseVersionID string    `json:"base_version_id,omitempty"`
	HeadVersionID string    `json:"head_version_id,omitempty"`
	IsDefault     bool      `json:"is_default"`
	IsProtected   bool      `json:"is_protected"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

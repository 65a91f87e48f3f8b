package primary

import "context"

// RetentionService defines the primary port for version pruning.
type RetentionService interface {
	// SetPolicy stores a per-content policy.
	SetPolicy(ctx context.Context, req SetPolicyRequest) (*RetentionPolicy, error)

	// GetPolicy returns the effective policy, with defaults and clamping applied.
	GetPolicy(ctx context.Context, contentID string) (*RetentionPolicy, error)

	// CleanVersions prunes one content item and returns the number of deleted versions.
	CleanVersions(ctx context.Context, contentID string) (int, error)

	// CleanAll prunes every content item that has versions.
	CleanAll(ctx context.Context) (*CleanupSummary, error)
}

// SetPolicyRequest contains parameters for setting a retention policy.
type SetPolicyRequest struct {
	ContentID   string `json:"content_id" validate:"required,max=255"`
	MaxVersions int    `json:"max_versions" validate:"required,min=1"`
	MaxDays     int    `json:"max_days" validate:"required,min=1"`
}

// RetentionPolicy represents an effective policy at the port boundary.
type RetentionPolicy struct {
	ContentID   string `json:"content_id"`
	MaxVersions int    `json:"max_versions"`
	MaxDays     int    `json:"max_days"`
	Custom      bool   `json:"custom"` // False when defaults apply
}

// CleanupSummary reports a full sweep.
type CleanupSummary struct {
	Contents int               `json:"contents"`
	Deleted  int               `json:"deleted"`
	Failed   map[string]string `json:"failed,omitempty"` // content id -> error
}

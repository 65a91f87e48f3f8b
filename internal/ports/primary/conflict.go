package primary

import "context"

// ConflictService defines the primary port for conflict detection and resolution.
type ConflictService interface {
	// DetectConflicts compares two versions. A missing target is not a conflict.
	DetectConflicts(ctx context.Context, sourceVersionID, targetVersionID string) (*ConflictReport, error)

	// ResolveConflict applies a strategy and writes the result as a new
	// version on the target's branch.
	ResolveConflict(ctx context.Context, req ResolveConflictRequest) (*Resolution, error)
}

// ResolveConflictRequest contains parameters for resolving a conflict.
type ResolveConflictRequest struct {
	SourceVersionID string `json:"source_version_id" validate:"required"`
	TargetVersionID string `json:"target_version_id" validate:"required"`
	Strategy        string `json:"strategy" validate:"required,oneof=merge source target newer"`
	UserID          string `json:"user_id" validate:"required"`
}

// ConflictReport represents conflict detection output at the port boundary.
type ConflictReport struct {
	TimestampConflict bool   `json:"timestamp_conflict"`
	ContentConflict   bool   `json:"content_conflict"`
	SourceVersionID   string `json:"source_version_id"`
	TargetVersionID   string `json:"target_version_id,omitempty"`
	HasConflict       bool   `json:"has_conflict"`
}

// Resolution contains the version a resolution wrote.
type Resolution struct {
	Version    *Version `json:"version"`
	Strategy   string   `json:"strategy"`
	Chosen     string   `json:"chosen,omitempty"`     // For newer: 'source' or 'target'
	Overridden []string `json:"overridden,omitempty"` // For merge: keys where source replaced a different target value
	Caveat     string   `json:"caveat,omitempty"`
}

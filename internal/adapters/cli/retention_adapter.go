package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/example/verflow/internal/ports/primary"
)

// RetentionAdapter translates CLI operations to RetentionService calls.
type RetentionAdapter struct {
	service primary.RetentionService
	out     io.Writer
}

// NewRetentionAdapter creates a new RetentionAdapter with the given service.
func NewRetentionAdapter(service primary.RetentionService, out io.Writer) *RetentionAdapter {
	return &RetentionAdapter{service: service, out: out}
}

// SetPolicy stores a per-content policy.
func (a *RetentionAdapter) SetPolicy(ctx context.Context, contentID string, maxVersions, maxDays int) error {
	p, err := a.service.SetPolicy(ctx, primary.SetPolicyRequest{
		ContentID:   contentID,
		MaxVersions: maxVersions,
		MaxDays:     maxDays,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s %s keeps %d versions or %d days\n", okMark, p.ContentID, p.MaxVersions, p.MaxDays)
	return nil
}

// ShowPolicy prints the effective policy.
func (a *RetentionAdapter) ShowPolicy(ctx context.Context, contentID string) error {
	p, err := a.service.GetPolicy(ctx, contentID)
	if err != nil {
		return err
	}

	source := "default"
	if p.Custom {
		source = "custom"
	}
	fmt.Fprintf(a.out, "%s: max %d versions, %d days (%s)\n", p.ContentID, p.MaxVersions, p.MaxDays, source)
	return nil
}

// Clean prunes one content item, or every content item when contentID is empty.
func (a *RetentionAdapter) Clean(ctx context.Context, contentID string) error {
	if contentID != "" {
		n, err := a.service.CleanVersions(ctx, contentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s Deleted %d versions of %s\n", okMark, n, contentID)
		return nil
	}

	summary, err := a.service.CleanAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Swept %d contents, deleted %d versions\n", okMark, summary.Contents, summary.Deleted)

	failed := make([]string, 0, len(summary.Failed))
	for id := range summary.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(a.out, "%s %s: %s\n", warnMark, id, summary.Failed[id])
	}
	return nil
}

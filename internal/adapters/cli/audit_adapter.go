package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/verflow/internal/ports/primary"
)

// AuditAdapter translates CLI operations to AuditService calls.
type AuditAdapter struct {
	service primary.AuditService
	out     io.Writer
}

// NewAuditAdapter creates a new AuditAdapter with the given service.
func NewAuditAdapter(service primary.AuditService, out io.Writer) *AuditAdapter {
	return &AuditAdapter{service: service, out: out}
}

// List prints audit entries newest first.
func (a *AuditAdapter) List(ctx context.Context, filters primary.AuditFilters) error {
	entries, err := a.service.ListEntries(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No audit entries found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-20s %-12s %-8s %-18s %s\n", "WHEN", "ACTOR", "ACTION", "ENTITY", "CHANGE")
	fmt.Fprintln(a.out, rule)
	for _, e := range entries {
		actor := e.ActorID
		if actor == "" {
			actor = "-"
		}
		change := ""
		if e.FieldName != "" {
			change = fmt.Sprintf("%s: %s → %s", e.FieldName, e.OldValue, e.NewValue)
		}
		fmt.Fprintf(a.out, "%-20s %-12s %-8s %-18s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), actor, e.Action, e.EntityType+"/"+e.EntityID, change)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Prune deletes entries older than days.
func (a *AuditAdapter) Prune(ctx context.Context, days int) error {
	n, err := a.service.PruneEntries(ctx, days)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Pruned %d audit entries older than %d days\n", okMark, n, days)
	return nil
}

// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/example/verflow/internal/core/diff"
	"github.com/example/verflow/internal/ports/primary"
)

const rule = "────────────────────────────────────────────────────────────────"

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

// VersionAdapter is a thin adapter that translates CLI operations to
// VersionService and ConflictService calls.
type VersionAdapter struct {
	versions  primary.VersionService
	conflicts primary.ConflictService
	out       io.Writer
}

// NewVersionAdapter creates a new VersionAdapter with the given services.
func NewVersionAdapter(versions primary.VersionService, conflicts primary.ConflictService, out io.Writer) *VersionAdapter {
	return &VersionAdapter{
		versions:  versions,
		conflicts: conflicts,
		out:       out,
	}
}

// Create appends a version. rawData is a JSON object.
func (a *VersionAdapter) Create(ctx context.Context, contentID, authorID, branch, notes, rawData string) error {
	data, err := diff.Decode([]byte(rawData))
	if err != nil {
		return fmt.Errorf("data must be a JSON object: %w", err)
	}

	v, err := a.versions.CreateVersion(ctx, primary.CreateVersionRequest{
		ContentID: contentID,
		Data:      data,
		AuthorID:  authorID,
		Notes:     notes,
		Branch:    branch,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Created version %d of %s on %s (%s)\n", okMark, v.VersionNumber, v.ContentID, v.BranchName, v.ID)
	return nil
}

// Show displays one version with its data.
func (a *VersionAdapter) Show(ctx context.Context, contentID string, number int) (*primary.Version, error) {
	v, err := a.versions.GetVersion(ctx, contentID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	fmt.Fprintf(a.out, "\nVersion: %d (%s)\n", v.VersionNumber, v.ID)
	fmt.Fprintf(a.out, "Content: %s\n", v.ContentID)
	fmt.Fprintf(a.out, "Branch:  %s\n", v.BranchName)
	fmt.Fprintf(a.out, "Author:  %s\n", v.AuthorID)
	fmt.Fprintf(a.out, "Created: %s\n", v.CreatedAt.Format("2006-01-02 15:04:05"))
	if v.ParentVersionID != "" {
		fmt.Fprintf(a.out, "Parent:  %s\n", v.ParentVersionID)
	}
	if v.Notes != "" {
		fmt.Fprintf(a.out, "Notes:   %s\n", v.Notes)
	}
	data, err := json.MarshalIndent(v.Data, "", "  ")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "Data:\n%s\n\n", data)

	return v, nil
}

// List lists versions newest first.
func (a *VersionAdapter) List(ctx context.Context, contentID string, limit, offset int) error {
	versions, err := a.versions.GetAllVersions(ctx, contentID, limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}

	if len(versions) == 0 {
		fmt.Fprintln(a.out, "No versions found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-6s %-12s %-12s %-20s %s\n", "#", "BRANCH", "AUTHOR", "CREATED", "NOTES")
	fmt.Fprintln(a.out, rule)
	for _, v := range versions {
		fmt.Fprintf(a.out, "%-6d %-12s %-12s %-20s %s\n",
			v.VersionNumber, v.BranchName, v.AuthorID, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Notes)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Compare prints a field diff, or a line diff of field when it is set.
func (a *VersionAdapter) Compare(ctx context.Context, contentID string, from, to int, field string) error {
	if field != "" {
		d, err := a.versions.CompareVersionText(ctx, contentID, from, to, field)
		if err != nil {
			return err
		}
		a.printLineDiff(d)
		return nil
	}

	d, err := a.versions.CompareVersions(ctx, contentID, from, to)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nv%d → v%d  similarity %d%%  (+%d -%d ~%d)\n",
		d.FromVersion, d.ToVersion, d.Similarity, d.Stats.Added, d.Stats.Removed, d.Stats.Modified)
	if len(d.FieldsChanged) == 0 {
		fmt.Fprintln(a.out, "No changes")
		return nil
	}
	fmt.Fprintln(a.out, rule)

	keys := make([]string, 0, len(d.FieldsChanged))
	for k := range d.FieldsChanged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := d.FieldsChanged[k]
		switch c.Type {
		case "added":
			fmt.Fprintf(a.out, "%s %s: %v\n", color.GreenString("+"), k, c.New)
		case "removed":
			fmt.Fprintf(a.out, "%s %s: %v\n", color.RedString("-"), k, c.Old)
		default:
			fmt.Fprintf(a.out, "%s %s: %v → %v\n", color.YellowString("~"), k, c.Old, c.New)
		}
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *VersionAdapter) printLineDiff(d *primary.LineDiff) {
	fmt.Fprintf(a.out, "\n%s  (+%d -%d ~%d, %d unchanged)\n", d.Field, d.Added, d.Removed, d.Modified, d.Unchanged)
	fmt.Fprintln(a.out, rule)
	for _, l := range d.Lines {
		switch l.Type {
		case "added":
			fmt.Fprintf(a.out, "%4d %s %s\n", l.Line, color.GreenString("+"), l.New)
		case "removed":
			fmt.Fprintf(a.out, "%4d %s %s\n", l.Line, color.RedString("-"), l.Old)
		case "modified":
			fmt.Fprintf(a.out, "%4d %s %s\n", l.Line, color.RedString("-"), l.Old)
			fmt.Fprintf(a.out, "%4d %s %s\n", l.Line, color.GreenString("+"), l.New)
		default:
			fmt.Fprintf(a.out, "%4d   %s\n", l.Line, l.Old)
		}
	}
	fmt.Fprintln(a.out)
}

// Revert writes a copy of an old version as the newest one.
func (a *VersionAdapter) Revert(ctx context.Context, contentID string, number int, userID, notes string) error {
	v, err := a.versions.RevertToVersion(ctx, primary.RevertRequest{
		ContentID:     contentID,
		VersionNumber: number,
		UserID:        userID,
		Notes:         notes,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Reverted %s to version %d as version %d\n", okMark, contentID, number, v.VersionNumber)
	return nil
}

// Timeline prints one line per version.
func (a *VersionAdapter) Timeline(ctx context.Context, contentID string) error {
	entries, err := a.versions.GetTimeline(ctx, contentID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No versions found")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s  v%-4d %-12s %s\n",
			e.Version.CreatedAt.Format("2006-01-02 15:04"), e.Version.VersionNumber, e.Version.BranchName, e.Summary)
	}
	return nil
}

// Autosave stores an unnumbered draft. rawData is a JSON object.
func (a *VersionAdapter) Autosave(ctx context.Context, contentID, authorID, branch, rawData string) error {
	data, err := diff.Decode([]byte(rawData))
	if err != nil {
		return fmt.Errorf("data must be a JSON object: %w", err)
	}

	as, err := a.versions.SaveAutosave(ctx, primary.AutosaveRequest{
		ContentID: contentID,
		Data:      data,
		AuthorID:  authorID,
		Branch:    branch,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Autosaved %s on %s (%s)\n", okMark, as.ContentID, as.BranchName, as.ID)
	return nil
}

// LatestAutosave shows the newest autosave of a content item.
func (a *VersionAdapter) LatestAutosave(ctx context.Context, contentID string) (*primary.Autosave, error) {
	as, err := a.versions.GetLatestAutosave(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get autosave: %w", err)
	}

	fmt.Fprintf(a.out, "\nAutosave: %s\n", as.ID)
	fmt.Fprintf(a.out, "Content:  %s\n", as.ContentID)
	fmt.Fprintf(a.out, "Branch:   %s\n", as.BranchName)
	fmt.Fprintf(a.out, "Author:   %s\n", as.AuthorID)
	fmt.Fprintf(a.out, "Saved:    %s\n", as.CreatedAt.Format("2006-01-02 15:04:05"))
	data, err := json.MarshalIndent(as.Data, "", "  ")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "Data:\n%s\n\n", data)

	return as, nil
}

// Promote turns an autosave into the next version of its branch.
func (a *VersionAdapter) Promote(ctx context.Context, autosaveID, userID, notes string) error {
	v, err := a.versions.PromoteAutosave(ctx, primary.PromoteAutosaveRequest{
		AutosaveID: autosaveID,
		UserID:     userID,
		Notes:      notes,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Promoted autosave to version %d of %s on %s\n", okMark, v.VersionNumber, v.ContentID, v.BranchName)
	return nil
}

// Size prints a version's payload size per field, largest first.
func (a *VersionAdapter) Size(ctx context.Context, contentID string, number int) error {
	size, err := a.versions.GetVersionSize(ctx, contentID, number)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nVersion %d: %d bytes in %d fields\n", size.VersionNumber, size.TotalBytes, size.FieldCount)
	if size.FieldCount == 0 {
		return nil
	}
	fmt.Fprintln(a.out, rule)

	keys := make([]string, 0, len(size.Fields))
	for k := range size.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if size.Fields[keys[i]] != size.Fields[keys[j]] {
			return size.Fields[keys[i]] > size.Fields[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(a.out, "%-24s %d\n", k, size.Fields[k])
	}
	fmt.Fprintln(a.out)
	return nil
}

// Storage prints the stored footprint of a content item.
func (a *VersionAdapter) Storage(ctx context.Context, contentID string, top int) error {
	usage, err := a.versions.GetStorageUsage(ctx, contentID, top)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n%s: %d versions, %d bytes\n", usage.ContentID, usage.TotalVersions, usage.TotalBytes)
	fmt.Fprintf(a.out, "Autosaves: %d, %d bytes\n", usage.Autosaves, usage.AutosaveBytes)
	if len(usage.Largest) == 0 {
		return nil
	}
	fmt.Fprintf(a.out, "\n%-6s %-10s %s\n", "#", "BYTES", "ID")
	fmt.Fprintln(a.out, rule)
	for _, v := range usage.Largest {
		fmt.Fprintf(a.out, "%-6d %-10d %s\n", v.VersionNumber, v.Bytes, v.VersionID)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Detect prints the conflict report between two versions.
func (a *VersionAdapter) Detect(ctx context.Context, sourceID, targetID string) (*primary.ConflictReport, error) {
	r, err := a.conflicts.DetectConflicts(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	if !r.HasConflict {
		fmt.Fprintf(a.out, "%s No conflict\n", okMark)
		return r, nil
	}
	fmt.Fprintf(a.out, "%s Conflict between %s and %s\n", warnMark, r.SourceVersionID, r.TargetVersionID)
	if r.ContentConflict {
		fmt.Fprintln(a.out, "  content differs")
	}
	if r.TimestampConflict {
		fmt.Fprintln(a.out, "  target is newer than source")
	}
	return r, nil
}

// Resolve applies a strategy and reports the version it wrote.
func (a *VersionAdapter) Resolve(ctx context.Context, req primary.ResolveConflictRequest) error {
	res, err := a.conflicts.ResolveConflict(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Resolved with %s strategy as version %d on %s\n",
		okMark, res.Strategy, res.Version.VersionNumber, res.Version.BranchName)
	if res.Chosen != "" {
		fmt.Fprintf(a.out, "  chose %s\n", res.Chosen)
	}
	if res.Caveat != "" {
		fmt.Fprintf(a.out, "%s %s\n", warnMark, res.Caveat)
	}
	return nil
}

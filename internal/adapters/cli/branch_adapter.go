package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/verflow/internal/ports/primary"
)

// BranchAdapter translates CLI operations to BranchService calls.
type BranchAdapter struct {
	service primary.BranchService
	out     io.Writer
}

// NewBranchAdapter creates a new BranchAdapter with the given service.
func NewBranchAdapter(service primary.BranchService, out io.Writer) *BranchAdapter {
	return &BranchAdapter{service: service, out: out}
}

// Create creates a branch at an existing version.
func (a *BranchAdapter) Create(ctx context.Context, req primary.CreateBranchRequest) error {
	b, err := a.service.CreateBranch(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Created branch %s of %s at %s\n", okMark, b.Name, b.ContentID, b.HeadVersionID)
	return nil
}

// List lists the branches of a content item.
func (a *BranchAdapter) List(ctx context.Context, contentID string) error {
	branches, err := a.service.ListBranches(ctx, contentID)
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}

	if len(branches) == 0 {
		fmt.Fprintln(a.out, "No branches found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-20s %-38s %s\n", "NAME", "HEAD", "FLAGS")
	fmt.Fprintln(a.out, rule)
	for _, b := range branches {
		flags := ""
		if b.IsDefault {
			flags += color.New(color.FgHiMagenta).Sprint(" [default]")
		}
		if b.IsProtected {
			flags += color.New(color.FgCyan).Sprint(" [protected]")
		}
		fmt.Fprintf(a.out, "%-20s %-38s%s\n", b.Name, b.HeadVersionID, flags)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Merge merges source into target and reports the conflict seen beforehand.
func (a *BranchAdapter) Merge(ctx context.Context, req primary.MergeBranchRequest) error {
	res, err := a.service.MergeBranch(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Merged %s into %s as version %d\n", okMark, req.Source, req.Target, res.Version.VersionNumber)
	if res.Conflict != nil && res.Conflict.HasConflict {
		fmt.Fprintf(a.out, "%s heads differed (content: %t, timestamp: %t); source data was taken\n",
			warnMark, res.Conflict.ContentConflict, res.Conflict.TimestampConflict)
	}
	return nil
}

// Protect marks a branch protected or unprotected.
func (a *BranchAdapter) Protect(ctx context.Context, contentID, name string, protected bool) error {
	if err := a.service.SetProtected(ctx, contentID, name, protected); err != nil {
		return err
	}

	if protected {
		fmt.Fprintf(a.out, "%s Branch %s is protected\n", okMark, name)
	} else {
		fmt.Fprintf(a.out, "%s Branch %s is no longer protected\n", okMark, name)
	}
	return nil
}

// SetDefault makes a branch the content's default.
func (a *BranchAdapter) SetDefault(ctx context.Context, contentID, name string) error {
	if err := a.service.SetDefault(ctx, contentID, name); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s %s is now the default branch of %s\n", okMark, name, contentID)
	return nil
}

// Delete removes a branch.
func (a *BranchAdapter) Delete(ctx context.Context, contentID, name string) error {
	if err := a.service.DeleteBranch(ctx, contentID, name); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Deleted branch %s\n", okMark, name)
	return nil
}

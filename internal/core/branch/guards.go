// Package branch contains the pure business logic for branch operations.
// Guards are pure functions that evaluate preconditions without side effects.
package branch

import (
	"fmt"
	"regexp"
	"strings"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

// CreateBranchContext provides context for branch creation guards.
type CreateBranchContext struct {
	ContentID      string
	Name           string
	NameTaken      bool
	VersionExists  bool
	VersionContent string // content id the base version belongs to
}

// CanCreateBranch evaluates whether a branch can be created.
// Rules:
// - Name must look like a ref: no spaces, no "..", no trailing "/" or ".lock"
// - Name must be unique per content
// - Base version must exist and belong to the same content
func CanCreateBranch(ctx CreateBranchContext) GuardResult {
	if r := ValidateName(ctx.Name); !r.Allowed {
		return r
	}
	if !ctx.VersionExists {
		return GuardResult{Allowed: false, Reason: "base version not found"}
	}
	if ctx.VersionContent != ctx.ContentID {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("base version belongs to content %s, not %s", ctx.VersionContent, ctx.ContentID),
		}
	}
	if ctx.NameTaken {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("branch %q already exists for content %s", ctx.Name, ctx.ContentID),
		}
	}
	return GuardResult{Allowed: true}
}

// ValidateName checks a branch name in isolation.
func ValidateName(name string) GuardResult {
	switch {
	case name == "":
		return GuardResult{Allowed: false, Reason: "branch name is required"}
	case len(name) > 100:
		return GuardResult{Allowed: false, Reason: "branch name must be at most 100 characters"}
	case !namePattern.MatchString(name),
		strings.Contains(name, ".."),
		strings.Contains(name, "//"),
		strings.HasSuffix(name, "/"),
		strings.HasSuffix(name, ".lock"):
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("invalid branch name %q", name)}
	}
	return GuardResult{Allowed: true}
}

// MergeContext provides context for merge guards.
type MergeContext struct {
	SourceName      string
	TargetName      string
	SourceProtected bool
	TargetProtected bool
	SourceHasHead   bool
}

// CanMerge evaluates whether source can be merged into target.
// Rules:
// - Source and target must differ
// - Neither branch may be protected
// - Source must have a head version
func CanMerge(ctx MergeContext) GuardResult {
	if ctx.SourceName == ctx.TargetName {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("cannot merge branch %q into itself", ctx.SourceName)}
	}
	if ctx.SourceProtected {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("branch %q is protected and cannot be merged out", ctx.SourceName)}
	}
	if ctx.TargetProtected {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("branch %q is protected and cannot be merged into", ctx.TargetName)}
	}
	if !ctx.SourceHasHead {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("branch %q has no versions to merge", ctx.SourceName)}
	}
	return GuardResult{Allowed: true}
}

// DeleteContext provides context for branch deletion guards.
type DeleteContext struct {
	Name        string
	IsDefault   bool
	IsProtected bool
}

// CanDelete evaluates whether a branch can be deleted.
// Rule: the default branch and protected branches stay.
func CanDelete(ctx DeleteContext) GuardResult {
	if ctx.IsDefault {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("cannot delete default branch %q. Set another default first", ctx.Name)}
	}
	if ctx.IsProtected {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("cannot delete protected branch %q. Unprotect first", ctx.Name)}
	}
	return GuardResult{Allowed: true}
}

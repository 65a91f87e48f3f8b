package branch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		allowed bool
	}{
		{"simple", "main", true},
		{"nested", "feature/hero-copy", true},
		{"dots and dashes", "release-1.2", true},
		{"empty", "", false},
		{"space", "my branch", false},
		{"double dot", "a..b", false},
		{"trailing slash", "feature/", false},
		{"lock suffix", "main.lock", false},
		{"leading dash", "-x", false},
		{"double slash", "a//b", false},
		{"too long", strings.Repeat("a", 101), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, ValidateName(tt.input).Allowed)
		})
	}
}

func TestCanCreateBranch(t *testing.T) {
	base := CreateBranchContext{
		ContentID:      "page-1",
		Name:           "draft-copy",
		VersionExists:  true,
		VersionContent: "page-1",
	}

	assert.True(t, CanCreateBranch(base).Allowed)

	taken := base
	taken.NameTaken = true
	r := CanCreateBranch(taken)
	assert.False(t, r.Allowed)
	assert.Contains(t, r.Reason, "already exists")

	missing := base
	missing.VersionExists = false
	assert.False(t, CanCreateBranch(missing).Allowed)

	foreign := base
	foreign.VersionContent = "page-2"
	r = CanCreateBranch(foreign)
	assert.False(t, r.Allowed)
	assert.Contains(t, r.Reason, "page-2")
}

func TestCanMerge(t *testing.T) {
	tests := []struct {
		name    string
		ctx     MergeContext
		allowed bool
		reason  string
	}{
		{
			name:    "plain merge",
			ctx:     MergeContext{SourceName: "feature", TargetName: "main", SourceHasHead: true},
			allowed: true,
		},
		{
			name:   "self merge",
			ctx:    MergeContext{SourceName: "main", TargetName: "main", SourceHasHead: true},
			reason: "into itself",
		},
		{
			name:   "protected source",
			ctx:    MergeContext{SourceName: "feature", TargetName: "main", SourceProtected: true, SourceHasHead: true},
			reason: "merged out",
		},
		{
			name:   "protected target",
			ctx:    MergeContext{SourceName: "feature", TargetName: "main", TargetProtected: true, SourceHasHead: true},
			reason: "merged into",
		},
		{
			name:   "empty source",
			ctx:    MergeContext{SourceName: "feature", TargetName: "main"},
			reason: "no versions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CanMerge(tt.ctx)
			assert.Equal(t, tt.allowed, r.Allowed)
			if !tt.allowed {
				assert.Contains(t, r.Reason, tt.reason)
				assert.Error(t, r.Error())
			} else {
				assert.NoError(t, r.Error())
			}
		})
	}
}

func TestCanDelete(t *testing.T) {
	assert.True(t, CanDelete(DeleteContext{Name: "feature"}).Allowed)
	assert.False(t, CanDelete(DeleteContext{Name: "main", IsDefault: true}).Allowed)
	assert.False(t, CanDelete(DeleteContext{Name: "release", IsProtected: true}).Allowed)
}

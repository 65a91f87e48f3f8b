// Package retention contains the pure business logic for version pruning.
// This is part of the Functional Core - no I/O, only pure functions.
package retention

import (
	"fmt"
	"sort"
	"time"
)

// Limits carries the system defaults and maxima a policy is resolved against.
type Limits struct {
	DefaultMaxVersions int
	DefaultMaxDays     int
	MaxVersions        int
	MaxDays            int
}

// DefaultLimits returns the stock limits: keep 5 versions or 30 days, never
// more than 20 versions or 365 days.
func DefaultLimits() Limits {
	return Limits{
		DefaultMaxVersions: 5,
		DefaultMaxDays:     30,
		MaxVersions:        20,
		MaxDays:            365,
	}
}

// Policy is a resolved retention policy for one content item.
type Policy struct {
	ContentID   string `json:"content_id"`
	MaxVersions int    `json:"max_versions"`
	MaxDays     int    `json:"max_days"`
	Custom      bool   `json:"custom"`
}

// Resolve turns stored settings into an effective policy. Zero or negative
// values fall back to the defaults; values above the maxima are clamped.
func Resolve(contentID string, maxVersions, maxDays int, custom bool, l Limits) Policy {
	p := Policy{ContentID: contentID, MaxVersions: maxVersions, MaxDays: maxDays, Custom: custom}
	if p.MaxVersions <= 0 {
		p.MaxVersions = l.DefaultMaxVersions
	}
	if p.MaxDays <= 0 {
		p.MaxDays = l.DefaultMaxDays
	}
	if p.MaxVersions > l.MaxVersions {
		p.MaxVersions = l.MaxVersions
	}
	if p.MaxDays > l.MaxDays {
		p.MaxDays = l.MaxDays
	}
	return p
}

// Validate checks caller-supplied bounds before they are stored.
func Validate(maxVersions, maxDays int, l Limits) error {
	if maxVersions < 1 || maxVersions > l.MaxVersions {
		return fmt.Errorf("max_versions must be between 1 and %d, got %d", l.MaxVersions, maxVersions)
	}
	if maxDays < 1 || maxDays > l.MaxDays {
		return fmt.Errorf("max_days must be between 1 and %d, got %d", l.MaxDays, maxDays)
	}
	return nil
}

// Candidate is a version considered for pruning.
type Candidate struct {
	ID            string
	VersionNumber int
	CreatedAt     time.Time
}

// Cutoff returns the instant before which a version counts as old.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.MaxDays)
}

// SelectDeletions returns the ids of versions to delete. A version is
// deleted only when it is older than the cutoff AND outside the MaxVersions
// most recent versions. Branch heads are never selected.
func SelectDeletions(versions []Candidate, heads map[string]bool, now time.Time, p Policy) []string {
	sorted := make([]Candidate, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].VersionNumber > sorted[j].VersionNumber
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	cutoff := p.Cutoff(now)
	var ids []string
	for i, v := range sorted {
		if i < p.MaxVersions {
			continue
		}
		if !v.CreatedAt.Before(cutoff) {
			continue
		}
		if heads[v.ID] {
			continue
		}
		ids = append(ids, v.ID)
	}
	return ids
}

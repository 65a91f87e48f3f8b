// Package conflict contains the pure business logic for detecting and
// resolving divergence between two versions.
// This is part of the Functional Core - no I/O, only pure functions.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/verflow/internal/core/diff"
)

// Strategy names a resolution strategy.
type Strategy string

const (
	// StrategyMerge takes the shallow union of both payloads; source wins collisions.
	StrategyMerge Strategy = "merge"
	// StrategySource takes the source payload wholesale.
	StrategySource Strategy = "source"
	// StrategyTarget takes the target payload wholesale.
	StrategyTarget Strategy = "target"
	// StrategyNewer takes whichever side was written later.
	StrategyNewer Strategy = "newer"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyMerge, StrategySource, StrategyTarget, StrategyNewer:
		return st, nil
	}
	return "", fmt.Errorf("unknown resolution strategy %q (want merge, source, target or newer)", s)
}

// Snapshot is the slice of a version that detection and resolution need.
type Snapshot struct {
	VersionID string
	UpdatedAt time.Time
	Data      map[string]any
}

// Report is the outcome of conflict detection.
type Report struct {
	TimestampConflict bool   `json:"timestamp_conflict"`
	ContentConflict   bool   `json:"content_conflict"`
	SourceVersionID   string `json:"source_version_id"`
	TargetVersionID   string `json:"target_version_id"`
}

// HasConflict reports whether either dimension conflicts.
func (r Report) HasConflict() bool {
	return r.TimestampConflict || r.ContentConflict
}

// Detect compares source against target. A nil target means nothing exists
// on the other side yet, which is never a conflict.
func Detect(source Snapshot, target *Snapshot) (Report, error) {
	r := Report{SourceVersionID: source.VersionID}
	if target == nil {
		return r, nil
	}
	r.TargetVersionID = target.VersionID
	r.TimestampConflict = target.UpdatedAt.After(source.UpdatedAt)

	sh, err := diff.Hash(source.Data)
	if err != nil {
		return Report{}, err
	}
	th, err := diff.Hash(target.Data)
	if err != nil {
		return Report{}, err
	}
	r.ContentConflict = sh != th
	return r, nil
}

// Resolution is the payload a strategy produced plus any caveat the caller
// should surface.
type Resolution struct {
	Strategy Strategy
	Data     map[string]any
	// Overridden lists keys where both sides held different values and the
	// merge strategy silently kept the source value.
	Overridden []string
	// Chosen is the version id whose payload was taken wholesale, empty for merge.
	Chosen string
}

// Caveat returns a human-readable warning for lossy merges, or "".
func (r Resolution) Caveat() string {
	if r.Strategy != StrategyMerge || len(r.Overridden) == 0 {
		return ""
	}
	return fmt.Sprintf("merge kept source values for %d field(s) changed on both sides: %v", len(r.Overridden), r.Overridden)
}

// Resolve applies strategy to source and target.
func Resolve(strategy Strategy, source, target Snapshot) (Resolution, error) {
	switch strategy {
	case StrategyMerge:
		merged := make(map[string]any, len(source.Data)+len(target.Data))
		for k, v := range target.Data {
			merged[k] = v
		}
		var overridden []string
		for k, v := range source.Data {
			if tv, ok := target.Data[k]; ok && !diff.StrictEqual(tv, v) {
				overridden = append(overridden, k)
			}
			merged[k] = v
		}
		sort.Strings(overridden)
		return Resolution{Strategy: strategy, Data: merged, Overridden: overridden}, nil
	case StrategySource:
		return Resolution{Strategy: strategy, Data: copyMap(source.Data), Chosen: source.VersionID}, nil
	case StrategyTarget:
		return Resolution{Strategy: strategy, Data: copyMap(target.Data), Chosen: target.VersionID}, nil
	case StrategyNewer:
		// Ties go to the source.
		if target.UpdatedAt.After(source.UpdatedAt) {
			return Resolution{Strategy: strategy, Data: copyMap(target.Data), Chosen: target.VersionID}, nil
		}
		return Resolution{Strategy: strategy, Data: copyMap(source.Data), Chosen: source.VersionID}, nil
	}
	return Resolution{}, fmt.Errorf("unknown resolution strategy %q", strategy)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

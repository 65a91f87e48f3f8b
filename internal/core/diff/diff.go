// Package diff contains the pure diff engine: field-level diffs of structured
// payloads, positional line diffs of text, similarity scores and content hashes.
// This is part of the Functional Core - no I/O, only pure functions.
package diff

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/go-cmp/cmp"
)

// ChangeType classifies a single field or line change.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
)

// FieldChange describes one changed field.
type FieldChange struct {
	Old  any        `json:"old"`
	New  any        `json:"new"`
	Type ChangeType `json:"type"`
}

// Stats summarizes a field diff.
type Stats struct {
	TotalFields   int      `json:"total_fields"`
	TotalChanges  int      `json:"total_changes"`
	Added         int      `json:"added"`
	Removed       int      `json:"removed"`
	Modified      int      `json:"modified"`
	FieldsChanged []string `json:"fields_changed"`
}

// FieldDiff is the result of comparing two structured payloads.
type FieldDiff struct {
	FieldsChanged map[string]FieldChange `json:"fields_changed"`
	Similarity    int                    `json:"similarity"`
	Stats         Stats                  `json:"stats"`
}

// Fields compares two payloads over the union of their keys. A missing key
// reads as nil. A field is changed when the values differ in type or value.
func Fields(oldData, newData map[string]any) FieldDiff {
	keys := unionKeys(oldData, newData)
	changes := make(map[string]FieldChange)
	stats := Stats{TotalFields: len(keys), FieldsChanged: []string{}}

	for _, k := range keys {
		oldVal := oldData[k]
		newVal := newData[k]
		if StrictEqual(oldVal, newVal) {
			continue
		}

		ct := changeType(oldVal, newVal)
		changes[k] = FieldChange{Old: oldVal, New: newVal, Type: ct}
		stats.FieldsChanged = append(stats.FieldsChanged, k)
		switch ct {
		case ChangeAdded:
			stats.Added++
		case ChangeRemoved:
			stats.Removed++
		default:
			stats.Modified++
		}
	}
	stats.TotalChanges = len(changes)

	return FieldDiff{
		FieldsChanged: changes,
		Similarity:    Similarity(stats.TotalFields, stats.TotalChanges),
		Stats:         stats,
	}
}

// ChangedKeys returns the sorted set of keys whose values differ.
func ChangedKeys(a, b map[string]any) []string {
	return Fields(a, b).Stats.FieldsChanged
}

// Similarity returns the percentage of unchanged fields, 100 for an empty union.
func Similarity(totalFields, changedFields int) int {
	if totalFields == 0 {
		return 100
	}
	return int(math.Round(100 * float64(totalFields-changedFields) / float64(totalFields)))
}

// StrictEqual compares two decoded values without any type coercion.
func StrictEqual(a, b any) bool {
	return cmp.Equal(a, b)
}

// Hash returns a hex SHA-256 of the canonical JSON encoding of data.
// encoding/json sorts map keys, so equal payloads hash equally.
func Hash(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Decode parses a stored JSON payload, keeping numbers as json.Number so that
// 1 and 1.0 remain distinct values.
func Decode(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// Normalize round-trips data through JSON so it compares equal to what the
// store returns for the same payload.
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return Decode(b)
}

func changeType(oldVal, newVal any) ChangeType {
	if oldVal == nil {
		return ChangeAdded
	}
	if newVal == nil {
		return ChangeRemoved
	}
	return ChangeModified
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

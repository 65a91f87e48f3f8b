package diff

import (
	"encoding/json"
	"fmt"
)

// Size is the stored weight of a payload.
type Size struct {
	TotalBytes int            `json:"total_bytes"`
	FieldCount int            `json:"field_count"`
	Fields     map[string]int `json:"fields"`
}

// Sizes measures each field of data. A string counts its UTF-8 bytes, null
// counts zero and any other value counts the bytes of its JSON encoding.
func Sizes(data map[string]any) (Size, error) {
	s := Size{FieldCount: len(data), Fields: make(map[string]int, len(data))}
	for k, v := range data {
		var n int
		switch val := v.(type) {
		case nil:
		case string:
			n = len(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return Size{}, fmt.Errorf("failed to measure field %q: %w", k, err)
			}
			n = len(b)
		}
		s.Fields[k] = n
		s.TotalBytes += n
	}
	return s, nil
}

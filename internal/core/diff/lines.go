package diff

import "strings"

// LineChange is one positional line comparison.
type LineChange struct {
	Line int        `json:"line"` // 1-based
	Type ChangeType `json:"type"`
	Old  string     `json:"old,omitempty"`
	New  string     `json:"new,omitempty"`
}

// LineStats summarizes a line diff.
type LineStats struct {
	Unchanged int `json:"unchanged"`
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
}

// LineDiff is the result of comparing two texts line by line.
type LineDiff struct {
	Lines []LineChange `json:"lines"`
	Stats LineStats    `json:"stats"`
}

// Lines compares oldText and newText by index. It never realigns: inserting a
// line shifts every following line to modified.
func Lines(oldText, newText string) LineDiff {
	oldLines := strings.Split(oldText, "\n")
	newLines := strings.Split(newText, "\n")

	n := max(len(oldLines), len(newLines))
	out := LineDiff{Lines: make([]LineChange, 0, n)}

	for i := 0; i < n; i++ {
		lc := LineChange{Line: i + 1}
		switch {
		case i >= len(oldLines):
			lc.Type = ChangeAdded
			lc.New = newLines[i]
			out.Stats.Added++
		case i >= len(newLines):
			lc.Type = ChangeRemoved
			lc.Old = oldLines[i]
			out.Stats.Removed++
		case oldLines[i] == newLines[i]:
			lc.Type = ChangeUnchanged
			lc.Old = oldLines[i]
			lc.New = newLines[i]
			out.Stats.Unchanged++
		default:
			lc.Type = ChangeModified
			lc.Old = oldLines[i]
			lc.New = newLines[i]
			out.Stats.Modified++
		}
		out.Lines = append(out.Lines, lc)
	}
	return out
}

// Changed returns only the non-unchanged lines.
func (d LineDiff) Changed() []LineChange {
	var out []LineChange
	for _, l := range d.Lines {
		if l.Type != ChangeUnchanged {
			out = append(out, l)
		}
	}
	return out
}

package fix

import (
	"fmt"
	"sort"

	"libertyls/internal/diag"
)

// ApplyEdits returns content with edits applied. Edits are interpreted
// against the original content and must not overlap.
func ApplyEdits(content []byte, edits []diag.TextEdit) ([]byte, error) {
	sorted := make([]diag.TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start < sorted[j].Span.Start
	})
	for i := 1; i < len(sorted); i++ {
		if spansConflict(sorted[i-1], sorted[i]) {
			return nil, fmt.Errorf("fix: overlapping edits at %d and %d", sorted[i-1].Span.Start, sorted[i].Span.Start)
		}
	}

	out := make([]byte, 0, len(content))
	pos := 0
	for _, e := range sorted {
		start, end := int(e.Span.Start), int(e.Span.End)
		if start < pos || end < start || end > len(content) {
			return nil, fmt.Errorf("fix: edit span %d-%d out of range", start, end)
		}
		if e.OldText != "" && string(content[start:end]) != e.OldText {
			return nil, fmt.Errorf("fix: existing text at %d does not match expected content", start)
		}
		out = append(out, content[pos:start]...)
		out = append(out, e.NewText...)
		pos = end
	}
	out = append(out, content[pos:]...)
	return out, nil
}

func conflictsWith(existing []diag.TextEdit, e diag.TextEdit) bool {
	for _, prev := range existing {
		if spansConflict(prev, e) {
			return true
		}
	}
	return false
}

// spansConflict reports whether two edits touch the same text. Spans are
// half-open. Two inserts at one offset conflict since their order would be
// arbitrary; an insert conflicts with a span strictly containing or starting
// at its offset.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End
	switch {
	case aStart == aEnd && bStart == bEnd:
		return aStart == bStart
	case aStart == aEnd:
		return bStart <= aStart && aStart < bEnd
	case bStart == bEnd:
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

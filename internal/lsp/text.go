package lsp

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"
)

// applyChanges applies incremental edits in order. A change without a range
// replaces the whole text.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		content := []byte(text)
		lineIdx := newlineIndex(content)
		size := toUint32(len(content))
		start := offsetForPosition(content, lineIdx, size, change.Range.Start)
		end := offsetForPosition(content, lineIdx, size, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func offsetForPosition(content []byte, lineIdx []uint32, size uint32, pos position) uint32 {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	start, end, ok := lineBounds(lineIdx, size, pos.Line)
	if !ok {
		return size
	}
	return offsetIn(content, start, end, pos.Character)
}

func newlineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for i, b := range content {
		if b != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("offset overflow: %w", err))
		}
		out = append(out, off)
	}
	return out
}

package lsp

import (
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"

	"libertyls/internal/source"
)

// Positions on the wire count UTF-16 code units; spans count bytes.

func toUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return ^uint32(0)
	}
	return v
}

func utf16Units(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// lineBounds returns the byte range of a zero-based line, excluding its
// newline. ok is false past the last line.
func lineBounds(lineIdx []uint32, size uint32, line int) (start, end uint32, ok bool) {
	if line < 0 || line > len(lineIdx) {
		return 0, 0, false
	}
	if line > 0 {
		start = lineIdx[line-1] + 1
	}
	end = size
	if line < len(lineIdx) {
		end = lineIdx[line]
	}
	if start > end {
		start = end
	}
	return start, end, true
}

// offsetIn walks at most character UTF-16 units into content[start:end].
// A position inside a surrogate pair stays before the rune.
func offsetIn(content []byte, start, end uint32, character int) uint32 {
	units := 0
	off := start
	for off < end && units < character {
		r, size := utf8.DecodeRune(content[off:end])
		need := utf16Units(r)
		if units+need > character {
			break
		}
		units += need
		off += toUint32(size)
	}
	return off
}

func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil || pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	size := toUint32(len(file.Content))
	start, end, ok := lineBounds(file.LineIdx, size, pos.Line)
	if !ok {
		return size
	}
	return offsetIn(file.Content, start, end, pos.Character)
}

func positionForOffsetInFile(file *source.File, off uint32) position {
	if file == nil {
		return position{}
	}
	size := toUint32(len(file.Content))
	if off > size {
		off = size
	}
	line := sort.Search(len(file.LineIdx), func(i int) bool { return file.LineIdx[i] >= off })
	start, _, _ := lineBounds(file.LineIdx, size, line)
	units := 0
	for p := start; p < off; {
		r, n := utf8.DecodeRune(file.Content[p:off])
		units += utf16Units(r)
		p += toUint32(n)
	}
	return position{Line: line, Character: units}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}

func spanForRange(file *source.File, r lspRange) source.Span {
	if file == nil {
		return source.Span{}
	}
	start := offsetForPositionInFile(file, r.Start)
	end := offsetForPositionInFile(file, r.End)
	if end < start {
		end = start
	}
	return source.Span{File: file.ID, Start: start, End: end}
}

// rangesOverlap reports whether a and b share a position. Touching ranges
// overlap so a cursor at the end of a diagnostic still matches it.
func rangesOverlap(a, b lspRange) bool {
	return !positionLess(a.End, b.Start) && !positionLess(b.End, a.Start)
}

func positionLess(a, b position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

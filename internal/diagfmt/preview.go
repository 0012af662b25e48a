package diagfmt

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"libertyls/internal/diag"
	"libertyls/internal/source"
)

// fixEditPreview holds the whole lines touched by an edit before and
// after it is applied.
type fixEditPreview struct {
	before []string
	after  []string
}

func buildFixEditPreview(fs *source.FileSet, edit diag.TextEdit) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, errors.New("nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}
	size, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fixEditPreview{}, fmt.Errorf("file too large: %w", err)
	}
	if edit.Span.End < edit.Span.Start || edit.Span.End > size {
		return fixEditPreview{}, fmt.Errorf("edit span %d..%d out of range", edit.Span.Start, edit.Span.End)
	}

	startPos, endPos := fs.Resolve(edit.Span)
	blockStart := lineStart(file, startPos.Line, size)
	blockEnd := min(max(lineEnd(file, max(endPos.Line, startPos.Line), size), blockStart), size)

	original := file.Content[blockStart:blockEnd]
	relStart := edit.Span.Start - blockStart
	relEnd := edit.Span.End - blockStart

	after := make([]byte, 0, len(original)+len(edit.NewText))
	after = append(after, original[:relStart]...)
	after = append(after, edit.NewText...)
	after = append(after, original[relEnd:]...)

	return fixEditPreview{
		before: previewLines(original),
		after:  previewLines(after),
	}, nil
}

// previewLines splits content into lines, dropping the final terminator.
func previewLines(content []byte) []string {
	text := strings.TrimRight(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// lineStart is the offset of the first byte of the 1-based line.
func lineStart(f *source.File, line, size uint32) uint32 {
	if line <= 1 {
		return 0
	}
	if idx := int(line - 2); idx < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return size
}

// lineEnd is the offset just past the terminator of the 1-based line.
func lineEnd(f *source.File, line, size uint32) uint32 {
	if line == 0 {
		return 0
	}
	if idx := int(line - 1); idx < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return size
}

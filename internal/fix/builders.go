package fix

import (
	"fmt"

	"fortio.org/safecast"

	"libertyls/internal/diag"
	"libertyls/internal/source"
)

// Option mutates fix during construction.
type Option func(*diag.Fix)

// WithApplicability overrides applicability metadata.
func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) {
		f.Applicability = app
	}
}

// WithKind overrides fix classification.
func WithKind(kind diag.FixKind) Option {
	return func(f *diag.Fix) {
		f.Kind = kind
	}
}

// Preferred marks fix as preferred suggestion.
func Preferred() Option {
	return func(f *diag.Fix) {
		f.IsPreferred = true
	}
}

// WithID sets stable identifier for fix.
func WithID(id string) Option {
	return func(f *diag.Fix) {
		f.ID = id
	}
}

func applyOptions(f diag.Fix, opts []Option) diag.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// InsertText creates fix that inserts text at span (Span.Start == Span.End).
func InsertText(title string, at source.Span, text string, guard string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    at,
		NewText: text,
		OldText: guard,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// DeleteSpan removes text covered by span.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    span,
		NewText: "",
		OldText: expect,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) diag.Fix {
	edit := diag.TextEdit{
		Span:    span,
		NewText: newText,
		OldText: expect,
	}
	fix := diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}
	return applyOptions(fix, opts)
}

// DeleteLine removes span together with the indentation before it and the
// line break after it, when nothing else shares those lines. Otherwise only
// span is removed.
func DeleteLine(title string, file *source.File, span source.Span, opts ...Option) diag.Fix {
	start, end := span.Start, span.End
	if file != nil {
		content := file.Content
		lineStart := file.LineStart(span.Start)
		onlyIndent := true
		for i := lineStart; i < span.Start; i++ {
			if content[i] != ' ' && content[i] != '\t' {
				onlyIndent = false
				break
			}
		}
		tail := int(span.End)
		for tail < len(content) && (content[tail] == ' ' || content[tail] == '\t') {
			tail++
		}
		atEOL := tail == len(content) || content[tail] == '\n' || content[tail] == '\r'
		if onlyIndent && atEOL {
			if lineStart > 0 {
				// take the preceding line break so the following line keeps its place
				start = lineStart - 1
				if start > 0 && content[start-1] == '\r' {
					start--
				}
				end = offset(tail)
			} else {
				start = lineStart
				if tail < len(content) && content[tail] == '\r' {
					tail++
				}
				if tail < len(content) && content[tail] == '\n' {
					tail++
				}
				end = offset(tail)
			}
		}
	}
	target := source.Span{File: span.File, Start: start, End: end}
	expect := ""
	if file != nil {
		expect = file.Slice(target)
	}
	return DeleteSpan(title, target, expect, opts...)
}

func offset(n int) uint32 {
	off, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("fix: offset overflow: %w", err))
	}
	return off
}

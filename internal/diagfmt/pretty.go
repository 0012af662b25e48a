package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"libertyls/internal/diag"
	"libertyls/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, path, gutter, caret, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgBlue, color.Bold),
		note:    color.New(color.FgCyan),
		path:    color.New(color.Bold),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgGreen, color.Bold),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes bag.Items() in order (call bag.Sort first). Each entry is
//
//	<path>:<line>:<col>: <SEV> <code>: <message>
//
// followed by the source line with the span underlined as ^~~~, then the
// notes and fixes when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyDiagnostic(w, d, fs, opts, p)
	}
}

func prettyDiagnostic(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(d.Primary.File)
	if f == nil {
		fmt.Fprintf(w, "%s %s: %s\n", p.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		return
	}
	start, end := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.path.Sprintf("%s:%d:%d", formatPath(f, fs, opts.PathMode), start.Line, start.Col),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		d.Code.ID(),
		d.Message,
	)
	writeSnippet(w, f, start, end, opts, p)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			writeNote(w, note, fs, opts, p)
		}
	}
	if opts.ShowFixes {
		for _, fix := range sortedFixes(d.Fixes) {
			writeFix(w, fix, fs, opts, p)
		}
	}
}

func writeSnippet(w io.Writer, f *source.File, start, end source.LineCol, opts PrettyOpts, p palette) {
	ctx := uint32(max(opts.Context, 0))
	first := uint32(1)
	if start.Line > ctx {
		first = start.Line - ctx
	}
	last := start.Line + ctx
	if total := uint32(len(f.LineIdx)) + 1; last > total {
		last = total
	}
	gutterWidth := len(strconv.FormatUint(uint64(last), 10))
	blank := strings.Repeat(" ", gutterWidth)

	for line := first; line <= last; line++ {
		text := displayLine(f.GetLine(line))
		if opts.Width > 0 {
			text = runewidth.Truncate(text, int(opts.Width), "...")
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, line), text)
		if line != start.Line {
			continue
		}
		raw := f.GetLine(line)
		from := min(int(start.Col)-1, len(raw))
		to := len(raw)
		if end.Line == start.Line {
			to = min(max(int(end.Col)-1, from), len(raw))
		}
		pad := runewidth.StringWidth(displayLine(raw[:from]))
		width := max(runewidth.StringWidth(displayLine(raw[from:to])), 1)
		if opts.Width > 0 && pad >= int(opts.Width) {
			continue
		}
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%s |", blank), strings.Repeat(" ", pad), p.caret.Sprint("^"+strings.Repeat("~", width-1)))
	}
}

// displayLine expands tabs so caret columns line up.
func displayLine(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func writeNote(w io.Writer, note diag.Note, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(note.Span.File)
	if f == nil {
		fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), note.Msg)
		return
	}
	start, _ := fs.Resolve(note.Span)
	fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"), formatPath(f, fs, opts.PathMode), start.Line, start.Col, note.Msg)
}

func writeFix(w io.Writer, fix diag.Fix, fs *source.FileSet, opts PrettyOpts, p palette) {
	preferred := ""
	if fix.IsPreferred {
		preferred = ", preferred"
	}
	fmt.Fprintf(w, "  %s %s [%s, %s%s]\n", p.note.Sprint("fix:"), fix.Title, fix.Kind, fix.Applicability, preferred)
	if !opts.ShowPreview {
		return
	}
	for _, edit := range fix.Edits {
		preview, err := buildFixEditPreview(fs, edit)
		if err != nil {
			continue
		}
		for _, line := range preview.before {
			fmt.Fprintf(w, "    %s\n", p.removed.Sprint("- "+displayLine(line)))
		}
		for _, line := range preview.after {
			fmt.Fprintf(w, "    %s\n", p.added.Sprint("+ "+displayLine(line)))
		}
	}
}

// Short writes one line per diagnostic in the golden format.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts ShortOpts) error {
	items := bag.Items()
	ptrs := make([]*diag.Diagnostic, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	out := diag.FormatShortDiagnostics(ptrs, fs, opts.IncludeNotes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

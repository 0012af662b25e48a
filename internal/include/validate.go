package include

import (
	"path/filepath"
	"strings"

	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

const (
	msgNotXML              = "The specified resource is not an XML file. If it is a directory, it must end with a trailing slash."
	msgImplicitNotOptional = "The specified resource cannot be skipped. Check location value or add optional attribute."
	msgNotOptional         = "The specified resource cannot be skipped. Check location value or set optional to true."
	msgMissingFile         = "The resource at the specified location could not be found."
	msgIsFileNotDir        = "Path specified a directory, but resource exists as a file. Please remove the trailing slash."
	msgIsDirNotFile        = "Path specified a file, but resource exists as a directory. Please add a trailing slash."
)

// Options carries what validation needs besides the document.
type Options struct {
	// BaseDir is the directory relative locations resolve against.
	BaseDir string
	// SharedConfigDir backs ${shared.config.dir}; empty leaves it undefined.
	SharedConfigDir string
	FS              FileSystem
}

// Validate checks every include of doc and reports through r in document
// order.
func Validate(doc *xmldoc.Document, opts Options, r diag.Reporter) {
	if doc == nil || doc.File == nil {
		return
	}
	if opts.FS == nil {
		opts.FS = OSFileSystem{}
	}
	vars := opts.Variables(doc)
	for _, ref := range References(doc) {
		Check(doc.File, ref, vars, opts, r)
	}
}

// Variables returns the document variables together with the predefined
// configuration directories, which take precedence.
func (o Options) Variables(doc *xmldoc.Document) map[string]string {
	vars := Variables(doc)
	vars["server.config.dir"] = o.BaseDir
	if o.SharedConfigDir != "" {
		vars["shared.config.dir"] = o.SharedConfigDir
	}
	return vars
}

// Check applies the include rules to one reference. The first matching rule
// wins, except that a missing target reports both its optionality problem
// and the missing file.
func Check(file *source.File, ref Reference, vars map[string]string, opts Options, r diag.Reporter) {
	attr := ref.LocationAttr
	if attr == nil || strings.TrimSpace(ref.Location) == "" {
		return
	}
	location := strings.TrimSpace(ref.Location)
	dirForm := hasTrailingSeparator(location)

	if !dirForm && !isXML(location) {
		diag.ReportError(r, diag.IncNotXMLOrDir, attr.Span, msgNotXML).Emit()
		return
	}

	expanded, ok := Expand(location, vars)
	if !ok || IsRemote(expanded) {
		return
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	path := Resolve(expanded, opts.BaseDir, fsys)
	info, err := fsys.Stat(path)
	if err != nil {
		switch ref.Optional {
		case OptionalTrue:
			return
		case OptionalAbsent:
			diag.ReportError(r, diag.IncImplicitNotOptional, attr.Span, msgImplicitNotOptional).
				WithFix(addOptional(ref)).
				Emit()
		case OptionalFalse:
			diag.ReportError(r, diag.IncNotOptional, ref.OptionalAttr.Span, msgNotOptional).
				WithFix(setOptional(file, ref)).
				Emit()
		}
		diag.ReportError(r, diag.IncMissingFile, attr.Span, msgMissingFile).
			WithNote(attr.ValueSpan, "resolved to "+filepath.ToSlash(path)).
			Emit()
		return
	}

	switch {
	case dirForm && !info.IsDir():
		toggled := strings.TrimRight(location, `/\`)
		diag.ReportError(r, diag.IncIsFileNotDir, attr.Span, msgIsFileNotDir).
			WithFix(replaceLocation(file, attr, "Remove trailing slash", toggled)).
			Emit()
	case !dirForm && info.IsDir():
		toggled := location + string(separatorOf(location))
		diag.ReportError(r, diag.IncIsDirNotFile, attr.Span, msgIsDirNotFile).
			WithFix(replaceLocation(file, attr, "Add trailing slash", toggled)).
			Emit()
	}
}

// separatorOf returns the separator the author used, preferring the last
// one written; a location without any separator gets '/'.
func separatorOf(location string) byte {
	if i := strings.LastIndexAny(location, `/\`); i >= 0 {
		return location[i]
	}
	return '/'
}

func quoteOf(a *xmldoc.Attr) string {
	if a.Quote == '\'' {
		return "'"
	}
	return `"`
}

func replaceLocation(file *source.File, attr *xmldoc.Attr, title, location string) diag.Fix {
	q := quoteOf(attr)
	return fix.ReplaceSpan(title, attr.Span, "location="+q+location+q, slice(file, attr.Span), fix.Preferred())
}

func addOptional(ref Reference) diag.Fix {
	attr := ref.LocationAttr
	q := quoteOf(attr)
	at := attr.Span.At(attr.Span.End)
	return fix.InsertText("Add optional=\"true\"", at, " optional="+q+"true"+q, "",
		fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics))
}

func setOptional(file *source.File, ref Reference) diag.Fix {
	attr := ref.OptionalAttr
	q := quoteOf(attr)
	return fix.ReplaceSpan("Set optional to true", attr.Span, "optional="+q+"true"+q, slice(file, attr.Span),
		fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics))
}

func slice(file *source.File, sp source.Span) string {
	if file == nil {
		return ""
	}
	return file.Slice(sp)
}

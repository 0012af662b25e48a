package diagnose

import (
	"libertyls/internal/catalog"
	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/xmldoc"
)

const msgMissingFeature = "ERROR: This config element does not relate to a feature configured in the featureManager. Remove this element or add a relevant feature."

// configElements flags top-level config elements whose enabling feature is
// not reachable from the declared features and platforms. Nothing is
// reported without a featureManager or without a catalog.
func (e *engine) configElements() {
	root := e.doc.Root
	managers := e.doc.FindAll(featureManager)
	if root == nil || len(managers) == 0 || e.opts.Catalog.IsEmpty() {
		return
	}
	var declared []string
	for _, d := range e.documentDeclarations("feature") {
		declared = append(declared, d.name)
	}
	for _, d := range e.documentDeclarations("platform") {
		declared = append(declared, d.name)
	}
	for _, el := range root.Children {
		required := e.opts.Catalog.Requirements(el.Name)
		if len(required) == 0 {
			continue
		}
		e.guard(el, "config", func() {
			if e.opts.Graph.ReachableAny(declared, required) {
				return
			}
			span := trimRight(e.doc.File, el.Span)
			diag.ReportError(e.r, diag.FeatMissingConfiguredFeature, span, msgMissingFeature).
				WithFix(e.addFeatureFixes(managers[0], required)...).
				Emit()
		})
	}
}

// addFeatureFixes proposes one new <feature> line per satisfying feature,
// inserted after the last child of fm with that child's indentation.
func (e *engine) addFeatureFixes(fm *xmldoc.Element, required []string) []diag.Fix {
	if fm.SelfClosing {
		return nil
	}
	file := e.doc.File
	var at uint32
	var indent string
	if last := fm.LastChild(); last != nil {
		at = trimRight(file, last.Span).End
		indent = file.Indent(last.Span.Start)
	} else {
		at = fm.StartTag.End
		indent = file.Indent(fm.Span.Start) + "    "
	}
	names := append([]string(nil), required...)
	catalog.SortNames(names)
	fixes := make([]diag.Fix, 0, len(names))
	for _, n := range names {
		text := file.Newline() + indent + "<feature>" + n + "</feature>"
		fixes = append(fixes, fix.InsertText("Add feature "+n, fm.Span.At(at), text, ""))
	}
	return fixes
}

package diagnose

import (
	"fmt"
	"strings"

	"libertyls/internal/catalog"
	"libertyls/internal/conflict"
	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

// declaration is one trimmed <feature> or <platform> value.
type declaration struct {
	el   *xmldoc.Element
	name string
	span source.Span
}

func (e *engine) declarations(fm *xmldoc.Element, kind string) []declaration {
	var out []declaration
	for _, el := range fm.ChildrenNamed(kind) {
		name, span := e.doc.TrimmedText(el)
		if name == "" {
			continue
		}
		out = append(out, declaration{el: el, name: name, span: span})
	}
	return out
}

// documentDeclarations returns every declaration of kind in the document.
func (e *engine) documentDeclarations(kind string) []declaration {
	var out []declaration
	for _, fm := range e.doc.FindAll(featureManager) {
		out = append(out, e.declarations(fm, kind)...)
	}
	return out
}

func (e *engine) featureManager(fm *xmldoc.Element) {
	features := e.declarations(fm, "feature")
	allFeatures := e.documentDeclarations("feature")
	seen := make(map[string]bool, len(features))
	var earlier []string
	for _, d := range features {
		e.guard(d.el, "feature", func() {
			e.checkFeature(d, seen, earlier, allFeatures)
		})
		seen[catalog.Key(d.name)] = true
		earlier = append(earlier, d.name)
	}

	platforms := e.declarations(fm, "platform")
	allPlatforms := e.documentDeclarations("platform")
	seen = make(map[string]bool, len(platforms))
	earlier = earlier[:0]
	for _, d := range platforms {
		e.guard(d.el, "platform", func() {
			e.checkPlatform(d, seen, earlier, allPlatforms)
		})
		seen[catalog.Key(d.name)] = true
		earlier = append(earlier, d.name)
	}
}

func (e *engine) checkFeature(d declaration, seen map[string]bool, earlier []string, all []declaration) {
	cat := e.opts.Catalog
	if !cat.IsEmpty() {
		if _, ok := cat.Lookup(d.name); !ok {
			msg := fmt.Sprintf("ERROR: The feature \"%s\" does not exist.", d.name)
			diag.ReportError(e.r, diag.FeatIncorrectFeature, d.span, msg).
				WithFix(e.replacements(d, cat.AllShortNames(), e.opts.Features, e.knownOthers(d, all, true), "feature")...).
				Emit()
		}
	}

	if seen[catalog.Key(d.name)] {
		e.duplicate(d, diag.FeatDuplicateFeature)
		return
	}
	if _, ok := e.opts.Features.Conflicts(d.name, earlier); ok {
		msg := fmt.Sprintf("ERROR: More than one version of feature %s is included. Only one version of a feature may be specified.",
			baseOf(d.name))
		diag.ReportError(e.r, diag.FeatVersionConflict, d.span, msg).Emit()
	}
}

func (e *engine) checkPlatform(d declaration, seen map[string]bool, earlier []string, all []declaration) {
	cat := e.opts.Catalog
	if !cat.IsEmpty() {
		if _, ok := cat.LookupPlatform(d.name); !ok {
			msg := fmt.Sprintf("ERROR: The platform \"%s\" does not exist.", d.name)
			diag.ReportError(e.r, diag.FeatIncorrectPlatform, d.span, msg).
				WithFix(e.replacements(d, cat.AllPlatformNames(), e.opts.Platforms, e.knownOthers(d, all, false), "platform")...).
				Emit()
		}
	}

	if seen[catalog.Key(d.name)] {
		e.duplicate(d, diag.FeatDuplicatePlatform)
		return
	}
	c, ok := e.opts.Platforms.Conflicts(d.name, earlier)
	switch {
	case !ok:
	case c.Family:
		msg := fmt.Sprintf("ERROR: The platform %s cannot be combined with the platform %s.", d.name, c.With)
		diag.ReportError(e.r, diag.FeatPlatformFamilyConflict, d.span, msg).Emit()
	default:
		msg := fmt.Sprintf("ERROR: More than one version of platform %s is included. Only one version of a platform may be specified.",
			baseOf(d.name))
		diag.ReportError(e.r, diag.FeatPlatformVersionConflict, d.span, msg).Emit()
	}
}

func (e *engine) duplicate(d declaration, code diag.Code) {
	msg := fmt.Sprintf("ERROR: %s is already included.", d.name)
	remove := fix.DeleteLine("Remove duplicate "+d.el.Name, e.doc.File, trimRight(e.doc.File, d.el.Span), fix.Preferred())
	diag.ReportError(e.r, code, d.span, msg).WithFix(remove).Emit()
}

// knownOthers returns the declarations other than d that the catalog
// recognises. Unknown names carry no version information worth excluding.
func (e *engine) knownOthers(d declaration, all []declaration, feature bool) []string {
	var out []string
	for _, o := range all {
		if o.el == d.el {
			continue
		}
		var ok bool
		if feature {
			_, ok = e.opts.Catalog.Lookup(o.name)
		} else {
			_, ok = e.opts.Catalog.LookupPlatform(o.name)
		}
		if ok {
			out = append(out, o.name)
		}
	}
	return out
}

// replacements proposes catalog names starting with the typed text, minus
// names that are already declared or conflict with a declaration.
func (e *engine) replacements(d declaration, names []string, r *conflict.Resolver, others []string, kind string) []diag.Fix {
	prefix := catalog.Key(d.name)
	excluded := r.Excluded(others)
	var picked []string
	for _, n := range names {
		if !strings.HasPrefix(catalog.Key(n), prefix) || excluded.Excludes(n) {
			continue
		}
		picked = append(picked, n)
	}
	catalog.SortNames(picked)
	fixes := make([]diag.Fix, 0, len(picked))
	for _, n := range picked {
		title := fmt.Sprintf("Replace %s with %s", kind, n)
		fixes = append(fixes, fix.ReplaceSpan(title, d.span, n, d.name,
			fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics)))
	}
	return fixes
}

// trimRight drops trailing whitespace from sp, which matters for elements
// left unclosed at the end of the file.
func trimRight(file *source.File, sp source.Span) source.Span {
	for sp.End > sp.Start {
		c := file.Content[sp.End-1]
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			break
		}
		sp.End--
	}
	return sp
}

func baseOf(name string) string {
	base, _ := catalog.SplitName(name)
	return base
}

// Package diagnose runs the server.xml rules over a parsed document.
//
// Rules are evaluated per element and independently: one cause may surface
// more than one diagnostic, and a failure while evaluating one element only
// drops that element's diagnostics.
package diagnose

import (
	"context"
	"fmt"
	"strconv"

	"libertyls/internal/catalog"
	"libertyls/internal/catalog/graph"
	"libertyls/internal/conflict"
	"libertyls/internal/diag"
	"libertyls/internal/include"
	"libertyls/internal/source"
	"libertyls/internal/trace"
	"libertyls/internal/xmldoc"
)

const featureManager = "featureManager"

// Options configures a diagnostic pass.
type Options struct {
	Catalog *catalog.Catalog
	// Graph is built from Catalog when nil.
	Graph *graph.Graph
	// Include is passed to the include validator.
	Include include.Options
	// Max caps the number of diagnostics; zero means unlimited.
	Max int
	// Features and Platforms default to conflict.ForFeatures and
	// conflict.ForPlatforms.
	Features  *conflict.Resolver
	Platforms *conflict.Resolver
}

type engine struct {
	ctx  context.Context
	doc  *xmldoc.Document
	opts Options
	r    diag.Reporter
}

// Run diagnoses doc and returns the diagnostics ordered by start offset.
func Run(ctx context.Context, doc *xmldoc.Document, opts Options) []diag.Diagnostic {
	bag := diag.NewBag(opts.Max)
	Report(ctx, doc, opts, diag.BagReporter{Bag: bag})
	bag.Sort()
	return bag.Items()
}

// Report diagnoses doc and emits through r in rule order.
func Report(ctx context.Context, doc *xmldoc.Document, opts Options, r diag.Reporter) {
	if doc == nil || doc.File == nil {
		return
	}
	ctx, span := trace.Start(ctx, trace.ScopeDocument, "diagnose")
	span.WithExtra("path", doc.File.Path)
	if opts.Catalog == nil {
		opts.Catalog = catalog.Empty()
	}
	if opts.Graph == nil {
		opts.Graph = graph.Build(opts.Catalog)
	}
	if opts.Features == nil {
		opts.Features = conflict.ForFeatures()
	}
	if opts.Platforms == nil {
		opts.Platforms = conflict.ForPlatforms()
	}

	counter := &countingReporter{next: r}
	e := &engine{ctx: ctx, doc: doc, opts: opts, r: diag.NewDedupReporter(counter)}
	for _, fm := range doc.FindAll(featureManager) {
		e.featureManager(fm)
	}
	e.configElements()
	e.includes()
	span.End(strconv.Itoa(counter.n) + " diagnostics")
}

// guard runs fn for el and turns a panic into a trace error.
func (e *engine) guard(el *xmldoc.Element, rule string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			detail := fmt.Sprintf("%s at %s: %v", rule, el.Span, p)
			trace.Error(trace.FromContext(e.ctx), trace.ScopeElement, "diagnose.panic", detail)
		}
	}()
	fn()
}

func (e *engine) includes() {
	vars := e.opts.Include.Variables(e.doc)
	for _, ref := range include.References(e.doc) {
		e.guard(ref.Element, "include", func() {
			include.Check(e.doc.File, ref, vars, e.opts.Include, e.r)
		})
	}
}

type countingReporter struct {
	next diag.Reporter
	n    int
}

func (c *countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	c.n++
	c.next.Report(code, sev, primary, msg, notes, fixes)
}

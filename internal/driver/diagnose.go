// Package driver runs diagnostics over server.xml files on disk for the
// command line.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"libertyls/internal/catalog"
	"libertyls/internal/catalog/graph"
	"libertyls/internal/diag"
	"libertyls/internal/diagnose"
	"libertyls/internal/include"
	"libertyls/internal/observ"
	"libertyls/internal/source"
	"libertyls/internal/trace"
	"libertyls/internal/workspace"
	"libertyls/internal/xmldoc"
)

// Options configures a diagnostic run.
type Options struct {
	// Registry maps files to workspace catalogs. Nil uses a registry with
	// no folders, so every file gets a workspace rooted at its directory.
	Registry *workspace.Registry
	// Catalog overrides workspace discovery when set.
	Catalog *catalog.Catalog
	// MaxDiagnostics caps each file's bag; zero defers to the manifest.
	MaxDiagnostics int
	FS             include.FileSystem
	// Timer, when set, records a load phase and one phase per file.
	Timer *observ.Timer
}

// Result is the outcome for one file.
type Result struct {
	Path   string
	FileID source.FileID
	Doc    *xmldoc.Document
	Bag    *diag.Bag
	// Source names the catalog the file was checked against.
	Source string
	// Err is set when the file could not be read; Bag is then empty.
	Err error
}

func (o *Options) registry() *workspace.Registry {
	if o.Registry == nil {
		o.Registry = workspace.NewRegistry(nil)
	}
	return o.Registry
}

// Diagnose loads path into fs and runs every rule over it.
func Diagnose(ctx context.Context, fs *source.FileSet, path string, opts Options) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, err
	}
	id, err := fs.Load(abs)
	if err != nil {
		return Result{}, fmt.Errorf("load %s: %w", path, err)
	}
	return diagnoseLoaded(ctx, fs, abs, id, opts), nil
}

func diagnoseLoaded(ctx context.Context, fs *source.FileSet, path string, id source.FileID, opts Options) Result {
	ctx, span := trace.Start(ctx, trace.ScopeRequest, "driver.file")
	span.WithExtra("path", path)
	phase := opts.Timer.Begin("diagnose " + filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path))

	doc := xmldoc.Parse(fs.Get(id))
	ws := opts.registry().For(workspace.PathToURI(path))
	cat, src, limit := opts.Catalog, "flag", opts.MaxDiagnostics
	var g *graph.Graph
	if cat == nil {
		snap := ws.Snapshot(ctx)
		cat, src, g = snap.Catalog, snap.Source, snap.Graph()
		if limit == 0 {
			limit = snap.Config.Diagnostics.Max
		}
	}

	bag := diag.NewBag(limit)
	diagnose.Report(ctx, doc, diagnose.Options{
		Catalog: cat,
		Graph:   g,
		Include: include.Options{
			BaseDir:         filepath.Dir(path),
			SharedConfigDir: ws.SharedConfigDir(),
			FS:              opts.FS,
		},
	}, diag.BagReporter{Bag: bag})
	bag.Sort()
	summary := strconv.Itoa(bag.Len()) + " diagnostics"
	opts.Timer.End(phase, summary)
	span.End(summary)
	return Result{Path: path, FileID: id, Doc: doc, Bag: bag, Source: src}
}

package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"libertyls/internal/catalog"
	"libertyls/internal/catalog/graph"
	"libertyls/internal/project"
	"libertyls/internal/trace"
)

// CatalogDir is the per-project directory searched for a feature list.
const CatalogDir = ".libertyls"

// DefaultSource names the bundled catalog in Snapshot.Source.
const DefaultSource = "default"

// Snapshot is an immutable view of a workspace's catalog and settings.
type Snapshot struct {
	Catalog *catalog.Catalog
	// Source is the catalog path, or DefaultSource.
	Source string
	Config project.Config
	// Err records why the project catalog or manifest could not be used.
	Err error

	graphOnce sync.Once
	graph     *graph.Graph
}

// Graph returns the dependency graph, building it on first use.
func (s *Snapshot) Graph() *graph.Graph {
	s.graphOnce.Do(func() {
		s.graph = graph.Build(s.Catalog)
	})
	return s.graph
}

// Workspace owns the catalog snapshot of one root directory.
type Workspace struct {
	Root string
	// Detached is set for workspaces created for documents outside every
	// registered folder.
	Detached bool

	shared *catalog.Shared
	cache  *catalog.DiskCache

	loadMu sync.Mutex
	snap   atomic.Pointer[Snapshot]
}

func newWorkspace(root string, detached bool, shared *catalog.Shared, cache *catalog.DiskCache) *Workspace {
	return &Workspace{Root: root, Detached: detached, shared: shared, cache: cache}
}

// Snapshot returns the current snapshot, loading it on first use.
func (w *Workspace) Snapshot(ctx context.Context) *Snapshot {
	if s := w.snap.Load(); s != nil {
		return s
	}
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if s := w.snap.Load(); s != nil {
		return s
	}
	s := w.discover(ctx)
	w.snap.Store(s)
	return s
}

// SharedConfigDir backs ${shared.config.dir}: <root>/shared/config for
// registered folders, empty for detached workspaces.
func (w *Workspace) SharedConfigDir() string {
	if w == nil || w.Detached {
		return ""
	}
	return filepath.Join(w.Root, "shared", "config")
}

// Loaded reports whether a snapshot exists.
func (w *Workspace) Loaded() bool {
	return w.snap.Load() != nil
}

// Reload runs discovery again. When it fails and the current snapshot was
// loaded cleanly, that snapshot's catalog is kept; the error is returned
// either way.
func (w *Workspace) Reload(ctx context.Context) (*Snapshot, error) {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	s := w.discover(ctx)
	if prev := w.snap.Load(); s.Err != nil && prev != nil && prev.Err == nil {
		// keep serving the last good catalog
		s = &Snapshot{Catalog: prev.Catalog, Source: prev.Source, Config: s.Config, Err: s.Err}
	}
	w.snap.Store(s)
	return s, s.Err
}

// LoadCatalog replaces the catalog with the one at path. On failure the
// previous snapshot stays in place and the error is returned.
func (w *Workspace) LoadCatalog(ctx context.Context, path string) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	cfg := w.config()
	cat, err := w.load(ctx, path, cfg.Catalog.Cache)
	if err != nil {
		return err
	}
	w.snap.Store(&Snapshot{Catalog: cat, Source: path, Config: cfg})
	return nil
}

func (w *Workspace) config() project.Config {
	if s := w.snap.Load(); s != nil {
		return s.Config
	}
	return project.DefaultConfig()
}

// discover finds the catalog for the root: the [catalog] path of the
// nearest manifest, then the first feature list in CatalogDir next to it,
// then the shared default.
func (w *Workspace) discover(ctx context.Context) *Snapshot {
	cfg := project.DefaultConfig()
	var cfgErr error
	catalogPath := ""
	searchRoot := w.Root
	m, ok, err := project.LoadManifest(w.Root)
	switch {
	case err != nil:
		cfgErr = err
	case ok:
		cfg = m.Config
		catalogPath = m.CatalogPath()
		searchRoot = m.Root
	}
	if catalogPath == "" {
		catalogPath = findCatalogFile(filepath.Join(searchRoot, CatalogDir))
	}

	if catalogPath != "" {
		cat, err := w.load(ctx, catalogPath, cfg.Catalog.Cache)
		if err == nil {
			return &Snapshot{Catalog: cat, Source: catalogPath, Config: cfg, Err: cfgErr}
		}
		cfgErr = errors.Join(cfgErr, err)
	}

	cat, err := w.shared.Get()
	if err != nil {
		cfgErr = errors.Join(cfgErr, fmt.Errorf("default catalog: %w", err))
	}
	return &Snapshot{Catalog: cat, Source: DefaultSource, Config: cfg, Err: cfgErr}
}

func (w *Workspace) load(ctx context.Context, path string, useCache bool) (*catalog.Catalog, error) {
	_, span := trace.Start(ctx, trace.ScopeServer, "catalog.load")
	span.WithExtra("path", path)
	var cache *catalog.DiskCache
	if useCache {
		cache = w.cache
	}
	cat, err := catalog.LoadCached(path, cache)
	if err != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeServer, "catalog.load", err.Error())
		span.End("failed")
		return nil, err
	}
	span.End(fmt.Sprintf("%d features", cat.Len()))
	return cat, nil
}

// findCatalogFile returns the first featurelist* file with a known catalog
// extension in dir.
func findCatalogFile(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "featurelist*"))
	if err != nil {
		return ""
	}
	sort.Strings(matches)
	for _, m := range matches {
		if _, ok := catalog.FormatForPath(m); ok {
			return m
		}
	}
	return ""
}

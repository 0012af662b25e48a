// Package workspace maps documents to workspace roots and keeps one catalog
// snapshot per root.
package workspace

import (
	"path/filepath"
	"sort"
	"sync"

	"libertyls/internal/catalog"
	"libertyls/internal/project"
)

// Registry holds the workspace folders announced by the editor.
type Registry struct {
	shared *catalog.Shared
	cache  *catalog.DiskCache

	mu       sync.RWMutex
	folders  map[string]*Workspace
	detached map[string]*Workspace
}

// Option configures a Registry.
type Option func(*Registry)

// WithDiskCache enables the decoded-catalog cache.
func WithDiskCache(c *catalog.DiskCache) Option {
	return func(r *Registry) { r.cache = c }
}

// NewRegistry creates an empty registry. A nil shared uses the bundled
// default catalog.
func NewRegistry(shared *catalog.Shared, opts ...Option) *Registry {
	if shared == nil {
		shared = catalog.NewShared(nil)
	}
	r := &Registry{
		shared:   shared,
		folders:  make(map[string]*Workspace),
		detached: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Shared returns the default catalog handle.
func (r *Registry) Shared() *catalog.Shared {
	return r.shared
}

// SetFolders replaces the folder list. Workspaces whose root is kept retain
// their snapshot.
func (r *Registry) SetFolders(uris []string) error {
	roots := make([]string, 0, len(uris))
	for _, uri := range uris {
		root, err := URIToPath(uri)
		if err != nil {
			return err
		}
		roots = append(roots, root)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]*Workspace, len(roots))
	for _, root := range roots {
		if ws, ok := r.folders[root]; ok {
			next[root] = ws
			continue
		}
		next[root] = newWorkspace(root, false, r.shared, r.cache)
	}
	r.folders = next
	r.detached = make(map[string]*Workspace)
	return nil
}

// AddFolder registers one folder.
func (r *Registry) AddFolder(uri string) error {
	root, err := URIToPath(uri)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[root]; !ok {
		r.folders[root] = newWorkspace(root, false, r.shared, r.cache)
		// documents inside the new root stop being detached
		for dir := range r.detached {
			if project.Within(root, dir) {
				delete(r.detached, dir)
			}
		}
	}
	return nil
}

// RemoveFolder forgets one folder.
func (r *Registry) RemoveFolder(uri string) error {
	root, err := URIToPath(uri)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.folders, root)
	return nil
}

// Folders returns the registered roots, sorted.
func (r *Registry) Folders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.folders))
	for root := range r.folders {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

// Workspaces returns every registered and detached workspace.
func (r *Registry) Workspaces() []*Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workspace, 0, len(r.folders)+len(r.detached))
	for _, ws := range r.folders {
		out = append(out, ws)
	}
	for _, ws := range r.detached {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

// For returns the workspace owning documentURI: the registered root that
// contains it with the longest path, or a detached workspace rooted at the
// document directory.
func (r *Registry) For(documentURI string) *Workspace {
	path, err := URIToPath(documentURI)
	if err != nil {
		path = documentURI
	}
	r.mu.RLock()
	var best *Workspace
	for root, ws := range r.folders {
		if project.Within(root, path) && (best == nil || len(root) > len(best.Root)) {
			best = ws
		}
	}
	r.mu.RUnlock()
	if best != nil {
		return best
	}

	dir := filepath.Dir(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.detached[dir]; ok {
		return ws
	}
	ws := newWorkspace(dir, true, r.shared, r.cache)
	r.detached[dir] = ws
	return ws
}

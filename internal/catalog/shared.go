package catalog

import "sync"

// Shared is a lazily populated catalog handle shared by every workspace
// without a project catalog. The loader runs at most once; concurrent first
// callers block until it finishes and then see the same result.
type Shared struct {
	load func() (*Catalog, error)

	mu   sync.Mutex
	done bool
	cat  *Catalog
	err  error
}

// NewShared wraps load. A nil load uses the bundled default catalog.
func NewShared(load func() (*Catalog, error)) *Shared {
	if load == nil {
		load = Default
	}
	return &Shared{load: load}
}

// Get returns the shared catalog. When loading failed the error is returned
// with an empty catalog, so callers can keep serving requests.
func (s *Shared) Get() (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.cat, s.err = s.load()
		if s.cat == nil {
			s.cat = Empty()
		}
		s.done = true
	}
	return s.cat, s.err
}

// Loaded reports whether Get has already populated the handle.
func (s *Shared) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

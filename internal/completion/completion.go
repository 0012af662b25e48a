// Package completion proposes <feature> and <platform> values.
package completion

import (
	"fmt"
	"strings"

	"libertyls/internal/catalog"
	"libertyls/internal/conflict"
	"libertyls/internal/source"
)

// Kind selects the namespace a completion draws from.
type Kind uint8

const (
	KindNone Kind = iota
	KindFeature
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindFeature:
		return "feature"
	case KindPlatform:
		return "platform"
	default:
		return "none"
	}
}

// Match selects how the typed prefix is compared with candidate names.
type Match uint8

const (
	MatchPrefix Match = iota
	MatchSubstring
)

// ParseMatch maps a configuration value to a Match. Empty means prefix.
func ParseMatch(s string) (Match, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prefix":
		return MatchPrefix, nil
	case "substring":
		return MatchSubstring, nil
	default:
		return MatchPrefix, fmt.Errorf("unknown completion match mode %q", s)
	}
}

func (m Match) String() string {
	if m == MatchSubstring {
		return "substring"
	}
	return "prefix"
}

// Context is what the user is completing.
type Context struct {
	Kind     Kind
	Prefix   string
	Declared []string    // other declarations of the same kind
	Span     source.Span // text the chosen candidate replaces
}

// Candidate is one proposal.
type Candidate struct {
	Label      string
	InsertText string
	Detail     string
	Span       source.Span
}

// Engine computes completions against one catalog.
type Engine struct {
	cat       *catalog.Catalog
	match     Match
	features  *conflict.Resolver
	platforms *conflict.Resolver
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatch sets the match mode.
func WithMatch(m Match) Option {
	return func(e *Engine) { e.match = m }
}

// WithPlatformRules replaces the cross-family rule table for platforms.
func WithPlatformRules(rules []conflict.Rule) Option {
	return func(e *Engine) { e.platforms = conflict.NewResolver(rules) }
}

// New creates an engine.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		cat:       cat,
		features:  conflict.ForFeatures(),
		platforms: conflict.ForPlatforms(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Complete returns the candidates for ctx sorted alphabetically. A name
// identical to a declared one is offered again even though its base is
// excluded.
func (e *Engine) Complete(ctx Context) []Candidate {
	var names []string
	var resolver *conflict.Resolver
	switch ctx.Kind {
	case KindFeature:
		names = e.cat.AllShortNames()
		resolver = e.features
	case KindPlatform:
		names = e.cat.AllPlatformNames()
		resolver = e.platforms
	default:
		return nil
	}
	prefix := catalog.Key(ctx.Prefix)
	excluded := resolver.Excluded(ctx.Declared)

	var picked []string
	for _, name := range names {
		if !e.matches(catalog.Key(name), prefix) {
			continue
		}
		if excluded.Excludes(name) && !excluded.Declared(name) {
			continue
		}
		picked = append(picked, name)
	}
	catalog.SortNames(picked)

	out := make([]Candidate, 0, len(picked))
	for _, name := range picked {
		out = append(out, Candidate{
			Label:      name,
			InsertText: name,
			Detail:     e.detail(ctx.Kind, name),
			Span:       ctx.Span,
		})
	}
	return out
}

func (e *Engine) matches(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	if e.match == MatchSubstring {
		return strings.Contains(key, prefix)
	}
	return strings.HasPrefix(key, prefix)
}

func (e *Engine) detail(kind Kind, name string) string {
	if kind == KindPlatform {
		return fmt.Sprintf("platform, %d features", len(e.cat.Members(name)))
	}
	f, ok := e.cat.Lookup(name)
	if ok && f.Description != "" {
		return f.Description
	}
	versions := e.cat.Versions(name)
	if len(versions) < 2 {
		return ""
	}
	vs := make([]string, 0, len(versions))
	for _, v := range versions {
		vs = append(vs, v.Version())
	}
	return "versions: " + strings.Join(vs, ", ")
}

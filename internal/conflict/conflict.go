// Package conflict decides which feature or platform names are excluded by
// what a document already declares: other versions of a declared base name,
// and families that a configured rule marks as mutually exclusive.
package conflict

import (
	"strings"

	"libertyls/internal/catalog"
)

// Rule marks two families as mutually exclusive.
type Rule struct {
	A, B string
}

// PlatformRules is the product rule table: Java EE and Jakarta EE cannot be
// combined, MicroProfile is independent.
var PlatformRules = []Rule{{A: "javaee", B: "jakartaee"}}

// Resolver computes exclusions. The zero value applies only the same-base
// version rule.
type Resolver struct {
	partners map[string][]string
}

// NewResolver builds a resolver with cross-family rules.
func NewResolver(rules []Rule) *Resolver {
	r := &Resolver{partners: make(map[string][]string)}
	for _, rule := range rules {
		a, b := catalog.Key(rule.A), catalog.Key(rule.B)
		if a == "" || b == "" || a == b {
			continue
		}
		r.partners[a] = append(r.partners[a], b)
		r.partners[b] = append(r.partners[b], a)
	}
	return r
}

// ForFeatures returns the resolver used for <feature> names.
func ForFeatures() *Resolver {
	return NewResolver(nil)
}

// ForPlatforms returns the resolver used for <platform> names.
func ForPlatforms() *Resolver {
	return NewResolver(PlatformRules)
}

// Set is an exclusion set over lower-cased base names.
type Set struct {
	bases    map[string]struct{}
	prefixes []string
	exact    map[string]struct{}
}

// Excluded computes the exclusion set for declared. A declared name without
// a version excludes every base name it is a prefix of.
func (r *Resolver) Excluded(declared []string) Set {
	s := Set{
		bases: make(map[string]struct{}),
		exact: make(map[string]struct{}),
	}
	for _, d := range declared {
		key := catalog.Key(d)
		if key == "" {
			continue
		}
		s.exact[key] = struct{}{}
		base, version := catalog.SplitName(key)
		if base == "" {
			continue
		}
		if version == "" {
			s.prefixes = append(s.prefixes, base)
			continue
		}
		s.bases[base] = struct{}{}
		if r != nil {
			for _, p := range r.partners[base] {
				s.bases[p] = struct{}{}
			}
		}
	}
	return s
}

// Excludes reports whether name falls in the set.
func (s Set) Excludes(name string) bool {
	base := catalog.BaseKey(name)
	if _, ok := s.bases[base]; ok {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

// Declared reports whether name itself was declared, ignoring case.
func (s Set) Declared(name string) bool {
	_, ok := s.exact[catalog.Key(name)]
	return ok
}

// Bases returns the excluded base names; order is unspecified.
func (s Set) Bases() []string {
	out := make([]string, 0, len(s.bases))
	for b := range s.bases {
		out = append(out, b)
	}
	return out
}

// Conflict describes why two declarations cannot coexist.
type Conflict struct {
	With   string // the earlier declaration
	Family bool   // true when a cross-family rule matched
}

// Conflicts returns the first entry of declared that conflicts with name:
// a different version of the same base, or a family excluded by a rule.
// Identical names never conflict; that is a duplicate, not a conflict.
func (r *Resolver) Conflicts(name string, declared []string) (Conflict, bool) {
	key := catalog.Key(name)
	base, version := catalog.SplitName(key)
	if version == "" {
		return Conflict{}, false
	}
	for _, d := range declared {
		dk := catalog.Key(d)
		if dk == key {
			continue
		}
		dBase, dVersion := catalog.SplitName(dk)
		if dVersion == "" {
			continue
		}
		if dBase == base {
			return Conflict{With: strings.TrimSpace(d)}, true
		}
		if r != nil {
			for _, p := range r.partners[base] {
				if p == dBase {
					return Conflict{With: strings.TrimSpace(d), Family: true}, true
				}
			}
		}
	}
	return Conflict{}, false
}

package catalog

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Catalog is an immutable feature table.
type Catalog struct {
	features     []Feature
	byKey        map[string]int
	platforms    []string
	platformKey  map[string]string
	requirements map[string][]string
}

// New builds a catalog. Features are deduplicated by case-insensitive short
// name; the first record wins. Records with an empty short name are dropped.
func New(features []Feature, requirements map[string][]string) *Catalog {
	c := &Catalog{
		features:     make([]Feature, 0, len(features)),
		byKey:        make(map[string]int, len(features)),
		platformKey:  make(map[string]string),
		requirements: make(map[string][]string, len(requirements)),
	}
	for _, f := range features {
		f.ShortName = strings.TrimSpace(f.ShortName)
		k := Key(f.ShortName)
		if k == "" {
			continue
		}
		if _, dup := c.byKey[k]; dup {
			continue
		}
		c.byKey[k] = len(c.features)
		c.features = append(c.features, f)
		for _, p := range f.Platforms {
			p = strings.TrimSpace(p)
			pk := Key(p)
			if pk == "" {
				continue
			}
			if _, seen := c.platformKey[pk]; !seen {
				c.platformKey[pk] = p
				c.platforms = append(c.platforms, p)
			}
		}
	}
	sort.Slice(c.platforms, func(i, j int) bool {
		return Key(c.platforms[i]) < Key(c.platforms[j])
	})
	for elem, names := range requirements {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		out := make([]string, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		c.requirements[elem] = out
	}
	return c
}

// Empty returns a catalog without features.
func Empty() *Catalog {
	return New(nil, nil)
}

// IsEmpty reports whether the catalog has no features.
func (c *Catalog) IsEmpty() bool {
	return c == nil || len(c.features) == 0
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}

// Lookup finds a feature by short name, ignoring case and surrounding space.
func (c *Catalog) Lookup(shortName string) (Feature, bool) {
	if c == nil {
		return Feature{}, false
	}
	i, ok := c.byKey[Key(shortName)]
	if !ok {
		return Feature{}, false
	}
	return c.features[i], true
}

// LookupPlatform returns the canonical spelling of a platform name.
func (c *Catalog) LookupPlatform(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	p, ok := c.platformKey[Key(name)]
	return p, ok
}

// Features returns the records in load order. The slice must not be modified.
func (c *Catalog) Features() []Feature {
	if c == nil {
		return nil
	}
	return c.features
}

// AllShortNames returns every feature short name sorted case-insensitively.
func (c *Catalog) AllShortNames() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.features))
	for i, f := range c.features {
		out[i] = f.ShortName
	}
	sortNames(out)
	return out
}

// AllPlatformNames returns every platform name referenced by a feature.
func (c *Catalog) AllPlatformNames() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.platforms...)
}

// Requirements returns the short names that satisfy elem, or nil when elem
// has no feature requirement.
func (c *Catalog) Requirements(elem string) []string {
	if c == nil {
		return nil
	}
	return c.requirements[elem]
}

// RequirementElements returns the element names that carry a requirement.
func (c *Catalog) RequirementElements() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.requirements))
	for e := range c.requirements {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Members returns the features that list platform among their platforms.
func (c *Catalog) Members(platform string) []string {
	if c == nil {
		return nil
	}
	pk := Key(platform)
	var out []string
	for _, f := range c.features {
		for _, p := range f.Platforms {
			if Key(p) == pk {
				out = append(out, f.ShortName)
				break
			}
		}
	}
	return out
}

// Versions returns the features sharing base, ordered by semantic version.
// Versions that do not parse sort after the ones that do.
func (c *Catalog) Versions(base string) []Feature {
	if c == nil {
		return nil
	}
	bk := BaseKey(base)
	var out []Feature
	for _, f := range c.features {
		if BaseKey(f.ShortName) == bk {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, erri := semver.NewVersion(out[i].Version())
		vj, errj := semver.NewVersion(out[j].Version())
		switch {
		case erri != nil && errj != nil:
			return Key(out[i].ShortName) < Key(out[j].ShortName)
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return vi.LessThan(vj)
	})
	return out
}

// sortNames orders names case-insensitively with the original spelling as
// tie-breaker.
func sortNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ki, kj := Key(names[i]), Key(names[j])
		if ki != kj {
			return ki < kj
		}
		return names[i] < names[j]
	})
}

// SortNames orders names the way catalog listings do.
func SortNames(names []string) {
	sortNames(names)
}

package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Feature is one catalog record.
type Feature struct {
	ShortName   string   `json:"shortName" yaml:"shortName" toml:"shortName" msgpack:"shortName"`
	Platforms   []string `json:"platforms,omitempty" yaml:"platforms,omitempty" toml:"platforms,omitempty" msgpack:"platforms,omitempty"`
	Enables     []string `json:"enables,omitempty" yaml:"enables,omitempty" toml:"enables,omitempty" msgpack:"enables,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" msgpack:"description,omitempty"`
}

// BaseName returns the short name without its version suffix.
func (f Feature) BaseName() string {
	base, _ := SplitName(f.ShortName)
	return base
}

// Version returns the version suffix of the short name, or "".
func (f Feature) Version() string {
	_, ver := SplitName(f.ShortName)
	return ver
}

// SplitName splits "jaxrs-2.1" into "jaxrs" and "2.1". Names without a
// dotted numeric suffix are returned whole with an empty version; a trailing
// "-" is dropped from the base.
func SplitName(name string) (base, version string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return name, ""
	}
	rest := name[i+1:]
	if rest == "" {
		return name[:i], ""
	}
	if isVersion(rest) {
		return name[:i], rest
	}
	return name, ""
}

func isVersion(s string) bool {
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			if digits == 0 || i == len(s)-1 {
				return false
			}
			digits = 0
		default:
			return false
		}
	}
	return digits > 0
}

// Key normalises a name for case-insensitive lookup.
func Key(name string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
}

// BaseKey returns the normalised base name of name.
func BaseKey(name string) string {
	base, _ := SplitName(norm.NFC.String(name))
	return strings.ToLower(base)
}

package include

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileSystem is the file-system surface include validation needs.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
}

// OSFileSystem reads the real file system.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

var varPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// maxExpandDepth bounds nested variable substitution.
const maxExpandDepth = 8

// Expand substitutes ${name} references, following variables whose values
// reference other variables. It reports false when a reference has no value.
func Expand(location string, vars map[string]string) (string, bool) {
	out := location
	for range maxExpandDepth {
		if !varPattern.MatchString(out) {
			return out, true
		}
		ok := true
		next := varPattern.ReplaceAllStringFunc(out, func(m string) string {
			name := strings.TrimSpace(m[2 : len(m)-1])
			v, found := vars[name]
			if !found {
				ok = false
				return m
			}
			return v
		})
		if !ok {
			return next, false
		}
		out = next
	}
	return out, !varPattern.MatchString(out)
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http:") || strings.HasPrefix(l, "https:")
}

// hasTrailingSeparator reports whether location uses the directory form.
// Both separators are accepted on every platform.
func hasTrailingSeparator(location string) bool {
	return strings.HasSuffix(location, "/") || strings.HasSuffix(location, `\`)
}

func isXML(location string) bool {
	return strings.HasSuffix(strings.ToLower(location), ".xml")
}

// Resolve turns an expanded location into a file-system path. file: URIs
// are converted to paths. An absolute path is used as is when it exists;
// anything else is taken relative to baseDir.
func Resolve(location, baseDir string, fsys FileSystem) string {
	loc := strings.TrimSpace(location)
	if strings.HasPrefix(strings.ToLower(loc), "file:") {
		if u, err := url.Parse(loc); err == nil && u.Path != "" {
			loc = u.Path
		} else {
			loc = loc[len("file:"):]
		}
	}
	loc = filepath.FromSlash(strings.ReplaceAll(loc, `\`, "/"))
	if filepath.IsAbs(loc) {
		if _, err := fsys.Stat(loc); err == nil {
			return filepath.Clean(loc)
		}
	}
	return filepath.Join(baseDir, loc)
}

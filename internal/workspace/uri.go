package workspace

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// URIToPath converts a file URI to a local path. Plain paths are returned
// cleaned.
func URIToPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file:") {
		if strings.Contains(uri, "://") {
			return "", fmt.Errorf("unsupported URI scheme in %q", uri)
		}
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", uri, err)
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		// file:///C:/dir arrives as /C:/dir
		p = strings.TrimPrefix(p, "/")
	}
	if p == "" {
		return "", fmt.Errorf("URI %q has no path", uri)
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

// PathToURI converts an absolute path to a file URI.
func PathToURI(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidManifest wraps every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is a decoded libertyls.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest tables.
type Config struct {
	Catalog     CatalogConfig     `toml:"catalog"`
	Completion  CompletionConfig  `toml:"completion"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

type CatalogConfig struct {
	Path  string `toml:"path"`
	Cache bool   `toml:"cache"`
}

type CompletionConfig struct {
	Match string `toml:"match"`
}

type DiagnosticsConfig struct {
	Max int `toml:"max"`
}

// DefaultConfig is what a project without a manifest uses.
func DefaultConfig() Config {
	return Config{
		Catalog:    CatalogConfig{Cache: true},
		Completion: CompletionConfig{Match: "prefix"},
	}
}

// LoadConfig decodes and validates the manifest at path. Keys that are not
// set keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("catalog", "path") && strings.TrimSpace(cfg.Catalog.Path) == "" {
		return Config{}, fmt.Errorf("%s: %w: empty [catalog].path", path, ErrInvalidManifest)
	}
	if meta.IsDefined("completion", "match") {
		switch strings.ToLower(strings.TrimSpace(cfg.Completion.Match)) {
		case "prefix", "substring":
		default:
			return Config{}, fmt.Errorf("%s: %w: [completion].match must be \"prefix\" or \"substring\", got %q",
				path, ErrInvalidManifest, cfg.Completion.Match)
		}
	}
	if meta.IsDefined("diagnostics", "max") && cfg.Diagnostics.Max < 0 {
		return Config{}, fmt.Errorf("%s: %w: [diagnostics].max must not be negative", path, ErrInvalidManifest)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalidManifest, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadManifest finds libertyls.toml above startDir and decodes it. ok is
// false when no manifest exists.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// CatalogPath returns the configured catalog path resolved against the
// project root, or "" when none is configured.
func (m *Manifest) CatalogPath() string {
	if m == nil {
		return ""
	}
	p := strings.TrimSpace(m.Config.Catalog.Path)
	if p == "" {
		return ""
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

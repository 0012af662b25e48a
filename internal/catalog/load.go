package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed data/featurelist.json
var defaultFeatureList []byte

// ErrLoad marks every catalog load failure.
var ErrLoad = errors.New("catalog load failed")

// LoadError describes a catalog source that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("catalog: %v", e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrLoad) hold for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Format is a serialized catalog encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	}
	return "json"
}

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return FormatJSON, false
}

// document is the serialized shape shared by every format.
type document struct {
	Features       []Feature           `json:"features" yaml:"features" toml:"features" msgpack:"features"`
	ConfigElements map[string][]string `json:"configElements" yaml:"configElements" toml:"configElements" msgpack:"configElements"`
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported catalog extension %q", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	cat, err := Parse(data, format)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return cat, nil
}

// Parse decodes a serialized catalog. JSON input may also be a bare array of
// feature records.
func Parse(data []byte, format Format) (*Catalog, error) {
	doc, err := decode(data, format)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if err := validate(doc); err != nil {
		return nil, &LoadError{Err: err}
	}
	return New(doc.Features, doc.ConfigElements), nil
}

func validate(doc document) error {
	for i, f := range doc.Features {
		if strings.TrimSpace(f.ShortName) == "" {
			return fmt.Errorf("feature #%d has no shortName", i+1)
		}
	}
	return nil
}

func decode(data []byte, format Format) (document, error) {
	var doc document
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Features); err != nil {
				return doc, fmt.Errorf("failed to parse JSON: %w", err)
			}
			return doc, nil
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return doc, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return doc, fmt.Errorf("unknown catalog format %d", format)
	}
	return doc, nil
}

// Default parses the bundled baseline catalog.
func Default() (*Catalog, error) {
	return Parse(defaultFeatureList, FormatJSON)
}

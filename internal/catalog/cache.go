package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version; increment when the cached payload changes shape.
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps decoded catalogs on disk keyed by the SHA-256 of their
// source bytes, so large YAML or TOML catalogs are parsed once per change.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskPayload struct {
	Schema uint16
	Doc    document
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/<app> (or ~/.cache).
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens a cache rooted at dir.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key [32]byte) string {
	return filepath.Join(c.dir, "catalogs", hex.EncodeToString(key[:])+".mp")
}

func (c *DiskCache) put(key [32]byte, doc document) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(&diskPayload{Schema: diskCacheSchemaVersion, Doc: doc}); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

func (c *DiskCache) get(key [32]byte) (document, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, false, nil
		}
		return document{}, false, err
	}
	defer f.Close()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return document{}, false, err
	}
	if payload.Schema != diskCacheSchemaVersion {
		return document{}, false, nil
	}
	return payload.Doc, true, nil
}

// DropAll removes every cached catalog.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "catalogs"))
}

// LoadCached behaves like Load but consults cache first. A nil cache is
// allowed. Corrupt or outdated cache entries are ignored and rewritten.
func LoadCached(path string, cache *DiskCache) (*Catalog, error) {
	if cache == nil {
		return Load(path)
	}
	format, ok := FormatForPath(path)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported catalog extension %q", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	key := sha256.Sum256(append([]byte(format.String()+"\x00"), data...))
	if doc, hit, err := cache.get(key); err == nil && hit {
		return New(doc.Features, doc.ConfigElements), nil
	}

	doc, err := decode(data, format)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := validate(doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	// a cache write failure only costs a re-parse next time
	_ = cache.put(key, doc) //nolint:errcheck
	return New(doc.Features, doc.ConfigElements), nil
}

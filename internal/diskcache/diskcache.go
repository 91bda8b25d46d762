// Package diskcache persists the last known-good config for a service to
// local disk, so the subscriber SDK can hand callers a value before the
// network is up. Grounded on the client SDK's disk_cache.cpp: write to a
// temp file, rename atomically, and discard on any integrity failure
// instead of propagating an error.
package diskcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/codec404/Konfig/internal/contenthash"
	"github.com/codec404/Konfig/internal/model"
)

// Cache persists one config document per service under a directory.
type Cache struct {
	dir string
}

// New returns a Cache rooted at dir. An empty dir resolves to
// $HOME/.konfig/cache, falling back to .konfig/cache under the working
// directory when HOME is unset.
func New(dir string) *Cache {
	if dir == "" {
		dir = ResolveDefaultCacheDir()
	}
	return &Cache{dir: dir}
}

// ResolveDefaultCacheDir mirrors DiskCache::ResolveDefaultCacheDir.
func ResolveDefaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".konfig", "cache")
	}
	return filepath.Join(".konfig", "cache")
}

// Path returns the on-disk path that Save/Load use for serviceName.
func (c *Cache) Path(serviceName string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(serviceName)
	return filepath.Join(c.dir, safe+".cache")
}

// Exists reports whether a cache file is present for serviceName.
func (c *Cache) Exists(serviceName string) bool {
	_, err := os.Stat(c.Path(serviceName))
	return err == nil
}

// Save writes doc to disk via a temp file plus atomic rename. Returns an
// error only on I/O failure; callers treat a failed save as non-fatal.
func (c *Cache) Save(doc model.ConfigDocument) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	path := c.Path(doc.ServiceName)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// Load reads the cached document for serviceName. An absent file is not
// an error — it returns the empty sentinel. A parse failure or a
// content_hash mismatch discards the file and also returns the empty
// sentinel, never an error: a corrupt cache must never block startup.
func (c *Cache) Load(serviceName string) model.ConfigDocument {
	path := c.Path(serviceName)

	data, err := os.ReadFile(path)
	if err != nil {
		return model.ConfigDocument{}
	}

	var doc model.ConfigDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		os.Remove(path)
		return model.ConfigDocument{}
	}

	if doc.ContentHash != "" {
		if contenthash.Compute(doc.Content) != doc.ContentHash {
			os.Remove(path)
			return model.ConfigDocument{}
		}
	}

	return doc
}

package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileCache stores entries as JSON files under a single directory.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Read implements Cache.
func (fc *FileCache) Read(key string, maxAge time.Duration) (*Entry, bool) {
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if maxAge > 0 && time.Since(entry.FetchedAt) > maxAge {
		// Return the stale entry so callers can still use its ETag.
		return &entry, false
	}
	return &entry, true
}

// Write implements Cache.
func (fc *FileCache) Write(key string, entry *Entry) error {
	entry.FetchedAt = time.Now()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first, then rename (atomic).
	path := fc.path(key)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// GetETag implements Cache.
func (fc *FileCache) GetETag(key string) string {
	entry, _ := fc.Read(key, 0)
	if entry == nil {
		return ""
	}
	return entry.ETag
}

// KeyFor implements Cache. The key is the path plus sorted parameters,
// sanitized for use as a filename.
func (fc *FileCache) KeyFor(path string, params map[string]string) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	key := strings.ReplaceAll(path, "/", "_")
	if len(parts) > 0 {
		key = key + "__" + strings.Join(parts, "__")
	}
	return sanitizeKey(key) + ".json"
}

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, key)
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '-', r == '.', r == '=':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	s := b.String()
	if len(s) > 200 {
		return fmt.Sprintf("long_%x", md5.Sum([]byte(key)))
	}
	return s
}

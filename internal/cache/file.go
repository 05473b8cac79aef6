package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func DefaultDir() string {
	if v := strings.TrimSpace(os.Getenv("XAI_BENCH_RESULTS_DIR")); v != "" {
		return v
	}
	return "results"
}

// FileCache stores one gzip-compressed JSON file per key. There is no
// locking: two runs creating the same key race and the last rename wins.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) *FileCache {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileCache{dir: dir}
}

func (c *FileCache) Path(key Key) string {
	return filepath.Join(c.dir, key.String()+".json.gz")
}

func (c *FileCache) Get(key Key, dst interface{}) (bool, error) {
	err := ReadFile(c.Path(key), dst)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("decode cache artifact %s: %w", c.Path(key), err)
	}
	return true, nil
}

func (c *FileCache) Put(key Key, artifact interface{}) error {
	if artifact == nil {
		return fmt.Errorf("cache artifact is nil")
	}
	return WriteFileAtomic(c.Path(key), artifact)
}

func (c *FileCache) Delete(key Key) error {
	err := os.Remove(c.Path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error {
	return nil
}

// NopCache never hits and discards writes.
type NopCache struct{}

func (NopCache) Get(Key, interface{}) (bool, error) { return false, nil }
func (NopCache) Put(Key, interface{}) error         { return nil }
func (NopCache) Delete(Key) error                   { return nil }
func (NopCache) Close() error                       { return nil }

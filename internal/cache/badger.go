package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"xai-bench/internal/logging"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures the embedded key-value backend.
type BadgerConfig struct {
	// Path is the database directory, ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerCache keeps artifacts in an embedded BadgerDB under the same key
// strings FileCache uses for file names.
type BadgerCache struct {
	db *badger.DB
}

func OpenBadger(cfg BadgerConfig) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		logging.GetLogger().WithField("path", cfg.Path).WithError(err).Error("Failed to open badger cache")
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Get(key Key, dst interface{}) (bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key.String()))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := decode(bytes.NewReader(raw), dst); err != nil {
		return false, fmt.Errorf("decode cache artifact %s: %w", key, err)
	}
	return true, nil
}

func (c *BadgerCache) Put(key Key, artifact interface{}) error {
	if artifact == nil {
		return fmt.Errorf("cache artifact is nil")
	}
	raw, err := encodeBytes(artifact)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key.String()), raw)
	})
}

func (c *BadgerCache) Delete(key Key) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key.String()))
	})
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

package cache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string
}

func Open(opts Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "file", "":
		return NewFileCache(opts.Dir), nil
	case "badger":
		dir := opts.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		return OpenBadger(BadgerConfig{Path: filepath.Join(dir, "badger"), SyncWrites: true})
	case "none", "off":
		return NopCache{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

//go:build darwin || linux

package leveldb

import (
	"sync"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

var defaultLibrary struct {
	mu  sync.Mutex
	lib *Library
}

// DefaultLibrary loads the system LevelDB and keeps it for the rest of the
// process. A failed load is not remembered, so a later call retries.
// See cabi.LoadDefault for the search order.
func DefaultLibrary() (*Library, error) {
	return defaultLibraryFrom(cabi.LoadDefault)
}

func defaultLibraryFrom(load func() (*cabi.ABI, error)) (*Library, error) {
	defaultLibrary.mu.Lock()
	defer defaultLibrary.mu.Unlock()

	if defaultLibrary.lib != nil {
		return defaultLibrary.lib, nil
	}
	abi, err := load()
	if err != nil {
		return nil, err
	}
	lib, err := NewLibrary(abi)
	if err != nil {
		return nil, err
	}
	defaultLibrary.lib = lib
	return lib, nil
}

// LoadLibrary loads LevelDB from path, or the default library when path is empty.
func LoadLibrary(path string, opts ...LibraryOption) (*Library, error) {
	if path == "" && len(opts) == 0 {
		return DefaultLibrary()
	}
	var (
		abi *cabi.ABI
		err error
	)
	if path == "" {
		abi, err = cabi.LoadDefault()
	} else {
		abi, err = cabi.Load(path)
	}
	if err != nil {
		return nil, err
	}
	return NewLibrary(abi, opts...)
}

// Open opens the store at name with the default library.
func Open(name string, opts ...OpenOption) (*DB, error) {
	lib, err := DefaultLibrary()
	if err != nil {
		return nil, err
	}
	return lib.Open(name, opts...)
}

// OpenConfig loads the configured library and opens cfg.Path.
func OpenConfig(cfg Config) (*KVStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lib, err := LoadLibrary(cfg.Library)
	if err != nil {
		return nil, err
	}
	return lib.OpenConfig(cfg)
}

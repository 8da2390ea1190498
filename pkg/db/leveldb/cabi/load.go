//go:build darwin || linux

package cabi

import (
	"errors"
	"fmt"
	"os"

	"github.com/ebitengine/purego"

	"github.com/eigerco/leveldb/pkg/log"
)

// EnvLibraryPath overrides the shared library location.
const EnvLibraryPath = "LEVELDB_LIBRARY_PATH"

// Load opens the shared library at path and registers every entry point.
func Load(path string) (*ABI, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("cabi: open %s: %w", path, err)
	}

	abi := &ABI{}
	for _, s := range abi.symbols() {
		// RegisterLibFunc panics on unknown symbols, so resolve first.
		if _, err := purego.Dlsym(lib, s.name); err != nil {
			purego.Dlclose(lib) //nolint:errcheck // already failing
			return nil, fmt.Errorf("cabi: resolve %s in %s: %w", s.name, path, err)
		}
		purego.RegisterLibFunc(s.fn, lib, s.name)
	}

	log.FFI.Debug().Str("path", path).
		Int32("major", abi.MajorVersion()).
		Int32("minor", abi.MinorVersion()).
		Msg("loaded leveldb")
	return abi, nil
}

// LoadDefault tries $LEVELDB_LIBRARY_PATH, then the platform library names.
func LoadDefault() (*ABI, error) {
	if p := os.Getenv(EnvLibraryPath); p != "" {
		return Load(p)
	}

	var errs []error
	for _, name := range defaultLibraryNames {
		abi, err := Load(name)
		if err == nil {
			return abi, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Package leveldb is a Go binding for the LevelDB C API.
//
// Every native resource has exactly one owner on the Go side. Options objects
// and write batches live only for the call that needs them, values returned by
// the engine are copied into Go memory and released immediately, and error
// strings are converted into *Error values and freed. A DB and the iterators it
// created are the only long-lived native objects; DB.Close destroys any
// iterators still open before closing the database.
package leveldb

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// Library is a loaded LevelDB implementation.
type Library struct {
	abi     *cabi.ABI
	metrics *metrics
}

type LibraryOption func(*libraryConfig)

type libraryConfig struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the binding's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) LibraryOption {
	return func(c *libraryConfig) {
		c.registerer = reg
	}
}

// NewLibrary wraps an entry point table. Every entry point must be set.
func NewLibrary(abi *cabi.ABI, opts ...LibraryOption) (*Library, error) {
	if err := abi.Validate(); err != nil {
		return nil, err
	}
	cfg := libraryConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	return &Library{abi: abi, metrics: newMetrics(cfg.registerer)}, nil
}

// Version reports the engine's major and minor version.
func (l *Library) Version() (major, minor int) {
	return int(l.abi.MajorVersion()), int(l.abi.MinorVersion())
}

// DestroyDB removes the store at name. It fails while the store is open.
func (l *Library) DestroyDB(name string, opts ...OpenOption) error {
	o := buildOptions(l.abi, opts)
	defer l.abi.OptionsDestroy(o)

	err := callErr(l.abi, KindOperation, "destroy", func(errptr *uintptr) {
		l.abi.DestroyDB(o, name, errptr)
	})
	l.metrics.observe("destroy", err)
	return err
}

// RepairDB asks the engine to recover as much of the store at name as it can.
func (l *Library) RepairDB(name string, opts ...OpenOption) error {
	o := buildOptions(l.abi, opts)
	defer l.abi.OptionsDestroy(o)

	err := callErr(l.abi, KindOperation, "repair", func(errptr *uintptr) {
		l.abi.RepairDB(o, name, errptr)
	})
	l.metrics.observe("repair", err)
	return err
}

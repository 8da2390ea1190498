package pebble

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/leveldb/pkg/db"
	"github.com/eigerco/leveldb/pkg/log"
)

const memDirname = "db"

// KVStore is a db.KVStore on cockroachdb/pebble.
type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

var _ db.KVStore = (*KVStore)(nil)

type Option func(*config)

type config struct {
	path      string
	cacheSize int64
}

// WithPath stores data on disk at path instead of in memory.
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithCacheSize sets the block cache size in bytes.
func WithCacheSize(size int64) Option {
	return func(c *config) {
		c.cacheSize = size
	}
}

// NewKVStore opens a store, in memory unless WithPath is given.
func NewKVStore(opts ...Option) (*KVStore, error) {
	c := config{cacheSize: 64 * 1024 * 1024} // 64MB
	for _, o := range opts {
		o(&c)
	}

	cache := pebble.NewCache(c.cacheSize)
	defer cache.Unref()

	pOpts := &pebble.Options{
		Cache:  cache,
		Logger: Logger{log.DB},
	}
	dirname := c.path
	if dirname == "" {
		pOpts.FS = vfs.NewMem()
		dirname = memDirname
	}

	pdb, err := pebble.Open(dirname, pOpts)
	if err != nil {
		return nil, err
	}
	return &KVStore{db: pdb}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck // closing a get result cannot fail

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

package leveldb

import (
	"runtime"
	"sync"

	"github.com/eigerco/leveldb/pkg/log"
)

// DB is an open LevelDB store. It is safe for concurrent use; operations are
// not serialised against each other, only against Close.
//
// Close must be called exactly once. Any later call, Close included, returns
// ErrClosed without reaching the engine.
type DB struct {
	lib  *Library
	name string

	mu     sync.RWMutex
	h      uintptr
	closed bool

	itersMu sync.Mutex
	iters   map[*Iterator]struct{}
}

// Open opens or creates the store at name.
func (l *Library) Open(name string, opts ...OpenOption) (*DB, error) {
	abi := l.abi
	o := buildOptions(abi, opts)
	defer abi.OptionsDestroy(o)

	var h uintptr
	err := callErr(abi, KindOpen, "open", func(errptr *uintptr) {
		h = abi.Open(o, name, errptr)
	})
	l.metrics.observe("open", err)
	if err != nil {
		if h != 0 {
			abi.Close(h)
		}
		log.DB.Debug().Err(err).Str("name", name).Msg("open failed")
		return nil, err
	}
	if h == 0 {
		return nil, &Error{Kind: KindOpen, Op: "open", Msg: "engine returned no handle"}
	}

	log.DB.Debug().Str("name", name).Msg("opened database")
	return &DB{
		lib:   l,
		name:  name,
		h:     h,
		iters: make(map[*Iterator]struct{}),
	}, nil
}

// Name is the location the store was opened at.
func (d *DB) Name() string {
	return d.name
}

// Close destroys live iterators and closes the store.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.lib.metrics.observe("close", ErrClosed)
		return ErrClosed
	}
	d.closed = true

	d.itersMu.Lock()
	live := make([]*Iterator, 0, len(d.iters))
	for it := range d.iters {
		live = append(live, it)
	}
	d.iters = nil
	d.itersMu.Unlock()

	for _, it := range live {
		if it.release() {
			log.DB.Warn().Str("name", d.name).Msg("iterator released by database close")
		}
	}

	d.lib.abi.Close(d.h)
	d.h = 0
	d.lib.metrics.observe("close", nil)
	log.DB.Debug().Str("name", d.name).Int("iterators", len(live)).Msg("closed database")
	return nil
}

// Get returns the value stored under key. A missing key is not an error:
// found is false and value is nil.
func (d *DB) Get(key []byte, opts ...ReadOption) (value []byte, found bool, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("get", ErrClosed)
		return nil, false, ErrClosed
	}

	abi := d.lib.abi
	o := buildReadOptions(abi, opts)
	defer abi.ReadoptionsDestroy(o)

	k, kn := toEngine(key)
	var vp, vn uintptr
	err = callErr(abi, KindOperation, "get", func(errptr *uintptr) {
		vp = abi.Get(d.h, o, k, kn, &vn, errptr)
	})
	runtime.KeepAlive(key)
	d.lib.metrics.observe("get", err)
	if err != nil {
		if vp != 0 {
			abi.Free(vp)
		}
		return nil, false, err
	}
	if vp == 0 {
		return nil, false, nil
	}
	return fromEngine(abi, vp, vn), true, nil
}

// Has reports whether key is present.
func (d *DB) Has(key []byte, opts ...ReadOption) (bool, error) {
	_, found, err := d.Get(key, opts...)
	return found, err
}

// Put stores value under key.
func (d *DB) Put(key, value []byte, opts ...WriteOption) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("put", ErrClosed)
		return ErrClosed
	}

	abi := d.lib.abi
	o := buildWriteOptions(abi, opts)
	defer abi.WriteoptionsDestroy(o)

	k, kn := toEngine(key)
	v, vn := toEngine(value)
	err := callErr(abi, KindOperation, "put", func(errptr *uintptr) {
		abi.Put(d.h, o, k, kn, v, vn, errptr)
	})
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
	d.lib.metrics.observe("put", err)
	return err
}

// Delete removes key. Deleting a missing key succeeds.
func (d *DB) Delete(key []byte, opts ...WriteOption) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("delete", ErrClosed)
		return ErrClosed
	}

	abi := d.lib.abi
	o := buildWriteOptions(abi, opts)
	defer abi.WriteoptionsDestroy(o)

	k, kn := toEngine(key)
	err := callErr(abi, KindOperation, "delete", func(errptr *uintptr) {
		abi.Delete(d.h, o, k, kn, errptr)
	})
	runtime.KeepAlive(key)
	d.lib.metrics.observe("delete", err)
	return err
}

// NewIterator returns a cursor positioned at the first key. It must be closed
// before the DB, otherwise Close releases it.
func (d *DB) NewIterator(opts ...ReadOption) (*Iterator, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("iterator", ErrClosed)
		return nil, ErrClosed
	}

	abi := d.lib.abi
	o := buildReadOptions(abi, opts)
	defer abi.ReadoptionsDestroy(o)

	it := &Iterator{
		db:  d,
		abi: abi,
		h:   abi.CreateIterator(d.h, o),
	}
	it.seekToFirst()

	d.itersMu.Lock()
	d.iters[it] = struct{}{}
	d.itersMu.Unlock()

	d.lib.metrics.iters.Inc()
	d.lib.metrics.observe("iterator", nil)
	return it, nil
}

// forget drops an iterator closed by its owner.
func (d *DB) forget(it *Iterator) {
	d.itersMu.Lock()
	defer d.itersMu.Unlock()
	if d.iters != nil {
		delete(d.iters, it)
	}
}

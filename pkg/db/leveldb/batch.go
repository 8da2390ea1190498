package leveldb

import (
	"bytes"
	"runtime"
	"sync/atomic"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// KV is one mutation of DB.Write.
type KV struct {
	Key   []byte
	Value []byte
}

// Write applies pairs atomically.
func (d *DB) Write(pairs []KV, opts ...WriteOption) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("write", ErrClosed)
		return ErrClosed
	}

	err := d.writeBatch(func(b *nativeBatch) {
		for _, p := range pairs {
			b.put(p.Key, p.Value)
		}
	}, opts)
	d.lib.metrics.observe("write", err)
	return err
}

// writeBatch runs create, fill, apply and destroy as one sequence. The batch
// is destroyed whatever apply returns. d.mu must be held.
func (d *DB) writeBatch(fill func(*nativeBatch), opts []WriteOption) error {
	b := newNativeBatch(d.lib.abi)
	defer b.destroy()

	fill(b)
	return b.apply(d.h, opts)
}

// nativeBatch owns a leveldb_writebatch_t.
type nativeBatch struct {
	abi *cabi.ABI
	h   uintptr
}

func newNativeBatch(abi *cabi.ABI) *nativeBatch {
	return &nativeBatch{abi: abi, h: abi.WritebatchCreate()}
}

func (b *nativeBatch) put(key, value []byte) {
	k, kn := toEngine(key)
	v, vn := toEngine(value)
	b.abi.WritebatchPut(b.h, k, kn, v, vn)
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (b *nativeBatch) delete(key []byte) {
	k, kn := toEngine(key)
	b.abi.WritebatchDelete(b.h, k, kn)
	runtime.KeepAlive(key)
}

func (b *nativeBatch) apply(db uintptr, opts []WriteOption) error {
	o := buildWriteOptions(b.abi, opts)
	defer b.abi.WriteoptionsDestroy(o)

	return callErr(b.abi, KindOperation, "write", func(errptr *uintptr) {
		b.abi.Write(db, o, b.h, errptr)
	})
}

func (b *nativeBatch) destroy() {
	if b.h == 0 {
		return
	}
	b.abi.WritebatchDestroy(b.h)
	b.h = 0
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch collects puts and deletes in Go memory and applies them atomically on
// Commit. The native batch exists only during Commit. A Batch is single-use
// and not safe for concurrent use.
type Batch struct {
	db   *DB
	ops  []batchOp
	done atomic.Bool
}

// NewBatch returns an empty batch bound to d.
func (d *DB) NewBatch() *Batch {
	return &Batch{db: d}
}

// Put queues a put. key and value are copied.
func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

// Delete queues a delete. key is copied.
func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), delete: true})
	return nil
}

// Len is the number of queued mutations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Reset drops queued mutations.
func (b *Batch) Reset() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.ops = b.ops[:0]
	return nil
}

// Commit applies the queued mutations. On failure the batch stays usable so
// the caller may retry.
func (b *Batch) Commit(opts ...WriteOption) error {
	if b.done.Load() {
		return ErrBatchDone
	}

	d := b.db
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.lib.metrics.observe("commit", ErrClosed)
		return ErrClosed
	}

	err := d.writeBatch(func(nb *nativeBatch) {
		for _, op := range b.ops {
			if op.delete {
				nb.delete(op.key)
			} else {
				nb.put(op.key, op.value)
			}
		}
	}, opts)
	d.lib.metrics.observe("commit", err)
	if err != nil {
		return err
	}
	b.done.Store(true)
	b.ops = nil
	return nil
}

// Close discards the batch. It is safe to call more than once.
func (b *Batch) Close() error {
	b.done.Store(true)
	b.ops = nil
	return nil
}

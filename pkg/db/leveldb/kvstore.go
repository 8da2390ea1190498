package leveldb

import (
	"bytes"
	"errors"

	"github.com/eigerco/leveldb/pkg/db"
)

// KVStore adapts a DB to db.KVStore, applying the configured default options
// to every call.
type KVStore struct {
	db    *DB
	write []WriteOption
	read  []ReadOption
}

var _ db.KVStore = (*KVStore)(nil)

// NewKVStore wraps d. cfg supplies the write and read options.
func NewKVStore(d *DB, cfg Config) *KVStore {
	return &KVStore{db: d, write: cfg.Write, read: cfg.Read}
}

// DB returns the underlying handle.
func (s *KVStore) DB() *DB {
	return s.db
}

func (s *KVStore) Get(key []byte) ([]byte, error) {
	v, found, err := s.db.Get(key, s.read...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, db.ErrNotFound
	}
	return v, nil
}

func (s *KVStore) Put(key, value []byte) error {
	return s.db.Put(key, value, s.write...)
}

func (s *KVStore) Delete(key []byte) error {
	return s.db.Delete(key, s.write...)
}

func (s *KVStore) NewBatch() db.Batch {
	return &kvBatch{batch: s.db.NewBatch(), write: s.write}
}

func (s *KVStore) NewIterator(start, end []byte) (db.Iterator, error) {
	it, err := s.db.NewIterator(s.read...)
	if err != nil {
		return nil, err
	}
	return &rangeIterator{
		it:    it,
		start: bytes.Clone(start),
		end:   bytes.Clone(end),
	}, nil
}

// Close closes the DB. Unlike DB.Close, a second call returns nil.
func (s *KVStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

type kvBatch struct {
	batch *Batch
	write []WriteOption
}

func (b *kvBatch) Put(key, value []byte) error { return b.batch.Put(key, value) }
func (b *kvBatch) Delete(key []byte) error     { return b.batch.Delete(key) }
func (b *kvBatch) Commit() error               { return b.batch.Commit(b.write...) }
func (b *kvBatch) Close() error                { return b.batch.Close() }

// rangeIterator walks [start, end) with db.Iterator semantics: unpositioned
// until the first Next.
type rangeIterator struct {
	it         *Iterator
	start, end []byte

	started bool
	done    bool
	key     []byte
	value   []byte
}

func (r *rangeIterator) Next() bool {
	if r.done {
		return false
	}
	if !r.started {
		r.started = true
		if r.start != nil {
			r.it.Seek(r.start)
		} else {
			r.it.SeekToFirst()
		}
	}

	k, v, ok := r.it.Next()
	if !ok || (r.end != nil && bytes.Compare(k, r.end) >= 0) {
		r.done = true
		r.key, r.value = nil, nil
		return false
	}
	r.key, r.value = k, v
	return true
}

func (r *rangeIterator) Key() []byte {
	if !r.Valid() {
		return nil
	}
	return bytes.Clone(r.key)
}

func (r *rangeIterator) Value() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrIteratorInvalid
	}
	return bytes.Clone(r.value), nil
}

func (r *rangeIterator) Valid() bool {
	return r.started && !r.done
}

func (r *rangeIterator) Close() error {
	return r.it.Close()
}

package db

import "errors"

// ErrNotFound is returned by KVStore.Get when the key is absent.
var ErrNotFound = errors.New("kv-store: key not found")

// KVStore represents a key-value storage interface providing basic operations
// for data manipulation and iteration.
type KVStore interface {
	Writer
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewBatch() Batch
	// NewIterator iterates keys in [start, end). A nil bound is open.
	NewIterator(start, end []byte) (Iterator, error)
	// Close releases the store. Closing a closed store is a no-op that
	// returns nil; every other method then fails.
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch represents an atomic batch of operations.
// All operations in a batch are performed atomically.
type Batch interface {
	Writer
	Delete(key []byte) error
	Commit() error
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs.
// It starts unpositioned; the first Next moves it to the first key.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}

package leveldb

import (
	"bytes"
	"iter"
	"runtime"
	"sync"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// State is the position of an Iterator.
type State uint8

const (
	// StateInvalid is before the first key, after the last key, or failed.
	StateInvalid State = iota
	// StateAtFirst is on the first key, after creation or SeekToFirst.
	StateAtFirst
	// StatePositioned is on a key reached by any other move.
	StatePositioned
	// StateReleased means the native cursor is destroyed.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateAtFirst:
		return "at-first"
	case StatePositioned:
		return "positioned"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

type direction uint8

const (
	dirNone direction = iota
	dirForward
	dirBackward
)

// Iterator is a cursor over a consistent view of the store, ordered by the
// engine's comparator.
//
// Next returns the pair under the cursor and then advances; Prev moves back
// and then returns the pair it lands on. Changing direction never returns the
// pair returned last: after Next returned k, Prev returns the key before k,
// and after Prev returned k, Next returns the key after k. Seeking resets this.
//
// An Iterator is meant for one goroutine at a time. It holds a mutex only so
// that DB.Close can release it safely.
type Iterator struct {
	db  *DB
	abi *cabi.ABI

	mu    sync.Mutex
	h     uintptr
	state State
	dir   direction
	// last is the key returned by the most recent Next or Prev since a seek.
	last    []byte
	hasLast bool
}

// Valid reports whether the cursor is on a key.
func (it *Iterator) Valid() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.valid()
}

// State reports the cursor state.
func (it *Iterator) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// SeekToFirst moves to the first key and reports whether there is one.
func (it *Iterator) SeekToFirst() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return false
	}
	it.seekToFirst()
	return it.valid()
}

// SeekToLast moves to the last key and reports whether there is one.
func (it *Iterator) SeekToLast() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return false
	}
	it.abi.IterSeekToLast(it.h)
	it.reset()
	it.refresh()
	return it.valid()
}

// Seek moves to the first key at or after key and reports whether there is one.
func (it *Iterator) Seek(key []byte) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return false
	}
	it.seek(key)
	it.reset()
	return it.valid()
}

// Next returns the pair under the cursor and advances. ok is false once the
// cursor is invalid, whether exhausted by Next or stepped off the front by
// Prev; Next then does nothing until the next seek.
func (it *Iterator) Next() (key, value []byte, ok bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return nil, nil, false
	}

	if it.dir == dirBackward && it.hasLast && it.valid() {
		it.seek(it.last)
		if it.valid() && bytes.Equal(it.key(), it.last) {
			it.abi.IterNext(it.h)
			it.refresh()
		}
	}
	if !it.valid() {
		return nil, nil, false
	}

	key, value = it.current()
	it.abi.IterNext(it.h)
	it.refresh()
	it.remember(key, dirForward)
	return key, value, true
}

// Prev moves the cursor back and returns the pair it lands on. On an exhausted
// cursor with nothing to reverse from, Prev returns ok == false and leaves the
// engine untouched.
func (it *Iterator) Prev() (key, value []byte, ok bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return nil, nil, false
	}

	switch {
	case it.dir == dirForward && it.hasLast:
		// Land on the greatest key before the one Next returned last.
		it.seek(it.last)
		if it.valid() {
			it.abi.IterPrev(it.h)
		} else {
			it.abi.IterSeekToLast(it.h)
		}
	case it.valid():
		it.abi.IterPrev(it.h)
	default:
		return nil, nil, false
	}
	it.refresh()

	if !it.valid() {
		// Off the front: nothing to reverse from until the next seek.
		it.reset()
		return nil, nil, false
	}
	key, value = it.current()
	it.remember(key, dirBackward)
	return key, value, true
}

// Key returns a copy of the current key.
func (it *Iterator) Key() ([]byte, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if err := it.usable(); err != nil {
		return nil, err
	}
	return it.key(), nil
}

// Value returns a copy of the current value.
func (it *Iterator) Value() ([]byte, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if err := it.usable(); err != nil {
		return nil, err
	}
	var n uintptr
	return nonNil(copyView(it.abi.IterValue(it.h, &n), n)), nil
}

// Err returns the cursor's terminal error, if the engine reported one.
// It is independent of Valid.
func (it *Iterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return ErrIteratorReleased
	}
	return callErr(it.abi, KindIterator, "iterator", func(errptr *uintptr) {
		it.abi.IterGetError(it.h, errptr)
	})
}

// All yields the remaining pairs using Next.
func (it *Iterator) All() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		for {
			k, v, ok := it.Next()
			if !ok || !yield(k, v) {
				return
			}
		}
	}
}

// Close destroys the native cursor. Every later call returns ErrIteratorReleased.
func (it *Iterator) Close() error {
	if !it.release() {
		return ErrIteratorReleased
	}
	it.db.forget(it)
	return nil
}

// release destroys the cursor once and reports whether this call did it.
func (it *Iterator) release() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateReleased {
		return false
	}
	it.abi.IterDestroy(it.h)
	it.h = 0
	it.state = StateReleased
	it.last = nil
	it.hasLast = false
	it.db.lib.metrics.iters.Dec()
	return true
}

func (it *Iterator) usable() error {
	switch {
	case it.state == StateReleased:
		return ErrIteratorReleased
	case !it.valid():
		return ErrIteratorInvalid
	}
	return nil
}

func (it *Iterator) valid() bool {
	return it.state == StateAtFirst || it.state == StatePositioned
}

func (it *Iterator) seekToFirst() {
	it.abi.IterSeekToFirst(it.h)
	it.reset()
	if it.abi.IterValid(it.h) != 0 {
		it.state = StateAtFirst
	} else {
		it.state = StateInvalid
	}
}

func (it *Iterator) seek(key []byte) {
	k, n := toEngine(key)
	it.abi.IterSeek(it.h, k, n)
	runtime.KeepAlive(key)
	it.refresh()
}

// refresh recomputes validity after a move other than SeekToFirst.
func (it *Iterator) refresh() {
	if it.abi.IterValid(it.h) != 0 {
		it.state = StatePositioned
	} else {
		it.state = StateInvalid
	}
}

func (it *Iterator) reset() {
	it.dir = dirNone
	it.last = it.last[:0]
	it.hasLast = false
}

func (it *Iterator) remember(key []byte, dir direction) {
	it.dir = dir
	it.last = append(it.last[:0], key...)
	it.hasLast = true
}

func (it *Iterator) key() []byte {
	var n uintptr
	return nonNil(copyView(it.abi.IterKey(it.h, &n), n))
}

func (it *Iterator) current() (key, value []byte) {
	key = it.key()
	var n uintptr
	value = nonNil(copyView(it.abi.IterValue(it.h, &n), n))
	return key, value
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

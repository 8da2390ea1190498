package leveldbtest

import (
	"unsafe"

	"github.com/cockroachdb/pebble"
)

type iterator struct {
	db  uintptr
	pit *pebble.Iterator
	// key and value back the pointers returned by iter_key and iter_value.
	key, value []byte
}

func (i *iterator) close() {
	i.pit.Close() //nolint:errcheck // errors surface through iter_get_error
	i.key, i.value = nil, nil
}

// cursor looks up a live iterator. e.mu must be held.
func (e *Engine) cursor(h uintptr, call string) (*iterator, bool) {
	i, ok := e.iters[h]
	if !ok {
		e.violate("%s on unknown or destroyed iterator %#x", call, h)
	}
	return i, ok
}

func (e *Engine) createIterator(h, options uintptr) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.database(h, "create_iterator")
	if !ok {
		return 0
	}
	if _, ok := e.readFlags(options, "create_iterator"); !ok {
		return 0
	}
	pit, err := d.pdb.NewIter(nil)
	if err != nil {
		e.violate("create_iterator on %s: %v", d.name, err)
		return 0
	}

	ih := e.handle()
	e.iters[ih] = &iterator{db: h, pit: pit}
	d.iters[ih] = true
	return ih
}

func (e *Engine) iterDestroy(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.cursor(h, "iter_destroy")
	if !ok {
		return
	}
	i.close()
	delete(e.iters, h)
	if d, ok := e.dbs[i.db]; ok {
		delete(d.iters, h)
	}
}

func (e *Engine) iterValid(h uintptr) uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.cursor(h, "iter_valid")
	if !ok || !i.pit.Valid() {
		return 0
	}
	return 1
}

func (e *Engine) iterSeekToFirst(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.cursor(h, "iter_seek_to_first"); ok {
		i.pit.First()
	}
}

func (e *Engine) iterSeekToLast(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.cursor(h, "iter_seek_to_last"); ok {
		i.pit.Last()
	}
}

func (e *Engine) iterSeek(h uintptr, key unsafe.Pointer, keyLen uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.cursor(h, "iter_seek"); ok {
		i.pit.SeekGE(e.view(key, keyLen))
	}
}

// valid checks the precondition LevelDB asserts for stepping and reading.
func (e *Engine) valid(i *iterator, h uintptr, call string) bool {
	if !i.pit.Valid() {
		e.violate("%s on invalid iterator %#x", call, h)
		return false
	}
	return true
}

func (e *Engine) iterNext(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.cursor(h, "iter_next"); ok && e.valid(i, h, "iter_next") {
		i.pit.Next()
	}
}

func (e *Engine) iterPrev(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.cursor(h, "iter_prev"); ok && e.valid(i, h, "iter_prev") {
		i.pit.Prev()
	}
}

func (e *Engine) iterKey(h uintptr, keyLen *uintptr) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	*keyLen = 0
	i, ok := e.cursor(h, "iter_key")
	if !ok || !e.valid(i, h, "iter_key") {
		return 0
	}
	return borrowed(&i.key, i.pit.Key(), keyLen)
}

func (e *Engine) iterValue(h uintptr, valLen *uintptr) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	*valLen = 0
	i, ok := e.cursor(h, "iter_value")
	if !ok || !e.valid(i, h, "iter_value") {
		return 0
	}
	v, err := i.pit.ValueAndErr()
	if err != nil {
		// pebble keeps the error on the iterator for iter_get_error.
		return 0
	}
	return borrowed(&i.value, v, valLen)
}

func (e *Engine) iterGetError(h uintptr, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.cursor(h, "iter_get_error")
	if !ok {
		return
	}
	switch {
	case e.iterFailure != nil:
		e.setErrRaw(errptr, e.iterFailure)
	case i.pit.Error() != nil:
		e.setErr(errptr, "Corruption: "+i.pit.Error().Error())
	}
}

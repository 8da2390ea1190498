package leveldbtest

import "unsafe"

func (e *Engine) batchCreate() uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.handle()
	e.batches[h] = &batch{}
	return h
}

func (e *Engine) batchDestroy(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.batches[h]; !ok {
		e.violate("destroy of unknown or destroyed batch %#x", h)
		return
	}
	delete(e.batches, h)
}

func (e *Engine) batchPut(h uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.batches[h]
	if !ok {
		e.violate("put on unknown or destroyed batch %#x", h)
		return
	}
	b.ops = append(b.ops, mutation{key: e.view(key, keyLen), value: e.view(val, valLen)})
}

func (e *Engine) batchDelete(h uintptr, key unsafe.Pointer, keyLen uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.batches[h]
	if !ok {
		e.violate("delete on unknown or destroyed batch %#x", h)
		return
	}
	b.ops = append(b.ops, mutation{key: e.view(key, keyLen), delete: true})
}

package leveldbtest

import "github.com/cockroachdb/pebble"

func (w *WriteFlags) pebble() *pebble.WriteOptions {
	if w.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (e *Engine) optionsCreate() uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.handle()
	e.options[h] = &OpenFlags{}
	return h
}

func (e *Engine) optionsDestroy(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.options[h]; !ok {
		e.violate("destroy of unknown or destroyed options %#x", h)
		return
	}
	delete(e.options, h)
}

func (e *Engine) setOpenFlag(h uintptr, name string, set func(*OpenFlags)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.options[h]
	if !ok {
		e.violate("%s on unknown or destroyed options %#x", name, h)
		return
	}
	set(o)
}

func (e *Engine) optionsSetCreateIfMissing(h uintptr, v uint8) {
	e.setOpenFlag(h, "set_create_if_missing", func(o *OpenFlags) { o.CreateIfMissing = v != 0 })
}

func (e *Engine) optionsSetErrorIfExists(h uintptr, v uint8) {
	e.setOpenFlag(h, "set_error_if_exists", func(o *OpenFlags) { o.ErrorIfExists = v != 0 })
}

func (e *Engine) optionsSetParanoidChecks(h uintptr, v uint8) {
	e.setOpenFlag(h, "set_paranoid_checks", func(o *OpenFlags) { o.ParanoidChecks = v != 0 })
}

func (e *Engine) writeOptionsCreate() uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.handle()
	e.writeOptions[h] = &WriteFlags{}
	return h
}

func (e *Engine) writeOptionsDestroy(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.writeOptions[h]; !ok {
		e.violate("destroy of unknown or destroyed write options %#x", h)
		return
	}
	delete(e.writeOptions, h)
}

func (e *Engine) writeOptionsSetSync(h uintptr, v uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.writeOptions[h]
	if !ok {
		e.violate("set_sync on unknown or destroyed write options %#x", h)
		return
	}
	o.Sync = v != 0
}

func (e *Engine) readOptionsCreate() uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.handle()
	e.readOptions[h] = &ReadFlags{FillCache: true}
	return h
}

func (e *Engine) readOptionsDestroy(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.readOptions[h]; !ok {
		e.violate("destroy of unknown or destroyed read options %#x", h)
		return
	}
	delete(e.readOptions, h)
}

func (e *Engine) setReadFlag(h uintptr, name string, set func(*ReadFlags)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.readOptions[h]
	if !ok {
		e.violate("%s on unknown or destroyed read options %#x", name, h)
		return
	}
	set(o)
}

func (e *Engine) readOptionsSetVerifyChecksums(h uintptr, v uint8) {
	e.setReadFlag(h, "set_verify_checksums", func(o *ReadFlags) { o.VerifyChecksums = v != 0 })
}

func (e *Engine) readOptionsSetFillCache(h uintptr, v uint8) {
	e.setReadFlag(h, "set_fill_cache", func(o *ReadFlags) { o.FillCache = v != 0 })
}

// openFlags records the flags of options for LastOpenFlags. e.mu must be held.
func (e *Engine) openFlags(h uintptr, call string) bool {
	o, ok := e.options[h]
	if !ok {
		e.violate("%s with unknown or destroyed options %#x", call, h)
		return false
	}
	e.lastOpen = *o
	return true
}

// writeFlags looks up write options and records them. e.mu must be held.
func (e *Engine) writeFlags(h uintptr, call string) (*WriteFlags, bool) {
	o, ok := e.writeOptions[h]
	if !ok {
		e.violate("%s with unknown or destroyed write options %#x", call, h)
		return nil, false
	}
	e.lastWrite = *o
	return o, true
}

// readFlags looks up read options and records them. e.mu must be held.
func (e *Engine) readFlags(h uintptr, call string) (*ReadFlags, bool) {
	o, ok := e.readOptions[h]
	if !ok {
		e.violate("%s with unknown or destroyed read options %#x", call, h)
		return nil, false
	}
	e.lastRead = *o
	return o, true
}

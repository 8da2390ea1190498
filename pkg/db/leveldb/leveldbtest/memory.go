package leveldbtest

import (
	"unsafe"
)

// alloc copies b into engine memory with a trailing NUL and returns its
// address. e.mu must be held.
func (e *Engine) alloc(b []byte) uintptr {
	buf := make([]byte, len(b)+1)
	copy(buf, b)
	p := uintptr(unsafe.Pointer(&buf[0]))
	e.mem[p] = buf
	e.allocs++
	return p
}

// free is leveldb_free.
func (e *Engine) free(p uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release(p)
}

func (e *Engine) release(p uintptr) {
	switch buf, ok := e.mem[p]; {
	case p == 0:
		e.violate("free of NULL")
	case ok:
		delete(e.mem, p)
		e.freed[p] = true
		// Freed buffers stay reachable so their addresses are never reused
		// and a second free is always recognised.
		e.retired = append(e.retired, buf)
		e.frees++
	case e.freed[p]:
		e.violate("double free of %#x", p)
	default:
		e.violate("free of %#x, which the engine did not allocate", p)
	}
}

// view copies n bytes of caller memory at p.
func (e *Engine) view(p unsafe.Pointer, n uintptr) []byte {
	if n == 0 {
		return []byte{}
	}
	if p == nil {
		e.violate("NULL data pointer with length %d", n)
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

// borrowed returns a buffer owned by the engine object itself, valid until
// the object changes. It is not an allocation and must not be freed.
func borrowed(dst *[]byte, src []byte, n *uintptr) uintptr {
	buf := make([]byte, len(src)+1)
	copy(buf, src)
	*dst = buf
	*n = uintptr(len(src))
	return uintptr(unsafe.Pointer(&buf[0]))
}

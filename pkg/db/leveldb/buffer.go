package leveldb

import (
	"unsafe"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// empty gives zero-length slices a non-NULL address; LevelDB slices may not
// point at NULL even when their length is zero.
var empty [1]byte

// toEngine returns a view of b for a single native call. The caller must keep
// b alive with runtime.KeepAlive until the call returns.
func toEngine(b []byte) (ptr unsafe.Pointer, n uintptr) {
	if len(b) == 0 {
		return unsafe.Pointer(&empty[0]), 0
	}
	return unsafe.Pointer(&b[0]), uintptr(len(b))
}

// fromEngine copies n bytes of an engine-allocated buffer into Go memory and
// releases the buffer with leveldb_free. A NULL pointer yields nil.
func fromEngine(abi *cabi.ABI, ptr, n uintptr) []byte {
	if ptr == 0 {
		return nil
	}
	out := copyView(ptr, n)
	abi.Free(ptr)
	return out
}

// copyView copies n bytes the engine still owns, such as an iterator's
// current key. The result is never nil when ptr is set.
func copyView(ptr, n uintptr) []byte {
	if ptr == 0 {
		return nil
	}
	out := make([]byte, n)
	if n > 0 {
		copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
	}
	return out
}

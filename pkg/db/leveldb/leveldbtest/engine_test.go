package leveldbtest

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

func bytesArg(b []byte) (unsafe.Pointer, uintptr) {
	if len(b) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&b[0]), uintptr(len(b))
}

func openStore(t *testing.T, abi *cabi.ABI, name string) uintptr {
	t.Helper()
	o := abi.OptionsCreate()
	abi.OptionsSetCreateIfMissing(o, 1)
	var errp uintptr
	h := abi.Open(o, name, &errp)
	abi.OptionsDestroy(o)
	require.Zero(t, errp)
	require.NotZero(t, h)
	return h
}

func put(t *testing.T, abi *cabi.ABI, h uintptr, key, value string) {
	t.Helper()
	wo := abi.WriteoptionsCreate()
	defer abi.WriteoptionsDestroy(wo)
	k, kn := bytesArg([]byte(key))
	v, vn := bytesArg([]byte(value))
	var errp uintptr
	abi.Put(h, wo, k, kn, v, vn, &errp)
	require.Zero(t, errp)
}

func TestABIIsComplete(t *testing.T) {
	require.NoError(t, NewEngine().ABI().Validate())
}

func TestCleanUsage(t *testing.T) {
	e := New(t)
	abi := e.ABI()
	h := openStore(t, abi, "db")
	put(t, abi, h, "k", "v")

	ro := abi.ReadoptionsCreate()
	k, kn := bytesArg([]byte("k"))
	var n, errp uintptr
	p := abi.Get(h, ro, k, kn, &n, &errp)
	require.NotZero(t, p)
	assert.Equal(t, "v", string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n)))
	abi.Free(p)

	it := abi.CreateIterator(h, ro)
	abi.ReadoptionsDestroy(ro)
	abi.IterSeekToFirst(it)
	require.Equal(t, uint8(1), abi.IterValid(it))
	kp := abi.IterKey(it, &n)
	assert.Equal(t, "k", string(unsafe.Slice((*byte)(unsafe.Pointer(kp)), n)))
	abi.IterNext(it)
	assert.Zero(t, abi.IterValid(it))
	abi.IterDestroy(it)

	abi.Close(h)
	assert.Empty(t, e.Violations())
	assert.Equal(t, Counts{}, e.Outstanding())
	assert.Equal(t, []string{"db"}, e.Stores())
}

func TestViolations(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, abi *cabi.ABI, h uintptr)
		want string
	}{
		{
			name: "free_null",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				abi.Free(0)
			},
			want: "free of NULL",
		},
		{
			name: "double_free",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				ro := abi.ReadoptionsCreate()
				defer abi.ReadoptionsDestroy(ro)
				k, kn := bytesArg([]byte("k"))
				var n, errp uintptr
				p := abi.Get(h, ro, k, kn, &n, &errp)
				require.NotZero(t, p)
				abi.Free(p)
				abi.Free(p)
			},
			want: "double free",
		},
		{
			name: "free_borrowed_key",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				ro := abi.ReadoptionsCreate()
				defer abi.ReadoptionsDestroy(ro)
				it := abi.CreateIterator(h, ro)
				defer abi.IterDestroy(it)
				abi.IterSeekToFirst(it)
				var n uintptr
				abi.Free(abi.IterKey(it, &n))
			},
			want: "which the engine did not allocate",
		},
		{
			name: "next_on_invalid_iterator",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				ro := abi.ReadoptionsCreate()
				defer abi.ReadoptionsDestroy(ro)
				it := abi.CreateIterator(h, ro)
				defer abi.IterDestroy(it)
				abi.IterSeekToLast(it)
				abi.IterNext(it)
				abi.IterNext(it)
			},
			want: "iter_next on invalid iterator",
		},
		{
			name: "use_after_destroy",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				ro := abi.ReadoptionsCreate()
				abi.ReadoptionsDestroy(ro)
				abi.ReadoptionsDestroy(ro)
			},
			want: "destroy of unknown or destroyed",
		},
		{
			name: "close_with_live_iterator",
			run: func(t *testing.T, abi *cabi.ABI, h uintptr) {
				ro := abi.ReadoptionsCreate()
				defer abi.ReadoptionsDestroy(ro)
				abi.CreateIterator(h, ro)
				abi.Close(h)
				// Reopen so the cleanup below has a handle to close.
				reopened := openStore(t, abi, "db")
				abi.Close(reopened)
			},
			want: "live iterators",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine()
			abi := e.ABI()
			h := openStore(t, abi, "db")
			put(t, abi, h, "k", "v")

			tc.run(t, abi, h)

			violations := e.Violations()
			require.NotEmpty(t, violations)
			assert.Contains(t, violations[0], tc.want)
		})
	}
}

func TestErrorStringsAreAllocations(t *testing.T) {
	e := New(t)
	abi := e.ABI()

	o := abi.OptionsCreate()
	defer abi.OptionsDestroy(o)
	var errp uintptr
	h := abi.Open(o, "missing", &errp)
	assert.Zero(t, h)
	require.NotZero(t, errp)

	outstanding := e.Outstanding()
	assert.Equal(t, 1, outstanding.Buffers)
	abi.Free(errp)

	allocs, frees := e.Allocations()
	assert.Equal(t, 1, allocs)
	assert.Equal(t, 1, frees)
}

func TestFailNextIsConsumed(t *testing.T) {
	e := New(t)
	abi := e.ABI()
	h := openStore(t, abi, "db")
	defer abi.Close(h)

	e.FailNext(OpPut, "IO error: injected")
	wo := abi.WriteoptionsCreate()
	defer abi.WriteoptionsDestroy(wo)
	k, kn := bytesArg([]byte("k"))

	var errp uintptr
	abi.Put(h, wo, k, kn, k, kn, &errp)
	require.NotZero(t, errp)
	abi.Free(errp)

	errp = 0
	abi.Put(h, wo, k, kn, k, kn, &errp)
	assert.Zero(t, errp)
}

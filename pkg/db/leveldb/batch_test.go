package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/leveldb/pkg/db/leveldb/leveldbtest"
)

func TestWriteThenIterate(t *testing.T) {
	d, _ := openDB(t)

	err := d.Write([]KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	require.NoError(t, err)

	it, err := d.NewIterator()
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck // test cleanup

	var got []KV
	for k, v := range it.All() {
		got = append(got, KV{Key: k, Value: v})
	}
	assert.Equal(t, []KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}, got)
}

func TestWriteLaterPairWins(t *testing.T) {
	d, _ := openDB(t)

	require.NoError(t, d.Write([]KV{
		{Key: []byte("k"), Value: []byte("first")},
		{Key: []byte("k"), Value: []byte("second")},
	}, Sync))

	v, found, err := d.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("second"), v)
}

func TestWriteFailureAppliesNothing(t *testing.T) {
	// The engine checks at cleanup that the batch was destroyed.
	d, eng := openDB(t)
	eng.FailNext(leveldbtest.OpWrite, "IO error: no space left")

	err := d.Write([]KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	require.ErrorIs(t, err, ErrOperation)
	assert.Zero(t, eng.Outstanding().Batches)

	for _, k := range []string{"a", "b"} {
		_, found, err := d.Get([]byte(k))
		require.NoError(t, err)
		assert.False(t, found, k)
	}
}

func TestEmptyWrite(t *testing.T) {
	d, _ := openDB(t)
	require.NoError(t, d.Write(nil))
}

func TestBatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, d *DB, eng *leveldbtest.Engine)
	}{
		{
			name: "put_delete_commit",
			fn:   testBatchPutDeleteCommit,
		},
		{
			name: "commit_closure",
			fn:   testBatchCommitClosure,
		},
		{
			name: "reset",
			fn:   testBatchReset,
		},
		{
			name: "failed_commit_can_retry",
			fn:   testBatchRetry,
		},
		{
			name: "inputs_are_copied",
			fn:   testBatchCopiesInputs,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, eng := openDB(t)
			tc.fn(t, d, eng)
		})
	}
}

func testBatchPutDeleteCommit(t *testing.T, d *DB, eng *leveldbtest.Engine) {
	require.NoError(t, d.Put([]byte("stale"), []byte("x")))

	b := d.NewBatch()
	defer b.Close() //nolint:errcheck // idempotent

	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, b.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, b.Delete([]byte("stale")))
	assert.Equal(t, 3, b.Len())

	require.NoError(t, b.Commit(Sync))
	assert.True(t, eng.LastWriteFlags().Sync)

	v, found, err := d.Get([]byte("k2"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v2"), v)

	found, err = d.Has([]byte("stale"))
	require.NoError(t, err)
	assert.False(t, found)
}

func testBatchCommitClosure(t *testing.T, d *DB, _ *leveldbtest.Engine) {
	b := d.NewBatch()
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	require.NoError(t, b.Commit())

	assert.ErrorIs(t, b.Put([]byte("k2"), []byte("v2")), ErrBatchDone)
	assert.ErrorIs(t, b.Delete([]byte("k2")), ErrBatchDone)
	assert.ErrorIs(t, b.Commit(), ErrBatchDone)
	assert.ErrorIs(t, b.Reset(), ErrBatchDone)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())

	closed := d.NewBatch()
	require.NoError(t, closed.Close())
	assert.ErrorIs(t, closed.Put([]byte("k"), nil), ErrBatchDone)
	assert.ErrorIs(t, closed.Reset(), ErrBatchDone)
}

func testBatchReset(t *testing.T, d *DB, _ *leveldbtest.Engine) {
	b := d.NewBatch()
	require.NoError(t, b.Put([]byte("dropped"), []byte("v")))
	require.NoError(t, b.Reset())
	assert.Zero(t, b.Len())

	require.NoError(t, b.Put([]byte("kept"), []byte("v")))
	require.NoError(t, b.Commit())

	found, err := d.Has([]byte("dropped"))
	require.NoError(t, err)
	assert.False(t, found)
	found, err = d.Has([]byte("kept"))
	require.NoError(t, err)
	assert.True(t, found)
}

func testBatchRetry(t *testing.T, d *DB, eng *leveldbtest.Engine) {
	b := d.NewBatch()
	require.NoError(t, b.Put([]byte("k"), []byte("v")))

	eng.FailNext(leveldbtest.OpWrite, "IO error: transient")
	require.ErrorIs(t, b.Commit(), ErrOperation)
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.Commit())
	found, err := d.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
}

func testBatchCopiesInputs(t *testing.T, d *DB, _ *leveldbtest.Engine) {
	key := []byte("key")
	value := []byte("value")

	b := d.NewBatch()
	require.NoError(t, b.Put(key, value))
	key[0], value[0] = 'X', 'X'
	require.NoError(t, b.Commit())

	v, found, err := d.Get([]byte("key"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("value"), v)
}

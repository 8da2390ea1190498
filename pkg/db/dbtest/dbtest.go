// Package dbtest checks that a db.KVStore implementation behaves like the
// others: point operations, atomic batches and ordered, bounded iteration.
package dbtest

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/leveldb/pkg/db"
)

// NewStore returns a fresh, empty store.
type NewStore func(t *testing.T) db.KVStore

// Run runs every case against stores built by newStore.
func Run(t *testing.T, newStore NewStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "delete_operations", fn: testDelete},
		{name: "overwrite", fn: testOverwrite},
		{name: "basic_batch_operations", fn: testBasicBatchOperations},
		{name: "batch_commit_closure", fn: testBatchCommitAndClose},
		{name: "multiple_batches", fn: testMultipleBatches},
		{name: "full_range_iteration", fn: testFullRangeIteration},
		{name: "bounded_range_iteration", fn: testBoundedRangeIteration},
		{name: "iterator_validity", fn: testIteratorValidity},
		{name: "store_closure", fn: testStoreClosure},
		{name: "double_close", fn: testDoubleClose},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close() //nolint:errcheck // closing twice is a no-op

			tc.fn(t, store)
		})
	}
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("delete-test")
	value := []byte("to-be-deleted")

	err := store.Put(key, value)
	require.NoError(t, err)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Delete non-existent key should not error
	err = store.Delete([]byte("non-existent"))
	assert.NoError(t, err)
}

func testOverwrite(t *testing.T, store db.KVStore) {
	key := []byte("k")
	require.NoError(t, store.Put(key, []byte("v1")))
	require.NoError(t, store.Put(key, []byte("v2")))

	v, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func testBasicBatchOperations(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck // closing a committed batch is a no-op

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}

	for i := range keys {
		err := batch.Put(keys[i], values[i])
		require.NoError(t, err)
	}

	// Delete one key in the same batch
	err := batch.Delete(keys[1])
	require.NoError(t, err)

	// Nothing is visible before commit
	_, err = store.Get(keys[0])
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = batch.Commit()
	require.NoError(t, err)

	val1, err := store.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1])
	assert.ErrorIs(t, err, db.ErrNotFound)

	val3, err := store.Get(keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()

	err := batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	// Operations after commit should fail
	err = batch.Put([]byte("key2"), []byte("value2"))
	assert.Error(t, err)

	err = batch.Delete([]byte("key2"))
	assert.Error(t, err)

	err = batch.Commit()
	assert.Error(t, err)

	// Close is idempotent
	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}

func testMultipleBatches(t *testing.T, store db.KVStore) {
	batch1 := store.NewBatch()
	batch2 := store.NewBatch()
	defer batch1.Close() //nolint:errcheck // closing a committed batch is a no-op
	defer batch2.Close() //nolint:errcheck // closing a committed batch is a no-op

	require.NoError(t, batch1.Put([]byte("key1"), []byte("batch1")))
	require.NoError(t, batch2.Put([]byte("key2"), []byte("batch2")))

	require.NoError(t, batch1.Commit())
	require.NoError(t, batch2.Commit())

	val1, err := store.Get([]byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("batch1"), val1)

	val2, err := store.Get([]byte("key2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("batch2"), val2)
}

func testFullRangeIteration(t *testing.T, store db.KVStore) {
	data := map[string]string{
		"d": "value-d",
		"a": "value-a",
		"c": "value-c",
		"b": "value-b",
	}
	for k, v := range data {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // read-only iterator

	assert.Equal(t, sortedKeys(data), collect(t, iter, data))
}

func testBoundedRangeIteration(t *testing.T, store db.KVStore) {
	data := map[string]string{
		"a": "value-a",
		"b": "value-b",
		"c": "value-c",
		"d": "value-d",
		"e": "value-e",
	}
	for k, v := range data {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	// [b, e)
	iter, err := store.NewIterator([]byte("b"), []byte("e"))
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // read-only iterator

	assert.Equal(t, []string{"b", "c", "d"}, collect(t, iter, data))
}

func testIteratorValidity(t *testing.T, store db.KVStore) {
	testData := map[string]string{
		"key1": "value1",
		"key2": "value2",
	}
	for k, v := range testData {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // read-only iterator

	// Initial state - iterator is not positioned
	assert.False(t, iter.Valid())

	assert.True(t, iter.Next())
	assert.True(t, iter.Valid())
	assert.Equal(t, []byte("key1"), iter.Key())
	val, err := iter.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)

	assert.True(t, iter.Next())
	assert.Equal(t, []byte("key2"), iter.Key())

	// No more elements, and exhaustion is sticky
	assert.False(t, iter.Next())
	assert.False(t, iter.Valid())
	assert.False(t, iter.Next())

	_, err = iter.Value()
	assert.Error(t, err)
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	assert.Error(t, err)

	err = store.Put([]byte("key"), []byte("value"))
	assert.Error(t, err)

	err = store.Delete([]byte("key"))
	assert.Error(t, err)

	_, err = store.NewIterator(nil, nil)
	assert.Error(t, err)
}

func testDoubleClose(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("key"), []byte("value")))

	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	assert.Error(t, err)
}

// collect drains iter, checking every value against data, and returns the keys
// in iteration order.
func collect(t *testing.T, iter db.Iterator, data map[string]string) []string {
	var keys []string
	for iter.Next() {
		key := string(iter.Key())
		value, err := iter.Value()
		require.NoError(t, err)

		expected, exists := data[key]
		assert.True(t, exists, key)
		assert.Equal(t, []byte(expected), value)
		keys = append(keys, key)
	}
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

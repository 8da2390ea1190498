package leveldb

import (
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/leveldb/pkg/db/leveldb/leveldbtest"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		kind    Kind
		matches error
		others  []error
	}{
		{KindOpen, ErrOpen, []error{ErrOperation, ErrIterator, ErrUsage}},
		{KindOperation, ErrOperation, []error{ErrOpen, ErrIterator, ErrUsage}},
		{KindIterator, ErrIterator, []error{ErrOpen, ErrOperation, ErrUsage}},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{Kind: tc.kind, Op: "x", Msg: "boom"})
			assert.ErrorIs(t, err, tc.matches)
			for _, other := range tc.others {
				assert.NotErrorIs(t, err, other)
			}
		})
	}
}

func TestUsageErrors(t *testing.T) {
	for _, err := range []error{ErrClosed, ErrIteratorInvalid, ErrIteratorReleased, ErrBatchDone} {
		assert.ErrorIs(t, err, ErrUsage, err.Error())
		assert.NotErrorIs(t, err, ErrOperation)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "open", KindOpen.String())
	assert.Equal(t, "operation", KindOperation.String())
	assert.Equal(t, "iterator", KindIterator.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestMalformedEngineMessage(t *testing.T) {
	d, eng := openDB(t)
	raw := []byte("IO error: \xff\xfe bad bytes")
	eng.FailNextRaw(leveldbtest.OpPut, raw)

	err := d.Put([]byte("k"), []byte("v"))
	require.Error(t, err)

	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	assert.True(t, utf8.ValidString(lerr.Msg))
	assert.Contains(t, lerr.Msg, "IO error: ")
	assert.Contains(t, lerr.Msg, "bad bytes")
	assert.Equal(t, raw, lerr.Raw)

	allocs, frees := eng.Allocations()
	assert.Equal(t, allocs, frees, "error string freed")
}

func TestEmptyEngineMessage(t *testing.T) {
	d, eng := openDB(t)
	eng.FailNext(leveldbtest.OpDelete, "")

	err := d.Delete([]byte("k"))
	require.ErrorIs(t, err, ErrOperation)
	assert.EqualError(t, err, "leveldb: delete: unknown engine error")
}

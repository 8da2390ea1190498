package leveldb

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// Kind classifies errors reported by the engine.
type Kind uint8

const (
	// KindOpen means the store could not be opened or created.
	KindOpen Kind = iota + 1
	// KindOperation means a call on an open handle failed.
	KindOperation
	// KindIterator is a terminal cursor error surfaced by Iterator.Err.
	KindIterator
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindOperation:
		return "operation"
	case KindIterator:
		return "iterator"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against engine-reported failures.
var (
	ErrOpen      = errors.New("leveldb: open failure")
	ErrOperation = errors.New("leveldb: operation failure")
	ErrIterator  = errors.New("leveldb: iterator failure")
)

// Usage errors. These are caller bugs, never engine failures.
var (
	ErrUsage            = errors.New("leveldb: usage error")
	ErrClosed           = fmt.Errorf("%w: database is closed", ErrUsage)
	ErrIteratorInvalid  = fmt.Errorf("%w: iterator is not positioned", ErrUsage)
	ErrIteratorReleased = fmt.Errorf("%w: iterator is released", ErrUsage)
	ErrBatchDone        = fmt.Errorf("%w: batch already committed or closed", ErrUsage)
)

// Error is an engine-reported failure.
type Error struct {
	Kind Kind
	// Op is the binding operation, e.g. "put".
	Op string
	// Msg is the engine message with invalid UTF-8 replaced.
	Msg string
	// Raw holds the engine message bytes as received.
	Raw []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("leveldb: %s: %s", e.Op, e.Msg)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrOpen:
		return e.Kind == KindOpen
	case ErrOperation:
		return e.Kind == KindOperation
	case ErrIterator:
		return e.Kind == KindIterator
	}
	return false
}

// call runs fn with a fresh error out-parameter. When the engine sets it, the
// message is copied, the native string is freed and fn's result is dropped.
func call[T any](abi *cabi.ABI, kind Kind, op string, fn func(errptr *uintptr) T) (T, error) {
	var errp uintptr
	v := fn(&errp)
	if errp == 0 {
		return v, nil
	}
	var zero T
	return zero, takeError(abi, kind, op, errp)
}

// callErr is call for entry points without a result.
func callErr(abi *cabi.ABI, kind Kind, op string, fn func(errptr *uintptr)) error {
	_, err := call(abi, kind, op, func(errptr *uintptr) struct{} {
		fn(errptr)
		return struct{}{}
	})
	return err
}

// takeError converts a non-NULL engine error string and frees it.
func takeError(abi *cabi.ABI, kind Kind, op string, errp uintptr) *Error {
	raw := []byte(unix.BytePtrToString((*byte)(unsafe.Pointer(errp))))
	abi.Free(errp)

	msg := string(raw)
	if !utf8.Valid(raw) {
		msg = strings.ToValidUTF8(msg, "�")
	}
	if msg == "" {
		msg = "unknown engine error"
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Raw: raw}
}

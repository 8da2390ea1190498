// Package cabi declares the LevelDB C entry points the binding calls and loads
// them from a shared library.
//
// Every handle (database, options, batch, iterator) is an opaque uintptr.
// purego on ARM64 doesn't support slices, so Go memory handed to the engine is
// the unsafe.Pointer of its first element plus a length, and callers keep the
// slice alive with runtime.KeepAlive until the call returns. Memory the engine
// returns is a uintptr. Out-parameters (char** errptr, size_t* len) are *uintptr.
package cabi

import (
	"fmt"
	"reflect"
	"unsafe"
)

// ABI is the table of native functions. A zero field means the symbol was not
// registered.
type ABI struct {
	Open  func(options uintptr, name string, errptr *uintptr) uintptr
	Close func(db uintptr)

	Put    func(db, options uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr, errptr *uintptr)
	Delete func(db, options uintptr, key unsafe.Pointer, keyLen uintptr, errptr *uintptr)
	Write  func(db, options, batch uintptr, errptr *uintptr)
	Get    func(db, options uintptr, key unsafe.Pointer, keyLen uintptr, valLen *uintptr, errptr *uintptr) uintptr

	CreateIterator  func(db, options uintptr) uintptr
	IterDestroy     func(it uintptr)
	IterValid       func(it uintptr) uint8
	IterSeekToFirst func(it uintptr)
	IterSeekToLast  func(it uintptr)
	IterSeek        func(it uintptr, key unsafe.Pointer, keyLen uintptr)
	IterNext        func(it uintptr)
	IterPrev        func(it uintptr)
	IterKey         func(it uintptr, keyLen *uintptr) uintptr
	IterValue       func(it uintptr, valLen *uintptr) uintptr
	IterGetError    func(it uintptr, errptr *uintptr)

	WritebatchCreate  func() uintptr
	WritebatchDestroy func(batch uintptr)
	WritebatchPut     func(batch uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr)
	WritebatchDelete  func(batch uintptr, key unsafe.Pointer, keyLen uintptr)

	OptionsCreate             func() uintptr
	OptionsDestroy            func(options uintptr)
	OptionsSetCreateIfMissing func(options uintptr, v uint8)
	OptionsSetErrorIfExists   func(options uintptr, v uint8)
	OptionsSetParanoidChecks  func(options uintptr, v uint8)

	WriteoptionsCreate  func() uintptr
	WriteoptionsDestroy func(options uintptr)
	WriteoptionsSetSync func(options uintptr, v uint8)

	ReadoptionsCreate             func() uintptr
	ReadoptionsDestroy            func(options uintptr)
	ReadoptionsSetVerifyChecksums func(options uintptr, v uint8)
	ReadoptionsSetFillCache       func(options uintptr, v uint8)

	Free func(ptr uintptr)

	DestroyDB func(options uintptr, name string, errptr *uintptr)
	RepairDB  func(options uintptr, name string, errptr *uintptr)

	MajorVersion func() int32
	MinorVersion func() int32
}

type symbol struct {
	name string
	fn   any
}

// symbols pairs each field with its C name. fn holds a pointer to the field.
func (a *ABI) symbols() []symbol {
	return []symbol{
		{"leveldb_open", &a.Open},
		{"leveldb_close", &a.Close},
		{"leveldb_put", &a.Put},
		{"leveldb_delete", &a.Delete},
		{"leveldb_write", &a.Write},
		{"leveldb_get", &a.Get},
		{"leveldb_create_iterator", &a.CreateIterator},
		{"leveldb_iter_destroy", &a.IterDestroy},
		{"leveldb_iter_valid", &a.IterValid},
		{"leveldb_iter_seek_to_first", &a.IterSeekToFirst},
		{"leveldb_iter_seek_to_last", &a.IterSeekToLast},
		{"leveldb_iter_seek", &a.IterSeek},
		{"leveldb_iter_next", &a.IterNext},
		{"leveldb_iter_prev", &a.IterPrev},
		{"leveldb_iter_key", &a.IterKey},
		{"leveldb_iter_value", &a.IterValue},
		{"leveldb_iter_get_error", &a.IterGetError},
		{"leveldb_writebatch_create", &a.WritebatchCreate},
		{"leveldb_writebatch_destroy", &a.WritebatchDestroy},
		{"leveldb_writebatch_put", &a.WritebatchPut},
		{"leveldb_writebatch_delete", &a.WritebatchDelete},
		{"leveldb_options_create", &a.OptionsCreate},
		{"leveldb_options_destroy", &a.OptionsDestroy},
		{"leveldb_options_set_create_if_missing", &a.OptionsSetCreateIfMissing},
		{"leveldb_options_set_error_if_exists", &a.OptionsSetErrorIfExists},
		{"leveldb_options_set_paranoid_checks", &a.OptionsSetParanoidChecks},
		{"leveldb_writeoptions_create", &a.WriteoptionsCreate},
		{"leveldb_writeoptions_destroy", &a.WriteoptionsDestroy},
		{"leveldb_writeoptions_set_sync", &a.WriteoptionsSetSync},
		{"leveldb_readoptions_create", &a.ReadoptionsCreate},
		{"leveldb_readoptions_destroy", &a.ReadoptionsDestroy},
		{"leveldb_readoptions_set_verify_checksums", &a.ReadoptionsSetVerifyChecksums},
		{"leveldb_readoptions_set_fill_cache", &a.ReadoptionsSetFillCache},
		{"leveldb_free", &a.Free},
		{"leveldb_destroy_db", &a.DestroyDB},
		{"leveldb_repair_db", &a.RepairDB},
		{"leveldb_major_version", &a.MajorVersion},
		{"leveldb_minor_version", &a.MinorVersion},
	}
}

// Validate reports the first entry point that is not set.
func (a *ABI) Validate() error {
	for _, s := range a.symbols() {
		if reflect.ValueOf(s.fn).Elem().IsNil() {
			return fmt.Errorf("cabi: missing entry point %s", s.name)
		}
	}
	return nil
}

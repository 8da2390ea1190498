// Package leveldbtest provides an in-process implementation of the LevelDB C
// entry points for testing code that talks to LevelDB through cabi.ABI.
//
// Stores live in an in-memory pebble filesystem private to the Engine. Every
// buffer and error string the Engine hands out is real memory, and every
// allocation, release and handle is accounted for. Misuse that would crash
// or corrupt a real LevelDB (double free, freeing NULL, freeing a cursor's
// key, using a destroyed handle, stepping an invalid iterator, closing a
// database with live iterators) is recorded as a violation instead.
package leveldbtest

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"unsafe"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
	pebbledb "github.com/eigerco/leveldb/pkg/db/pebble"
	"github.com/eigerco/leveldb/pkg/log"
)

// Engine versions reported by MajorVersion and MinorVersion.
const (
	MajorVersion = 1
	MinorVersion = 23
)

// Op names an engine call that can be made to fail.
type Op string

const (
	OpOpen    Op = "open"
	OpGet     Op = "get"
	OpPut     Op = "put"
	OpDelete  Op = "delete"
	OpWrite   Op = "write"
	OpDestroy Op = "destroy"
	OpRepair  Op = "repair"
)

// OpenFlags mirrors leveldb_options_t.
type OpenFlags struct {
	CreateIfMissing bool
	ErrorIfExists   bool
	ParanoidChecks  bool
}

// WriteFlags mirrors leveldb_writeoptions_t.
type WriteFlags struct {
	Sync bool
}

// ReadFlags mirrors leveldb_readoptions_t. FillCache defaults to true.
type ReadFlags struct {
	VerifyChecksums bool
	FillCache       bool
}

// Counts is the number of live native objects of each kind.
type Counts struct {
	Buffers      int
	Options      int
	WriteOptions int
	ReadOptions  int
	Batches      int
	Iterators    int
	Databases    int
}

func (c Counts) Total() int {
	return c.Buffers + c.Options + c.WriteOptions + c.ReadOptions + c.Batches + c.Iterators + c.Databases
}

// Engine is a fake LevelDB shared library. It is safe for concurrent use.
type Engine struct {
	fs vfs.FS

	mu         sync.Mutex
	nextHandle uintptr

	dbs          map[uintptr]*database
	locks        map[string]uintptr
	created      map[string]bool
	options      map[uintptr]*OpenFlags
	writeOptions map[uintptr]*WriteFlags
	readOptions  map[uintptr]*ReadFlags
	batches      map[uintptr]*batch
	iters        map[uintptr]*iterator

	mem     map[uintptr][]byte
	freed   map[uintptr]bool
	retired [][]byte
	allocs  int
	frees   int

	failures    map[Op][]byte
	iterFailure []byte
	violations  []string

	lastOpen  OpenFlags
	lastWrite WriteFlags
	lastRead  ReadFlags
}

type database struct {
	name  string
	pdb   *pebble.DB
	iters map[uintptr]bool
}

type mutation struct {
	key, value []byte
	delete     bool
}

type batch struct {
	ops []mutation
}

// New returns an Engine whose state is checked when t finishes: any
// violation or leaked native object fails the test.
func New(t testing.TB) *Engine {
	e := NewEngine()
	t.Cleanup(func() {
		e.Verify(t)
	})
	return e
}

// NewEngine returns an Engine with no cleanup hook.
func NewEngine() *Engine {
	return &Engine{
		fs:           vfs.NewMem(),
		nextHandle:   0x1000,
		dbs:          make(map[uintptr]*database),
		locks:        make(map[string]uintptr),
		created:      make(map[string]bool),
		options:      make(map[uintptr]*OpenFlags),
		writeOptions: make(map[uintptr]*WriteFlags),
		readOptions:  make(map[uintptr]*ReadFlags),
		batches:      make(map[uintptr]*batch),
		iters:        make(map[uintptr]*iterator),
		mem:          make(map[uintptr][]byte),
		freed:        make(map[uintptr]bool),
		failures:     make(map[Op][]byte),
	}
}

// ABI returns the entry point table.
func (e *Engine) ABI() *cabi.ABI {
	return &cabi.ABI{
		Open:   e.open,
		Close:  e.closeDB,
		Put:    e.put,
		Delete: e.delete,
		Write:  e.write,
		Get:    e.get,

		CreateIterator:  e.createIterator,
		IterDestroy:     e.iterDestroy,
		IterValid:       e.iterValid,
		IterSeekToFirst: e.iterSeekToFirst,
		IterSeekToLast:  e.iterSeekToLast,
		IterSeek:        e.iterSeek,
		IterNext:        e.iterNext,
		IterPrev:        e.iterPrev,
		IterKey:         e.iterKey,
		IterValue:       e.iterValue,
		IterGetError:    e.iterGetError,

		WritebatchCreate:  e.batchCreate,
		WritebatchDestroy: e.batchDestroy,
		WritebatchPut:     e.batchPut,
		WritebatchDelete:  e.batchDelete,

		OptionsCreate:             e.optionsCreate,
		OptionsDestroy:            e.optionsDestroy,
		OptionsSetCreateIfMissing: e.optionsSetCreateIfMissing,
		OptionsSetErrorIfExists:   e.optionsSetErrorIfExists,
		OptionsSetParanoidChecks:  e.optionsSetParanoidChecks,

		WriteoptionsCreate:  e.writeOptionsCreate,
		WriteoptionsDestroy: e.writeOptionsDestroy,
		WriteoptionsSetSync: e.writeOptionsSetSync,

		ReadoptionsCreate:             e.readOptionsCreate,
		ReadoptionsDestroy:            e.readOptionsDestroy,
		ReadoptionsSetVerifyChecksums: e.readOptionsSetVerifyChecksums,
		ReadoptionsSetFillCache:       e.readOptionsSetFillCache,

		Free: e.free,

		DestroyDB: e.destroyDB,
		RepairDB:  e.repairDB,

		MajorVersion: func() int32 { return MajorVersion },
		MinorVersion: func() int32 { return MinorVersion },
	}
}

// FailNext makes the next call of op fail with msg.
func (e *Engine) FailNext(op Op, msg string) {
	e.FailNextRaw(op, []byte(msg))
}

// FailNextRaw makes the next call of op fail with raw as the error string.
// raw need not be valid UTF-8.
func (e *Engine) FailNextRaw(op Op, raw []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op] = append([]byte(nil), raw...)
}

// FailIterators makes every iterator report msg from leveldb_iter_get_error.
// An empty msg clears it.
func (e *Engine) FailIterators(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if msg == "" {
		e.iterFailure = nil
		return
	}
	e.iterFailure = []byte(msg)
}

// LastOpenFlags are the options of the most recent open, destroy or repair.
func (e *Engine) LastOpenFlags() OpenFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOpen
}

// LastWriteFlags are the options of the most recent put, delete or write.
func (e *Engine) LastWriteFlags() WriteFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastWrite
}

// LastReadFlags are the options of the most recent get or iterator creation.
func (e *Engine) LastReadFlags() ReadFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRead
}

// Outstanding counts native objects not yet released.
func (e *Engine) Outstanding() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Counts{
		Buffers:      len(e.mem),
		Options:      len(e.options),
		WriteOptions: len(e.writeOptions),
		ReadOptions:  len(e.readOptions),
		Batches:      len(e.batches),
		Iterators:    len(e.iters),
		Databases:    len(e.dbs),
	}
}

// Allocations reports how many buffers were handed out and how many were freed.
func (e *Engine) Allocations() (allocs, frees int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allocs, e.frees
}

// Violations lists recorded misuse, oldest first.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

// Verify fails t on violations or leaked objects, then closes any store left open.
func (e *Engine) Verify(t testing.TB) {
	t.Helper()
	assert.Empty(t, e.Violations(), "leveldb engine violations")
	assert.Zero(t, e.Outstanding(), "leaked native objects")

	e.mu.Lock()
	defer e.mu.Unlock()
	for h, d := range e.dbs {
		for ih := range d.iters {
			e.iters[ih].close()
			delete(e.iters, ih)
		}
		if err := d.pdb.Close(); err != nil {
			t.Errorf("close leaked store %s: %v", d.name, err)
		}
		delete(e.dbs, h)
	}
}

func (e *Engine) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.FFI.Warn().Str("violation", msg).Msg("leveldb engine misuse")
	e.violations = append(e.violations, msg)
}

func (e *Engine) handle() uintptr {
	e.nextHandle += 8
	return e.nextHandle
}

// fail consumes an injected failure for op. e.mu must be held.
func (e *Engine) fail(op Op, errptr *uintptr) bool {
	raw, ok := e.failures[op]
	if !ok {
		return false
	}
	delete(e.failures, op)
	e.setErrRaw(errptr, raw)
	return true
}

func (e *Engine) setErr(errptr *uintptr, msg string) {
	e.setErrRaw(errptr, []byte(msg))
}

// setErrRaw stores a NUL-terminated copy of raw in *errptr. Like LevelDB, a
// previous message is freed first, but callers are expected to pass NULL.
func (e *Engine) setErrRaw(errptr *uintptr, raw []byte) {
	if errptr == nil {
		e.violate("error out-parameter is NULL")
		return
	}
	if *errptr != 0 {
		e.violate("error out-parameter not cleared before call")
		e.release(*errptr)
	}
	*errptr = e.alloc(raw)
}

func (e *Engine) database(h uintptr, call string) (*database, bool) {
	d, ok := e.dbs[h]
	if !ok {
		e.violate("%s on unknown or closed database %#x", call, h)
	}
	return d, ok
}

func (e *Engine) open(options uintptr, name string, errptr *uintptr) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	flags, ok := e.options[options]
	if !ok {
		e.violate("open with unknown options %#x", options)
		return 0
	}
	e.lastOpen = *flags
	if e.fail(OpOpen, errptr) {
		return 0
	}
	if _, busy := e.locks[name]; busy {
		e.setErr(errptr, fmt.Sprintf("IO error: lock %s/LOCK: already held by process", name))
		return 0
	}
	exists := e.created[name]
	switch {
	case !exists && !flags.CreateIfMissing:
		e.setErr(errptr, fmt.Sprintf("Invalid argument: %s: does not exist (create_if_missing is false)", name))
		return 0
	case exists && flags.ErrorIfExists:
		e.setErr(errptr, fmt.Sprintf("Invalid argument: %s: exists (error_if_exists is true)", name))
		return 0
	}

	pdb, err := pebble.Open(name, &pebble.Options{
		FS:     e.fs,
		Logger: pebbledb.Logger{Logger: log.FFI},
	})
	if err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
		return 0
	}

	h := e.handle()
	e.dbs[h] = &database{name: name, pdb: pdb, iters: make(map[uintptr]bool)}
	e.locks[name] = h
	e.created[name] = true
	return h
}

func (e *Engine) closeDB(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.database(h, "close")
	if !ok {
		return
	}
	if len(d.iters) > 0 {
		e.violate("close of %s with %d live iterators", d.name, len(d.iters))
		for ih := range d.iters {
			e.iters[ih].close()
			delete(e.iters, ih)
		}
	}
	if err := d.pdb.Close(); err != nil {
		e.violate("close of %s: %v", d.name, err)
	}
	delete(e.dbs, h)
	delete(e.locks, d.name)
}

func (e *Engine) put(h, options uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.database(h, "put")
	if !ok {
		return
	}
	w, ok := e.writeFlags(options, "put")
	if !ok {
		return
	}
	if e.fail(OpPut, errptr) {
		return
	}
	if err := d.pdb.Set(e.view(key, keyLen), e.view(val, valLen), w.pebble()); err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
	}
}

func (e *Engine) delete(h, options uintptr, key unsafe.Pointer, keyLen uintptr, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.database(h, "delete")
	if !ok {
		return
	}
	w, ok := e.writeFlags(options, "delete")
	if !ok {
		return
	}
	if e.fail(OpDelete, errptr) {
		return
	}
	if err := d.pdb.Delete(e.view(key, keyLen), w.pebble()); err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
	}
}

func (e *Engine) get(h, options uintptr, key unsafe.Pointer, keyLen uintptr, valLen *uintptr, errptr *uintptr) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	*valLen = 0
	d, ok := e.database(h, "get")
	if !ok {
		return 0
	}
	if _, ok := e.readFlags(options, "get"); !ok {
		return 0
	}
	if e.fail(OpGet, errptr) {
		return 0
	}

	v, closer, err := d.pdb.Get(e.view(key, keyLen))
	if err == pebble.ErrNotFound {
		return 0
	}
	if err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
		return 0
	}
	defer closer.Close() //nolint:errcheck // closing a get result cannot fail

	*valLen = uintptr(len(v))
	return e.alloc(v)
}

func (e *Engine) write(h, options, b uintptr, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.database(h, "write")
	if !ok {
		return
	}
	w, ok := e.writeFlags(options, "write")
	if !ok {
		return
	}
	wb, ok := e.batches[b]
	if !ok {
		e.violate("write of unknown or destroyed batch %#x", b)
		return
	}
	if e.fail(OpWrite, errptr) {
		return
	}

	pb := d.pdb.NewBatch()
	defer pb.Close() //nolint:errcheck // released after commit
	for _, m := range wb.ops {
		var err error
		if m.delete {
			err = pb.Delete(m.key, nil)
		} else {
			err = pb.Set(m.key, m.value, nil)
		}
		if err != nil {
			e.setErr(errptr, "IO error: "+err.Error())
			return
		}
	}
	if err := pb.Commit(w.pebble()); err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
	}
}

func (e *Engine) destroyDB(options uintptr, name string, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.openFlags(options, "destroy") {
		return
	}
	if e.fail(OpDestroy, errptr) {
		return
	}
	if _, busy := e.locks[name]; busy {
		e.setErr(errptr, fmt.Sprintf("IO error: lock %s/LOCK: already held by process", name))
		return
	}
	if !e.created[name] {
		return
	}
	if err := e.fs.RemoveAll(name); err != nil {
		e.setErr(errptr, "IO error: "+err.Error())
		return
	}
	delete(e.created, name)
}

func (e *Engine) repairDB(options uintptr, name string, errptr *uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.openFlags(options, "repair") {
		return
	}
	if e.fail(OpRepair, errptr) {
		return
	}
	if _, busy := e.locks[name]; busy {
		e.setErr(errptr, fmt.Sprintf("IO error: lock %s/LOCK: already held by process", name))
		return
	}
	if !e.created[name] {
		e.setErr(errptr, fmt.Sprintf("Invalid argument: %s: does not exist", name))
	}
}

// Stores lists the stores that currently exist, sorted.
func (e *Engine) Stores() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.created))
	for n := range e.created {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

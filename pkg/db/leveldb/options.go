package leveldb

import (
	"fmt"
	"strings"

	"github.com/eigerco/leveldb/pkg/db/leveldb/cabi"
)

// OpenOption configures Open, DestroyDB and RepairDB.
type OpenOption uint8

const (
	CreateIfMissing OpenOption = iota + 1
	ErrorIfExists
	ParanoidChecks
)

// WriteOption configures Put, Delete and Write.
type WriteOption uint8

const (
	Sync WriteOption = iota + 1
)

// ReadOption configures Get and NewIterator.
type ReadOption uint8

const (
	VerifyChecksums ReadOption = iota + 1
	FillCache
)

var (
	openOptionNames = map[OpenOption]string{
		CreateIfMissing: "create_if_missing",
		ErrorIfExists:   "error_if_exists",
		ParanoidChecks:  "paranoid_checks",
	}
	writeOptionNames = map[WriteOption]string{
		Sync: "sync",
	}
	readOptionNames = map[ReadOption]string{
		VerifyChecksums: "verify_checksums",
		FillCache:       "fill_cache",
	}
)

func (o OpenOption) String() string  { return optionName(openOptionNames, o) }
func (o WriteOption) String() string { return optionName(writeOptionNames, o) }
func (o ReadOption) String() string  { return optionName(readOptionNames, o) }

func (o OpenOption) MarshalText() ([]byte, error)  { return marshalOption(openOptionNames, o) }
func (o WriteOption) MarshalText() ([]byte, error) { return marshalOption(writeOptionNames, o) }
func (o ReadOption) MarshalText() ([]byte, error)  { return marshalOption(readOptionNames, o) }

func (o *OpenOption) UnmarshalText(text []byte) error {
	return unmarshalOption(openOptionNames, o, text)
}

func (o *WriteOption) UnmarshalText(text []byte) error {
	return unmarshalOption(writeOptionNames, o, text)
}

func (o *ReadOption) UnmarshalText(text []byte) error {
	return unmarshalOption(readOptionNames, o, text)
}

func optionName[O ~uint8](names map[O]string, o O) string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("option(%d)", uint8(o))
}

func marshalOption[O ~uint8](names map[O]string, o O) ([]byte, error) {
	n, ok := names[o]
	if !ok {
		return nil, fmt.Errorf("leveldb: unknown option %d", uint8(o))
	}
	return []byte(n), nil
}

func unmarshalOption[O ~uint8](names map[O]string, o *O, text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for v, n := range names {
		if n == s {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("leveldb: unknown option %q", text)
}

// buildOptions creates a native leveldb_options_t. The caller destroys it.
func buildOptions(abi *cabi.ABI, opts []OpenOption) uintptr {
	o := abi.OptionsCreate()
	for _, opt := range opts {
		switch opt {
		case CreateIfMissing:
			abi.OptionsSetCreateIfMissing(o, 1)
		case ErrorIfExists:
			abi.OptionsSetErrorIfExists(o, 1)
		case ParanoidChecks:
			abi.OptionsSetParanoidChecks(o, 1)
		}
	}
	return o
}

// buildWriteOptions creates a native leveldb_writeoptions_t. The caller destroys it.
func buildWriteOptions(abi *cabi.ABI, opts []WriteOption) uintptr {
	o := abi.WriteoptionsCreate()
	for _, opt := range opts {
		if opt == Sync {
			abi.WriteoptionsSetSync(o, 1)
		}
	}
	return o
}

// buildReadOptions creates a native leveldb_readoptions_t. The caller destroys it.
func buildReadOptions(abi *cabi.ABI, opts []ReadOption) uintptr {
	o := abi.ReadoptionsCreate()
	for _, opt := range opts {
		switch opt {
		case VerifyChecksums:
			abi.ReadoptionsSetVerifyChecksums(o, 1)
		case FillCache:
			abi.ReadoptionsSetFillCache(o, 1)
		}
	}
	return o
}

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/leveldb/pkg/db/leveldb/leveldbtest"
)

func TestOpenOptionTranslation(t *testing.T) {
	tests := []struct {
		name string
		opts []OpenOption
		want leveldbtest.OpenFlags
	}{
		{
			name: "create_if_missing",
			opts: []OpenOption{CreateIfMissing},
			want: leveldbtest.OpenFlags{CreateIfMissing: true},
		},
		{
			name: "all",
			opts: []OpenOption{CreateIfMissing, ErrorIfExists, ParanoidChecks},
			want: leveldbtest.OpenFlags{CreateIfMissing: true, ErrorIfExists: true, ParanoidChecks: true},
		},
		{
			name: "duplicates",
			opts: []OpenOption{ParanoidChecks, CreateIfMissing, ParanoidChecks},
			want: leveldbtest.OpenFlags{CreateIfMissing: true, ParanoidChecks: true},
		},
		{
			name: "unknown_values_ignored",
			opts: []OpenOption{CreateIfMissing, OpenOption(42)},
			want: leveldbtest.OpenFlags{CreateIfMissing: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lib, eng := newLibrary(t)
			d, err := lib.Open("store", tc.opts...)
			require.NoError(t, err)
			require.NoError(t, d.Close())

			assert.Equal(t, tc.want, eng.LastOpenFlags())
			assert.Zero(t, eng.Outstanding().Options)
		})
	}
}

func TestWriteOptionTranslation(t *testing.T) {
	d, eng := openDB(t)

	require.NoError(t, d.Put([]byte("k"), []byte("v")))
	assert.Equal(t, leveldbtest.WriteFlags{}, eng.LastWriteFlags())

	require.NoError(t, d.Delete([]byte("k"), Sync))
	assert.Equal(t, leveldbtest.WriteFlags{Sync: true}, eng.LastWriteFlags())
	assert.Zero(t, eng.Outstanding().WriteOptions)
}

func TestReadOptionTranslation(t *testing.T) {
	d, eng := openDB(t)

	_, _, err := d.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, leveldbtest.ReadFlags{FillCache: true}, eng.LastReadFlags())

	_, _, err = d.Get([]byte("k"), VerifyChecksums)
	require.NoError(t, err)
	assert.Equal(t, leveldbtest.ReadFlags{VerifyChecksums: true, FillCache: true}, eng.LastReadFlags())

	it, err := d.NewIterator(VerifyChecksums, FillCache)
	require.NoError(t, err)
	require.NoError(t, it.Close())
	assert.Equal(t, leveldbtest.ReadFlags{VerifyChecksums: true, FillCache: true}, eng.LastReadFlags())
	assert.Zero(t, eng.Outstanding().ReadOptions)
}

func TestOptionText(t *testing.T) {
	tests := []struct {
		text string
		opt  interface {
			MarshalText() ([]byte, error)
			String() string
		}
	}{
		{"create_if_missing", CreateIfMissing},
		{"error_if_exists", ErrorIfExists},
		{"paranoid_checks", ParanoidChecks},
		{"sync", Sync},
		{"verify_checksums", VerifyChecksums},
		{"fill_cache", FillCache},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			b, err := tc.opt.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tc.text, string(b))
			assert.Equal(t, tc.text, tc.opt.String())
		})
	}

	var o OpenOption
	require.NoError(t, o.UnmarshalText([]byte(" Paranoid_Checks ")))
	assert.Equal(t, ParanoidChecks, o)

	var w WriteOption
	assert.Error(t, w.UnmarshalText([]byte("fsync")))

	var r ReadOption
	require.NoError(t, r.UnmarshalText([]byte("fill_cache")))
	assert.Equal(t, FillCache, r)

	_, err := OpenOption(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "option(9)", OpenOption(9).String())
}

package leveldb

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// TestMatchesModel applies random puts, deletes and batch writes to a store
// and to a map, then checks point reads and ordered iteration in both
// directions against the map.
func TestMatchesModel(t *testing.T) {
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewSource(seed))

	d, _ := openDB(t)
	model := map[string]string{}

	key := func() string { return fmt.Sprintf("k%03d", rng.Intn(200)) }
	value := func() string {
		b := make([]byte, rng.Intn(16))
		for i := range b {
			b[i] = byte(rng.Intn(256))
		}
		return string(b)
	}

	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0, 1:
			k, v := key(), value()
			require.NoError(t, d.Put([]byte(k), []byte(v)))
			model[k] = v
		case 2:
			k := key()
			require.NoError(t, d.Delete([]byte(k)))
			delete(model, k)
		case 3:
			var pairs []KV
			for j := rng.Intn(5); j > 0; j-- {
				k, v := key(), value()
				pairs = append(pairs, KV{Key: []byte(k), Value: []byte(v)})
				model[k] = v
			}
			require.NoError(t, d.Write(pairs))
		}
	}

	for i := 0; i < 200; i++ {
		k := fmt.Sprintf("k%03d", i)
		v, found, err := d.Get([]byte(k))
		require.NoError(t, err)
		want, ok := model[k]
		require.Equal(t, ok, found, k)
		if ok {
			assert.Equal(t, want, string(v), k)
		}
	}

	keys := make([]string, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	it, err := d.NewIterator()
	require.NoError(t, err)
	defer it.Close() //nolint:errcheck // test cleanup

	var expected, actual strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&expected, "%q=%q\n", k, model[k])
	}
	for k, v := range it.All() {
		fmt.Fprintf(&actual, "%q=%q\n", k, v)
	}
	requireEqualDumps(t, expected.String(), actual.String())

	var backward []string
	if it.SeekToLast() {
		k, err := it.Key()
		require.NoError(t, err)
		backward = append(backward, string(k))
		for {
			k, _, ok := it.Prev()
			if !ok {
				break
			}
			backward = append(backward, string(k))
		}
	}
	for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
		backward[i], backward[j] = backward[j], backward[i]
	}
	assert.Equal(t, keys, orEmpty(backward))
	require.NoError(t, it.Err())
}

// requireEqualDumps fails with a unified diff of two line-oriented dumps.
func requireEqualDumps(t *testing.T, expected, actual string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if diff != "" {
		t.Fatalf("store does not match model:\n%s", diff)
	}
}

func orEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return s
}

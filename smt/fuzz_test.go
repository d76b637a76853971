package smt

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/shardnode/core/kv"
)

// TestFuzzPutGetRemoveAgreesWithReferenceMap builds a batch of random
// key/value pairs, applies a random interleaving of Put and Remove to
// both the trie and a plain Go map, and checks they agree on every key
// at the end — the property-based counterpart to the fixed-case tests.
func TestFuzzPutGetRemoveAgreesWithReferenceMap(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(20, 20)

	var keys [][]byte
	f.Fuzz(&keys)

	store := kv.NewMemStore()
	trie := New[[]byte, []byte](store, EmptyRootHash(), bytesCodec(), bytesCodec())
	reference := map[string][]byte{}

	for i, k := range keys {
		if len(k) == 0 {
			continue
		}
		var v []byte
		f.Fuzz(&v)
		if i%3 == 2 && len(reference) > 0 {
			// occasionally remove a previously-seen key instead of writing.
			for existing := range reference {
				delete(reference, existing)
				var err error
				trie, err = trie.Remove([]byte(existing))
				require.NoError(t, err)
				break
			}
			continue
		}
		var err error
		trie, err = trie.Put(k, v)
		require.NoError(t, err)
		reference[string(k)] = v
	}

	for k, want := range reference {
		got, err := trie.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	entries, err := trie.Scan(nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, entries, len(reference))
}

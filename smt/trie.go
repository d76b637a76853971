package smt

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
)

// Codec pairs the encode/decode functions a SparseMerkleTrie needs for a
// key or value type. Callers typically build one from rlpcodec.Encode /
// rlpcodec.Decode.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte, *T) error
}

// Entry is a decoded (key, value) pair returned by Scan.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// SparseMerkleTrie is the persisted, immutable authenticated map of §4
// (component D), parameterized by serializable key and value types. Every
// mutating method returns a new trie value; the receiver is left
// untouched, so a caller can keep a handle on an older root after
// deriving a newer one.
type SparseMerkleTrie[K, V any] struct {
	store kv.Store
	root  digest.Hash // digest.Zero means "empty"; never the sentinel value itself
	keys  Codec[K]
	vals  Codec[V]
}

// New opens a SparseMerkleTrie over store at the given root. Passing
// EmptyRootHash() (or digest.Zero) opens an empty trie.
func New[K, V any](store kv.Store, root digest.Hash, keys Codec[K], vals Codec[V]) *SparseMerkleTrie[K, V] {
	if root == EmptyRootHash() {
		root = digest.Zero
	}
	return &SparseMerkleTrie[K, V]{store: store, root: root, keys: keys, vals: vals}
}

// RootHash returns the trie's current root, normalized so that an empty
// trie always reports the canonical sentinel hash (§4.C, "Empty trie
// root").
func (t *SparseMerkleTrie[K, V]) RootHash() digest.Hash {
	if t.root == digest.Zero {
		return EmptyRootHash()
	}
	return t.root
}

// Get returns the value stored under key, or a stateerr KeyNotFound error
// if no such entry exists.
func (t *SparseMerkleTrie[K, V]) Get(key K) (V, error) {
	v, ok, err := t.GetOpt(key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, notFoundKey()
	}
	return v, nil
}

// GetOpt is Get without the error for a missing key: it returns
// (zero value, false, nil) instead.
func (t *SparseMerkleTrie[K, V]) GetOpt(key K) (V, bool, error) {
	var zero V
	encKey, err := t.keys.Encode(key)
	if err != nil {
		return zero, false, err
	}
	raw, ok, err := rawGet(t.store, t.root, encKey)
	if err != nil || !ok {
		return zero, false, err
	}
	var v V
	if err := t.vals.Decode(raw, &v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Exist reports whether key has an entry, without decoding its value.
func (t *SparseMerkleTrie[K, V]) Exist(key K) (bool, error) {
	encKey, err := t.keys.Encode(key)
	if err != nil {
		return false, err
	}
	_, ok, err := rawGet(t.store, t.root, encKey)
	return ok, err
}

// Put returns a new trie with key bound to value, writing any newly
// created nodes to the underlying store. Put is idempotent: assigning the
// same (key, value) pair again is a no-op content-addressed write.
func (t *SparseMerkleTrie[K, V]) Put(key K, value V) (*SparseMerkleTrie[K, V], error) {
	encKey, err := t.keys.Encode(key)
	if err != nil {
		return nil, err
	}
	encVal, err := t.vals.Encode(value)
	if err != nil {
		return nil, err
	}
	newRoot, err := rawPut(t.store, t.root, encKey, encVal)
	if err != nil {
		return nil, err
	}
	return &SparseMerkleTrie[K, V]{store: t.store, root: newRoot, keys: t.keys, vals: t.vals}, nil
}

// Remove returns a new trie with key's entry removed. It returns a
// stateerr KeyNotFound error if key has no entry.
func (t *SparseMerkleTrie[K, V]) Remove(key K) (*SparseMerkleTrie[K, V], error) {
	encKey, err := t.keys.Encode(key)
	if err != nil {
		return nil, err
	}
	newRoot, err := rawRemove(t.store, t.root, encKey)
	if err != nil {
		return nil, err
	}
	return &SparseMerkleTrie[K, V]{store: t.store, root: newRoot, keys: t.keys, vals: t.vals}, nil
}

// Scan returns up to n entries (n <= 0 means unlimited) whose trie path
// (the nibbles of the hashed encoded key) starts with the nibbles of
// prefix and for which pred returns true, walking the trie in nibble
// order. The prefix is not matched against the encoded key itself. pred
// may be nil to accept everything.
func (t *SparseMerkleTrie[K, V]) Scan(prefix []byte, n int, pred func(K, V) bool) ([]Entry[K, V], error) {
	rawPred := func(encKey, encVal []byte) bool {
		if pred == nil {
			return true
		}
		var k K
		var v V
		if t.keys.Decode(encKey, &k) != nil || t.vals.Decode(encVal, &v) != nil {
			return false
		}
		return pred(k, v)
	}
	raws, err := rawScan(t.store, t.root, prefix, n, rawPred)
	if err != nil {
		return nil, err
	}
	out := make([]Entry[K, V], 0, len(raws))
	for _, r := range raws {
		var k K
		var v V
		if err := t.keys.Decode(r.Key, &k); err != nil {
			return nil, err
		}
		if err := t.vals.Decode(r.Value, &v); err != nil {
			return nil, err
		}
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	return out, nil
}

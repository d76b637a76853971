package smt

import "github.com/shardnode/core/digest"

// emptySentinelKey is the fixed genesis key/value pair whose leaf hash
// defines the canonical root of an empty trie (§4.C). It is never a real
// domain key: a real key's hashed nibble path can coincide with this only
// with negligible probability, and even then the leaf's empty value marks
// it as uninteresting to every domain operation.
var emptySentinelKey = []byte("smt/empty-genesis-sentinel")

// EmptyRootHash is the root hash of a SparseMerkleTrie holding no entries.
// It is a pure function of emptySentinelKey, independent of any byte
// store: a fresh Persisted trie constructed with this root, or one that
// has had its last entry removed, is the same empty map.
func EmptyRootHash() digest.Hash {
	leaf := &leafNode{path: keyToNibbles(emptySentinelKey), key: emptySentinelKey, value: nil}
	return hashNode(leaf)
}

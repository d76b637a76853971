package smt

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/stateerr"
)

// loadNode resolves h from the byte store. A zero hash means "empty
// subtree" and resolves to (nil, nil). Any other hash that the store
// doesn't have is treated as store corruption, not a normal
// KeyNotFound — per §4.D, "a missing node referenced by a parent is a
// hard I/O failure indicating store corruption".
func loadNode(store kv.Store, h digest.Hash) (node, error) {
	if h == digest.Zero {
		return nil, nil
	}
	b, err := store.Get(h)
	if err != nil {
		if stateerr.Is(err, stateerr.KeyNotFound) {
			return nil, stateerr.Newf(stateerr.IOError,
				"smt: node %s referenced but missing from store (corruption)", h)
		}
		return nil, err
	}
	return decodeNode(b)
}

// storeNode serializes n and writes it keyed by its own content hash.
// Put is a no-op if the exact bytes are already present, so re-inserting
// an existing node (e.g. after a no-op update) is always safe.
func storeNode(store kv.Store, n node) (digest.Hash, error) {
	b := n.encode()
	h := digest.Sum(b)
	if err := store.Put(h, b); err != nil {
		return digest.Zero, err
	}
	return h, nil
}

package smt

import (
	"bytes"
	"sort"

	"github.com/shardnode/core/digest"
)

// pendingOp is one buffered write: either a put (tombstone == false) or a
// tombstone recording that key was removed.
type pendingOp struct {
	key       []byte
	tombstone bool
	value     []byte
}

// CachedSMT is the in-memory write buffer of §4.E: a pending map layered
// over a Persisted trie. Reads are read-through (pending shadows base);
// writes only touch the pending map until Persist folds them into the
// underlying store in deterministic key order.
type CachedSMT[K, V any] struct {
	base    *SparseMerkleTrie[K, V]
	pending map[string]pendingOp
}

// NewCached wraps base in a fresh, empty write buffer.
func NewCached[K, V any](base *SparseMerkleTrie[K, V]) *CachedSMT[K, V] {
	return &CachedSMT[K, V]{base: base, pending: make(map[string]pendingOp)}
}

// RootHash reports the root of the underlying Persisted trie. Pending
// writes are not reflected until Persist.
func (c *CachedSMT[K, V]) RootHash() digest.Hash {
	return c.base.RootHash()
}

func (c *CachedSMT[K, V]) GetOpt(key K) (V, bool, error) {
	var zero V
	encKey, err := c.base.keys.Encode(key)
	if err != nil {
		return zero, false, err
	}
	if op, ok := c.pending[string(encKey)]; ok {
		if op.tombstone {
			return zero, false, nil
		}
		var v V
		if err := c.base.vals.Decode(op.value, &v); err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return c.base.GetOpt(key)
}

func (c *CachedSMT[K, V]) Get(key K) (V, error) {
	v, ok, err := c.GetOpt(key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, notFoundKey()
	}
	return v, nil
}

func (c *CachedSMT[K, V]) Exist(key K) (bool, error) {
	_, ok, err := c.GetOpt(key)
	return ok, err
}

// Put buffers a write; it does not touch the underlying store until
// Persist.
func (c *CachedSMT[K, V]) Put(key K, value V) error {
	encKey, err := c.base.keys.Encode(key)
	if err != nil {
		return err
	}
	encVal, err := c.base.vals.Encode(value)
	if err != nil {
		return err
	}
	c.pending[string(encKey)] = pendingOp{key: encKey, value: encVal}
	return nil
}

// Remove buffers a tombstone. It never consults the base trie, so it
// succeeds even if key does not currently exist anywhere — the tombstone
// is simply a no-op once folded.
func (c *CachedSMT[K, V]) Remove(key K) error {
	encKey, err := c.base.keys.Encode(key)
	if err != nil {
		return err
	}
	c.pending[string(encKey)] = pendingOp{key: encKey, tombstone: true}
	return nil
}

// Scan merges the pending map over a base-trie scan and returns entries
// in encoded-key byte order.
func (c *CachedSMT[K, V]) Scan(prefix []byte, n int, pred func(K, V) bool) ([]Entry[K, V], error) {
	baseRaw, err := rawScan(c.base.store, c.base.root, prefix, 0, func(k, v []byte) bool { return true })
	if err != nil {
		return nil, err
	}
	merged := make(map[string]RawEntry, len(baseRaw)+len(c.pending))
	for _, e := range baseRaw {
		merged[string(e.Key)] = e
	}
	for k, op := range c.pending {
		if !bytes.HasPrefix(keyToNibbles(op.key), bytesToNibbles(prefix)) {
			continue
		}
		if op.tombstone {
			delete(merged, k)
			continue
		}
		merged[k] = RawEntry{Key: op.key, Value: op.value}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry[K, V], 0, len(merged))
	for _, k := range keys {
		e := merged[k]
		var kk K
		var vv V
		if err := c.base.keys.Decode(e.Key, &kk); err != nil {
			return nil, err
		}
		if err := c.base.vals.Decode(e.Value, &vv); err != nil {
			return nil, err
		}
		if pred != nil && !pred(kk, vv) {
			continue
		}
		out = append(out, Entry[K, V]{Key: kk, Value: vv})
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out, nil
}

// Persist folds the pending map into the underlying Persisted trie, in
// ascending encoded-key order, and returns the resulting trie. The
// buffer is cleared: after Persist, c reads through to the new base with
// no pending writes of its own.
func (c *CachedSMT[K, V]) Persist() (*SparseMerkleTrie[K, V], error) {
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cur := c.base
	for _, k := range keys {
		op := c.pending[k]
		if op.tombstone {
			_, existed, err := rawGet(cur.store, cur.root, op.key)
			if err != nil {
				return nil, err
			}
			if !existed {
				continue
			}
			newRoot, err := rawRemove(cur.store, cur.root, op.key)
			if err != nil {
				return nil, err
			}
			cur = &SparseMerkleTrie[K, V]{store: cur.store, root: newRoot, keys: cur.keys, vals: cur.vals}
			continue
		}
		newRoot, err := rawPut(cur.store, cur.root, op.key, op.value)
		if err != nil {
			return nil, err
		}
		cur = &SparseMerkleTrie[K, V]{store: cur.store, root: newRoot, keys: cur.keys, vals: cur.vals}
	}
	c.base = cur
	c.pending = make(map[string]pendingOp)
	return cur, nil
}

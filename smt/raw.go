package smt

import (
	"bytes"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/stateerr"
)

// RawEntry is a (key, value) pair returned by Scan, with Key being the
// encoded form of the original domain key (the preimage of the trie's
// hashed nibble path for that entry).
type RawEntry struct {
	Key   []byte
	Value []byte
}

func notFoundKey() error {
	return stateerr.Newf(stateerr.KeyNotFound, "smt: key not found")
}

// rawGet walks the trie rooted at root looking for the entry whose
// encoded key is encKey.
func rawGet(store kv.Store, root digest.Hash, encKey []byte) ([]byte, bool, error) {
	return getAt(store, root, keyToNibbles(encKey))
}

func getAt(store kv.Store, nodeHash digest.Hash, nibbles []byte) ([]byte, bool, error) {
	if nodeHash == digest.Zero {
		return nil, false, nil
	}
	n, err := loadNode(store, nodeHash)
	if err != nil {
		return nil, false, err
	}
	switch nd := n.(type) {
	case *leafNode:
		if bytes.Equal(nd.path, nibbles) {
			return nd.value, true, nil
		}
		return nil, false, nil
	case *branchNode:
		cp := commonPrefixLen(nd.path, nibbles)
		if cp < len(nd.path) {
			return nil, false, nil
		}
		rem := nibbles[len(nd.path):]
		if len(rem) == 0 {
			if nd.value != nil {
				return nd.value, true, nil
			}
			return nil, false, nil
		}
		child := nd.children[rem[0]]
		if child == nil {
			return nil, false, nil
		}
		return getAt(store, *child, rem[1:])
	default:
		return nil, false, stateerr.Newf(stateerr.DecodeError, "smt: unknown node type")
	}
}

// rawPut implements the put algorithm of §4.D and returns the new root.
func rawPut(store kv.Store, root digest.Hash, encKey, value []byte) (digest.Hash, error) {
	return putAt(store, root, keyToNibbles(encKey), encKey, value)
}

func putAt(store kv.Store, nodeHash digest.Hash, nibbles, encKey, value []byte) (digest.Hash, error) {
	if nodeHash == digest.Zero {
		return storeNode(store, &leafNode{path: cloneBytes(nibbles), key: encKey, value: value})
	}
	n, err := loadNode(store, nodeHash)
	if err != nil {
		return digest.Zero, err
	}
	switch nd := n.(type) {
	case *leafNode:
		if bytes.Equal(nd.path, nibbles) {
			return storeNode(store, &leafNode{path: nd.path, key: encKey, value: value})
		}
		cp := commonPrefixLen(nd.path, nibbles)
		branch := &branchNode{path: cloneBytes(nibbles[:cp])}
		oldHash, err := storeNode(store, &leafNode{path: cloneBytes(nd.path[cp+1:]), key: nd.key, value: nd.value})
		if err != nil {
			return digest.Zero, err
		}
		newHash, err := storeNode(store, &leafNode{path: cloneBytes(nibbles[cp+1:]), key: encKey, value: value})
		if err != nil {
			return digest.Zero, err
		}
		branch.children[nd.path[cp]] = &oldHash
		branch.children[nibbles[cp]] = &newHash
		return storeNode(store, branch)

	case *branchNode:
		cp := commonPrefixLen(nd.path, nibbles)
		if cp < len(nd.path) {
			shortened := &branchNode{
				path: cloneBytes(nd.path[cp+1:]), children: nd.children,
				value: nd.value, valueKey: nd.valueKey,
			}
			shortenedHash, err := storeNode(store, shortened)
			if err != nil {
				return digest.Zero, err
			}
			newBranch := &branchNode{path: cloneBytes(nibbles[:cp])}
			newBranch.children[nd.path[cp]] = &shortenedHash
			if cp == len(nibbles) {
				newBranch.value = value
				newBranch.valueKey = encKey
			} else {
				leafHash, err := storeNode(store, &leafNode{path: cloneBytes(nibbles[cp+1:]), key: encKey, value: value})
				if err != nil {
					return digest.Zero, err
				}
				newBranch.children[nibbles[cp]] = &leafHash
			}
			return storeNode(store, newBranch)
		}

		rem := nibbles[len(nd.path):]
		if len(rem) == 0 {
			return storeNode(store, &branchNode{path: nd.path, children: nd.children, value: value, valueKey: encKey})
		}
		idx := rem[0]
		var childHash digest.Hash
		if nd.children[idx] != nil {
			childHash = *nd.children[idx]
		}
		newChildHash, err := putAt(store, childHash, rem[1:], encKey, value)
		if err != nil {
			return digest.Zero, err
		}
		newBranch := &branchNode{path: nd.path, children: nd.children, value: nd.value, valueKey: nd.valueKey}
		newBranch.children[idx] = &newChildHash
		return storeNode(store, newBranch)

	default:
		return digest.Zero, stateerr.Newf(stateerr.DecodeError, "smt: unknown node type")
	}
}

// rawRemove implements the remove algorithm of §4.D, collapsing any
// branch left with at most one child and no value (canonicality, §3
// invariant 2).
func rawRemove(store kv.Store, root digest.Hash, encKey []byte) (digest.Hash, error) {
	return removeAt(store, root, keyToNibbles(encKey))
}

func removeAt(store kv.Store, nodeHash digest.Hash, nibbles []byte) (digest.Hash, error) {
	if nodeHash == digest.Zero {
		return digest.Zero, notFoundKey()
	}
	n, err := loadNode(store, nodeHash)
	if err != nil {
		return digest.Zero, err
	}
	switch nd := n.(type) {
	case *leafNode:
		if !bytes.Equal(nd.path, nibbles) {
			return digest.Zero, notFoundKey()
		}
		return digest.Zero, nil

	case *branchNode:
		cp := commonPrefixLen(nd.path, nibbles)
		if cp < len(nd.path) {
			return digest.Zero, notFoundKey()
		}
		rem := nibbles[len(nd.path):]
		if len(rem) == 0 {
			if nd.value == nil {
				return digest.Zero, notFoundKey()
			}
			return collapseBranch(store, &branchNode{path: nd.path, children: nd.children})
		}
		idx := rem[0]
		if nd.children[idx] == nil {
			return digest.Zero, notFoundKey()
		}
		newChildHash, err := removeAt(store, *nd.children[idx], rem[1:])
		if err != nil {
			return digest.Zero, err
		}
		newBranch := &branchNode{path: nd.path, children: nd.children, value: nd.value, valueKey: nd.valueKey}
		if newChildHash == digest.Zero {
			newBranch.children[idx] = nil
		} else {
			newBranch.children[idx] = &newChildHash
		}
		return collapseBranch(store, newBranch)

	default:
		return digest.Zero, stateerr.Newf(stateerr.DecodeError, "smt: unknown node type")
	}
}

// collapseBranch enforces canonical shape: a branch with zero children
// and a value becomes a leaf; a branch with exactly one child and no
// value merges with that child, concatenating paths.
func collapseBranch(store kv.Store, b *branchNode) (digest.Hash, error) {
	switch n := b.nonEmptyChildren(); {
	case n == 0 && b.value == nil:
		return digest.Zero, nil
	case n == 0:
		return storeNode(store, &leafNode{path: b.path, key: b.valueKey, value: b.value})
	case n == 1 && b.value == nil:
		idx, childHash := b.soleChild()
		child, err := loadNode(store, childHash)
		if err != nil {
			return digest.Zero, err
		}
		switch c := child.(type) {
		case *leafNode:
			return storeNode(store, &leafNode{path: concatPath(b.path, byte(idx), c.path), key: c.key, value: c.value})
		case *branchNode:
			return storeNode(store, &branchNode{
				path: concatPath(b.path, byte(idx), c.path), children: c.children,
				value: c.value, valueKey: c.valueKey,
			})
		default:
			return digest.Zero, stateerr.Newf(stateerr.DecodeError, "smt: unknown node type")
		}
	default:
		return storeNode(store, b)
	}
}

// rawScan performs the depth-first, prefix-pruned traversal of §4.D,
// returning up to limit entries (limit <= 0 means unlimited) whose
// nibble path is compatible with prefix and which satisfy pred.
func rawScan(store kv.Store, root digest.Hash, prefix []byte, limit int, pred func(key, value []byte) bool) ([]RawEntry, error) {
	prefixNibbles := bytesToNibbles(prefix)
	var out []RawEntry
	if err := scanAt(store, root, nil, prefixNibbles, limit, pred, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAt(store kv.Store, nodeHash digest.Hash, acc, prefixNibbles []byte, limit int, pred func(key, value []byte) bool, out *[]RawEntry) error {
	if nodeHash == digest.Zero {
		return nil
	}
	if limit > 0 && len(*out) >= limit {
		return nil
	}
	n, err := loadNode(store, nodeHash)
	if err != nil {
		return err
	}
	switch nd := n.(type) {
	case *leafNode:
		full := append(cloneBytes(acc), nd.path...)
		if len(full) < len(prefixNibbles) || !compatiblePrefix(full, prefixNibbles) {
			return nil
		}
		if pred(nd.key, nd.value) {
			*out = append(*out, RawEntry{Key: nd.key, Value: nd.value})
		}
		return nil

	case *branchNode:
		full := append(cloneBytes(acc), nd.path...)
		if !compatiblePrefix(full, prefixNibbles) {
			return nil
		}
		if nd.value != nil && len(full) >= len(prefixNibbles) {
			if pred(nd.valueKey, nd.value) {
				*out = append(*out, RawEntry{Key: nd.valueKey, Value: nd.value})
				if limit > 0 && len(*out) >= limit {
					return nil
				}
			}
		}
		for i, c := range nd.children {
			if c == nil {
				continue
			}
			if limit > 0 && len(*out) >= limit {
				return nil
			}
			if err := scanAt(store, *c, append(full, byte(i)), prefixNibbles, limit, pred, out); err != nil {
				return err
			}
		}
		return nil

	default:
		return stateerr.Newf(stateerr.DecodeError, "smt: unknown node type")
	}
}

func compatiblePrefix(full, prefix []byte) bool {
	n := len(full)
	if len(prefix) < n {
		n = len(prefix)
	}
	for i := 0; i < n; i++ {
		if full[i] != prefix[i] {
			return false
		}
	}
	return true
}

func concatPath(a []byte, mid byte, b []byte) []byte {
	out := make([]byte, 0, len(a)+1+len(b))
	out = append(out, a...)
	out = append(out, mid)
	out = append(out, b...)
	return out
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

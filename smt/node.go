package smt

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/rlpcodec"
)

// node is one of the two trie node shapes from §4.C: branchNode or
// leafNode. Nodes are immutable and content-addressed: a node's hash is
// computed over its canonical serialized form and doubles as its key in
// the byte store and its identity to its parent.
type node interface {
	// encode returns this node's canonical wire encoding; hashNode hashes it.
	encode() []byte
}

// branchNode carries the nibble-path segment consumed since the parent
// branch point, 16 child slots (nil = empty), and an optional terminal
// value. valueKey preserves the encoded original key whose value
// terminates exactly at this branch point (nil unless value is set) —
// the path itself is a one-way hash of the key, so Scan needs this
// preimage to report (k, v) pairs rather than just path/value.
type branchNode struct {
	path     []byte // nibbles
	children [16]*digest.Hash
	value    []byte // nil if this branch has no terminal value
	valueKey []byte
}

// leafNode is terminal: it carries the remaining nibble-path suffix, the
// encoded key preimage (see branchNode.valueKey) and the value bytes.
type leafNode struct {
	path  []byte // nibbles
	key   []byte // encoded original key
	value []byte
}

// wire mirrors the two node shapes for RLP encoding. Kind disambiguates
// them; Path is already hex-prefix compacted so the flag bits alone
// distinguish branch-with-suffix from leaf-with-suffix per §4.C, but we
// keep an explicit Kind byte too since a branch may have a zero-length
// path (i.e. sit exactly at its parent's branch point).
type wire struct {
	Kind     byte // 0 = leaf, 1 = branch
	Path     []byte
	Key      []byte     // key preimage for this node's own value, if any
	Children [16][]byte // branch only; empty slice = no child
	Value    []byte
}

const (
	kindLeaf   byte = 0
	kindBranch byte = 1
)

func (n *leafNode) encode() []byte {
	w := wire{Kind: kindLeaf, Path: encodePath(n.path, true), Key: n.key, Value: n.value}
	b, err := rlpcodec.Encode(w)
	if err != nil {
		panic(err) // encoding a well-formed wire struct cannot fail
	}
	return b
}

func (n *branchNode) encode() []byte {
	w := wire{Kind: kindBranch, Path: encodePath(n.path, false), Key: n.valueKey, Value: n.value}
	for i, c := range n.children {
		if c != nil {
			w.Children[i] = c[:]
		}
	}
	b, err := rlpcodec.Encode(w)
	if err != nil {
		panic(err)
	}
	return b
}

// hashNode computes a node's content hash H(serialize(node)).
func hashNode(n node) digest.Hash {
	return digest.Sum(n.encode())
}

// decodeNode parses a node's wire bytes back into a leafNode or
// branchNode.
func decodeNode(b []byte) (node, error) {
	var w wire
	if err := rlpcodec.Decode(b, &w); err != nil {
		return nil, err
	}
	nibbles, isLeaf := decodePath(w.Path)
	if w.Kind == kindLeaf || isLeaf {
		return &leafNode{path: nibbles, key: w.Key, value: w.Value}, nil
	}
	// RLP decodes an absent value as an empty, non-nil slice; a branch
	// without a terminal value must keep value (and valueKey) nil.
	bn := &branchNode{path: nibbles}
	if len(w.Value) > 0 {
		bn.value, bn.valueKey = w.Value, w.Key
	}
	for i, c := range w.Children {
		if len(c) > 0 {
			h := digest.FromBytes(c)
			bn.children[i] = &h
		}
	}
	return bn, nil
}

// nonEmptyChildren counts the non-nil child slots of a branch.
func (n *branchNode) nonEmptyChildren() int {
	count := 0
	for _, c := range n.children {
		if c != nil {
			count++
		}
	}
	return count
}

// soleChild returns the index and hash of the branch's only non-empty
// child. Callers must check nonEmptyChildren() == 1 first.
func (n *branchNode) soleChild() (int, digest.Hash) {
	for i, c := range n.children {
		if c != nil {
			return i, *c
		}
	}
	return -1, digest.Hash{}
}

// Package worldstate implements the §4.G façade: three Sparse Merkle
// Tries (unspent outputs, contract state, deduplicated contract code)
// bundled behind one transactional value with a single composite root
// hash.
package worldstate

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/rlpcodec"
	"github.com/shardnode/core/smt"
)

// TxOutputRef identifies a transaction output (asset or contract) — the
// key into the output trie.
type TxOutputRef digest.Hash

func (r TxOutputRef) Bytes() []byte { return digest.Hash(r).Bytes() }

// ContractId identifies a contract — the key into the contract trie.
type ContractId digest.Hash

func (id ContractId) Bytes() []byte { return digest.Hash(id).Bytes() }

// OutputKind discriminates the two TxOutput shapes.
type OutputKind byte

const (
	OutputAsset    OutputKind = 0
	OutputContract OutputKind = 1
)

// TxOutput is the tagged union of §3: an asset output carries a value and
// an optional non-native token id; a contract output just carries the
// value transferred to the contract at creation.
type TxOutput struct {
	Kind    OutputKind
	Value   uint64
	TokenID *digest.Hash `rlp:"nil"`
}

// ContractState is a live contract's mutable fields, its current output
// reference, and the hash of its (deduplicated) code.
type ContractState struct {
	Fields    [][]byte
	OutputRef TxOutputRef
	CodeHash  digest.Hash
}

// CodeRecord is deduplicated contract code with a reference count.
type CodeRecord struct {
	Code     []byte
	RefCount uint32
}

func hashCodec() smt.Codec[digest.Hash] {
	return smt.Codec[digest.Hash]{
		Encode: func(h digest.Hash) ([]byte, error) { return h.Bytes(), nil },
		Decode: func(b []byte, out *digest.Hash) error { *out = digest.FromBytes(b); return nil },
	}
}

func outputRefCodec() smt.Codec[TxOutputRef] {
	return smt.Codec[TxOutputRef]{
		Encode: func(r TxOutputRef) ([]byte, error) { return r.Bytes(), nil },
		Decode: func(b []byte, out *TxOutputRef) error { *out = TxOutputRef(digest.FromBytes(b)); return nil },
	}
}

func contractIdCodec() smt.Codec[ContractId] {
	return smt.Codec[ContractId]{
		Encode: func(id ContractId) ([]byte, error) { return id.Bytes(), nil },
		Decode: func(b []byte, out *ContractId) error { *out = ContractId(digest.FromBytes(b)); return nil },
	}
}

func rlpCodec[T any]() smt.Codec[T] {
	return smt.Codec[T]{
		Encode: func(v T) ([]byte, error) { return rlpcodec.Encode(v) },
		Decode: func(b []byte, out *T) error { return rlpcodec.Decode(b, out) },
	}
}

// Roots is the on-disk persistence record of §6: the three independent
// trie roots that together identify a world state.
type Roots struct {
	OutputRoot   digest.Hash
	ContractRoot digest.Hash
	CodeRoot     digest.Hash
}

// CompositeHash is the block-state hash of §4.G: H(outRoot ‖
// contractRoot). CodeRoot is deliberately excluded — code is
// deduplicated, content-addressed data reachable by reference from every
// contract state, so it does not need to be part of the hash that
// authenticates the state itself.
func (r Roots) CompositeHash() digest.Hash {
	return digest.Sum(r.OutputRoot.Bytes(), r.ContractRoot.Bytes())
}

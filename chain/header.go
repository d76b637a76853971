// Package chain carries the minimal block header the world-state engine
// needs to persist and rehydrate itself across restarts. The consensus
// validator, P2P network, miner, and RPC surface that would normally
// produce and propagate these headers are out of scope (§1) — named
// here only as the header's eventual callers.
package chain

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/worldstate"
)

// Header is the on-disk persistence record of §6: enough to rehydrate a
// worldstate.State from a byte store, plus the minimal chain-linkage
// fields a real header would also carry.
type Header struct {
	ParentID     digest.Hash
	Number       uint32
	Timestamp    uint64
	OutputRoot   digest.Hash
	ContractRoot digest.Hash
	CodeRoot     digest.Hash
}

// Roots extracts the three independent trie roots this header carries.
func (h Header) Roots() worldstate.Roots {
	return worldstate.Roots{
		OutputRoot:   h.OutputRoot,
		ContractRoot: h.ContractRoot,
		CodeRoot:     h.CodeRoot,
	}
}

// StateHash is the composite block-state hash authenticated by this
// header: H(outRoot ‖ contractRoot), excluding codeRoot per §4.G.
func (h Header) StateHash() digest.Hash {
	return h.Roots().CompositeHash()
}

// ID is the header's own content hash — its identity as a block.
func (h Header) ID() digest.Hash {
	return digest.Sum(
		h.ParentID.Bytes(),
		encodeUint32(h.Number),
		encodeUint64(h.Timestamp),
		h.OutputRoot.Bytes(),
		h.ContractRoot.Bytes(),
		h.CodeRoot.Bytes(),
	)
}

// NewFromState builds the header fields that summarize state, leaving
// chain-linkage fields (ParentID, Number, Timestamp) for the caller to
// fill in.
func NewFromState(state *worldstate.State) Header {
	r := state.Roots()
	return Header{OutputRoot: r.OutputRoot, ContractRoot: r.ContractRoot, CodeRoot: r.CodeRoot}
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

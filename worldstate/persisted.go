package worldstate

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/smt"
	"github.com/shardnode/core/stateerr"
)

// State is the Persisted façade variant: an immutable value over three
// Sparse Merkle Tries. Every mutating method returns a new State; the
// receiver is left untouched.
type State struct {
	store     kv.Store
	outputs   *smt.SparseMerkleTrie[TxOutputRef, TxOutput]
	contracts *smt.SparseMerkleTrie[ContractId, ContractState]
	code      *smt.SparseMerkleTrie[digest.Hash, CodeRecord]
}

// Open rehydrates a State from a byte store and a previously persisted
// set of roots (e.g. from a block header).
func Open(store kv.Store, roots Roots) *State {
	return &State{
		store:     store,
		outputs:   smt.New[TxOutputRef, TxOutput](store, roots.OutputRoot, outputRefCodec(), rlpCodec[TxOutput]()),
		contracts: smt.New[ContractId, ContractState](store, roots.ContractRoot, contractIdCodec(), rlpCodec[ContractState]()),
		code:      smt.New[digest.Hash, CodeRecord](store, roots.CodeRoot, hashCodec(), rlpCodec[CodeRecord]()),
	}
}

// Roots returns the three independent trie roots underlying s.
func (s *State) Roots() Roots {
	return Roots{
		OutputRoot:   s.outputs.RootHash(),
		ContractRoot: s.contracts.RootHash(),
		CodeRoot:     s.code.RootHash(),
	}
}

// CompositeHash is a shorthand for s.Roots().CompositeHash().
func (s *State) CompositeHash() digest.Hash {
	return s.Roots().CompositeHash()
}

func expectAsset(out TxOutput) error {
	if out.Kind != OutputAsset {
		return stateerr.Newf(stateerr.InvariantViolation, "worldstate: expected asset output, found contract output")
	}
	return nil
}

// GetAsset fetches the output at ref and fails with InvariantViolation if
// it turns out to be a contract output, not an asset output.
func (s *State) GetAsset(ref TxOutputRef) (TxOutput, error) {
	out, err := s.outputs.Get(ref)
	if err != nil {
		return TxOutput{}, err
	}
	if err := expectAsset(out); err != nil {
		return TxOutput{}, err
	}
	return out, nil
}

// AddAsset inserts (or overwrites — the caller enforces uniqueness) an
// asset output at ref.
func (s *State) AddAsset(ref TxOutputRef, out TxOutput) (*State, error) {
	newOutputs, err := s.outputs.Put(ref, out)
	if err != nil {
		return nil, err
	}
	return s.withOutputs(newOutputs), nil
}

// RemoveAsset removes the output at ref. KeyNotFound surfaces unchanged.
func (s *State) RemoveAsset(ref TxOutputRef) (*State, error) {
	newOutputs, err := s.outputs.Remove(ref)
	if err != nil {
		return nil, err
	}
	return s.withOutputs(newOutputs), nil
}

// CreateContractUnsafe inserts a contract's output, state, and bumps (or
// creates) its code record's refcount, without checking that id is
// absent. Callers must have already established that precondition —
// e.g. because id was freshly derived from a transaction hash.
func (s *State) CreateContractUnsafe(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) (*State, error) {
	codeHash := digest.Sum(code)
	newCode, err := bumpCodeRefcount(s.code, codeHash, code)
	if err != nil {
		return nil, err
	}
	newOutputs, err := s.outputs.Put(ref, out)
	if err != nil {
		return nil, err
	}
	newContracts, err := s.contracts.Put(id, ContractState{Fields: fields, OutputRef: ref, CodeHash: codeHash})
	if err != nil {
		return nil, err
	}
	return &State{store: s.store, outputs: newOutputs, contracts: newContracts, code: newCode}, nil
}

// CreateContract is the checked counterpart of CreateContractUnsafe: it
// fails with InvariantViolation if id already has a contract.
func (s *State) CreateContract(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) (*State, error) {
	exists, err := s.contracts.Exist(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, stateerr.Newf(stateerr.InvariantViolation, "worldstate: contract %s already exists", digest.Hash(id))
	}
	return s.CreateContractUnsafe(id, code, fields, ref, out)
}

// UpdateContractFields rewrites a contract's fields, keeping its output
// reference and code hash.
func (s *State) UpdateContractFields(id ContractId, fields [][]byte) (*State, error) {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return nil, err
	}
	cs.Fields = fields
	newContracts, err := s.contracts.Put(id, cs)
	if err != nil {
		return nil, err
	}
	return s.withContracts(newContracts), nil
}

// UpdateContractOutput rewrites a contract's output reference and the
// output itself, keeping its fields and code hash. If the new ref
// differs from the current one, the old output entry is removed.
func (s *State) UpdateContractOutput(id ContractId, ref TxOutputRef, out TxOutput) (*State, error) {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return nil, err
	}
	outputs := s.outputs
	if cs.OutputRef != ref {
		outputs, err = outputs.Remove(cs.OutputRef)
		if err != nil {
			return nil, err
		}
	}
	outputs, err = outputs.Put(ref, out)
	if err != nil {
		return nil, err
	}
	cs.OutputRef = ref
	newContracts, err := s.contracts.Put(id, cs)
	if err != nil {
		return nil, err
	}
	return &State{store: s.store, outputs: outputs, contracts: newContracts, code: s.code}, nil
}

// RemoveContract removes a contract's state and its asset output, and
// decrements its code's refcount (deleting the code entry when the
// refcount reaches zero).
func (s *State) RemoveContract(id ContractId) (*State, error) {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return nil, err
	}
	newOutputs, err := s.outputs.Remove(cs.OutputRef)
	if err != nil {
		return nil, err
	}
	newContracts, err := s.contracts.Remove(id)
	if err != nil {
		return nil, err
	}
	newCode, err := decrementCodeRefcount(s.code, cs.CodeHash)
	if err != nil {
		return nil, err
	}
	return &State{store: s.store, outputs: newOutputs, contracts: newContracts, code: newCode}, nil
}

// GetContract fetches a contract's current state.
func (s *State) GetContract(id ContractId) (ContractState, error) {
	return s.contracts.Get(id)
}

// GetCode fetches the deduplicated code bytes for a code hash.
func (s *State) GetCode(hash digest.Hash) ([]byte, error) {
	rec, err := s.code.Get(hash)
	if err != nil {
		return nil, err
	}
	return rec.Code, nil
}

func (s *State) withOutputs(o *smt.SparseMerkleTrie[TxOutputRef, TxOutput]) *State {
	return &State{store: s.store, outputs: o, contracts: s.contracts, code: s.code}
}

func (s *State) withContracts(c *smt.SparseMerkleTrie[ContractId, ContractState]) *State {
	return &State{store: s.store, outputs: s.outputs, contracts: c, code: s.code}
}

func bumpCodeRefcount(code *smt.SparseMerkleTrie[digest.Hash, CodeRecord], hash digest.Hash, bytes []byte) (*smt.SparseMerkleTrie[digest.Hash, CodeRecord], error) {
	rec, ok, err := code.GetOpt(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		rec = CodeRecord{Code: bytes}
	}
	rec.RefCount++
	return code.Put(hash, rec)
}

func decrementCodeRefcount(code *smt.SparseMerkleTrie[digest.Hash, CodeRecord], hash digest.Hash) (*smt.SparseMerkleTrie[digest.Hash, CodeRecord], error) {
	rec, ok, err := code.GetOpt(hash)
	if err != nil {
		return nil, err
	}
	if !ok || rec.RefCount == 0 {
		return nil, stateerr.Newf(stateerr.InvariantViolation, "worldstate: code %s refcount underflow", hash)
	}
	rec.RefCount--
	if rec.RefCount == 0 {
		return code.Remove(hash)
	}
	return code.Put(hash, rec)
}

package worldstate

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/smt"
	"github.com/shardnode/core/stateerr"
)

// Cached is the §4.E façade variant: a write buffer over a Persisted
// State. Writes mutate the receiver's pending maps in place; nothing
// touches the byte store until Persist.
type Cached struct {
	store     kv.Store
	outputs   *smt.CachedSMT[TxOutputRef, TxOutput]
	contracts *smt.CachedSMT[ContractId, ContractState]
	code      *smt.CachedSMT[digest.Hash, CodeRecord]
}

// NewCached opens a write buffer over base.
func NewCached(base *State) *Cached {
	return &Cached{
		store:     base.store,
		outputs:   smt.NewCached(base.outputs),
		contracts: smt.NewCached(base.contracts),
		code:      smt.NewCached(base.code),
	}
}

func (c *Cached) GetAsset(ref TxOutputRef) (TxOutput, error) {
	out, err := c.outputs.Get(ref)
	if err != nil {
		return TxOutput{}, err
	}
	if err := expectAsset(out); err != nil {
		return TxOutput{}, err
	}
	return out, nil
}

func (c *Cached) AddAsset(ref TxOutputRef, out TxOutput) error {
	return c.outputs.Put(ref, out)
}

func (c *Cached) RemoveAsset(ref TxOutputRef) error {
	return c.outputs.Remove(ref)
}

func (c *Cached) CreateContractUnsafe(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) error {
	codeHash := digest.Sum(code)
	if err := bumpCodeRefcountCached(c.code, codeHash, code); err != nil {
		return err
	}
	if err := c.outputs.Put(ref, out); err != nil {
		return err
	}
	return c.contracts.Put(id, ContractState{Fields: fields, OutputRef: ref, CodeHash: codeHash})
}

func (c *Cached) CreateContract(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) error {
	exists, err := c.contracts.Exist(id)
	if err != nil {
		return err
	}
	if exists {
		return stateerr.Newf(stateerr.InvariantViolation, "worldstate: contract %s already exists", digest.Hash(id))
	}
	return c.CreateContractUnsafe(id, code, fields, ref, out)
}

func (c *Cached) UpdateContractFields(id ContractId, fields [][]byte) error {
	cs, err := c.contracts.Get(id)
	if err != nil {
		return err
	}
	cs.Fields = fields
	return c.contracts.Put(id, cs)
}

func (c *Cached) UpdateContractOutput(id ContractId, ref TxOutputRef, out TxOutput) error {
	cs, err := c.contracts.Get(id)
	if err != nil {
		return err
	}
	if cs.OutputRef != ref {
		if err := c.outputs.Remove(cs.OutputRef); err != nil {
			return err
		}
	}
	if err := c.outputs.Put(ref, out); err != nil {
		return err
	}
	cs.OutputRef = ref
	return c.contracts.Put(id, cs)
}

func (c *Cached) RemoveContract(id ContractId) error {
	cs, err := c.contracts.Get(id)
	if err != nil {
		return err
	}
	if err := c.outputs.Remove(cs.OutputRef); err != nil {
		return err
	}
	if err := c.contracts.Remove(id); err != nil {
		return err
	}
	return decrementCodeRefcountCached(c.code, cs.CodeHash)
}

func (c *Cached) GetContract(id ContractId) (ContractState, error) {
	return c.contracts.Get(id)
}

func (c *Cached) GetCode(hash digest.Hash) ([]byte, error) {
	rec, err := c.code.Get(hash)
	if err != nil {
		return nil, err
	}
	return rec.Code, nil
}

// ScanAssets resolves the §9 Open Question for the cached layer: it
// merges this layer's pending output entries (filtered by prefix, with
// tombstones removing entries) with the underlying persisted scan,
// rather than refusing prefix-scans on non-persisted views.
func (c *Cached) ScanAssets(prefix []byte, limit int, pred func(TxOutputRef, TxOutput) bool) ([]smt.Entry[TxOutputRef, TxOutput], error) {
	return c.outputs.Scan(prefix, limit, pred)
}

// Persist folds all three pending maps into their underlying Persisted
// tries, in deterministic key order, and returns the resulting State.
func (c *Cached) Persist() (*State, error) {
	outputs, err := c.outputs.Persist()
	if err != nil {
		return nil, err
	}
	contracts, err := c.contracts.Persist()
	if err != nil {
		return nil, err
	}
	code, err := c.code.Persist()
	if err != nil {
		return nil, err
	}
	return &State{store: c.store, outputs: outputs, contracts: contracts, code: code}, nil
}

func bumpCodeRefcountCached(code *smt.CachedSMT[digest.Hash, CodeRecord], hash digest.Hash, bytes []byte) error {
	rec, ok, err := code.GetOpt(hash)
	if err != nil {
		return err
	}
	if !ok {
		rec = CodeRecord{Code: bytes}
	}
	rec.RefCount++
	return code.Put(hash, rec)
}

func decrementCodeRefcountCached(code *smt.CachedSMT[digest.Hash, CodeRecord], hash digest.Hash) error {
	rec, ok, err := code.GetOpt(hash)
	if err != nil {
		return err
	}
	if !ok || rec.RefCount == 0 {
		return stateerr.Newf(stateerr.InvariantViolation, "worldstate: code %s refcount underflow", hash)
	}
	rec.RefCount--
	if rec.RefCount == 0 {
		return code.Remove(hash)
	}
	return code.Put(hash, rec)
}

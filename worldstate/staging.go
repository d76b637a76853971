package worldstate

import (
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/smt"
	"github.com/shardnode/core/stateerr"
)

// Staging is the §4.F façade variant: a second, rollbackable pending
// layer over a Cached view. Commit folds this layer's writes into the
// enclosing Cached view (staging wins on conflict); Rollback discards
// them. Either call closes the layer — further operations fail.
type Staging struct {
	outputs   *smt.StagingSMT[TxOutputRef, TxOutput]
	contracts *smt.StagingSMT[ContractId, ContractState]
	code      *smt.StagingSMT[digest.Hash, CodeRecord]
}

// NewStaging opens a speculative layer over cache.
func NewStaging(cache *Cached) *Staging {
	return &Staging{
		outputs:   smt.NewStaging(cache.outputs),
		contracts: smt.NewStaging(cache.contracts),
		code:      smt.NewStaging(cache.code),
	}
}

func (s *Staging) GetAsset(ref TxOutputRef) (TxOutput, error) {
	out, err := s.outputs.Get(ref)
	if err != nil {
		return TxOutput{}, err
	}
	if err := expectAsset(out); err != nil {
		return TxOutput{}, err
	}
	return out, nil
}

func (s *Staging) AddAsset(ref TxOutputRef, out TxOutput) error {
	return s.outputs.Put(ref, out)
}

func (s *Staging) RemoveAsset(ref TxOutputRef) error {
	return s.outputs.Remove(ref)
}

func (s *Staging) CreateContractUnsafe(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) error {
	codeHash := digest.Sum(code)
	if err := bumpCodeRefcountStaging(s.code, codeHash, code); err != nil {
		return err
	}
	if err := s.outputs.Put(ref, out); err != nil {
		return err
	}
	return s.contracts.Put(id, ContractState{Fields: fields, OutputRef: ref, CodeHash: codeHash})
}

func (s *Staging) CreateContract(id ContractId, code []byte, fields [][]byte, ref TxOutputRef, out TxOutput) error {
	exists, err := s.contracts.Exist(id)
	if err != nil {
		return err
	}
	if exists {
		return stateerr.Newf(stateerr.InvariantViolation, "worldstate: contract %s already exists", digest.Hash(id))
	}
	return s.CreateContractUnsafe(id, code, fields, ref, out)
}

func (s *Staging) UpdateContractFields(id ContractId, fields [][]byte) error {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return err
	}
	cs.Fields = fields
	return s.contracts.Put(id, cs)
}

func (s *Staging) UpdateContractOutput(id ContractId, ref TxOutputRef, out TxOutput) error {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return err
	}
	if cs.OutputRef != ref {
		if err := s.outputs.Remove(cs.OutputRef); err != nil {
			return err
		}
	}
	if err := s.outputs.Put(ref, out); err != nil {
		return err
	}
	cs.OutputRef = ref
	return s.contracts.Put(id, cs)
}

func (s *Staging) RemoveContract(id ContractId) error {
	cs, err := s.contracts.Get(id)
	if err != nil {
		return err
	}
	if err := s.outputs.Remove(cs.OutputRef); err != nil {
		return err
	}
	if err := s.contracts.Remove(id); err != nil {
		return err
	}
	return decrementCodeRefcountStaging(s.code, cs.CodeHash)
}

func (s *Staging) GetContract(id ContractId) (ContractState, error) {
	return s.contracts.Get(id)
}

func (s *Staging) GetCode(hash digest.Hash) ([]byte, error) {
	rec, err := s.code.Get(hash)
	if err != nil {
		return nil, err
	}
	return rec.Code, nil
}

// ScanAssets merges this layer's pending output entries over the
// enclosing Cached view's own merged scan (see Cached.ScanAssets).
func (s *Staging) ScanAssets(prefix []byte, limit int, pred func(TxOutputRef, TxOutput) bool) ([]smt.Entry[TxOutputRef, TxOutput], error) {
	return s.outputs.Scan(prefix, limit, pred)
}

// Commit merges this layer's pending writes into the enclosing Cached
// view and closes the layer.
func (s *Staging) Commit() error {
	if err := s.outputs.Commit(); err != nil {
		return err
	}
	if err := s.contracts.Commit(); err != nil {
		return err
	}
	return s.code.Commit()
}

// Rollback discards this layer's pending writes and closes the layer.
func (s *Staging) Rollback() error {
	if err := s.outputs.Rollback(); err != nil {
		return err
	}
	if err := s.contracts.Rollback(); err != nil {
		return err
	}
	return s.code.Rollback()
}

func bumpCodeRefcountStaging(code *smt.StagingSMT[digest.Hash, CodeRecord], hash digest.Hash, bytes []byte) error {
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

func decrementCodeRefcountStaging(code *smt.StagingSMT[digest.Hash, CodeRecord], hash digest.Hash) error {
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

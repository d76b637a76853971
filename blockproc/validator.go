// Package blockproc orchestrates the three world-state façade layers
// (§4.E/§4.F) across a block: one Cached view buffers every transaction
// in the block, and each transaction runs inside its own Staging view so
// a reverted transaction's writes never reach the block's Cached buffer.
// Grounded in the teacher's packer.Flow, which plays the analogous role
// of accumulating per-transaction state changes into a block-in-progress.
package blockproc

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/shardnode/core/chain"
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/metrics"
	"github.com/shardnode/core/stateerr"
	"github.com/shardnode/core/worldstate"
)

var logger = log.New("pkg", "blockproc")

// metricTxProcessed reports, per outcome ("applied"/"reverted"), how many
// transactions Process has folded into a block. CounterVec memoizes the
// underlying Prometheus vector, so this is cheap to call per transaction.
func metricTxProcessed(outcome string) metrics.CountMeter {
	return countWithLabel{metrics.CounterVec("blockproc_transactions_total", []string{"outcome"}), outcome}
}

func metricBlocksPacked() metrics.CountMeter { return metrics.Counter("blockproc_blocks_total") }

type countWithLabel struct {
	vec     metrics.CountVecMeter
	outcome string
}

func (c countWithLabel) Add(i int64) { c.vec.AddWithLabel(i, map[string]string{"outcome": c.outcome}) }

// OpKind discriminates the transaction-level operations a Tx may carry.
type OpKind int

const (
	OpAddAsset OpKind = iota
	OpRemoveAsset
	OpCreateContract
	OpUpdateContractFields
	OpUpdateContractOutput
	OpRemoveContract
)

func (k OpKind) String() string {
	switch k {
	case OpAddAsset:
		return "add-asset"
	case OpRemoveAsset:
		return "remove-asset"
	case OpCreateContract:
		return "create-contract"
	case OpUpdateContractFields:
		return "update-contract-fields"
	case OpUpdateContractOutput:
		return "update-contract-output"
	case OpRemoveContract:
		return "remove-contract"
	default:
		return "unknown"
	}
}

// Tx is one state-mutating operation to apply within its own Staging
// view. Only the fields relevant to Kind are read.
type Tx struct {
	Kind OpKind

	AssetRef  worldstate.TxOutputRef
	AssetOut  worldstate.TxOutput
	ContractID     worldstate.ContractId
	ContractCode   []byte
	ContractFields [][]byte
}

// Result records the outcome of applying one Tx.
type Result struct {
	Tx       Tx
	Reverted bool
	Err      error
}

// Block is an ordered batch of transactions to apply atomically: the
// whole block either all gets folded into the returned State, or the
// first irrecoverable error aborts the block before anything persists.
type Block struct {
	ParentID  digest.Hash
	Number    uint32
	Timestamp uint64
	Txs       []Tx
}

// Process runs every transaction in blk against base, each inside its
// own Staging view over one Cached buffer for the whole block. A
// transaction whose operation fails with an InvariantViolation (e.g. a
// duplicate contract id) is rolled back and
// recorded as Reverted, exactly like a reverted VM call — it does not
// abort the block. Any other error aborts block processing entirely.
func Process(base *worldstate.State, blk Block) (*worldstate.State, chain.Header, []Result, error) {
	cached := worldstate.NewCached(base)
	results := make([]Result, 0, len(blk.Txs))

	for _, tx := range blk.Txs {
		staging := worldstate.NewStaging(cached)
		err := applyTx(staging, tx)
		if err == nil {
			if cerr := staging.Commit(); cerr != nil {
				return nil, chain.Header{}, nil, errors.Wrap(cerr, "blockproc: commit staging view")
			}
			results = append(results, Result{Tx: tx})
			metricTxProcessed("applied").Add(1)
			continue
		}

		if !stateerr.Is(err, stateerr.InvariantViolation) {
			_ = staging.Rollback()
			return nil, chain.Header{}, nil, errors.Wrap(err, "blockproc: non-revertible transaction failure")
		}

		if rerr := staging.Rollback(); rerr != nil {
			return nil, chain.Header{}, nil, errors.Wrap(rerr, "blockproc: rollback staging view")
		}
		logger.Warn("transaction reverted", "kind", tx.Kind, "err", err)
		results = append(results, Result{Tx: tx, Reverted: true, Err: err})
		metricTxProcessed("reverted").Add(1)
	}

	newState, err := cached.Persist()
	if err != nil {
		return nil, chain.Header{}, nil, errors.Wrap(err, "blockproc: persist block")
	}

	header := chain.NewFromState(newState)
	header.ParentID = blk.ParentID
	header.Number = blk.Number
	header.Timestamp = blk.Timestamp

	metricBlocksPacked().Add(1)
	return newState, header, results, nil
}

func applyTx(s *worldstate.Staging, tx Tx) error {
	switch tx.Kind {
	case OpAddAsset:
		return s.AddAsset(tx.AssetRef, tx.AssetOut)
	case OpRemoveAsset:
		return s.RemoveAsset(tx.AssetRef)
	case OpCreateContract:
		return s.CreateContract(tx.ContractID, tx.ContractCode, tx.ContractFields, tx.AssetRef, tx.AssetOut)
	case OpUpdateContractFields:
		return s.UpdateContractFields(tx.ContractID, tx.ContractFields)
	case OpUpdateContractOutput:
		return s.UpdateContractOutput(tx.ContractID, tx.AssetRef, tx.AssetOut)
	case OpRemoveContract:
		return s.RemoveContract(tx.ContractID)
	default:
		return errors.Errorf("blockproc: unknown op kind %d", tx.Kind)
	}
}

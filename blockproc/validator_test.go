package blockproc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardnode/core/blockproc"
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/worldstate"
)

func emptyState(t *testing.T) *worldstate.State {
	t.Helper()
	store := kv.NewMemStore()
	return worldstate.Open(store, worldstate.Roots{})
}

func assetOutput(v uint64) worldstate.TxOutput {
	return worldstate.TxOutput{Kind: worldstate.OutputAsset, Value: v}
}

func TestProcessAppliesAllTransactions(t *testing.T) {
	base := emptyState(t)
	ref1 := worldstate.TxOutputRef(digest.Sum([]byte("ref1")))
	ref2 := worldstate.TxOutputRef(digest.Sum([]byte("ref2")))

	blk := blockproc.Block{
		Number:    1,
		Timestamp: 100,
		Txs: []blockproc.Tx{
			{Kind: blockproc.OpAddAsset, AssetRef: ref1, AssetOut: assetOutput(10)},
			{Kind: blockproc.OpAddAsset, AssetRef: ref2, AssetOut: assetOutput(20)},
			{Kind: blockproc.OpRemoveAsset, AssetRef: ref1},
		},
	}

	newState, header, results, err := blockproc.Process(base, blk)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Reverted)
	}

	_, err = newState.GetAsset(ref1)
	assert.Error(t, err)

	out, err := newState.GetAsset(ref2)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), out.Value)

	assert.Equal(t, header.StateHash(), newState.CompositeHash())
	assert.Equal(t, uint32(1), header.Number)
}

func TestProcessRevertsInvariantViolationsWithoutAbortingBlock(t *testing.T) {
	base := emptyState(t)
	ref := worldstate.TxOutputRef(digest.Sum([]byte("shared-ref")))
	id := worldstate.ContractId(digest.Sum([]byte("contract-1")))

	blk := blockproc.Block{
		Txs: []blockproc.Tx{
			{Kind: blockproc.OpCreateContract, ContractID: id, ContractCode: []byte("code-a"), AssetRef: ref, AssetOut: assetOutput(1)},
			// Duplicate create: should revert, not abort the block.
			{Kind: blockproc.OpCreateContract, ContractID: id, ContractCode: []byte("code-b"), AssetRef: ref, AssetOut: assetOutput(2)},
			{Kind: blockproc.OpAddAsset, AssetRef: worldstate.TxOutputRef(digest.Sum([]byte("unrelated"))), AssetOut: assetOutput(3)},
		},
	}

	newState, _, results, err := blockproc.Process(base, blk)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0].Reverted)
	assert.True(t, results[1].Reverted)
	assert.False(t, results[2].Reverted)

	cs, err := newState.GetContract(id)
	require.NoError(t, err)
	assert.Equal(t, digest.Sum([]byte("code-a")), cs.CodeHash)
}

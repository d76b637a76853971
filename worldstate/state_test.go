package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/stateerr"
)

func emptyState(t *testing.T) *State {
	t.Helper()
	return Open(kv.NewMemStore(), Roots{})
}

func assetOutput(v uint64) TxOutput {
	return TxOutput{Kind: OutputAsset, Value: v}
}

func contractOutput(v uint64) TxOutput {
	return TxOutput{Kind: OutputContract, Value: v}
}

func TestAddAndGetAsset(t *testing.T) {
	s := emptyState(t)
	ref := TxOutputRef(digest.Sum([]byte("ref-1")))

	s, err := s.AddAsset(ref, assetOutput(10))
	require.NoError(t, err)

	out, err := s.GetAsset(ref)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), out.Value)
}

func TestGetAssetOnContractOutputIsInvariantViolation(t *testing.T) {
	s := emptyState(t)
	ref := TxOutputRef(digest.Sum([]byte("ref-1")))
	s, err := s.AddAsset(ref, contractOutput(5))
	require.NoError(t, err)

	_, err = s.GetAsset(ref)
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.InvariantViolation))
}

func TestRemoveAssetMissingIsKeyNotFound(t *testing.T) {
	s := emptyState(t)
	_, err := s.RemoveAsset(TxOutputRef(digest.Sum([]byte("nope"))))
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.KeyNotFound))
}

func TestCreateContractDedupesCodeRefcount(t *testing.T) {
	s := emptyState(t)
	code := []byte("contract bytecode")
	id1 := ContractId(digest.Sum([]byte("contract-1")))
	id2 := ContractId(digest.Sum([]byte("contract-2")))
	ref1 := TxOutputRef(digest.Sum([]byte("out-1")))
	ref2 := TxOutputRef(digest.Sum([]byte("out-2")))

	s, err := s.CreateContract(id1, code, [][]byte{[]byte("f1")}, ref1, contractOutput(1))
	require.NoError(t, err)
	s, err = s.CreateContract(id2, code, [][]byte{[]byte("f2")}, ref2, contractOutput(2))
	require.NoError(t, err)

	codeHash := digest.Sum(code)
	rec, err := s.code.Get(codeHash)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.RefCount)
	assert.Equal(t, code, rec.Code)

	s, err = s.RemoveContract(id1)
	require.NoError(t, err)

	rec, err = s.code.Get(codeHash)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.RefCount)

	fetched, err := s.GetCode(codeHash)
	require.NoError(t, err)
	assert.Equal(t, code, fetched)

	s, err = s.RemoveContract(id2)
	require.NoError(t, err)
	_, err = s.code.Get(codeHash)
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.KeyNotFound))
}

func TestCreateContractAlreadyExistsFails(t *testing.T) {
	s := emptyState(t)
	id := ContractId(digest.Sum([]byte("c")))
	ref := TxOutputRef(digest.Sum([]byte("o")))
	s, err := s.CreateContract(id, []byte("code"), nil, ref, contractOutput(0))
	require.NoError(t, err)

	_, err = s.CreateContract(id, []byte("code"), nil, ref, contractOutput(0))
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.InvariantViolation))
}

func TestRemoveContractDoubleRemoveIsKeyNotFound(t *testing.T) {
	s := emptyState(t)
	id := ContractId(digest.Sum([]byte("c")))
	ref := TxOutputRef(digest.Sum([]byte("o")))
	s, err := s.CreateContract(id, []byte("code"), nil, ref, contractOutput(0))
	require.NoError(t, err)

	s, err = s.RemoveContract(id)
	require.NoError(t, err)

	_, err = s.RemoveContract(id)
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.KeyNotFound))
}

func TestUpdateContractFieldsKeepsOutputAndCode(t *testing.T) {
	s := emptyState(t)
	id := ContractId(digest.Sum([]byte("c")))
	ref := TxOutputRef(digest.Sum([]byte("o")))
	s, err := s.CreateContract(id, []byte("code"), [][]byte{[]byte("old")}, ref, contractOutput(0))
	require.NoError(t, err)

	s, err = s.UpdateContractFields(id, [][]byte{[]byte("new")})
	require.NoError(t, err)

	cs, err := s.contracts.Get(id)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("new")}, cs.Fields)
	assert.Equal(t, ref, cs.OutputRef)
}

func TestUpdateContractOutputMovesOutput(t *testing.T) {
	s := emptyState(t)
	id := ContractId(digest.Sum([]byte("c")))
	ref1 := TxOutputRef(digest.Sum([]byte("o1")))
	ref2 := TxOutputRef(digest.Sum([]byte("o2")))
	s, err := s.CreateContract(id, []byte("code"), nil, ref1, contractOutput(1))
	require.NoError(t, err)

	s, err = s.UpdateContractOutput(id, ref2, contractOutput(2))
	require.NoError(t, err)

	_, err = s.outputs.Get(ref1)
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.KeyNotFound))

	out, err := s.outputs.Get(ref2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), out.Value)
}

func TestCompositeHashChangesIffOutputOrContractRootChanges(t *testing.T) {
	s := emptyState(t)
	before := s.CompositeHash()

	s, err := s.AddAsset(TxOutputRef(digest.Sum([]byte("a"))), assetOutput(1))
	require.NoError(t, err)
	afterOutput := s.CompositeHash()
	assert.NotEqual(t, before, afterOutput)

	id := ContractId(digest.Sum([]byte("c")))
	ref := TxOutputRef(digest.Sum([]byte("cref")))
	s, err = s.CreateContract(id, []byte("code"), nil, ref, contractOutput(0))
	require.NoError(t, err)
	afterContract := s.CompositeHash()
	assert.NotEqual(t, afterOutput, afterContract)
}

func TestCompositeHashExcludesCodeRoot(t *testing.T) {
	s := emptyState(t)
	before := s.CompositeHash()
	codeRootBefore := s.Roots().CodeRoot

	newCode, err := s.code.Put(digest.Sum([]byte("unrelated-code")), CodeRecord{Code: []byte("x"), RefCount: 1})
	require.NoError(t, err)
	s.code = newCode

	assert.NotEqual(t, codeRootBefore, s.Roots().CodeRoot, "codeRoot should have moved")
	assert.Equal(t, before, s.CompositeHash(), "composite hash must not depend on codeRoot")
}

func TestPersistEquivalenceBetweenDirectPutAndCachedPersist(t *testing.T) {
	store := kv.NewMemStore()
	direct := Open(store, Roots{})
	ref1 := TxOutputRef(digest.Sum([]byte("a")))
	ref2 := TxOutputRef(digest.Sum([]byte("b")))
	var err error
	direct, err = direct.AddAsset(ref1, assetOutput(1))
	require.NoError(t, err)
	direct, err = direct.AddAsset(ref2, assetOutput(2))
	require.NoError(t, err)

	store2 := kv.NewMemStore()
	base := Open(store2, Roots{})
	cached := NewCached(base)
	require.NoError(t, cached.AddAsset(ref1, assetOutput(1)))
	require.NoError(t, cached.AddAsset(ref2, assetOutput(2)))
	persisted, err := cached.Persist()
	require.NoError(t, err)

	assert.Equal(t, direct.Roots(), persisted.Roots())
}

func TestStagingRollbackScenario(t *testing.T) {
	store := kv.NewMemStore()
	base := Open(store, Roots{})
	a0 := TxOutputRef(digest.Sum([]byte("a0")))
	a1 := TxOutputRef(digest.Sum([]byte("a1")))
	base, err := base.AddAsset(a0, assetOutput(1))
	require.NoError(t, err)

	cache := NewCached(base)
	staging := NewStaging(cache)
	require.NoError(t, staging.AddAsset(a1, assetOutput(2)))
	require.NoError(t, staging.RemoveAsset(a0))

	_, err = cache.GetAsset(a0)
	require.NoError(t, err, "cache must be unaffected while staging is open")

	require.NoError(t, staging.Rollback())

	out, err := cache.GetAsset(a0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Value)
	_, err = cache.GetAsset(a1)
	require.Error(t, err)
}

func TestStagingCommitScenario(t *testing.T) {
	store := kv.NewMemStore()
	base := Open(store, Roots{})
	a0 := TxOutputRef(digest.Sum([]byte("a0")))
	a1 := TxOutputRef(digest.Sum([]byte("a1")))
	base, err := base.AddAsset(a0, assetOutput(1))
	require.NoError(t, err)

	cache := NewCached(base)
	staging := NewStaging(cache)
	require.NoError(t, staging.AddAsset(a1, assetOutput(2)))
	require.NoError(t, staging.RemoveAsset(a0))
	require.NoError(t, staging.Commit())

	_, err = cache.GetAsset(a0)
	require.Error(t, err)
	out, err := cache.GetAsset(a1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), out.Value)
}

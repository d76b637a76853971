package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardnode/core/kv"
)

func newStagingTestCached(t *testing.T) *CachedSMT[[]byte, []byte] {
	t.Helper()
	store := kv.NewMemStore()
	base := New[[]byte, []byte](store, EmptyRootHash(), bytesCodec(), bytesCodec())
	return NewCached(base)
}

func TestStagingIsolatedUntilCommit(t *testing.T) {
	c := newStagingTestCached(t)
	s := NewStaging(c)

	require.NoError(t, s.Put([]byte("k"), []byte("staged")))

	_, ok, err := c.GetOpt([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok, "cache must not see staged writes before commit")

	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("staged"), v)
}

func TestStagingRollbackDiscardsWrites(t *testing.T) {
	c := newStagingTestCached(t)
	s := NewStaging(c)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Rollback())

	_, ok, err := c.GetOpt([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStagingCommitFoldsIntoCache(t *testing.T) {
	c := newStagingTestCached(t)
	s := NewStaging(c)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Commit())

	v, err := c.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestStagingCommitWinsOverCacheConflict(t *testing.T) {
	c := newStagingTestCached(t)
	require.NoError(t, c.Put([]byte("k"), []byte("cache-value")))

	s := NewStaging(c)
	require.NoError(t, s.Put([]byte("k"), []byte("staged-value")))
	require.NoError(t, s.Commit())

	v, err := c.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("staged-value"), v)
}

func TestStagingOperationsAfterCommitFail(t *testing.T) {
	c := newStagingTestCached(t)
	s := NewStaging(c)
	require.NoError(t, s.Commit())

	assert.Error(t, s.Put([]byte("k"), []byte("v")))
	assert.Error(t, s.Remove([]byte("k")))
	assert.Error(t, s.Commit())
	assert.Error(t, s.Rollback())
}

func TestStagingOperationsAfterRollbackFail(t *testing.T) {
	c := newStagingTestCached(t)
	s := NewStaging(c)
	require.NoError(t, s.Rollback())

	assert.Error(t, s.Put([]byte("k"), []byte("v")))
	assert.Error(t, s.Commit())
}

func TestStagingScanMergesOverCache(t *testing.T) {
	c := newStagingTestCached(t)
	require.NoError(t, c.Put([]byte("alpha"), []byte("1")))

	s := NewStaging(c)
	require.NoError(t, s.Put([]byte("beta"), []byte("2")))
	require.NoError(t, s.Remove([]byte("alpha")))

	entries, err := s.Scan(nil, 0, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, []byte("beta"), entries[0].Key)
}

package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/stateerr"
)

func TestLeafNodeEncodeDecodeRoundTrip(t *testing.T) {
	leaf := &leafNode{path: []byte{1, 2, 3}, key: []byte("k"), value: []byte("v")}
	decoded, err := decodeNode(leaf.encode())
	require.NoError(t, err)
	got, ok := decoded.(*leafNode)
	require.True(t, ok)
	assert.Equal(t, leaf.path, got.path)
	assert.Equal(t, leaf.key, got.key)
	assert.Equal(t, leaf.value, got.value)
}

func TestBranchNodeEncodeDecodeRoundTrip(t *testing.T) {
	h := digest.Sum([]byte("child"))
	branch := &branchNode{path: []byte{4, 5}, value: []byte("top"), valueKey: []byte("topkey")}
	branch.children[3] = &h

	decoded, err := decodeNode(branch.encode())
	require.NoError(t, err)
	got, ok := decoded.(*branchNode)
	require.True(t, ok)
	assert.Equal(t, branch.path, got.path)
	assert.Equal(t, branch.value, got.value)
	assert.Equal(t, branch.valueKey, got.valueKey)
	require.NotNil(t, got.children[3])
	assert.Equal(t, h, *got.children[3])
	assert.Nil(t, got.children[0])
}

func TestMissingReferencedNodeIsCorruption(t *testing.T) {
	store := kv.NewMemStore()
	trie := New[[]byte, []byte](store, EmptyRootHash(), bytesCodec(), bytesCodec())
	trie, err := trie.Put([]byte("k"), []byte("v"))
	require.NoError(t, err)

	root := trie.RootHash()
	require.NoError(t, store.Remove(root))

	_, err = trie.Get([]byte("k"))
	require.Error(t, err)
	assert.True(t, stateerr.Is(err, stateerr.IOError))
}

func TestHashNodeIsDeterministic(t *testing.T) {
	leaf := &leafNode{path: []byte{1, 2}, key: []byte("k"), value: []byte("v")}
	other := &leafNode{path: []byte{1, 2}, key: []byte("k"), value: []byte("v")}
	assert.Equal(t, hashNode(leaf), hashNode(other))
}

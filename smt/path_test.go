package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodePathRoundTrip(t *testing.T) {
	cases := []struct {
		nibbles []byte
		leaf    bool
	}{
		{nil, false},
		{nil, true},
		{[]byte{0x1}, false},
		{[]byte{0x1}, true},
		{[]byte{0x1, 0xa}, false},
		{[]byte{0x1, 0xa}, true},
		{[]byte{0xf, 0x0, 0xe, 0x3, 0x9}, false},
		{[]byte{0xf, 0x0, 0xe, 0x3, 0x9}, true},
	}
	for _, c := range cases {
		compact := encodePath(c.nibbles, c.leaf)
		nibbles, leaf := decodePath(compact)
		assert.Equal(t, c.leaf, leaf)
		assert.Equal(t, c.nibbles, nibbles)
	}
}

func TestEncodePathDistinguishesBranchAndLeafFlags(t *testing.T) {
	nibbles := []byte{0x3, 0x7}
	branch := encodePath(nibbles, false)
	leaf := encodePath(nibbles, true)
	assert.NotEqual(t, branch, leaf)
}

func TestKeyToNibblesLength(t *testing.T) {
	n := keyToNibbles([]byte("any key"))
	assert.Len(t, n, 64)
}

func TestCommonPrefixLen(t *testing.T) {
	assert.Equal(t, 3, commonPrefixLen([]byte{1, 2, 3, 4}, []byte{1, 2, 3, 9}))
	assert.Equal(t, 0, commonPrefixLen([]byte{1}, []byte{2}))
	assert.Equal(t, 2, commonPrefixLen([]byte{1, 2}, []byte{1, 2, 3}))
}

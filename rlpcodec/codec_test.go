package rlpcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A uint64
	B []byte
}

func TestRoundTrip(t *testing.T) {
	in := sample{A: 7, B: []byte("hi")}
	b, err := Encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Decode(b, &out))
	assert.Equal(t, in, out)
}

func TestCanonical(t *testing.T) {
	a, err := Encode(sample{A: 1, B: []byte("x")})
	require.NoError(t, err)
	b, err := Encode(sample{A: 1, B: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Encode(sample{A: 2, B: []byte("x")})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDecodeStreamConsecutive(t *testing.T) {
	a, err := Encode(sample{A: 1, B: []byte("one")})
	require.NoError(t, err)
	b, err := Encode(sample{A: 2, B: []byte("two")})
	require.NoError(t, err)

	buf := append(append([]byte{}, a...), b...)

	var first sample
	rest, err := DecodeStream(buf, &first)
	require.NoError(t, err)
	assert.Equal(t, sample{A: 1, B: []byte("one")}, first)

	var second sample
	rest, err = DecodeStream(rest, &second)
	require.NoError(t, err)
	assert.Equal(t, sample{A: 2, B: []byte("two")}, second)
	assert.Empty(t, rest)
}

func TestDecodeMalformedInputFails(t *testing.T) {
	var out sample
	err := Decode([]byte{0xFF}, &out)
	require.Error(t, err)
}

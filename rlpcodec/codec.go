// Package rlpcodec is the deterministic, length-prefixed, byte-exact binary
// codec (§4.B) used for every key, value and node payload in the trie and
// world-state layers. It is a thin wrapper over go-ethereum's RLP
// implementation, which already guarantees a unique encoding per value
// (canonical) and supports exact round-tripping.
package rlpcodec

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/shardnode/core/stateerr"
)

// Encode serializes v into its canonical byte representation.
func Encode(v interface{}) ([]byte, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, stateerr.New(stateerr.DecodeError, err)
	}
	return b, nil
}

// Decode parses b into v, which must be a pointer. It fails with a
// DecodeError whose Offset is len(b) when the underlying error is io.EOF
// or io.ErrUnexpectedEOF, and -1 for any other decoding failure.
func Decode(b []byte, v interface{}) error {
	if err := rlp.DecodeBytes(b, v); err != nil {
		return stateerr.NewDecodeError(offsetOf(err, len(b)), err)
	}
	return nil
}

// DecodeStream decodes a single value from the front of b and returns the
// value along with whatever remains unread — the "decode: bytes ->
// (T, bytes-remaining)" contract of §4.B, used for nested node decoding
// where one buffer encodes several consecutive values back to back.
func DecodeStream(b []byte, v interface{}) (remaining []byte, err error) {
	r := newByteReader(b)
	s := rlp.NewStream(r, uint64(len(b)))
	if decodeErr := s.Decode(v); decodeErr != nil {
		return nil, stateerr.NewDecodeError(offsetOf(decodeErr, len(b)), decodeErr)
	}
	return b[r.pos:], nil
}

func offsetOf(err error, total int) int {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return total
	}
	return -1
}

type byteReader struct {
	b   []byte
	pos int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

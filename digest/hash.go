// Package digest provides the 32-byte hash primitive shared by the node
// store, the trie and the world-state façade.
package digest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto/blake2b"
)

// Hash is a 32-byte digest. It is used as node addresses in the byte store,
// as transaction output references, contract ids and code hashes.
type Hash [32]byte

var (
	_ json.Marshaler   = (*Hash)(nil)
	_ json.Unmarshaler = (*Hash)(nil)
)

// Zero is the zero hash.
var Zero = Hash{}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Parse parses a 0x-prefixed or bare hex string into a Hash.
func Parse(s string) (Hash, error) {
	switch len(s) {
	case 64:
	case 66:
		if !strings.EqualFold(s[:2], "0x") {
			return Hash{}, errors.New("digest: invalid prefix")
		}
		s = s[2:]
	default:
		return Hash{}, errors.New("digest: invalid length")
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// FromBytes truncates or left-pads b into a Hash.
func FromBytes(b []byte) Hash {
	var h Hash
	if len(b) >= len(h) {
		copy(h[:], b[len(b)-len(h):])
	} else {
		copy(h[len(h)-len(b):], b)
	}
	return h
}

// Sum computes the blake2b-256 digest of the concatenation of parts.
// It is the node-content hash function H() referred to throughout the
// trie and world-state specifications.
func Sum(parts ...[]byte) Hash {
	w, _ := blake2b.New256(nil)
	for _, p := range parts {
		w.Write(p)
	}
	return FromBytes(w.Sum(nil))
}

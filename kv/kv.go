// Package kv implements the opaque, persistent 32-byte-key byte store that
// the trie and world-state layers are built on (§4.A). It is the only
// shared resource in the system: nodes are content-addressed and immutable,
// so readers never need to coordinate with writers, but the store itself
// must serialize concurrent Put calls.
package kv

import (
	"bytes"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/stateerr"
)

// Pair is a single key/value result from Scan.
type Pair struct {
	Key   digest.Hash
	Value []byte
}

// Store is the byte-level key-value contract consumed by the trie.
//
// Put is idempotent on (key, value): putting the same bytes under a key
// that already holds them is a no-op. Putting different bytes under an
// existing key is an InvariantViolation, since keys are content hashes.
type Store interface {
	// Get returns the value for key, or a KeyNotFound error.
	Get(key digest.Hash) ([]byte, error)
	// GetOpt returns (value, true) if key exists, or (nil, false) with no
	// error if it doesn't.
	GetOpt(key digest.Hash) ([]byte, bool, error)
	// Put stores value under key. See the idempotency rule above.
	Put(key digest.Hash, value []byte) error
	// Remove deletes key. It is not an error to remove an absent key.
	// The trie and world-state layers never call Remove: nodes stay in
	// the store once written, and domain entries (outputs, contract
	// state, code records) are removed from their tries, not from here.
	Remove(key digest.Hash) error
	// Exists reports whether key is present.
	Exists(key digest.Hash) (bool, error)
	// Scan returns up to limit (key, value) pairs whose key starts with
	// prefix, in ascending lexicographic key order. limit <= 0 means
	// unlimited.
	Scan(prefix []byte, limit int) ([]Pair, error)
}

// hasPrefix reports whether k starts with prefix.
func hasPrefix(k digest.Hash, prefix []byte) bool {
	return bytes.HasPrefix(k[:], prefix)
}

func notFound(key digest.Hash) error {
	return stateerr.Newf(stateerr.KeyNotFound, "kv: key %s not found", key)
}

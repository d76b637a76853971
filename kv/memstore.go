package kv

import (
	"bytes"
	"sort"
	"sync"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/stateerr"
)

// MemStore is an in-memory Store, used by tests and the demo CLI.
type MemStore struct {
	mu sync.RWMutex
	m  map[digest.Hash][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[digest.Hash][]byte)}
}

func (s *MemStore) Get(key digest.Hash) ([]byte, error) {
	v, ok, err := s.GetOpt(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(key)
	}
	return v, nil
}

func (s *MemStore) GetOpt(key digest.Hash) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy, true, nil
}

func (s *MemStore) Put(key digest.Hash, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		if bytes.Equal(existing, value) {
			return nil
		}
		return stateerr.Newf(stateerr.InvariantViolation,
			"kv: key %s already holds different bytes", key)
	}
	cpy := make([]byte, len(value))
	copy(cpy, value)
	s.m[key] = cpy
	return nil
}

func (s *MemStore) Remove(key digest.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemStore) Exists(key digest.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key]
	return ok, nil
}

func (s *MemStore) Scan(prefix []byte, limit int) ([]Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Pair
	for k, v := range s.m {
		if hasPrefix(k, prefix) {
			cpy := make([]byte, len(v))
			copy(cpy, v)
			out = append(out, Pair{Key: k, Value: cpy})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Key[:], out[j].Key[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemStore)(nil)

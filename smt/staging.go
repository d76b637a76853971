package smt

import (
	"bytes"
	"sort"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/stateerr"
)

// StagingSMT is the rollbackable speculative layer of §4.F: a second
// pending map sitting atop a CachedSMT, with an explicit Open/Closed
// state machine. Operations after Commit or Rollback are refused with an
// InvariantViolation error, matching the teacher's pattern of guarding
// post-close mutation of a staged view.
type StagingSMT[K, V any] struct {
	cached  *CachedSMT[K, V]
	pending map[string]pendingOp
	closed  bool
}

// NewStaging opens a new speculative layer over cached.
func NewStaging[K, V any](cached *CachedSMT[K, V]) *StagingSMT[K, V] {
	return &StagingSMT[K, V]{cached: cached, pending: make(map[string]pendingOp)}
}

func (s *StagingSMT[K, V]) checkOpen() error {
	if s.closed {
		return stateerr.Newf(stateerr.InvariantViolation, "smt: staging layer already committed or rolled back")
	}
	return nil
}

func (s *StagingSMT[K, V]) GetOpt(key K) (V, bool, error) {
	var zero V
	if err := s.checkOpen(); err != nil {
		return zero, false, err
	}
	encKey, err := s.cached.base.keys.Encode(key)
	if err != nil {
		return zero, false, err
	}
	if op, ok := s.pending[string(encKey)]; ok {
		if op.tombstone {
			return zero, false, nil
		}
		var v V
		if err := s.cached.base.vals.Decode(op.value, &v); err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return s.cached.GetOpt(key)
}

func (s *StagingSMT[K, V]) Get(key K) (V, error) {
	v, ok, err := s.GetOpt(key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, notFoundKey()
	}
	return v, nil
}

func (s *StagingSMT[K, V]) Exist(key K) (bool, error) {
	_, ok, err := s.GetOpt(key)
	return ok, err
}

func (s *StagingSMT[K, V]) Put(key K, value V) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	encKey, err := s.cached.base.keys.Encode(key)
	if err != nil {
		return err
	}
	encVal, err := s.cached.base.vals.Encode(value)
	if err != nil {
		return err
	}
	s.pending[string(encKey)] = pendingOp{key: encKey, value: encVal}
	return nil
}

func (s *StagingSMT[K, V]) Remove(key K) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	encKey, err := s.cached.base.keys.Encode(key)
	if err != nil {
		return err
	}
	s.pending[string(encKey)] = pendingOp{key: encKey, tombstone: true}
	return nil
}

// Scan merges this layer's pending map over the enclosing Cached view.
func (s *StagingSMT[K, V]) Scan(prefix []byte, n int, pred func(K, V) bool) ([]Entry[K, V], error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	cachedEntries, err := s.cached.Scan(prefix, 0, nil)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]RawEntry, len(cachedEntries)+len(s.pending))
	for _, e := range cachedEntries {
		ek, err := s.cached.base.keys.Encode(e.Key)
		if err != nil {
			return nil, err
		}
		ev, err := s.cached.base.vals.Encode(e.Value)
		if err != nil {
			return nil, err
		}
		merged[string(ek)] = RawEntry{Key: ek, Value: ev}
	}
	for k, op := range s.pending {
		if !bytes.HasPrefix(keyToNibbles(op.key), bytesToNibbles(prefix)) {
			continue
		}
		if op.tombstone {
			delete(merged, k)
			continue
		}
		merged[k] = RawEntry{Key: op.key, Value: op.value}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry[K, V], 0, len(merged))
	for _, k := range keys {
		e := merged[k]
		var kk K
		var vv V
		if err := s.cached.base.keys.Decode(e.Key, &kk); err != nil {
			return nil, err
		}
		if err := s.cached.base.vals.Decode(e.Value, &vv); err != nil {
			return nil, err
		}
		if pred != nil && !pred(kk, vv) {
			continue
		}
		out = append(out, Entry[K, V]{Key: kk, Value: vv})
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out, nil
}

// Commit folds this layer's pending writes into the enclosing CachedSMT
// (staging wins any conflict with the cache's own pending map) and
// closes the layer. Further operations return InvariantViolation.
func (s *StagingSMT[K, V]) Commit() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for k, op := range s.pending {
		s.cached.pending[k] = op
	}
	s.closed = true
	return nil
}

// Rollback discards this layer's pending writes without touching the
// enclosing CachedSMT, and closes the layer.
func (s *StagingSMT[K, V]) Rollback() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.pending = nil
	s.closed = true
	return nil
}

// RootHash reports the enclosing Cached view's underlying Persisted
// root; staged writes are not reflected until Commit and Persist.
func (s *StagingSMT[K, V]) RootHash() digest.Hash {
	return s.cached.RootHash()
}

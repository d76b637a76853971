package kv

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/stateerr"
)

var (
	writeOpt = &opt.WriteOptions{Sync: true}
	readOpt  = &opt.ReadOptions{}
)

// LevelStore is a goleveldb-backed, durable Store. Writes are synchronous:
// Put/Remove do not return until goleveldb acknowledges the write, giving
// the durability guarantee required by §4.A.
//
// goleveldb already serves concurrent readers; writes are serialized with
// a mutex, satisfying the "store provides its own concurrency control for
// put" clause of §5.
type LevelStore struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Options tunes the underlying leveldb instance.
type Options struct {
	CacheSizeMB            int
	OpenFilesCacheCapacity int
}

// Open opens (or creates) a persistent leveldb store at path.
func Open(path string, o Options) (*LevelStore, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "kv: open leveldb")
	}
	return open(stg, o)
}

// OpenMem opens an in-memory leveldb instance. Unlike MemStore it exercises
// the real goleveldb write path; useful for tests that need to verify the
// LevelStore-specific behavior without touching disk.
func OpenMem() (*LevelStore, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, o Options) (*LevelStore, error) {
	cacheSize := o.CacheSizeMB
	if cacheSize < 16 {
		cacheSize = 16
	}
	openFiles := o.OpenFilesCacheCapacity
	if openFiles < 16 {
		openFiles = 16
	}
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFiles,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "kv: open leveldb")
	}
	return &LevelStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

func (s *LevelStore) Get(key digest.Hash) ([]byte, error) {
	v, err := s.db.Get(key[:], readOpt)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, notFound(key)
		}
		return nil, stateerr.New(stateerr.IOError, err)
	}
	return v, nil
}

func (s *LevelStore) GetOpt(key digest.Hash) ([]byte, bool, error) {
	v, err := s.db.Get(key[:], readOpt)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, stateerr.New(stateerr.IOError, err)
	}
	return v, true, nil
}

func (s *LevelStore) Put(key digest.Hash, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.db.Get(key[:], readOpt)
	if err == nil {
		if bytes.Equal(existing, value) {
			return nil
		}
		return stateerr.Newf(stateerr.InvariantViolation,
			"kv: key %s already holds different bytes", key)
	} else if err != leveldb.ErrNotFound {
		return stateerr.New(stateerr.IOError, err)
	}

	if err := s.db.Put(key[:], value, writeOpt); err != nil {
		return stateerr.New(stateerr.IOError, err)
	}
	return nil
}

func (s *LevelStore) Remove(key digest.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(key[:], writeOpt); err != nil {
		return stateerr.New(stateerr.IOError, err)
	}
	return nil
}

func (s *LevelStore) Exists(key digest.Hash) (bool, error) {
	ok, err := s.db.Has(key[:], readOpt)
	if err != nil {
		return false, stateerr.New(stateerr.IOError, err)
	}
	return ok, nil
}

func (s *LevelStore) Scan(prefix []byte, limit int) ([]Pair, error) {
	rng := util.BytesPrefix(prefix)
	it := s.db.NewIterator(rng, readOpt)
	defer it.Release()

	var out []Pair
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, Pair{
			Key:   digest.FromBytes(it.Key()),
			Value: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Error(); err != nil {
		return nil, stateerr.New(stateerr.IOError, err)
	}
	return out, nil
}

var _ Store = (*LevelStore)(nil)

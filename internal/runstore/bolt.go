package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	"specforge/internal/types"
)

var (
	bucketRuns      = []byte("runs")
	bucketSummaries = []byte("summaries")
)

const cacheSize = 128

// BoltStore keeps runs in a single local bbolt file. Recently loaded results
// stay in an LRU cache so history views do not re-decode large run bundles.
type BoltStore struct {
	db    *bolt.DB
	cache *lru.Cache[string, *types.RunResult]
}

// NewBolt opens (or creates) the store file at path.
func NewBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runstore: create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("runstore: open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketSummaries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: create buckets: %w", err)
	}
	cache, err := lru.New[string, *types.RunResult](cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, cache: cache}, nil
}

func (s *BoltStore) Save(result *types.RunResult) error {
	full, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("runstore: marshal run: %w", err)
	}
	sum, err := json.Marshal(summarize(result))
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(result.RunID), full); err != nil {
			return err
		}
		return tx.Bucket(bucketSummaries).Put([]byte(result.RunID), sum)
	})
	if err != nil {
		return err
	}
	s.cache.Add(result.RunID, result)
	return nil
}

func (s *BoltStore) Load(runID string) (*types.RunResult, error) {
	if r, ok := s.cache.Get(runID); ok {
		return r, nil
	}
	var result types.RunResult
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(runID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	s.cache.Add(runID, &result)
	return &result, nil
}

func (s *BoltStore) List() ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSummaries).ForEach(func(_, v []byte) error {
			var sum Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return err
			}
			out = append(out, sum)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Close() error { return s.db.Close() }

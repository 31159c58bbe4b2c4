package mockgen

import (
	"sync"
	"time"

	"specforge/internal/utils"
)

// record is one stored mock resource.
type record map[string]any

// store keeps per-collection records keyed by surrogate id. It is safe for
// concurrent handler invocations.
type store struct {
	mu          sync.RWMutex
	collections map[string]map[string]record
	order       map[string][]string // insertion order per collection
	seq         int
}

func newStore() *store {
	return &store{
		collections: map[string]map[string]record{},
		order:       map[string][]string{},
	}
}

// create inserts a new record, assigning a surrogate id and timestamps.
func (s *store) create(collection string, body map[string]any) record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := utils.RecordID(collection, s.seq)
	now := time.Now().UTC().Format(time.RFC3339)

	rec := record{}
	for k, v := range body {
		rec[k] = v
	}
	rec["id"] = id
	rec["created_at"] = now
	rec["updated_at"] = now

	if s.collections[collection] == nil {
		s.collections[collection] = map[string]record{}
	}
	s.collections[collection][id] = rec
	s.order[collection] = append(s.order[collection], id)
	return rec
}

func (s *store) get(collection, id string) (record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[collection][id]
	return rec, ok
}

// update overwrites the stored record's fields and bumps updated_at. The
// record is created on the fly when absent, matching PUT-as-upsert semantics.
func (s *store) update(collection, id string, body map[string]any) record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		rec = record{"id": id, "created_at": time.Now().UTC().Format(time.RFC3339)}
		if s.collections[collection] == nil {
			s.collections[collection] = map[string]record{}
		}
		s.collections[collection][id] = rec
		s.order[collection] = append(s.order[collection], id)
	}
	for k, v := range body {
		if k == "id" || k == "created_at" {
			continue
		}
		rec[k] = v
	}
	rec["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	return rec
}

func (s *store) delete(collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return false
	}
	delete(s.collections[collection], id)
	ids := s.order[collection]
	for i, v := range ids {
		if v == id {
			s.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

// page returns up to limit records starting at offset, in insertion order.
func (s *store) page(collection string, limit, offset int) []record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[collection]
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]record, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, s.collections[collection][id])
	}
	return out
}

func (s *store) count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

package purchase

import (
	"context"
	"sync"

	"shopbot-svc/models"
)

// FulfillmentStore holds the set of delivered payload tokens. Insert must be
// an atomic check-and-set: of any number of concurrent inserts for the same
// token exactly one reports inserted.
type FulfillmentStore interface {
	Exists(ctx context.Context, token string) (bool, error)
	Insert(ctx context.Context, record models.FulfillmentRecord) (bool, error)
}

// MemoryStore keeps fulfillment records for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.FulfillmentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.FulfillmentRecord)}
}

func (s *MemoryStore) Exists(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[token]
	return ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, record models.FulfillmentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.PayloadToken]; ok {
		return false, nil
	}
	s.records[record.PayloadToken] = record
	return true, nil
}

// Len is the number of delivered tokens.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Get(token string) (models.FulfillmentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[token]
	return r, ok
}

package memory

import (
	"context"
	"sync"
	"time"

	"stayregister/internal/app/middleware"
)

// IdempotencyStore keeps replayable stay-creation results per owner-scoped
// key. Records older than maxAge are dropped on the next Save; maxAge <= 0
// keeps them for the life of the process.
type IdempotencyStore struct {
	mu     sync.Mutex
	maxAge time.Duration
	items  map[string]middleware.IdempotencyRecord
	now    func() time.Time
}

func NewIdempotencyStore(maxAge time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		maxAge: maxAge,
		items:  make(map[string]middleware.IdempotencyRecord),
		now:    time.Now,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for k, old := range s.items {
			if old.OccurredAt.Before(cutoff) {
				delete(s.items, k)
			}
		}
	}
	s.items[rec.Key] = rec
	return nil
}

// Len reports how many records are held.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

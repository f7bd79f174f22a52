package memory

import (
	"context"
	"sync"

	"civbuilders/internal/domain/progression"
)

type Store struct {
	mu     sync.Mutex
	saves  map[string]progression.Record
	events map[string][]progression.DomainEvent
}

func NewStore() *Store {
	return &Store{
		saves:  make(map[string]progression.Record),
		events: make(map[string][]progression.DomainEvent),
	}
}

type txKey struct{}

// with runs fn under the store lock unless ctx already belongs to a
// transaction opened by TxManager, which holds the lock.
func (s *Store) with(ctx context.Context, fn func()) {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Store) SeedSave(userID string, record progression.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves[userID] = cloneRecord(record)
}

func cloneRecord(r progression.Record) progression.Record {
	r.PlayedContributions = append([]string(nil), r.PlayedContributions...)
	r.DebunkedMyths = append([]string(nil), r.DebunkedMyths...)
	return r
}

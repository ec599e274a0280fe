package memory

import (
	"context"
	"sync"

	id "leadline/pkg/domain"
	audit "leadline/pkg/platform/audit"
)

// InMemoryStore keeps events per owner. It is the default sink when no
// broker is configured and the fallback when the broker circuit is open.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.OwnerID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.OwnerID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.OwnerID] = append(s.events[event.OwnerID], event)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.OwnerID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[ownerID]...), nil
}

// ListRecent returns up to limit of the owner's latest events, newest last.
func (s *InMemoryStore) ListRecent(_ context.Context, ownerID id.OwnerID, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[ownerID]
	start := max(len(events)-limit, 0)
	return append([]audit.Event{}, events[start:]...), nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"leadline/internal/routes/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

// InMemory keeps routes per process for development and tests.
type InMemory struct {
	mu     sync.RWMutex
	routes map[id.RouteID]*models.Route
}

func NewInMemory() *InMemory {
	return &InMemory{routes: make(map[id.RouteID]*models.Route)}
}

func (s *InMemory) Create(_ context.Context, route *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[route.ID]; ok {
		return sentinel.ErrConflict
	}
	s.routes[route.ID] = route.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ownerID id.OwnerID, routeID id.RouteID) (*models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	route, ok := s.routes[routeID]
	if !ok || route.OwnerID != ownerID {
		return nil, sentinel.ErrNotFound
	}
	return route.Clone(), nil
}

// ListByOwner returns routes newest first.
func (s *InMemory) ListByOwner(_ context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Route, error) {
	s.mu.RLock()
	var out []*models.Route
	for _, r := range s.routes {
		if r.OwnerID == ownerID {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []*models.Route{}, nil
	}
	end := len(out)
	if limit > 0 {
		end = min(offset+limit, len(out))
	}
	return out[offset:end], nil
}

func (s *InMemory) UpdateNotes(_ context.Context, ownerID id.OwnerID, routeID id.RouteID, notes string) (*models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	route, ok := s.routes[routeID]
	if !ok || route.OwnerID != ownerID {
		return nil, sentinel.ErrNotFound
	}
	route.Notes = notes
	return route.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, ownerID id.OwnerID, routeID id.RouteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	route, ok := s.routes[routeID]
	if !ok || route.OwnerID != ownerID {
		return sentinel.ErrNotFound
	}
	delete(s.routes, routeID)
	return nil
}

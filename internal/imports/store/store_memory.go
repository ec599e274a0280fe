package store

import (
	"context"
	"sort"
	"sync"

	"leadline/internal/imports/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

// InMemory keeps import sessions per process for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.ImportSessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.ImportSessionID]*models.Session)}
}

func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Update overwrites the stored session's progress.
func (s *InMemory) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[session.ID]
	if !ok || existing.OwnerID != session.OwnerID {
		return sentinel.ErrNotFound
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ownerID id.OwnerID, sessionID id.ImportSessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.OwnerID != ownerID {
		return nil, sentinel.ErrNotFound
	}
	return session.Clone(), nil
}

// ListByOwner returns sessions newest first.
func (s *InMemory) ListByOwner(_ context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Session, error) {
	s.mu.RLock()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.OwnerID == ownerID {
			out = append(out, session.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []*models.Session{}, nil
	}
	end := len(out)
	if limit > 0 {
		end = min(offset+limit, len(out))
	}
	return out[offset:end], nil
}

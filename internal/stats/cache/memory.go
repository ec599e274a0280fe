package cache

import (
	"context"
	"maps"
	"sync"
	"time"

	"leadline/internal/stats/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

type entry struct {
	snap      models.Snapshot
	expiresAt time.Time
}

// InMemory is the single-process stats cache.
type InMemory struct {
	mu      sync.Mutex
	entries map[id.OwnerID]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{entries: make(map[id.OwnerID]entry), ttl: ttl, now: time.Now}
}

func (c *InMemory) Get(_ context.Context, ownerID id.OwnerID) (*models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.ttl > 0 && !c.now().Before(e.expiresAt) {
		delete(c.entries, ownerID)
		return nil, sentinel.ErrNotFound
	}
	snap := e.snap
	snap.Counts = maps.Clone(e.snap.Counts)
	return &snap, nil
}

func (c *InMemory) Set(_ context.Context, snap *models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *snap
	stored.Counts = maps.Clone(snap.Counts)
	c.entries[snap.OwnerID] = entry{snap: stored, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *InMemory) Delete(_ context.Context, ownerID id.OwnerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ownerID)
	return nil
}

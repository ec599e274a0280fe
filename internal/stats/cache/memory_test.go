package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leadModels "leadline/internal/leads/models"
	"leadline/internal/stats/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	c := NewInMemory(time.Minute)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	snap := &models.Snapshot{OwnerID: owner, Counts: leadModels.StatusCounts{leadModels.StatusNew: 3}, Total: 3}
	require.NoError(t, c.Set(ctx, snap))
	snap.Counts[leadModels.StatusNew] = 99

	got, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Counts[leadModels.StatusNew], "stored snapshot is a copy")

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "expired at ttl")

	require.NoError(t, c.Set(ctx, snap))
	require.NoError(t, c.Delete(ctx, owner))
	_, err = c.Get(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadline/internal/stats/models"
	id "leadline/pkg/domain"
	"leadline/pkg/platform/sentinel"
)

const statsKeyPrefix = "leadline:stats:"

// Redis stores snapshots as JSON under a per-owner key with a TTL, so every
// API instance shares one view.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error) {
	raw, err := c.client.Get(ctx, statsKeyPrefix+ownerID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stats cache: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode stats cache: %w", err)
	}
	snap.OwnerID = ownerID
	return &snap, nil
}

func (c *Redis) Set(ctx context.Context, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode stats cache: %w", err)
	}
	return c.client.Set(ctx, statsKeyPrefix+snap.OwnerID.String(), raw, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, ownerID id.OwnerID) error {
	return c.client.Del(ctx, statsKeyPrefix+ownerID.String()).Err()
}

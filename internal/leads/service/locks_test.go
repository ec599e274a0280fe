package service

import (
	"context"
	"hash/fnv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

func TestShardFor(t *testing.T) {
	leadID := id.LeadID(uuid.MustParse("6f9619ff-8b86-d011-b42d-00c04fc964ff"))

	h := fnv.New32a()
	raw := uuid.UUID(leadID)
	_, _ = h.Write(raw[:])
	assert.Equal(t, int(h.Sum32()%numLeadShards), shardFor(leadID))
	assert.Equal(t, shardFor(leadID), shardFor(leadID), "stable across calls")

	seen := map[int]struct{}{}
	for range 512 {
		shard := shardFor(id.LeadID(uuid.New()))
		require.GreaterOrEqual(t, shard, 0)
		require.Less(t, shard, numLeadShards)
		seen[shard] = struct{}{}
	}
	assert.Greater(t, len(seen), numLeadShards/2, "random ids spread over the shards")
}

func TestLeadLocksRejectCancelledContext(t *testing.T) {
	locks := newLeadLocks()
	leadID := id.LeadID(uuid.New())

	release, err := locks.acquire(context.Background(), leadID)
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, leadID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

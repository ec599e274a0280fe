package service

import (
	"context"
	"hash/fnv"
	"sync"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

// numLeadShards bounds lock memory; unrelated leads may share a shard.
const numLeadShards = 128

// leadLocks serialises status changes per lead inside this process so one
// change per lead is in flight at a time.
type leadLocks struct {
	shards [numLeadShards]sync.Mutex
}

func newLeadLocks() *leadLocks {
	return &leadLocks{}
}

func (l *leadLocks) acquire(ctx context.Context, leadID id.LeadID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "status change aborted: context cancelled")
	}
	shard := &l.shards[shardFor(leadID)]
	shard.Lock()
	if err := ctx.Err(); err != nil {
		shard.Unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "status change aborted: context cancelled")
	}
	return shard.Unlock, nil
}

// shardFor hashes the id bytes with FNV-1a.
func shardFor(leadID id.LeadID) int {
	h := fnv.New32a()
	_, _ = h.Write(leadID[:])
	return int(h.Sum32() % numLeadShards)
}

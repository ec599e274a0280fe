package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leadline/pkg/domain"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/audit/store/memory"
	"leadline/pkg/platform/circuit"
)

type fakeProducer struct {
	mu      sync.Mutex
	err     error
	records [][]byte
	keys    []string
}

func (f *fakeProducer) Produce(_ context.Context, _ string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, string(key))
	f.records = append(f.records, value)
	return nil
}

func TestSink_ProducesKeyedByOwner(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewSink(producer, "lead-events", nil)
	ownerID := id.OwnerID(uuid.New())

	err := sink.Append(context.Background(), audit.Event{
		OwnerID:  ownerID,
		Action:   string(audit.EventLeadStatusChanged),
		OldValue: "new",
		NewValue: "leads",
	})
	require.NoError(t, err)

	require.Len(t, producer.records, 1)
	assert.Equal(t, ownerID.String(), producer.keys[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(producer.records[0], &decoded))
	assert.Equal(t, ownerID.String(), decoded["owner_id"])
	assert.Equal(t, "leads", decoded["new_value"])
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestSink_FallsBackWhenBreakerOpens(t *testing.T) {
	ctx := context.Background()
	producer := &fakeProducer{err: errors.New("broker down")}
	fallback := memory.NewInMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(clock.now),
	)
	sink := NewSink(producer, "lead-events", fallback, WithBreaker(breaker))
	ownerID := id.OwnerID(uuid.New())
	event := func(subject string) audit.Event {
		return audit.Event{OwnerID: ownerID, Action: string(audit.EventLeadCreated), Subject: subject}
	}

	require.NoError(t, sink.Append(ctx, event("e1")), "failure below threshold is absorbed by the fallback")
	require.NoError(t, sink.Append(ctx, event("e2")))
	require.True(t, breaker.IsOpen())

	producer.err = nil
	require.NoError(t, sink.Append(ctx, event("e3")))
	assert.Empty(t, producer.records, "open breaker skips the broker during cooldown")

	clock.t = clock.t.Add(time.Minute)
	require.NoError(t, sink.Append(ctx, event("e4")))
	assert.True(t, breaker.IsOpen(), "one trial is not enough to close")
	require.NoError(t, sink.Append(ctx, event("e5")))
	assert.False(t, breaker.IsOpen())
	require.NoError(t, sink.Append(ctx, event("e6")))

	stored, err := fallback.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	var fallbackSubjects []string
	for _, e := range stored {
		fallbackSubjects = append(fallbackSubjects, e.Subject)
	}
	var brokerSubjects []string
	for _, rec := range producer.records {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(rec, &decoded))
		brokerSubjects = append(brokerSubjects, decoded["subject"].(string))
	}

	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, fallbackSubjects)
	assert.Equal(t, []string{"e4", "e5", "e6"}, brokerSubjects)
}

func TestSink_FailureWithoutFallbackSurfaces(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	sink := NewSink(producer, "lead-events", nil, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))
	event := audit.Event{OwnerID: id.OwnerID(uuid.New())}

	require.Error(t, sink.Append(context.Background(), event))
	assert.ErrorIs(t, sink.Append(context.Background(), event), ErrBrokerUnavailable)
}

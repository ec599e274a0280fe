package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadline/internal/leads/models"
	"leadline/internal/leads/numbering"
	"leadline/internal/leads/store"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/testutil"
)

// These tests run the service against the in-memory store so the numbering
// of whole buckets can be observed after each transition.

type lifecycleFixture struct {
	svc   *Service
	store *store.InMemory
	owner id.OwnerID
	ctx   context.Context
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	st := store.NewInMemory()
	svc, err := New(st, st, numbering.New(st), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return &lifecycleFixture{svc: svc, store: st, owner: id.OwnerID(uuid.New()), ctx: context.Background()}
}

func (f *lifecycleFixture) seed(t *testing.T, n int) []*models.Lead {
	t.Helper()
	leads := make([]*models.Lead, 0, n)
	for i := range n {
		lead, err := f.svc.CreateLead(f.ctx, f.owner, models.LeadDetails{Name: fmt.Sprintf("Lead %d", i+1)}, OriginManual)
		require.NoError(t, err)
		leads = append(leads, lead)
	}
	return leads
}

// numbersOf returns lead name -> number for one bucket.
func (f *lifecycleFixture) numbersOf(t *testing.T, status models.Status) map[string]int {
	t.Helper()
	leads, err := f.store.ListByStatus(f.ctx, f.owner, status)
	require.NoError(t, err)
	out := make(map[string]int, len(leads))
	for _, l := range leads {
		out[l.Name] = l.Number
	}
	return out
}

func assertDense(t *testing.T, numbers map[string]int) {
	t.Helper()
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		seen[n] = true
	}
	for i := 1; i <= len(numbers); i++ {
		assert.True(t, seen[i], "number %d missing from %v", i, numbers)
	}
}

func TestChangeStatusKeepsBucketsDense(t *testing.T) {
	testutil.Given(t, "three new leads and one working lead", func(t *testing.T) {
		f := newLifecycleFixture(t)
		leads := f.seed(t, 4)
		_, err := f.svc.ChangeStatus(f.ctx, f.owner, leads[3].ID, models.StatusWorking, nil)
		require.NoError(t, err)

		testutil.When(t, "the middle new lead moves to working", func(t *testing.T) {
			result, err := f.svc.ChangeStatus(f.ctx, f.owner, leads[1].ID, models.StatusWorking, models.DefaultPayload{})
			require.NoError(t, err)

			testutil.Then(t, "it is appended to working and new is compacted", func(t *testing.T) {
				assert.Equal(t, 2, result.Lead.Number)
				assert.Equal(t, map[string]int{"Lead 4": 1, "Lead 2": 2}, f.numbersOf(t, models.StatusWorking))
				assert.Equal(t, map[string]int{"Lead 1": 1, "Lead 3": 2}, f.numbersOf(t, models.StatusNew))
				assert.Empty(t, result.Warnings)
			})

			testutil.Then(t, "a status change interaction is recorded", func(t *testing.T) {
				interactions, err := f.svc.ListInteractions(f.ctx, f.owner, leads[1].ID)
				require.NoError(t, err)
				require.Len(t, interactions, 1)
				assert.Equal(t, "new", interactions[0].OldValue)
				assert.Equal(t, "working", interactions[0].NewValue)
			})
		})
	})
}

func TestChangeStatusToLater(t *testing.T) {
	f := newLifecycleFixture(t)
	leads := f.seed(t, 2)

	t.Run("without a date nothing changes", func(t *testing.T) {
		payload, err := models.NewTransitionPayload(models.StatusLater, nil, "")
		require.Error(t, err)
		assert.Nil(t, payload)

		_, err = f.svc.ChangeStatus(f.ctx, f.owner, leads[0].ID, models.StatusLater, models.DefaultPayload{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		lead, err := f.svc.GetLead(f.ctx, f.owner, leads[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, lead.Status)
		assert.Equal(t, 1, lead.Number)
		assert.Nil(t, lead.DateToCallBack)
	})

	t.Run("with a date and notes", func(t *testing.T) {
		date := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
		payload, err := models.NewTransitionPayload(models.StatusLater, &date, "call after lunch")
		require.NoError(t, err)

		result, err := f.svc.ChangeStatus(f.ctx, f.owner, leads[0].ID, models.StatusLater, payload)
		require.NoError(t, err)
		require.NotNil(t, result.Lead.DateToCallBack)
		assert.True(t, date.Equal(*result.Lead.DateToCallBack))
		assert.Equal(t, 1, result.Lead.Number)
		assert.Equal(t, "call after lunch", result.Lead.Notes)

		notes, err := f.svc.ListNotes(f.ctx, f.owner, leads[0].ID)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "call after lunch", notes[0].Content)

		assert.Equal(t, map[string]int{"Lead 2": 1}, f.numbersOf(t, models.StatusNew))
	})
}

func TestChangeStatusIsOwnerScoped(t *testing.T) {
	f := newLifecycleFixture(t)
	leads := f.seed(t, 1)
	intruder := id.OwnerID(uuid.New())

	_, err := f.svc.ChangeStatus(f.ctx, intruder, leads[0].ID, models.StatusSigned, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	lead, err := f.svc.GetLead(f.ctx, f.owner, leads[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, lead.Status)
}

func TestDeleteLeavesGapUntilRenumbered(t *testing.T) {
	f := newLifecycleFixture(t)
	leads := f.seed(t, 3)

	require.NoError(t, f.svc.DeleteLead(f.ctx, f.owner, leads[0].ID))
	assert.Equal(t, map[string]int{"Lead 2": 2, "Lead 3": 3}, f.numbersOf(t, models.StatusNew))

	changed, err := f.svc.RenumberBucket(f.ctx, f.owner, models.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, map[string]int{"Lead 2": 1, "Lead 3": 2}, f.numbersOf(t, models.StatusNew))

	changed, err = f.svc.RenumberBucket(f.ctx, f.owner, models.StatusNew)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestWalkThroughEveryStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	leads := f.seed(t, 6)
	date := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	for i, target := range models.AllStatuses()[1:] {
		payload, err := models.NewTransitionPayload(target, &date, "")
		require.NoError(t, err)
		_, err = f.svc.ChangeStatus(f.ctx, f.owner, leads[i].ID, target, payload)
		require.NoError(t, err)
	}

	for _, status := range models.AllStatuses() {
		assertDense(t, f.numbersOf(t, status))
	}
	assert.Equal(t, map[string]int{"Lead 6": 1}, f.numbersOf(t, models.StatusNew))
}

func TestConcurrentChangesAllLand(t *testing.T) {
	f := newLifecycleFixture(t)
	leads := f.seed(t, 20)

	done := make(chan error, len(leads))
	for _, l := range leads {
		go func(leadID id.LeadID) {
			_, err := f.svc.ChangeStatus(f.ctx, f.owner, leadID, models.StatusLeads, nil)
			done <- err
		}(l.ID)
	}
	for range leads {
		require.NoError(t, <-done)
	}

	assert.Empty(t, f.numbersOf(t, models.StatusNew))
	assert.Len(t, f.numbersOf(t, models.StatusLeads), 20)
}

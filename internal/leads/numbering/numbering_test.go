package numbering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"leadline/internal/leads/models"
	"leadline/internal/leads/store"
	id "leadline/pkg/domain"
)

type NumberingSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	service *Service
	ownerID id.OwnerID
	base    time.Time
}

func TestNumberingSuite(t *testing.T) {
	suite.Run(t, new(NumberingSuite))
}

func (s *NumberingSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.ownerID = id.OwnerID(uuid.New())
	s.base = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
}

// seed inserts leads into status with the given numbers; creation times
// follow argument order.
func (s *NumberingSuite) seed(status models.Status, numbers ...int) []*models.Lead {
	out := make([]*models.Lead, 0, len(numbers))
	for i, n := range numbers {
		lead := &models.Lead{
			ID:        id.LeadID(uuid.New()),
			OwnerID:   s.ownerID,
			Status:    status,
			Number:    n,
			Name:      "Lead",
			CreatedAt: s.base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: s.base,
		}
		if status == models.StatusLater {
			d := s.base.AddDate(0, 0, 7)
			lead.DateToCallBack = &d
		}
		s.Require().NoError(s.store.Create(s.ctx, lead))
		out = append(out, lead)
	}
	return out
}

func (s *NumberingSuite) numbers(status models.Status) []int {
	leads, err := s.store.ListByStatus(s.ctx, s.ownerID, status)
	s.Require().NoError(err)
	out := make([]int, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.Number)
	}
	return out
}

func (s *NumberingSuite) TestNextNumber() {
	s.Run("empty bucket starts at one", func() {
		n, err := s.service.NextNumber(s.ctx, s.ownerID, models.StatusWorking)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("appends after existing leads", func() {
		s.seed(models.StatusNew, 1, 2, 3)
		n, err := s.service.NextNumber(s.ctx, s.ownerID, models.StatusNew)
		s.Require().NoError(err)
		s.Equal(4, n)
	})

	s.Run("other owners do not count", func() {
		n, err := s.service.NextNumber(s.ctx, id.OwnerID(uuid.New()), models.StatusNew)
		s.Require().NoError(err)
		s.Equal(1, n)
	})
}

func (s *NumberingSuite) TestRenumber_ClosesGapAfterDelete() {
	leads := s.seed(models.StatusNew, 1, 2, 3)
	s.Require().NoError(s.store.Delete(s.ctx, s.ownerID, leads[0].ID))
	s.Equal([]int{2, 3}, s.numbers(models.StatusNew), "deletion leaves a gap")

	changed, err := s.service.Renumber(s.ctx, s.ownerID, models.StatusNew)
	s.Require().NoError(err)
	s.Equal(2, changed)
	s.Equal([]int{1, 2}, s.numbers(models.StatusNew))
}

func (s *NumberingSuite) TestRenumber_IsIdempotent() {
	s.seed(models.StatusWorking, 4, 9, 9, 2)

	_, err := s.service.Renumber(s.ctx, s.ownerID, models.StatusWorking)
	s.Require().NoError(err)
	first, err := s.store.ListByStatus(s.ctx, s.ownerID, models.StatusWorking)
	s.Require().NoError(err)

	changed, err := s.service.Renumber(s.ctx, s.ownerID, models.StatusWorking)
	s.Require().NoError(err)
	s.Zero(changed)
	second, err := s.store.ListByStatus(s.ctx, s.ownerID, models.StatusWorking)
	s.Require().NoError(err)

	s.Equal(first, second)
}

func (s *NumberingSuite) TestRenumber_DuplicatesResolvedByCreationTime() {
	leads := s.seed(models.StatusLeads, 1, 1, 2)

	_, err := s.service.Renumber(s.ctx, s.ownerID, models.StatusLeads)
	s.Require().NoError(err)

	got, err := s.store.ListByStatus(s.ctx, s.ownerID, models.StatusLeads)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(leads[0].ID, got[0].ID)
	s.Equal(leads[1].ID, got[1].ID)
	s.Equal(leads[2].ID, got[2].ID)
	s.Equal([]int{1, 2, 3}, s.numbers(models.StatusLeads))
}

func (s *NumberingSuite) TestRenumber_LeavesOtherBucketsAlone() {
	s.seed(models.StatusNew, 2, 5)
	s.seed(models.StatusLater, 3)

	_, err := s.service.Renumber(s.ctx, s.ownerID, models.StatusNew)
	s.Require().NoError(err)

	s.Equal([]int{1, 2}, s.numbers(models.StatusNew))
	s.Equal([]int{3}, s.numbers(models.StatusLater))
}

// TestRenumber_Density checks that after arbitrary gaps and duplicates a
// single renumber always yields exactly 1..N.
func TestRenumber_Density(t *testing.T) {
	ctx := context.Background()
	inputs := [][]int{
		{},
		{1},
		{7},
		{3, 3, 3},
		{10, 1, 5, 2},
		{1, 2, 4, 8, 16, 16},
	}

	for _, numbers := range inputs {
		st := store.NewInMemory()
		ownerID := id.OwnerID(uuid.New())
		for i, n := range numbers {
			require.NoError(t, st.Create(ctx, &models.Lead{
				ID:        id.LeadID(uuid.New()),
				OwnerID:   ownerID,
				Status:    models.StatusSigned,
				Number:    n,
				Name:      "Lead",
				CreatedAt: time.Unix(int64(i), 0),
			}))
		}

		_, err := New(st).Renumber(ctx, ownerID, models.StatusSigned)
		require.NoError(t, err)

		leads, err := st.ListByStatus(ctx, ownerID, models.StatusSigned)
		require.NoError(t, err)
		for i, lead := range leads {
			assert.Equal(t, i+1, lead.Number, "input %v", numbers)
		}
	}
}

type failingStore struct {
	*store.InMemory
	failAfter int
	updates   int
}

func (f *failingStore) Update(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
	f.updates++
	if f.updates > f.failAfter {
		return nil, errors.New("connection reset")
	}
	return f.InMemory.Update(ctx, ownerID, leadID, patch)
}

func TestRenumber_PartialFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	mem := store.NewInMemory()
	ownerID := id.OwnerID(uuid.New())
	for i, n := range []int{3, 5, 9} {
		require.NoError(t, mem.Create(ctx, &models.Lead{
			ID: id.LeadID(uuid.New()), OwnerID: ownerID, Status: models.StatusNew,
			Number: n, Name: "Lead", CreatedAt: time.Unix(int64(i), 0),
		}))
	}

	flaky := &failingStore{InMemory: mem, failAfter: 1}
	_, err := New(flaky).Renumber(ctx, ownerID, models.StatusNew)
	require.Error(t, err)

	_, err = New(mem).Renumber(ctx, ownerID, models.StatusNew)
	require.NoError(t, err)

	leads, err := mem.ListByStatus(ctx, ownerID, models.StatusNew)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	for i, lead := range leads {
		assert.Equal(t, i+1, lead.Number)
	}
}

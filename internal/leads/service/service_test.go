package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,HistoryStore,Numberer,StatsInvalidator,AuditPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"leadline/internal/leads/models"
	"leadline/internal/leads/service/mocks"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// =============================================================================
// Lead Service Test Suite
// =============================================================================
// Justification for unit tests: the status change is a fixed sequence where
// the first steps are fatal and the later ones are best-effort. Mocks make
// each failure point reachable and let the tests assert what was (not) written.

type LeadServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	history   *mocks.MockHistoryStore
	numberer  *mocks.MockNumberer
	stats     *mocks.MockStatsInvalidator
	publisher *mocks.MockAuditPublisher
	service   *Service

	ownerID id.OwnerID
	leadID  id.LeadID
	now     time.Time
	ctx     context.Context
}

func TestLeadServiceSuite(t *testing.T) {
	suite.Run(t, new(LeadServiceSuite))
}

func (s *LeadServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.history = mocks.NewMockHistoryStore(s.ctrl)
	s.numberer = mocks.NewMockNumberer(s.ctrl)
	s.stats = mocks.NewMockStatsInvalidator(s.ctrl)
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)

	var err error
	s.service, err = New(s.store, s.history, s.numberer,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStatsInvalidator(s.stats),
		WithAuditPublisher(s.publisher),
	)
	s.Require().NoError(err)

	s.ownerID = id.OwnerID(uuid.New())
	s.leadID = id.LeadID(uuid.New())
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *LeadServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LeadServiceSuite) lead(status models.Status, number int) *models.Lead {
	return &models.Lead{
		ID:      s.leadID,
		OwnerID: s.ownerID,
		Status:  status,
		Number:  number,
		Name:    "Acme Bakery",
	}
}

func (s *LeadServiceSuite) moved(status models.Status, number int) *models.Lead {
	l := s.lead(status, number)
	l.UpdatedAt = s.now
	return l
}

func (s *LeadServiceSuite) expectBestEffortTail() {
	s.stats.EXPECT().Invalidate(gomock.Any(), s.ownerID).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *LeadServiceSuite) TestNew() {
	s.Run("nil lead store returns error", func() {
		_, err := New(nil, s.history, s.numberer)
		s.ErrorContains(err, "lead store is required")
	})

	s.Run("nil history store returns error", func() {
		_, err := New(s.store, nil, s.numberer)
		s.ErrorContains(err, "history store is required")
	})

	s.Run("nil numberer returns error", func() {
		_, err := New(s.store, s.history, nil)
		s.ErrorContains(err, "numberer is required")
	})

	s.Run("options are applied", func() {
		svc, err := New(s.store, s.history, s.numberer, WithAuditPublisher(s.publisher), WithStatsInvalidator(s.stats))
		s.NoError(err)
		s.Equal(s.publisher, svc.auditPublisher)
		s.Equal(s.stats, svc.stats)
		s.NotNil(svc.logger)
	})
}

// =============================================================================
// ChangeStatus
// =============================================================================

func (s *LeadServiceSuite) TestChangeStatus_HappyPath() {
	gomock.InOrder(
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 2), nil),
		s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusWorking).Return(4, nil),
		s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.OwnerID, _ id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
				s.Require().NotNil(patch.Status)
				s.Require().NotNil(patch.Number)
				s.Equal(models.StatusWorking, *patch.Status)
				s.Equal(4, *patch.Number)
				s.Equal(s.now, patch.UpdatedAt)
				s.Nil(patch.DateToCallBack)
				s.Nil(patch.Notes)
				return s.moved(models.StatusWorking, 4), nil
			}),
		s.numberer.EXPECT().Renumber(gomock.Any(), s.ownerID, models.StatusNew).Return(3, nil),
		s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *models.Interaction) error {
				s.Equal(models.InteractionStatusChange, in.Type)
				s.Equal("new", in.OldValue)
				s.Equal("working", in.NewValue)
				s.Equal(s.leadID, in.LeadID)
				return nil
			}),
	)
	s.stats.EXPECT().Invalidate(gomock.Any(), s.ownerID).Return(nil)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			s.Equal(string(audit.EventLeadStatusChanged), event.Action)
			s.Equal(s.leadID.String(), event.Subject)
			s.Equal("new", event.OldValue)
			s.Equal("working", event.NewValue)
			return nil
		})

	result, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusWorking, nil)
	s.Require().NoError(err)
	s.Equal(models.StatusWorking, result.Lead.Status)
	s.Equal(4, result.Lead.Number)
	s.Equal(models.StatusNew, result.PreviousStatus)
	s.Equal(3, result.Renumbered)
	s.Empty(result.Warnings)
}

func (s *LeadServiceSuite) TestChangeStatus_NotFound() {
	s.Run("missing lead", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusWorking, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(nil, errors.New("connection reset"))

		_, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusWorking, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *LeadServiceSuite) TestChangeStatus_LaterWithoutDateWritesNothing() {
	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusWorking, 1), nil)

	_, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusLater, models.DefaultPayload{Notes: "call me"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("callback date required", dErrors.MessageOf(err))
}

func (s *LeadServiceSuite) TestChangeStatus_MissingOwner() {
	_, err := s.service.ChangeStatus(s.ctx, id.OwnerID{}, s.leadID, models.StatusWorking, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *LeadServiceSuite) TestChangeStatus_LaterCarriesDateAndNote() {
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	payload := models.LaterPayload{DateToCallBack: date, Notes: "Owner back from holiday"}

	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusWorking, 1), nil)
	s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusLater).Return(1, nil)
	s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.OwnerID, _ id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
			s.Require().NotNil(patch.DateToCallBack)
			s.Equal(date, *patch.DateToCallBack)
			s.Require().NotNil(patch.Notes)
			s.Equal("Owner back from holiday", *patch.Notes)
			l := s.moved(models.StatusLater, 1)
			l.DateToCallBack = &date
			return l, nil
		})
	s.numberer.EXPECT().Renumber(gomock.Any(), s.ownerID, models.StatusWorking).Return(0, nil)
	s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).Return(nil)
	s.history.EXPECT().CreateNote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, note *models.Note) error {
			s.Equal("Owner back from holiday", note.Content)
			s.Equal(s.ownerID, note.OwnerID)
			return nil
		})
	s.expectBestEffortTail()

	result, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusLater, payload)
	s.Require().NoError(err)
	s.Equal(date, *result.Lead.DateToCallBack)
	s.Empty(result.Warnings)
}

func (s *LeadServiceSuite) TestChangeStatus_UpdateFailureIsFatal() {
	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 1), nil)
	s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusSigned).Return(1, nil)
	s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).Return(nil, errors.New("deadlock detected"))

	_, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusSigned, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal("failed to update lead, please retry", dErrors.MessageOf(err))
}

func (s *LeadServiceSuite) TestChangeStatus_NextNumberFailureIsFatal() {
	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 1), nil)
	s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusSigned).Return(0, errors.New("timeout"))

	_, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusSigned, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *LeadServiceSuite) TestChangeStatus_BookkeepingFailuresAreWarnings() {
	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 1), nil)
	s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusBad).Return(1, nil)
	s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).Return(s.moved(models.StatusBad, 1), nil)
	s.numberer.EXPECT().Renumber(gomock.Any(), s.ownerID, models.StatusNew).Return(0, errors.New("lock timeout"))
	s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	s.history.EXPECT().CreateNote(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	s.stats.EXPECT().Invalidate(gomock.Any(), s.ownerID).Return(errors.New("redis down"))
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("buffer full"))

	result, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusBad, models.DefaultPayload{Notes: "wrong number"})
	s.Require().NoError(err)
	s.Equal(models.StatusBad, result.Lead.Status)
	s.Equal([]string{WarningRenumberFailed, WarningInteractionFailed, WarningNoteFailed}, result.Warnings)
}

func (s *LeadServiceSuite) TestChangeStatus_SameStatusKeepsNumber() {
	s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusWorking, 3), nil)
	s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.OwnerID, _ id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
			s.Nil(patch.Number)
			return s.moved(models.StatusWorking, 3), nil
		})
	s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).Return(nil)
	s.expectBestEffortTail()

	result, err := s.service.ChangeStatus(s.ctx, s.ownerID, s.leadID, models.StatusWorking, nil)
	s.Require().NoError(err)
	s.Equal(3, result.Lead.Number)
	s.Zero(result.Renumbered)
}

func (s *LeadServiceSuite) TestChangeStatus_CancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.service.ChangeStatus(ctx, s.ownerID, s.leadID, models.StatusWorking, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

// =============================================================================
// BulkChangeStatus
// =============================================================================

func (s *LeadServiceSuite) TestBulkChangeStatus() {
	s.Run("invalid payload fails before any lookup", func() {
		_, err := s.service.BulkChangeStatus(s.ctx, s.ownerID, []id.LeadID{s.leadID}, models.StatusLater, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("empty id list is rejected", func() {
		_, err := s.service.BulkChangeStatus(s.ctx, s.ownerID, nil, models.StatusWorking, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("each lead succeeds or fails on its own", func() {
		missing := id.LeadID(uuid.New())
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, missing).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 1), nil)
		s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusLeads).Return(1, nil)
		s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).Return(s.moved(models.StatusLeads, 1), nil)
		s.numberer.EXPECT().Renumber(gomock.Any(), s.ownerID, models.StatusNew).Return(0, nil)
		s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).Return(nil)
		s.expectBestEffortTail()

		result, err := s.service.BulkChangeStatus(s.ctx, s.ownerID, []id.LeadID{missing, s.leadID}, models.StatusLeads, nil)
		s.Require().NoError(err)
		s.Len(result.Succeeded, 1)
		s.Require().Len(result.Failed, 1)
		s.Equal(missing, result.Failed[0].LeadID)
		s.True(dErrors.HasCode(result.Failed[0].Err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// CRUD
// =============================================================================

func (s *LeadServiceSuite) TestCreateLead() {
	s.Run("appends to the new bucket", func() {
		s.numberer.EXPECT().NextNumber(gomock.Any(), s.ownerID, models.StatusNew).Return(7, nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.expectBestEffortTail()

		lead, err := s.service.CreateLead(s.ctx, s.ownerID, models.LeadDetails{Name: "  Blue Door Cafe "}, OriginManual)
		s.Require().NoError(err)
		s.Equal(models.StatusNew, lead.Status)
		s.Equal(7, lead.Number)
		s.Equal("Blue Door Cafe", lead.Name)
		s.Equal(s.now, lead.CreatedAt)
	})

	s.Run("blank name is rejected", func() {
		_, err := s.service.CreateLead(s.ctx, s.ownerID, models.LeadDetails{Name: " "}, OriginManual)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LeadServiceSuite) TestUpdateLead() {
	s.Run("status cannot be patched directly", func() {
		status := models.StatusSigned
		_, err := s.service.UpdateLead(s.ctx, s.ownerID, s.leadID, models.LeadPatch{Status: &status})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("empty patch is rejected", func() {
		_, err := s.service.UpdateLead(s.ctx, s.ownerID, s.leadID, models.LeadPatch{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing lead", func() {
		phone := "555-0100"
		s.store.EXPECT().Update(gomock.Any(), s.ownerID, s.leadID, gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.UpdateLead(s.ctx, s.ownerID, s.leadID, models.LeadPatch{Phone: &phone})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LeadServiceSuite) TestDeleteLead() {
	s.Run("deletes without renumbering", func() {
		s.store.EXPECT().Delete(gomock.Any(), s.ownerID, s.leadID).Return(nil)
		s.expectBestEffortTail()

		s.NoError(s.service.DeleteLead(s.ctx, s.ownerID, s.leadID))
	})

	s.Run("missing lead", func() {
		s.store.EXPECT().Delete(gomock.Any(), s.ownerID, s.leadID).Return(sentinel.ErrNotFound)
		err := s.service.DeleteLead(s.ctx, s.ownerID, s.leadID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LeadServiceSuite) TestGetLeads_ReportsMissing() {
	other := id.LeadID(uuid.New())
	s.store.EXPECT().FindByIDs(gomock.Any(), s.ownerID, []id.LeadID{s.leadID, other}).
		Return([]*models.Lead{s.lead(models.StatusNew, 1)}, nil)

	_, err := s.service.GetLeads(s.ctx, s.ownerID, []id.LeadID{s.leadID, other})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(dErrors.MessageOf(err), other.String())
}

func (s *LeadServiceSuite) TestAddNote() {
	s.Run("records note and interaction", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.ownerID, s.leadID).Return(s.lead(models.StatusNew, 1), nil)
		s.history.EXPECT().CreateNote(gomock.Any(), gomock.Any()).Return(nil)
		s.history.EXPECT().CreateInteraction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *models.Interaction) error {
				s.Equal(models.InteractionNote, in.Type)
				return nil
			})

		note, err := s.service.AddNote(s.ctx, s.ownerID, s.leadID, " asked for pricing ")
		s.Require().NoError(err)
		s.Equal("asked for pricing", note.Content)
	})

	s.Run("empty note is rejected", func() {
		_, err := s.service.AddNote(s.ctx, s.ownerID, s.leadID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

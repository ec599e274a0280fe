package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"leadline/internal/routes/ports"
	"leadline/internal/routes/store"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

// fakeLeads is an in-memory LeadsPort. Leads absent from the map resolve
// as not found, like the real lead service.
type fakeLeads struct {
	leads       map[id.LeadID]*ports.RouteLead
	failPromote map[id.LeadID]bool
	promoted    []id.LeadID
	stops       []id.LeadID
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{leads: map[id.LeadID]*ports.RouteLead{}, failPromote: map[id.LeadID]bool{}}
}

func (f *fakeLeads) add(name, status, mapsAddress string) id.LeadID {
	leadID := id.LeadID(uuid.New())
	f.leads[leadID] = &ports.RouteLead{ID: leadID, Name: name, Status: status, MapsAddress: mapsAddress}
	return leadID
}

func (f *fakeLeads) ResolveLeads(_ context.Context, _ id.OwnerID, leadIDs []id.LeadID) ([]ports.RouteLead, error) {
	out := make([]ports.RouteLead, 0, len(leadIDs))
	for _, leadID := range leadIDs {
		l, ok := f.leads[leadID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, "leads not found: "+leadID.String())
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLeads) PromoteToLeads(_ context.Context, _ id.OwnerID, leadID id.LeadID) error {
	if f.failPromote[leadID] {
		return errors.New("update failed")
	}
	f.leads[leadID].Status = "leads"
	f.promoted = append(f.promoted, leadID)
	return nil
}

func (f *fakeLeads) RecordRouteStop(_ context.Context, _ id.OwnerID, leadID id.LeadID, _ id.RouteID) error {
	f.stops = append(f.stops, leadID)
	return nil
}

type RouteServiceSuite struct {
	suite.Suite
	leads   *fakeLeads
	store   *store.InMemory
	service *Service
	owner   id.OwnerID
	ctx     context.Context
}

func TestRouteServiceSuite(t *testing.T) {
	suite.Run(t, new(RouteServiceSuite))
}

func (s *RouteServiceSuite) SetupTest() {
	s.leads = newFakeLeads()
	s.store = store.NewInMemory()
	var err error
	s.service, err = New(s.store, s.leads, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.owner = id.OwnerID(uuid.New())
	s.ctx = context.Background()
}

func (s *RouteServiceSuite) storedRoutes() int {
	routes, err := s.store.ListByOwner(s.ctx, s.owner, 0, 0)
	s.Require().NoError(err)
	return len(routes)
}

func (s *RouteServiceSuite) TestGenerate() {
	s.Run("builds the link in input order", func() {
		a := s.leads.add("Bakery", "new", "https://www.google.com/maps/place/x/@51.5,-0.12,17z")
		b := s.leads.add("Garage", "working", "51.6,-0.2")

		route, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{
			Name:          "Monday",
			LeadIDs:       []id.LeadID{b, a},
			StartingPoint: "Depot",
		})
		s.Require().NoError(err)
		s.Equal(2, route.StopCount)
		s.Equal([]id.LeadID{b, a}, route.LeadIDs)
		s.Equal("https://www.google.com/maps/dir/Depot/51.6,-0.2/51.5,-0.12/", route.RouteURL)
		s.Equal([]id.LeadID{b, a}, s.leads.stops)

		stored, err := s.service.Get(s.ctx, s.owner, route.ID)
		s.Require().NoError(err)
		s.Equal(route.RouteURL, stored.RouteURL)
	})
}

func (s *RouteServiceSuite) TestGenerateRejects() {
	s.Run("empty selection", func() {
		_, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("more than 25 stops", func() {
		ids := make([]id.LeadID, 26)
		for i := range ids {
			ids[i] = s.leads.add(fmt.Sprintf("Lead %d", i), "new", "10,10")
		}
		_, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{LeadIDs: ids})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.MessageOf(err), "25")
		s.Zero(s.storedRoutes())
	})

	s.Run("leads without coordinates are named", func() {
		good := s.leads.add("Florist", "new", "48.85,2.35")
		bad := s.leads.add("Hardware Store", "new", "")
		worse := s.leads.add("Barber", "new", "somewhere near the station")

		_, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{LeadIDs: []id.LeadID{good, bad, worse}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.MessageOf(err), "Hardware Store")
		s.Contains(dErrors.MessageOf(err), "Barber")
		s.NotContains(dErrors.MessageOf(err), "Florist")
		s.Zero(s.storedRoutes())
	})

	s.Run("unknown lead", func() {
		_, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{LeadIDs: []id.LeadID{id.LeadID(uuid.New())}})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("configured limit below 25", func() {
		svc, err := New(s.store, s.leads, WithMaxStops(2))
		s.Require().NoError(err)
		ids := []id.LeadID{s.leads.add("a", "new", "1,1"), s.leads.add("b", "new", "2,2"), s.leads.add("c", "new", "3,3")}
		_, err = svc.Generate(s.ctx, s.owner, GenerateRequest{LeadIDs: ids})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RouteServiceSuite) TestGenerateAndPromote() {
	fresh := s.leads.add("Fresh", "new", "1,1")
	working := s.leads.add("Working", "working", "2,2")
	broken := s.leads.add("Broken", "new", "3,3")
	s.leads.failPromote[broken] = true

	route, report, err := s.service.GenerateAndPromote(s.ctx, s.owner, GenerateRequest{LeadIDs: []id.LeadID{fresh, working, broken}})
	s.Require().NoError(err)
	s.NotNil(route)
	s.Equal(1, report.Promoted)
	s.Equal(1, report.Skipped)
	s.Equal(1, report.Failed)
	s.Equal([]id.LeadID{broken}, report.FailedLeadIDs)
	s.Equal([]id.LeadID{fresh}, s.leads.promoted)
	s.Equal("leads", s.leads.leads[fresh].Status)
}

func (s *RouteServiceSuite) TestGenerateAndPromoteStopsOnInvalidRoute() {
	noCoords := s.leads.add("Nowhere", "new", "")

	route, report, err := s.service.GenerateAndPromote(s.ctx, s.owner, GenerateRequest{LeadIDs: []id.LeadID{noCoords}})
	s.Error(err)
	s.Nil(route)
	s.Nil(report)
	s.Empty(s.leads.promoted)
}

func (s *RouteServiceSuite) TestNotesAndDelete() {
	leadID := s.leads.add("Cafe", "new", "5,5")
	route, err := s.service.Generate(s.ctx, s.owner, GenerateRequest{LeadIDs: []id.LeadID{leadID}})
	s.Require().NoError(err)

	updated, err := s.service.UpdateNotes(s.ctx, s.owner, route.ID, "park behind the church")
	s.Require().NoError(err)
	s.Equal("park behind the church", updated.Notes)
	s.Equal(route.RouteURL, updated.RouteURL)

	_, err = s.service.UpdateNotes(s.ctx, id.OwnerID(uuid.New()), route.ID, "x")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Require().NoError(s.service.Delete(s.ctx, s.owner, route.ID))
	_, err = s.service.Get(s.ctx, s.owner, route.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.NotNil(s.leads.leads[leadID])
}

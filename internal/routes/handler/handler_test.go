package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leadModels "leadline/internal/leads/models"
	"leadline/internal/leads/numbering"
	leadService "leadline/internal/leads/service"
	leadStore "leadline/internal/leads/store"
	"leadline/internal/routes/adapters"
	"leadline/internal/routes/service"
	"leadline/internal/routes/store"
	id "leadline/pkg/domain"
	"leadline/pkg/testutil"
)

type routesAPI struct {
	router http.Handler
	leads  *leadService.Service
	owner  id.OwnerID
}

func newRoutesAPI(t *testing.T) *routesAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ls := leadStore.NewInMemory()
	leads, err := leadService.New(ls, ls, numbering.New(ls), leadService.WithLogger(logger))
	require.NoError(t, err)
	svc, err := service.New(store.NewInMemory(), adapters.NewLeadsAdapter(leads), service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return &routesAPI{router: r, leads: leads, owner: id.OwnerID(uuid.New())}
}

func (a *routesAPI) lead(t *testing.T, name, maps string) string {
	t.Helper()
	l, err := a.leads.CreateLead(t.Context(), a.owner, leadModels.LeadDetails{Name: name, MapsAddress: maps}, leadService.OriginManual)
	require.NoError(t, err)
	return l.ID.String()
}

func (a *routesAPI) post(t *testing.T, body any) *GenerateRouteResponse {
	t.Helper()
	req := testutil.WithOwnerID(testutil.NewJSONRequest(t, http.MethodPost, "/routes", body), a.owner)
	rr := testutil.DoRequest(a.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[GenerateRouteResponse](t, rr)
}

func TestGenerateRouteEndpoint(t *testing.T) {
	api := newRoutesAPI(t)
	first := api.lead(t, "First", "10,20")
	second := api.lead(t, "Second", "30,40")

	resp := api.post(t, map[string]any{"lead_ids": []string{first, second}, "starting_point": "Office"})
	assert.Equal(t, 2, resp.Route.StopCount)
	assert.Equal(t, "https://www.google.com/maps/dir/Office/10,20/30,40/", resp.Route.RouteURL)
	require.NotNil(t, resp.Promotion)
	assert.Equal(t, 2, resp.Promotion.Promoted)

	get := testutil.WithOwnerID(testutil.NewRequest(t, http.MethodGet, "/routes/"+resp.Route.ID), api.owner)
	rr := testutil.DoRequest(api.router, get)
	testutil.AssertStatusOK(t, rr)

	notes := testutil.WithOwnerID(testutil.NewJSONRequest(t, http.MethodPatch, "/routes/"+resp.Route.ID+"/notes", map[string]string{"notes": "ring twice"}), api.owner)
	rr = testutil.DoRequest(api.router, notes)
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "ring twice", testutil.UnmarshalResponse[RouteResponse](t, rr).Notes)

	del := testutil.WithOwnerID(testutil.NewRequest(t, http.MethodDelete, "/routes/"+resp.Route.ID), api.owner)
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(api.router, del).Code)
}

func TestGenerateWithoutPromotion(t *testing.T) {
	api := newRoutesAPI(t)
	leadID := api.lead(t, "Only", "1,2")

	resp := api.post(t, map[string]any{"lead_ids": []string{leadID}, "promote": false})
	assert.Nil(t, resp.Promotion)

	parsed, err := id.ParseLeadID(leadID)
	require.NoError(t, err)
	lead, err := api.leads.GetLead(t.Context(), api.owner, parsed)
	require.NoError(t, err)
	assert.Equal(t, leadModels.StatusNew, lead.Status)
}

func TestGenerateRouteValidation(t *testing.T) {
	api := newRoutesAPI(t)
	named := api.lead(t, "Lost Lead", "")

	req := testutil.WithOwnerID(testutil.NewJSONRequest(t, http.MethodPost, "/routes", map[string]any{"lead_ids": []string{named}}), api.owner)
	rr := testutil.DoRequest(api.router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	body := testutil.UnmarshalErrorResponse(t, rr)
	assert.Equal(t, "validation_error", body["error"])
	assert.Contains(t, body["error_description"], "Lost Lead")

	req = testutil.WithOwnerID(testutil.NewJSONRequest(t, http.MethodPost, "/routes", map[string]any{"lead_ids": []string{"nope"}}), api.owner)
	testutil.AssertStatus(t, testutil.DoRequest(api.router, req), http.StatusBadRequest)
}

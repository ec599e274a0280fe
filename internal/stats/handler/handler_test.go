package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leadModels "leadline/internal/leads/models"
	"leadline/internal/leads/numbering"
	leadService "leadline/internal/leads/service"
	leadStore "leadline/internal/leads/store"
	"leadline/internal/stats/cache"
	"leadline/internal/stats/service"
	id "leadline/pkg/domain"
	"leadline/pkg/testutil"
)

func TestStatsEndpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ls := leadStore.NewInMemory()
	stats, err := service.New(ls, cache.NewInMemory(time.Minute), service.WithLogger(logger))
	require.NoError(t, err)
	leads, err := leadService.New(ls, ls, numbering.New(ls), leadService.WithLogger(logger), leadService.WithStatsInvalidator(stats))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(stats, logger).Register(r)
	owner := id.OwnerID(uuid.New())

	testutil.Given(t, "an owner with two new leads", func(t *testing.T) {
		for _, name := range []string{"A", "B"} {
			_, err := leads.CreateLead(t.Context(), owner, leadModels.LeadDetails{Name: name}, leadService.OriginManual)
			require.NoError(t, err)
		}

		testutil.When(t, "the dashboard is read", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.WithOwnerID(testutil.NewRequest(t, http.MethodGet, "/stats"), owner))

			testutil.Then(t, "every status is listed with its count", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[StatsResponse](t, rr)
				assert.Len(t, resp.Counts, len(leadModels.AllStatuses()))
				assert.Equal(t, 2, resp.Counts["new"])
				assert.Equal(t, 0, resp.Counts["signed"])
				assert.Equal(t, 2, resp.Total)
			})
		})
	})

	t.Run("refresh", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.WithOwnerID(testutil.NewRequest(t, http.MethodPost, "/stats/refresh"), owner))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("requires authentication", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/stats"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

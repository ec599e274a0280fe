package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadline/pkg/testutil"
)

type observation struct {
	method, route, status string
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveRequest(method, route, status string, _ float64) {
	o.seen = append(o.seen, observation{method, route, status})
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	t.Run("propagates caller id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set(HeaderRequestID, "abc-123")
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, "abc-123", got)
		assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	})

	t.Run("mints one when absent", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
		assert.NotEmpty(t, got)
		assert.Equal(t, got, rr.Header().Get(HeaderRequestID))
	})
}

func TestLoggerReportsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(RequestID, Logger(logger, obs))
	r.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/leads/42"))

	require.Len(t, obs.seen, 1)
	assert.Equal(t, observation{"GET", "/leads/{id}", "418"}, obs.seen[0])
	assert.Contains(t, buf.String(), "route=/leads/{id}")
	assert.Contains(t, buf.String(), "request_id=")
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
	}))
	testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/leads", `{"name":"a"}`)
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, req).Code)

	req = testutil.NewRequestWithBody(t, http.MethodPost, "/leads", `name=a`)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusBadRequest)

	req = testutil.NewRequestWithBody(t, http.MethodPatch, "/leads/1", `{}`)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, req).Code)

	get := testutil.NewRequest(t, http.MethodGet, "/leads")
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, get).Code)
}

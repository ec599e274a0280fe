package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	leadModels "leadline/internal/leads/models"
	"leadline/internal/stats/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/platform/httputil"
	"leadline/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error)
	Refresh(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.HandleGet)
	r.Post("/stats/refresh", h.HandleRefresh)
}

type StatsResponse struct {
	Counts       map[string]int `json:"counts"`
	Total        int            `json:"total"`
	CallbacksDue int            `json:"callbacks_due"`
	ComputedAt   time.Time      `json:"computed_at"`
}

func toStatsResponse(snap *models.Snapshot) *StatsResponse {
	counts := make(map[string]int, len(leadModels.AllStatuses()))
	for _, status := range leadModels.AllStatuses() {
		counts[string(status)] = snap.Counts[status]
	}
	return &StatsResponse{
		Counts:       counts,
		Total:        snap.Total,
		CallbacksDue: snap.CallbacksDue,
		ComputedAt:   snap.ComputedAt,
	}
}

// HandleGet handles GET /stats.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Get)
}

// HandleRefresh handles POST /stats/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Refresh)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, load func(context.Context, id.OwnerID) (*models.Snapshot, error)) {
	ctx := r.Context()
	ownerID := requestcontext.OwnerID(ctx)
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	snap, err := load(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load stats", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatsResponse(snap))
}

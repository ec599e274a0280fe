package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leadline/internal/routes/models"
	"leadline/internal/routes/service"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/platform/httputil"
	strutil "leadline/pkg/platform/strings"
	"leadline/pkg/requestcontext"
)

type Service interface {
	Generate(ctx context.Context, ownerID id.OwnerID, req service.GenerateRequest) (*models.Route, error)
	GenerateAndPromote(ctx context.Context, ownerID id.OwnerID, req service.GenerateRequest) (*models.Route, *service.PromotionReport, error)
	Get(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) (*models.Route, error)
	List(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Route, error)
	UpdateNotes(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID, notes string) (*models.Route, error)
	Delete(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) error
}

// Handler wires route endpoints to the route generator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/routes", func(r chi.Router) {
		r.Post("/", h.HandleGenerate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Patch("/{id}/notes", h.HandleUpdateNotes)
	})
}

// GenerateRouteRequest is the body of POST /routes. Promote defaults to true:
// generating a route is how leads leave the intake bucket.
type GenerateRouteRequest struct {
	Name          string   `json:"name"`
	LeadIDs       []string `json:"lead_ids"`
	StartingPoint string   `json:"starting_point"`
	Notes         string   `json:"notes"`
	Promote       *bool    `json:"promote"`

	parsedIDs []id.LeadID
}

func (r *GenerateRouteRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.StartingPoint = strings.TrimSpace(r.StartingPoint)
	r.LeadIDs = strutil.NormalizeIDs(r.LeadIDs)
}

func (r *GenerateRouteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.LeadIDs) > 100 {
		return dErrors.New(dErrors.CodeValidation, "too many lead_ids")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 255 characters")
	}
	ids, err := id.ParseLeadIDs(r.LeadIDs)
	if err != nil {
		return err
	}
	r.parsedIDs = ids
	return nil
}

func (r *GenerateRouteRequest) shouldPromote() bool {
	return r.Promote == nil || *r.Promote
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type RouteResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LeadIDs       []string  `json:"lead_ids"`
	StopCount     int       `json:"stop_count"`
	StartingPoint string    `json:"starting_point,omitempty"`
	RouteURL      string    `json:"route_url"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PromotionResponse struct {
	Promoted      int      `json:"promoted"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	FailedLeadIDs []string `json:"failed_lead_ids,omitempty"`
}

type GenerateRouteResponse struct {
	Route     *RouteResponse     `json:"route"`
	Promotion *PromotionResponse `json:"promotion,omitempty"`
}

func toRouteResponse(r *models.Route) *RouteResponse {
	ids := make([]string, len(r.LeadIDs))
	for i, leadID := range r.LeadIDs {
		ids[i] = leadID.String()
	}
	return &RouteResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		LeadIDs:       ids,
		StopCount:     r.StopCount,
		StartingPoint: r.StartingPoint,
		RouteURL:      r.RouteURL,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (id.OwnerID, bool) {
	ownerID := requestcontext.OwnerID(r.Context())
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.OwnerID{}, false
	}
	return ownerID, true
}

func (h *Handler) routeID(w http.ResponseWriter, r *http.Request) (id.RouteID, bool) {
	routeID, err := id.ParseRouteID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RouteID{}, false
	}
	return routeID, true
}

// HandleGenerate handles POST /routes.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GenerateRouteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	genReq := service.GenerateRequest{
		Name:          req.Name,
		LeadIDs:       req.parsedIDs,
		StartingPoint: req.StartingPoint,
		Notes:         req.Notes,
	}

	resp := &GenerateRouteResponse{}
	if req.shouldPromote() {
		route, report, err := h.service.GenerateAndPromote(ctx, ownerID, genReq)
		if err != nil {
			h.logger.WarnContext(ctx, "route generation failed", "error", err, "request_id", requestID)
			httputil.WriteError(w, err)
			return
		}
		resp.Route = toRouteResponse(route)
		resp.Promotion = &PromotionResponse{Promoted: report.Promoted, Skipped: report.Skipped, Failed: report.Failed}
		for _, leadID := range report.FailedLeadIDs {
			resp.Promotion.FailedLeadIDs = append(resp.Promotion.FailedLeadIDs, leadID.String())
		}
	} else {
		route, err := h.service.Generate(ctx, ownerID, genReq)
		if err != nil {
			h.logger.WarnContext(ctx, "route generation failed", "error", err, "request_id", requestID)
			httputil.WriteError(w, err)
			return
		}
		resp.Route = toRouteResponse(route)
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /routes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit < 0 || offset < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit and offset must be non-negative"))
		return
	}
	routes, err := h.service.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*RouteResponse, 0, len(routes))
	for _, route := range routes {
		out = append(out, toRouteResponse(route))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /routes/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	routeID, ok := h.routeID(w, r)
	if !ok {
		return
	}
	route, err := h.service.Get(r.Context(), ownerID, routeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRouteResponse(route))
}

// HandleUpdateNotes handles PATCH /routes/{id}/notes.
func (h *Handler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	routeID, ok := h.routeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateNotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	route, err := h.service.UpdateNotes(ctx, ownerID, routeID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRouteResponse(route))
}

// HandleDelete handles DELETE /routes/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	routeID, ok := h.routeID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), ownerID, routeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

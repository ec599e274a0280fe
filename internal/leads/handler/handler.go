package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leadline/internal/leads/models"
	"leadline/internal/leads/service"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/platform/httputil"
	"leadline/pkg/requestcontext"
)

// Service is the subset of the lead lifecycle manager the HTTP layer uses.
type Service interface {
	CreateLead(ctx context.Context, ownerID id.OwnerID, details models.LeadDetails, origin service.Origin) (*models.Lead, error)
	GetLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) (*models.Lead, error)
	ListLeads(ctx context.Context, ownerID id.OwnerID, filter models.ListFilter) (*service.ListResult, error)
	UpdateLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error)
	DeleteLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error
	ChangeStatus(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, target models.Status, payload models.TransitionPayload) (*service.ChangeStatusResult, error)
	BulkChangeStatus(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID, target models.Status, payload models.TransitionPayload) (*service.BulkResult, error)
	RenumberBucket(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error)
	AddNote(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, content string) (*models.Note, error)
	ListNotes(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Note, error)
	ListInteractions(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Interaction, error)
}

// Handler wires lead endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lead endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/leads", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/bulk-status", h.HandleBulkChangeStatus)
		r.Post("/renumber", h.HandleRenumber)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/status", h.HandleChangeStatus)
		r.Get("/{id}/notes", h.HandleListNotes)
		r.Post("/{id}/notes", h.HandleAddNote)
		r.Get("/{id}/interactions", h.HandleListInteractions)
	})
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (id.OwnerID, bool) {
	ownerID := requestcontext.OwnerID(r.Context())
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.OwnerID{}, false
	}
	return ownerID, true
}

func (h *Handler) leadIDParam(w http.ResponseWriter, r *http.Request) (id.LeadID, bool) {
	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.LeadID{}, false
	}
	return leadID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}

// HandleCreate handles POST /leads.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateLeadRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	lead, err := h.service.CreateLead(ctx, ownerID, req.Details(), service.OriginManual)
	if err != nil {
		h.fail(ctx, w, "failed to create lead", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toLeadResponse(lead))
}

// HandleList handles GET /leads.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ListLeads(ctx, ownerID, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list leads", err)
		return
	}
	filter = filter.Normalized()
	resp := &ListLeadsResponse{
		Leads:  make([]*LeadResponse, 0, len(result.Leads)),
		Total:  result.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, l := range result.Leads {
		resp.Leads = append(resp.Leads, toLeadResponse(l))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /leads/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	lead, err := h.service.GetLead(ctx, ownerID, leadID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLeadResponse(lead))
}

// HandleUpdate handles PATCH /leads/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateLeadRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	lead, err := h.service.UpdateLead(ctx, ownerID, leadID, req.Patch())
	if err != nil {
		h.fail(ctx, w, "failed to update lead", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLeadResponse(lead))
}

// HandleDelete handles DELETE /leads/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLead(ctx, ownerID, leadID); err != nil {
		h.fail(ctx, w, "failed to delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeStatus handles POST /leads/{id}/status.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.ChangeStatus(ctx, ownerID, leadID, req.ParsedStatus(), req.ParsedPayload())
	if err != nil {
		h.fail(ctx, w, "failed to change lead status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toChangeStatusResponse(result))
}

// HandleBulkChangeStatus handles POST /leads/bulk-status.
func (h *Handler) HandleBulkChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BulkChangeStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.BulkChangeStatus(ctx, ownerID, req.parsedIDs, req.parsedStatus, req.parsedPayload)
	if err != nil {
		h.fail(ctx, w, "bulk status change failed", err)
		return
	}
	resp := &BulkChangeStatusResponse{
		Succeeded: len(result.Succeeded),
		Failed:    len(result.Failed),
	}
	for _, f := range result.Failed {
		resp.Errors = append(resp.Errors, BulkErrorResponse{LeadID: f.LeadID.String(), Error: dErrors.MessageOf(f.Err)})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRenumber handles POST /leads/renumber.
func (h *Handler) HandleRenumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RenumberRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	changed, err := h.service.RenumberBucket(ctx, ownerID, req.parsedStatus)
	if err != nil {
		h.fail(ctx, w, "failed to renumber leads", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RenumberResponse{Status: string(req.parsedStatus), Renumbered: changed})
}

// HandleAddNote handles POST /leads/{id}/notes.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddNoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	note, err := h.service.AddNote(ctx, ownerID, leadID, req.Content)
	if err != nil {
		h.fail(ctx, w, "failed to add note", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toNoteResponse(note))
}

// HandleListNotes handles GET /leads/{id}/notes.
func (h *Handler) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	notes, err := h.service.ListNotes(ctx, ownerID, leadID)
	if err != nil {
		h.fail(ctx, w, "failed to list notes", err)
		return
	}
	resp := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResponse(n))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListInteractions handles GET /leads/{id}/interactions.
func (h *Handler) HandleListInteractions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	leadID, ok := h.leadIDParam(w, r)
	if !ok {
		return
	}
	interactions, err := h.service.ListInteractions(ctx, ownerID, leadID)
	if err != nil {
		h.fail(ctx, w, "failed to list interactions", err)
		return
	}
	resp := make([]InteractionResponse, 0, len(interactions))
	for _, in := range interactions {
		resp = append(resp, InteractionResponse{
			ID:        in.ID.String(),
			Type:      string(in.Type),
			OldValue:  in.OldValue,
			NewValue:  in.NewValue,
			CreatedAt: in.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{
		ListName: q.Get("list_name"),
		Provider: q.Get("provider"),
		Search:   q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a non-negative integer")
	}
	return n, nil
}

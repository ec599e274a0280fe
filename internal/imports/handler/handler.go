package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leadline/internal/imports/models"
	"leadline/internal/imports/service"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/platform/httputil"
	"leadline/pkg/requestcontext"
)

type Service interface {
	Import(ctx context.Context, ownerID id.OwnerID, req service.ImportRequest) (*models.Session, error)
	Get(ctx context.Context, ownerID id.OwnerID, sessionID id.ImportSessionID) (*models.Session, error)
	List(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Session, error)
}

// Handler exposes bulk lead ingestion.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/imports", func(r chi.Router) {
		r.Post("/", h.HandleImport)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
	})
}

type ImportRequest struct {
	SourceType string       `json:"source_type"`
	SourceID   string       `json:"source_id"`
	FileName   string       `json:"file_name"`
	ListName   string       `json:"list_name"`
	Rows       []models.Row `json:"rows"`

	source models.SourceType
}

func (r *ImportRequest) Normalize() {
	if r == nil {
		return
	}
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.FileName = strings.TrimSpace(r.FileName)
	r.ListName = strings.TrimSpace(r.ListName)
}

func (r *ImportRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	source, err := models.ParseSourceType(r.SourceType)
	if err != nil {
		return err
	}
	if len(r.FileName) > 255 || len(r.ListName) > 255 {
		return dErrors.New(dErrors.CodeValidation, "file_name and list_name must be at most 255 characters")
	}
	if len(r.Rows) == 0 {
		return dErrors.New(dErrors.CodeValidation, "rows are required")
	}
	if len(r.Rows) > service.MaxRows {
		return dErrors.New(dErrors.CodeValidation, "too many rows")
	}
	r.source = source
	return nil
}

type SessionResponse struct {
	ID              string            `json:"id"`
	SourceType      string            `json:"source_type"`
	SourceID        string            `json:"source_id,omitempty"`
	FileName        string            `json:"file_name,omitempty"`
	ListName        string            `json:"list_name,omitempty"`
	Status          string            `json:"status"`
	TotalRecords    int               `json:"total_records"`
	ImportedRecords int               `json:"imported_records"`
	FailedRecords   int               `json:"failed_records"`
	ErrorLog        []models.RowError `json:"error_log"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toSessionResponse(s *models.Session) *SessionResponse {
	return &SessionResponse{
		ID:              s.ID.String(),
		SourceType:      string(s.SourceType),
		SourceID:        s.SourceID,
		FileName:        s.FileName,
		ListName:        s.ListName,
		Status:          string(s.Status),
		TotalRecords:    s.TotalRecords,
		ImportedRecords: s.ImportedRecords,
		FailedRecords:   s.FailedRecords,
		ErrorLog:        s.ErrorLog,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
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

// HandleImport handles POST /imports. The run is synchronous; the response
// carries the finished session.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ImportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	session, err := h.service.Import(ctx, ownerID, service.ImportRequest{
		SourceType: req.source,
		SourceID:   req.SourceID,
		FileName:   req.FileName,
		ListName:   req.ListName,
		Rows:       req.Rows,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "import failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

// HandleList handles GET /imports.
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
	sessions, err := h.service.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /imports/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	sessionID, err := id.ParseImportSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.service.Get(r.Context(), ownerID, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leadline/internal/imports/metrics"
	"leadline/internal/imports/models"
	leadModels "leadline/internal/leads/models"
	leadService "leadline/internal/leads/service"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Store persists import sessions.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, ownerID id.OwnerID, sessionID id.ImportSessionID) (*models.Session, error)
	ListByOwner(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Session, error)
}

// LeadCreator creates one lead in the new bucket.
type LeadCreator interface {
	CreateLead(ctx context.Context, ownerID id.OwnerID, details leadModels.LeadDetails, origin leadService.Origin) (*leadModels.Lead, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	DefaultBatchSize = 50
	MaxRows          = 5000
	defaultListLimit = 50
)

var tracer = otel.Tracer("leadline/internal/imports/service")

// Service ingests rows from spreadsheets and scraper runs as new leads,
// keeping an import session as the audit record of each run.
type Service struct {
	store          Store
	leads          LeadCreator
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	batchSize      int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithBatchSize sets how many rows are processed between progress writes.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(store Store, leads LeadCreator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("import store is required")
	}
	if leads == nil {
		return nil, errors.New("lead creator is required")
	}
	s := &Service{
		store:     store,
		leads:     leads,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ImportRequest is one ingestion run. ListName defaults to the file name
// without its extension.
type ImportRequest struct {
	SourceType models.SourceType
	SourceID   string
	FileName   string
	ListName   string
	Rows       []models.Row
}

// Import creates a lead for every valid row, in batches. Invalid rows are
// logged on the session and skipped; they never stop the run. The returned
// session is in a terminal status unless an error is returned before it
// was created.
func (s *Service) Import(ctx context.Context, ownerID id.OwnerID, req ImportRequest) (session *models.Session, err error) {
	ctx, span := tracer.Start(ctx, "imports.Import", trace.WithAttributes(
		attribute.String("import.source", string(req.SourceType)),
		attribute.Int("import.rows", len(req.Rows)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
		}
		span.End()
	}()

	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner ID required")
	}
	source, err := models.ParseSourceType(string(req.SourceType))
	if err != nil {
		return nil, err
	}
	if len(req.Rows) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no rows to import")
	}
	if len(req.Rows) > MaxRows {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("an import can have at most %d rows, got %d", MaxRows, len(req.Rows)))
	}

	started := time.Now()
	listName := strings.TrimSpace(req.ListName)
	if listName == "" {
		listName = strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	}
	session = models.NewSession(id.ImportSessionID(uuid.New()), ownerID, source,
		req.SourceID, req.FileName, listName, len(req.Rows), requestcontext.Now(ctx))
	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start import")
	}
	span.SetAttributes(attribute.String("import.session_id", session.ID.String()))

	if err := session.Start(requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start import")
	}
	s.persist(ctx, session)

	for start := 0; start < len(req.Rows); start += s.batchSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			session.Abort("import interrupted: "+ctxErr.Error(), requestcontext.Now(ctx))
			s.finish(context.WithoutCancel(ctx), session, started)
			return session, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "import interrupted")
		}
		end := min(start+s.batchSize, len(req.Rows))
		imported, failed, rowErrors := s.processBatch(ctx, ownerID, listName, start, req.Rows[start:end])
		if err := session.RecordBatch(imported, failed, rowErrors, requestcontext.Now(ctx)); err != nil {
			session.Abort(dErrors.MessageOf(err), requestcontext.Now(ctx))
			s.finish(ctx, session, started)
			return session, dErrors.Wrap(err, dErrors.CodeInternal, "import counters out of range")
		}
		s.metrics.AddRows(imported, failed)
		s.persist(ctx, session)
	}

	if err := session.Finish(requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finish import")
	}
	s.finish(ctx, session, started)
	return session, nil
}

// processBatch imports rows[i] as row number offset+i+1.
func (s *Service) processBatch(ctx context.Context, ownerID id.OwnerID, listName string, offset int, rows []models.Row) (imported, failed int, rowErrors []models.RowError) {
	for i, row := range rows {
		rowNumber := offset + i + 1
		row.Normalize()
		if errs := row.Validate(rowNumber); len(errs) > 0 {
			failed++
			rowErrors = append(rowErrors, errs...)
			continue
		}
		if _, err := s.leads.CreateLead(ctx, ownerID, row.Details(listName), leadService.OriginImport); err != nil {
			failed++
			msg := dErrors.MessageOf(err)
			if dErrors.CodeOf(err) == dErrors.CodeInternal {
				s.logger.WarnContext(ctx, "failed to create imported lead",
					"row", rowNumber,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				msg = "failed to create lead"
			}
			rowErrors = append(rowErrors, models.RowError{Row: rowNumber, Message: msg})
			continue
		}
		imported++
	}
	return imported, failed, rowErrors
}

// persist saves progress. A failed write leaves the stored session behind the
// run but does not stop it.
func (s *Service) persist(ctx context.Context, session *models.Session) {
	if err := s.store.Update(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "failed to save import progress",
			"import_id", session.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) finish(ctx context.Context, session *models.Session, started time.Time) {
	s.persist(ctx, session)
	s.metrics.ObserveSession(string(session.SourceType), string(session.Status), time.Since(started).Seconds())

	action := audit.EventImportCompleted
	if session.Status == models.StatusFailed {
		action = audit.EventImportFailed
	}
	s.emit(ctx, action, session)
	s.logger.InfoContext(ctx, "import finished",
		"import_id", session.ID.String(),
		"status", string(session.Status),
		"imported", session.ImportedRecords,
		"failed", session.FailedRecords,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, session *models.Session) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		OwnerID:  session.OwnerID,
		Subject:  session.ID.String(),
		Action:   string(action),
		NewValue: fmt.Sprintf("%d/%d imported", session.ImportedRecords, session.TotalRecords),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit import event",
			"action", string(action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) Get(ctx context.Context, ownerID id.OwnerID, sessionID id.ImportSessionID) (*models.Session, error) {
	session, err := s.store.FindByID(ctx, ownerID, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "import session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load import session")
	}
	return session, nil
}

func (s *Service) List(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	sessions, err := s.store.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list import sessions")
	}
	return sessions, nil
}

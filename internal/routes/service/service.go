package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leadline/internal/routes/metrics"
	"leadline/internal/routes/models"
	"leadline/internal/routes/ports"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Store persists routes.
type Store interface {
	Create(ctx context.Context, route *models.Route) error
	FindByID(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) (*models.Route, error)
	ListByOwner(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Route, error)
	UpdateNotes(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID, notes string) (*models.Route, error)
	Delete(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) error
}

const (
	statusNew        = "new"
	defaultListLimit = 50
	maxNotesLength   = 10000
)

var tracer = otel.Tracer("leadline/internal/routes/service")

// Service generates routes from leads and runs the promotion workflow that
// follows a generated route.
type Service struct {
	store          Store
	leads          ports.LeadsPort
	auditPublisher ports.AuditPort
	logger         *slog.Logger
	metrics        *metrics.Metrics
	maxStops       int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p ports.AuditPort) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithMaxStops lowers the stop limit. Values outside 1..MaxStops are ignored.
func WithMaxStops(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= models.MaxStops {
			s.maxStops = n
		}
	}
}

func New(store Store, leads ports.LeadsPort, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("route store is required")
	}
	if leads == nil {
		return nil, errors.New("leads port is required")
	}
	s := &Service{
		store:    store,
		leads:    leads,
		logger:   slog.Default(),
		maxStops: models.MaxStops,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateRequest describes a route to build from an ordered set of leads.
type GenerateRequest struct {
	Name          string
	LeadIDs       []id.LeadID
	StartingPoint string
	Notes         string
}

// Generate validates the leads and persists a route over them in the given
// order. Nothing is written when validation fails.
func (s *Service) Generate(ctx context.Context, ownerID id.OwnerID, req GenerateRequest) (route *models.Route, err error) {
	ctx, span := tracer.Start(ctx, "routes.Generate", trace.WithAttributes(
		attribute.Int("route.requested_stops", len(req.LeadIDs)),
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
	if len(req.LeadIDs) == 0 {
		s.metrics.IncrementRejected("empty")
		return nil, dErrors.New(dErrors.CodeValidation, "select at least one lead to build a route")
	}
	if len(req.LeadIDs) > s.maxStops {
		s.metrics.IncrementRejected("too_many_stops")
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("a route can have at most %d stops, got %d", s.maxStops, len(req.LeadIDs)))
	}

	leads, err := s.leads.ResolveLeads(ctx, ownerID, req.LeadIDs)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeNotFound {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load leads for route")
	}

	stops := make([]models.Stop, 0, len(leads))
	var missing []string
	for _, l := range leads {
		coord, ok := models.ParseCoordinate(l.MapsAddress)
		if !ok {
			missing = append(missing, l.Name)
			continue
		}
		stops = append(stops, models.Stop{LeadID: l.ID, Name: l.Name, Coordinate: coord})
	}
	if len(missing) > 0 {
		s.metrics.IncrementRejected("missing_coordinates")
		return nil, dErrors.New(dErrors.CodeValidation,
			"no map coordinates for: "+strings.Join(missing, ", "))
	}

	route, err = models.NewRoute(id.RouteID(uuid.New()), ownerID, req.Name, req.StartingPoint, req.Notes, stops, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if err := s.store.Create(ctx, route); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save route")
	}

	for _, stop := range stops {
		if err := s.leads.RecordRouteStop(ctx, ownerID, stop.LeadID, route.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to record route stop",
				"route_id", route.ID.String(),
				"lead_id", stop.LeadID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	span.SetAttributes(attribute.String("route.id", route.ID.String()))
	s.metrics.IncrementGenerated(route.StopCount)
	s.emit(ctx, audit.EventRouteGenerated, ownerID, route.ID.String(), fmt.Sprintf("%d stops", route.StopCount))
	s.logger.InfoContext(ctx, "route generated",
		"route_id", route.ID.String(),
		"stops", route.StopCount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return route, nil
}

// PromotionReport counts the outcome of moving a route's leads out of new.
type PromotionReport struct {
	Promoted      int
	Skipped       int
	Failed        int
	FailedLeadIDs []id.LeadID
}

// GenerateAndPromote generates a route and then moves every included lead
// still in new to leads, one status change per lead. Promotion failures are
// counted, never fatal.
func (s *Service) GenerateAndPromote(ctx context.Context, ownerID id.OwnerID, req GenerateRequest) (*models.Route, *PromotionReport, error) {
	route, err := s.Generate(ctx, ownerID, req)
	if err != nil {
		return nil, nil, err
	}

	// Statuses are re-read after generation; a lead may have moved meanwhile.
	leads, err := s.leads.ResolveLeads(ctx, ownerID, route.LeadIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload route leads for promotion",
			"route_id", route.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		report := &PromotionReport{Failed: len(route.LeadIDs), FailedLeadIDs: append([]id.LeadID(nil), route.LeadIDs...)}
		s.metrics.AddPromotions("failed", report.Failed)
		return route, report, nil
	}

	report := &PromotionReport{}
	for _, l := range leads {
		if l.Status != statusNew {
			report.Skipped++
			continue
		}
		if err := s.leads.PromoteToLeads(ctx, ownerID, l.ID); err != nil {
			report.Failed++
			report.FailedLeadIDs = append(report.FailedLeadIDs, l.ID)
			s.logger.WarnContext(ctx, "failed to promote lead after route generation",
				"route_id", route.ID.String(),
				"lead_id", l.ID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		report.Promoted++
	}
	s.metrics.AddPromotions("promoted", report.Promoted)
	s.metrics.AddPromotions("skipped", report.Skipped)
	s.metrics.AddPromotions("failed", report.Failed)
	return route, report, nil
}

func (s *Service) Get(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) (*models.Route, error) {
	route, err := s.store.FindByID(ctx, ownerID, routeID)
	if err != nil {
		return nil, translateErr(err, "failed to load route")
	}
	return route, nil
}

func (s *Service) List(ctx context.Context, ownerID id.OwnerID, limit, offset int) ([]*models.Route, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	routes, err := s.store.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list routes")
	}
	return routes, nil
}

// UpdateNotes replaces the route's notes, the only mutable field.
func (s *Service) UpdateNotes(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID, notes string) (*models.Route, error) {
	if len(notes) > maxNotesLength {
		return nil, dErrors.New(dErrors.CodeValidation, "notes are too long")
	}
	route, err := s.store.UpdateNotes(ctx, ownerID, routeID, notes)
	if err != nil {
		return nil, translateErr(err, "failed to update route")
	}
	return route, nil
}

// Delete removes the route. Its leads are untouched.
func (s *Service) Delete(ctx context.Context, ownerID id.OwnerID, routeID id.RouteID) error {
	if err := s.store.Delete(ctx, ownerID, routeID); err != nil {
		return translateErr(err, "failed to delete route")
	}
	s.emit(ctx, audit.EventRouteDeleted, ownerID, routeID.String(), "")
	return nil
}

func translateErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "route not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, ownerID id.OwnerID, subject, newValue string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		OwnerID:  ownerID,
		Subject:  subject,
		Action:   string(action),
		NewValue: newValue,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit route event",
			"action", string(action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"leadline/internal/leads/metrics"
	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Store persists lead rows.
type Store interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) (*models.Lead, error)
	FindByIDs(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]*models.Lead, error)
	List(ctx context.Context, ownerID id.OwnerID, filter models.ListFilter) ([]*models.Lead, int, error)
	Update(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error)
	Delete(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error
}

// HistoryStore persists the append-only interaction and note trail.
type HistoryStore interface {
	CreateInteraction(ctx context.Context, interaction *models.Interaction) error
	CreateNote(ctx context.Context, note *models.Note) error
	ListInteractions(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Interaction, error)
	ListNotes(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Note, error)
}

// Numberer assigns and repairs per-bucket display numbers.
type Numberer interface {
	NextNumber(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error)
	Renumber(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error)
}

// StatsInvalidator drops cached dashboard figures after a write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, ownerID id.OwnerID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var tracer = otel.Tracer("leadline/internal/leads/service")

// Service is the lead lifecycle manager: CRUD, status transitions and the
// bookkeeping that follows them.
type Service struct {
	store          Store
	history        HistoryStore
	numberer       Numberer
	stats          StatsInvalidator
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	locks          *leadLocks
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStatsInvalidator wires the dashboard cache into every write path.
func WithStatsInvalidator(stats StatsInvalidator) Option {
	return func(s *Service) {
		s.stats = stats
	}
}

// New constructs a Service. All three stores are required.
func New(store Store, history HistoryStore, numberer Numberer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lead store is required")
	}
	if history == nil {
		return nil, errors.New("history store is required")
	}
	if numberer == nil {
		return nil, errors.New("numberer is required")
	}
	s := &Service{
		store:    store,
		history:  history,
		numberer: numberer,
		logger:   slog.Default(),
		locks:    newLeadLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func requireOwner(ownerID id.OwnerID) error {
	if ownerID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "owner ID required")
	}
	return nil
}

// translateFindErr maps a store lookup failure to a domain error.
func translateFindErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lead")
}

// invalidateStats is best-effort; a stale dashboard is refreshed on its TTL.
func (s *Service) invalidateStats(ctx context.Context, ownerID id.OwnerID) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, ownerID); err != nil {
		s.metrics.IncrementSoftFailure("stats")
		s.logger.WarnContext(ctx, "failed to invalidate lead stats",
			"owner_id", ownerID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, ownerID id.OwnerID, subject, oldValue, newValue string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		OwnerID:  ownerID,
		Subject:  subject,
		Action:   string(action),
		OldValue: oldValue,
		NewValue: newValue,
	})
	if err != nil {
		s.metrics.IncrementSoftFailure("event")
		s.logger.WarnContext(ctx, "failed to emit lead event",
			"action", string(action),
			"subject", subject,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

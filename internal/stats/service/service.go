package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	leadModels "leadline/internal/leads/models"
	"leadline/internal/stats/metrics"
	"leadline/internal/stats/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Counter reads aggregate figures from the lead store.
type Counter interface {
	CountsByStatus(ctx context.Context, ownerID id.OwnerID) (leadModels.StatusCounts, error)
	CountCallbacksDue(ctx context.Context, ownerID id.OwnerID, before time.Time) (int, error)
}

// Cache holds snapshots. Get returns sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error)
	Set(ctx context.Context, snap *models.Snapshot) error
	Delete(ctx context.Context, ownerID id.OwnerID) error
}

// Service is a read-through cache of dashboard figures. Lead writes call
// Invalidate; readers never see figures older than the last write once the
// invalidation has landed.
type Service struct {
	counter Counter
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(counter Counter, cache Cache, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, errors.New("lead counter is required")
	}
	if cache == nil {
		return nil, errors.New("stats cache is required")
	}
	s := &Service{counter: counter, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the cached snapshot, computing and caching it on a miss. A
// broken cache degrades to computing on every call.
func (s *Service) Get(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner ID required")
	}
	snap, err := s.cache.Get(ctx, ownerID)
	switch {
	case err == nil:
		s.metrics.IncrementLookup("hit")
		return snap, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementLookup("miss")
	default:
		s.metrics.IncrementLookup("error")
		s.logger.WarnContext(ctx, "stats cache read failed",
			"owner_id", ownerID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return s.Refresh(ctx, ownerID)
}

// Refresh recomputes the snapshot and stores it.
func (s *Service) Refresh(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner ID required")
	}
	snap, err := s.compute(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute stats")
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "stats cache write failed",
			"owner_id", ownerID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return snap, nil
}

// Invalidate drops the owner's cached snapshot.
func (s *Service) Invalidate(ctx context.Context, ownerID id.OwnerID) error {
	return s.cache.Delete(ctx, ownerID)
}

func (s *Service) compute(ctx context.Context, ownerID id.OwnerID) (*models.Snapshot, error) {
	start := time.Now()
	now := requestcontext.Now(ctx).UTC()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	var (
		counts leadModels.StatusCounts
		due    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.counter.CountsByStatus(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		due, err = s.counter.CountCallbacksDue(gctx, ownerID, tomorrow)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.metrics.ObserveCompute(time.Since(start).Seconds())

	return &models.Snapshot{
		OwnerID:      ownerID,
		Counts:       counts,
		Total:        counts.Total(),
		CallbacksDue: due,
		ComputedAt:   now,
	}, nil
}

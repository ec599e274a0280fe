// Package numbering keeps the per-bucket display numbers of an owner's leads
// dense: within one (owner, status) bucket the numbers run 1..N.
//
// NextNumber places an incoming lead at the tail of its bucket. Renumber
// closes gaps left when a lead leaves a bucket. Concurrent inserts into the
// same bucket may briefly share a number; the next Renumber resolves it.
package numbering

import (
	"context"
	"fmt"
	"sort"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	"leadline/pkg/requestcontext"
)

// Store is the slice of the lead repository numbering needs.
type Store interface {
	CountByStatus(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error)
	ListByStatus(ctx context.Context, ownerID id.OwnerID, status models.Status) ([]*models.Lead, error)
	Update(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error)
}

// TxRunner runs fn inside a transaction when the backing store supports one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	store Store
	tx    TxRunner
}

type Option func(*Service)

// WithTxRunner makes each Renumber a single transaction.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, tx: noTx{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextNumber returns the number a lead entering the bucket should take.
func (s *Service) NextNumber(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error) {
	count, err := s.store.CountByStatus(ctx, ownerID, status)
	if err != nil {
		return 0, fmt.Errorf("count bucket %s: %w", status, err)
	}
	return count + 1, nil
}

// Renumber rewrites the bucket to 1..N, keeping the current relative order
// (number, then created_at). Only rows whose number changes are written, so
// a second call with no intervening mutation writes nothing. It returns the
// number of rows rewritten. A failure part-way is safe to retry.
func (s *Service) Renumber(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error) {
	changed := 0
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		leads, err := s.store.ListByStatus(ctx, ownerID, status)
		if err != nil {
			return fmt.Errorf("load bucket %s: %w", status, err)
		}

		now := requestcontext.Now(ctx)
		for i, lead := range Plan(leads) {
			if lead.Number == i+1 {
				continue
			}
			number := i + 1
			if _, err := s.store.Update(ctx, ownerID, lead.ID, models.LeadPatch{Number: &number, UpdatedAt: now}); err != nil {
				return fmt.Errorf("renumber lead %s in bucket %s: %w", lead.ID, status, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Plan returns the bucket in its renumbering order. The input slice is not
// modified. Position i in the result receives number i+1.
func Plan(leads []*models.Lead) []*models.Lead {
	ordered := append([]*models.Lead(nil), leads...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Number != ordered[j].Number {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

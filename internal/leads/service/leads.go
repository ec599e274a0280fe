package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Origin records how a lead entered the system.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginImport Origin = "import"
)

// CreateLead appends a lead to the tail of the owner's new bucket.
func (s *Service) CreateLead(ctx context.Context, ownerID id.OwnerID, details models.LeadDetails, origin Origin) (*models.Lead, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(details.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}

	unlock, err := s.locks.acquire(ctx, id.LeadID(ownerID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	number, err := s.numberer.NextNumber(ctx, ownerID, models.StatusNew)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create lead")
	}
	lead, err := models.NewLead(id.LeadID(uuid.New()), ownerID, details, number, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if err := s.store.Create(ctx, lead); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "lead already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create lead")
	}

	s.metrics.IncrementCreated(string(origin))
	s.invalidateStats(ctx, ownerID)
	s.emit(ctx, audit.EventLeadCreated, ownerID, lead.ID.String(), "", string(origin))
	return lead, nil
}

// GetLead returns one owned lead.
func (s *Service) GetLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) (*models.Lead, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	lead, err := s.store.FindByID(ctx, ownerID, leadID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	return lead, nil
}

// GetLeads returns the requested leads in input order. Any id that is not
// owned by ownerID fails the whole call.
func (s *Service) GetLeads(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]*models.Lead, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	leads, err := s.store.FindByIDs(ctx, ownerID, leadIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load leads")
	}
	found := make(map[id.LeadID]struct{}, len(leads))
	for _, l := range leads {
		found[l.ID] = struct{}{}
	}
	var missing []string
	for _, leadID := range leadIDs {
		if _, ok := found[leadID]; !ok {
			missing = append(missing, leadID.String())
		}
	}
	if len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "leads not found: "+strings.Join(missing, ", "))
	}
	return leads, nil
}

// ListResult is one page of leads plus the unpaged total.
type ListResult struct {
	Leads []*models.Lead
	Total int
}

func (s *Service) ListLeads(ctx context.Context, ownerID id.OwnerID, filter models.ListFilter) (*ListResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid status filter")
	}
	leads, total, err := s.store.List(ctx, ownerID, filter.Normalized())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list leads")
	}
	return &ListResult{Leads: leads, Total: total}, nil
}

// UpdateLead edits descriptive fields. Status and number only move through
// ChangeStatus and RenumberBucket.
func (s *Service) UpdateLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, patch models.LeadPatch) (*models.Lead, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if patch.Status != nil || patch.Number != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "status and number cannot be edited directly")
	}
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		patch.Name = &name
	}
	patch.UpdatedAt = requestcontext.Now(ctx)

	updated, err := s.store.Update(ctx, ownerID, leadID, patch)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeValidation, "callback date required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lead")
	}
	s.invalidateStats(ctx, ownerID)
	s.emit(ctx, audit.EventLeadUpdated, ownerID, leadID.String(), "", "")
	return updated, nil
}

// DeleteLead removes a lead. The vacated number stays as a gap until the
// bucket is renumbered.
func (s *Service) DeleteLead(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ownerID, leadID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "lead not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete lead")
	}
	s.invalidateStats(ctx, ownerID)
	s.emit(ctx, audit.EventLeadDeleted, ownerID, leadID.String(), "", "")
	return nil
}

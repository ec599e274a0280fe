package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	audit "leadline/pkg/platform/audit"
	"leadline/pkg/platform/sentinel"
	"leadline/pkg/requestcontext"
)

// Warnings attached to a successful status change whose bookkeeping partly failed.
const (
	WarningRenumberFailed    = "renumber_failed"
	WarningInteractionFailed = "interaction_failed"
	WarningNoteFailed        = "note_failed"
)

// ChangeStatusResult is the outcome of a committed status change. Warnings
// lists bookkeeping steps that failed after the lead itself was updated.
type ChangeStatusResult struct {
	Lead           *models.Lead
	PreviousStatus models.Status
	Renumbered     int
	Warnings       []string
}

func (r *ChangeStatusResult) warn(code string) {
	r.Warnings = append(r.Warnings, code)
}

// ChangeStatus moves a lead into target. The lead row is written in one
// atomic update; renumbering the vacated bucket and the history entries
// follow and only produce warnings when they fail.
func (s *Service) ChangeStatus(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, target models.Status, payload models.TransitionPayload) (result *ChangeStatusResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "leads.ChangeStatus", trace.WithAttributes(
		attribute.String("lead.id", leadID.String()),
		attribute.String("lead.target_status", string(target)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.MessageOf(err))
		}
		span.End()
		s.metrics.ObserveChangeStatus(time.Since(start))
	}()

	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = models.DefaultPayload{}
	}

	unlock, err := s.locks.acquire(ctx, leadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.store.FindByID(ctx, ownerID, leadID)
	if err != nil {
		return nil, translateFindErr(err)
	}

	if err := models.ValidateTransition(target, payload); err != nil {
		return nil, err
	}

	previous := current.Status
	now := requestcontext.Now(ctx)
	patch := models.LeadPatch{Status: &target, UpdatedAt: now}

	// A same-status change keeps the current number.
	if previous != target {
		number, err := s.numberer.NextNumber(ctx, ownerID, target)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lead, please retry")
		}
		patch.Number = &number
	}
	if date, ok := models.PayloadCallbackDate(payload); ok {
		patch.DateToCallBack = &date
	}
	notes := models.PayloadNotes(payload)
	if notes != "" {
		patch.Notes = &notes
	}

	updated, err := s.store.Update(ctx, ownerID, leadID, patch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update lead, please retry")
	}

	result = &ChangeStatusResult{Lead: updated, PreviousStatus: previous}

	if previous != target {
		changed, err := s.numberer.Renumber(ctx, ownerID, previous)
		if err != nil {
			s.softFailure(ctx, result, "renumber", WarningRenumberFailed, leadID, err)
		} else {
			result.Renumbered = changed
			s.metrics.AddRenumbered(changed)
		}
	}

	interaction := &models.Interaction{
		ID:        id.InteractionID(uuid.New()),
		OwnerID:   ownerID,
		LeadID:    leadID,
		Type:      models.InteractionStatusChange,
		OldValue:  string(previous),
		NewValue:  string(target),
		CreatedAt: now,
	}
	if err := s.history.CreateInteraction(ctx, interaction); err != nil {
		s.softFailure(ctx, result, "interaction", WarningInteractionFailed, leadID, err)
	}

	if notes != "" {
		note := &models.Note{
			ID:        id.NoteID(uuid.New()),
			OwnerID:   ownerID,
			LeadID:    leadID,
			Content:   notes,
			CreatedAt: now,
		}
		if err := s.history.CreateNote(ctx, note); err != nil {
			s.softFailure(ctx, result, "note", WarningNoteFailed, leadID, err)
		}
	}

	s.metrics.IncrementTransition(string(previous), string(target))
	s.invalidateStats(ctx, ownerID)
	s.emit(ctx, audit.EventLeadStatusChanged, ownerID, leadID.String(), string(previous), string(target))

	s.logger.InfoContext(ctx, "lead status changed",
		"lead_id", leadID.String(),
		"from", string(previous),
		"to", string(target),
		"number", updated.Number,
		"warnings", len(result.Warnings),
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

func (s *Service) softFailure(ctx context.Context, result *ChangeStatusResult, step, warning string, leadID id.LeadID, err error) {
	result.warn(warning)
	s.metrics.IncrementSoftFailure(step)
	s.logger.WarnContext(ctx, "lead status change bookkeeping failed",
		"step", step,
		"lead_id", leadID.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// BulkFailure describes one lead that could not be moved.
type BulkFailure struct {
	LeadID id.LeadID
	Err    error
}

// BulkResult summarises a bulk status change.
type BulkResult struct {
	Succeeded []*ChangeStatusResult
	Failed    []BulkFailure
}

// BulkChangeStatus applies the same transition to each lead independently.
// The payload is checked once up front so an invalid request writes nothing.
func (s *Service) BulkChangeStatus(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID, target models.Status, payload models.TransitionPayload) (*BulkResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if len(leadIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "lead_ids is required")
	}
	if payload == nil {
		payload = models.DefaultPayload{}
	}
	if err := models.ValidateTransition(target, payload); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, leadID := range leadIDs {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, BulkFailure{LeadID: leadID, Err: dErrors.Wrap(err, dErrors.CodeTimeout, "bulk status change aborted")})
			continue
		}
		changed, err := s.ChangeStatus(ctx, ownerID, leadID, target, payload)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{LeadID: leadID, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, changed)
	}
	return result, nil
}

// RenumberBucket compacts one bucket back to 1..N and reports rewritten rows.
func (s *Service) RenumberBucket(ctx context.Context, ownerID id.OwnerID, status models.Status) (int, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if !status.IsValid() {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid status")
	}
	changed, err := s.numberer.Renumber(ctx, ownerID, status)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to renumber leads")
	}
	s.metrics.AddRenumbered(changed)
	if changed > 0 {
		s.emit(ctx, audit.EventBucketRenumbered, ownerID, string(status), "", strconv.Itoa(changed))
	}
	return changed, nil
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	"leadline/pkg/requestcontext"
)

const maxNoteLength = 10000

// AddNote attaches free text to a lead and records a note interaction.
func (s *Service) AddNote(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, content string) (*models.Note, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "note content is required")
	}
	if len(content) > maxNoteLength {
		return nil, dErrors.New(dErrors.CodeValidation, "note content is too long")
	}
	if _, err := s.store.FindByID(ctx, ownerID, leadID); err != nil {
		return nil, translateFindErr(err)
	}

	now := requestcontext.Now(ctx)
	note := &models.Note{
		ID:        id.NoteID(uuid.New()),
		OwnerID:   ownerID,
		LeadID:    leadID,
		Content:   content,
		CreatedAt: now,
	}
	if err := s.history.CreateNote(ctx, note); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save note")
	}
	interaction := &models.Interaction{
		ID:        id.InteractionID(uuid.New()),
		OwnerID:   ownerID,
		LeadID:    leadID,
		Type:      models.InteractionNote,
		NewValue:  note.ID.String(),
		CreatedAt: now,
	}
	if err := s.history.CreateInteraction(ctx, interaction); err != nil {
		s.metrics.IncrementSoftFailure("interaction")
		s.logger.WarnContext(ctx, "failed to record note interaction",
			"lead_id", leadID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return note, nil
}

// RecordInteraction appends a history entry on behalf of another module,
// such as a route that included the lead.
func (s *Service) RecordInteraction(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, kind models.InteractionType, oldValue, newValue string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := s.history.CreateInteraction(ctx, &models.Interaction{
		ID:        id.InteractionID(uuid.New()),
		OwnerID:   ownerID,
		LeadID:    leadID,
		Type:      kind,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record interaction")
	}
	return nil
}

func (s *Service) ListNotes(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Note, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	notes, err := s.history.ListNotes(ctx, ownerID, leadID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notes")
	}
	return notes, nil
}

func (s *Service) ListInteractions(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) ([]*models.Interaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	interactions, err := s.history.ListInteractions(ctx, ownerID, leadID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list interactions")
	}
	return interactions, nil
}

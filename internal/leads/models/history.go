package models

import (
	"time"

	id "leadline/pkg/domain"
)

// InteractionType labels an append-only history entry.
type InteractionType string

const (
	InteractionStatusChange InteractionType = "status_change"
	InteractionNote         InteractionType = "note"
	InteractionAttachment   InteractionType = "attachment"
	InteractionRoute        InteractionType = "route"
)

// Interaction records one change to a lead. Never updated or deleted.
type Interaction struct {
	ID        id.InteractionID
	OwnerID   id.OwnerID
	LeadID    id.LeadID
	Type      InteractionType
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}

// Note is free text attached to a lead. Never updated or deleted.
type Note struct {
	ID        id.NoteID
	OwnerID   id.OwnerID
	LeadID    id.LeadID
	Content   string
	CreatedAt time.Time
}

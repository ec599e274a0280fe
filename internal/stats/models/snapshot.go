package models

import (
	"time"

	leadModels "leadline/internal/leads/models"
	id "leadline/pkg/domain"
)

// Snapshot is the dashboard view of one owner's pipeline.
type Snapshot struct {
	OwnerID      id.OwnerID              `json:"-"`
	Counts       leadModels.StatusCounts `json:"counts"`
	Total        int                     `json:"total"`
	CallbacksDue int                     `json:"callbacks_due"`
	ComputedAt   time.Time               `json:"computed_at"`
}

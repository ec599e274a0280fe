package audit

import (
	"context"
	"time"

	id "leadline/pkg/domain"
)

// EventCategory classifies lead activity events so sinks can route them.
type EventCategory string

const (
	// CategoryPipeline covers movement through the status pipeline.
	CategoryPipeline EventCategory = "pipeline"

	// CategoryRecords covers creation, edits and deletion of records.
	CategoryRecords EventCategory = "records"

	// CategoryOperations covers housekeeping such as renumbering.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	OwnerID   id.OwnerID    `json:"-"`
	Subject   string        `json:"subject"`
	Action    string        `json:"action"`
	OldValue  string        `json:"old_value,omitempty"`
	NewValue  string        `json:"new_value,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventLeadCreated       AuditEvent = "lead_created"
	EventLeadUpdated       AuditEvent = "lead_updated"
	EventLeadDeleted       AuditEvent = "lead_deleted"
	EventLeadStatusChanged AuditEvent = "lead_status_changed"
	EventBucketRenumbered  AuditEvent = "bucket_renumbered"
	EventRouteGenerated    AuditEvent = "route_generated"
	EventRouteDeleted      AuditEvent = "route_deleted"
	EventImportCompleted   AuditEvent = "import_completed"
	EventImportFailed      AuditEvent = "import_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLeadStatusChanged: CategoryPipeline,
	EventRouteGenerated:    CategoryPipeline,

	EventLeadCreated:     CategoryRecords,
	EventLeadUpdated:     CategoryRecords,
	EventLeadDeleted:     CategoryRecords,
	EventRouteDeleted:    CategoryRecords,
	EventImportCompleted: CategoryRecords,
	EventImportFailed:    CategoryRecords,

	EventBucketRenumbered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink receives published events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the narrow interface services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// NopEmitter discards events; services default to it.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) error { return nil }

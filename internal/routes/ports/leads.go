package ports

import (
	"context"

	id "leadline/pkg/domain"
)

// RouteLead is the slice of a lead the route generator needs.
type RouteLead struct {
	ID          id.LeadID
	Name        string
	Status      string
	MapsAddress string
}

// LeadsPort lets the route generator read and promote leads without
// depending on the leads module's service types.
type LeadsPort interface {
	// ResolveLeads returns the owner's leads in the requested order; any
	// unknown or foreign id fails the call with a not_found error.
	ResolveLeads(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]RouteLead, error)

	// PromoteToLeads moves a lead from new to leads.
	PromoteToLeads(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error

	// RecordRouteStop appends a route interaction to the lead's history.
	RecordRouteStop(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, routeID id.RouteID) error
}

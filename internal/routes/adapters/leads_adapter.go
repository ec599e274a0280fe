package adapters

import (
	"context"

	leadModels "leadline/internal/leads/models"
	leadService "leadline/internal/leads/service"
	"leadline/internal/routes/ports"
	id "leadline/pkg/domain"
)

// leadLifecycle is the part of the lead service the adapter calls.
// Defined locally so routes never import more of the leads module than this.
type leadLifecycle interface {
	GetLeads(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]*leadModels.Lead, error)
	ChangeStatus(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, target leadModels.Status, payload leadModels.TransitionPayload) (*leadService.ChangeStatusResult, error)
	RecordInteraction(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, kind leadModels.InteractionType, oldValue, newValue string) error
}

// LeadsAdapter implements ports.LeadsPort over the in-process lead service.
type LeadsAdapter struct {
	leads leadLifecycle
}

func NewLeadsAdapter(leads leadLifecycle) ports.LeadsPort {
	return &LeadsAdapter{leads: leads}
}

func (a *LeadsAdapter) ResolveLeads(ctx context.Context, ownerID id.OwnerID, leadIDs []id.LeadID) ([]ports.RouteLead, error) {
	leads, err := a.leads.GetLeads(ctx, ownerID, leadIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ports.RouteLead, len(leads))
	for i, l := range leads {
		out[i] = ports.RouteLead{
			ID:          l.ID,
			Name:        l.Name,
			Status:      string(l.Status),
			MapsAddress: l.MapsAddress,
		}
	}
	return out, nil
}

// PromoteToLeads runs a regular status change. Bookkeeping warnings are
// ignored here: the lead itself has moved.
func (a *LeadsAdapter) PromoteToLeads(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID) error {
	_, err := a.leads.ChangeStatus(ctx, ownerID, leadID, leadModels.StatusLeads, leadModels.DefaultPayload{})
	return err
}

func (a *LeadsAdapter) RecordRouteStop(ctx context.Context, ownerID id.OwnerID, leadID id.LeadID, routeID id.RouteID) error {
	return a.leads.RecordInteraction(ctx, ownerID, leadID, leadModels.InteractionRoute, "", routeID.String())
}

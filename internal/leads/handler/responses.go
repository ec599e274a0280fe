package handler

import (
	"time"

	"leadline/internal/leads/models"
	"leadline/internal/leads/service"
)

type LeadResponse struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	Number          int       `json:"number"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	Provider        string    `json:"provider,omitempty"`
	Address         string    `json:"address,omitempty"`
	MapsAddress     string    `json:"maps_address,omitempty"`
	TypeOfBusiness  string    `json:"type_of_business,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	DateToCallBack  *string   `json:"date_to_call_back,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
	ListName        string    `json:"list_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toLeadResponse(l *models.Lead) *LeadResponse {
	resp := &LeadResponse{
		ID:              l.ID.String(),
		Status:          string(l.Status),
		Number:          l.Number,
		Name:            l.Name,
		Phone:           l.Phone,
		Provider:        l.Provider,
		Address:         l.Address,
		MapsAddress:     l.MapsAddress,
		TypeOfBusiness:  l.TypeOfBusiness,
		Notes:           l.Notes,
		BackgroundColor: l.BackgroundColor,
		ListName:        l.ListName,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.DateToCallBack != nil {
		d := l.DateToCallBack.Format(models.CallbackDateLayout)
		resp.DateToCallBack = &d
	}
	return resp
}

type ListLeadsResponse struct {
	Leads  []*LeadResponse `json:"leads"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ChangeStatusResponse carries the updated lead and any bookkeeping warnings.
type ChangeStatusResponse struct {
	Lead           *LeadResponse `json:"lead"`
	PreviousStatus string        `json:"previous_status"`
	Renumbered     int           `json:"renumbered"`
	Warnings       []string      `json:"warnings,omitempty"`
}

func toChangeStatusResponse(r *service.ChangeStatusResult) *ChangeStatusResponse {
	return &ChangeStatusResponse{
		Lead:           toLeadResponse(r.Lead),
		PreviousStatus: string(r.PreviousStatus),
		Renumbered:     r.Renumbered,
		Warnings:       r.Warnings,
	}
}

type BulkErrorResponse struct {
	LeadID string `json:"lead_id"`
	Error  string `json:"error"`
}

type BulkChangeStatusResponse struct {
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Errors    []BulkErrorResponse `json:"errors,omitempty"`
}

type RenumberResponse struct {
	Status     string `json:"status"`
	Renumbered int    `json:"renumbered"`
}

type NoteResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteResponse(n *models.Note) NoteResponse {
	return NoteResponse{ID: n.ID.String(), Content: n.Content, CreatedAt: n.CreatedAt}
}

type InteractionResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

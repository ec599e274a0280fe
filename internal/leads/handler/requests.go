package handler

import (
	"strings"
	"time"

	"leadline/internal/leads/models"
	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
	strutil "leadline/pkg/platform/strings"
)

const (
	maxNameLength  = 255
	maxFieldLength = 1000
	maxBulkLeads   = 500
)

// CreateLeadRequest is the body of POST /leads.
type CreateLeadRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Provider        string `json:"provider"`
	Address         string `json:"address"`
	MapsAddress     string `json:"maps_address"`
	TypeOfBusiness  string `json:"type_of_business"`
	Notes           string `json:"notes"`
	BackgroundColor string `json:"background_color"`
	ListName        string `json:"list_name"`
}

func (r *CreateLeadRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Provider = strings.TrimSpace(r.Provider)
	r.Address = strings.TrimSpace(r.Address)
	r.MapsAddress = strings.TrimSpace(r.MapsAddress)
	r.TypeOfBusiness = strings.TrimSpace(r.TypeOfBusiness)
	r.ListName = strings.TrimSpace(r.ListName)
}

func (r *CreateLeadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 255 characters")
	}
	if len(r.Address) > maxFieldLength || len(r.MapsAddress) > maxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "address fields must be at most 1000 characters")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func (r *CreateLeadRequest) Details() models.LeadDetails {
	return models.LeadDetails{
		Name:            r.Name,
		Phone:           r.Phone,
		Provider:        r.Provider,
		Address:         r.Address,
		MapsAddress:     r.MapsAddress,
		TypeOfBusiness:  r.TypeOfBusiness,
		Notes:           r.Notes,
		BackgroundColor: r.BackgroundColor,
		ListName:        r.ListName,
	}
}

// UpdateLeadRequest is the body of PATCH /leads/{id}. Absent fields are kept.
type UpdateLeadRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Provider        *string `json:"provider"`
	Address         *string `json:"address"`
	MapsAddress     *string `json:"maps_address"`
	TypeOfBusiness  *string `json:"type_of_business"`
	Notes           *string `json:"notes"`
	BackgroundColor *string `json:"background_color"`
	ListName        *string `json:"list_name"`
	DateToCallBack  *string `json:"date_to_call_back"`

	parsedDate *time.Time
}

func (r *UpdateLeadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name != nil && len(*r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 255 characters")
	}
	if r.DateToCallBack != nil {
		date, err := models.ParseCallbackDate(*r.DateToCallBack)
		if err != nil {
			return err
		}
		r.parsedDate = &date
	}
	return nil
}

func (r *UpdateLeadRequest) Patch() models.LeadPatch {
	return models.LeadPatch{
		Name:            r.Name,
		Phone:           r.Phone,
		Provider:        r.Provider,
		Address:         r.Address,
		MapsAddress:     r.MapsAddress,
		TypeOfBusiness:  r.TypeOfBusiness,
		Notes:           r.Notes,
		BackgroundColor: r.BackgroundColor,
		ListName:        r.ListName,
		DateToCallBack:  r.parsedDate,
	}
}

// ChangeStatusRequest is the body of POST /leads/{id}/status.
type ChangeStatusRequest struct {
	Status         string  `json:"status"`
	DateToCallBack *string `json:"date_to_call_back"`
	Notes          string  `json:"notes"`

	parsedStatus  models.Status
	parsedPayload models.TransitionPayload
}

func (r *ChangeStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Notes) > 10000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 10000 characters")
	}
	status, payload, err := parseTransition(r.Status, r.DateToCallBack, r.Notes)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	r.parsedPayload = payload
	return nil
}

func (r *ChangeStatusRequest) ParsedStatus() models.Status {
	return r.parsedStatus
}

func (r *ChangeStatusRequest) ParsedPayload() models.TransitionPayload {
	return r.parsedPayload
}

// BulkChangeStatusRequest is the body of POST /leads/bulk-status.
type BulkChangeStatusRequest struct {
	LeadIDs        []string `json:"lead_ids"`
	Status         string   `json:"status"`
	DateToCallBack *string  `json:"date_to_call_back"`
	Notes          string   `json:"notes"`

	parsedIDs     []id.LeadID
	parsedStatus  models.Status
	parsedPayload models.TransitionPayload
}

func (r *BulkChangeStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.LeadIDs = strutil.NormalizeIDs(r.LeadIDs)
	r.Status = strings.TrimSpace(r.Status)
}

func (r *BulkChangeStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.LeadIDs) > maxBulkLeads {
		return dErrors.New(dErrors.CodeValidation, "at most 500 lead_ids per request")
	}
	if len(r.LeadIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "lead_ids is required")
	}
	ids, err := id.ParseLeadIDs(r.LeadIDs)
	if err != nil {
		return err
	}
	status, payload, err := parseTransition(r.Status, r.DateToCallBack, r.Notes)
	if err != nil {
		return err
	}
	r.parsedIDs = ids
	r.parsedStatus = status
	r.parsedPayload = payload
	return nil
}

// RenumberRequest is the body of POST /leads/renumber.
type RenumberRequest struct {
	Status string `json:"status"`

	parsedStatus models.Status
}

func (r *RenumberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// AddNoteRequest is the body of POST /leads/{id}/notes.
type AddNoteRequest struct {
	Content string `json:"content"`
}

func (r *AddNoteRequest) Normalize() {
	if r != nil {
		r.Content = strings.TrimSpace(r.Content)
	}
}

func (r *AddNoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

func parseTransition(rawStatus string, rawDate *string, notes string) (models.Status, models.TransitionPayload, error) {
	if strings.TrimSpace(rawStatus) == "" {
		return "", nil, dErrors.New(dErrors.CodeValidation, "status is required")
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return "", nil, err
	}
	var date *time.Time
	if rawDate != nil && strings.TrimSpace(*rawDate) != "" {
		parsed, err := models.ParseCallbackDate(*rawDate)
		if err != nil {
			return "", nil, err
		}
		date = &parsed
	}
	payload, err := models.NewTransitionPayload(status, date, notes)
	if err != nil {
		return "", nil, err
	}
	return status, payload, nil
}

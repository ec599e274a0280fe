package models

import (
	"strings"
	"time"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

// Lead is a prospect record owned by one account.
//
// Invariants:
//   - Name is never empty.
//   - Number is positive. Within one (OwnerID, Status) bucket numbers form
//     1..N once the bucket has been renumbered; creation and transitions
//     append at N+1, deletion may leave a gap.
//   - Status later implies DateToCallBack is set.
type Lead struct {
	ID              id.LeadID
	OwnerID         id.OwnerID
	Status          Status
	Number          int
	Name            string
	Phone           string
	Provider        string
	Address         string
	MapsAddress     string
	TypeOfBusiness  string
	Notes           string
	DateToCallBack  *time.Time
	BackgroundColor string
	ListName        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LeadDetails are the descriptive fields set on creation.
type LeadDetails struct {
	Name            string
	Phone           string
	Provider        string
	Address         string
	MapsAddress     string
	TypeOfBusiness  string
	Notes           string
	BackgroundColor string
	ListName        string
}

// NewLead builds a lead in the new bucket at the given number.
func NewLead(leadID id.LeadID, ownerID id.OwnerID, details LeadDetails, number int, now time.Time) (*Lead, error) {
	name := strings.TrimSpace(details.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "lead name cannot be empty")
	}
	if number < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "lead number must be positive")
	}
	return &Lead{
		ID:              leadID,
		OwnerID:         ownerID,
		Status:          StatusNew,
		Number:          number,
		Name:            name,
		Phone:           details.Phone,
		Provider:        details.Provider,
		Address:         details.Address,
		MapsAddress:     details.MapsAddress,
		TypeOfBusiness:  details.TypeOfBusiness,
		Notes:           details.Notes,
		BackgroundColor: details.BackgroundColor,
		ListName:        details.ListName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsOwnedBy reports whether ownerID owns the lead.
func (l *Lead) IsOwnedBy(ownerID id.OwnerID) bool {
	return l.OwnerID == ownerID
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (l *Lead) Clone() *Lead {
	c := *l
	if l.DateToCallBack != nil {
		d := *l.DateToCallBack
		c.DateToCallBack = &d
	}
	return &c
}

// LeadPatch is a partial update. Nil fields are left untouched. A status
// transition is a single patch carrying Status, Number and UpdatedAt together.
type LeadPatch struct {
	Status          *Status
	Number          *int
	Name            *string
	Phone           *string
	Provider        *string
	Address         *string
	MapsAddress     *string
	TypeOfBusiness  *string
	Notes           *string
	DateToCallBack  *time.Time
	BackgroundColor *string
	ListName        *string
	UpdatedAt       time.Time
}

// IsEmpty reports whether the patch changes any field.
func (p LeadPatch) IsEmpty() bool {
	return p.Status == nil && p.Number == nil && p.Name == nil && p.Phone == nil &&
		p.Provider == nil && p.Address == nil && p.MapsAddress == nil &&
		p.TypeOfBusiness == nil && p.Notes == nil && p.DateToCallBack == nil &&
		p.BackgroundColor == nil && p.ListName == nil
}

// Apply writes every set field of p onto l.
func (l *Lead) Apply(p LeadPatch) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Number != nil {
		l.Number = *p.Number
	}
	setString(&l.Name, p.Name)
	setString(&l.Phone, p.Phone)
	setString(&l.Provider, p.Provider)
	setString(&l.Address, p.Address)
	setString(&l.MapsAddress, p.MapsAddress)
	setString(&l.TypeOfBusiness, p.TypeOfBusiness)
	setString(&l.Notes, p.Notes)
	setString(&l.BackgroundColor, p.BackgroundColor)
	setString(&l.ListName, p.ListName)
	if p.DateToCallBack != nil {
		d := *p.DateToCallBack
		l.DateToCallBack = &d
	}
	if !p.UpdatedAt.IsZero() {
		l.UpdatedAt = p.UpdatedAt
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

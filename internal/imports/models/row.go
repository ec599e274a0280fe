package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	leadModels "leadline/internal/leads/models"
)

// Row is one lead as it arrives from a spreadsheet or scraper run.
type Row struct {
	Name            string `json:"name" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"omitempty,max=50"`
	Provider        string `json:"provider" validate:"omitempty,max=255"`
	Address         string `json:"address" validate:"omitempty,max=1000"`
	MapsAddress     string `json:"maps_address" validate:"omitempty,max=2000"`
	TypeOfBusiness  string `json:"type_of_business" validate:"omitempty,max=255"`
	Notes           string `json:"notes" validate:"omitempty,max=10000"`
	BackgroundColor string `json:"background_color" validate:"omitempty,max=32"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims surrounding whitespace from every field.
func (r *Row) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Provider = strings.TrimSpace(r.Provider)
	r.Address = strings.TrimSpace(r.Address)
	r.MapsAddress = strings.TrimSpace(r.MapsAddress)
	r.TypeOfBusiness = strings.TrimSpace(r.TypeOfBusiness)
	r.Notes = strings.TrimSpace(r.Notes)
	r.BackgroundColor = strings.TrimSpace(r.BackgroundColor)
}

// Validate returns one RowError per failing field; rowNumber is 1-based.
func (r Row) Validate(rowNumber int) []RowError {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []RowError{{Row: rowNumber, Message: err.Error()}}
	}
	out := make([]RowError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, RowError{Row: rowNumber, Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	}
	return fe.Field() + " failed " + fe.Tag() + " validation"
}

// Details maps the row onto a new lead in the named list.
func (r Row) Details(listName string) leadModels.LeadDetails {
	return leadModels.LeadDetails{
		Name:            r.Name,
		Phone:           r.Phone,
		Provider:        r.Provider,
		Address:         r.Address,
		MapsAddress:     r.MapsAddress,
		TypeOfBusiness:  r.TypeOfBusiness,
		Notes:           r.Notes,
		BackgroundColor: r.BackgroundColor,
		ListName:        listName,
	}
}

package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "leadline/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so an owner id can never be passed
// where a lead id is expected.
type (
	OwnerID         uuid.UUID
	LeadID          uuid.UUID
	RouteID         uuid.UUID
	ImportSessionID uuid.UUID
	NoteID          uuid.UUID
	InteractionID   uuid.UUID
)

func (id OwnerID) String() string         { return uuid.UUID(id).String() }
func (id LeadID) String() string          { return uuid.UUID(id).String() }
func (id RouteID) String() string         { return uuid.UUID(id).String() }
func (id ImportSessionID) String() string { return uuid.UUID(id).String() }
func (id NoteID) String() string          { return uuid.UUID(id).String() }
func (id InteractionID) String() string   { return uuid.UUID(id).String() }

func (id OwnerID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id LeadID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id RouteID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ImportSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseOwnerID parses an owner id at a trust boundary.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s, "owner ID")
	return OwnerID(u), err
}

// ParseLeadID parses a lead id at a trust boundary.
func ParseLeadID(s string) (LeadID, error) {
	u, err := parseUUID(s, "lead ID")
	return LeadID(u), err
}

func ParseRouteID(s string) (RouteID, error) {
	u, err := parseUUID(s, "route ID")
	return RouteID(u), err
}

func ParseImportSessionID(s string) (ImportSessionID, error) {
	u, err := parseUUID(s, "import session ID")
	return ImportSessionID(u), err
}

// ParseLeadIDs parses every entry, failing on the first invalid one.
func ParseLeadIDs(values []string) ([]LeadID, error) {
	ids := make([]LeadID, 0, len(values))
	for _, v := range values {
		leadID, err := ParseLeadID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, leadID)
	}
	return ids, nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

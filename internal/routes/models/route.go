package models

import (
	"net/url"
	"strings"
	"time"

	id "leadline/pkg/domain"
	dErrors "leadline/pkg/domain-errors"
)

// MaxStops is the waypoint limit of the directions link.
const MaxStops = 25

const directionsBaseURL = "https://www.google.com/maps/dir/"

// Route is a snapshot of leads visited together. LeadIDs are weak
// references: leads may change or disappear after the route is made.
//
// Only Notes changes after creation.
type Route struct {
	ID            id.RouteID
	OwnerID       id.OwnerID
	Name          string
	LeadIDs       []id.LeadID
	StopCount     int
	StartingPoint string
	RouteURL      string
	Notes         string
	CreatedAt     time.Time
}

// Stop is one resolved waypoint.
type Stop struct {
	LeadID     id.LeadID
	Name       string
	Coordinate Coordinate
}

// NewRoute builds a route over ordered stops.
func NewRoute(routeID id.RouteID, ownerID id.OwnerID, name, startingPoint, notes string, stops []Stop, now time.Time) (*Route, error) {
	if len(stops) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "route needs at least one stop")
	}
	if len(stops) > MaxStops {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "route exceeds the 25-stop limit")
	}
	leadIDs := make([]id.LeadID, len(stops))
	for i, s := range stops {
		leadIDs[i] = s.LeadID
	}
	startingPoint = strings.TrimSpace(startingPoint)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Route " + now.Format("2006-01-02 15:04")
	}
	return &Route{
		ID:            routeID,
		OwnerID:       ownerID,
		Name:          name,
		LeadIDs:       leadIDs,
		StopCount:     len(stops),
		StartingPoint: startingPoint,
		RouteURL:      DirectionsURL(startingPoint, stops),
		Notes:         notes,
		CreatedAt:     now,
	}, nil
}

// DirectionsURL encodes the optional starting point followed by every stop
// as path segments of a directions link.
func DirectionsURL(startingPoint string, stops []Stop) string {
	var b strings.Builder
	b.WriteString(directionsBaseURL)
	if startingPoint != "" {
		b.WriteString(url.PathEscape(startingPoint))
		b.WriteByte('/')
	}
	for _, s := range stops {
		b.WriteString(s.Coordinate.String())
		b.WriteByte('/')
	}
	return b.String()
}

// Clone returns a deep copy.
func (r *Route) Clone() *Route {
	c := *r
	c.LeadIDs = append([]id.LeadID(nil), r.LeadIDs...)
	return &c
}

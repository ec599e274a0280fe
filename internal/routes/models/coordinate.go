package models

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// String renders the point the way map links expect it: "lat,lng".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

func (c Coordinate) valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

const decimal = `(-?\d{1,3}(?:\.\d+)?)`

var (
	placeDataPattern = regexp.MustCompile(`!3d` + decimal + `!4d` + decimal)
	atPattern        = regexp.MustCompile(`@` + decimal + `,` + decimal)
	pairPattern      = regexp.MustCompile(`^\s*` + decimal + `\s*,\s*` + decimal + `\s*$`)
)

// coordinateParams are query parameters that may carry a "lat,lng" pair,
// in lookup order.
var coordinateParams = []string{"q", "query", "ll", "destination", "daddr"}

// ParseCoordinate extracts a point from a maps link or a bare "lat,lng"
// string. Place data (!3d/!4d) wins over the viewport centre (@lat,lng)
// because it pins the business itself.
func ParseCoordinate(mapsAddress string) (Coordinate, bool) {
	raw := strings.TrimSpace(mapsAddress)
	if raw == "" {
		return Coordinate{}, false
	}
	if c, ok := match(placeDataPattern, raw); ok {
		return c, true
	}
	if c, ok := match(atPattern, raw); ok {
		return c, true
	}
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		q := u.Query()
		for _, key := range coordinateParams {
			if c, ok := match(pairPattern, q.Get(key)); ok {
				return c, true
			}
		}
	}
	return match(pairPattern, raw)
}

func match(re *regexp.Regexp, s string) (Coordinate, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) != 3 {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.valid() {
		return Coordinate{}, false
	}
	return c, true
}

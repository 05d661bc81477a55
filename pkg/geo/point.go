// Package geo holds the geographic point type the search runs around.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"snapmap-archiver/pkg/errors"
)

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// ParsePoint parses "lat,lon". Surrounding spaces on either side are allowed.
func ParsePoint(s string) (Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, &errors.ParseError{Kind: "coordinates", Input: s, Reason: "expected lat,lon"}
	}

	lat, err := parseCoordinate(latStr)
	if err != nil {
		return Point{}, &errors.ParseError{Kind: "coordinates", Input: s, Reason: "latitude is not a number"}
	}
	lon, err := parseCoordinate(lonStr)
	if err != nil {
		return Point{}, &errors.ParseError{Kind: "coordinates", Input: s, Reason: "longitude is not a number"}
	}

	return Point{Lat: lat, Lon: lon}, nil
}

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %s", s)
	}
	return v, nil
}

// String renders the point the way it is accepted on the command line
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

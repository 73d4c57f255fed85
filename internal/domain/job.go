package domain

import "strings"

// JobRef is a job selected for optimization. A job without a usable
// coordinate must be geocoded from its address before it can be optimized.
type JobRef struct {
	ID        string
	Title     string
	Address   string
	Latitude  *float64
	Longitude *float64
}

// Location returns the job coordinate when both components are present and valid.
func (j JobRef) Location() (Coordinate, bool) {
	if j.Latitude == nil || j.Longitude == nil {
		return NoCoordinate(), false
	}
	c := Coordinate{Lat: *j.Latitude, Lng: *j.Longitude}
	return c, c.Valid()
}

// WithLocation returns a copy of the job carrying the given coordinate.
func (j JobRef) WithLocation(c Coordinate) JobRef {
	lat, lng := c.Lat, c.Lng
	j.Latitude = &lat
	j.Longitude = &lng
	return j
}

// WorkerRef is a worker selected for optimization. The optional depot is the
// start and end point of the worker's route.
type WorkerRef struct {
	ID           string
	Name         string
	DepotAddress string
	DepotLat     *float64
	DepotLng     *float64
}

// Depot returns the depot coordinate when one is configured and valid.
func (w WorkerRef) Depot() (Coordinate, bool) {
	if w.DepotLat == nil || w.DepotLng == nil {
		return NoCoordinate(), false
	}
	c := Coordinate{Lat: *w.DepotLat, Lng: *w.DepotLng}
	return c, c.Valid()
}

// NormalizeAddress collapses whitespace so equivalent addresses share cache keys.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package domain

import "math"

// Geographic coordinates (latitude, longitude) in decimal degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// NoCoordinate marks a missing or unusable location. It never validates.
func NoCoordinate() Coordinate {
	return Coordinate{Lat: math.NaN(), Lng: math.NaN()}
}

// Valid reports whether both components are finite and inside the geographic range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Return coordinates as [lat, lng], the optimizer and map wire order.
func (c Coordinate) LatLng() [2]float64 { return [2]float64{c.Lat, c.Lng} }

// Return coordinates as [lng, lat] for GeoJSON compatibility.
func (c Coordinate) LngLat() []float64 { return []float64{c.Lng, c.Lat} }

// CoordinateFromPair converts a decoded [lat, lng] pair. Anything other than two
// non-null numbers yields NoCoordinate rather than a zero value.
func CoordinateFromPair(pair []*float64) Coordinate {
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return NoCoordinate()
	}
	return Coordinate{Lat: *pair[0], Lng: *pair[1]}
}

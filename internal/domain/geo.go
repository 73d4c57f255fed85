package domain

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the arithmetic mean of the valid points, or NoCoordinate
// when there are none.
func Centroid(points []Coordinate) Coordinate {
	var lat, lng float64
	n := 0
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		lat += p.Lat
		lng += p.Lng
		n++
	}
	if n == 0 {
		return NoCoordinate()
	}
	return Coordinate{Lat: lat / float64(n), Lng: lng / float64(n)}
}

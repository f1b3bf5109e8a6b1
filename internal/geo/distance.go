package geo

import "math"

const earthRadiusM = 6_371_000

// DistanceM returns the great-circle distance in meters between two
// WGS84 points (Haversine).
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	lat1R := lat1 * math.Pi / 180
	lat2R := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1R)*math.Cos(lat2R)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Asin(math.Sqrt(a))
}

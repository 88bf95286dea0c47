package policy

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distance.
const earthRadiusMeters = 6371000.0

// cellSizeDegrees is the side of the serialization grid used to key the
// duplicate-check critical section. Much larger than the duplicate radius so
// two competing submissions at the same spot almost always land in the same
// cell; straddling a boundary degrades to the documented rare self-healing
// duplicate, it does not corrupt state.
const cellSizeDegrees = 0.01

// ValidCoordinate reports whether lat/lng are inside the valid WGS84 ranges.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance returns the great-circle (haversine) distance in meters between
// two coordinates. Planar Euclidean distance on raw degrees is wrong at this
// radius, hence the spherical formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// CellKey maps a coordinate to its serialization grid cell.
func CellKey(lat, lng float64) string {
	return fmt.Sprintf("%d:%d",
		int(math.Floor(lat/cellSizeDegrees)),
		int(math.Floor(lng/cellSizeDegrees)),
	)
}

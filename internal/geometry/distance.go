// Package geometry holds the spherical and planar geometry helpers shared by
// the pipeline stages. All public geometries are EPSG:4326 lon/lat; metric
// work happens in a local equidistant frame around a reference point.
package geometry

import "github.com/golang/geo/s2"

// EarthRadiusKM is the mean earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0088

// HaversineKM returns the great-circle distance in kilometers between two
// lon/lat points.
func HaversineKM(lon1, lat1, lon2, lat2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadiusKM
}

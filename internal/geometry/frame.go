package geometry

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// kmPerDegree is the meridian arc length of one degree of latitude.
const kmPerDegree = 2 * math.Pi * EarthRadiusKM / 360

// LocalFrame is an equidistant planar frame centered on a reference point.
// Within the tens-of-kilometers extents this pipeline works at, projecting
// through the frame keeps distance distortion well below grid-cell size.
type LocalFrame struct {
	originLon float64
	originLat float64
	cosLat    float64
}

// NewLocalFrame creates a frame centered at the given lon/lat.
func NewLocalFrame(lon, lat float64) LocalFrame {
	return LocalFrame{
		originLon: lon,
		originLat: lat,
		cosLat:    math.Cos(lat * math.Pi / 180),
	}
}

// ToKM projects a lon/lat point into frame coordinates in kilometers.
func (f LocalFrame) ToKM(lon, lat float64) (x, y float64) {
	x = (lon - f.originLon) * kmPerDegree * f.cosLat
	y = (lat - f.originLat) * kmPerDegree
	return x, y
}

// ToDeg unprojects frame kilometers back to lon/lat.
func (f LocalFrame) ToDeg(x, y float64) (lon, lat float64) {
	lon = f.originLon + x/(kmPerDegree*f.cosLat)
	lat = f.originLat + y/kmPerDegree
	return lon, lat
}

// Circle builds a polygon approximating a circle of the given radius in
// kilometers around a lon/lat center. The ring is closed and wound
// counter-clockwise with the given number of segments.
func Circle(lon, lat, radiusKM float64, segments int) *geom.Polygon {
	if segments < 8 {
		segments = 8
	}
	f := NewLocalFrame(lon, lat)
	coords := make([]float64, 0, (segments+1)*2)
	for i := 0; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i%segments) / float64(segments)
		x := radiusKM * math.Cos(theta)
		y := radiusKM * math.Sin(theta)
		plon, plat := f.ToDeg(x, y)
		coords = append(coords, plon, plat)
	}
	return geom.NewPolygonFlat(geom.XY, coords, []int{len(coords)}).SetSRID(4326)
}

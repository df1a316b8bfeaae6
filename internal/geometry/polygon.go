package geometry

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// PointInPolygon reports whether a lon/lat point is inside the polygon,
// honoring interior rings as holes. Points on an edge count as inside.
func PointInPolygon(p *geom.Polygon, lon, lat float64) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	if !pointInRing(p.LinearRing(0), lon, lat) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if pointInRing(p.LinearRing(i), lon, lat) {
			return false
		}
	}
	return true
}

// PointInGeom reports whether a lon/lat point is inside a polygonal
// geometry. Non-polygonal geometries always report false.
func PointInGeom(g geom.T, lon, lat float64) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return PointInPolygon(t, lon, lat)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if PointInPolygon(t.Polygon(i), lon, lat) {
				return true
			}
		}
	}
	return false
}

// pointInRing ray-casts against a closed linear ring.
func pointInRing(ring *geom.LinearRing, lon, lat float64) bool {
	coords := ring.FlatCoords()
	stride := ring.Stride()
	n := len(coords) / stride
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[i*stride], coords[i*stride+1]
		xj, yj := coords[j*stride], coords[j*stride+1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// UnionBounds returns the bounding box covering all given polygons.
func UnionBounds(polys []*geom.Polygon) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, p := range polys {
		if p == nil {
			continue
		}
		b.Extend(p)
	}
	return b
}

// CoverFraction estimates the fraction of the axis-aligned cell
// [minLon,maxLon]x[minLat,maxLat] covered by the union of the polygons,
// by testing an n-by-n regular point sample. go-geom carries no polygon
// boolean ops, so the pipeline uses this estimate wherever an overlap
// area is needed; n=4 keeps the error under a sixteenth of a cell.
func CoverFraction(minLon, minLat, maxLon, maxLat float64, polys []*geom.Polygon, n int) float64 {
	if n < 1 {
		n = 1
	}
	hits := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lon := minLon + (maxLon-minLon)*(float64(i)+0.5)/float64(n)
			lat := minLat + (maxLat-minLat)*(float64(j)+0.5)/float64(n)
			for _, p := range polys {
				if PointInPolygon(p, lon, lat) {
					hits++
					break
				}
			}
		}
	}
	return float64(hits) / float64(n*n)
}

// OverlapFraction estimates the fraction of the cell polygon's bounding box
// sample that falls inside both the cell and the candidate geometry. Used
// for largest-area-of-overlap tie-breaking in spatial joins.
func OverlapFraction(cell *geom.Polygon, candidate geom.T, n int) float64 {
	if cell == nil || candidate == nil {
		return 0
	}
	if n < 1 {
		n = 1
	}
	b := cell.Bounds()
	hits := 0
	total := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lon := b.Min(0) + (b.Max(0)-b.Min(0))*(float64(i)+0.5)/float64(n)
			lat := b.Min(1) + (b.Max(1)-b.Min(1))*(float64(j)+0.5)/float64(n)
			if !PointInPolygon(cell, lon, lat) {
				continue
			}
			total++
			if PointInGeom(candidate, lon, lat) {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// NearestOnSegment returns the closest point to (px,py) on the segment
// (ax,ay)-(bx,by), in the same planar coordinates as its inputs.
func NearestOnSegment(px, py, ax, ay, bx, by float64) (x, y float64) {
	dx, dy := bx-ax, by-ay
	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return ax, ay
	}
	t := ((px-ax)*dx + (py-ay)*dy) / segLen2
	t = math.Max(0, math.Min(1, t))
	return ax + t*dx, ay + t*dy
}

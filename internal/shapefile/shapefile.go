// Package shapefile reads ESRI shapefiles into go-geom geometries with
// their attribute tables. Roads, administrative boundaries, and station
// layers all arrive through here when not supplied as CSV or GeoJSON.
package shapefile

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Feature is one shapefile record: a geometry plus its DBF attributes keyed
// by lowercase field name.
type Feature struct {
	Geom  geom.T
	Attrs map[string]string
}

// Read parses a shapefile and returns its features. Records with nil or
// unsupported geometry are skipped; the skipped count is returned so the
// caller can log it.
func Read(path string) ([]Feature, int, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()

		g := toGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				attrs[name] = val
			}
		}
		features = append(features, Feature{Geom: g, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Warn("shapefile: skipped records with missing or unsupported geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return features, skipped, nil
}

// toGeom converts a go-shp shape to a go-geom geometry in EPSG:4326.
// Unsupported shape types map to nil.
func toGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon((*shp.PolyLine)(s))
	default:
		return nil
	}
}

// polyLineToMultiLineString converts a shapefile PolyLine to a
// geom.MultiLineString, one linestring per part.
func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, int32(len(pl.Points)), i)
		if end-start < 2 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each ring becomes its own single-ring polygon; ring grouping by winding
// order is not needed for the point-in-polygon tests this pipeline runs.
func polygonToMultiPolygon(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partRange(pl.Parts, int32(len(pl.Points)), i)
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}
		poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func partRange(parts []int32, total, i int32) (start, end int32) {
	start = parts[i]
	end = total
	if int(i+1) < len(parts) {
		end = parts[i+1]
	}
	return start, end
}

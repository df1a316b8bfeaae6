package model

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// GeometryKind tags the geometry variants the pipeline accepts. Inputs are
// checked against the expected kind at the stage boundary instead of being
// resolved ad hoc downstream.
type GeometryKind string

const (
	KindPoint   GeometryKind = "point"
	KindLine    GeometryKind = "line"
	KindPolygon GeometryKind = "polygon"
)

// KindOf classifies a go-geom geometry into one of the pipeline's tagged
// variants. Multi-geometries classify as their element kind.
func KindOf(g geom.T) (GeometryKind, error) {
	switch g.(type) {
	case *geom.Point, *geom.MultiPoint:
		return KindPoint, nil
	case *geom.LineString, *geom.MultiLineString:
		return KindLine, nil
	case *geom.Polygon, *geom.MultiPolygon:
		return KindPolygon, nil
	default:
		return "", eris.Errorf("model: unsupported geometry type %T", g)
	}
}

// CheckKind verifies that a geometry matches the kind a stage expects.
func CheckKind(g geom.T, want GeometryKind) error {
	got, err := KindOf(g)
	if err != nil {
		return err
	}
	if got != want {
		return eris.Errorf("model: expected %s geometry, got %s", want, got)
	}
	return nil
}

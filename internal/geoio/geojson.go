// Package geoio reads and writes the file formats the pipeline stages
// exchange: GeoJSON feature collections between stages, CSV for station and
// population inputs, ESRI ASCII grids for raster population, and shapefiles
// via the shapefile package.
package geoio

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// WriteFeatureCollection writes a GeoJSON feature collection to path,
// creating parent directories as needed.
func WriteFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "geoio: create dir for %s", path)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "geoio: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "geoio: write %s", path)
	}
	return nil
}

// ReadFeatureCollection reads a GeoJSON feature collection from path.
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geoio: parse %s", path)
	}
	return &fc, nil
}

// NewFeature builds a GeoJSON feature from a geometry and properties.
func NewFeature(g geom.T, props map[string]any) *geojson.Feature {
	return &geojson.Feature{Geometry: g, Properties: props}
}

// PropString reads a string property, tolerating absent keys.
func PropString(f *geojson.Feature, key string) string {
	if v, ok := f.Properties[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PropFloat reads a numeric property. JSON numbers decode as float64; int
// values written by earlier stages are accepted too.
func PropFloat(f *geojson.Feature, key string) float64 {
	switch v := f.Properties[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		fv, _ := v.Float64()
		return fv
	}
	return 0
}

// PropInt reads an integer property.
func PropInt(f *geojson.Feature, key string) int {
	return int(PropFloat(f, key))
}

// PropBool reads a boolean property.
func PropBool(f *geojson.Feature, key string) bool {
	if v, ok := f.Properties[key].(bool); ok {
		return v
	}
	return false
}

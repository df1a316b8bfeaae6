// Package admin loads administrative boundary layers used for frame
// eligibility and for attributing sampled clusters to named units.
package admin

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/shapefile"
)

// Unit is one administrative area: a polygonal geometry with its code and
// display name.
type Unit struct {
	Code string
	Name string
	Geom geom.T
}

// Load reads an admin boundary layer from a shapefile or GeoJSON file.
// Records without polygonal geometry are skipped with a warning.
func Load(path string) ([]Unit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path)
	case ".geojson", ".json":
		return loadGeoJSON(path)
	default:
		return nil, eris.Errorf("admin: unsupported boundary format %s", filepath.Ext(path))
	}
}

func loadShapefile(path string) ([]Unit, error) {
	features, _, err := shapefile.Read(path)
	if err != nil {
		return nil, err
	}
	var units []Unit
	for _, f := range features {
		if err := model.CheckKind(f.Geom, model.KindPolygon); err != nil {
			zap.L().Warn("admin: skipping non-polygon boundary record", zap.Error(err))
			continue
		}
		units = append(units, Unit{
			Code: firstAttr(f.Attrs, "admin_code", "code", "geoid", "gid"),
			Name: firstAttr(f.Attrs, "admin_name", "name", "namelsad"),
			Geom: f.Geom,
		})
	}
	if len(units) == 0 {
		return nil, eris.Errorf("admin: no polygonal units in %s", path)
	}
	return units, nil
}

func loadGeoJSON(path string) ([]Unit, error) {
	fc, err := geoio.ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	var units []Unit
	for _, f := range fc.Features {
		if err := model.CheckKind(f.Geometry, model.KindPolygon); err != nil {
			zap.L().Warn("admin: skipping non-polygon boundary feature", zap.Error(err))
			continue
		}
		code := geoio.PropString(f, "admin_code")
		if code == "" {
			code = geoio.PropString(f, "code")
		}
		name := geoio.PropString(f, "admin_name")
		if name == "" {
			name = geoio.PropString(f, "name")
		}
		units = append(units, Unit{Code: code, Name: name, Geom: f.Geometry})
	}
	if len(units) == 0 {
		return nil, eris.Errorf("admin: no polygonal units in %s", path)
	}
	return units, nil
}

func firstAttr(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

package population

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/model"
)

// cellFromFeature rebuilds a PopulatedCell's grid fields from a GeoJSON
// feature written by this stage or a later one.
func cellFromFeature(f *geojson.Feature) (*model.PopulatedCell, error) {
	poly, ok := f.Geometry.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("population: expected polygon feature, got %T", f.Geometry)
	}
	return &model.PopulatedCell{
		GridCell: model.GridCell{
			ID:          geoio.PropInt(f, "cell_id"),
			Row:         geoio.PropInt(f, "row"),
			Col:         geoio.PropInt(f, "col"),
			CentroidLon: geoio.PropFloat(f, "centroid_lon"),
			CentroidLat: geoio.PropFloat(f, "centroid_lat"),
			CoverFrac:   geoio.PropFloat(f, "cover_frac"),
			Polygon:     poly,
		},
	}, nil
}

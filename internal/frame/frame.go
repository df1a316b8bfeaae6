// Package frame implements the sampling frame builder: eligibility rules
// over populated cells and normalized probability-proportional-to-population
// weights.
package frame

import (
	"context"
	"math"
	"path/filepath"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/riklinssen/lm-sampling/internal/admin"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/population"
)

// FrameFile is the stage's output name under the processed data directory.
const FrameFile = "sampling_frame.geojson"

// WeightTolerance bounds the acceptable drift of the eligible weight sum
// from 1.
const WeightTolerance = 1e-9

// Build marks frame membership and computes normalized weights. A cell is
// eligible when its population is positive and, if admin units are given,
// its centroid falls inside one of them. Every input cell appears in the
// output; ineligible cells carry weight 0.
func Build(cells []model.PopulatedCell, units []admin.Unit, requireAdmin bool) ([]model.FrameEntry, error) {
	entries := make([]model.FrameEntry, len(cells))
	populations := make([]float64, 0, len(cells))
	for i, c := range cells {
		eligible := c.Population > 0
		if eligible && requireAdmin {
			eligible = insideAny(units, c.CentroidLon, c.CentroidLat)
		}
		entries[i] = model.FrameEntry{PopulatedCell: c, Eligible: eligible}
		if eligible {
			populations = append(populations, c.Population)
		}
	}
	if len(populations) == 0 {
		return nil, eris.New("frame: no eligible cells")
	}

	total := floats.Sum(populations)
	for i := range entries {
		if entries[i].Eligible {
			entries[i].Weight = entries[i].Population / total
		}
	}

	if err := CheckWeights(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CheckWeights verifies the frame invariant: non-negative weights summing
// to 1 over eligible entries.
func CheckWeights(entries []model.FrameEntry) error {
	sum := 0.0
	for _, e := range entries {
		if e.Weight < 0 {
			return eris.Errorf("frame: cell %d has negative weight", e.ID)
		}
		if !e.Eligible && e.Weight != 0 {
			return eris.Errorf("frame: ineligible cell %d has nonzero weight", e.ID)
		}
		sum += e.Weight
	}
	if math.Abs(sum-1) > WeightTolerance {
		return eris.Errorf("frame: eligible weights sum to %v, expected 1", sum)
	}
	return nil
}

func insideAny(units []admin.Unit, lon, lat float64) bool {
	for _, u := range units {
		if geometry.PointInGeom(u.Geom, lon, lat) {
			return true
		}
	}
	return false
}

// Run executes the stage: load populated cells (and the admin layer when
// eligibility requires it), build the frame, write the layer.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	cells, err := population.LoadCells(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}

	var units []admin.Unit
	if cfg.Frame.RequireAdmin {
		if cfg.Inputs.Admin == "" {
			return eris.New("frame: require_admin set but no admin layer configured")
		}
		units, err = admin.Load(cfg.Inputs.Admin)
		if err != nil {
			return err
		}
	}

	entries, err := Build(cells, units, cfg.Frame.RequireAdmin)
	if err != nil {
		return err
	}

	eligible := 0
	fc := &geojson.FeatureCollection{}
	for _, e := range entries {
		if e.Eligible {
			eligible++
		}
		fc.Features = append(fc.Features, geoio.NewFeature(e.Polygon, map[string]any{
			"cell_id":          e.ID,
			"row":              e.Row,
			"col":              e.Col,
			"centroid_lon":     e.CentroidLon,
			"centroid_lat":     e.CentroidLat,
			"cover_frac":       e.CoverFrac,
			"population_count": e.Population,
			"eligible":         e.Eligible,
			"weight":           e.Weight,
		}))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, FrameFile), fc); err != nil {
		return err
	}

	zap.L().Info("frame stage complete",
		zap.Int("cells", len(entries)),
		zap.Int("eligible", eligible),
	)
	return nil
}

// LoadFrame reads the stage output back for the sampler.
func LoadFrame(processedDir string) ([]model.FrameEntry, error) {
	fc, err := geoio.ReadFeatureCollection(filepath.Join(processedDir, FrameFile))
	if err != nil {
		return nil, err
	}
	var entries []model.FrameEntry
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(*geom.Polygon)
		if !ok {
			zap.L().Warn("frame: skipping non-polygon frame feature")
			continue
		}
		entries = append(entries, model.FrameEntry{
			PopulatedCell: model.PopulatedCell{
				GridCell: model.GridCell{
					ID:          geoio.PropInt(f, "cell_id"),
					Row:         geoio.PropInt(f, "row"),
					Col:         geoio.PropInt(f, "col"),
					CentroidLon: geoio.PropFloat(f, "centroid_lon"),
					CentroidLat: geoio.PropFloat(f, "centroid_lat"),
					CoverFrac:   geoio.PropFloat(f, "cover_frac"),
					Polygon:     poly,
				},
				Population: geoio.PropFloat(f, "population_count"),
			},
			Eligible: geoio.PropBool(f, "eligible"),
			Weight:   geoio.PropFloat(f, "weight"),
		})
	}
	if len(entries) == 0 {
		return nil, eris.New("frame: no entries in stage output")
	}
	if err := CheckWeights(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Package population implements the population joiner: a zonal sum of a
// population point layer (CSV points or ESRI ASCII raster cells) onto the
// sampling grid.
package population

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/grid"
	"github.com/riklinssen/lm-sampling/internal/model"
)

// CellsFile is the stage's output name under the processed data directory.
const CellsFile = "populated_cells.geojson"

// pointTolerance sizes degenerate query rects for point lookups.
const pointTolerance = 1e-9

type indexedCell struct {
	cell *model.PopulatedCell
	rect *rtreego.Rect
}

func (ic *indexedCell) Bounds() *rtreego.Rect { return ic.rect }

// LoadPoints reads the population layer, choosing the parser from the file
// extension: .asc rasters reduce to cell-center points, anything else is
// read as a CSV point layer.
func LoadPoints(path string) ([]geoio.PopulationPoint, error) {
	if strings.ToLower(filepath.Ext(path)) == ".asc" {
		raster, err := geoio.ReadASCIIGrid(path)
		if err != nil {
			return nil, err
		}
		points := raster.Points()
		zap.L().Info("loaded population raster",
			zap.String("path", path),
			zap.Int("cells", len(points)),
		)
		return points, nil
	}
	points, skipped, err := geoio.ReadPopulationCSV(path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded population points",
		zap.String("path", path),
		zap.Int("points", len(points)),
		zap.Int("skipped", skipped),
	)
	return points, nil
}

// Join sums population points into the grid cell containing each point.
// Cells that receive no points keep a population of exactly 0. Points that
// fall outside every cell are counted and reported, not an error.
func Join(cells []model.GridCell, points []geoio.PopulationPoint) ([]model.PopulatedCell, int) {
	populated := make([]model.PopulatedCell, len(cells))
	tree := rtreego.NewTree(2, 25, 50)
	for i, c := range cells {
		populated[i] = model.PopulatedCell{GridCell: c}
		b := c.Polygon.Bounds()
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{b.Min(0), b.Min(1)},
			rtreego.Point{b.Max(0), b.Max(1)},
		)
		if err != nil {
			zap.L().Warn("population: skipping cell with degenerate bounds", zap.Int("cell_id", c.ID))
			continue
		}
		tree.Insert(&indexedCell{cell: &populated[i], rect: rect})
	}

	unmatched := 0
	for _, p := range points {
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{p.Lon - pointTolerance, p.Lat - pointTolerance},
			rtreego.Point{p.Lon + pointTolerance, p.Lat + pointTolerance},
		)
		if err != nil {
			unmatched++
			continue
		}
		matched := false
		for _, hit := range tree.SearchIntersect(rect) {
			ic := hit.(*indexedCell)
			if geometry.PointInPolygon(ic.cell.Polygon, p.Lon, p.Lat) {
				ic.cell.Population += p.Count
				matched = true
				break
			}
		}
		if !matched {
			unmatched++
		}
	}
	return populated, unmatched
}

// Run executes the stage: load cells and population, join, write the layer.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	cells, err := grid.LoadCells(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}
	points, err := LoadPoints(cfg.Inputs.Population)
	if err != nil {
		return err
	}

	populated, unmatched := Join(cells, points)
	if unmatched > 0 {
		zap.L().Warn("population: points outside the grid were ignored", zap.Int("points", unmatched))
	}

	fc := &geojson.FeatureCollection{}
	total := 0.0
	for _, c := range populated {
		total += c.Population
		fc.Features = append(fc.Features, geoio.NewFeature(c.Polygon, map[string]any{
			"cell_id":          c.ID,
			"row":              c.Row,
			"col":              c.Col,
			"centroid_lon":     c.CentroidLon,
			"centroid_lat":     c.CentroidLat,
			"cover_frac":       c.CoverFrac,
			"population_count": c.Population,
		}))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, CellsFile), fc); err != nil {
		return err
	}

	zap.L().Info("population stage complete",
		zap.Int("cells", len(populated)),
		zap.Float64("total_population", total),
	)
	return nil
}

// LoadCells reads the stage output back for downstream stages.
func LoadCells(processedDir string) ([]model.PopulatedCell, error) {
	fc, err := geoio.ReadFeatureCollection(filepath.Join(processedDir, CellsFile))
	if err != nil {
		return nil, err
	}
	var cells []model.PopulatedCell
	for _, f := range fc.Features {
		c, err := cellFromFeature(f)
		if err != nil {
			zap.L().Warn("population: skipping malformed cell feature", zap.Error(err))
			continue
		}
		c.Population = geoio.PropFloat(f, "population_count")
		if c.Population < 0 {
			return nil, eris.Errorf("population: cell %d has negative population", c.ID)
		}
		cells = append(cells, *c)
	}
	if len(cells) == 0 {
		return nil, eris.New("population: no populated cells in stage output")
	}
	return cells, nil
}

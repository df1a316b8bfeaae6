// Package grid implements the sampling grid generator: a regular square
// tiling of the coverage buffer union's bounding box, filtered to cells
// that actually intersect the buffers.
package grid

import (
	"context"
	"math"
	"path/filepath"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/buffer"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
)

// CellsFile is the stage's output name under the processed data directory.
const CellsFile = "grid_cells.geojson"

// Generate tiles the bounding box of the buffer union into square cells of
// cfg.CellKM and keeps those whose covered fraction meets cfg.MinCover.
// Cell ids are row*nCols+col with row 0 at the northern edge, so ids
// depend only on position and survive reruns with the same inputs.
func Generate(buffers []model.CoverageBuffer, cfg config.GridConfig) ([]model.GridCell, error) {
	if cfg.CellKM <= 0 {
		return nil, eris.New("grid: cell_km must be positive")
	}
	if len(buffers) == 0 {
		return nil, eris.New("grid: no coverage buffers")
	}
	samples := cfg.CoverSamples
	if samples <= 0 {
		samples = 4
	}

	polys := make([]*geom.Polygon, 0, len(buffers))
	for _, b := range buffers {
		if b.Polygon != nil {
			polys = append(polys, b.Polygon)
		}
	}
	bounds := geometry.UnionBounds(polys)
	minLon, minLat := bounds.Min(0), bounds.Min(1)
	maxLon, maxLat := bounds.Max(0), bounds.Max(1)

	// Tile in a local km frame centered on the bounding box. The frame is
	// an axis-aligned scaling, so km-aligned cells stay rectangles in
	// lon/lat and tile without gaps or overlap.
	frame := geometry.NewLocalFrame((minLon+maxLon)/2, (minLat+maxLat)/2)
	x0, y0 := frame.ToKM(minLon, minLat)
	x1, y1 := frame.ToKM(maxLon, maxLat)

	nCols := int(math.Ceil((x1 - x0) / cfg.CellKM))
	nRows := int(math.Ceil((y1 - y0) / cfg.CellKM))
	if nCols <= 0 || nRows <= 0 {
		return nil, eris.New("grid: degenerate buffer extent")
	}

	var cells []model.GridCell
	for row := 0; row < nRows; row++ {
		// Row 0 is the northernmost band.
		top := y1 - float64(row)*cfg.CellKM
		bottom := top - cfg.CellKM
		for col := 0; col < nCols; col++ {
			left := x0 + float64(col)*cfg.CellKM
			right := left + cfg.CellKM

			cMinLon, cMinLat := frame.ToDeg(left, bottom)
			cMaxLon, cMaxLat := frame.ToDeg(right, top)

			frac := geometry.CoverFraction(cMinLon, cMinLat, cMaxLon, cMaxLat, polys, samples)
			if frac < cfg.MinCover || frac == 0 {
				continue
			}

			poly := geom.NewPolygonFlat(geom.XY, []float64{
				cMinLon, cMinLat,
				cMaxLon, cMinLat,
				cMaxLon, cMaxLat,
				cMinLon, cMaxLat,
				cMinLon, cMinLat,
			}, []int{10}).SetSRID(4326)

			cells = append(cells, model.GridCell{
				ID:          row*nCols + col,
				Row:         row,
				Col:         col,
				CentroidLon: (cMinLon + cMaxLon) / 2,
				CentroidLat: (cMinLat + cMaxLat) / 2,
				CoverFrac:   frac,
				Polygon:     poly,
			})
		}
	}
	if len(cells) == 0 {
		return nil, eris.New("grid: no cells intersect the coverage buffers")
	}
	return cells, nil
}

// Run executes the stage: load buffers, generate cells, write the layer.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	buffers, err := buffer.LoadBuffers(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}

	cells, err := Generate(buffers, cfg.Grid)
	if err != nil {
		return err
	}

	fc := &geojson.FeatureCollection{}
	for _, c := range cells {
		fc.Features = append(fc.Features, geoio.NewFeature(c.Polygon, map[string]any{
			"cell_id":      c.ID,
			"row":          c.Row,
			"col":          c.Col,
			"centroid_lon": c.CentroidLon,
			"centroid_lat": c.CentroidLat,
			"cover_frac":   c.CoverFrac,
		}))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, CellsFile), fc); err != nil {
		return err
	}

	zap.L().Info("grid stage complete",
		zap.Int("cells", len(cells)),
		zap.Float64("cell_km", cfg.Grid.CellKM),
	)
	return nil
}

// LoadCells reads the stage output back for downstream stages.
func LoadCells(processedDir string) ([]model.GridCell, error) {
	return readCells(filepath.Join(processedDir, CellsFile))
}

func readCells(path string) ([]model.GridCell, error) {
	fc, err := geoio.ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	var cells []model.GridCell
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(*geom.Polygon)
		if !ok {
			zap.L().Warn("grid: skipping non-polygon cell feature")
			continue
		}
		cells = append(cells, model.GridCell{
			ID:          geoio.PropInt(f, "cell_id"),
			Row:         geoio.PropInt(f, "row"),
			Col:         geoio.PropInt(f, "col"),
			CentroidLon: geoio.PropFloat(f, "centroid_lon"),
			CentroidLat: geoio.PropFloat(f, "centroid_lat"),
			CoverFrac:   geoio.PropFloat(f, "cover_frac"),
			Polygon:     poly,
		})
	}
	if len(cells) == 0 {
		return nil, eris.Errorf("grid: no cells in %s", path)
	}
	return cells, nil
}

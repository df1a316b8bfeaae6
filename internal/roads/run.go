package roads

import (
	"context"
	"path/filepath"
	"time"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/cluster"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/sampling"
	"github.com/riklinssen/lm-sampling/internal/store"
)

// PointsFile is the stage's output name under the processed data directory.
const PointsFile = "road_points.geojson"

// Run executes the stage: load merged clusters and the road network, snap
// each centroid, write the road point layer, and persist the final
// sampling metadata table to the store.
func Run(ctx context.Context, cfg *config.Config) error {
	clusters, err := sampling.LoadClusters(filepath.Join(cfg.Data.ProcessedDir, cluster.MergedFile))
	if err != nil {
		return err
	}

	net, err := LoadNetwork(cfg.Inputs.Roads)
	if err != nil {
		return err
	}
	zap.L().Info("loaded road network", zap.Int("segments", net.SegmentCount()))

	points, err := Snap(net, clusters, cfg.Roads.MaxKM)
	if err != nil {
		return err
	}

	fc := &geojson.FeatureCollection{}
	for _, p := range points {
		fc.Features = append(fc.Features, geoio.NewFeature(
			geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(4326),
			map[string]any{
				"cell_id":     p.CellID,
				"distance_km": p.DistanceKM,
				"road_id":     p.RoadID,
				"unreachable": p.Unreachable,
			},
		))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, PointsFile), fc); err != nil {
		return err
	}

	if err := persistRecords(ctx, cfg, clusters, points); err != nil {
		return err
	}

	zap.L().Info("roads stage complete", zap.Int("clusters", len(points)))
	return nil
}

// persistRecords assembles the per-cluster sampling metadata table and
// saves it under the latest run (creating one for standalone stage runs).
func persistRecords(ctx context.Context, cfg *config.Config, clusters []model.SampledCluster, points []model.RoadPoint) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.LatestRun(ctx)
	if err != nil {
		run, err = st.CreateRun(ctx, cfg.Sample.Seed)
		if err != nil {
			return err
		}
	}

	byCell := make(map[int]model.RoadPoint, len(points))
	for _, p := range points {
		byCell[p.CellID] = p
	}

	now := time.Now().UTC()
	records := make([]model.ClusterRecord, 0, len(clusters))
	for _, c := range clusters {
		rp := byCell[c.ID]
		records = append(records, model.ClusterRecord{
			RunID:         run.ID,
			CellID:        c.ID,
			Type:          c.Type,
			StationID:     c.StationID,
			StationName:   c.StationName,
			AdminCode:     c.AdminCode,
			AdminName:     c.AdminName,
			Population:    c.Population,
			Weight:        c.Weight,
			InclusionProb: c.InclusionProb,
			RoadKM:        rp.DistanceKM,
			Unreachable:   rp.Unreachable,
			CreatedAt:     now,
		})
	}
	return st.ReplaceClusterRecords(ctx, run.ID, records)
}

// LoadPoints reads the stage output back for rendering and the viewer.
func LoadPoints(processedDir string) ([]model.RoadPoint, error) {
	fc, err := geoio.ReadFeatureCollection(filepath.Join(processedDir, PointsFile))
	if err != nil {
		return nil, err
	}
	var points []model.RoadPoint
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			continue
		}
		points = append(points, model.RoadPoint{
			CellID:      geoio.PropInt(f, "cell_id"),
			Lon:         pt.X(),
			Lat:         pt.Y(),
			DistanceKM:  geoio.PropFloat(f, "distance_km"),
			RoadID:      geoio.PropString(f, "road_id"),
			Unreachable: geoio.PropBool(f, "unreachable"),
		})
	}
	return points, nil
}

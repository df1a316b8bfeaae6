package sampling

import (
	"context"
	"path/filepath"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/frame"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/model"
)

// ClustersFile is the stage's output name under the processed data
// directory.
const ClustersFile = "sampled_clusters.geojson"

// Run executes the stage: load the frame, draw both replicates, write the
// sampled cluster layer.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	entries, err := frame.LoadFrame(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}

	p := Params{
		Size:            cfg.Sample.Size,
		ReplacementSize: cfg.Sample.ReplacementSize,
		Seed:            cfg.Sample.Seed,
		Method:          cfg.Sample.Method,
	}
	clusters, err := Draw(entries, p)
	if err != nil {
		return err
	}

	main, replacement := 0, 0
	fc := &geojson.FeatureCollection{}
	for _, c := range clusters {
		if c.Type == model.ClusterMain {
			main++
		} else {
			replacement++
		}
		fc.Features = append(fc.Features, geoio.NewFeature(c.Polygon, clusterProps(c)))
	}
	if replacement < cfg.Sample.ReplacementSize {
		zap.L().Warn("sampling: replacement replicate clamped to remaining eligible cells",
			zap.Int("requested", cfg.Sample.ReplacementSize),
			zap.Int("drawn", replacement),
		)
	}

	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, ClustersFile), fc); err != nil {
		return err
	}

	zap.L().Info("sampling stage complete",
		zap.Int("main", main),
		zap.Int("replacement", replacement),
		zap.Int64("seed", p.Seed),
		zap.String("method", cfg.Sample.Method),
	)
	return nil
}

func clusterProps(c model.SampledCluster) map[string]any {
	return map[string]any{
		"cell_id":          c.ID,
		"row":              c.Row,
		"col":              c.Col,
		"centroid_lon":     c.CentroidLon,
		"centroid_lat":     c.CentroidLat,
		"cover_frac":       c.CoverFrac,
		"population_count": c.Population,
		"eligible":         c.Eligible,
		"weight":           c.Weight,
		"cluster_type":     string(c.Type),
		"draw_index":       c.DrawIndex,
		"inclusion_prob":   c.InclusionProb,
		"station_id":       c.StationID,
		"station_name":     c.StationName,
		"admin_code":       c.AdminCode,
		"admin_name":       c.AdminName,
		"admin_matched":    c.AdminMatched,
	}
}

// LoadClusters reads a sampled (or merged) cluster layer back.
func LoadClusters(path string) ([]model.SampledCluster, error) {
	fc, err := geoio.ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	var clusters []model.SampledCluster
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(*geom.Polygon)
		if !ok {
			zap.L().Warn("sampling: skipping non-polygon cluster feature")
			continue
		}
		clusters = append(clusters, model.SampledCluster{
			FrameEntry: model.FrameEntry{
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
			},
			Type:          model.ClusterType(geoio.PropString(f, "cluster_type")),
			DrawIndex:     geoio.PropInt(f, "draw_index"),
			InclusionProb: geoio.PropFloat(f, "inclusion_prob"),
			StationID:     geoio.PropString(f, "station_id"),
			StationName:   geoio.PropString(f, "station_name"),
			AdminCode:     geoio.PropString(f, "admin_code"),
			AdminName:     geoio.PropString(f, "admin_name"),
			AdminMatched:  geoio.PropBool(f, "admin_matched"),
		})
	}
	return clusters, nil
}

// WriteClusters writes a cluster layer; the merger reuses it for its
// output.
func WriteClusters(path string, clusters []model.SampledCluster) error {
	fc := &geojson.FeatureCollection{}
	for _, c := range clusters {
		fc.Features = append(fc.Features, geoio.NewFeature(c.Polygon, clusterProps(c)))
	}
	return geoio.WriteFeatureCollection(path, fc)
}

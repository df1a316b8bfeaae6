package render

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riklinssen/lm-sampling/internal/buffer"
	"github.com/riklinssen/lm-sampling/internal/cluster"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/roads"
	"github.com/riklinssen/lm-sampling/internal/sampling"
)

// Run executes the stage: load all layers and write the overview map, one
// map per station, and the interactive chart page.
func Run(ctx context.Context, cfg *config.Config) error {
	layers, err := loadLayers(cfg)
	if err != nil {
		return err
	}

	style, err := LoadStyle(cfg.Render.StyleFile)
	if err != nil {
		return err
	}

	outDir := cfg.Render.OutDir

	if err := RenderOverview(layers, style, filepath.Join(outDir, "overview.png")); err != nil {
		return err
	}

	// Station maps are independent of each other.
	g, _ := errgroup.WithContext(ctx)
	for _, s := range layers.Stations {
		g.Go(func() error {
			out := filepath.Join(outDir, "station_"+slug(s.Name)+".png")
			return RenderStation(layers, style, s, out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := RenderCharts(layers, filepath.Join(outDir, "charts.html")); err != nil {
		return err
	}

	zap.L().Info("render stage complete",
		zap.String("out_dir", outDir),
		zap.Int("stations", len(layers.Stations)),
		zap.Int("clusters", len(layers.Clusters)),
	)
	return nil
}

func loadLayers(cfg *config.Config) (Layers, error) {
	dir := cfg.Data.ProcessedDir

	stations, err := buffer.LoadStationPoints(dir)
	if err != nil {
		return Layers{}, err
	}
	buffers, err := buffer.LoadBuffers(dir)
	if err != nil {
		return Layers{}, err
	}
	clusters, err := sampling.LoadClusters(filepath.Join(dir, cluster.MergedFile))
	if err != nil {
		// Fall back to the unmerged sample so render works mid-pipeline.
		clusters, err = sampling.LoadClusters(filepath.Join(dir, sampling.ClustersFile))
		if err != nil {
			return Layers{}, err
		}
	}
	points, err := roads.LoadPoints(dir)
	if err != nil {
		zap.L().Warn("render: road points unavailable, rendering without them", zap.Error(err))
		points = nil
	}

	return Layers{
		Stations: stations,
		Buffers:  buffers,
		Clusters: clusters,
		Roads:    points,
	}, nil
}

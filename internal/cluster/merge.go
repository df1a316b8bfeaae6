// Package cluster implements the cluster merger: spatial attribution of
// administrative units and owning stations onto the sampled clusters.
package cluster

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/admin"
	"github.com/riklinssen/lm-sampling/internal/buffer"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/sampling"
)

// MergedFile is the stage's output name under the processed data directory.
const MergedFile = "merged_clusters.geojson"

// overlapSamples sizes the point grid used to estimate overlap areas for
// tie-breaking.
const overlapSamples = 8

// Merge attaches admin unit names and owning-station attribution to each
// sampled cluster. One-to-many overlaps resolve to the candidate with the
// largest area of overlap; clusters with no admin match are flagged and
// kept, never dropped.
func Merge(clusters []model.SampledCluster, units []admin.Unit, stations []model.Station, buffers []model.CoverageBuffer) []model.SampledCluster {
	out := make([]model.SampledCluster, len(clusters))
	unmatched := 0
	for i, c := range clusters {
		merged := c

		if len(units) > 0 {
			if u, ok := bestAdmin(c, units); ok {
				merged.AdminCode = u.Code
				merged.AdminName = u.Name
				merged.AdminMatched = true
			} else {
				merged.AdminMatched = false
				unmatched++
			}
		}

		if id, name, ok := bestStation(c, stations, buffers); ok {
			merged.StationID = id
			merged.StationName = name
		} else {
			zap.L().Warn("cluster: no station buffer overlaps cluster", zap.Int("cell_id", c.ID))
		}

		out[i] = merged
	}
	if unmatched > 0 {
		zap.L().Warn("cluster: clusters without admin match were flagged",
			zap.Int("clusters", unmatched),
		)
	}
	return out
}

// bestAdmin picks the admin unit with the largest area of overlap with the
// cluster cell. The centroid test runs first so the common single-match
// case skips the overlap estimate.
func bestAdmin(c model.SampledCluster, units []admin.Unit) (admin.Unit, bool) {
	var candidates []admin.Unit
	for _, u := range units {
		if geometry.OverlapFraction(c.Polygon, u.Geom, overlapSamples) > 0 {
			candidates = append(candidates, u)
		}
	}
	switch len(candidates) {
	case 0:
		return admin.Unit{}, false
	case 1:
		return candidates[0], true
	}
	best := candidates[0]
	bestFrac := geometry.OverlapFraction(c.Polygon, best.Geom, overlapSamples)
	for _, u := range candidates[1:] {
		if frac := geometry.OverlapFraction(c.Polygon, u.Geom, overlapSamples); frac > bestFrac {
			best, bestFrac = u, frac
		}
	}
	return best, true
}

// bestStation attributes the cluster to the station whose coverage buffer
// overlaps it the most; ties break toward the nearer station.
func bestStation(c model.SampledCluster, stations []model.Station, buffers []model.CoverageBuffer) (id, name string, ok bool) {
	type score struct {
		frac float64
		dist float64
	}
	scores := make(map[string]score)
	names := make(map[string]string)
	stationPos := make(map[string]model.Station, len(stations))
	for _, s := range stations {
		stationPos[s.ID] = s
	}

	for _, b := range buffers {
		frac := geometry.OverlapFraction(c.Polygon, b.Polygon, overlapSamples)
		if frac == 0 {
			continue
		}
		cur, seen := scores[b.StationID]
		if !seen || frac > cur.frac {
			dist := 0.0
			if s, found := stationPos[b.StationID]; found {
				dist = geometry.HaversineKM(c.CentroidLon, c.CentroidLat, s.Lon, s.Lat)
			}
			scores[b.StationID] = score{frac: frac, dist: dist}
			names[b.StationID] = b.StationName
		}
	}
	if len(scores) == 0 {
		return "", "", false
	}

	for sid, sc := range scores {
		if id == "" ||
			sc.frac > scores[id].frac ||
			(sc.frac == scores[id].frac && sc.dist < scores[id].dist) ||
			(sc.frac == scores[id].frac && sc.dist == scores[id].dist && sid < id) {
			id = sid
		}
	}
	return id, names[id], true
}

// Run executes the stage: load sampled clusters and auxiliary layers,
// merge, write the merged layer.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	clusters, err := sampling.LoadClusters(filepath.Join(cfg.Data.ProcessedDir, sampling.ClustersFile))
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		return eris.New("cluster: no sampled clusters to merge")
	}

	var units []admin.Unit
	if cfg.Inputs.Admin != "" {
		units, err = admin.Load(cfg.Inputs.Admin)
		if err != nil {
			return err
		}
	}

	stations, err := buffer.LoadStationPoints(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}
	buffers, err := buffer.LoadBuffers(cfg.Data.ProcessedDir)
	if err != nil {
		return err
	}

	merged := Merge(clusters, units, stations, buffers)

	if err := sampling.WriteClusters(filepath.Join(cfg.Data.ProcessedDir, MergedFile), merged); err != nil {
		return err
	}

	zap.L().Info("cluster stage complete",
		zap.Int("clusters", len(merged)),
		zap.Int("admin_units", len(units)),
	)
	return nil
}

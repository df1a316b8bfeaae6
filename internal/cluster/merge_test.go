package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/riklinssen/lm-sampling/internal/admin"
	"github.com/riklinssen/lm-sampling/internal/model"
)

func rect(minLon, minLat, maxLon, maxLat float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minLon, minLat, maxLon, minLat, maxLon, maxLat, minLon, maxLat, minLon, minLat,
	}, []int{10})
}

func clusterAt(id int, minLon, minLat, maxLon, maxLat float64) model.SampledCluster {
	return model.SampledCluster{
		FrameEntry: model.FrameEntry{
			PopulatedCell: model.PopulatedCell{
				GridCell: model.GridCell{
					ID:          id,
					CentroidLon: (minLon + maxLon) / 2,
					CentroidLat: (minLat + maxLat) / 2,
					Polygon:     rect(minLon, minLat, maxLon, maxLat),
				},
			},
		},
		Type: model.ClusterMain,
	}
}

func TestMergeAdminAttribution(t *testing.T) {
	units := []admin.Unit{
		{Code: "D01", Name: "West", Geom: rect(0, 0, 1, 10)},
		{Code: "D02", Name: "East", Geom: rect(1, 0, 10, 10)},
	}

	// Cell straddles the boundary with most of its area in D02.
	clusters := []model.SampledCluster{clusterAt(1, 0.8, 4, 2.0, 5)}

	merged := Merge(clusters, units, nil, nil)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].AdminMatched)
	assert.Equal(t, "D02", merged[0].AdminCode)
	assert.Equal(t, "East", merged[0].AdminName)
}

func TestMergeAdminUnmatchedKept(t *testing.T) {
	units := []admin.Unit{
		{Code: "D01", Name: "West", Geom: rect(0, 0, 1, 1)},
	}
	clusters := []model.SampledCluster{clusterAt(7, 5, 5, 6, 6)}

	merged := Merge(clusters, units, nil, nil)
	require.Len(t, merged, 1, "unmatched cluster is kept")
	assert.False(t, merged[0].AdminMatched)
	assert.Empty(t, merged[0].AdminCode)
}

func TestMergeStationAttribution(t *testing.T) {
	stations := []model.Station{
		{ID: "ST1", Name: "Near FM", Lon: 0.5, Lat: 0.5},
		{ID: "ST2", Name: "Far FM", Lon: 9, Lat: 9},
	}
	buffers := []model.CoverageBuffer{
		{StationID: "ST1", StationName: "Near FM", RadiusKM: 20, Polygon: rect(0, 0, 2, 2)},
		{StationID: "ST2", StationName: "Far FM", RadiusKM: 20, Polygon: rect(1.5, 1.5, 10, 10)},
	}

	// Fully inside ST1's buffer, only clipping the corner of ST2's.
	clusters := []model.SampledCluster{clusterAt(1, 1.0, 1.0, 1.8, 1.8)}

	merged := Merge(clusters, nil, stations, buffers)
	require.Len(t, merged, 1)
	assert.Equal(t, "ST1", merged[0].StationID)
	assert.Equal(t, "Near FM", merged[0].StationName)
}

func TestMergeStationTieBreaksToNearer(t *testing.T) {
	stations := []model.Station{
		{ID: "ST1", Name: "Near FM", Lon: 1.0, Lat: 1.1},
		{ID: "ST2", Name: "Far FM", Lon: 5, Lat: 5},
	}
	// Both buffers fully cover the cell, so overlap fractions tie.
	buffers := []model.CoverageBuffer{
		{StationID: "ST1", StationName: "Near FM", Polygon: rect(0, 0, 3, 3)},
		{StationID: "ST2", StationName: "Far FM", Polygon: rect(0, 0, 3, 3)},
	}
	clusters := []model.SampledCluster{clusterAt(1, 0.9, 0.9, 1.1, 1.1)}

	merged := Merge(clusters, nil, stations, buffers)
	require.Len(t, merged, 1)
	assert.Equal(t, "ST1", merged[0].StationID)
}

func TestMergeNoStationOverlap(t *testing.T) {
	buffers := []model.CoverageBuffer{
		{StationID: "ST1", Polygon: rect(0, 0, 1, 1)},
	}
	clusters := []model.SampledCluster{clusterAt(1, 5, 5, 6, 6)}

	merged := Merge(clusters, nil, nil, buffers)
	require.Len(t, merged, 1)
	assert.Empty(t, merged[0].StationID)
}

func TestMergeWithoutAdminLayer(t *testing.T) {
	clusters := []model.SampledCluster{clusterAt(1, 0, 0, 1, 1)}
	merged := Merge(clusters, nil, nil, nil)
	require.Len(t, merged, 1)
	assert.False(t, merged[0].AdminMatched)
	assert.Empty(t, merged[0].AdminCode)
}

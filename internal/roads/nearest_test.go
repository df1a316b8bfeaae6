package roads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
)

func testNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := buildNetwork([]roadLine{
		// Straight east-west road along lat 0.
		{id: "A1", coords: [][]float64{{32.0, 0.0}, {32.5, 0.0}, {33.0, 0.0}}},
		// North-south road along lon 33.5.
		{id: "B7", coords: [][]float64{{33.5, -0.5}, {33.5, 0.5}}},
	})
	require.NoError(t, err)
	return net
}

func TestNearest(t *testing.T) {
	net := testNetwork(t)
	require.Equal(t, 3, net.SegmentCount())

	// Point just north of the east-west road projects straight down.
	rp, err := net.Nearest(32.3, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "A1", rp.RoadID)
	assert.InDelta(t, 32.3, rp.Lon, 1e-6)
	assert.InDelta(t, 0.0, rp.Lat, 1e-6)
	assert.InDelta(t, geometry.HaversineKM(32.3, 0.1, 32.3, 0), rp.DistanceKM, 1e-6)

	// Point east of everything snaps to the north-south road.
	rp, err = net.Nearest(33.8, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "B7", rp.RoadID)
	assert.InDelta(t, 33.5, rp.Lon, 1e-6)
	assert.InDelta(t, 0.2, rp.Lat, 1e-6)
}

func TestNearestClampsToEndpoint(t *testing.T) {
	net := testNetwork(t)

	// Point beyond the western end of road A1 snaps to its endpoint.
	rp, err := net.Nearest(31.5, 0.0)
	require.NoError(t, err)
	assert.Equal(t, "A1", rp.RoadID)
	assert.InDelta(t, 32.0, rp.Lon, 1e-6)
	assert.InDelta(t, 0.0, rp.Lat, 1e-6)
}

func TestNearestDistanceNonNegative(t *testing.T) {
	net := testNetwork(t)

	// A point on the road itself has distance zero.
	rp, err := net.Nearest(32.5, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rp.DistanceKM, 1e-9)
	assert.GreaterOrEqual(t, rp.DistanceKM, 0.0)
}

func makeCluster(id int, lon, lat float64) model.SampledCluster {
	return model.SampledCluster{
		FrameEntry: model.FrameEntry{
			PopulatedCell: model.PopulatedCell{
				GridCell: model.GridCell{ID: id, CentroidLon: lon, CentroidLat: lat},
			},
		},
	}
}

func TestSnap(t *testing.T) {
	net := testNetwork(t)

	clusters := []model.SampledCluster{
		makeCluster(1, 32.3, 0.05),
		makeCluster(2, 33.5, 3.0), // hundreds of km from any road
	}

	points, err := Snap(net, clusters, 10)
	require.NoError(t, err)
	require.Len(t, points, 2, "unreachable clusters are kept")

	assert.Equal(t, 1, points[0].CellID)
	assert.False(t, points[0].Unreachable)

	assert.Equal(t, 2, points[1].CellID)
	assert.True(t, points[1].Unreachable, "beyond the cutoff")
	assert.Greater(t, points[1].DistanceKM, 10.0)
}

func TestSnapNoCutoff(t *testing.T) {
	net := testNetwork(t)

	points, err := Snap(net, []model.SampledCluster{makeCluster(1, 33.5, 3.0)}, 0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.False(t, points[0].Unreachable, "cutoff disabled")
}

func TestBuildNetworkEmpty(t *testing.T) {
	_, err := buildNetwork(nil)
	require.Error(t, err)

	_, err = buildNetwork([]roadLine{{id: "X", coords: [][]float64{{1, 1}}}})
	require.Error(t, err, "single-point line has no segments")
}

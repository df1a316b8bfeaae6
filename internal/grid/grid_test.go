package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
)

func testBuffers() []model.CoverageBuffer {
	return []model.CoverageBuffer{
		{StationID: "ST1", RadiusKM: 20, Polygon: geometry.Circle(32.5, 0.5, 20, 64)},
		{StationID: "ST2", RadiusKM: 20, Polygon: geometry.Circle(32.8, 0.6, 20, 64)},
	}
}

func TestGenerate(t *testing.T) {
	cells, err := Generate(testBuffers(), config.GridConfig{CellKM: 5, MinCover: 0.05, CoverSamples: 4})
	require.NoError(t, err)
	require.NotEmpty(t, cells)

	for _, c := range cells {
		assert.GreaterOrEqual(t, c.CoverFrac, 0.05)
		assert.LessOrEqual(t, c.CoverFrac, 1.0)
		require.NotNil(t, c.Polygon)
		assert.True(t, geometry.PointInPolygon(c.Polygon, c.CentroidLon, c.CentroidLat))
	}
}

func TestGenerateCellIDsAreStable(t *testing.T) {
	cfg := config.GridConfig{CellKM: 5, MinCover: 0.05, CoverSamples: 4}

	a, err := Generate(testBuffers(), cfg)
	require.NoError(t, err)
	b, err := Generate(testBuffers(), cfg)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Row, b[i].Row)
		assert.Equal(t, a[i].Col, b[i].Col)
	}
}

func TestGenerateNoOverlap(t *testing.T) {
	cells, err := Generate(testBuffers(), config.GridConfig{CellKM: 10, MinCover: 0, CoverSamples: 4})
	require.NoError(t, err)

	// Cells are axis-aligned rectangles; distinct cells share at most an
	// edge, so interiors never overlap and ids are unique.
	seen := make(map[int]bool)
	for _, c := range cells {
		assert.False(t, seen[c.ID], "duplicate cell id %d", c.ID)
		seen[c.ID] = true
	}
	for i := 0; i < len(cells); i++ {
		for j := i + 1; j < len(cells); j++ {
			a, b := cells[i], cells[j]
			if a.Row == b.Row {
				assert.NotEqual(t, a.Col, b.Col)
			}
			assert.False(t,
				geometry.PointInPolygon(b.Polygon, a.CentroidLon, a.CentroidLat),
				"cell %d centroid inside cell %d", a.ID, b.ID)
		}
	}
}

func TestGenerateMinCoverFilters(t *testing.T) {
	buffers := testBuffers()

	loose, err := Generate(buffers, config.GridConfig{CellKM: 5, MinCover: 0, CoverSamples: 4})
	require.NoError(t, err)
	tight, err := Generate(buffers, config.GridConfig{CellKM: 5, MinCover: 0.9, CoverSamples: 4})
	require.NoError(t, err)

	assert.Less(t, len(tight), len(loose))
	for _, c := range tight {
		assert.GreaterOrEqual(t, c.CoverFrac, 0.9)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(testBuffers(), config.GridConfig{CellKM: 0})
	assert.Error(t, err)

	_, err = Generate(nil, config.GridConfig{CellKM: 5})
	assert.Error(t, err)
}

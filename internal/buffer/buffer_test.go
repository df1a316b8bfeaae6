package buffer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
)

func TestLoadStationsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	require.NoError(t, os.WriteFile(path, []byte(`station_id,station_name,lon,lat,color
ST1,Voice FM,32.45,2.77,#1f77b4
ST2,Hills FM,30.27,-0.61,
`), 0o644))

	stations, err := LoadStations(path)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "#1f77b4", stations[0].Color, "explicit color kept")
	assert.Equal(t, defaultPalette[1], stations[1].Color, "missing color filled from palette")
}

func TestLoadStationsAllInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	require.NoError(t, os.WriteFile(path, []byte("station_id,station_name,lon,lat\nST1,Bad,999,999\n"), 0o644))

	_, err := LoadStations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid stations")
}

func TestBuildFixedRadii(t *testing.T) {
	stations := []model.Station{
		{ID: "ST1", Name: "Voice FM", Lon: 32.45, Lat: 2.77},
		{ID: "ST2", Name: "Hills FM", Lon: 30.27, Lat: -0.61},
	}

	buffers, err := Build(stations, config.BufferConfig{RadiiKM: []float64{20, 40}, Segments: 64})
	require.NoError(t, err)
	require.Len(t, buffers, 4, "one buffer per station per radius")

	for _, b := range buffers {
		require.NotNil(t, b.Polygon)
		var s model.Station
		for _, cand := range stations {
			if cand.ID == b.StationID {
				s = cand
			}
		}
		assert.True(t, geometry.PointInPolygon(b.Polygon, s.Lon, s.Lat),
			"station %s outside its own %vkm buffer", b.StationID, b.RadiusKM)
	}
}

func TestBuildAttributeRadius(t *testing.T) {
	stations := []model.Station{
		{ID: "ST1", Name: "Voice FM", Lon: 32.45, Lat: 2.77, RangeKM: 35},
		{ID: "ST2", Name: "No Range", Lon: 30.27, Lat: -0.61},
	}

	buffers, err := Build(stations, config.BufferConfig{RadiusField: "range_km", Segments: 64})
	require.NoError(t, err)
	require.Len(t, buffers, 1, "stations without the attribute are skipped")
	assert.Equal(t, "ST1", buffers[0].StationID)
	assert.Equal(t, 35.0, buffers[0].RadiusKM)
}

func TestBuildNoBuffers(t *testing.T) {
	_, err := Build(nil, config.BufferConfig{RadiiKM: []float64{20}})
	require.Error(t, err)
}

func TestRunWritesBothLayers(t *testing.T) {
	dir := t.TempDir()
	stationsCSV := filepath.Join(dir, "stations.csv")
	require.NoError(t, os.WriteFile(stationsCSV, []byte("station_id,station_name,lon,lat\nST1,Voice FM,32.45,2.77\n"), 0o644))

	cfg := &config.Config{
		Data:   config.DataConfig{ProcessedDir: filepath.Join(dir, "processed")},
		Inputs: config.InputsConfig{Stations: stationsCSV},
		Buffer: config.BufferConfig{RadiiKM: []float64{20, 25}, Segments: 32},
	}
	require.NoError(t, Run(t.Context(), cfg))

	stations, err := LoadStationPoints(cfg.Data.ProcessedDir)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "ST1", stations[0].ID)

	buffers, err := LoadBuffers(cfg.Data.ProcessedDir)
	require.NoError(t, err)
	require.Len(t, buffers, 2)
	assert.Equal(t, 20.0, buffers[0].RadiusKM)
	assert.Equal(t, 25.0, buffers[1].RadiusKM)
}

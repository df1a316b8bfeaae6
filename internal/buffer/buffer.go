// Package buffer implements the station buffer builder: it loads station
// point locations, validates them, and produces one coverage polygon per
// station per configured radius.
package buffer

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/shapefile"
)

// StationsFile and BuffersFile are the stage's output names under the
// processed data directory.
const (
	StationsFile = "station_loc.geojson"
	BuffersFile  = "station_buffers.geojson"
)

// defaultPalette colors stations that arrive without a color attribute.
var defaultPalette = []string{
	"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#a65628",
}

// LoadStations reads stations from CSV or shapefile depending on the file
// extension. Stations with missing or invalid coordinates are dropped with
// a warning.
func LoadStations(path string) ([]model.Station, error) {
	var (
		stations []model.Station
		skipped  int
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		stations, skipped, err = loadStationsShapefile(path)
	default:
		stations, skipped, err = geoio.ReadStationsCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, eris.Errorf("buffer: no valid stations in %s", path)
	}
	zap.L().Info("loaded stations",
		zap.String("path", path),
		zap.Int("stations", len(stations)),
		zap.Int("skipped", skipped),
	)
	for i := range stations {
		if stations[i].Color == "" {
			stations[i].Color = defaultPalette[i%len(defaultPalette)]
		}
	}
	return stations, nil
}

func loadStationsShapefile(path string) ([]model.Station, int, error) {
	features, skipped, err := shapefile.Read(path)
	if err != nil {
		return nil, 0, err
	}
	var stations []model.Station
	for _, f := range features {
		if err := model.CheckKind(f.Geom, model.KindPoint); err != nil {
			zap.L().Warn("buffer: skipping non-point station record", zap.Error(err))
			skipped++
			continue
		}
		pt, ok := f.Geom.(*geom.Point)
		if !ok {
			zap.L().Warn("buffer: skipping multi-point station record")
			skipped++
			continue
		}
		s := model.Station{
			ID:    firstAttr(f.Attrs, "station_id", "id"),
			Name:  firstAttr(f.Attrs, "station_name", "name"),
			Color: firstAttr(f.Attrs, "color"),
			Lon:   pt.X(),
			Lat:   pt.Y(),
		}
		if rangeStr := firstAttr(f.Attrs, "range_km", "range"); rangeStr != "" {
			if v, err := strconv.ParseFloat(rangeStr, 64); err == nil {
				s.RangeKM = v
			}
		}
		if s.Lon < -180 || s.Lon > 180 || s.Lat < -90 || s.Lat > 90 {
			zap.L().Warn("buffer: skipping station with invalid coordinates", zap.String("station", s.Name))
			skipped++
			continue
		}
		stations = append(stations, s)
	}
	return stations, skipped, nil
}

func firstAttr(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

// Build computes coverage buffers for the stations. In attribute mode
// (cfg.RadiusField set) each station gets a single buffer at its own
// range; stations without the attribute are skipped with a warning. In
// fixed mode every station gets one buffer per configured radius.
func Build(stations []model.Station, cfg config.BufferConfig) ([]model.CoverageBuffer, error) {
	segments := cfg.Segments
	if segments <= 0 {
		segments = 64
	}

	var buffers []model.CoverageBuffer
	for _, s := range stations {
		var radii []float64
		if cfg.RadiusField != "" {
			if s.RangeKM <= 0 {
				zap.L().Warn("buffer: station has no usable range attribute",
					zap.String("station", s.Name),
					zap.String("field", cfg.RadiusField),
				)
				continue
			}
			radii = []float64{s.RangeKM}
		} else {
			radii = cfg.RadiiKM
		}
		for _, r := range radii {
			buffers = append(buffers, model.CoverageBuffer{
				StationID:   s.ID,
				StationName: s.Name,
				RadiusKM:    r,
				Color:       s.Color,
				Polygon:     geometry.Circle(s.Lon, s.Lat, r, segments),
			})
		}
	}
	if len(buffers) == 0 {
		return nil, eris.New("buffer: no buffers produced")
	}
	return buffers, nil
}

// Run executes the stage: load stations, build buffers, write both layers.
func Run(ctx context.Context, cfg *config.Config) error {
	_ = ctx

	stations, err := LoadStations(cfg.Inputs.Stations)
	if err != nil {
		return err
	}

	buffers, err := Build(stations, cfg.Buffer)
	if err != nil {
		return err
	}

	stationFC := &geojson.FeatureCollection{}
	for _, s := range stations {
		stationFC.Features = append(stationFC.Features, geoio.NewFeature(
			geom.NewPointFlat(geom.XY, []float64{s.Lon, s.Lat}).SetSRID(4326),
			map[string]any{
				"station_id":   s.ID,
				"station_name": s.Name,
				"color":        s.Color,
				"range_km":     s.RangeKM,
			},
		))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, StationsFile), stationFC); err != nil {
		return err
	}

	bufferFC := &geojson.FeatureCollection{}
	for _, b := range buffers {
		bufferFC.Features = append(bufferFC.Features, geoio.NewFeature(b.Polygon, map[string]any{
			"station_id":   b.StationID,
			"station_name": b.StationName,
			"buffer_km":    b.RadiusKM,
			"color":        b.Color,
		}))
	}
	if err := geoio.WriteFeatureCollection(filepath.Join(cfg.Data.ProcessedDir, BuffersFile), bufferFC); err != nil {
		return err
	}

	zap.L().Info("buffer stage complete",
		zap.Int("stations", len(stations)),
		zap.Int("buffers", len(buffers)),
	)
	return nil
}

// LoadBuffers reads the stage output back for downstream stages.
func LoadBuffers(processedDir string) ([]model.CoverageBuffer, error) {
	fc, err := geoio.ReadFeatureCollection(filepath.Join(processedDir, BuffersFile))
	if err != nil {
		return nil, err
	}
	var buffers []model.CoverageBuffer
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(*geom.Polygon)
		if !ok {
			zap.L().Warn("buffer: skipping non-polygon buffer feature")
			continue
		}
		buffers = append(buffers, model.CoverageBuffer{
			StationID:   geoio.PropString(f, "station_id"),
			StationName: geoio.PropString(f, "station_name"),
			RadiusKM:    geoio.PropFloat(f, "buffer_km"),
			Color:       geoio.PropString(f, "color"),
			Polygon:     poly,
		})
	}
	if len(buffers) == 0 {
		return nil, eris.New("buffer: no buffer polygons in stage output")
	}
	return buffers, nil
}

// LoadStationPoints reads the station layer back for rendering and
// attribution.
func LoadStationPoints(processedDir string) ([]model.Station, error) {
	fc, err := geoio.ReadFeatureCollection(filepath.Join(processedDir, StationsFile))
	if err != nil {
		return nil, err
	}
	var stations []model.Station
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			continue
		}
		stations = append(stations, model.Station{
			ID:      geoio.PropString(f, "station_id"),
			Name:    geoio.PropString(f, "station_name"),
			Lon:     pt.X(),
			Lat:     pt.Y(),
			Color:   geoio.PropString(f, "color"),
			RangeKM: geoio.PropFloat(f, "range_km"),
		})
	}
	return stations, nil
}

package geoio

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// station CSV column aliases, matched case-insensitively.
var stationAliases = map[string][]string{
	"id":    {"station_id", "id"},
	"name":  {"station_name", "name"},
	"lon":   {"lon", "lng", "longitude", "x"},
	"lat":   {"lat", "latitude", "y"},
	"color": {"color", "colour"},
	"range": {"range_km", "range", "power_km"},
}

// ReadStationsCSV loads station point locations from a CSV file. Rows with
// missing or unparseable coordinates, or coordinates outside valid lon/lat
// bounds, are skipped with a warning; the skipped count is returned so
// callers can surface it.
func ReadStationsCSV(path string) ([]model.Station, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geoio: open stations %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geoio: parse stations %s", path)
	}
	if len(records) < 2 {
		return nil, 0, eris.Errorf("geoio: stations file %s has no data rows", path)
	}

	idx := columnIndex(records[0], stationAliases)
	for _, required := range []string{"id", "name", "lon", "lat"} {
		if _, ok := idx[required]; !ok {
			return nil, 0, eris.Errorf("geoio: stations file %s missing %s column", path, required)
		}
	}

	var stations []model.Station
	skipped := 0
	for rowNum, rec := range records[1:] {
		lon, lonErr := strconv.ParseFloat(field(rec, idx, "lon"), 64)
		lat, latErr := strconv.ParseFloat(field(rec, idx, "lat"), 64)
		if lonErr != nil || latErr != nil || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			zap.L().Warn("geoio: skipping station with invalid coordinates",
				zap.Int("row", rowNum+2),
				zap.String("station", field(rec, idx, "name")),
			)
			skipped++
			continue
		}
		s := model.Station{
			ID:    field(rec, idx, "id"),
			Name:  field(rec, idx, "name"),
			Lon:   lon,
			Lat:   lat,
			Color: field(rec, idx, "color"),
		}
		if rangeStr := field(rec, idx, "range"); rangeStr != "" {
			if rangeKM, err := strconv.ParseFloat(rangeStr, 64); err == nil && rangeKM > 0 {
				s.RangeKM = rangeKM
			}
		}
		stations = append(stations, s)
	}
	return stations, skipped, nil
}

// columnIndex maps logical column names to record indices using the alias
// table.
func columnIndex(header []string, aliases map[string][]string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for logical, names := range aliases {
			if _, seen := idx[logical]; seen {
				continue
			}
			for _, alias := range names {
				if h == alias {
					idx[logical] = i
				}
			}
		}
	}
	return idx
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

package geoio

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PopulationPoint is one population observation: a count located at a point.
// Both CSV point layers and raster cells reduce to this shape before the
// zonal join.
type PopulationPoint struct {
	Lon   float64
	Lat   float64
	Count float64
}

// population CSV column aliases.
var populationAliases = map[string][]string{
	"lon":   {"lon", "lng", "longitude", "x"},
	"lat":   {"lat", "latitude", "y"},
	"count": {"population", "population_count", "pop", "count", "value"},
}

// ReadPopulationCSV loads population points from a CSV file. Rows with
// invalid coordinates or negative counts are skipped with a warning.
func ReadPopulationCSV(path string) ([]PopulationPoint, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geoio: open population %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geoio: parse population %s", path)
	}
	if len(records) < 2 {
		return nil, 0, eris.Errorf("geoio: population file %s has no data rows", path)
	}

	idx := columnIndex(records[0], populationAliases)
	for _, required := range []string{"lon", "lat", "count"} {
		if _, ok := idx[required]; !ok {
			return nil, 0, eris.Errorf("geoio: population file %s missing %s column", path, required)
		}
	}

	var points []PopulationPoint
	skipped := 0
	for rowNum, rec := range records[1:] {
		lon, lonErr := strconv.ParseFloat(field(rec, idx, "lon"), 64)
		lat, latErr := strconv.ParseFloat(field(rec, idx, "lat"), 64)
		count, countErr := strconv.ParseFloat(field(rec, idx, "count"), 64)
		if lonErr != nil || latErr != nil || countErr != nil || count < 0 {
			zap.L().Warn("geoio: skipping invalid population row", zap.Int("row", rowNum+2))
			skipped++
			continue
		}
		points = append(points, PopulationPoint{Lon: lon, Lat: lat, Count: count})
	}
	return points, skipped, nil
}

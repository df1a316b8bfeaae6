package geoio

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Raster is an ESRI ASCII grid of population counts. Values are stored in
// file order: northernmost row first.
type Raster struct {
	Cols     int
	Rows     int
	XLL      float64 // x of the lower-left corner
	YLL      float64 // y of the lower-left corner
	CellSize float64
	NoData   float64
	Values   []float64
}

// ReadASCIIGrid parses an ESRI ASCII raster (.asc) file.
func ReadASCIIGrid(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geoio: open raster %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	r := &Raster{NoData: -9999}
	headerDone := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if !headerDone {
			key := strings.ToLower(fields[0])
			switch key {
			case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
				if len(fields) < 2 {
					return nil, eris.Errorf("geoio: raster %s: malformed header line %q", path, line)
				}
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, eris.Wrapf(err, "geoio: raster %s: header %s", path, key)
				}
				switch key {
				case "ncols":
					r.Cols = int(v)
				case "nrows":
					r.Rows = int(v)
				case "xllcorner":
					r.XLL = v
				case "yllcorner":
					r.YLL = v
				case "cellsize":
					r.CellSize = v
				case "nodata_value":
					r.NoData = v
				}
				continue
			}
			// First non-header line: validate and fall through to data.
			if r.Cols <= 0 || r.Rows <= 0 || r.CellSize <= 0 {
				return nil, eris.Errorf("geoio: raster %s: incomplete header", path)
			}
			headerDone = true
			r.Values = make([]float64, 0, r.Cols*r.Rows)
		}
		for _, fs := range fields {
			v, err := strconv.ParseFloat(fs, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "geoio: raster %s: bad value", path)
			}
			r.Values = append(r.Values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "geoio: read raster %s", path)
	}
	if len(r.Values) != r.Cols*r.Rows {
		return nil, eris.Errorf("geoio: raster %s: expected %d values, got %d",
			path, r.Cols*r.Rows, len(r.Values))
	}
	return r, nil
}

// Points converts raster cells to population points at cell centers,
// dropping nodata and negative cells.
func (r *Raster) Points() []PopulationPoint {
	points := make([]PopulationPoint, 0, len(r.Values))
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			v := r.Values[row*r.Cols+col]
			if v == r.NoData || v < 0 {
				continue
			}
			lon := r.XLL + (float64(col)+0.5)*r.CellSize
			// Row 0 is the northernmost row.
			lat := r.YLL + (float64(r.Rows-1-row)+0.5)*r.CellSize
			points = append(points, PopulationPoint{Lon: lon, Lat: lat, Count: v})
		}
	}
	return points
}

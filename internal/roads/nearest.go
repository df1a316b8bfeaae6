// Package roads implements the nearest road finder: an R-tree over road
// segments and a nearest-point snap for each sampled cluster centroid.
package roads

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/riklinssen/lm-sampling/internal/geoio"
	"github.com/riklinssen/lm-sampling/internal/geometry"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/shapefile"
)

// nearestCandidates is how many segments the R-tree returns per query
// before the exact nearest-point computation picks the winner.
const nearestCandidates = 32

// segment is one road edge with its owning road id.
type segment struct {
	roadID string
	aLon   float64
	aLat   float64
	bLon   float64
	bLat   float64
	rect   *rtreego.Rect
}

func (s *segment) Bounds() *rtreego.Rect { return s.rect }

// Network is a queryable road network.
type Network struct {
	tree  *rtreego.Rtree
	count int
}

// LoadNetwork reads a road layer (shapefile or GeoJSON line geometries) and
// indexes its segments.
func LoadNetwork(path string) (*Network, error) {
	var lines []roadLine
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		lines, err = readShapefileRoads(path)
	case ".geojson", ".json":
		lines, err = readGeoJSONRoads(path)
	default:
		return nil, eris.Errorf("roads: unsupported road format %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return buildNetwork(lines)
}

type roadLine struct {
	id     string
	coords [][]float64 // lon,lat pairs
}

func readShapefileRoads(path string) ([]roadLine, error) {
	features, _, err := shapefile.Read(path)
	if err != nil {
		return nil, err
	}
	var lines []roadLine
	for i, f := range features {
		if err := model.CheckKind(f.Geom, model.KindLine); err != nil {
			zap.L().Warn("roads: skipping non-line road record", zap.Error(err))
			continue
		}
		id := roadAttrID(f.Attrs, i)
		lines = append(lines, linesFromGeom(f.Geom, id)...)
	}
	return lines, nil
}

func readGeoJSONRoads(path string) ([]roadLine, error) {
	fc, err := geoio.ReadFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	var lines []roadLine
	for i, f := range fc.Features {
		if err := model.CheckKind(f.Geometry, model.KindLine); err != nil {
			zap.L().Warn("roads: skipping non-line road feature", zap.Error(err))
			continue
		}
		id := geoio.PropString(f, "road_id")
		if id == "" {
			id = geoio.PropString(f, "name")
		}
		if id == "" {
			id = fmt.Sprintf("road-%d", i)
		}
		lines = append(lines, linesFromGeom(f.Geometry, id)...)
	}
	return lines, nil
}

func roadAttrID(attrs map[string]string, i int) string {
	for _, k := range []string{"road_id", "osm_id", "id", "name", "fullname"} {
		if v := attrs[k]; v != "" {
			return v
		}
	}
	return fmt.Sprintf("road-%d", i)
}

func linesFromGeom(g geom.T, id string) []roadLine {
	var lines []roadLine
	switch t := g.(type) {
	case *geom.LineString:
		lines = append(lines, roadLine{id: id, coords: lineCoords(t)})
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			lines = append(lines, roadLine{id: id, coords: lineCoords(t.LineString(i))})
		}
	}
	return lines
}

func lineCoords(ls *geom.LineString) [][]float64 {
	flat := ls.FlatCoords()
	stride := ls.Stride()
	coords := make([][]float64, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		coords = append(coords, []float64{flat[i], flat[i+1]})
	}
	return coords
}

func buildNetwork(lines []roadLine) (*Network, error) {
	tree := rtreego.NewTree(2, 25, 50)
	count := 0
	for _, l := range lines {
		for i := 0; i+1 < len(l.coords); i++ {
			a, b := l.coords[i], l.coords[i+1]
			rect, err := rtreego.NewRectFromPoints(
				rtreego.Point{math.Min(a[0], b[0]), math.Min(a[1], b[1])},
				rtreego.Point{math.Max(a[0], b[0]) + 1e-12, math.Max(a[1], b[1]) + 1e-12},
			)
			if err != nil {
				continue
			}
			tree.Insert(&segment{
				roadID: l.id,
				aLon:   a[0], aLat: a[1],
				bLon: b[0], bLat: b[1],
				rect: rect,
			})
			count++
		}
	}
	if count == 0 {
		return nil, eris.New("roads: road layer contains no usable segments")
	}
	return &Network{tree: tree, count: count}, nil
}

// SegmentCount reports how many segments are indexed.
func (n *Network) SegmentCount() int { return n.count }

// Nearest finds the closest point on any road segment to the given lon/lat.
// The R-tree narrows the search to nearby segments; the exact snap runs in
// a local planar frame around the query point.
func (n *Network) Nearest(lon, lat float64) (model.RoadPoint, error) {
	candidates := n.tree.NearestNeighbors(nearestCandidates, rtreego.Point{lon, lat})
	if len(candidates) == 0 {
		return model.RoadPoint{}, eris.New("roads: empty road index")
	}

	frame := geometry.NewLocalFrame(lon, lat)
	px, py := frame.ToKM(lon, lat)

	best := model.RoadPoint{DistanceKM: math.Inf(1)}
	for _, c := range candidates {
		seg, ok := c.(*segment)
		if !ok || seg == nil {
			continue
		}
		ax, ay := frame.ToKM(seg.aLon, seg.aLat)
		bx, by := frame.ToKM(seg.bLon, seg.bLat)
		sx, sy := geometry.NearestOnSegment(px, py, ax, ay, bx, by)
		sLon, sLat := frame.ToDeg(sx, sy)
		dist := geometry.HaversineKM(lon, lat, sLon, sLat)
		if dist < best.DistanceKM {
			best = model.RoadPoint{
				Lon:        sLon,
				Lat:        sLat,
				DistanceKM: dist,
				RoadID:     seg.roadID,
			}
		}
	}
	if math.IsInf(best.DistanceKM, 1) {
		return model.RoadPoint{}, eris.New("roads: no candidate segments")
	}
	return best, nil
}

// Snap finds the nearest road point for each cluster centroid. Clusters
// with no road within maxKM are flagged unreachable and kept.
func Snap(net *Network, clusters []model.SampledCluster, maxKM float64) ([]model.RoadPoint, error) {
	points := make([]model.RoadPoint, 0, len(clusters))
	unreachable := 0
	for _, c := range clusters {
		rp, err := net.Nearest(c.CentroidLon, c.CentroidLat)
		if err != nil {
			return nil, eris.Wrapf(err, "roads: cluster %d", c.ID)
		}
		rp.CellID = c.ID
		if maxKM > 0 && rp.DistanceKM > maxKM {
			rp.Unreachable = true
			unreachable++
		}
		points = append(points, rp)
	}
	if unreachable > 0 {
		zap.L().Warn("roads: clusters beyond the road distance cutoff were flagged",
			zap.Int("clusters", unreachable),
			zap.Float64("max_km", maxKM),
		)
	}
	return points, nil
}

package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// Layers bundles everything the renderer draws.
type Layers struct {
	Stations []model.Station
	Buffers  []model.CoverageBuffer
	Clusters []model.SampledCluster
	Roads    []model.RoadPoint
}

// RenderOverview draws every layer onto one map and saves it as PNG.
func RenderOverview(layers Layers, style Style, path string) error {
	p := plot.New()
	p.Title.Text = "Station coverage and sampled clusters"
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	if err := addLayers(p, layers, style); err != nil {
		return err
	}
	return savePlot(p, path)
}

// RenderStation draws one station's buffers and its attributed clusters.
func RenderStation(layers Layers, style Style, station model.Station, path string) error {
	sub := Layers{Stations: []model.Station{station}}
	for _, b := range layers.Buffers {
		if b.StationID == station.ID {
			sub.Buffers = append(sub.Buffers, b)
		}
	}
	for _, c := range layers.Clusters {
		if c.StationID == station.ID {
			sub.Clusters = append(sub.Clusters, c)
		}
	}
	sub.Roads = layers.Roads

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s coverage and clusters", station.Name)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	if err := addLayers(p, sub, style); err != nil {
		return err
	}
	return savePlot(p, path)
}

func addLayers(p *plot.Plot, layers Layers, style Style) error {
	// Buffers draw largest radius first so small rings stay visible.
	buffers := append([]model.CoverageBuffer(nil), layers.Buffers...)
	for i := 0; i < len(buffers); i++ {
		for j := i + 1; j < len(buffers); j++ {
			if buffers[j].RadiusKM > buffers[i].RadiusKM {
				buffers[i], buffers[j] = buffers[j], buffers[i]
			}
		}
	}
	for _, b := range buffers {
		bs := style.bufferStyle(b.RadiusKM)
		poly, err := polygonPlotter(b.Polygon, parseHexColor(b.Color, bs.Opacity), bs.Dashed)
		if err != nil {
			return err
		}
		p.Add(poly)
	}

	for _, c := range layers.Clusters {
		cs := style.clusterStyle(string(c.Type))
		fill := parseHexColor(colorFor(layers.Stations, c.StationID), cs.Opacity)
		poly, err := polygonPlotter(c.Polygon, fill, cs.Dashed)
		if err != nil {
			return err
		}
		p.Add(poly)
	}

	if len(layers.Roads) > 0 {
		xys := make(plotter.XYs, 0, len(layers.Roads))
		for _, r := range layers.Roads {
			if r.Unreachable {
				continue
			}
			xys = append(xys, plotter.XY{X: r.Lon, Y: r.Lat})
		}
		if len(xys) > 0 {
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return eris.Wrap(err, "render: road scatter")
			}
			sc.GlyphStyle.Shape = draw.CrossGlyph{}
			sc.GlyphStyle.Color = color.NRGBA{A: 255}
			sc.GlyphStyle.Radius = vg.Points(2)
			p.Add(sc)
		}
	}

	for _, s := range layers.Stations {
		xys := plotter.XYs{{X: s.Lon, Y: s.Lat}}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return eris.Wrap(err, "render: station scatter")
		}
		sc.GlyphStyle.Shape = draw.PyramidGlyph{}
		sc.GlyphStyle.Color = parseHexColor(s.Color, 1)
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	return nil
}

func polygonPlotter(g *geom.Polygon, fill color.NRGBA, dashed bool) (*plotter.Polygon, error) {
	if g == nil || g.NumLinearRings() == 0 {
		return nil, eris.New("render: empty polygon")
	}
	ring := g.LinearRing(0)
	flat := ring.FlatCoords()
	stride := ring.Stride()
	xys := make(plotter.XYs, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		xys = append(xys, plotter.XY{X: flat[i], Y: flat[i+1]})
	}
	poly, err := plotter.NewPolygon(xys)
	if err != nil {
		return nil, eris.Wrap(err, "render: polygon")
	}
	poly.Color = fill
	line := fill
	line.A = 255
	poly.LineStyle.Color = line
	if dashed {
		poly.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	return poly, nil
}

func colorFor(stations []model.Station, stationID string) string {
	for _, s := range stations {
		if s.ID == stationID {
			return s.Color
		}
	}
	return "#808080"
}

func savePlot(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "render: create dir for %s", path)
	}
	if err := p.Save(7*vg.Inch, 7*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}

// slug converts a station name to a safe file name fragment.
func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(s, "-")
}

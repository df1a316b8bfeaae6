// Package render produces the static per-station maps and the interactive
// chart page from the pipeline outputs.
package render

import (
	"image/color"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BufferStyle controls how one buffer radius is drawn.
type BufferStyle struct {
	Opacity float64 `yaml:"opacity"`
	Dashed  bool    `yaml:"dashed"`
}

// ClusterStyle controls how one cluster replicate is drawn.
type ClusterStyle struct {
	Opacity float64 `yaml:"opacity"`
	Dashed  bool    `yaml:"dashed"`
}

// Style is the render style sheet, loaded from YAML. Radii keys are
// kilometers.
type Style struct {
	Buffers  map[int]BufferStyle     `yaml:"buffers"`
	Clusters map[string]ClusterStyle `yaml:"clusters"`
}

// DefaultStyle mirrors the field protocol's legend: larger assumed ranges
// draw fainter and dashed, replacement clusters draw fainter than main.
func DefaultStyle() Style {
	return Style{
		Buffers: map[int]BufferStyle{
			20: {Opacity: 0.4},
			25: {Opacity: 0.3, Dashed: true},
			40: {Opacity: 0.2, Dashed: true},
			60: {Opacity: 0.1, Dashed: true},
		},
		Clusters: map[string]ClusterStyle{
			"main":        {Opacity: 0.7},
			"replacement": {Opacity: 0.3, Dashed: true},
		},
	}
}

// LoadStyle reads the style sheet, falling back to defaults when the file
// is absent.
func LoadStyle(path string) (Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Debug("render: style file absent, using defaults", zap.String("path", path))
			return DefaultStyle(), nil
		}
		return Style{}, eris.Wrapf(err, "render: read style %s", path)
	}
	s := DefaultStyle()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Style{}, eris.Wrapf(err, "render: parse style %s", path)
	}
	return s, nil
}

// bufferStyle resolves the style for a radius, interpolating a faint
// default for radii the sheet does not name.
func (s Style) bufferStyle(radiusKM float64) BufferStyle {
	if bs, ok := s.Buffers[int(radiusKM)]; ok {
		return bs
	}
	return BufferStyle{Opacity: 0.15, Dashed: true}
}

func (s Style) clusterStyle(kind string) ClusterStyle {
	if cs, ok := s.Clusters[kind]; ok {
		return cs
	}
	return ClusterStyle{Opacity: 0.5}
}

// parseHexColor converts "#rrggbb" to an NRGBA with the given alpha.
// Unparseable colors fall back to gray.
func parseHexColor(hex string, alpha float64) color.NRGBA {
	c := color.NRGBA{R: 0x80, G: 0x80, B: 0x80}
	if len(hex) == 7 && hex[0] == '#' {
		if v, err := strconv.ParseUint(hex[1:], 16, 32); err == nil {
			c.R = uint8(v >> 16)
			c.G = uint8(v >> 8)
			c.B = uint8(v)
		}
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	c.A = uint8(alpha * 255)
	return c
}

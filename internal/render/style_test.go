package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStyle(t *testing.T) {
	s := DefaultStyle()

	assert.Equal(t, 0.4, s.bufferStyle(20).Opacity)
	assert.False(t, s.bufferStyle(20).Dashed)
	assert.Equal(t, 0.1, s.bufferStyle(60).Opacity)
	assert.True(t, s.bufferStyle(60).Dashed)

	// Unknown radii get the faint fallback.
	fallback := s.bufferStyle(33)
	assert.Equal(t, 0.15, fallback.Opacity)
	assert.True(t, fallback.Dashed)

	assert.Equal(t, 0.7, s.clusterStyle("main").Opacity)
	assert.True(t, s.clusterStyle("replacement").Dashed)
	assert.Equal(t, 0.5, s.clusterStyle("unknown").Opacity)
}

func TestLoadStyleMissingFileUsesDefaults(t *testing.T) {
	s, err := LoadStyle(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultStyle(), s)
}

func TestLoadStyleOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
buffers:
  20:
    opacity: 0.9
clusters:
  main:
    opacity: 1.0
`), 0o644))

	s, err := LoadStyle(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, s.bufferStyle(20).Opacity)
	assert.Equal(t, 1.0, s.clusterStyle("main").Opacity)
}

func TestLoadStyleMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffers: ["), 0o644))

	_, err := LoadStyle(path)
	require.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c := parseHexColor("#1f77b4", 0.5)
	assert.Equal(t, uint8(0x1f), c.R)
	assert.Equal(t, uint8(0x77), c.G)
	assert.Equal(t, uint8(0xb4), c.B)
	assert.Equal(t, uint8(127), c.A)

	gray := parseHexColor("nonsense", 1)
	assert.Equal(t, uint8(0x80), gray.R)
	assert.Equal(t, uint8(255), gray.A)

	clamped := parseHexColor("#000000", 2)
	assert.Equal(t, uint8(255), clamped.A)
}

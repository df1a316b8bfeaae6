package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/processed", cfg.Data.ProcessedDir)
	assert.Equal(t, []float64{20, 25, 40, 60}, cfg.Buffer.RadiiKM)
	assert.Equal(t, 2.0, cfg.Grid.CellKM)
	assert.Equal(t, int64(42), cfg.Sample.Seed)
	assert.Equal(t, "systematic", cfg.Sample.Method)
	assert.Equal(t, 5.0, cfg.Roads.MaxKM)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte(`
grid:
  cell_km: 5.0
sample:
  size: 25
  seed: 7
store:
  driver: postgres
`), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Grid.CellKM)
	assert.Equal(t, 25, cfg.Sample.Size)
	assert.Equal(t, int64(7), cfg.Sample.Seed)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	// Untouched keys keep defaults.
	assert.Equal(t, "systematic", cfg.Sample.Method)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LMS_GRID_CELL_KM", "3.5")
	t.Setenv("LMS_SAMPLE_METHOD", "draw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3.5, cfg.Grid.CellKM)
	assert.Equal(t, "draw", cfg.Sample.Method)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		chdir(t, t.TempDir())
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero cell size", func(c *Config) { c.Grid.CellKM = 0 }, "cell_km"},
		{"cover out of range", func(c *Config) { c.Grid.MinCover = 1.5 }, "min_cover"},
		{"zero sample size", func(c *Config) { c.Sample.Size = 0 }, "sample.size"},
		{"unknown method", func(c *Config) { c.Sample.Method = "magic" }, "sample.method"},
		{"no radii", func(c *Config) { c.Buffer.RadiiKM = nil }, "radii_km"},
		{"negative radius", func(c *Config) { c.Buffer.RadiiKM = []float64{-5} }, "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// Package config loads the pipeline configuration from config.yaml, a .env
// file, and LMS_-prefixed environment variables, and owns global logger
// setup.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Inputs InputsConfig `yaml:"inputs" mapstructure:"inputs"`
	Buffer BufferConfig `yaml:"buffer" mapstructure:"buffer"`
	Grid   GridConfig   `yaml:"grid" mapstructure:"grid"`
	Frame  FrameConfig  `yaml:"frame" mapstructure:"frame"`
	Sample SampleConfig `yaml:"sample" mapstructure:"sample"`
	Roads  RoadsConfig  `yaml:"roads" mapstructure:"roads"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig sets where stage outputs live. Each stage writes its output
// under ProcessedDir and the next stage reads it from there.
type DataConfig struct {
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
}

// InputsConfig points at the raw input layers.
type InputsConfig struct {
	Stations   string `yaml:"stations" mapstructure:"stations"`     // CSV or shapefile
	Population string `yaml:"population" mapstructure:"population"` // CSV points or .asc raster
	Admin      string `yaml:"admin" mapstructure:"admin"`           // shapefile or GeoJSON, optional
	Roads      string `yaml:"roads" mapstructure:"roads"`           // shapefile or GeoJSON
}

// BufferConfig controls coverage buffer construction. When RadiusField is
// set, each station's buffer radius comes from that station attribute;
// otherwise every station gets one buffer per entry in RadiiKM.
type BufferConfig struct {
	RadiiKM     []float64 `yaml:"radii_km" mapstructure:"radii_km"`
	RadiusField string    `yaml:"radius_field" mapstructure:"radius_field"`
	Segments    int       `yaml:"segments" mapstructure:"segments"`
}

// GridConfig controls the sampling grid tiling.
type GridConfig struct {
	CellKM       float64 `yaml:"cell_km" mapstructure:"cell_km"`
	MinCover     float64 `yaml:"min_cover" mapstructure:"min_cover"`
	CoverSamples int     `yaml:"cover_samples" mapstructure:"cover_samples"`
}

// FrameConfig controls frame eligibility.
type FrameConfig struct {
	RequireAdmin bool `yaml:"require_admin" mapstructure:"require_admin"`
}

// SampleConfig controls the weighted draw.
type SampleConfig struct {
	Size            int    `yaml:"size" mapstructure:"size"`
	ReplacementSize int    `yaml:"replacement_size" mapstructure:"replacement_size"`
	Seed            int64  `yaml:"seed" mapstructure:"seed"`
	Method          string `yaml:"method" mapstructure:"method"` // systematic | draw
}

// RoadsConfig controls the nearest-road lookup.
type RoadsConfig struct {
	MaxKM float64 `yaml:"max_km" mapstructure:"max_km"`
}

// RenderConfig controls map rendering.
type RenderConfig struct {
	OutDir    string `yaml:"out_dir" mapstructure:"out_dir"`
	StyleFile string `yaml:"style_file" mapstructure:"style_file"`
}

// StoreConfig configures the run/metadata store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the viewer.
type ServerConfig struct {
	Port         int     `yaml:"port" mapstructure:"port"`
	TileCacheDir string  `yaml:"tile_cache_dir" mapstructure:"tile_cache_dir"`
	TileRate     float64 `yaml:"tile_rate" mapstructure:"tile_rate"` // upstream tile requests per second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.processed_dir", "data/processed")
	v.SetDefault("data.output_dir", "data/output")
	v.SetDefault("inputs.stations", "data/raw/stations.csv")
	v.SetDefault("inputs.population", "data/raw/population.csv")
	v.SetDefault("inputs.roads", "data/raw/roads.shp")
	// Assumed coverage ranges carried over from the field protocol.
	v.SetDefault("buffer.radii_km", []float64{20, 25, 40, 60})
	v.SetDefault("buffer.segments", 64)
	v.SetDefault("grid.cell_km", 2.0)
	v.SetDefault("grid.min_cover", 0.05)
	v.SetDefault("grid.cover_samples", 4)
	v.SetDefault("sample.size", 10)
	v.SetDefault("sample.replacement_size", 10)
	v.SetDefault("sample.seed", 42)
	v.SetDefault("sample.method", "systematic")
	v.SetDefault("roads.max_km", 5.0)
	v.SetDefault("render.out_dir", "maps")
	v.SetDefault("render.style_file", "style.yaml")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "lm-sampling.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tile_cache_dir", ".tilecache")
	v.SetDefault("server.tile_rate", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the parameter ranges that would otherwise fail deep
// inside a stage.
func (c *Config) Validate() error {
	if c.Grid.CellKM <= 0 {
		return eris.New("config: grid.cell_km must be positive")
	}
	if c.Grid.MinCover < 0 || c.Grid.MinCover > 1 {
		return eris.New("config: grid.min_cover must be in [0,1]")
	}
	if c.Sample.Size <= 0 {
		return eris.New("config: sample.size must be positive")
	}
	if c.Sample.Method != "systematic" && c.Sample.Method != "draw" {
		return eris.Errorf("config: unknown sample.method %q", c.Sample.Method)
	}
	if c.Buffer.RadiusField == "" && len(c.Buffer.RadiiKM) == 0 {
		return eris.New("config: buffer needs radii_km or radius_field")
	}
	for _, r := range c.Buffer.RadiiKM {
		if r <= 0 {
			return eris.New("config: buffer.radii_km entries must be positive")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

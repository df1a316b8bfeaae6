// Package viewer serves the finished pipeline outputs as a local web map:
// a Leaflet page with layer toggles and popups, GeoJSON layer endpoints,
// and a rate-limited basemap tile proxy. It is read-only over the output
// files and shares no state with the pipeline.
package viewer

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/riklinssen/lm-sampling/internal/buffer"
	"github.com/riklinssen/lm-sampling/internal/cluster"
	"github.com/riklinssen/lm-sampling/internal/config"
	"github.com/riklinssen/lm-sampling/internal/grid"
	"github.com/riklinssen/lm-sampling/internal/model"
	"github.com/riklinssen/lm-sampling/internal/roads"
	"github.com/riklinssen/lm-sampling/internal/sampling"
)

// layerFiles maps exposed layer names to output files, an allowlist so the
// file server cannot be steered outside the processed directory.
var layerFiles = map[string]string{
	"stations": buffer.StationsFile,
	"buffers":  buffer.BuffersFile,
	"grid":     grid.CellsFile,
	"clusters": sampling.ClustersFile,
	"merged":   cluster.MergedFile,
	"roads":    roads.PointsFile,
}

// Server is the viewer HTTP server.
type Server struct {
	processedDir string
	tiles        *TileProxy
	printer      *message.Printer
}

// New builds a viewer server over the processed output directory.
func New(cfg *config.Config) (*Server, error) {
	if _, err := os.Stat(cfg.Data.ProcessedDir); err != nil {
		return nil, eris.Wrapf(err, "viewer: processed dir %s", cfg.Data.ProcessedDir)
	}
	tiles, err := NewTileProxy(cfg.Server.TileCacheDir, cfg.Server.TileRate)
	if err != nil {
		return nil, err
	}
	return &Server{
		processedDir: cfg.Data.ProcessedDir,
		tiles:        tiles,
		printer:      message.NewPrinter(language.English),
	}, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/api/layers", s.handleLayerList)
	r.Get("/api/layers/{name}", s.handleLayer)
	r.Get("/api/stations", s.handleStations)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/tiles/{z}/{x}/{y}.png", s.handleTile)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayerList(w http.ResponseWriter, _ *http.Request) {
	available := make([]string, 0, len(layerFiles))
	for name, file := range layerFiles {
		if _, err := os.Stat(filepath.Join(s.processedDir, file)); err == nil {
			available = append(available, name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"layers": available})
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	file, ok := layerFiles[name]
	if !ok {
		http.Error(w, `{"error":"unknown layer"}`, http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(filepath.Join(s.processedDir, file))
	if err != nil {
		zap.L().Warn("viewer: layer file unavailable", zap.String("layer", name), zap.Error(err))
		http.Error(w, `{"error":"layer not generated"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleStations(w http.ResponseWriter, _ *http.Request) {
	stations, err := buffer.LoadStationPoints(s.processedDir)
	if err != nil {
		http.Error(w, `{"error":"stations not generated"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	stations, _ := buffer.LoadStationPoints(s.processedDir)
	clusters, err := sampling.LoadClusters(filepath.Join(s.processedDir, cluster.MergedFile))
	if err != nil {
		clusters, _ = sampling.LoadClusters(filepath.Join(s.processedDir, sampling.ClustersFile))
	}

	total := 0.0
	main, replacement := 0, 0
	for _, c := range clusters {
		total += c.Population
		if c.Type == model.ClusterMain {
			main++
		} else {
			replacement++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations":             len(stations),
		"clusters_main":        main,
		"clusters_replacement": replacement,
		"sampled_population":   s.printer.Sprintf("%d", int64(total)),
	})
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil || z < 0 || z > 19 {
		http.Error(w, "bad tile coordinates", http.StatusBadRequest)
		return
	}
	s.tiles.Serve(w, r, z, x, y)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

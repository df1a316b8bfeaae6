package viewer

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tileUpstream = "https://tile.openstreetmap.org/%d/%d/%d.png"

// TileProxy fetches basemap tiles from the OSM tile servers through a disk
// cache and a request rate limiter, per the upstream usage policy.
type TileProxy struct {
	cacheDir string
	limiter  *rate.Limiter
	client   *http.Client
}

// NewTileProxy builds a proxy caching under cacheDir at ratePerSec upstream
// requests per second.
func NewTileProxy(cacheDir string, ratePerSec float64) (*TileProxy, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "viewer: tile cache dir %s", cacheDir)
	}
	return &TileProxy{
		cacheDir: cacheDir,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Serve writes the tile to w, from cache when present.
func (p *TileProxy) Serve(w http.ResponseWriter, r *http.Request, z, x, y int) {
	path := filepath.Join(p.cacheDir, fmt.Sprintf("%d", z), fmt.Sprintf("%d", x), fmt.Sprintf("%d.png", y))
	if data, err := os.ReadFile(path); err == nil {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
		return
	}

	if err := p.limiter.Wait(r.Context()); err != nil {
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	data, err := p.fetch(r, z, x, y)
	if err != nil {
		zap.L().Warn("viewer: tile fetch failed",
			zap.Int("z", z), zap.Int("x", x), zap.Int("y", y), zap.Error(err))
		http.Error(w, "tile unavailable", http.StatusBadGateway)
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			zap.L().Warn("viewer: tile cache write failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func (p *TileProxy) fetch(r *http.Request, z, x, y int) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, fmt.Sprintf(tileUpstream, z, x, y), nil)
	if err != nil {
		return nil, eris.Wrap(err, "viewer: build tile request")
	}
	req.Header.Set("User-Agent", "lm-sampling-viewer/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "viewer: fetch tile")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("viewer: tile upstream status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "viewer: read tile body")
	}
	return data, nil
}

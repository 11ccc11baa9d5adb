package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/shader"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
)

const maxTileSize = 4096

// OnDemandGridsConfig configures on-demand grid rendering.
type OnDemandGridsConfig struct {
	// CacheDir stores rendered images keyed by their parameters. Empty
	// disables the disk cache.
	CacheDir     string
	CacheControl string
	Palette      shader.Palette
	OutlineColor rgba.Color
	Quantize     rgba.QuantizeMode
	// Defaults for omitted query parameters.
	Width    int
	Height   int
	TileSize int
	Seed     int64
	// Limits. A request above any of them is rejected with 400.
	MaxCells             int
	MaxPixels            int
	MaxConcurrentRenders int
	RenderTimeout        time.Duration
}

// OnDemandGrids renders Wang grids per request.
type OnDemandGrids struct {
	logger   *slog.Logger
	exporter *export.Exporter
	sem      chan struct{}
	locks    sync.Map
	cfg      OnDemandGridsConfig

	activeRenders atomic.Int32
	queuedRenders atomic.Int32
	totalRendered atomic.Int64
	totalFailed   atomic.Int64
	cacheHits     atomic.Int64
}

// RenderStatus reports render counters.
type RenderStatus struct {
	ActiveRenders int   `json:"active_renders"`
	QueuedRenders int   `json:"queued_renders"`
	TotalRendered int64 `json:"total_rendered"`
	TotalFailed   int64 `json:"total_failed"`
	CacheHits     int64 `json:"cache_hits"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// GridRequest is a parsed render request.
type GridRequest struct {
	Shader   string
	Format   export.Format
	Width    int
	Height   int
	TileSize int
	Seed     int64
	Gamma    bool
	Outline  bool
	Atlas    bool
}

// Key identifies the rendered output of r.
func (r GridRequest) Key() string {
	kind := "grid"
	if r.Atlas {
		kind = "atlas"
	}
	return fmt.Sprintf("%s_%dx%d_t%d_s%d_%s_g%t_o%t.%s",
		kind, r.Width, r.Height, r.TileSize, r.Seed, r.Shader, r.Gamma, r.Outline, r.Format.Ext())
}

// NewOnDemandGrids fills in defaults and prepares the renderer.
func NewOnDemandGrids(cfg OnDemandGridsConfig, logger *slog.Logger) *OnDemandGrids {
	if cfg.Width <= 0 {
		cfg.Width = 32
	}
	if cfg.Height <= 0 {
		cfg.Height = 18
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = render.DefaultTileSize
	}
	if cfg.MaxCells <= 0 {
		cfg.MaxCells = 256 * 256
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 4096 * 4096
	}
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 1
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.Palette == (shader.Palette{}) {
		cfg.Palette = shader.DefaultPalette()
	}

	return &OnDemandGrids{
		cfg:      cfg,
		logger:   logger,
		exporter: &export.Exporter{Logger: logger, Mode: cfg.Quantize},
		sem:      make(chan struct{}, cfg.MaxConcurrentRenders),
	}
}

// Status returns the current counters.
func (g *OnDemandGrids) Status() RenderStatus {
	return RenderStatus{
		ActiveRenders: int(g.activeRenders.Load()),
		QueuedRenders: int(g.queuedRenders.Load()),
		TotalRendered: g.totalRendered.Load(),
		TotalFailed:   g.totalFailed.Load(),
		CacheHits:     g.cacheHits.Load(),
		MaxConcurrent: g.cfg.MaxConcurrentRenders,
	}
}

// StatusHandler serves Status as JSON.
func (g *OnDemandGrids) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(g.Status()); err != nil {
			g.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
}

// GridHandler serves /grid.{ext} requests.
func (g *OnDemandGrids) GridHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, false)
	})
}

// AtlasHandler serves /atlas.{ext} requests.
func (g *OnDemandGrids) AtlasHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, true)
	})
}

// GridTextHandler serves the identifier grid as text.
func (g *OnDemandGrids) GridTextHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := g.ParseRequest(r.URL.Query(), "png", false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		grid, err := wang.GenerateSeeded(req.Width, req.Height, req.Seed)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		text, err := grid.MarshalText()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", g.cfg.CacheControl)
		_, _ = w.Write(text)
	})
}

// ParseRequest reads query parameters, applying defaults and limits.
// Atlas requests always use a 4x4 grid.
func (g *OnDemandGrids) ParseRequest(q url.Values, ext string, atlas bool) (GridRequest, error) {
	req := GridRequest{
		Width:    g.cfg.Width,
		Height:   g.cfg.Height,
		TileSize: g.cfg.TileSize,
		Seed:     g.cfg.Seed,
		Shader:   shader.Default,
		Gamma:    true,
		Outline:  atlas,
		Atlas:    atlas,
	}

	var err error
	if req.Format, err = export.ParseFormat(ext); err != nil {
		return req, err
	}
	if req.Format == export.FormatMBTiles {
		return req, fmt.Errorf("mbtiles cannot be rendered on demand")
	}

	ints := []struct {
		dst  *int
		name string
	}{
		{&req.Width, "width"},
		{&req.Height, "height"},
		{&req.TileSize, "tile"},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, fmt.Errorf("invalid %s %q", p.name, v)
			}
			*p.dst = n
		}
	}
	if v := q.Get("seed"); v != "" {
		if req.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return req, fmt.Errorf("invalid seed %q", v)
		}
	}
	bools := []struct {
		dst  *bool
		name string
	}{
		{&req.Gamma, "gamma"},
		{&req.Outline, "outline"},
	}
	for _, p := range bools {
		if v := q.Get(p.name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return req, fmt.Errorf("invalid %s %q", p.name, v)
			}
			*p.dst = b
		}
	}
	if v := q.Get("shader"); v != "" {
		req.Shader = strings.ToLower(strings.TrimSpace(v))
	}
	if _, err := shader.Lookup(req.Shader); err != nil {
		return req, err
	}

	if atlas {
		req.Width, req.Height, req.Seed = 4, 4, 0
	}
	if req.Width <= 0 || req.Height <= 0 || req.TileSize <= 0 {
		return req, fmt.Errorf("%w: width, height and tile must be positive", wang.ErrInvalidDimension)
	}
	if req.TileSize > maxTileSize {
		return req, fmt.Errorf("tile size %d exceeds %d", req.TileSize, maxTileSize)
	}
	if req.Width > g.cfg.MaxCells/req.Height {
		return req, fmt.Errorf("grid %dx%d exceeds %d cells", req.Width, req.Height, g.cfg.MaxCells)
	}
	// The cell count is bounded by MaxCells here, and tile size by maxTileSize.
	if cells := req.Width * req.Height; cells > g.cfg.MaxPixels/(req.TileSize*req.TileSize) {
		return req, fmt.Errorf("image exceeds %d pixels", g.cfg.MaxPixels)
	}
	return req, nil
}

func (g *OnDemandGrids) serve(w http.ResponseWriter, r *http.Request, atlas bool) {
	ext := strings.TrimPrefix(filepath.Ext(r.URL.Path), ".")
	req, err := g.ParseRequest(r.URL.Query(), ext, atlas)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Cache-Control", g.cfg.CacheControl)
	w.Header().Set("Content-Type", contentType(req.Format))

	cachePath := ""
	if g.cfg.CacheDir != "" {
		cachePath = filepath.Join(g.cfg.CacheDir, req.Key())
		if fileExists(cachePath) {
			g.cacheHits.Add(1)
			http.ServeFile(w, r, cachePath)
			return
		}
	}

	mu := g.getLock(req.Key())
	mu.Lock()
	defer mu.Unlock()

	if cachePath != "" && fileExists(cachePath) {
		g.cacheHits.Add(1)
		http.ServeFile(w, r, cachePath)
		return
	}

	g.queuedRenders.Add(1)
	select {
	case g.sem <- struct{}{}:
		g.queuedRenders.Add(-1)
		defer func() { <-g.sem }()
	case <-r.Context().Done():
		g.queuedRenders.Add(-1)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.RenderTimeout)
	defer cancel()

	start := time.Now()
	data, err := g.renderTracked(ctx, req)
	if err != nil {
		g.totalFailed.Add(1)
		g.log().Error("failed to render grid", "key", req.Key(), "error", err)
		http.Error(w, fmt.Sprintf("failed to render %s: %v", req.Key(), err), http.StatusInternalServerError)
		return
	}
	g.totalRendered.Add(1)
	g.log().Info("grid rendered on-demand", "key", req.Key(), "ms", time.Since(start).Milliseconds())

	if cachePath != "" {
		if _, err := g.exporter.WriteBytes(cachePath, data); err != nil {
			g.log().Warn("failed to cache rendered grid", "path", cachePath, "error", err)
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		g.log().Error("failed to write response", "error", err)
	}
}

func (g *OnDemandGrids) render(ctx context.Context, req GridRequest) ([]byte, error) {
	var grid *wang.Grid
	if req.Atlas {
		grid = wang.AtlasGrid()
	} else {
		var err error
		if grid, err = wang.GenerateSeeded(req.Width, req.Height, req.Seed); err != nil {
			return nil, err
		}
	}

	shade, err := shader.New(req.Shader, g.cfg.Palette)
	if err != nil {
		return nil, err
	}
	buf, err := render.Render(grid, render.Options{
		Shader:       shade,
		OutlineColor: g.cfg.OutlineColor,
		TileSize:     req.TileSize,
		Gamma:        req.Gamma,
		Outline:      req.Outline,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := export.Encode(&out, buf, req.Format, g.cfg.Quantize); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (g *OnDemandGrids) getLock(key string) *sync.Mutex {
	if v, ok := g.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (g *OnDemandGrids) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

func contentType(f export.Format) string {
	switch f {
	case export.FormatPNG:
		return "image/png"
	case export.FormatBMP:
		return "image/bmp"
	case export.FormatTIFF:
		return "image/tiff"
	default:
		return "image/x-portable-pixmap"
	}
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !st.IsDir()
}

// renderTracked counts the render as active until it returns, even on panic.
func (g *OnDemandGrids) renderTracked(ctx context.Context, req GridRequest) ([]byte, error) {
	g.activeRenders.Add(1)
	defer g.activeRenders.Add(-1)
	return g.render(ctx, req)
}

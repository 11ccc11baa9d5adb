package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/tile"
)

// MBTilesHandler serves tiles from an MBTiles database.
type MBTilesHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	cacheControl string
	metadata     mbtiles.Metadata
}

// MBTilesConfig configures the MBTiles handler.
type MBTilesConfig struct {
	MBTilesPath  string
	CacheControl string
}

// NewMBTilesHandler opens the database and reads its metadata.
func NewMBTilesHandler(cfg MBTilesConfig, logger *slog.Logger) (*MBTilesHandler, error) {
	reader, err := mbtiles.OpenReader(cfg.MBTilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}

	meta, err := reader.Metadata()
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to read MBTiles metadata: %w", err)
	}

	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=3600"
	}

	return &MBTilesHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
		metadata:     meta,
	}, nil
}

// Metadata returns the tileset metadata read at startup.
func (h *MBTilesHandler) Metadata() mbtiles.Metadata {
	return h.metadata
}

// Handler returns the tile handler for /tiles/z{z}_x{x}_y{y}.png.
func (h *MBTilesHandler) Handler() http.HandlerFunc {
	return h.serveTile
}

// MetadataHandler serves the grid text stored with the tileset.
func (h *MBTilesHandler) MetadataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.metadata.Grid.Text == "" {
			http.Error(w, "tileset has no grid", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", h.cacheControl)
		_, _ = w.Write([]byte(h.metadata.Grid.Text))
	}
}

func (h *MBTilesHandler) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := h.reader.ReadTile(coords)
	if errors.Is(err, mbtiles.ErrTileNotFound) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the MBTiles reader.
func (h *MBTilesHandler) Close() error {
	return h.reader.Close()
}

func (h *MBTilesHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseTilePath parses /tiles/z2_x1_y3.png.
func parseTilePath(requestPath string) (tile.Coords, bool) {
	if !strings.HasPrefix(requestPath, "/tiles/") {
		return tile.Coords{}, false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return tile.Coords{}, false
	}

	coords, err := tile.ParseCoords(strings.TrimSuffix(base, ".png"))
	if err != nil {
		return tile.Coords{}, false
	}
	return coords, true
}

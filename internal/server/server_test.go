package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/wangtiles/internal/export"
	"github.com/MeKo-Tech/wangtiles/internal/mbtiles"
	"github.com/MeKo-Tech/wangtiles/internal/ppm"
	"github.com/MeKo-Tech/wangtiles/internal/render"
	"github.com/MeKo-Tech/wangtiles/internal/rgba"
	"github.com/MeKo-Tech/wangtiles/internal/tile"
	"github.com/MeKo-Tech/wangtiles/internal/wang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrids(t *testing.T, cacheDir string) *OnDemandGrids {
	t.Helper()
	return NewOnDemandGrids(OnDemandGridsConfig{
		CacheDir:  cacheDir,
		Width:     4,
		Height:    3,
		TileSize:  8,
		MaxCells:  100,
		MaxPixels: 200 * 200,
	}, nil)
}

func TestParseTilePath(t *testing.T) {
	tests := []struct {
		path string
		want tile.Coords
		ok   bool
	}{
		{"/tiles/z2_x1_y3.png", tile.NewCoords(2, 1, 3), true},
		{"/tiles/z0_x0_y0.png", tile.NewCoords(0, 0, 0), true},
		{"/tiles/z2_x1_y3.jpg", tile.Coords{}, false},
		{"/tiles/z1_x5_y0.png", tile.Coords{}, false},
		{"/other/z2_x1_y3.png", tile.Coords{}, false},
		{"/tiles/garbage.png", tile.Coords{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := parseTilePath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseRequestDefaults(t *testing.T) {
	g := newTestGrids(t, "")

	req, err := g.ParseRequest(url.Values{}, "png", false)
	require.NoError(t, err)
	assert.Equal(t, 4, req.Width)
	assert.Equal(t, 3, req.Height)
	assert.Equal(t, 8, req.TileSize)
	assert.True(t, req.Gamma)
	assert.False(t, req.Outline)
	assert.Equal(t, export.FormatPNG, req.Format)

	atlas, err := g.ParseRequest(url.Values{"width": {"9"}, "seed": {"5"}}, "ppm", true)
	require.NoError(t, err)
	assert.Equal(t, 4, atlas.Width)
	assert.Equal(t, 4, atlas.Height)
	assert.Equal(t, int64(0), atlas.Seed)
	assert.True(t, atlas.Outline)
}

func TestParseRequestRejects(t *testing.T) {
	g := newTestGrids(t, "")

	tests := []struct {
		name string
		q    url.Values
		ext  string
	}{
		{"bad width", url.Values{"width": {"x"}}, "png"},
		{"zero height", url.Values{"height": {"0"}}, "png"},
		{"bad seed", url.Values{"seed": {"1.5"}}, "png"},
		{"bad gamma", url.Values{"gamma": {"maybe"}}, "png"},
		{"unknown shader", url.Values{"shader": {"plasma"}}, "png"},
		{"too many cells", url.Values{"width": {"20"}, "height": {"20"}}, "png"},
		{"too many pixels", url.Values{"tile": {"100"}}, "png"},
		{"overflowing size", url.Values{"width": {"8589934592"}, "height": {"2147483648"}}, "ppm"},
		{"overflowing pixels", url.Values{"width": {"1"}, "height": {"1"}, "tile": {"4096"}}, "ppm"},
		{"unknown format", url.Values{}, "gif"},
		{"mbtiles", url.Values{}, "mbtiles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ParseRequest(tt.q, tt.ext, false)
			assert.Error(t, err)
		})
	}
}

func TestGridRequestKey(t *testing.T) {
	g := newTestGrids(t, "")
	a, err := g.ParseRequest(url.Values{"seed": {"1"}}, "png", false)
	require.NoError(t, err)
	b, err := g.ParseRequest(url.Values{"seed": {"2"}}, "png", false)
	require.NoError(t, err)
	c, err := g.ParseRequest(url.Values{"seed": {"1"}}, "ppm", false)
	require.NoError(t, err)

	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, ".png", filepath.Ext(a.Key()))
}

func TestGridHandlerPNG(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestGrids(t, ""), nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/grid.png?width=3&height=2&tile=4&seed=7")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestGridHandlerPPM(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grid.ppm?width=2&height=2&tile=4", nil)
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/x-portable-pixmap", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte(ppm.Header(8, 8))))

	img, err := ppm.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestGridHandlerBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grid.png?width=-1", nil)
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGridHandlerMatchesRender(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grid.ppm?width=3&height=3&tile=4&seed=11", nil)
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	grid, err := wang.GenerateSeeded(3, 3, 11)
	require.NoError(t, err)
	opts := render.DefaultOptions()
	opts.TileSize = 4
	buf, err := render.Render(grid, opts)
	require.NoError(t, err)

	var want bytes.Buffer
	require.NoError(t, ppm.Encode(&want, buf, rgba.QuantizeClamp))
	assert.Equal(t, want.Bytes(), rec.Body.Bytes())
}

func TestAtlasHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/atlas.png?tile=4", nil)
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestGridTextHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grid.txt?width=5&height=4&seed=3", nil)
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	grid, err := wang.ParseGrid(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 5, grid.Width())
	assert.Equal(t, 4, grid.Height())
	assert.NoError(t, grid.Verify())
}

func TestGridHandlerCache(t *testing.T) {
	dir := t.TempDir()
	g := newTestGrids(t, dir)
	mux := NewMux(g, nil)

	var bodies [][]byte
	for range 2 {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grid.png?seed=9", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		bodies = append(bodies, rec.Body.Bytes())
	}

	assert.Equal(t, bodies[0], bodies[1])
	status := g.Status()
	assert.Equal(t, int64(1), status.TotalRendered)
	assert.Equal(t, int64(1), status.CacheHits)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGridHandlerOverflowingSize(t *testing.T) {
	g := newTestGrids(t, "")
	mux := NewMux(g, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grid.ppm?width=8589934592&height=2147483648", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	status := g.Status()
	assert.Equal(t, 0, status.ActiveRenders)
	assert.Equal(t, int64(0), status.TotalRendered)
}

func TestStatusHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(newTestGrids(t, ""), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status RenderStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, 1, status.MaxConcurrent)
}

func TestHealthzAndCORSPreflight(t *testing.T) {
	mux := NewMux(newTestGrids(t, ""), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/grid.png", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMBTilesHandler(t *testing.T) {
	const ts = 8
	grid, err := wang.GenerateSeeded(3, 2, 4)
	require.NoError(t, err)
	opts := render.DefaultOptions()
	opts.TileSize = ts
	buf, err := render.Render(grid, opts)
	require.NoError(t, err)
	text, err := grid.MarshalText()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grid.mbtiles")
	e := &export.Exporter{}
	_, err = e.WriteMBTiles(path, buf, export.TilesetInfo{
		Name:     "grid",
		TileSize: ts,
		Grid:     mbtiles.GridInfo{Text: string(text), Width: 3, Height: 2, TileSize: ts, Seed: 4},
	})
	require.NoError(t, err)

	h, err := NewMBTilesHandler(MBTilesConfig{MBTilesPath: path}, nil)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, 3, h.Metadata().Grid.Width)

	mux := NewMux(newTestGrids(t, ""), h)

	// 3x2 grid fits zoom 2.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z2_x2_y1.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, ts, img.Bounds().Dx())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z2_x3_y3.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tileset/grid.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(text), rec.Body.String())
}
